package registrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanvircsebd/marathonX-server/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore mirrors the repository's transactional contract: the counter and
// the ledger rows always move together, and a failed registration leaves
// nothing behind.
type fakeStore struct {
	counters      map[uuid.UUID]int
	registrations map[uuid.UUID]*models.Registration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counters:      make(map[uuid.UUID]int),
		registrations: make(map[uuid.UUID]*models.Registration),
	}
}

func (s *fakeStore) addMarathon() uuid.UUID {
	id := uuid.New()
	s.counters[id] = 0
	return id
}

func (s *fakeStore) Register(_ context.Context, reg *models.Registration) error {
	if _, ok := s.counters[reg.MarathonID]; !ok {
		return ErrMarathonNotFound
	}
	for _, existing := range s.registrations {
		if existing.MarathonID == reg.MarathonID && existing.Email == reg.Email {
			return ErrDuplicate
		}
	}
	reg.ID = uuid.New()
	reg.RegistrationDate = time.Now()
	cp := *reg
	s.registrations[reg.ID] = &cp
	s.counters[reg.MarathonID]++
	return nil
}

func (s *fakeStore) Unregister(_ context.Context, registrationID, marathonID uuid.UUID) (bool, error) {
	if _, ok := s.registrations[registrationID]; !ok {
		return false, ErrNotFound
	}
	delete(s.registrations, registrationID)
	if _, ok := s.counters[marathonID]; !ok {
		return false, nil
	}
	if s.counters[marathonID] > 0 {
		s.counters[marathonID]--
	}
	return true, nil
}

func (s *fakeStore) Update(_ context.Context, id uuid.UUID, p UpdateParams) error {
	reg, ok := s.registrations[id]
	if !ok {
		return ErrNotFound
	}
	if p.FirstName != nil {
		reg.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		reg.LastName = *p.LastName
	}
	if p.ContactNumber != nil {
		reg.ContactNumber = *p.ContactNumber
	}
	if p.AdditionalInfo != nil {
		reg.AdditionalInfo = *p.AdditionalInfo
	}
	return nil
}

func (s *fakeStore) ListByEmail(_ context.Context, email, search string) ([]models.Registration, error) {
	var list []models.Registration
	for _, reg := range s.registrations {
		if reg.Email != email {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(reg.Title), strings.ToLower(search)) {
			continue
		}
		list = append(list, *reg)
	}
	return list, nil
}

func setupRouter(store Store) *gin.Engine {
	h := NewHandler(store, nil)
	router := gin.New()
	router.POST("/registrations", h.Register)
	router.PUT("/registrations", h.Update)
	router.DELETE("/registrations", h.Unregister)
	router.GET("/registrations/by-email/:email", h.ListByEmail)
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerBody(marathonID uuid.UUID, email string) string {
	return fmt.Sprintf(`{
		"email": %q,
		"first_name": "Runner",
		"last_name": "One",
		"contact_number": "01700000000",
		"marathon_id": %q,
		"title": "City Marathon",
		"start_date": "2026-11-01T06:00:00Z"
	}`, email, marathonID)
}

func registrationID(t *testing.T, w *httptest.ResponseRecorder) uuid.UUID {
	t.Helper()
	var envelope struct {
		Data struct {
			RegistrationID uuid.UUID `json:"registration_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Data.RegistrationID
}

func TestRegisterIncrementsCounter(t *testing.T) {
	store := newFakeStore()
	marathonID := store.addMarathon()
	router := setupRouter(store)

	w := doJSON(router, http.MethodPost, "/registrations", registerBody(marathonID, "runner@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEqual(t, uuid.Nil, registrationID(t, w))
	assert.Equal(t, 1, store.counters[marathonID])
	assert.Len(t, store.registrations, 1)
}

func TestRegisterUnknownMarathonLeavesNoOrphan(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)

	w := doJSON(router, http.MethodPost, "/registrations", registerBody(uuid.New(), "runner@example.com"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, store.registrations, "no registration row may survive a failed register")
}

func TestRegisterDuplicateConflict(t *testing.T) {
	store := newFakeStore()
	marathonID := store.addMarathon()
	router := setupRouter(store)

	w := doJSON(router, http.MethodPost, "/registrations", registerBody(marathonID, "runner@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/registrations", registerBody(marathonID, "runner@example.com"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, store.counters[marathonID], "conflict must not move the counter")
}

func TestRegisterValidation(t *testing.T) {
	store := newFakeStore()
	marathonID := store.addMarathon()
	router := setupRouter(store)

	for name, body := range map[string]string{
		"missing email": fmt.Sprintf(`{"marathon_id":%q,"title":"T","start_date":"2026-11-01T06:00:00Z"}`, marathonID),
		"bad marathon":  `{"email":"r@example.com","marathon_id":"nope","title":"T","start_date":"2026-11-01T06:00:00Z"}`,
		"bad date":      fmt.Sprintf(`{"email":"r@example.com","marathon_id":%q,"title":"T","start_date":"next week"}`, marathonID),
	} {
		w := doJSON(router, http.MethodPost, "/registrations", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
	assert.Equal(t, 0, store.counters[marathonID])
}

func TestUnregisterDecrementsCounter(t *testing.T) {
	store := newFakeStore()
	marathonID := store.addMarathon()
	router := setupRouter(store)

	w := doJSON(router, http.MethodPost, "/registrations", registerBody(marathonID, "runner@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)
	regID := registrationID(t, w)
	require.Equal(t, 1, store.counters[marathonID])

	body := fmt.Sprintf(`{"registration_id":%q,"marathon_id":%q}`, regID, marathonID)
	w = doJSON(router, http.MethodDelete, "/registrations", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.counters[marathonID])
	assert.Empty(t, store.registrations)

	// Deleting again is a 404 and the counter stays at zero.
	w = doJSON(router, http.MethodDelete, "/registrations", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, store.counters[marathonID])
}

func TestUnregisterMissingMarathonStillSucceeds(t *testing.T) {
	store := newFakeStore()
	marathonID := store.addMarathon()
	router := setupRouter(store)

	w := doJSON(router, http.MethodPost, "/registrations", registerBody(marathonID, "runner@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)
	regID := registrationID(t, w)

	delete(store.counters, marathonID) // marathon removed out from under the registration

	body := fmt.Sprintf(`{"registration_id":%q,"marathon_id":%q}`, regID, marathonID)
	w = doJSON(router, http.MethodDelete, "/registrations", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.registrations)
}

func TestUpdateRegistration(t *testing.T) {
	store := newFakeStore()
	marathonID := store.addMarathon()
	router := setupRouter(store)

	w := doJSON(router, http.MethodPost, "/registrations", registerBody(marathonID, "runner@example.com"))
	require.Equal(t, http.StatusCreated, w.Code)
	regID := registrationID(t, w)

	w = doJSON(router, http.MethodPut, "/registrations",
		fmt.Sprintf(`{"registration_id":%q,"contact_number":"01911111111"}`, regID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "01911111111", store.registrations[regID].ContactNumber)
	assert.Equal(t, "Runner", store.registrations[regID].FirstName, "absent fields stay unchanged")

	w = doJSON(router, http.MethodPut, "/registrations",
		fmt.Sprintf(`{"registration_id":%q,"first_name":"X"}`, uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListByEmailWithSearch(t *testing.T) {
	store := newFakeStore()
	router := setupRouter(store)

	m1 := store.addMarathon()
	m2 := store.addMarathon()
	seed := func(marathonID uuid.UUID, title string) {
		reg := &models.Registration{
			MarathonID: marathonID,
			Email:      "runner@example.com",
			Title:      title,
			StartDate:  time.Now(),
		}
		require.NoError(t, store.Register(context.Background(), reg))
	}
	seed(m1, "Dhaka City Marathon")
	seed(m2, "Coastal Half")

	w := doJSON(router, http.MethodGet, "/registrations/by-email/runner@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []models.Registration `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)

	// Case-insensitive substring match on the title snapshot.
	w = doJSON(router, http.MethodGet, "/registrations/by-email/runner@example.com?search=city", "")
	require.Equal(t, http.StatusOK, w.Code)
	envelope.Data = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Dhaka City Marathon", envelope.Data[0].Title)

	w = doJSON(router, http.MethodGet, "/registrations/by-email/nobody@example.com", "")
	require.Equal(t, http.StatusOK, w.Code)
	envelope.Data = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data)
}
