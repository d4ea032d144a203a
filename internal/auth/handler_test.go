package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupSessionRouter(production bool) *gin.Engine {
	jwtService := NewJWTService("test-secret", 24)
	h := NewHandler(jwtService, production, nil)
	router := gin.New()
	router.POST("/session", h.Create)
	router.POST("/session/logout", h.Logout)
	return router
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName {
			return ck
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionCreateSetsCookie(t *testing.T) {
	router := setupSessionRouter(false)

	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"email":"runner@example.com","name":"Runner"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	ck := sessionCookie(t, w.Result())
	assert.True(t, ck.HttpOnly)
	assert.False(t, ck.Secure)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	assert.Equal(t, 24*60*60, ck.MaxAge)

	claims, err := NewJWTService("test-secret", 24).Validate(ck.Value)
	require.NoError(t, err)
	assert.Equal(t, "runner@example.com", claims.Email)
}

func TestSessionCreateProductionCookie(t *testing.T) {
	router := setupSessionRouter(true)

	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"email":"runner@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	ck := sessionCookie(t, w.Result())
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteNoneMode, ck.SameSite)
}

func TestSessionCreateRejectsBadBody(t *testing.T) {
	router := setupSessionRouter(false)

	for _, body := range []string{`{}`, `{"email":"not-an-email"}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestLogoutClearsCookieAndIsIdempotent(t *testing.T) {
	router := setupSessionRouter(false)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/session/logout", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, "logout call %d", i+1)
		ck := sessionCookie(t, w.Result())
		assert.Empty(t, ck.Value)
		assert.Less(t, ck.MaxAge, 0)
	}
}
