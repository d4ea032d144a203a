package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanvircsebd/marathonX-server/internal/models"
	"github.com/tanvircsebd/marathonX-server/pkg/response"
)

// Store is the registration persistence contract the handler depends on.
type Store interface {
	Register(ctx context.Context, reg *models.Registration) error
	Unregister(ctx context.Context, registrationID, marathonID uuid.UUID) (marathonFound bool, err error)
	Update(ctx context.Context, id uuid.UUID, p UpdateParams) error
	ListByEmail(ctx context.Context, email, search string) ([]models.Registration, error)
}

// RegisterRequest is the body for POST /registrations. Title and StartDate are
// the marathon snapshot the frontend displays in the registrant's listing.
type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ContactNumber  string `json:"contact_number"`
	AdditionalInfo string `json:"additional_info"`
	MarathonID     string `json:"marathon_id" binding:"required"`
	Title          string `json:"title" binding:"required"`
	StartDate      string `json:"start_date" binding:"required"`
}

// UpdateRequest is the body for PUT /registrations. Only the mutable fields;
// email and marathon linkage cannot change after creation.
type UpdateRequest struct {
	RegistrationID string  `json:"registration_id" binding:"required"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	ContactNumber  *string `json:"contact_number"`
	AdditionalInfo *string `json:"additional_info"`
}

// UnregisterRequest is the body for DELETE /registrations.
type UnregisterRequest struct {
	RegistrationID string `json:"registration_id" binding:"required"`
	MarathonID     string `json:"marathon_id" binding:"required"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Register handles POST /registrations. Inserts the registration and bumps the
// marathon's counter as one atomic unit.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	marathonID, err := uuid.Parse(req.MarathonID)
	if err != nil {
		response.BadRequest(c, "invalid marathon id")
		return
	}
	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		response.BadRequest(c, "invalid start_date")
		return
	}

	reg := &models.Registration{
		MarathonID:     marathonID,
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ContactNumber:  req.ContactNumber,
		AdditionalInfo: req.AdditionalInfo,
		Title:          req.Title,
		StartDate:      startDate,
	}
	if err := h.store.Register(c.Request.Context(), reg); err != nil {
		switch {
		case errors.Is(err, ErrMarathonNotFound):
			response.NotFound(c, "marathon not found")
		case errors.Is(err, ErrDuplicate):
			response.Conflict(c, "already registered for this marathon")
		default:
			h.logger.Error("register", zap.Error(err), zap.String("marathon_id", marathonID.String()))
			response.Internal(c, "failed to register")
		}
		return
	}
	response.Created(c, gin.H{
		"message":         "registration successful",
		"registration_id": reg.ID,
	})
}

// Unregister handles DELETE /registrations. Deletes the registration, then
// decrements the marathon's counter; a marathon already gone only warrants a
// warning since the ledger row is removed either way.
func (h *Handler) Unregister(c *gin.Context) {
	var req UnregisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	registrationID, err := uuid.Parse(req.RegistrationID)
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	marathonID, err := uuid.Parse(req.MarathonID)
	if err != nil {
		response.BadRequest(c, "invalid marathon id")
		return
	}

	marathonFound, err := h.store.Unregister(c.Request.Context(), registrationID, marathonID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		h.logger.Error("unregister", zap.Error(err), zap.String("registration_id", registrationID.String()))
		response.Internal(c, "failed to delete registration")
		return
	}
	if !marathonFound {
		h.logger.Warn("marathon missing on unregister",
			zap.String("registration_id", registrationID.String()),
			zap.String("marathon_id", marathonID.String()))
	}
	response.OK(c, gin.H{"message": "registration deleted"})
}

// Update handles PUT /registrations.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	registrationID, err := uuid.Parse(req.RegistrationID)
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}

	p := UpdateParams{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ContactNumber:  req.ContactNumber,
		AdditionalInfo: req.AdditionalInfo,
	}
	if err := h.store.Update(c.Request.Context(), registrationID, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		h.logger.Error("update registration", zap.Error(err), zap.String("registration_id", registrationID.String()))
		response.Internal(c, "failed to update registration")
		return
	}
	response.OK(c, gin.H{"message": "registration updated"})
}

// ListByEmail handles GET /registrations/by-email/:email. The optional search
// query filters by title substring, case-insensitively.
func (h *Handler) ListByEmail(c *gin.Context) {
	email := c.Param("email")
	search := c.Query("search")

	list, err := h.store.ListByEmail(c.Request.Context(), email, search)
	if err != nil {
		h.logger.Error("list registrations", zap.Error(err), zap.String("email", email))
		response.Internal(c, "failed to list registrations")
		return
	}
	if list == nil {
		list = []models.Registration{}
	}
	response.OK(c, list)
}
