package marathons

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tanvircsebd/marathonX-server/internal/middleware"
	"github.com/tanvircsebd/marathonX-server/internal/models"
	"github.com/tanvircsebd/marathonX-server/pkg/response"
	"github.com/tanvircsebd/marathonX-server/pkg/storage"
)

const (
	previewLimit    = 6
	previewCacheKey = "marathons:preview"
	previewCacheTTL = time.Minute
)

// Store is the marathon persistence contract the handler depends on.
type Store interface {
	Create(ctx context.Context, m *models.Marathon) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Marathon, error)
	List(ctx context.Context, limit int, newestFirst bool) ([]models.Marathon, error)
	ListByOwner(ctx context.Context, email string) ([]models.Marathon, error)
	Update(ctx context.Context, id uuid.UUID, p UpdateParams) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImageSigner issues pre-signed URLs for marathon image uploads.
type ImageSigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PublicObjectURL(key string) string
}

// CreateRequest is the body for POST /marathons.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Location    string `json:"location"`
	Distance    string `json:"distance"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	StartDate   string `json:"start_date" binding:"required"`
}

// UpdateRequest is the body for PATCH /marathons/:id. Absent fields are left unchanged.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Location    *string `json:"location"`
	Distance    *string `json:"distance"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	StartDate   *string `json:"start_date"`
}

// UploadURLRequest is the body for POST /marathons/:id/image/upload-url.
type UploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// Handler handles marathon catalog HTTP endpoints.
type Handler struct {
	store  Store
	cache  PreviewCache
	images ImageSigner
	logger *zap.Logger
}

// NewHandler creates a marathon handler. cache and images may be nil, which
// disables the preview cache and the image upload endpoint respectively.
func NewHandler(store Store, cache PreviewCache, images ImageSigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, cache: cache, images: images, logger: logger}
}

// Create handles POST /marathons. The owner is the authenticated caller.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		response.BadRequest(c, "invalid start_date")
		return
	}

	m := &models.Marathon{
		Title:       req.Title,
		Location:    req.Location,
		Distance:    req.Distance,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		StartDate:   startDate,
		CreatedBy:   middleware.UserEmail(c),
	}
	if err := h.store.Create(c.Request.Context(), m); err != nil {
		h.logger.Error("create marathon", zap.Error(err))
		response.Internal(c, "failed to create marathon")
		return
	}
	h.invalidatePreview(c.Request.Context())
	response.Created(c, m)
}

// List handles GET /marathons. Query: limit (optional), sortOrder=asc|desc on
// creation time (asc default).
func (h *Handler) List(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	newestFirst := c.Query("sortOrder") == "desc"

	list, err := h.store.List(c.Request.Context(), limit, newestFirst)
	if err != nil {
		h.logger.Error("list marathons", zap.Error(err))
		response.Internal(c, "failed to list marathons")
		return
	}
	if list == nil {
		list = []models.Marathon{}
	}
	response.OK(c, list)
}

// Preview handles GET /marathons/preview (public). At most six marathons, served
// from the Redis cache within its TTL. Cache failures fall through to the store.
func (h *Handler) Preview(c *gin.Context) {
	ctx := c.Request.Context()
	if h.cache != nil {
		if payload, err := h.cache.Get(ctx, previewCacheKey); err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(payload))
			return
		} else if !errors.Is(err, ErrCacheMiss) {
			h.logger.Warn("preview cache get", zap.Error(err))
		}
	}

	list, err := h.store.List(ctx, previewLimit, false)
	if err != nil {
		h.logger.Error("preview marathons", zap.Error(err))
		response.Internal(c, "failed to list marathons")
		return
	}
	if list == nil {
		list = []models.Marathon{}
	}
	body := response.Body{Success: true, Data: list}
	if h.cache != nil {
		if raw, err := json.Marshal(body); err == nil {
			if err := h.cache.Set(ctx, previewCacheKey, string(raw), previewCacheTTL); err != nil {
				h.logger.Warn("preview cache set", zap.Error(err))
			}
		}
	}
	c.JSON(http.StatusOK, body)
}

// GetByID handles GET /marathons/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid marathon id")
		return
	}
	m, err := h.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "marathon not found")
		return
	}
	if err != nil {
		h.logger.Error("get marathon", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to fetch marathon")
		return
	}
	response.OK(c, m)
}

// ListByOwner handles GET /marathons/by-owner/:email.
func (h *Handler) ListByOwner(c *gin.Context) {
	email := c.Param("email")
	list, err := h.store.ListByOwner(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("list marathons by owner", zap.Error(err))
		response.Internal(c, "failed to list marathons")
		return
	}
	if list == nil {
		list = []models.Marathon{}
	}
	response.OK(c, list)
}

// Update handles PATCH /marathons/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid marathon id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := UpdateParams{
		Title:       req.Title,
		Location:    req.Location,
		Distance:    req.Distance,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if req.StartDate != nil {
		t, err := time.Parse(time.RFC3339, *req.StartDate)
		if err != nil {
			response.BadRequest(c, "invalid start_date")
			return
		}
		p.StartDate = &t
	}
	if err := h.store.Update(c.Request.Context(), id, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "marathon not found")
			return
		}
		h.logger.Error("update marathon", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to update marathon")
		return
	}
	h.invalidatePreview(c.Request.Context())
	response.OK(c, gin.H{"message": "marathon updated"})
}

// Delete handles DELETE /marathons/:id. Registrations cascade-delete with the row.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid marathon id")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "marathon not found")
			return
		}
		h.logger.Error("delete marathon", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to delete marathon")
		return
	}
	h.invalidatePreview(c.Request.Context())
	response.OK(c, gin.H{"message": "marathon deleted"})
}

// ImageUploadURL handles POST /marathons/:id/image/upload-url. Returns a
// pre-signed S3 PUT URL so the organizer uploads the image directly.
func (h *Handler) ImageUploadURL(c *gin.Context) {
	if h.images == nil {
		response.ServiceUnavailable(c, "image storage not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid marathon id")
		return
	}
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if _, err := h.store.GetByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "marathon not found")
			return
		}
		h.logger.Error("get marathon", zap.Error(err), zap.String("id", id.String()))
		response.Internal(c, "failed to fetch marathon")
		return
	}
	key, contentType, ok := imageObjectKey(id.String(), req.Filename)
	if !ok {
		response.BadRequest(c, "unsupported image type")
		return
	}
	uploadURL, err := h.images.PresignUpload(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("presign image upload", zap.Error(err))
		response.Internal(c, "failed to generate upload url")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   uploadURL,
		"object_url":   h.images.PublicObjectURL(key),
		"key":          key,
		"content_type": contentType,
	})
}

func imageObjectKey(marathonID, filename string) (key, contentType string, ok bool) {
	if !storage.ValidImageFilename(filename) {
		return "", "", false
	}
	return storage.ImageKey(marathonID, filename), storage.ContentTypeForFilename(filename), true
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("not a non-negative integer")
	}
	return n, nil
}

func (h *Handler) invalidatePreview(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Del(ctx, previewCacheKey); err != nil {
		h.logger.Warn("preview cache del", zap.Error(err))
	}
}
