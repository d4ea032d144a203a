package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tanvircsebd/marathonX-server/pkg/response"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "token"

// SessionRequest is the body for POST /session. The identity is established by
// the upstream login provider; the server only signs it into a session cookie.
type SessionRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	jwt        *JWTService
	production bool
	logger     *zap.Logger
}

// NewHandler creates a session handler. production controls cookie security
// attributes: Secure + SameSite=None for cross-site frontends in production,
// SameSite=Strict otherwise.
func NewHandler(jwt *JWTService, production bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{jwt: jwt, production: production, logger: logger}
}

// Create handles POST /session. Issues the session cookie for the given claims.
func (h *Handler) Create(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	token, err := h.jwt.Generate(req.Email, req.Name, req.PhotoURL)
	if err != nil {
		h.logger.Error("sign session token", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}

	h.setCookie(c, token, int(h.jwt.Expiry().Seconds()))
	response.OK(c, gin.H{"success": true})
}

// Logout handles POST /session/logout. Clears the cookie; idempotent. The token
// itself stays valid until expiry since verification is stateless.
func (h *Handler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	if h.production {
		c.SetSameSite(http.SameSiteNoneMode)
	} else {
		c.SetSameSite(http.SameSiteStrictMode)
	}
	c.SetCookie(CookieName, value, maxAge, "/", "", h.production, true)
}
