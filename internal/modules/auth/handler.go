package auth

import (
	"errors"
	"net/http"
	"time"

	"netpanel/internal/pkg/password"
	"netpanel/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// CookieConfig controls how the refresh cookie is written. The raw refresh
// token travels only in this cookie, never in a response body.
type CookieConfig struct {
	Name   string
	Path   string
	Secure bool
	MaxAge time.Duration
}

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
	cookie  CookieConfig
}

func NewHandler(service *Service, cookie CookieConfig) *Handler {
	return &Handler{service: service, cookie: cookie}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	authGroup := protected.Group("/auth")
	{
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/verify", h.Verify)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	_, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrPasswordMismatch):
			response.Error(c, http.StatusBadRequest, "PASSWORD_MISMATCH", "Passwords do not match")
		case errors.Is(err, password.ErrWeakPassword):
			response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD",
				"Password must be at least 8 characters with uppercase, lowercase, number and special character")
		case errors.Is(err, ErrEmailAlreadyExists):
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
		default:
			response.Error(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Registration successful",
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
			return
		}
		response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.Success(c, http.StatusOK, loginPayload(result))
}

// Refresh reads the refresh cookie only; there is no request body. Any
// failure clears the cookie so a stale client stops retrying it.
func (h *Handler) Refresh(c *gin.Context) {
	refreshRaw, err := c.Cookie(h.cookie.Name)
	if err != nil || refreshRaw == "" {
		h.clearRefreshCookie(c)
		response.Error(c, http.StatusUnauthorized, "REFRESH_TOKEN_REQUIRED", "Refresh token required")
		return
	}

	result, err := h.service.RefreshSession(c.Request.Context(), refreshRaw, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			h.clearRefreshCookie(c)
			response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token")
			return
		}
		response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh session")
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.Success(c, http.StatusOK, loginPayload(result))
}

func (h *Handler) Logout(c *gin.Context) {
	userID := c.GetInt64("user_id")
	refreshRaw, _ := c.Cookie(h.cookie.Name)

	if err := h.service.Logout(c.Request.Context(), userID, refreshRaw); err != nil {
		response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout")
		return
	}

	h.clearRefreshCookie(c)
	response.Success(c, http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// Verify echoes the identity decoded from the access token, letting
// front-ends check session validity without a storage round trip.
func (h *Handler) Verify(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"user": gin.H{
			"id":    c.GetInt64("user_id"),
			"email": c.GetString("email"),
			"name":  c.GetString("name"),
			"role":  c.GetString("role"),
		},
	})
}

func loginPayload(result *LoginResult) gin.H {
	return gin.H{
		"accessToken":          result.AccessToken,
		"accessTokenExpiresAt": result.AccessExpiresAt.UTC().Format(time.RFC3339),
		"user": UserPublic{
			ID:       result.User.ID,
			FullName: result.User.FullName,
			Email:    result.User.Email,
			Role:     string(result.User.Role),
		},
	}
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.MaxAge.Seconds()), h.cookie.Path, "", h.cookie.Secure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, "", h.cookie.Secure, true)
}
