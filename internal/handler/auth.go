package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// CookieConfig controls the access token cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	authService *service.AuthService
	cookie      CookieConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

// RegisterRequest is the HTTP request body for registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the HTTP request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User    UserResponse `json:"user"`
	IsAdmin bool         `json:"isAdmin"`
	Token   string       `json:"token"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	session, err := h.authService.Register(c.Request.Context(), service.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.setCookie(c, session.Token)
	respondJSON(c, http.StatusCreated, AuthResponse{
		User:    toUserResponse(session.User),
		IsAdmin: session.User.IsAdmin,
		Token:   session.Token,
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setCookie(c, session.Token)
	respondJSON(c, http.StatusOK, AuthResponse{
		User:    toUserResponse(session.User),
		IsAdmin: session.User.IsAdmin,
		Token:   session.Token,
	})
}

// Logout handles GET /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, _ := middleware.Claims(c)
	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	respondJSON(c, http.StatusOK, MessageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string) {
	maxAge := h.cookie.MaxAge
	if maxAge <= 0 {
		maxAge = h.authService.TokenTTL()
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(maxAge.Seconds()), "/", "", h.cookie.Secure, true)
}
