package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tutti/internal/logger"
	"github.com/layer-3/tutti/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	cookie      CookieConfig
	log         *logger.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, cookie CookieConfig, log *logger.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
		log:         log,
	}
}

// SignUp registers a member and signs them in
func (h *AuthHandlers) SignUp(c *gin.Context) {
	req, ok := bind(c, SignUpRequest.Validate)
	if !ok {
		return
	}

	token, err := h.authService.SignUp(c.Request.Context(), service.SignUpInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		NewsletterOptIn: req.NewsletterOptIn,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	setAuthCookie(c.Writer, h.cookie, token, h.authService.TokenTTL())
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

// Login exchanges email and password for a token
func (h *AuthHandlers) Login(c *gin.Context) {
	req, ok := bind(c, LoginRequest.Validate)
	if !ok {
		return
	}

	token, err := h.authService.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	setAuthCookie(c.Writer, h.cookie, token, h.authService.TokenTTL())
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout clears the auth cookie. Bearer tokens stay valid until they expire.
func (h *AuthHandlers) Logout(c *gin.Context) {
	clearAuthCookie(c.Writer, h.cookie)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ResetPassword changes the caller's password
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	id, ok := IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	req, ok := bind(c, ResetPasswordRequest.Validate)
	if !ok {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// Profile returns the verified identity of the caller
func (h *AuthHandlers) Profile(c *gin.Context) {
	id, ok := IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, id)
}

// Me returns the caller's account without its credential
func (h *AuthHandlers) Me(c *gin.Context) {
	id, ok := IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
