package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/middleware"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

type AuthHandler struct {
	config *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
	Tenant    string `json:"tenant"`
}

// Login checks reviewer credentials and issues a JWT
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user := h.config.FindUser(req.Username)
	if user == nil || !user.CheckPassword(req.Password) {
		logger.Warn(c.Request.Context(), "login failed", "username", req.Username)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user.Username, user.Tenant, &h.config.Auth)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Info(c.Request.Context(), "reviewer logged in", "username", user.Username, "tenant", user.Tenant)
	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		Username:  user.Username,
		Tenant:    user.Tenant,
	})
}

// GetCurrentUser returns the reviewer behind the JWT
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"username": middleware.GetUsername(c),
		"tenant":   middleware.GetTenant(c),
	})
}
