package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
	"github.com/janpow77/flowinvoice-sub001/service"
)

// SessionHandler manages the bearer token used against FlowAudit
type SessionHandler struct {
	tokens *service.TokenStore
}

func NewSessionHandler(tokens *service.TokenStore) *SessionHandler {
	return &SessionHandler{tokens: tokens}
}

type setTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// SetToken installs a new upstream token after the login boundary was hit
func (h *SessionHandler) SetToken(c *gin.Context) {
	var req setTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.tokens.SetToken(c.Request.Context(), req.Token); err != nil {
		respondError(c, err)
		return
	}

	logger.Info(c.Request.Context(), "upstream token updated")
	c.JSON(http.StatusOK, gin.H{"message": "Token updated"})
}

// Status reports whether an upstream token is present
func (h *SessionHandler) Status(c *gin.Context) {
	token, err := h.tokens.Token(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": token != ""})
}
