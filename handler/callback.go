package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
	"github.com/janpow77/flowinvoice-sub001/service"
)

// CallbackVerifier checks the checksum of a webhook payload
type CallbackVerifier interface {
	VerifyCallback(checksum, content, documentID string) bool
}

type CallbackHandler struct {
	verifier  CallbackVerifier
	documents *service.DocumentService
}

func NewCallbackHandler(verifier CallbackVerifier, documents *service.DocumentService) *CallbackHandler {
	return &CallbackHandler{verifier: verifier, documents: documents}
}

// HandleAnalysis receives the analysis-complete webhook from FlowAudit. The
// cached document is dropped and open review sessions get the new version.
func (h *CallbackHandler) HandleAnalysis(c *gin.Context) {
	var req service.CallbackPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var content service.CallbackContent
	if err := json.Unmarshal([]byte(req.Content), &content); err != nil || content.DocumentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	if !h.verifier.VerifyCallback(req.Checksum, req.Content, content.DocumentID) {
		logger.Warn(c.Request.Context(), "callback checksum mismatch", "document_id", content.DocumentID)
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid checksum"})
		return
	}

	ctx := logger.WithDocument(c.Request.Context(), content.DocumentID)
	if err := h.documents.Invalidate(ctx, content.DocumentID); err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.documents.Refresh(ctx, content.DocumentID); err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		// the cache is already invalidated; the next read fetches again
		logger.Warn(ctx, "failed to refresh document after callback", "error", err)
	}

	logger.Info(ctx, "analysis callback received", "status", content.Status, "err_msg", content.ErrorMsg)
	c.JSON(http.StatusOK, gin.H{"message": "Callback received"})
}
