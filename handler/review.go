package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/middleware"
	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
	"github.com/janpow77/flowinvoice-sub001/service"
)

// ReviewHandler exposes the review workflow of one document per reviewer
// tenant.
type ReviewHandler struct {
	reviews *service.ReviewService
}

func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type fieldChangeRequest struct {
	Value *string `json:"value" binding:"required"`
}

type feedbackRequest struct {
	Rating  model.Rating `json:"rating" binding:"required"`
	Comment string       `json:"comment"`
}

// session resolves the review session of the :id document. It writes the
// error response itself and returns nil on failure.
func (h *ReviewHandler) session(c *gin.Context) (context.Context, *service.Session) {
	id := c.Param("id")
	ctx := logger.WithDocument(c.Request.Context(), id)

	sess, err := h.reviews.Session(ctx, middleware.GetTenant(c), id)
	if err != nil {
		respondError(c, err)
		return nil, nil
	}
	return ctx, sess
}

func (h *ReviewHandler) respondSession(c *gin.Context, status int, sess *service.Session, extra gin.H) {
	body := gin.H{
		"review":   sess.Controller.Snapshot(),
		"document": sess.Controller.Document(),
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// View returns the session: state, edit buffer and pending corrections
func (h *ReviewHandler) View(c *gin.Context) {
	_, sess := h.session(c)
	if sess == nil {
		return
	}
	h.respondSession(c, http.StatusOK, sess, nil)
}

// Edit starts editing the extracted values
func (h *ReviewHandler) Edit(c *gin.Context) {
	_, sess := h.session(c)
	if sess == nil {
		return
	}
	if err := sess.Controller.StartEditing(); err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess, nil)
}

// Reject is "No, correct": it opens the editor on the analysis result
func (h *ReviewHandler) Reject(c *gin.Context) {
	_, sess := h.session(c)
	if sess == nil {
		return
	}
	if err := sess.Controller.RejectResult(); err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess, nil)
}

// SetField records an edited value for :field
func (h *ReviewHandler) SetField(c *gin.Context) {
	var req fieldChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	_, sess := h.session(c)
	if sess == nil {
		return
	}
	corrections, err := sess.Controller.HandleFieldChange(c.Param("field"), *req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"corrections":      corrections,
		"correction_count": len(corrections),
	})
}

// Cancel discards the edit buffer
func (h *ReviewHandler) Cancel(c *gin.Context) {
	_, sess := h.session(c)
	if sess == nil {
		return
	}
	if err := sess.Controller.CancelEditing(); err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess, nil)
}

// Submit sends the edit session as feedback
func (h *ReviewHandler) Submit(c *gin.Context) {
	ctx, sess := h.session(c)
	if sess == nil {
		return
	}
	sub, err := sess.Controller.SubmitWithCorrections(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess, gin.H{"submission": sub})
}

// Accept confirms the analysis result as correct
func (h *ReviewHandler) Accept(c *gin.Context) {
	ctx, sess := h.session(c)
	if sess == nil {
		return
	}
	sub, err := sess.Controller.Accept(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess, gin.H{"submission": sub})
}

// Feedback submits an explicit rating with an optional comment
func (h *ReviewHandler) Feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx, sess := h.session(c)
	if sess == nil {
		return
	}
	sub, err := sess.Controller.SubmitRating(ctx, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess, gin.H{"submission": sub})
}
