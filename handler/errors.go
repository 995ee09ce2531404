package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
	"github.com/janpow77/flowinvoice-sub001/review"
	"github.com/janpow77/flowinvoice-sub001/service"
)

// statusFor maps a domain error to its HTTP status
func statusFor(err error) int {
	var apiErr *service.APIError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, review.ErrUnknownField):
		return http.StatusNotFound
	case errors.Is(err, review.ErrInvalidTransition),
		errors.Is(err, review.ErrSubmissionInFlight),
		errors.Is(err, review.ErrAlreadySubmitted),
		errors.Is(err, review.ErrNoAnalysis),
		errors.Is(err, service.ErrAnalyzeNotAllowed),
		errors.Is(err, service.ErrAnalyzeInFlight):
		return http.StatusConflict
	case errors.Is(err, review.ErrInvalidRating),
		errors.Is(err, review.ErrCorrectWithCorrections),
		errors.Is(err, service.ErrInvalidTheme):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUpstream),
		errors.Is(err, service.ErrInvalidPayload),
		errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. An unauthorized upstream adds
// login_required so the client can ask for a new token.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	c.Error(err)

	body := gin.H{"error": err.Error()}
	switch status {
	case http.StatusUnauthorized:
		body["login_required"] = true
	case http.StatusInternalServerError:
		logger.Error(c.Request.Context(), "request failed", "error", err)
		body["error"] = "Internal server error"
	}
	c.JSON(status, body)
}
