package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned after the FlowAudit API answered 401; the
	// stored token has been cleared by then
	ErrUnauthorized = errors.New("flowaudit: unauthorized")
	// ErrDocumentNotFound is returned for unknown documents
	ErrDocumentNotFound = errors.New("flowaudit: document not found")
	// ErrUpstream is returned when the FlowAudit API could not be reached
	ErrUpstream = errors.New("flowaudit: upstream unavailable")
	// ErrInvalidPayload is returned when a response fails schema validation
	ErrInvalidPayload = errors.New("flowaudit: invalid payload")
	// ErrAnalyzeNotAllowed is returned when the document is not VALIDATED or already analyzed
	ErrAnalyzeNotAllowed = errors.New("analyze not allowed for document")
	// ErrAnalyzeInFlight is returned while an analyze trigger for the document is running
	ErrAnalyzeInFlight = errors.New("analyze already in progress")
)

// APIError is a non-2xx answer from the FlowAudit API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flowaudit API error %d: %s", e.StatusCode, e.Message)
}
