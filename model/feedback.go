package model

// Rating is a reviewer's verdict on an analysis result
type Rating string

// Internal rating vocabulary
const (
	RatingCorrect          Rating = "CORRECT"
	RatingPartiallyCorrect Rating = "PARTIALLY_CORRECT"
	RatingIncorrect        Rating = "INCORRECT"
)

// Ratings lists every internal rating
var Ratings = []Rating{RatingCorrect, RatingPartiallyCorrect, RatingIncorrect}

// FieldCorrection is a pending override of an extracted field
type FieldCorrection struct {
	FeatureID      string `json:"feature_id"`
	OriginalValue  string `json:"original_value"`
	CorrectedValue string `json:"corrected_value"`
}

// CorrectionPayload is a correction as sent with feedback
type CorrectionPayload struct {
	FeatureID string `json:"feature_id"`
	UserValue string `json:"user_value"`
}

// FeedbackSubmission is the reviewer's feedback in the internal vocabulary
type FeedbackSubmission struct {
	DocumentID   string              `json:"document_id"`
	ResultID     string              `json:"result_id"`
	Rating       Rating              `json:"rating"`
	Corrections  []CorrectionPayload `json:"corrections"`
	AcceptResult bool                `json:"accept_result"`
	Comment      string              `json:"comment,omitempty"`
}

// Override is a field override in the feedback request body
type Override struct {
	FeatureID string `json:"feature_id"`
	UserValue string `json:"user_value"`
	Note      string `json:"note,omitempty"`
}

// FeedbackRequest is the body of POST /documents/{id}/feedback
type FeedbackRequest struct {
	FinalResultID string     `json:"final_result_id"`
	Rating        string     `json:"rating"`
	Comment       string     `json:"comment"`
	Overrides     []Override `json:"overrides"`
	AcceptResult  bool       `json:"accept_result"`
}
