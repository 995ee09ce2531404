package model

import (
	"encoding/json"
	"time"

	"github.com/spf13/cast"
)

// DocumentStatus is the server-side processing status of a document
type DocumentStatus string

// DocumentStatus constants
const (
	StatusUploaded   DocumentStatus = "UPLOADED"
	StatusParsing    DocumentStatus = "PARSING"
	StatusValidating DocumentStatus = "VALIDATING"
	StatusValidated  DocumentStatus = "VALIDATED"
	StatusAnalyzing  DocumentStatus = "ANALYZING"
	StatusAnalyzed   DocumentStatus = "ANALYZED"
	StatusReviewed   DocumentStatus = "REVIEWED"
	StatusExported   DocumentStatus = "EXPORTED"
	StatusError      DocumentStatus = "ERROR"
)

// Severity of a precheck error
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Assessment is the overall verdict of an analysis
type Assessment string

const (
	AssessmentOK           Assessment = "ok"
	AssessmentReviewNeeded Assessment = "review_needed"
	AssessmentRejected     Assessment = "rejected"
)

// Document represents an uploaded invoice or receipt
type Document struct {
	ID             string                `json:"id"`
	Filename       string                `json:"filename"`
	UploadedAt     time.Time             `json:"uploaded_at"`
	Status         DocumentStatus        `json:"status"`
	ExtractedData  map[string]FieldValue `json:"extracted_data"`
	PrecheckErrors []PrecheckError       `json:"precheck_errors"`
	AnalysisResult *AnalysisResult       `json:"analysis_result,omitempty"`
	Feedback       *StoredFeedback       `json:"feedback,omitempty"`
}

// FieldValue is one extracted data point
type FieldValue struct {
	// Value is a string, a float64 or nil
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Text returns the value normalized for comparison
func (f FieldValue) Text() string {
	return NormalizeValue(f.Value)
}

// PrecheckError is a rule violation found before analysis
type PrecheckError struct {
	FeatureID string   `json:"feature_id"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
}

// AnalysisResult is the output of the LLM analysis
type AnalysisResult struct {
	ID                string          `json:"id"`
	OverallAssessment Assessment      `json:"overall_assessment"`
	Confidence        float64         `json:"confidence"`
	Provider          string          `json:"provider"`
	Model             string          `json:"model,omitempty"`
	Risk              json.RawMessage `json:"risk_assessment,omitempty"`
	Semantic          json.RawMessage `json:"semantic_check,omitempty"`
	Economic          json.RawMessage `json:"economic_check,omitempty"`
	Beneficiary       json.RawMessage `json:"beneficiary_match,omitempty"`
	GrantPurpose      json.RawMessage `json:"grant_purpose_check,omitempty"`
	Conflicts         []Conflict      `json:"conflicts,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
}

// Conflict records disagreement between extraction and analysis for a field
type Conflict struct {
	FeatureID     string `json:"feature_id"`
	ExtractedText string `json:"extracted_value"`
	AnalysisText  string `json:"analysis_value"`
	Message       string `json:"message,omitempty"`
}

// StoredFeedback is feedback the server already holds for the document
type StoredFeedback struct {
	Rating      string    `json:"rating"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// HasAnalysis reports whether an analysis result is present
func (d *Document) HasAnalysis() bool {
	return d.AnalysisResult != nil
}

// CanAnalyze reports whether the analyze action is available
func (d *Document) CanAnalyze() bool {
	return d.Status == StatusValidated && d.AnalysisResult == nil
}

// NormalizeValue renders an extracted value as the string used for
// comparisons. nil becomes "". Floats are written without an exponent, so
// 1e21 is "1000000000000000000000" and 1e-7 is "0.0000001".
func NormalizeValue(v any) string {
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}
