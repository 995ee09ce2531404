package review

import (
	"context"

	"github.com/janpow77/flowinvoice-sub001/model"
)

// FeedbackSender delivers a feedback request for a document.
type FeedbackSender interface {
	SubmitFeedback(ctx context.Context, documentID string, req *model.FeedbackRequest) error
}

// Submitter builds feedback payloads and hands them to a FeedbackSender.
type Submitter struct {
	sender  FeedbackSender
	ratings RatingMap
}

// NewSubmitter creates a submitter. A nil ratings map uses DefaultRatingMap.
func NewSubmitter(sender FeedbackSender, ratings RatingMap) *Submitter {
	if ratings == nil {
		ratings = DefaultRatingMap
	}
	return &Submitter{sender: sender, ratings: ratings}
}

// Build maps a rating and its corrections to a submission. result_id is the
// analysis result id, or the document id when there is none.
func (s *Submitter) Build(doc *model.Document, rating model.Rating, corrections []model.FieldCorrection, comment string) *model.FeedbackSubmission {
	resultID := doc.ID
	if doc.AnalysisResult != nil && doc.AnalysisResult.ID != "" {
		resultID = doc.AnalysisResult.ID
	}

	payload := make([]model.CorrectionPayload, 0, len(corrections))
	for _, c := range corrections {
		payload = append(payload, model.CorrectionPayload{
			FeatureID: c.FeatureID,
			UserValue: c.CorrectedValue,
		})
	}

	return &model.FeedbackSubmission{
		DocumentID:   doc.ID,
		ResultID:     resultID,
		Rating:       rating,
		Corrections:  payload,
		AcceptResult: rating == model.RatingCorrect,
		Comment:      comment,
	}
}

// Request translates a submission into the wire body.
func (s *Submitter) Request(sub *model.FeedbackSubmission) *model.FeedbackRequest {
	overrides := make([]model.Override, 0, len(sub.Corrections))
	for _, c := range sub.Corrections {
		overrides = append(overrides, model.Override{
			FeatureID: c.FeatureID,
			UserValue: c.UserValue,
		})
	}
	return &model.FeedbackRequest{
		FinalResultID: sub.ResultID,
		Rating:        s.ratings.External(sub.Rating),
		Comment:       sub.Comment,
		Overrides:     overrides,
		AcceptResult:  sub.AcceptResult,
	}
}

// Send delivers sub through the sender.
func (s *Submitter) Send(ctx context.Context, sub *model.FeedbackSubmission) error {
	return s.sender.SubmitFeedback(ctx, sub.DocumentID, s.Request(sub))
}
