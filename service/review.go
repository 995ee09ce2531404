package service

import (
	"context"

	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
	"github.com/janpow77/flowinvoice-sub001/review"
)

// ReviewService hands out review sessions wired to the FlowAudit API, the
// document cache and the submission observers.
type ReviewService struct {
	store     *ReviewStore
	documents *DocumentService
	submitter *review.Submitter
	observers []review.Observer
	metrics   *Metrics
}

func NewReviewService(store *ReviewStore, documents *DocumentService, sender review.FeedbackSender, ratings review.RatingMap, metrics *Metrics, observers ...review.Observer) *ReviewService {
	s := &ReviewService{
		store:     store,
		documents: documents,
		submitter: review.NewSubmitter(sender, ratings),
		observers: observers,
		metrics:   metrics,
	}
	documents.OnDocument = func(ctx context.Context, doc *model.Document) {
		store.UpdateDocument(doc)
	}
	return s
}

// Session returns the review session of documentID for tenant, loading the
// document on first access.
func (s *ReviewService) Session(ctx context.Context, tenant, documentID string) (*Session, error) {
	if sess := s.store.Get(tenant, documentID); sess != nil {
		return sess, nil
	}

	doc, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	sess := s.store.GetOrCreate(tenant, documentID, func() *review.Controller {
		logger.Debug(ctx, "review session created", "document_id", documentID)
		return review.NewController(doc, review.Options{
			Submitter:    s.submitter,
			Refresher:    s.documents,
			Observers:    s.observers,
			OnTransition: s.metrics.ObserveTransition,
		})
	})
	return sess, nil
}

// Close drops the session of documentID for tenant
func (s *ReviewService) Close(tenant, documentID string) {
	s.store.Delete(tenant, documentID)
}
