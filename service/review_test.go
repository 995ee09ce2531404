package service

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/review"
)

type recordingSender struct {
	mu       sync.Mutex
	api      *fakeAPI
	requests []*model.FeedbackRequest
}

// SubmitFeedback records the request and marks the document reviewed
func (s *recordingSender) SubmitFeedback(ctx context.Context, documentID string, req *model.FeedbackRequest) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	s.api.mu.Lock()
	defer s.api.mu.Unlock()
	doc := *s.api.docs[documentID]
	doc.Status = model.StatusReviewed
	doc.Feedback = &model.StoredFeedback{Rating: req.Rating}
	s.api.docs[documentID] = &doc
	return nil
}

type countingObserver struct {
	calls []*model.FeedbackSubmission
	docs  []*model.Document
}

func (o *countingObserver) FeedbackSubmitted(ctx context.Context, doc *model.Document, sub *model.FeedbackSubmission) error {
	o.calls = append(o.calls, sub)
	o.docs = append(o.docs, doc)
	return nil
}

func newTestReviewService(t *testing.T) (*ReviewService, *fakeAPI, *recordingSender, *countingObserver, *Metrics) {
	t.Helper()
	api := newFakeAPI(analyzedDocument("doc-1"))
	sender := &recordingSender{api: api}
	observer := &countingObserver{}
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	svc := NewReviewService(newTestStore(10), newTestDocumentService(api), sender, nil, metrics, observer, metrics)
	return svc, api, sender, observer, metrics
}

func TestReviewServiceSessionReused(t *testing.T) {
	svc, api, _, _, _ := newTestReviewService(t)
	ctx := context.Background()

	first, err := svc.Session(ctx, "tenant1", "doc-1")
	require.NoError(t, err)
	second, err := svc.Session(ctx, "tenant1", "doc-1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, api.getCount())
}

func TestReviewServiceSessionNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestReviewService(t)

	_, err := svc.Session(context.Background(), "tenant1", "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestReviewServiceCorrectionFlow(t *testing.T) {
	svc, _, sender, observer, metrics := newTestReviewService(t)
	ctx := context.Background()

	sess, err := svc.Session(ctx, "tenant1", "doc-1")
	require.NoError(t, err)
	c := sess.Controller

	require.NoError(t, c.RejectResult())
	_, err = c.HandleFieldChange("net_amount", "120")
	require.NoError(t, err)

	sub, err := c.SubmitWithCorrections(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RatingIncorrect, sub.Rating)

	require.Len(t, sender.requests, 1)
	assert.Equal(t, "WRONG", sender.requests[0].Rating)
	assert.Equal(t, "res-doc-1", sender.requests[0].FinalResultID)

	assert.Equal(t, review.Submitted, c.State())
	assert.Equal(t, model.StatusReviewed, c.Document().Status)

	require.Len(t, observer.calls, 1)
	assert.Equal(t, model.StatusReviewed, observer.docs[0].Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.submissions.WithLabelValues("INCORRECT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("viewing", "editing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("submitting", "submitted")))
}

func TestReviewServiceRefreshUpdatesOtherSessions(t *testing.T) {
	svc, _, _, _, _ := newTestReviewService(t)
	ctx := context.Background()

	mine, err := svc.Session(ctx, "tenant1", "doc-1")
	require.NoError(t, err)
	theirs, err := svc.Session(ctx, "tenant2", "doc-1")
	require.NoError(t, err)

	_, err = mine.Controller.Accept(ctx)
	require.NoError(t, err)

	assert.Equal(t, review.Submitted, theirs.Controller.State())
	assert.Equal(t, model.StatusReviewed, theirs.Controller.Document().Status)
}

func TestReviewServiceClose(t *testing.T) {
	svc, api, _, _, _ := newTestReviewService(t)
	ctx := context.Background()

	_, err := svc.Session(ctx, "tenant1", "doc-1")
	require.NoError(t, err)
	svc.Close("tenant1", "doc-1")

	_, err = svc.Session(ctx, "tenant1", "doc-1")
	require.NoError(t, err)
	// second session is served from the document cache
	assert.Equal(t, 1, api.getCount())
}
