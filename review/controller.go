package review

import (
	"context"
	"fmt"
	"sync"

	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

// Refresher invalidates the cached representation of a document and returns
// the server's current version.
type Refresher interface {
	Refresh(ctx context.Context, documentID string) (*model.Document, error)
}

// Observer is notified after feedback was accepted by the server.
type Observer interface {
	FeedbackSubmitted(ctx context.Context, doc *model.Document, sub *model.FeedbackSubmission) error
}

// Options configures a Controller.
type Options struct {
	Submitter    *Submitter
	Refresher    Refresher
	Observers    []Observer
	OnTransition func(from, to State)
}

// Controller runs the review workflow for one document. It is safe for
// concurrent use; the feedback request runs outside the lock, and while it
// is in flight every other operation fails with ErrSubmissionInFlight.
type Controller struct {
	mu         sync.Mutex
	doc        *model.Document
	m          machine
	editor     *FieldEditor
	submission *model.FeedbackSubmission
	opts       Options
}

// Snapshot is a read-only view of a controller.
type Snapshot struct {
	DocumentID      string                    `json:"document_id"`
	State           State                     `json:"state"`
	Status          model.DocumentStatus      `json:"status"`
	CanEdit         bool                      `json:"can_edit"`
	CanSubmit       bool                      `json:"can_submit"`
	Buffer          map[string]string         `json:"buffer,omitempty"`
	Corrections     []model.FieldCorrection   `json:"corrections"`
	CorrectionCount int                       `json:"correction_count"`
	Submission      *model.FeedbackSubmission `json:"submission,omitempty"`
}

// NewController starts a session in Viewing, or in Submitted when the server
// already holds feedback for doc.
func NewController(doc *model.Document, opts Options) *Controller {
	c := &Controller{doc: doc, opts: opts}
	if doc.Feedback != nil {
		c.m.state = Submitted
	}
	return c
}

// StartEditing seeds the edit buffer from the document's extracted values.
func (c *Controller) StartEditing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startEditingLocked()
}

// RejectResult is the "No, correct" action. It behaves like StartEditing.
func (c *Controller) RejectResult() error {
	return c.StartEditing()
}

func (c *Controller) startEditingLocked() error {
	if c.m.state == Viewing && !c.doc.HasAnalysis() {
		return ErrNoAnalysis
	}
	if err := c.fire(EventStartEdit); err != nil {
		return err
	}
	c.editor = NewFieldEditor(c.doc.ExtractedData)
	return nil
}

// HandleFieldChange records a new value for fieldID and returns the pending
// corrections.
func (c *Controller) HandleFieldChange(fieldID, value string) ([]model.FieldCorrection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.m.state {
	case Editing:
	case Submitting:
		return nil, ErrSubmissionInFlight
	case Submitted:
		return nil, ErrAlreadySubmitted
	default:
		return nil, fmt.Errorf("%w: field change in %s", ErrInvalidTransition, c.m.state)
	}

	if _, err := c.editor.Set(fieldID, value); err != nil {
		return nil, err
	}
	return c.editor.Corrections(), nil
}

// CancelEditing discards the buffer and the corrections.
func (c *Controller) CancelEditing() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.fire(EventCancel); err != nil {
		return err
	}
	c.editor = nil
	return nil
}

// SubmitWithCorrections submits the edit session: INCORRECT with every
// pending correction, or CORRECT when none are pending.
func (c *Controller) SubmitWithCorrections(ctx context.Context) (*model.FeedbackSubmission, error) {
	return c.submit(ctx, func(corrections []model.FieldCorrection) (model.Rating, error) {
		if c.m.state != Editing {
			return "", fmt.Errorf("%w: submit corrections in %s", ErrInvalidTransition, c.m.state)
		}
		return Classify(corrections), nil
	}, "")
}

// Accept submits CORRECT without corrections straight from Viewing.
func (c *Controller) Accept(ctx context.Context) (*model.FeedbackSubmission, error) {
	return c.submit(ctx, func(corrections []model.FieldCorrection) (model.Rating, error) {
		if c.m.state != Viewing {
			return "", fmt.Errorf("%w: accept in %s", ErrInvalidTransition, c.m.state)
		}
		return model.RatingCorrect, nil
	}, "")
}

// SubmitRating submits an explicit rating. Pending corrections are attached
// when the session is editing.
func (c *Controller) SubmitRating(ctx context.Context, rating model.Rating, comment string) (*model.FeedbackSubmission, error) {
	return c.submit(ctx, func(corrections []model.FieldCorrection) (model.Rating, error) {
		if !ValidRating(rating) {
			return "", fmt.Errorf("%w: %q", ErrInvalidRating, rating)
		}
		if rating == model.RatingCorrect && len(corrections) > 0 {
			return "", ErrCorrectWithCorrections
		}
		return rating, nil
	}, comment)
}

// submit runs one submission. rate is called under the lock with the pending
// corrections and decides the rating.
func (c *Controller) submit(ctx context.Context, rate func([]model.FieldCorrection) (model.Rating, error), comment string) (*model.FeedbackSubmission, error) {
	c.mu.Lock()
	switch c.m.state {
	case Submitting:
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case Submitted:
		c.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}

	var corrections []model.FieldCorrection
	if c.m.state == Editing {
		corrections = c.editor.Corrections()
	}
	rating, err := rate(corrections)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if !c.doc.HasAnalysis() {
		c.mu.Unlock()
		return nil, ErrNoAnalysis
	}

	sub := c.opts.Submitter.Build(c.doc, rating, corrections, comment)
	if err := c.fire(EventSubmit); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	log := logger.WithContext(ctx)
	sendErr := c.opts.Submitter.Send(ctx, sub)

	c.mu.Lock()
	if sendErr != nil {
		c.fire(EventFailed)
		c.mu.Unlock()
		log.Warn("feedback submission failed",
			"document_id", sub.DocumentID,
			"rating", sub.Rating,
			"error", sendErr,
		)
		return nil, fmt.Errorf("submit feedback: %w", sendErr)
	}
	c.fire(EventSucceeded)
	c.editor = nil
	c.submission = sub
	doc := c.doc
	c.mu.Unlock()

	log.Info("feedback submitted",
		"document_id", sub.DocumentID,
		"rating", sub.Rating,
		"corrections", len(sub.Corrections),
	)

	if c.opts.Refresher != nil {
		fresh, err := c.opts.Refresher.Refresh(ctx, sub.DocumentID)
		if err != nil {
			log.Warn("failed to refresh document after feedback", "document_id", sub.DocumentID, "error", err)
		} else {
			c.mu.Lock()
			c.doc = fresh
			c.mu.Unlock()
			doc = fresh
		}
	}

	for _, obs := range c.opts.Observers {
		if err := obs.FeedbackSubmitted(ctx, doc, sub); err != nil {
			log.Warn("feedback observer failed", "document_id", sub.DocumentID, "error", err)
		}
	}

	return sub, nil
}

// Update replaces the document after a re-fetch. Feedback found on the server
// ends a viewing or editing session in Submitted and drops the edit buffer.
// An editing session without feedback is rebased on the new extracted values.
func (c *Controller) Update(doc *model.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.doc = doc
	switch c.m.state {
	case Viewing, Editing:
		if doc.Feedback != nil {
			c.fire(EventServerFeedback)
			c.editor = nil
			return
		}
		if c.editor != nil {
			c.editor.Rebase(doc.ExtractedData)
		}
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m.state
}

// Document returns the document the session currently shows.
func (c *Controller) Document() *model.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Snapshot returns a consistent view of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		DocumentID:  c.doc.ID,
		State:       c.m.state,
		Status:      c.doc.Status,
		CanEdit:     c.m.state == Viewing && c.doc.HasAnalysis(),
		CanSubmit:   (c.m.state == Viewing || c.m.state == Editing) && c.doc.HasAnalysis(),
		Corrections: []model.FieldCorrection{},
		Submission:  c.submission,
	}
	if c.editor != nil {
		s.Buffer = c.editor.Buffer()
		s.Corrections = c.editor.Corrections()
	}
	s.CorrectionCount = len(s.Corrections)
	return s
}

// fire applies e and reports the change. Must be called with the lock held.
func (c *Controller) fire(e Event) error {
	from, err := c.m.fire(e)
	if err != nil {
		return err
	}
	if c.opts.OnTransition != nil && from != c.m.state {
		c.opts.OnTransition(from, c.m.state)
	}
	return nil
}
