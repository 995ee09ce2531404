package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

var errStillAnalyzing = errors.New("analysis still running")

// DocumentAPI is the part of the FlowAudit API the document service uses
type DocumentAPI interface {
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context) ([]*model.Document, error)
	UploadDocument(ctx context.Context, filename, contentType string, r io.Reader) (*model.Document, error)
	TriggerAnalysis(ctx context.Context, id string, req *AnalyzeRequest) error
}

// OriginalArchiver keeps a copy of uploaded files
type OriginalArchiver interface {
	ArchiveOriginal(ctx context.Context, documentID, filename, contentType string, data []byte) (string, error)
}

// UploadResult is the outcome of an upload
type UploadResult struct {
	Document    *model.Document `json:"document"`
	OriginalURL string          `json:"original_url,omitempty"`
}

// DocumentService reads documents through the cache and guards the analyze
// trigger.
type DocumentService struct {
	api      DocumentAPI
	cache    *DocumentCache
	metrics  *Metrics
	archiver OriginalArchiver

	pollAttempts uint
	pollDelay    time.Duration

	mu        sync.Mutex
	analyzing map[string]bool
	wg        sync.WaitGroup

	// OnDocument is called with every freshly fetched document
	OnDocument func(ctx context.Context, doc *model.Document)
}

func NewDocumentService(api DocumentAPI, cache *DocumentCache, cfg *config.FlowAuditConfig, metrics *Metrics) *DocumentService {
	// retry-go treats zero attempts as unlimited
	attempts := cfg.PollAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &DocumentService{
		api:          api,
		cache:        cache,
		metrics:      metrics,
		pollAttempts: uint(attempts),
		pollDelay:    time.Duration(cfg.PollSeconds) * time.Second,
		analyzing:    make(map[string]bool),
	}
}

// SetArchiver enables archiving of uploaded originals
func (s *DocumentService) SetArchiver(a OriginalArchiver) {
	s.archiver = a
}

// Get returns a document, from the cache when possible
func (s *DocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.cache.Get(ctx, id)
	if err != nil {
		logger.Warn(ctx, "document cache read failed", "document_id", id, "error", err)
	}
	if doc != nil {
		return doc, nil
	}
	return s.fetch(ctx, id)
}

// Refresh drops the cached copy and fetches the server's version
func (s *DocumentService) Refresh(ctx context.Context, id string) (*model.Document, error) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.Warn(ctx, "document cache invalidate failed", "document_id", id, "error", err)
	}
	return s.fetch(ctx, id)
}

// Invalidate drops the cached copy
func (s *DocumentService) Invalidate(ctx context.Context, id string) error {
	return s.cache.Invalidate(ctx, id)
}

func (s *DocumentService) List(ctx context.Context) ([]*model.Document, error) {
	return s.api.ListDocuments(ctx)
}

// Upload forwards a file to FlowAudit and archives the original
func (s *DocumentService) Upload(ctx context.Context, filename, contentType string, data []byte) (*UploadResult, error) {
	doc, err := s.api.UploadDocument(ctx, filename, contentType, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	result := &UploadResult{Document: doc}
	if s.archiver != nil {
		url, err := s.archiver.ArchiveOriginal(ctx, doc.ID, filename, contentType, data)
		if err != nil {
			logger.Warn(ctx, "failed to archive original", "document_id", doc.ID, "error", err)
		}
		result.OriginalURL = url
	}

	logger.Info(ctx, "document uploaded", "document_id", doc.ID, "filename", filename, "size", len(data))
	return result, nil
}

// Analyze triggers the analysis of a VALIDATED document without a result.
// The eligibility check uses a fresh copy, and a second trigger for the same
// document fails until the first one finished polling.
func (s *DocumentService) Analyze(ctx context.Context, id string, req *AnalyzeRequest) error {
	s.mu.Lock()
	if s.analyzing[id] {
		s.mu.Unlock()
		s.metrics.ObserveAnalyze("in_flight")
		return ErrAnalyzeInFlight
	}
	s.analyzing[id] = true
	s.mu.Unlock()

	done := func() {
		s.mu.Lock()
		delete(s.analyzing, id)
		s.mu.Unlock()
	}

	doc, err := s.Refresh(ctx, id)
	if err != nil {
		done()
		return err
	}
	if !doc.CanAnalyze() {
		done()
		s.metrics.ObserveAnalyze("rejected")
		return fmt.Errorf("%w: status %s", ErrAnalyzeNotAllowed, doc.Status)
	}

	if err := s.api.TriggerAnalysis(ctx, id, req); err != nil {
		done()
		s.metrics.ObserveAnalyze("failed")
		return err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.Warn(ctx, "document cache invalidate failed", "document_id", id, "error", err)
	}
	s.metrics.ObserveAnalyze("triggered")
	logger.Info(ctx, "analysis triggered", "document_id", id)

	pollCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer done()
		if _, err := s.WaitForAnalysis(pollCtx, id); err != nil {
			logger.Warn(pollCtx, "analysis polling stopped", "document_id", id, "error", err)
		}
	}()
	return nil
}

// Analyzing reports whether an analyze trigger for id is still running
func (s *DocumentService) Analyzing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing[id]
}

// WaitForAnalysis re-queries the document until it leaves VALIDATED and
// ANALYZING or carries a result.
func (s *DocumentService) WaitForAnalysis(ctx context.Context, id string) (*model.Document, error) {
	var doc *model.Document
	err := retry.Do(
		func() error {
			// readers between rounds must not see the pre-analysis copy
			if err := s.cache.Invalidate(ctx, id); err != nil {
				logger.Warn(ctx, "document cache invalidate failed", "document_id", id, "error", err)
			}
			d, err := s.api.GetDocument(ctx, id)
			if err != nil {
				return err
			}
			doc = d
			if d.HasAnalysis() || (d.Status != model.StatusValidated && d.Status != model.StatusAnalyzing) {
				return nil
			}
			return errStillAnalyzing
		},
		retry.Context(ctx),
		retry.Attempts(s.pollAttempts),
		retry.Delay(s.pollDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrDocumentNotFound)
		}),
	)
	if err != nil {
		return nil, err
	}

	s.store(ctx, doc)
	logger.Info(ctx, "analysis finished", "document_id", id, "status", doc.Status)
	return doc, nil
}

// Wait blocks until background polling has stopped
func (s *DocumentService) Wait() {
	s.wg.Wait()
}

func (s *DocumentService) fetch(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.api.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, doc)
	return doc, nil
}

func (s *DocumentService) store(ctx context.Context, doc *model.Document) {
	if err := s.cache.Set(ctx, doc); err != nil {
		logger.Warn(ctx, "document cache write failed", "document_id", doc.ID, "error", err)
	}
	if s.OnDocument != nil {
		s.OnDocument(ctx, doc)
	}
}
