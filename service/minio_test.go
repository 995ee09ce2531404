package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

type memoryObjectStore struct {
	objects      map[string][]byte
	contentTypes map[string]string
	err          error
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: make(map[string][]byte), contentTypes: make(map[string]string)}
}

func (m *memoryObjectStore) PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[objectName] = data
	m.contentTypes[objectName] = contentType
	return nil
}

func (m *memoryObjectStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	return "http://minio.test/bucket/" + objectName, nil
}

func TestNewMinioService(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "test",
		SecretKey:  "test",
		Bucket:     "test",
		ExpireDays: 7,
	}

	svc, err := NewMinioService(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if svc.expiry != 7*24*time.Hour {
		t.Errorf("Expected 7 day expiry, got %s", svc.expiry)
	}
}

func TestMinioServiceWithCancelledContext(t *testing.T) {
	svc, err := NewMinioService(&config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
	})
	if err != nil {
		t.Skip("Could not create MinIO service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.PutObject(ctx, "test", strings.NewReader("test"), 4, "text/plain"); err == nil {
		t.Error("Expected error with cancelled context")
	}
}

func TestArchiveFeedbackSubmitted(t *testing.T) {
	store := newMemoryObjectStore()
	archive := NewArchive(store)
	archive.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	ctx := context.WithValue(context.Background(), logger.TenantKey, "acme")
	ctx = context.WithValue(ctx, logger.UsernameKey, "alice")

	doc := &model.Document{ID: "doc-1", Status: model.StatusReviewed, AnalysisResult: &model.AnalysisResult{ID: "res-1"}}
	sub := &model.FeedbackSubmission{
		DocumentID:  "doc-1",
		ResultID:    "res-1",
		Rating:      model.RatingIncorrect,
		Corrections: []model.CorrectionPayload{{FeatureID: "net_amount", UserValue: "120"}},
	}

	if err := archive.FeedbackSubmitted(ctx, doc, sub); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	name := "feedback/acme/doc-1/20240301T100000.000Z.json"
	data, ok := store.objects[name]
	if !ok {
		t.Fatalf("Expected object %s, got %v", name, store.objects)
	}
	if store.contentTypes[name] != "application/json" {
		t.Errorf("Expected application/json, got '%s'", store.contentTypes[name])
	}

	var record FeedbackRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if record.Reviewer != "alice" || record.Tenant != "acme" {
		t.Errorf("Unexpected record identity %+v", record)
	}
	if record.Submission.Rating != model.RatingIncorrect || len(record.Submission.Corrections) != 1 {
		t.Errorf("Unexpected submission %+v", record.Submission)
	}
}

func TestArchiveFeedbackDefaultTenant(t *testing.T) {
	store := newMemoryObjectStore()
	archive := NewArchive(store)

	err := archive.FeedbackSubmitted(context.Background(), &model.Document{ID: "doc-1"},
		&model.FeedbackSubmission{DocumentID: "doc-1", Rating: model.RatingCorrect})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for name := range store.objects {
		if !strings.HasPrefix(name, "feedback/default/doc-1/") {
			t.Errorf("Expected default tenant prefix, got %s", name)
		}
	}
}

func TestArchiveOriginal(t *testing.T) {
	store := newMemoryObjectStore()
	archive := NewArchive(store)

	url, err := archive.ArchiveOriginal(context.Background(), "doc-1", "../invoice.pdf", "application/pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(store.objects) != 1 {
		t.Fatalf("Expected 1 object, got %d", len(store.objects))
	}
	for name, data := range store.objects {
		if !strings.HasPrefix(name, "originals/doc-1/") || !strings.HasSuffix(name, "-invoice.pdf") {
			t.Errorf("Unexpected object name %s", name)
		}
		if string(data) != "%PDF" {
			t.Errorf("Unexpected content '%s'", data)
		}
		if url != "http://minio.test/bucket/"+name {
			t.Errorf("Unexpected url %s", url)
		}
	}
}

func TestArchiveOriginalError(t *testing.T) {
	store := newMemoryObjectStore()
	store.err = errors.New("bucket gone")
	archive := NewArchive(store)

	if _, err := archive.ArchiveOriginal(context.Background(), "doc-1", "a.png", "image/png", []byte("x")); err == nil {
		t.Error("Expected error from object store")
	}
}
