package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

// ObjectStore is the object storage the archive writes to
type ObjectStore interface {
	PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, objectName string) (string, error)
}

type MinioService struct {
	client *minio.Client
	bucket string
	expiry time.Duration
}

func NewMinioService(cfg *config.MinioConfig) (*MinioService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioService{
		client: client,
		bucket: cfg.Bucket,
		expiry: time.Duration(cfg.ExpireDays) * 24 * time.Hour,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioService) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (s *MinioService) PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// PresignedURL returns a download link valid for the configured expiry
func (s *MinioService) PresignedURL(ctx context.Context, objectName string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// FeedbackRecord is one archived submission
type FeedbackRecord struct {
	DocumentID     string                    `json:"document_id"`
	Tenant         string                    `json:"tenant"`
	Reviewer       string                    `json:"reviewer,omitempty"`
	ArchivedAt     time.Time                 `json:"archived_at"`
	Status         model.DocumentStatus      `json:"status"`
	Submission     *model.FeedbackSubmission `json:"submission"`
	AnalysisResult *model.AnalysisResult     `json:"analysis_result,omitempty"`
}

// Archive writes feedback records and uploaded originals to object storage
type Archive struct {
	store ObjectStore
	now   func() time.Time
}

func NewArchive(store ObjectStore) *Archive {
	return &Archive{store: store, now: time.Now}
}

// FeedbackSubmitted implements review.Observer
func (a *Archive) FeedbackSubmitted(ctx context.Context, doc *model.Document, sub *model.FeedbackSubmission) error {
	tenant := contextString(ctx, logger.TenantKey, "default")
	record := FeedbackRecord{
		DocumentID:     sub.DocumentID,
		Tenant:         tenant,
		Reviewer:       contextString(ctx, logger.UsernameKey, ""),
		ArchivedAt:     a.now().UTC(),
		Status:         doc.Status,
		Submission:     sub,
		AnalysisResult: doc.AnalysisResult,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode feedback record: %w", err)
	}

	objectName := path.Join("feedback", tenant, sub.DocumentID, record.ArchivedAt.Format("20060102T150405.000Z")+".json")
	if err := a.store.PutObject(ctx, objectName, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return err
	}
	logger.Debug(ctx, "feedback archived", "object", objectName)
	return nil
}

// ArchiveOriginal stores an uploaded file and returns a presigned link to it
func (a *Archive) ArchiveOriginal(ctx context.Context, documentID, filename, contentType string, data []byte) (string, error) {
	objectName := path.Join("originals", documentID, uuid.New().String()+"-"+path.Base(filename))
	if err := a.store.PutObject(ctx, objectName, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return a.store.PresignedURL(ctx, objectName)
}

func contextString(ctx context.Context, key logger.ContextKey, fallback string) string {
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v
	}
	return fallback
}
