package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

// FlowAuditClient talks to the FlowAudit document API
type FlowAuditClient struct {
	config     *config.FlowAuditConfig
	httpClient *http.Client
	tokens     *TokenStore
	decoder    *DocumentDecoder
	metrics    *Metrics
}

// AnalyzeRequest carries optional provider hints for an analysis run
type AnalyzeRequest struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// CallbackPayload is the body of the analysis-complete webhook
type CallbackPayload struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

// CallbackContent is the decoded Content of a CallbackPayload
type CallbackContent struct {
	DocumentID string               `json:"document_id"`
	Status     model.DocumentStatus `json:"status"`
	ErrorMsg   string               `json:"err_msg,omitempty"`
}

func NewFlowAuditClient(cfg *config.FlowAuditConfig, tokens *TokenStore, metrics *Metrics) (*FlowAuditClient, error) {
	decoder, err := NewDocumentDecoder()
	if err != nil {
		return nil, err
	}
	return &FlowAuditClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		tokens:  tokens,
		decoder: decoder,
		metrics: metrics,
	}, nil
}

// GetDocument fetches one document
func (c *FlowAuditClient) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	body, err := c.do(ctx, http.MethodGet, "/documents/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	return c.decoder.Decode(body)
}

// ListDocuments fetches the document list
func (c *FlowAuditClient) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	body, err := c.do(ctx, http.MethodGet, "/documents", nil, "")
	if err != nil {
		return nil, err
	}
	return c.decoder.DecodeList(body)
}

// UploadDocument sends a file as multipart form field "file"
func (c *FlowAuditClient) UploadDocument(ctx context.Context, filename, contentType string, r io.Reader) (*model.Document, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/documents/upload", &buf, w.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return c.decoder.Decode(body)
}

// TriggerAnalysis starts the server-side analysis of a document
func (c *FlowAuditClient) TriggerAnalysis(ctx context.Context, id string, req *AnalyzeRequest) error {
	if req == nil {
		req = &AnalyzeRequest{}
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(id)+"/analyze", bytes.NewReader(data), "application/json")
	return err
}

// SubmitFeedback posts reviewer feedback for a document
func (c *FlowAuditClient) SubmitFeedback(ctx context.Context, documentID string, req *model.FeedbackRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/documents/"+url.PathEscape(documentID)+"/feedback", bytes.NewReader(data), "application/json")
	return err
}

// VerifyCallback checks checksum = SHA256(documentID + seed + content)
func (c *FlowAuditClient) VerifyCallback(checksum, content, documentID string) bool {
	data := documentID + c.config.CallbackSeed + content
	hash := sha256.Sum256([]byte(data))
	expected := hex.EncodeToString(hash[:])
	return subtle.ConstantTimeCompare([]byte(checksum), []byte(expected)) == 1
}

func (c *FlowAuditClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.APIURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read session token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok && requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(method, "error")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(method, strconv.Itoa(resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if err := c.tokens.Clear(ctx); err != nil {
			logger.Warn(ctx, "failed to clear session token", "error", err)
		}
		logger.Warn(ctx, "flowaudit API rejected session token", "method", method, "path", path)
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
	case resp.StatusCode >= 400:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	logger.Debug(ctx, "flowaudit API call", "method", method, "path", path, "status", resp.StatusCode)
	return respBody, nil
}

// errorMessage extracts {"detail": ...} or {"error": ...} from an error body
func errorMessage(body []byte) string {
	var payload struct {
		Detail any    `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
