package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
	"github.com/janpow77/flowinvoice-sub001/service"
)

// maxUploadSize bounds uploaded invoices and receipts
const maxUploadSize = 20 << 20

// uploadTypes maps allowed extensions to their content type
var uploadTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// documentSummary is the list view of a document
type documentSummary struct {
	ID          string               `json:"id"`
	Filename    string               `json:"filename"`
	UploadedAt  string               `json:"uploaded_at,omitempty"`
	Status      model.DocumentStatus `json:"status"`
	HasAnalysis bool                 `json:"has_analysis"`
	CanAnalyze  bool                 `json:"can_analyze"`
	Reviewed    bool                 `json:"reviewed"`
}

// List returns the documents known to FlowAudit
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]documentSummary, len(docs))
	for i, doc := range docs {
		result[i] = documentSummary{
			ID:          doc.ID,
			Filename:    doc.Filename,
			Status:      doc.Status,
			HasAnalysis: doc.HasAnalysis(),
			CanAnalyze:  doc.CanAnalyze(),
			Reviewed:    doc.Feedback != nil,
		}
		if !doc.UploadedAt.IsZero() {
			result[i].UploadedAt = doc.UploadedAt.Format("2006-01-02T15:04:05Z07:00")
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Get returns one document with its extraction and analysis
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document":    doc,
		"can_analyze": doc.CanAnalyze() && !h.documents.Analyzing(doc.ID),
		"analyzing":   h.documents.Analyzing(doc.ID),
	})
}

// Upload forwards an invoice or receipt to FlowAudit
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	expectedType, ok := uploadTypes[ext]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF, PNG and JPG files are allowed"})
		return
	}
	if header.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}
	if len(data) > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	// the sniffed type must agree with the extension
	detected := http.DetectContentType(data)
	if detected != expectedType && detected != "application/octet-stream" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type"})
		return
	}

	result, err := h.documents.Upload(c.Request.Context(), filepath.Base(header.Filename), expectedType, data)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Analyze triggers the analysis of a validated document
func (h *DocumentHandler) Analyze(c *gin.Context) {
	id := c.Param("id")
	ctx := logger.WithDocument(c.Request.Context(), id)

	var req service.AnalyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	if err := h.documents.Analyze(ctx, id, &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     id,
		"status": model.StatusAnalyzing,
	})
}
