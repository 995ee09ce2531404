package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/janpow77/flowinvoice-sub001/model"
)

func uploadRequest(t *testing.T, env *testEnv, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(data)
	writer.Close()

	req := httptest.NewRequest("POST", "/api/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.jwt)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestDocumentHandlerList(t *testing.T) {
	validated := reviewableDocument("doc-2")
	validated.Status = model.StatusValidated
	validated.AnalysisResult = nil
	env := newTestEnv(t, reviewableDocument("doc-1"), validated)

	w, response := env.do(t, "GET", "/api/documents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	docs, ok := response["documents"].([]any)
	if !ok || len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %v", response["documents"])
	}
	for _, d := range docs {
		doc := d.(map[string]any)
		switch doc["id"] {
		case "doc-1":
			if doc["has_analysis"] != true || doc["can_analyze"] != false {
				t.Errorf("Unexpected summary for doc-1: %v", doc)
			}
		case "doc-2":
			if doc["has_analysis"] != false || doc["can_analyze"] != true {
				t.Errorf("Unexpected summary for doc-2: %v", doc)
			}
		default:
			t.Errorf("Unexpected document %v", doc["id"])
		}
	}
}

func TestDocumentHandlerGet(t *testing.T) {
	env := newTestEnv(t, reviewableDocument("doc-1"))

	w, response := env.do(t, "GET", "/api/documents/doc-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	document := response["document"].(map[string]any)
	if document["id"] != "doc-1" {
		t.Errorf("Expected id doc-1, got %v", document["id"])
	}

	// a second read is served from the cache
	env.do(t, "GET", "/api/documents/doc-1", nil)
	env.upstream.mu.Lock()
	gets := env.upstream.gets
	env.upstream.mu.Unlock()
	if gets != 1 {
		t.Errorf("Expected 1 upstream fetch, got %d", gets)
	}

	w, _ = env.do(t, "GET", "/api/documents/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDocumentHandlerUpload(t *testing.T) {
	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

	tests := []struct {
		name           string
		filename       string
		data           []byte
		expectedStatus int
	}{
		{name: "pdf", filename: "invoice.pdf", data: pdf, expectedStatus: http.StatusOK},
		{name: "unsupported extension", filename: "invoice.txt", data: []byte("hello"), expectedStatus: http.StatusBadRequest},
		{name: "content does not match extension", filename: "invoice.png", data: pdf, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			w := uploadRequest(t, env, tt.filename, tt.data)
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusOK {
				var response struct {
					Document *model.Document `json:"document"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
					t.Fatalf("Failed to parse response: %v", err)
				}
				if response.Document == nil || response.Document.Filename != tt.filename {
					t.Errorf("Expected uploaded document %s, got %+v", tt.filename, response.Document)
				}
			}
		})
	}
}

func TestDocumentHandlerUploadMissingFile(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.do(t, "POST", "/api/documents/upload", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestDocumentHandlerAnalyze(t *testing.T) {
	doc := reviewableDocument("doc-1")
	doc.Status = model.StatusValidated
	doc.AnalysisResult = nil
	env := newTestEnv(t, doc, reviewableDocument("doc-2"))

	w, response := env.do(t, "POST", "/api/documents/doc-1/analyze", map[string]string{"provider": "ollama"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	if response["status"] != string(model.StatusAnalyzing) {
		t.Errorf("Expected status ANALYZING, got %v", response["status"])
	}

	env.documents.Wait()

	env.upstream.mu.Lock()
	analyzed := len(env.upstream.analyzed)
	env.upstream.mu.Unlock()
	if analyzed != 1 {
		t.Errorf("Expected 1 analyze trigger, got %d", analyzed)
	}

	_, response = env.do(t, "GET", "/api/documents/doc-1", nil)
	document := response["document"].(map[string]any)
	if document["status"] != string(model.StatusAnalyzed) {
		t.Errorf("Expected ANALYZED after polling, got %v", document["status"])
	}
	if response["can_analyze"] != false {
		t.Errorf("Expected can_analyze false, got %v", response["can_analyze"])
	}

	// already analyzed
	w, _ = env.do(t, "POST", "/api/documents/doc-2/analyze", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}

func TestDocumentHandlerUnauthorizedUpstream(t *testing.T) {
	env := newTestEnv(t, reviewableDocument("doc-1"))
	env.tokens.SetToken(context.Background(), "stale")

	env.upstream.mu.Lock()
	env.upstream.unauthorized = true
	env.upstream.mu.Unlock()

	w, response := env.do(t, "GET", "/api/documents/doc-1", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", w.Code)
	}
	if response["login_required"] != true {
		t.Errorf("Expected login_required, got %v", response)
	}

	token, _ := env.tokens.Token(context.Background())
	if token != "" {
		t.Errorf("Expected token cleared, got %q", token)
	}
}
