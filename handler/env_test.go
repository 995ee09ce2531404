package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/middleware"
	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/review"
	"github.com/janpow77/flowinvoice-sub001/service"
)

// fakeUpstream is an in-memory FlowAudit API
type fakeUpstream struct {
	mu           sync.Mutex
	docs         map[string]*model.Document
	feedback     map[string][]map[string]any
	analyzed     []string
	unauthorized bool
	failFeedback bool
	gets         int
}

func newFakeUpstream(docs ...*model.Document) *fakeUpstream {
	u := &fakeUpstream{docs: make(map[string]*model.Document), feedback: make(map[string][]map[string]any)}
	for _, d := range docs {
		u.docs[d.ID] = d
	}
	return u
}

func (u *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /documents", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		docs := make([]*model.Document, 0, len(u.docs))
		for _, d := range u.docs {
			docs = append(docs, d)
		}
		json.NewEncoder(w).Encode(map[string]any{"documents": docs})
	})
	mux.HandleFunc("GET /documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.gets++
		doc, ok := u.docs[r.PathValue("id")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("POST /documents/upload", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		u.mu.Lock()
		defer u.mu.Unlock()
		doc := &model.Document{ID: "doc-uploaded", Filename: header.Filename, Status: model.StatusUploaded}
		u.docs[doc.ID] = doc
		json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("POST /documents/{id}/analyze", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		id := r.PathValue("id")
		u.analyzed = append(u.analyzed, id)
		doc := *u.docs[id]
		doc.Status = model.StatusAnalyzed
		doc.AnalysisResult = &model.AnalysisResult{ID: "res-" + id, OverallAssessment: model.AssessmentOK}
		u.docs[id] = &doc
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("POST /documents/{id}/feedback", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.failFeedback {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "database unavailable"}`))
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		id := r.PathValue("id")
		u.feedback[id] = append(u.feedback[id], body)
		doc := *u.docs[id]
		doc.Status = model.StatusReviewed
		doc.Feedback = &model.StoredFeedback{Rating: body["rating"].(string), SubmittedAt: time.Now().UTC()}
		u.docs[id] = &doc
		w.WriteHeader(http.StatusCreated)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		unauthorized := u.unauthorized
		u.mu.Unlock()
		if unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "invalid token"}`))
			return
		}
		mux.ServeHTTP(w, r)
	})
}

type testEnv struct {
	upstream  *fakeUpstream
	server    *httptest.Server
	router    *gin.Engine
	cfg       *config.Config
	tokens    *service.TokenStore
	client    *service.FlowAuditClient
	documents *service.DocumentService
	jwt       string
}

func reviewableDocument(id string) *model.Document {
	return &model.Document{
		ID:       id,
		Filename: id + ".pdf",
		Status:   model.StatusAnalyzed,
		ExtractedData: map[string]model.FieldValue{
			"invoice_number": {Value: "RE-1", Confidence: 0.99},
			"net_amount":     {Value: 100.0, Confidence: 0.9},
		},
		AnalysisResult: &model.AnalysisResult{ID: "res-" + id, OverallAssessment: model.AssessmentReviewNeeded},
	}
}

func newTestEnv(t *testing.T, docs ...*model.Document) *testEnv {
	t.Helper()

	upstream := newFakeUpstream(docs...)
	server := httptest.NewServer(upstream.handler())
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Auth: config.AuthConfig{JWTSecret: "test-secret", TokenExpireHours: 1},
		Users: []config.User{
			{Username: "alice", Password: "pass", Tenant: "acme"},
		},
		FlowAudit: config.FlowAuditConfig{
			APIURL:         server.URL,
			TimeoutSeconds: 5,
			PollAttempts:   3,
			PollSeconds:    0,
			CallbackSeed:   "seed",
		},
		Store:  config.StoreConfig{MaxSessions: 10},
		Layout: config.LayoutConfig{MinLeftWidth: 20, MaxLeftWidth: 80, DefaultLeftWidth: 50},
	}

	storage := service.NewMemoryStorage()
	tokens := service.NewTokenStore(storage)
	client, err := service.NewFlowAuditClient(&cfg.FlowAudit, tokens, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	documents := service.NewDocumentService(client, service.NewDocumentCache(storage, time.Minute), &cfg.FlowAudit, nil)
	reviews := service.NewReviewService(service.NewReviewStore(&cfg.Store, nil), documents, client,
		review.NewRatingMap(cfg.FlowAudit.RatingMap), nil)

	handlers := &Handlers{
		Auth:        NewAuthHandler(cfg),
		Session:     NewSessionHandler(tokens),
		Documents:   NewDocumentHandler(documents),
		Reviews:     NewReviewHandler(reviews),
		Preferences: NewPreferenceHandler(service.NewPreferenceStore(storage, cfg.Layout)),
		Callbacks:   NewCallbackHandler(client, documents),
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	handlers.Register(router.Group("/api"), &cfg.Auth)

	jwt, _, err := middleware.GenerateToken("alice", "acme", &cfg.Auth)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	return &testEnv{
		upstream:  upstream,
		server:    server,
		router:    router,
		cfg:       cfg,
		tokens:    tokens,
		client:    client,
		documents: documents,
		jwt:       jwt,
	}
}

// do sends an authenticated JSON request and decodes the response body
func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewBuffer(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+e.jwt)
	w := httptest.NewRecorder()

	e.router.ServeHTTP(w, req)

	var response map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
		}
	}
	return w, response
}

// reviewState digs the session state out of a review response
func reviewState(t *testing.T, response map[string]any) string {
	t.Helper()
	r, ok := response["review"].(map[string]any)
	if !ok {
		t.Fatalf("Expected review in response, got %v", response)
	}
	state, _ := r["state"].(string)
	return state
}
