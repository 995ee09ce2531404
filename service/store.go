package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/review"
)

// Session is one reviewer-facing review of a document
type Session struct {
	Tenant     string
	DocumentID string
	Controller *review.Controller
	CreatedAt  time.Time
	LastAccess time.Time
}

type sessionKey struct {
	tenant     string
	documentID string
}

// ReviewStore is an in-memory store of review sessions keyed by tenant and
// document.
type ReviewStore struct {
	sessions    map[sessionKey]*Session
	mu          sync.RWMutex
	maxSessions int // 0 = unlimited
	now         func() time.Time
	metrics     *Metrics
}

func NewReviewStore(cfg *config.StoreConfig, metrics *Metrics) *ReviewStore {
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = 0
	}
	slog.Info("review store initialized", "max_sessions", maxSessions)
	return &ReviewStore{
		sessions:    make(map[sessionKey]*Session),
		maxSessions: maxSessions,
		now:         time.Now,
		metrics:     metrics,
	}
}

// GetOrCreate returns the session for (tenant, documentID), building its
// controller with create when there is none.
func (s *ReviewStore) GetOrCreate(tenant, documentID string, create func() *review.Controller) *Session {
	key := sessionKey{tenant, documentID}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if sess, ok := s.sessions[key]; ok {
		sess.LastAccess = now
		return sess
	}

	sess := &Session{
		Tenant:     tenant,
		DocumentID: documentID,
		Controller: create(),
		CreatedAt:  now,
		LastAccess: now,
	}
	s.sessions[key] = sess
	s.cleanupIfNeeded(key)
	s.metrics.SetActiveSessions(len(s.sessions))
	return sess
}

func (s *ReviewStore) Get(tenant, documentID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionKey{tenant, documentID}]
	if !ok {
		return nil
	}
	sess.LastAccess = s.now()
	return sess
}

func (s *ReviewStore) Delete(tenant, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey{tenant, documentID})
	s.metrics.SetActiveSessions(len(s.sessions))
}

// UpdateDocument hands a re-fetched document to every session showing it
func (s *ReviewStore) UpdateDocument(doc *model.Document) {
	s.mu.RLock()
	var targets []*review.Controller
	for key, sess := range s.sessions {
		if key.documentID == doc.ID {
			targets = append(targets, sess.Controller)
		}
	}
	s.mu.RUnlock()

	for _, c := range targets {
		c.Update(doc)
	}
}

// SweepIdle removes sessions not accessed within maxIdle. Sessions with a
// submission in flight are kept.
func (s *ReviewStore) SweepIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for key, sess := range s.sessions {
		if !sess.LastAccess.Before(cutoff) || sess.Controller.State() == review.Submitting {
			continue
		}
		slog.Info("evicting idle review session",
			"tenant", key.tenant,
			"document_id", key.documentID,
			"last_access", sess.LastAccess,
		)
		delete(s.sessions, key)
		removed++
	}
	s.metrics.SetActiveSessions(len(s.sessions))
	return removed
}

// cleanupIfNeeded removes the least recently used sessions if the store
// exceeds maxSessions. keep is never removed. Must be called with lock held.
func (s *ReviewStore) cleanupIfNeeded(keep sessionKey) {
	if s.maxSessions <= 0 || len(s.sessions) <= s.maxSessions {
		return
	}

	keys := make([]sessionKey, 0, len(s.sessions))
	for key, sess := range s.sessions {
		if key == keep || sess.Controller.State() == review.Submitting {
			continue
		}
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return s.sessions[keys[i]].LastAccess.Before(s.sessions[keys[j]].LastAccess)
	})

	removeCount := len(s.sessions) - s.maxSessions
	for i := 0; i < removeCount && i < len(keys); i++ {
		slog.Info("auto-cleaning old review session",
			"tenant", keys[i].tenant,
			"document_id", keys[i].documentID,
		)
		delete(s.sessions, keys[i])
	}
}

// Count returns the number of sessions in the store
func (s *ReviewStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
