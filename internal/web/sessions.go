package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"medow/internal/metrics"
	"medow/internal/search"
	"medow/internal/worker"
)

const sessionCookie = "medow_session"

type sessionEntry struct {
	session  *search.Session
	runner   *worker.Runner
	lastSeen time.Time
}

// sessionStore keeps one search session per client, keyed by cookie
type sessionStore struct {
	orchestrator *search.Orchestrator
	maxAge       time.Duration
	now          func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func newSessionStore(orchestrator *search.Orchestrator, maxAge time.Duration) *sessionStore {
	return &sessionStore{
		orchestrator: orchestrator,
		maxAge:       maxAge,
		now:          time.Now,
		entries:      make(map[string]*sessionEntry),
	}
}

// get returns the session named by the request cookie, or nil
func (st *sessionStore) get(r *http.Request) *sessionEntry {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.pruneLocked()

	entry, ok := st.entries[cookie.Value]
	if !ok {
		return nil
	}
	entry.lastSeen = st.now()
	return entry
}

// getOrCreate returns the client's session, starting a new one and setting
// the cookie when none exists.
func (st *sessionStore) getOrCreate(w http.ResponseWriter, r *http.Request) *sessionEntry {
	if entry := st.get(r); entry != nil {
		return entry
	}

	id := uuid.NewString()
	entry := &sessionEntry{
		session:  search.NewSession(id, st.orchestrator),
		runner:   worker.New(context.Background()),
		lastSeen: st.now(),
	}

	st.mu.Lock()
	st.entries[id] = entry
	metrics.SetActiveSessions(len(st.entries))
	st.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(st.maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return entry
}

func (st *sessionStore) pruneLocked() {
	cutoff := st.now().Add(-st.maxAge)
	for id, entry := range st.entries {
		if entry.lastSeen.Before(cutoff) {
			// Close waits for the task, so do not block the store on it
			go entry.runner.Close()
			delete(st.entries, id)
		}
	}
	metrics.SetActiveSessions(len(st.entries))
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

func (st *sessionStore) closeAll() {
	st.mu.Lock()
	entries := st.entries
	st.entries = make(map[string]*sessionEntry)
	metrics.SetActiveSessions(0)
	st.mu.Unlock()

	for _, entry := range entries {
		entry.runner.Close()
	}
}
