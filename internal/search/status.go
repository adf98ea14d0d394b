package search

import (
	"sync"
)

// View identifies which screen the interaction layer shows
type View int

const (
	ViewSearch View = iota
	ViewSettings
	ViewDownload
)

func (v View) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewSettings:
		return "settings"
	case ViewDownload:
		return "download"
	}
	return "unknown"
}

// StatusSnapshot is a point-in-time copy of a Status
type StatusSnapshot struct {
	View      string `json:"view"`
	LastError string `json:"last_error,omitempty"`
	IsLoading bool   `json:"is_loading"`
}

// Status carries the loading and error signal of one session. The
// orchestrator writes it, renderers read Snapshot and wait on Changes.
type Status struct {
	mu        sync.RWMutex
	view      View
	lastError string
	loading   int
	changes   chan struct{}
}

func NewStatus() *Status {
	return &Status{
		view:    ViewSearch,
		changes: make(chan struct{}, 1),
	}
}

func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatusSnapshot{
		View:      s.view.String(),
		LastError: s.lastError,
		IsLoading: s.loading > 0,
	}
}

func (s *Status) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Status) SetView(v View) {
	s.update(func() { s.view = v })
}

func (s *Status) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Status) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Changes delivers a notification after every update. Notifications are
// coalesced: a slow reader sees one pending signal, never a backlog.
func (s *Status) Changes() <-chan struct{} {
	return s.changes
}

func (s *Status) setError(msg string) {
	s.update(func() { s.lastError = msg })
}

func (s *Status) clearError() {
	s.update(func() { s.lastError = "" })
}

func (s *Status) beginLoading() {
	s.update(func() { s.loading++ })
}

func (s *Status) endLoading() {
	s.update(func() {
		if s.loading > 0 {
			s.loading--
		}
	})
}

func (s *Status) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()

	select {
	case s.changes <- struct{}{}:
	default:
	}
}
