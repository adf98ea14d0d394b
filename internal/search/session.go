package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"medow/internal/pagination"
	"medow/pkg/models"
)

var (
	ErrNoQuery        = errors.New("no search has been run yet")
	ErrNoNextPage     = errors.New("already on the last page")
	ErrNoPreviousPage = errors.New("already on the first page")
	ErrPageOutOfRange = errors.New("page out of range")
)

// Session is one active search view: the displayed window, the query that
// produced it and the status signal. Selection toggles and window
// replacement share one lock.
type Session struct {
	ID string

	orchestrator *Orchestrator
	status       *Status

	mu     sync.RWMutex
	page   *pagination.Pagination
	query  string
	hasRun bool
}

func NewSession(id string, orchestrator *Orchestrator) *Session {
	return &Session{
		ID:           id,
		orchestrator: orchestrator,
		status:       NewStatus(),
		page:         pagination.New(),
	}
}

func (s *Session) Status() *Status {
	return s.status
}

// Query returns the text of the last successful search
func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Page returns a copy of the current window
func (s *Session) Page() pagination.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.SearchItem, len(s.page.Items))
	copy(items, s.page.Items)
	return pagination.Pagination{
		Total:  s.page.Total,
		Offset: s.page.Offset,
		Items:  items,
	}
}

// Search runs a new query from the first result
func (s *Session) Search(ctx context.Context, query string) error {
	return s.fetch(ctx, query, 0)
}

// SearchPage runs a new query starting at the 1-indexed page n. The total is
// not known yet, so n is only checked for being positive.
func (s *Session) SearchPage(ctx context.Context, query string, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrPageOutOfRange, n)
	}
	return s.fetch(ctx, query, (n-1)*pagination.PageSize)
}

func (s *Session) Next(ctx context.Context) error {
	query, page, err := s.current()
	if err != nil {
		return err
	}
	offset, ok := page.NextOffset()
	if !ok {
		return ErrNoNextPage
	}
	return s.fetch(ctx, query, offset)
}

func (s *Session) Previous(ctx context.Context) error {
	query, page, err := s.current()
	if err != nil {
		return err
	}
	offset, ok := page.PreviousOffset()
	if !ok {
		return ErrNoPreviousPage
	}
	return s.fetch(ctx, query, offset)
}

// GoToPage fetches the 1-indexed page n of the last query
func (s *Session) GoToPage(ctx context.Context, n int) error {
	query, page, err := s.current()
	if err != nil {
		return err
	}
	if n < 1 || n > page.TotalPages() {
		return fmt.Errorf("%w: %d (have %d pages)", ErrPageOutOfRange, n, page.TotalPages())
	}
	return s.fetch(ctx, query, (n-1)*pagination.PageSize)
}

// Reload fetches the current window again
func (s *Session) Reload(ctx context.Context) error {
	query, page, err := s.current()
	if err != nil {
		return err
	}
	return s.fetch(ctx, query, page.Offset)
}

func (s *Session) SetSelected(index int, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.SetSelected(index, selected)
}

func (s *Session) SelectAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page.SelectAll(selected)
}

func (s *Session) Selected() []models.SearchItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page.SelectedItems()
}

func (s *Session) current() (string, *pagination.Pagination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasRun {
		return "", nil, ErrNoQuery
	}
	page := pagination.Pagination{Total: s.page.Total, Offset: s.page.Offset}
	return s.query, &page, nil
}

func (s *Session) fetch(ctx context.Context, query string, offset int) error {
	return s.orchestrator.FetchWindow(ctx, &sessionWindow{session: s, query: query}, s.status, query, offset)
}

// sessionWindow records the query together with the window it produced
type sessionWindow struct {
	session *Session
	query   string
}

func (w *sessionWindow) Replace(total, offset int, items []models.SearchItem) {
	s := w.session
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page.Replace(total, offset, items)
	s.query = w.query
	s.hasRun = true
}
