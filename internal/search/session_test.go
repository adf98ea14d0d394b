package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRequiresSearchBeforePaging(t *testing.T) {
	s := NewSession("s1", newTestOrchestrator(&fakeService{total: 30}))
	ctx := context.Background()

	assert.ErrorIs(t, s.Next(ctx), ErrNoQuery)
	assert.ErrorIs(t, s.Previous(ctx), ErrNoQuery)
	assert.ErrorIs(t, s.Reload(ctx), ErrNoQuery)
	assert.ErrorIs(t, s.GoToPage(ctx, 1), ErrNoQuery)
}

func TestSessionPaging(t *testing.T) {
	svc := &fakeService{total: 40}
	s := NewSession("s1", newTestOrchestrator(svc))
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, "tatort"))
	page := s.Page()
	assert.Equal(t, "Page 1/3 (Items 1-15 of 40)", page.Info())
	assert.Equal(t, "tatort", s.Query())

	require.NoError(t, s.Next(ctx))
	assert.Equal(t, 15, s.Page().Offset)
	assert.Equal(t, "tatort", svc.lastRequest().Text)

	require.NoError(t, s.Next(ctx))
	page = s.Page()
	assert.Equal(t, "Page 3/3 (Items 31-40 of 40)", page.Info())
	assert.ErrorIs(t, s.Next(ctx), ErrNoNextPage)

	require.NoError(t, s.Previous(ctx))
	assert.Equal(t, 15, s.Page().Offset)

	require.NoError(t, s.GoToPage(ctx, 1))
	assert.Equal(t, 0, s.Page().Offset)
	assert.ErrorIs(t, s.Previous(ctx), ErrNoPreviousPage)
	assert.ErrorIs(t, s.GoToPage(ctx, 4), ErrPageOutOfRange)
	assert.ErrorIs(t, s.GoToPage(ctx, 0), ErrPageOutOfRange)

	calls := svc.calls()
	require.NoError(t, s.Reload(ctx))
	assert.Equal(t, calls+1, svc.calls())
	assert.Equal(t, 0, svc.lastRequest().Offset)
}

func TestSessionNewSearchResetsOffset(t *testing.T) {
	svc := &fakeService{total: 40}
	s := NewSession("s1", newTestOrchestrator(svc))
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, "a"))
	require.NoError(t, s.Next(ctx))
	require.NoError(t, s.Search(ctx, "b"))

	assert.Equal(t, 0, s.Page().Offset)
	assert.Equal(t, "b", s.Query())
}

func TestSessionFailedSearchKeepsPreviousQuery(t *testing.T) {
	svc := &fakeService{total: 40}
	s := NewSession("s1", newTestOrchestrator(svc))
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, "a"))

	svc.mu.Lock()
	svc.err = assert.AnError
	svc.mu.Unlock()

	require.Error(t, s.Search(ctx, "b"))
	assert.Equal(t, "a", s.Query())
	assert.NotEmpty(t, s.Status().LastError())
	assert.Len(t, s.Page().Items, 15)
}

func TestSessionSelectionDoesNotRefetch(t *testing.T) {
	svc := &fakeService{total: 3}
	s := NewSession("s1", newTestOrchestrator(svc))
	require.NoError(t, s.Search(context.Background(), "x"))
	calls := svc.calls()

	require.NoError(t, s.SetSelected(0, true))
	require.NoError(t, s.SetSelected(2, true))
	assert.Len(t, s.Selected(), 2)

	s.SelectAll(true)
	all := s.Page()
	assert.True(t, all.AllSelected())

	assert.Error(t, s.SetSelected(3, true))
	assert.Equal(t, calls, svc.calls())
}

func TestSessionPageIsACopy(t *testing.T) {
	s := NewSession("s1", newTestOrchestrator(&fakeService{total: 3}))
	require.NoError(t, s.Search(context.Background(), "x"))

	page := s.Page()
	page.Items[0].Title = "changed"
	page.SelectAll(true)

	assert.Equal(t, "film 0", s.Page().Items[0].Title)
	assert.Empty(t, s.Selected())
}

func TestSessionSearchPage(t *testing.T) {
	svc := &fakeService{total: 40}
	s := NewSession("s1", newTestOrchestrator(svc))
	ctx := context.Background()

	require.NoError(t, s.SearchPage(ctx, "tatort", 2))
	assert.Equal(t, 15, svc.lastRequest().Offset)
	page := s.Page()
	assert.Equal(t, "Page 2/3 (Items 16-30 of 40)", page.Info())

	assert.ErrorIs(t, s.SearchPage(ctx, "tatort", 0), ErrPageOutOfRange)
}
