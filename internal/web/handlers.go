package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"medow/internal/mediathek"
	"medow/internal/pagination"
	"medow/internal/search"
	"medow/internal/utils"
	"medow/internal/worker"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.getOrCreate(w, r)
	s.writeJSON(w, http.StatusOK, NewSuccessResponse(NewStatusResponse(entry.session)))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON request")
		return
	}

	query := utils.NormalizeQuery(req.Query)
	entry := s.sessions.getOrCreate(w, r)
	s.runFetch(w, r, entry, func(ctx context.Context) error {
		return entry.session.Search(ctx, query)
	})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.getOrCreate(w, r)
	s.runFetch(w, r, entry, entry.session.Next)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.getOrCreate(w, r)
	s.runFetch(w, r, entry, entry.session.Previous)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.getOrCreate(w, r)
	s.runFetch(w, r, entry, entry.session.Reload)
}

func (s *Server) handleGoToPage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Page must be a number")
		return
	}

	entry := s.sessions.getOrCreate(w, r)
	s.runFetch(w, r, entry, func(ctx context.Context) error {
		return entry.session.GoToPage(ctx, n)
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Index must be a number")
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON request")
		return
	}

	entry := s.sessions.getOrCreate(w, r)
	if err := entry.session.SetSelected(index, req.Selected); err != nil {
		if errors.Is(err, pagination.ErrIndexOutOfRange) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse(NewStatusResponse(entry.session)))
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON request")
		return
	}

	entry := s.sessions.getOrCreate(w, r)
	entry.session.SelectAll(req.Selected)
	s.writeJSON(w, http.StatusOK, NewSuccessResponse(NewStatusResponse(entry.session)))
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.getOrCreate(w, r)
	items := entry.session.Selected()
	s.writeJSON(w, http.StatusOK, NewSuccessResponse(SelectionResponse{
		Items: items,
		Count: len(items),
	}))
}

// runFetch runs task on the session's runner and answers with the new
// session state. A newer request from the same client supersedes this one.
func (s *Server) runFetch(w http.ResponseWriter, r *http.Request, entry *sessionEntry, task worker.Task) {
	var outcome worker.Outcome
	select {
	case outcome = <-entry.runner.Submit(task):
	case <-r.Context().Done():
		// the fetch keeps running and still updates the session
		return
	}

	if outcome.Superseded {
		s.writeError(w, http.StatusConflict, "Superseded by a newer request")
		return
	}
	if outcome.Err != nil {
		status, message := errorStatus(outcome.Err)
		s.log.Debug().Err(outcome.Err).Int("status", status).Msg("fetch failed")
		s.writeError(w, status, message)
		return
	}

	s.writeJSON(w, http.StatusOK, NewSuccessResponse(NewStatusResponse(entry.session)))
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, search.ErrNoQuery),
		errors.Is(err, search.ErrNoNextPage),
		errors.Is(err, search.ErrNoPreviousPage):
		return http.StatusConflict, err.Error()
	case errors.Is(err, search.ErrPageOutOfRange):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, mediathek.ErrInvalidUserAgent):
		return http.StatusInternalServerError, err.Error()
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Server is shutting down"
	}
	return http.StatusBadGateway, fmt.Sprintf("Search failed: %v", err)
}
