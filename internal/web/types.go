package web

import (
	"medow/internal/pagination"
	"medow/internal/search"
	"medow/pkg/models"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SelectRequest struct {
	Selected bool `json:"selected"`
}

type PageInfo struct {
	Total       int                 `json:"total"`
	Offset      int                 `json:"offset"`
	CurrentPage int                 `json:"current_page"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
	AllSelected bool                `json:"all_selected"`
	Info        string              `json:"info"`
	Items       []models.SearchItem `json:"items"`
}

// StatusResponse is the full view of one session
type StatusResponse struct {
	Query  string                `json:"query"`
	Page   PageInfo              `json:"page"`
	Status search.StatusSnapshot `json:"status"`
}

type SelectionResponse struct {
	Items []models.SearchItem `json:"items"`
	Count int                 `json:"count"`
}

func NewSuccessResponse(data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   err,
	}
}

func NewPageInfo(page pagination.Pagination) PageInfo {
	items := page.Items
	if items == nil {
		items = []models.SearchItem{}
	}
	return PageInfo{
		Total:       page.Total,
		Offset:      page.Offset,
		CurrentPage: page.CurrentPage(),
		TotalPages:  page.TotalPages(),
		HasNext:     page.HasNextPage(),
		HasPrevious: page.HasPreviousPage(),
		AllSelected: page.AllSelected(),
		Info:        page.Info(),
		Items:       items,
	}
}

func NewStatusResponse(session *search.Session) StatusResponse {
	return StatusResponse{
		Query:  session.Query(),
		Page:   NewPageInfo(session.Page()),
		Status: session.Status().Snapshot(),
	}
}
