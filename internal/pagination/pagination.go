package pagination

import (
	"errors"
	"fmt"

	"medow/pkg/models"
)

// PageSize is the number of results fetched and displayed per window.
const PageSize = 15

var ErrIndexOutOfRange = errors.New("item index out of range")

// Pagination tracks a window of a larger, unmaterialized result set.
// Total and Offset are independent: setting one does not correct the other.
type Pagination struct {
	Total  int
	Offset int
	Items  []models.SearchItem
}

// New creates a Pagination with no results
func New() *Pagination {
	return &Pagination{
		Total:  0,
		Offset: 0,
		Items:  []models.SearchItem{},
	}
}

// PageSize returns the fixed window size
func (p *Pagination) PageSize() int {
	return PageSize
}

// TotalPages returns the number of pages; an empty result set has zero pages
func (p *Pagination) TotalPages() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize() - 1) / p.PageSize()
}

func (p *Pagination) HasNextPage() bool {
	return p.Offset+p.PageSize() < p.Total
}

func (p *Pagination) HasPreviousPage() bool {
	return p.Offset > 0
}

// CurrentPage returns the 1-indexed page containing Offset
func (p *Pagination) CurrentPage() int {
	if p.Offset == 0 {
		return 1
	}
	return (p.Offset / p.PageSize()) + 1
}

// NextOffset returns the offset of the following window, if there is one
func (p *Pagination) NextOffset() (int, bool) {
	next := p.Offset + p.PageSize()
	if next < p.Total {
		return next, true
	}
	return 0, false
}

// PreviousOffset steps back exactly one page width, saturating at zero.
// An offset that is not page aligned stays unaligned.
func (p *Pagination) PreviousOffset() (int, bool) {
	if p.Offset <= 0 {
		return 0, false
	}
	prev := p.Offset - p.PageSize()
	if prev < 0 {
		prev = 0
	}
	return prev, true
}

// ItemsOnPage returns how many results fall into the current window.
// An offset past the end yields 0.
func (p *Pagination) ItemsOnPage() int {
	remaining := p.Total - p.Offset
	if remaining <= 0 {
		return 0
	}
	if remaining >= p.PageSize() {
		return p.PageSize()
	}
	return remaining
}

// IsValid reports whether Offset is within bounds
func (p *Pagination) IsValid() bool {
	return p.Offset <= p.Total
}

// ItemRange returns the half-open range of absolute indices in the window
func (p *Pagination) ItemRange() (int, int) {
	start := p.Offset
	end := min(p.Offset+p.PageSize(), p.Total)
	return start, end
}

// Info formats the status line shown below the result table
func (p *Pagination) Info() string {
	return fmt.Sprintf("Page %d/%d (Items %d-%d of %d)",
		p.CurrentPage(),
		p.TotalPages(),
		p.Offset+1,
		p.Offset+p.ItemsOnPage(),
		p.Total,
	)
}

// Replace swaps in a freshly fetched window. Items are copied; at most
// PageSize of them are kept.
func (p *Pagination) Replace(total, offset int, items []models.SearchItem) {
	if len(items) > PageSize {
		items = items[:PageSize]
	}
	window := make([]models.SearchItem, len(items))
	copy(window, items)

	p.Total = total
	p.Offset = offset
	p.Items = window
}

// SetSelected toggles the selection flag of one item in the window
func (p *Pagination) SetSelected(index int, selected bool) error {
	if index < 0 || index >= len(p.Items) {
		return fmt.Errorf("%w: %d (window has %d items)", ErrIndexOutOfRange, index, len(p.Items))
	}
	p.Items[index].Selected = selected
	return nil
}

// SelectAll sets the selection flag of every item in the window
func (p *Pagination) SelectAll(selected bool) {
	for i := range p.Items {
		p.Items[i].Selected = selected
	}
}

// AllSelected is true when the window is non-empty and every item is selected
func (p *Pagination) AllSelected() bool {
	if len(p.Items) == 0 {
		return false
	}
	for _, item := range p.Items {
		if !item.Selected {
			return false
		}
	}
	return true
}

func (p *Pagination) AnySelected() bool {
	for _, item := range p.Items {
		if item.Selected {
			return true
		}
	}
	return false
}

// SelectedItems returns copies of the selected items in window order
func (p *Pagination) SelectedItems() []models.SearchItem {
	var selected []models.SearchItem
	for _, item := range p.Items {
		if item.Selected {
			selected = append(selected, item)
		}
	}
	return selected
}
