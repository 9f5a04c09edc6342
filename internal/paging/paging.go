// Package paging tracks pagination state for the active listing query
// and keeps it consistent when totals or page sizes change.
package paging

// State holds the pagination view of the currently active query.
// TotalPages is always ceil(Total/PageSize) and Page is always clamped
// into [1, TotalPages].
type State struct {
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// New returns a State on page 1 with the given page size. A
// non-positive size falls back to 1 rather than dividing by zero.
func New(pageSize int) State {
	if pageSize < 1 {
		pageSize = 1
	}
	return State{Page: 1, PageSize: pageSize, TotalPages: 1}
}

// SetTotal records the total item count reported by the server for the
// active query, recomputes the page count, and clamps the current page
// into range. An empty result set keeps a single (empty) page so the
// UI never shows "page 1 of 0".
func (s *State) SetTotal(total int) {
	if total < 0 {
		total = 0
	}
	s.Total = total
	s.TotalPages = (total + s.PageSize - 1) / s.PageSize
	if s.TotalPages < 1 {
		s.TotalPages = 1
	}
	if s.Page > s.TotalPages {
		s.Page = s.TotalPages
	}
	if s.Page < 1 {
		s.Page = 1
	}
}

// SetPage moves to the requested page. Requests outside
// [1, TotalPages] are rejected as a no-op and reported false.
func (s *State) SetPage(page int) bool {
	if page < 1 || page > s.TotalPages {
		return false
	}
	s.Page = page
	return true
}

// SetPageSize changes the page size. The result partitioning changes
// with it, so the state resets to page 1 and the page count is
// recomputed from the last known total.
func (s *State) SetPageSize(size int) {
	if size < 1 {
		return
	}
	s.PageSize = size
	s.Page = 1
	s.SetTotal(s.Total)
}

// HasNext reports whether a later page exists.
func (s *State) HasNext() bool {
	return s.Page < s.TotalPages
}

// HasPrev reports whether an earlier page exists.
func (s *State) HasPrev() bool {
	return s.Page > 1
}
