package web

import "bookshelf/pkg/domain"

// PageButton is one control in the pager: a numbered page or an ellipsis.
type PageButton struct {
	Page     int
	Current  bool
	Ellipsis bool
}

// Pager is the view model for the list pagination controls: numbered
// buttons windowed around the current page, plus prev/next with disabled
// states at the boundaries.
type Pager struct {
	Buttons      []PageButton
	PrevPage     int
	NextPage     int
	PrevDisabled bool
	NextDisabled bool
	Limit        int
}

// NewPager builds the pager for a pagination envelope. The window always
// shows the first and last pages and the pages adjacent to the current one,
// eliding the rest.
func NewPager(p domain.Pagination) Pager {
	page := p.Page
	if page < 1 {
		page = 1
	}
	total := p.TotalPages

	pager := Pager{
		PrevPage:     page - 1,
		NextPage:     page + 1,
		PrevDisabled: page <= 1,
		NextDisabled: page >= total,
		Limit:        p.Limit,
	}
	if total < 1 {
		pager.NextDisabled = true
		return pager
	}

	pager.Buttons = append(pager.Buttons, PageButton{Page: 1, Current: page == 1})
	if page > 3 {
		pager.Buttons = append(pager.Buttons, PageButton{Ellipsis: true})
	}
	for i := max(2, page-1); i <= min(total-1, page+1); i++ {
		pager.Buttons = append(pager.Buttons, PageButton{Page: i, Current: page == i})
	}
	if page < total-2 {
		pager.Buttons = append(pager.Buttons, PageButton{Ellipsis: true})
	}
	if total > 1 {
		pager.Buttons = append(pager.Buttons, PageButton{Page: total, Current: page == total})
	}
	return pager
}
