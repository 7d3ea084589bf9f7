// Package listutil parses the search and paging parameters shared by every
// view and search page, and computes pagination metadata for rendering.
package listutil

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultPerPage is the default number of rows per page.
const DefaultPerPage = 25

// MaxSearchLength caps the free-text search term.
const MaxSearchLength = 100

// PerPageOptions are the allowed rows-per-page values.
var PerPageOptions = []int{10, 25, 50, 100}

// Params is one listing request: a search term, a sort key and a page.
type Params struct {
	Search  string
	Sort    string // empty means the listing's default order
	Desc    bool
	Page    int // 1-indexed
	PerPage int
}

// Parse reads search, sort, dir, page and per_page from q. Sort keys outside
// sortKeys are dropped.
// PRE: none
// POST: Page >= 1 and PerPage is one of PerPageOptions
func Parse(q url.Values, sortKeys ...string) Params {
	p := Params{
		Search:  strings.TrimSpace(q.Get("search")),
		Desc:    q.Get("dir") == "desc",
		PerPage: DefaultPerPage,
	}
	if len(p.Search) > MaxSearchLength {
		p.Search = p.Search[:MaxSearchLength]
	}
	if sort := q.Get("sort"); contains(sortKeys, sort) {
		p.Sort = sort
	} else {
		p.Desc = false
	}
	p.Page, _ = strconv.Atoi(q.Get("page"))
	if p.Page < 1 {
		p.Page = 1
	}
	if n, _ := strconv.Atoi(q.Get("per_page")); containsInt(PerPageOptions, n) {
		p.PerPage = n
	}
	return p
}

// Offset returns the SQL OFFSET for the requested page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Query encodes p for a link to the given page, keeping search and sort.
func (p Params) Query(page int) string {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
		if p.Desc {
			q.Set("dir", "desc")
		}
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if p.PerPage != DefaultPerPage {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	return q.Encode()
}

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Params
	Total      int
	TotalPages int
}

// NewPageInfo computes pagination metadata, clamping the page into range.
// PRE: total >= 0
func NewPageInfo(p Params, total int) PageInfo {
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	pages := (total + p.PerPage - 1) / p.PerPage
	if pages < 1 {
		pages = 1
	}
	if p.Page > pages {
		p.Page = pages
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return PageInfo{Params: p, Total: total, TotalPages: pages}
}

// StartRow returns the 1-indexed first row shown, or 0 when empty.
func (pi PageInfo) StartRow() int {
	if pi.Total == 0 {
		return 0
	}
	return pi.Offset() + 1
}

// EndRow returns the 1-indexed last row shown.
func (pi PageInfo) EndRow() int {
	return min(pi.Offset()+pi.PerPage, pi.Total)
}

// PageNumbers returns at most five page numbers centred on the current page.
func (pi PageInfo) PageNumbers() []int {
	const buttons = 5
	start := max(pi.Page-buttons/2, 1)
	end := start + buttons - 1
	if end > pi.TotalPages {
		end = pi.TotalPages
		start = max(end-buttons+1, 1)
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// HasPrev reports whether a previous page exists.
func (pi PageInfo) HasPrev() bool { return pi.Page > 1 }

// HasNext reports whether a next page exists.
func (pi PageInfo) HasNext() bool { return pi.Page < pi.TotalPages }

// ShowPagination reports whether there is more than one page.
func (pi PageInfo) ShowPagination() bool {
	return pi.TotalPages > 1
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}
