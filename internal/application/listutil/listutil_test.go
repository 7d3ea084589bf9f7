package listutil

import (
	"net/url"
	"reflect"
	"strings"
	"testing"
)

// TestParse_Defaults verifies defaults when no query values are given.
func TestParse_Defaults(t *testing.T) {
	p := Parse(url.Values{})
	if p.Page != 1 || p.PerPage != DefaultPerPage || p.Search != "" || p.Sort != "" || p.Desc {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

// TestParse_Values verifies parsing of every recognised parameter.
func TestParse_Values(t *testing.T) {
	q := url.Values{"search": {"  ana "}, "sort": {"email"}, "dir": {"desc"}, "page": {"3"}, "per_page": {"50"}}
	p := Parse(q, "name", "email")
	want := Params{Search: "ana", Sort: "email", Desc: true, Page: 3, PerPage: 50}
	if p != want {
		t.Errorf("got %+v, want %+v", p, want)
	}
	if p.Offset() != 100 {
		t.Errorf("Offset = %d, want 100", p.Offset())
	}
}

// TestParse_RejectsUnknownValues verifies fallbacks for values outside the allowed sets.
func TestParse_RejectsUnknownValues(t *testing.T) {
	q := url.Values{"sort": {"password"}, "dir": {"desc"}, "page": {"-2"}, "per_page": {"7"}}
	p := Parse(q, "name")
	if p.Sort != "" || p.Desc {
		t.Errorf("unknown sort should be dropped with its direction: %+v", p)
	}
	if p.Page != 1 || p.PerPage != DefaultPerPage {
		t.Errorf("page/per_page not defaulted: %+v", p)
	}
}

// TestParse_TruncatesSearch verifies long search terms are capped.
func TestParse_TruncatesSearch(t *testing.T) {
	p := Parse(url.Values{"search": {strings.Repeat("x", MaxSearchLength+20)}})
	if len(p.Search) != MaxSearchLength {
		t.Errorf("len(Search) = %d", len(p.Search))
	}
}

// TestParams_Query verifies links keep search and sort but drop defaults.
func TestParams_Query(t *testing.T) {
	p := Params{Search: "a b", Sort: "name", Desc: true, Page: 2, PerPage: DefaultPerPage}
	if got, want := p.Query(3), "dir=desc&page=3&search=a+b&sort=name"; got != want {
		t.Errorf("Query(3) = %q, want %q", got, want)
	}
	if got := (Params{PerPage: DefaultPerPage}).Query(1); got != "" {
		t.Errorf("Query(1) on defaults = %q, want empty", got)
	}
}

// TestNewPageInfo verifies page clamping and row bounds.
func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name                 string
		page, perPage, total int
		wantPage, wantPages  int
		wantStart, wantEnd   int
	}{
		{"empty", 1, 10, 0, 1, 1, 0, 0},
		{"first page", 1, 10, 35, 1, 4, 1, 10},
		{"last partial page", 4, 10, 35, 4, 4, 31, 35},
		{"page past end is clamped", 9, 10, 35, 4, 4, 31, 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(Params{Page: tt.page, PerPage: tt.perPage}, tt.total)
			if pi.Page != tt.wantPage || pi.TotalPages != tt.wantPages {
				t.Errorf("page=%d pages=%d, want %d/%d", pi.Page, pi.TotalPages, tt.wantPage, tt.wantPages)
			}
			if pi.StartRow() != tt.wantStart || pi.EndRow() != tt.wantEnd {
				t.Errorf("rows %d-%d, want %d-%d", pi.StartRow(), pi.EndRow(), tt.wantStart, tt.wantEnd)
			}
		})
	}
}

// TestPageInfo_PageNumbers verifies the sliding window of page buttons.
func TestPageInfo_PageNumbers(t *testing.T) {
	tests := []struct {
		page, pages int
		want        []int
	}{
		{1, 1, []int{1}},
		{1, 10, []int{1, 2, 3, 4, 5}},
		{6, 10, []int{4, 5, 6, 7, 8}},
		{10, 10, []int{6, 7, 8, 9, 10}},
		{2, 3, []int{1, 2, 3}},
	}
	for _, tt := range tests {
		pi := NewPageInfo(Params{Page: tt.page, PerPage: 10}, tt.pages*10)
		if got := pi.PageNumbers(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("page %d of %d: got %v, want %v", tt.page, tt.pages, got, tt.want)
		}
	}
}

// TestPageInfo_Navigation verifies prev/next and visibility flags.
func TestPageInfo_Navigation(t *testing.T) {
	pi := NewPageInfo(Params{Page: 1, PerPage: 10}, 5)
	if pi.ShowPagination() || pi.HasPrev() || pi.HasNext() {
		t.Errorf("single page should have no navigation: %+v", pi)
	}
	pi = NewPageInfo(Params{Page: 2, PerPage: 10}, 25)
	if !pi.ShowPagination() || !pi.HasPrev() || !pi.HasNext() {
		t.Errorf("middle page should navigate both ways: %+v", pi)
	}
}
