package controller

import (
	"strings"

	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

// FilterState is the list's filter, search and page selection. Empty enum
// fields mean "any". Search holds the debounced search text.
type FilterState struct {
	Category ticketapi.Category
	Priority ticketapi.Priority
	Status   ticketapi.Status
	Ordering ticketapi.Ordering
	Search   string
	Page     int
}

// DefaultFilterState is the unfiltered first page, newest first.
func DefaultFilterState() FilterState {
	return FilterState{Ordering: ticketapi.OrderingNewest, Page: 1}
}

type changeKind int

const (
	changeCategory changeKind = iota
	changePriority
	changeStatus
	changeOrdering
	changeSearch
	changePage
	changePageDelta
	changeClear
)

// Change is one user edit to a FilterState. Build it with the Set* helpers.
type Change struct {
	kind  changeKind
	value string
	page  int
}

// SetCategory filters by category; "" clears the filter.
func SetCategory(c ticketapi.Category) Change {
	return Change{kind: changeCategory, value: string(c)}
}

// SetPriority filters by priority; "" clears the filter.
func SetPriority(p ticketapi.Priority) Change {
	return Change{kind: changePriority, value: string(p)}
}

// SetStatus filters by status; "" clears the filter.
func SetStatus(s ticketapi.Status) Change {
	return Change{kind: changeStatus, value: string(s)}
}

// SetOrdering changes the sort order.
func SetOrdering(o ticketapi.Ordering) Change {
	return Change{kind: changeOrdering, value: string(o)}
}

// SetSearch replaces the (debounced) search text.
func SetSearch(text string) Change {
	return Change{kind: changeSearch, value: text}
}

// SetPage jumps to page n (clamped to 1).
func SetPage(n int) Change {
	return Change{kind: changePage, page: n}
}

// NextPage moves one page forward.
func NextPage() Change { return Change{kind: changePageDelta, page: 1} }

// PrevPage moves one page back, never below 1.
func PrevPage() Change { return Change{kind: changePageDelta, page: -1} }

// ClearFilters drops every filter and the search text, keeping the ordering.
func ClearFilters() Change { return Change{kind: changeClear} }

// Reduce applies c to s. Any change to a filter, the ordering or the search
// text lands on page 1 in the same step; page changes leave filters alone.
// A change that sets a field to its current value returns s unchanged.
func Reduce(s FilterState, c Change) FilterState {
	next := s
	switch c.kind {
	case changeCategory:
		next.Category = ticketapi.Category(c.value)
	case changePriority:
		next.Priority = ticketapi.Priority(c.value)
	case changeStatus:
		next.Status = ticketapi.Status(c.value)
	case changeOrdering:
		next.Ordering = ticketapi.Ordering(c.value)
	case changeSearch:
		next.Search = c.value
	case changeClear:
		next.Category, next.Priority, next.Status, next.Search = "", "", "", ""
	case changePage:
		next.Page = max(c.page, 1)
		return next
	case changePageDelta:
		next.Page = max(s.Page+c.page, 1)
		return next
	}

	if next == s {
		return s
	}
	next.Page = 1
	return next
}

// BuildQuery turns a FilterState into backend list parameters. Unset filters
// stay empty so the backend applies no constraint.
func BuildQuery(s FilterState) ticketapi.ListParams {
	ordering := s.Ordering
	if !ordering.Valid() {
		ordering = ticketapi.OrderingNewest
	}
	return ticketapi.ListParams{
		Category: s.Category,
		Priority: s.Priority,
		Status:   s.Status,
		Ordering: ordering,
		Search:   strings.TrimSpace(s.Search),
		Page:     max(s.Page, 1),
	}
}
