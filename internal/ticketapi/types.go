package ticketapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Category is the business area a ticket belongs to.
type Category string

const (
	CategoryBilling   Category = "billing"
	CategoryTechnical Category = "technical"
	CategoryAccount   Category = "account"
	CategoryGeneral   Category = "general"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{CategoryBilling, CategoryTechnical, CategoryAccount, CategoryGeneral}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, v := range Categories() {
		if c == v {
			return true
		}
	}
	return false
}

// Priority is the urgency of a ticket.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities returns every priority from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	for _, v := range Priorities() {
		if p == v {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a ticket.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses returns the status cycle in order.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses() {
		if s == v {
			return true
		}
	}
	return false
}

// Next returns the following status in the cycle
// open → in_progress → resolved → closed → open.
// An unknown status advances to open.
func (s Status) Next() Status {
	cycle := Statuses()
	for i, v := range cycle {
		if v == s {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}

// Ordering is the list sort order by creation time.
type Ordering string

const (
	OrderingNewest Ordering = "newest"
	OrderingOldest Ordering = "oldest"
)

// Orderings returns the supported orderings.
func Orderings() []Ordering {
	return []Ordering{OrderingNewest, OrderingOldest}
}

// Valid reports whether o is a known ordering.
func (o Ordering) Valid() bool {
	return o == OrderingNewest || o == OrderingOldest
}

// TicketID is the server-assigned ticket identifier. The client treats it as
// opaque; the backend may encode it as a JSON number or string.
type TicketID string

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *TicketID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TicketID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("ticket id: %w", err)
	}
	*id = TicketID(n.String())
	return nil
}

// Ticket is a support ticket as returned by the backend.
type Ticket struct {
	ID          TicketID  `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketPage is one page of the ticket list.
type TicketPage struct {
	Tickets  []Ticket
	Next     string
	Previous string
	Count    int
}

// HasNext reports whether the backend advertised a following page.
func (p TicketPage) HasNext() bool { return p.Next != "" }

// HasPrevious reports whether the backend advertised a preceding page.
func (p TicketPage) HasPrevious() bool { return p.Previous != "" }

// ListParams is the canonical ticket list query. Empty filter fields mean
// "no constraint". It is comparable so callers can detect real changes.
type ListParams struct {
	Category Category
	Priority Priority
	Status   Status
	Ordering Ordering
	Search   string
	Page     int
}

// Values encodes the params as URL query values, omitting unset filters.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Category != "" {
		v.Set("category", string(p.Category))
	}
	if p.Priority != "" {
		v.Set("priority", string(p.Priority))
	}
	if p.Status != "" {
		v.Set("status", string(p.Status))
	}
	if p.Ordering != "" {
		v.Set("ordering", string(p.Ordering))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	return v
}

// CreateTicketInput is the body of a ticket creation request.
type CreateTicketInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
}

// Suggestion is the classifier's advisory output. Nil fields carry no suggestion.
type Suggestion struct {
	Category *Category
	Priority *Priority
}

// Empty reports whether the suggestion proposes nothing.
func (s Suggestion) Empty() bool { return s.Category == nil && s.Priority == nil }

// Stats is the precomputed summary served by the backend.
type Stats struct {
	TotalTickets      int            `json:"total_tickets"`
	OpenTickets       int            `json:"open_tickets"`
	AvgTicketsPerDay  float64        `json:"avg_tickets_per_day"`
	PriorityBreakdown map[string]int `json:"priority_breakdown"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
}
