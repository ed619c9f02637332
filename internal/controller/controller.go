// Package controller holds the view state machines behind the ticket TUI:
// the query reducer, the classification assistant, the new-ticket form, the
// ticket list and the stats panel. Controllers never touch widgets; they
// expose snapshots and call an onChange hook that the UI renders from.
//
// Threading: exported methods are meant to be called from the UI goroutine.
// Network calls run in their own goroutines and post their results back
// through a Dispatcher, where each result is checked against its liveness
// token before any state is written.
package controller

import (
	"context"
	"time"

	"github.com/roeyazroel/ticket-tui/internal/clock"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

// Dispatcher runs f on the goroutine that owns view state. In the TUI this is
// tview's QueueUpdateDraw.
type Dispatcher func(f func())

// Immediate runs f in the calling goroutine.
func Immediate(f func()) { f() }

// ListService is the slice of the backend the ticket list needs.
type ListService interface {
	ListTickets(ctx context.Context, params ticketapi.ListParams) (ticketapi.TicketPage, error)
	UpdateTicketStatus(ctx context.Context, id ticketapi.TicketID, status ticketapi.Status) (ticketapi.Ticket, error)
}

// CreateService creates tickets.
type CreateService interface {
	CreateTicket(ctx context.Context, input ticketapi.CreateTicketInput) (ticketapi.Ticket, error)
}

// ClassifyService proposes a category and priority for a description.
type ClassifyService interface {
	Classify(ctx context.Context, description string) (ticketapi.Suggestion, error)
}

// StatsService fetches the aggregate summary.
type StatsService interface {
	Stats(ctx context.Context) (ticketapi.Stats, error)
}

// Options carries the timing and threading knobs shared by every controller.
type Options struct {
	Clock    clock.Clock
	Dispatch Dispatcher
	// Delay is the debounce interval (search or classification).
	Delay time.Duration
	// MessageTTL is how long transient messages stay visible.
	MessageTTL time.Duration
	// OnChange is called after state changes, on the dispatcher goroutine.
	OnChange func()
}

const (
	defaultSearchDelay   = 500 * time.Millisecond
	defaultClassifyDelay = 600 * time.Millisecond
	defaultMessageTTL    = 2500 * time.Millisecond
)

func (o Options) withDefaults(delay time.Duration) Options {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Dispatch == nil {
		o.Dispatch = Immediate
	}
	if o.Delay <= 0 {
		o.Delay = delay
	}
	if o.MessageTTL <= 0 {
		o.MessageTTL = defaultMessageTTL
	}
	if o.OnChange == nil {
		o.OnChange = func() {}
	}
	return o
}
