package controller

import (
	"context"
	"sync"

	"github.com/roeyazroel/ticket-tui/internal/async"
	"github.com/roeyazroel/ticket-tui/internal/clock"
	"github.com/roeyazroel/ticket-tui/internal/logger"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

const (
	// ListErrorMessage is shown when the ticket list cannot be loaded.
	ListErrorMessage = "Unable to load tickets."
	// StatusUpdateErrorMessage is the transient notice for a failed status cycle.
	StatusUpdateErrorMessage = "Unable to update ticket status."
)

// PaginationMeta describes the neighbours of the current page.
type PaginationMeta struct {
	HasNext     bool
	HasPrevious bool
	Count       int
}

// ListState is a snapshot of the ticket list.
type ListState struct {
	Filters FilterState
	// SearchInput is the raw, not yet debounced, search text.
	SearchInput string
	Tickets     []ticketapi.Ticket
	Meta        PaginationMeta
	Loading     bool
	Error       string
	// Notice is a transient message, e.g. a failed status update.
	Notice string
	// Updating holds tickets whose status update is in flight.
	Updating map[ticketapi.TicketID]bool
}

// List fetches, filters and pages tickets and cycles their status.
type List struct {
	svc    ListService
	signal *async.RefreshSignal
	opts   Options

	guard  async.Guard
	search *async.Debouncer[string]

	mu          sync.Mutex
	filters     FilterState
	lastQuery   ticketapi.ListParams
	fetched     bool
	tickets     []ticketapi.Ticket
	meta        PaginationMeta
	loading     bool
	errMsg      string
	notice      string
	noticeTimer clock.Timer
	noticeSeq   int
	updating    map[ticketapi.TicketID]bool
	unsubscribe func()
}

// NewList creates a list with default filters. Call Start to fetch.
func NewList(svc ListService, signal *async.RefreshSignal, opts Options) *List {
	l := &List{
		svc:      svc,
		signal:   signal,
		opts:     opts.withDefaults(defaultSearchDelay),
		filters:  DefaultFilterState(),
		updating: make(map[ticketapi.TicketID]bool),
	}
	l.search = async.NewDebouncer(l.opts.Clock, l.opts.Delay, "", func(text string) {
		l.opts.Dispatch(func() { l.apply(SetSearch(text)) })
	})
	return l
}

// Start subscribes to the refresh signal and runs the first fetch.
func (l *List) Start() {
	if l.signal != nil {
		unsubscribe := l.signal.Subscribe(func(v uint64) {
			logger.Debug("controller.list: refresh signal value=%d", v)
			l.Refresh()
		})
		l.mu.Lock()
		l.unsubscribe = unsubscribe
		l.mu.Unlock()
	}
	l.Refresh()
}

// Close discards in-flight results and stops timers and the subscription.
func (l *List) Close() {
	l.guard.Close()
	l.search.Stop()
	l.mu.Lock()
	unsubscribe := l.unsubscribe
	l.unsubscribe = nil
	if l.noticeTimer != nil {
		l.noticeTimer.Stop()
		l.noticeTimer = nil
	}
	l.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot returns the current list state.
func (l *List) Snapshot() ListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	updating := make(map[ticketapi.TicketID]bool, len(l.updating))
	for id := range l.updating {
		updating[id] = true
	}
	return ListState{
		Filters:     l.filters,
		SearchInput: l.search.Pending(),
		Tickets:     append([]ticketapi.Ticket(nil), l.tickets...),
		Meta:        l.meta,
		Loading:     l.loading,
		Error:       l.errMsg,
		Notice:      l.notice,
		Updating:    updating,
	}
}

// Apply reduces c into the filters and fetches if the query changed.
func (l *List) Apply(c Change) {
	if c.kind == changeSearch || c.kind == changeClear {
		l.mu.Lock()
		search := Reduce(l.filters, c).Search
		l.mu.Unlock()
		l.search.Reset(search)
	}
	l.apply(c)
}

func (l *List) apply(c Change) {
	l.mu.Lock()
	next := Reduce(l.filters, c)
	if next == l.filters {
		l.mu.Unlock()
		return
	}
	l.filters = next
	query := BuildQuery(next)
	stale := !l.fetched || query != l.lastQuery
	l.mu.Unlock()

	if stale {
		l.fetch(query)
		return
	}
	l.opts.OnChange()
}

// SetSearchInput records raw search text; it is applied after the debounce delay.
func (l *List) SetSearchInput(text string) {
	l.search.Set(text)
}

// FlushSearch applies the pending search text now.
func (l *List) FlushSearch() {
	l.search.Flush()
}

// ClearSearch empties the search text immediately.
func (l *List) ClearSearch() {
	l.Apply(SetSearch(""))
}

// NextPage advances when the backend advertised a next page.
func (l *List) NextPage() bool {
	l.mu.Lock()
	ok := l.meta.HasNext
	l.mu.Unlock()
	if ok {
		l.Apply(NextPage())
	}
	return ok
}

// PrevPage goes back when the backend advertised a previous page.
func (l *List) PrevPage() bool {
	l.mu.Lock()
	ok := l.meta.HasPrevious
	l.mu.Unlock()
	if ok {
		l.Apply(PrevPage())
	}
	return ok
}

// Refresh refetches the current query.
func (l *List) Refresh() {
	l.mu.Lock()
	query := BuildQuery(l.filters)
	l.mu.Unlock()
	l.fetch(query)
}

// CycleStatus advances a ticket to the next status in the cycle. The list is
// not changed locally; a successful update bumps the refresh signal and the
// refetch shows the new status. It returns false if the ticket is unknown or
// already being updated.
func (l *List) CycleStatus(id ticketapi.TicketID) bool {
	if l.guard.Closed() {
		return false
	}
	l.mu.Lock()
	var current *ticketapi.Ticket
	for i := range l.tickets {
		if l.tickets[i].ID == id {
			current = &l.tickets[i]
			break
		}
	}
	if current == nil || l.updating[id] {
		l.mu.Unlock()
		return false
	}
	next := current.Status.Next()
	l.updating[id] = true
	l.mu.Unlock()
	l.opts.OnChange()

	logger.Info("controller.list: cycling status id=%s status=%s", id, next)
	go func() {
		_, err := l.svc.UpdateTicketStatus(context.Background(), id, next)
		l.opts.Dispatch(func() {
			if l.guard.Closed() {
				return
			}
			l.mu.Lock()
			delete(l.updating, id)
			l.mu.Unlock()

			if err != nil {
				logger.ErrorWithErr(err, "controller.list: status update failed id=%s", id)
				l.showNotice(StatusUpdateErrorMessage)
				return
			}
			l.opts.OnChange()
			if l.signal != nil {
				l.signal.Bump()
			}
		})
	}()
	return true
}

func (l *List) fetch(query ticketapi.ListParams) {
	if l.guard.Closed() {
		return
	}
	token := l.guard.Begin()

	l.mu.Lock()
	l.loading = true
	l.lastQuery = query
	l.fetched = true
	l.mu.Unlock()
	l.opts.OnChange()

	logger.Debug("controller.list: fetching page=%d category=%s priority=%s status=%s search=%q",
		query.Page, query.Category, query.Priority, query.Status, query.Search)

	go func() {
		page, err := l.svc.ListTickets(context.Background(), query)
		l.opts.Dispatch(func() {
			if !token.Live() {
				logger.Debug("controller.list: discarding superseded result page=%d", query.Page)
				return
			}
			l.mu.Lock()
			l.loading = false
			if err != nil {
				l.tickets = nil
				l.meta = PaginationMeta{}
				l.errMsg = ListErrorMessage
			} else {
				l.tickets = page.Tickets
				l.meta = PaginationMeta{
					HasNext:     page.HasNext(),
					HasPrevious: page.HasPrevious(),
					Count:       page.Count,
				}
				l.errMsg = ""
			}
			l.mu.Unlock()

			if err != nil {
				logger.ErrorWithErr(err, "controller.list: fetch failed page=%d", query.Page)
			}
			l.opts.OnChange()
		})
	}()
}

func (l *List) showNotice(msg string) {
	l.mu.Lock()
	l.notice = msg
	if l.noticeTimer != nil {
		l.noticeTimer.Stop()
	}
	l.noticeSeq++
	seq := l.noticeSeq
	l.noticeTimer = l.opts.Clock.AfterFunc(l.opts.MessageTTL, func() {
		l.opts.Dispatch(func() { l.clearNotice(seq) })
	})
	l.mu.Unlock()
	l.opts.OnChange()
}

func (l *List) clearNotice(seq int) {
	l.mu.Lock()
	if l.noticeSeq != seq || l.guard.Closed() {
		l.mu.Unlock()
		return
	}
	l.notice = ""
	l.noticeTimer = nil
	l.mu.Unlock()
	l.opts.OnChange()
}
