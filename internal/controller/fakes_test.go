package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roeyazroel/ticket-tui/internal/clock"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

var errBackendDown = errors.New("backend down")

// waitForCondition polls until condition returns true or timeout expires.
func waitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// serialDispatcher runs continuations immediately, one at a time, mirroring
// the UI goroutine.
func serialDispatcher() Dispatcher {
	var mu sync.Mutex
	return func(f func()) {
		mu.Lock()
		defer mu.Unlock()
		f()
	}
}

func testOptions(clk *clock.Fake) Options {
	return Options{
		Clock:      clk,
		Dispatch:   serialDispatcher(),
		MessageTTL: 2500 * time.Millisecond,
	}
}

func newFakeClock() *clock.Fake {
	return clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

// pendingCall is one blocked backend call, released by the test.
type pendingCall[Req, Resp any] struct {
	req   Req
	reply chan result[Resp]
}

type result[Resp any] struct {
	value Resp
	err   error
}

func (c *pendingCall[Req, Resp]) respond(v Resp, err error) {
	c.reply <- result[Resp]{value: v, err: err}
}

// callLog records blocked calls. If auto is set, calls return immediately.
type callLog[Req, Resp any] struct {
	mu    sync.Mutex
	calls []*pendingCall[Req, Resp]
	auto  func(Req) (Resp, error)
	done  chan struct{}
}

func newCallLog[Req, Resp any](t *testing.T) *callLog[Req, Resp] {
	l := &callLog[Req, Resp]{done: make(chan struct{})}
	t.Cleanup(func() { close(l.done) })
	return l
}

func (l *callLog[Req, Resp]) call(req Req) (Resp, error) {
	l.mu.Lock()
	auto := l.auto
	pc := &pendingCall[Req, Resp]{req: req, reply: make(chan result[Resp], 1)}
	l.calls = append(l.calls, pc)
	l.mu.Unlock()

	if auto != nil {
		return auto(req)
	}
	select {
	case r := <-pc.reply:
		return r.value, r.err
	case <-l.done:
		var zero Resp
		return zero, context.Canceled
	}
}

func (l *callLog[Req, Resp]) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func (l *callLog[Req, Resp]) nth(t *testing.T, n int) *pendingCall[Req, Resp] {
	t.Helper()
	if !waitForCondition(t, time.Second, func() bool { return l.count() > n }) {
		t.Fatalf("expected call #%d, got %d calls", n+1, l.count())
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[n]
}

func (l *callLog[Req, Resp]) setAuto(fn func(Req) (Resp, error)) {
	l.mu.Lock()
	l.auto = fn
	l.mu.Unlock()
}

type statusUpdate struct {
	id     ticketapi.TicketID
	status ticketapi.Status
}

type fakeBackend struct {
	list     *callLog[ticketapi.ListParams, ticketapi.TicketPage]
	update   *callLog[statusUpdate, ticketapi.Ticket]
	create   *callLog[ticketapi.CreateTicketInput, ticketapi.Ticket]
	classify *callLog[string, ticketapi.Suggestion]
	stats    *callLog[struct{}, ticketapi.Stats]
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		list:     newCallLog[ticketapi.ListParams, ticketapi.TicketPage](t),
		update:   newCallLog[statusUpdate, ticketapi.Ticket](t),
		create:   newCallLog[ticketapi.CreateTicketInput, ticketapi.Ticket](t),
		classify: newCallLog[string, ticketapi.Suggestion](t),
		stats:    newCallLog[struct{}, ticketapi.Stats](t),
	}
}

func (b *fakeBackend) ListTickets(_ context.Context, p ticketapi.ListParams) (ticketapi.TicketPage, error) {
	return b.list.call(p)
}

func (b *fakeBackend) UpdateTicketStatus(_ context.Context, id ticketapi.TicketID, s ticketapi.Status) (ticketapi.Ticket, error) {
	return b.update.call(statusUpdate{id: id, status: s})
}

func (b *fakeBackend) CreateTicket(_ context.Context, in ticketapi.CreateTicketInput) (ticketapi.Ticket, error) {
	return b.create.call(in)
}

func (b *fakeBackend) Classify(_ context.Context, description string) (ticketapi.Suggestion, error) {
	return b.classify.call(description)
}

func (b *fakeBackend) Stats(_ context.Context) (ticketapi.Stats, error) {
	return b.stats.call(struct{}{})
}

func makeTickets(n int, status ticketapi.Status) []ticketapi.Ticket {
	tickets := make([]ticketapi.Ticket, 0, n)
	for i := 1; i <= n; i++ {
		tickets = append(tickets, ticketapi.Ticket{
			ID:       ticketapi.TicketID(string(rune('0' + i))),
			Title:    "Ticket",
			Category: ticketapi.CategoryGeneral,
			Priority: ticketapi.PriorityMedium,
			Status:   status,
		})
	}
	return tickets
}
