// Package async holds the small concurrency primitives shared by the
// controllers: a trailing-edge debouncer, a liveness guard for in-flight
// requests, and a shared refresh counter.
package async

import (
	"sync"
	"time"

	"github.com/roeyazroel/ticket-tui/internal/clock"
)

// Debouncer delays propagation of a rapidly changing value until it has been
// stable for a fixed delay. Only the settled value is observed; intermediate
// values are dropped.
type Debouncer[T comparable] struct {
	clk      clock.Clock
	delay    time.Duration
	onSettle func(T)

	mu      sync.Mutex
	source  T
	settled T
	timer   clock.Timer
	seq     uint64
	stopped bool
}

// NewDebouncer creates a debouncer whose settled value starts at initial.
// onSettle runs (outside any lock) each time the settled value changes.
func NewDebouncer[T comparable](clk clock.Clock, delay time.Duration, initial T, onSettle func(T)) *Debouncer[T] {
	if clk == nil {
		clk = clock.Real()
	}
	return &Debouncer[T]{
		clk:      clk,
		delay:    delay,
		onSettle: onSettle,
		source:   initial,
		settled:  initial,
	}
}

// Set records a new source value and restarts the delay. Setting the value
// already pending is a no-op.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	if d.stopped || (v == d.source && d.timer != nil) {
		d.mu.Unlock()
		return
	}
	d.source = v
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if v == d.settled {
		// Returning to the settled value cancels the pending change.
		d.seq++
		d.mu.Unlock()
		return
	}
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	timer := d.clk.AfterFunc(d.delay, func() { d.fire(seq) })

	d.mu.Lock()
	if d.seq == seq && !d.stopped {
		d.timer = timer
	}
	d.mu.Unlock()
}

// Value returns the last settled value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Pending returns the most recent source value.
func (d *Debouncer[T]) Pending() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

// Flush settles the current source value immediately.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.mu.Unlock()
	d.settle()
}

// Reset forces both the source and settled values to v without notifying.
func (d *Debouncer[T]) Reset(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.source = v
	d.settled = v
}

// Stop cancels any pending timer. Later Sets are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if d.seq != seq || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.settle()
}

func (d *Debouncer[T]) settle() {
	d.mu.Lock()
	if d.stopped || d.source == d.settled {
		d.mu.Unlock()
		return
	}
	d.settled = d.source
	v := d.settled
	d.mu.Unlock()

	if d.onSettle != nil {
		d.onSettle(v)
	}
}
