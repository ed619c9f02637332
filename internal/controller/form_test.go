package controller

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roeyazroel/ticket-tui/internal/async"
	"github.com/roeyazroel/ticket-tui/internal/clock"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

func newTestForm(t *testing.T) (*Form, *fakeBackend, *clock.Fake, *async.RefreshSignal) {
	t.Helper()
	clk := newFakeClock()
	backend := newFakeBackend(t)
	signal := async.NewRefreshSignal()
	opts := testOptions(clk)
	classifyOpts := opts
	classifyOpts.Delay = 600 * time.Millisecond
	form := NewForm(backend, backend, signal, opts, classifyOpts)
	t.Cleanup(form.Close)
	return form, backend, clk, signal
}

func ptr[T any](v T) *T { return &v }

func TestForm_Defaults(t *testing.T) {
	form, _, _, _ := newTestForm(t)
	s := form.Snapshot()
	if s.Category != ticketapi.CategoryGeneral || s.Priority != ticketapi.PriorityMedium {
		t.Errorf("defaults = %s/%s, want general/medium", s.Category, s.Priority)
	}
	if s.CanSubmit {
		t.Error("CanSubmit = true for empty form")
	}
}

func TestForm_SubmitDisabledWhenBlank(t *testing.T) {
	form, backend, _, _ := newTestForm(t)
	form.SetTitle("   ")
	form.SetDescription("Real description")

	if err := form.Submit(); !errors.Is(err, ErrSubmitDisabled) {
		t.Errorf("Submit() error = %v, want ErrSubmitDisabled", err)
	}
	if backend.create.count() != 0 {
		t.Errorf("create calls = %d, want 0", backend.create.count())
	}
}

func TestForm_TitleIsBounded(t *testing.T) {
	form, _, _, _ := newTestForm(t)
	form.SetTitle(strings.Repeat("é", MaxTitleLength+20))
	if got := []rune(form.Snapshot().Title); len(got) != MaxTitleLength {
		t.Errorf("title length = %d, want %d", len(got), MaxTitleLength)
	}
}

func TestForm_SubmitSuccessRoundTrip(t *testing.T) {
	form, backend, clk, signal := newTestForm(t)
	var bumps atomic.Int32
	signal.Subscribe(func(uint64) { bumps.Add(1) })

	form.SetTitle("  Cannot log in  ")
	form.SetDescription("  Password reset link is broken  ")
	form.SetCategory(ticketapi.CategoryAccount)
	form.SetPriority(ticketapi.PriorityHigh)

	if err := form.Submit(); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if s := form.Snapshot(); !s.Submitting || s.CanSubmit {
		t.Errorf("during submit Submitting=%v CanSubmit=%v, want true/false", s.Submitting, s.CanSubmit)
	}
	if err := form.Submit(); !errors.Is(err, ErrSubmitDisabled) {
		t.Errorf("second Submit() error = %v, want ErrSubmitDisabled", err)
	}

	call := backend.create.nth(t, 0)
	want := ticketapi.CreateTicketInput{
		Title:       "Cannot log in",
		Description: "Password reset link is broken",
		Category:    ticketapi.CategoryAccount,
		Priority:    ticketapi.PriorityHigh,
	}
	if call.req != want {
		t.Errorf("create input = %+v, want %+v", call.req, want)
	}
	call.respond(ticketapi.Ticket{ID: "1"}, nil)

	if !waitForCondition(t, time.Second, func() bool { return signal.Value() == 1 }) {
		t.Fatal("refresh signal not bumped")
	}
	s := form.Snapshot()
	if s.Title != "" || s.Description != "" || s.Category != DefaultCategory || s.Priority != DefaultPriority {
		t.Errorf("form not reset: %+v", s)
	}
	if s.Success != SubmitSuccessMessage || s.Error != "" || s.Submitting {
		t.Errorf("snapshot = %+v", s)
	}
	if bumps.Load() != 1 || signal.Value() != 1 {
		t.Errorf("refresh bumps = %d value = %d, want exactly 1", bumps.Load(), signal.Value())
	}

	clk.Advance(2400 * time.Millisecond)
	if form.Snapshot().Success == "" {
		t.Error("success message cleared early")
	}
	clk.Advance(100 * time.Millisecond)
	if form.Snapshot().Success != "" {
		t.Error("success message not cleared after 2.5s")
	}
}

func TestForm_SubmitFailureKeepsInput(t *testing.T) {
	form, backend, _, signal := newTestForm(t)
	form.SetTitle("Refund")
	form.SetDescription("Charged twice this month")

	if err := form.Submit(); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	backend.create.nth(t, 0).respond(ticketapi.Ticket{}, &ticketapi.APIError{
		StatusCode:  400,
		FieldErrors: map[string][]string{"title": {"Too vague."}},
	})

	if !waitForCondition(t, time.Second, func() bool { return form.Snapshot().Error != "" }) {
		t.Fatal("error message not shown")
	}
	s := form.Snapshot()
	if !strings.HasPrefix(s.Error, SubmitErrorMessage) || !strings.Contains(s.Error, "title: Too vague.") {
		t.Errorf("Error = %q", s.Error)
	}
	if s.Title != "Refund" || s.Description != "Charged twice this month" || !s.CanSubmit {
		t.Errorf("input not preserved: %+v", s)
	}
	if signal.Value() != 0 {
		t.Errorf("signal = %d, want 0 after failure", signal.Value())
	}

	if err := form.Submit(); err != nil {
		t.Fatalf("retry Submit() error: %v", err)
	}
	if form.Snapshot().Error != "" {
		t.Error("error message not cleared by next submit attempt")
	}
}

func TestForm_ResubmitClearsSuccessMessage(t *testing.T) {
	form, backend, clk, signal := newTestForm(t)
	form.SetTitle("Cannot log in")
	form.SetDescription("Password reset link is broken")
	if err := form.Submit(); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	backend.create.nth(t, 0).respond(ticketapi.Ticket{ID: "1"}, nil)
	if !waitForCondition(t, time.Second, func() bool { return signal.Value() == 1 }) {
		t.Fatal("first submit did not succeed")
	}

	clk.Advance(time.Second)
	form.SetTitle("VPN down")
	form.SetDescription("Cannot reach the office network")
	if err := form.Submit(); err != nil {
		t.Fatalf("second Submit() error: %v", err)
	}
	if got := form.Snapshot().Success; got != "" {
		t.Errorf("Success = %q during second submit, want empty", got)
	}

	backend.create.nth(t, 1).respond(ticketapi.Ticket{}, errBackendDown)
	if !waitForCondition(t, time.Second, func() bool { return form.Snapshot().Error != "" }) {
		t.Fatal("error message not shown")
	}
	if s := form.Snapshot(); s.Success != "" {
		t.Errorf("snapshot = %+v, want error without success", s)
	}

	clk.Advance(2 * time.Second)
	if s := form.Snapshot(); s.Error == "" || s.Success != "" {
		t.Errorf("after old timer deadline snapshot = %+v", s)
	}
}

func TestForm_ClassificationOverwritesSelection(t *testing.T) {
	form, backend, clk, _ := newTestForm(t)
	form.SetCategory(ticketapi.CategoryAccount)
	form.SetDescription("I was charged twice")
	clk.Advance(600 * time.Millisecond)

	call := backend.classify.nth(t, 0)
	if call.req != "I was charged twice" {
		t.Errorf("classify description = %q", call.req)
	}
	if !form.Snapshot().Classifying {
		t.Error("Classifying = false while request in flight")
	}
	call.respond(ticketapi.Suggestion{Category: ptr(ticketapi.CategoryBilling), Priority: ptr(ticketapi.PriorityHigh)}, nil)

	if !waitForCondition(t, time.Second, func() bool { return form.Snapshot().Category == ticketapi.CategoryBilling }) {
		t.Fatalf("category = %s, want billing", form.Snapshot().Category)
	}
	s := form.Snapshot()
	if s.Priority != ticketapi.PriorityHigh || s.Classifying {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestForm_ClassificationFailureIsSilent(t *testing.T) {
	form, backend, clk, _ := newTestForm(t)
	form.SetPriority(ticketapi.PriorityLow)
	form.SetDescription("VPN keeps dropping")
	clk.Advance(600 * time.Millisecond)

	backend.classify.nth(t, 0).respond(ticketapi.Suggestion{}, errBackendDown)

	if !waitForCondition(t, time.Second, func() bool { return !form.Snapshot().Classifying }) {
		t.Fatal("classifier stuck in classifying state")
	}
	s := form.Snapshot()
	if s.Category != DefaultCategory || s.Priority != ticketapi.PriorityLow {
		t.Errorf("fields changed on failure: %s/%s", s.Category, s.Priority)
	}
	if s.Error != "" {
		t.Errorf("Error = %q, want none", s.Error)
	}
}

func TestForm_ClassificationDebounced(t *testing.T) {
	form, backend, clk, _ := newTestForm(t)
	for _, d := range []string{"V", "VP", "VPN", "VPN down"} {
		form.SetDescription(d)
		clk.Advance(300 * time.Millisecond)
	}
	clk.Advance(300 * time.Millisecond)

	call := backend.classify.nth(t, 0)
	if call.req != "VPN down" {
		t.Errorf("classified %q, want final value", call.req)
	}
	time.Sleep(20 * time.Millisecond)
	if backend.classify.count() != 1 {
		t.Errorf("classify calls = %d, want 1", backend.classify.count())
	}
}

func TestForm_LateClassificationAfterSubmitIsDiscarded(t *testing.T) {
	form, backend, clk, _ := newTestForm(t)
	form.SetTitle("Billing issue")
	form.SetDescription("Invoice total is wrong")
	clk.Advance(600 * time.Millisecond)
	classifyCall := backend.classify.nth(t, 0)

	if err := form.Submit(); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	backend.create.nth(t, 0).respond(ticketapi.Ticket{ID: "9"}, nil)
	if !waitForCondition(t, time.Second, func() bool { return form.Snapshot().Success != "" }) {
		t.Fatal("submit did not succeed")
	}

	classifyCall.respond(ticketapi.Suggestion{Category: ptr(ticketapi.CategoryBilling)}, nil)
	time.Sleep(20 * time.Millisecond)
	if got := form.Snapshot().Category; got != DefaultCategory {
		t.Errorf("category = %s after reset, want %s", got, DefaultCategory)
	}
}

func TestClassifier_SupersededResultDiscarded(t *testing.T) {
	clk := newFakeClock()
	backend := newFakeBackend(t)
	var mu sync.Mutex
	var suggestions []ticketapi.Suggestion
	opts := testOptions(clk)
	opts.Delay = 600 * time.Millisecond
	c := NewClassifier(backend, opts, func(s ticketapi.Suggestion) {
		mu.Lock()
		suggestions = append(suggestions, s)
		mu.Unlock()
	})
	t.Cleanup(c.Close)

	c.SetDescription("first description")
	clk.Advance(600 * time.Millisecond)
	first := backend.classify.nth(t, 0)

	c.SetDescription("second description")
	clk.Advance(600 * time.Millisecond)
	second := backend.classify.nth(t, 1)

	second.respond(ticketapi.Suggestion{Priority: ptr(ticketapi.PriorityLow)}, nil)
	first.respond(ticketapi.Suggestion{Priority: ptr(ticketapi.PriorityCritical)}, nil)

	waitForCondition(t, time.Second, func() bool { return c.State() == ClassifyIdle })
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(suggestions) != 1 || *suggestions[0].Priority != ticketapi.PriorityLow {
		t.Errorf("suggestions = %+v, want only the latest", suggestions)
	}
}

func TestClassifier_BlankDescriptionGoesIdle(t *testing.T) {
	clk := newFakeClock()
	backend := newFakeBackend(t)
	opts := testOptions(clk)
	var called atomic.Bool
	c := NewClassifier(backend, opts, func(ticketapi.Suggestion) { called.Store(true) })
	t.Cleanup(c.Close)

	c.SetDescription("something")
	clk.Advance(time.Second)
	pending := backend.classify.nth(t, 0)
	if c.State() != ClassifyRunning {
		t.Fatalf("State() = %s, want classifying", c.State())
	}

	c.SetDescription("   ")
	clk.Advance(time.Second)
	if c.State() != ClassifyIdle {
		t.Errorf("State() = %s, want idle", c.State())
	}

	pending.respond(ticketapi.Suggestion{Category: ptr(ticketapi.CategoryGeneral)}, nil)
	time.Sleep(20 * time.Millisecond)
	if called.Load() {
		t.Error("superseded suggestion applied")
	}
	if backend.classify.count() != 1 {
		t.Errorf("classify calls = %d, want 1", backend.classify.count())
	}
}
