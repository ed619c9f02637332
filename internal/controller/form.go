package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/roeyazroel/ticket-tui/internal/async"
	"github.com/roeyazroel/ticket-tui/internal/clock"
	"github.com/roeyazroel/ticket-tui/internal/logger"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

const (
	// MaxTitleLength is the backend's title limit in characters.
	MaxTitleLength = 200

	// SubmitSuccessMessage is shown after a ticket is created.
	SubmitSuccessMessage = "Ticket created successfully."
	// SubmitErrorMessage is shown when creation fails.
	SubmitErrorMessage = "Unable to submit ticket right now. Please try again."

	DefaultCategory = ticketapi.CategoryGeneral
	DefaultPriority = ticketapi.PriorityMedium
)

// ErrSubmitDisabled is returned by Submit when the form cannot be submitted.
var ErrSubmitDisabled = errors.New("submit disabled")

// FormState is a snapshot of the new-ticket form.
type FormState struct {
	Title       string
	Description string
	Category    ticketapi.Category
	Priority    ticketapi.Priority
	Submitting  bool
	Classifying bool
	CanSubmit   bool
	// Success is the transient confirmation message, if any.
	Success string
	// Error persists until the next submit attempt.
	Error string
}

// Form validates and submits new tickets.
type Form struct {
	svc        CreateService
	signal     *async.RefreshSignal
	opts       Options
	classifier *Classifier

	guard async.Guard

	mu           sync.Mutex
	title        string
	description  string
	category     ticketapi.Category
	priority     ticketapi.Priority
	submitting   bool
	success      string
	errMsg       string
	successTimer clock.Timer
	successSeq   int
}

// NewForm creates an empty form. classify may be nil to disable suggestions;
// classifyOpts configures the suggestion debounce.
func NewForm(svc CreateService, classify ClassifyService, signal *async.RefreshSignal, opts, classifyOpts Options) *Form {
	f := &Form{
		svc:      svc,
		signal:   signal,
		opts:     opts.withDefaults(defaultClassifyDelay),
		category: DefaultCategory,
		priority: DefaultPriority,
	}
	if classify != nil {
		if classifyOpts.Clock == nil {
			classifyOpts.Clock = f.opts.Clock
		}
		if classifyOpts.Dispatch == nil {
			classifyOpts.Dispatch = f.opts.Dispatch
		}
		if classifyOpts.OnChange == nil {
			classifyOpts.OnChange = f.opts.OnChange
		}
		f.classifier = NewClassifier(classify, classifyOpts, f.applySuggestion)
	}
	return f
}

// Classifier returns the form's classification assistant, or nil.
func (f *Form) Classifier() *Classifier { return f.classifier }

// SetTitle updates the title, truncated to MaxTitleLength characters.
func (f *Form) SetTitle(title string) {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		title = string([]rune(title)[:MaxTitleLength])
	}
	f.update(func() { f.title = title })
}

// SetDescription updates the description and feeds the classifier.
func (f *Form) SetDescription(description string) {
	f.update(func() { f.description = description })
	if f.classifier != nil {
		f.classifier.SetDescription(description)
	}
}

// SetCategory selects a category. Unknown values are ignored.
func (f *Form) SetCategory(c ticketapi.Category) {
	if !c.Valid() {
		return
	}
	f.update(func() { f.category = c })
}

// SetPriority selects a priority. Unknown values are ignored.
func (f *Form) SetPriority(p ticketapi.Priority) {
	if !p.Valid() {
		return
	}
	f.update(func() { f.priority = p })
}

// CanSubmit reports whether Submit would send a request.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canSubmitLocked()
}

func (f *Form) canSubmitLocked() bool {
	return !f.submitting &&
		strings.TrimSpace(f.title) != "" &&
		strings.TrimSpace(f.description) != ""
}

// Snapshot returns the current form state.
func (f *Form) Snapshot() FormState {
	f.mu.Lock()
	s := FormState{
		Title:       f.title,
		Description: f.description,
		Category:    f.category,
		Priority:    f.priority,
		Submitting:  f.submitting,
		CanSubmit:   f.canSubmitLocked(),
		Success:     f.success,
		Error:       f.errMsg,
	}
	f.mu.Unlock()
	if f.classifier != nil {
		s.Classifying = f.classifier.State() == ClassifyRunning
	}
	return s
}

// Submit trims and sends the form. It returns ErrSubmitDisabled when a
// submission is in flight or the title or description is blank. The result
// arrives asynchronously; on success the form resets and the refresh signal
// is bumped once.
func (f *Form) Submit() error {
	f.mu.Lock()
	if f.guard.Closed() || !f.canSubmitLocked() {
		f.mu.Unlock()
		return ErrSubmitDisabled
	}
	input := ticketapi.CreateTicketInput{
		Title:       strings.TrimSpace(f.title),
		Description: strings.TrimSpace(f.description),
		Category:    f.category,
		Priority:    f.priority,
	}
	f.submitting = true
	f.errMsg = ""
	f.success = ""
	f.successSeq++
	if f.successTimer != nil {
		f.successTimer.Stop()
		f.successTimer = nil
	}
	f.mu.Unlock()
	f.opts.OnChange()

	token := f.guard.Begin()
	logger.Info("controller.form: submitting ticket category=%s priority=%s", input.Category, input.Priority)

	go func() {
		ticket, err := f.svc.CreateTicket(context.Background(), input)
		f.opts.Dispatch(func() {
			if !token.Live() {
				return
			}
			if err != nil {
				f.submitFailed(err)
				return
			}
			f.submitSucceeded(ticket)
		})
	}()
	return nil
}

// Close discards any in-flight submission and pending timers.
func (f *Form) Close() {
	f.guard.Close()
	if f.classifier != nil {
		f.classifier.Close()
	}
	f.mu.Lock()
	if f.successTimer != nil {
		f.successTimer.Stop()
		f.successTimer = nil
	}
	f.mu.Unlock()
}

func (f *Form) submitSucceeded(ticket ticketapi.Ticket) {
	logger.Info("controller.form: ticket created id=%s", ticket.ID)

	f.mu.Lock()
	f.title = ""
	f.description = ""
	f.category = DefaultCategory
	f.priority = DefaultPriority
	f.submitting = false
	f.errMsg = ""
	f.success = SubmitSuccessMessage
	if f.successTimer != nil {
		f.successTimer.Stop()
	}
	f.successSeq++
	seq := f.successSeq
	f.successTimer = f.opts.Clock.AfterFunc(f.opts.MessageTTL, func() {
		f.opts.Dispatch(func() { f.clearSuccess(seq) })
	})
	f.mu.Unlock()

	if f.classifier != nil {
		f.classifier.Reset()
	}

	f.opts.OnChange()
	if f.signal != nil {
		f.signal.Bump()
	}
}

func (f *Form) submitFailed(err error) {
	logger.ErrorWithErr(err, "controller.form: create ticket failed")

	msg := SubmitErrorMessage
	var apiErr *ticketapi.APIError
	if errors.As(err, &apiErr) {
		if summary := apiErr.FieldSummary(); summary != "" {
			msg += " " + summary
		} else if apiErr.Detail != "" {
			msg += " " + apiErr.Detail
		}
	}

	f.mu.Lock()
	f.submitting = false
	f.errMsg = msg
	f.mu.Unlock()
	f.opts.OnChange()
}

func (f *Form) clearSuccess(seq int) {
	f.mu.Lock()
	if f.successSeq != seq || f.guard.Closed() {
		f.mu.Unlock()
		return
	}
	f.success = ""
	f.successTimer = nil
	f.mu.Unlock()
	f.opts.OnChange()
}

func (f *Form) applySuggestion(s ticketapi.Suggestion) {
	f.mu.Lock()
	if s.Category != nil {
		f.category = *s.Category
	}
	if s.Priority != nil {
		f.priority = *s.Priority
	}
	f.mu.Unlock()
	logger.Debug("controller.form: applied suggestion")
	f.opts.OnChange()
}

func (f *Form) update(mutate func()) {
	f.mu.Lock()
	mutate()
	f.mu.Unlock()
	f.opts.OnChange()
}
