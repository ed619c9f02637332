package controller

import (
	"context"
	"strings"
	"sync"

	"github.com/roeyazroel/ticket-tui/internal/async"
	"github.com/roeyazroel/ticket-tui/internal/logger"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

// ClassifyState is the assistant's state.
type ClassifyState int

const (
	ClassifyIdle ClassifyState = iota
	ClassifyRunning
)

func (s ClassifyState) String() string {
	if s == ClassifyRunning {
		return "classifying"
	}
	return "idle"
}

// Classifier suggests a category and priority once the description has been
// stable for the debounce delay. Failures are logged and otherwise ignored.
type Classifier struct {
	svc       ClassifyService
	opts      Options
	onSuggest func(ticketapi.Suggestion)

	guard    async.Guard
	debounce *async.Debouncer[string]

	mu    sync.Mutex
	state ClassifyState
}

// NewClassifier creates an idle assistant. onSuggest runs on the dispatcher
// goroutine for every non-empty suggestion from the latest request.
func NewClassifier(svc ClassifyService, opts Options, onSuggest func(ticketapi.Suggestion)) *Classifier {
	c := &Classifier{
		svc:       svc,
		opts:      opts.withDefaults(defaultClassifyDelay),
		onSuggest: onSuggest,
	}
	c.debounce = async.NewDebouncer(c.opts.Clock, c.opts.Delay, "", func(description string) {
		c.opts.Dispatch(func() { c.classify(description) })
	})
	return c
}

// SetDescription feeds the raw description text.
func (c *Classifier) SetDescription(description string) {
	c.debounce.Set(description)
}

// State returns the current state.
func (c *Classifier) State() ClassifyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset drops any pending description and supersedes an in-flight request.
func (c *Classifier) Reset() {
	c.debounce.Reset("")
	c.guard.Cancel()
	c.setState(ClassifyIdle)
}

// Close stops the debounce timer and discards in-flight results.
func (c *Classifier) Close() {
	c.debounce.Stop()
	c.guard.Close()
}

func (c *Classifier) classify(description string) {
	if c.guard.Closed() {
		return
	}
	description = strings.TrimSpace(description)
	if description == "" {
		c.guard.Cancel()
		c.setState(ClassifyIdle)
		return
	}

	token := c.guard.Begin()
	c.setState(ClassifyRunning)
	logger.Debug("controller.classifier: classifying length=%d", len(description))

	go func() {
		suggestion, err := c.svc.Classify(context.Background(), description)
		c.opts.Dispatch(func() {
			if !token.Live() {
				logger.Debug("controller.classifier: discarding superseded result")
				return
			}
			c.setState(ClassifyIdle)
			if err != nil {
				logger.Debug("controller.classifier: classification unavailable error=%v", err)
				return
			}
			if suggestion.Empty() || c.onSuggest == nil {
				return
			}
			c.onSuggest(suggestion)
		})
	}()
}

func (c *Classifier) setState(s ClassifyState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.opts.OnChange()
	}
}
