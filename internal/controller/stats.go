package controller

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/roeyazroel/ticket-tui/internal/async"
	"github.com/roeyazroel/ticket-tui/internal/logger"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

// StatsErrorMessage is shown when the summary cannot be loaded.
const StatsErrorMessage = "Unable to load stats."

// StatsState is a snapshot of the stats panel.
type StatsState struct {
	Stats   ticketapi.Stats
	Loading bool
	Error   string
}

// Stats fetches the backend's summary on start and on every refresh signal.
type Stats struct {
	svc    StatsService
	signal *async.RefreshSignal
	opts   Options

	guard async.Guard

	mu          sync.Mutex
	stats       ticketapi.Stats
	loading     bool
	errMsg      string
	unsubscribe func()
}

// NewStats creates an empty stats controller. Call Start to fetch.
func NewStats(svc StatsService, signal *async.RefreshSignal, opts Options) *Stats {
	return &Stats{
		svc:    svc,
		signal: signal,
		opts:   opts.withDefaults(0),
	}
}

// Start subscribes to the refresh signal and runs the first fetch.
func (s *Stats) Start() {
	if s.signal != nil {
		unsubscribe := s.signal.Subscribe(func(uint64) { s.Refresh() })
		s.mu.Lock()
		s.unsubscribe = unsubscribe
		s.mu.Unlock()
	}
	s.Refresh()
}

// Close discards in-flight results and unsubscribes.
func (s *Stats) Close() {
	s.guard.Close()
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Snapshot returns the current summary.
func (s *Stats) Snapshot() StatsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsState{Stats: s.stats, Loading: s.loading, Error: s.errMsg}
}

// Refresh refetches the summary.
func (s *Stats) Refresh() {
	if s.guard.Closed() {
		return
	}
	token := s.guard.Begin()
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.opts.OnChange()

	go func() {
		stats, err := s.svc.Stats(context.Background())
		s.opts.Dispatch(func() {
			if !token.Live() {
				return
			}
			s.mu.Lock()
			s.loading = false
			if err != nil {
				s.stats = ticketapi.Stats{}
				s.errMsg = StatsErrorMessage
			} else {
				s.stats = stats
				s.errMsg = ""
			}
			s.mu.Unlock()
			if err != nil {
				logger.ErrorWithErr(err, "controller.stats: fetch failed")
			}
			s.opts.OnChange()
		})
	}()
}

// BreakdownEntry is one formatted row of a breakdown.
type BreakdownEntry struct {
	Key   string
	Label string
	Count string
}

// StatsView is a summary formatted for display.
type StatsView struct {
	Total      string
	Open       string
	AvgPerDay  string
	Priorities []BreakdownEntry
	Categories []BreakdownEntry
}

// FormatStats formats counts with locale digit grouping and the daily average
// with at most two decimals. Breakdowns list the known values in enum order
// (missing ones as zero) followed by any unknown keys sorted by name.
func FormatStats(stats ticketapi.Stats, tag language.Tag) StatsView {
	p := message.NewPrinter(tag)
	count := func(n int) string { return p.Sprint(number.Decimal(n)) }

	priorities := make([]string, 0, 4)
	for _, v := range ticketapi.Priorities() {
		priorities = append(priorities, string(v))
	}
	categories := make([]string, 0, 4)
	for _, v := range ticketapi.Categories() {
		categories = append(categories, string(v))
	}

	return StatsView{
		Total:      count(stats.TotalTickets),
		Open:       count(stats.OpenTickets),
		AvgPerDay:  p.Sprint(number.Decimal(stats.AvgTicketsPerDay, number.MaxFractionDigits(2))),
		Priorities: breakdown(stats.PriorityBreakdown, priorities, tag, count),
		Categories: breakdown(stats.CategoryBreakdown, categories, tag, count),
	}
}

func breakdown(counts map[string]int, known []string, tag language.Tag, count func(int) string) []BreakdownEntry {
	title := cases.Title(tag)
	entries := make([]BreakdownEntry, 0, len(known)+len(counts))
	seen := make(map[string]bool, len(known))
	for _, key := range known {
		seen[key] = true
		entries = append(entries, BreakdownEntry{Key: key, Label: title.String(key), Count: count(counts[key])})
	}

	var extra []string
	for key := range counts {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		entries = append(entries, BreakdownEntry{Key: key, Label: title.String(key), Count: count(counts[key])})
	}
	return entries
}

// StatusLabel renders a status like "in_progress" as "In Progress".
func StatusLabel(s ticketapi.Status, tag language.Tag) string {
	return cases.Title(tag).String(strings.ReplaceAll(string(s), "_", " "))
}
