package tui

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/rivo/tview"
	"github.com/xeonx/timeago"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/roeyazroel/ticket-tui/internal/controller"
	"github.com/roeyazroel/ticket-tui/internal/logger"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

const descriptionPreviewLength = 90

// renderStats redraws the stats panel from the stats controller.
func (a *App) renderStats() {
	s := a.stats.Snapshot()
	view := controller.FormatStats(s.Stats, a.locale)

	title := " Stats "
	if s.Loading {
		title = " Stats (loading) "
	}
	a.statsView.SetTitle(title)

	var b strings.Builder
	if s.Error != "" {
		fmt.Fprintf(&b, "%s%s[-]\n", a.themeTags.Error, s.Error)
	}
	fmt.Fprintf(&b, "%sTotal[-] %s   %sOpen[-] %s   %sAvg/day[-] %s\n",
		a.themeTags.Accent, view.Total,
		a.themeTags.Accent, view.Open,
		a.themeTags.Accent, view.AvgPerDay)
	fmt.Fprintf(&b, "%sPriority[-] %s\n", a.themeTags.SecondaryText, joinBreakdown(view.Priorities))
	fmt.Fprintf(&b, "%sCategory[-] %s", a.themeTags.SecondaryText, joinBreakdown(view.Categories))
	a.statsView.SetText(b.String())
}

func joinBreakdown(entries []controller.BreakdownEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, tview.Escape(e.Label)+" "+e.Count)
	}
	return strings.Join(parts, " · ")
}

// renderForm pushes form state into the form widgets.
func (a *App) renderForm() {
	s := a.form.Snapshot()

	prevSyncing := a.syncing
	a.syncing = true
	if a.titleInput.GetText() != s.Title {
		a.titleInput.SetText(s.Title)
	}
	if a.descriptionInput.GetText() != s.Description {
		a.descriptionInput.SetText(s.Description, true)
	}
	if i := indexOf(ticketapi.Categories(), s.Category); i >= 0 {
		if current, _ := a.categoryDropDown.GetCurrentOption(); current != i {
			a.categoryDropDown.SetCurrentOption(i)
		}
	}
	if i := indexOf(ticketapi.Priorities(), s.Priority); i >= 0 {
		if current, _ := a.priorityDropDown.GetCurrentOption(); current != i {
			a.priorityDropDown.SetCurrentOption(i)
		}
	}
	if button := a.formView.GetButton(0); button != nil {
		if s.Submitting {
			button.SetLabel("Submitting...")
		} else {
			button.SetLabel("Submit")
		}
	}
	a.syncing = prevSyncing

	var b strings.Builder
	fmt.Fprintf(&b, "%sTitle %d/%d · Description %d chars[-]\n",
		a.themeTags.SecondaryText,
		utf8.RuneCountInString(s.Title), controller.MaxTitleLength,
		utf8.RuneCountInString(s.Description))
	switch {
	case s.Submitting:
		fmt.Fprintf(&b, "%sSubmitting...[-]\n", a.themeTags.Warning)
	case s.Classifying:
		fmt.Fprintf(&b, "%sSuggesting category and priority...[-]\n", a.themeTags.SecondaryText)
	}
	if s.Success != "" {
		fmt.Fprintf(&b, "%s%s[-]\n", a.themeTags.Success, s.Success)
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "%s%s[-]\n", a.themeTags.Error, tview.Escape(s.Error))
	}
	a.formMessage.SetText(strings.TrimRight(b.String(), "\n"))
}

func indexOf[T comparable](values []T, v T) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return -1
}

// renderList rebuilds the ticket table from the list controller.
func (a *App) renderList() {
	s := a.list.Snapshot()
	a.tickets = s.Tickets

	prevSyncing := a.syncing
	a.syncing = true
	defer func() { a.syncing = prevSyncing }()

	table := a.ticketsTable
	table.Clear()

	headers := []string{"ID", "Title", "Description", "Category", "Priority", "Status", "Created"}
	for col, h := range headers {
		table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(a.theme.Accent).
			SetSelectable(false))
	}

	now := a.clock.Now()
	for i, t := range s.Tickets {
		row := i + 1
		status := controller.StatusLabel(t.Status, a.locale)
		if s.Updating[t.ID] {
			status += " ..."
		}
		created := ""
		if !t.CreatedAt.IsZero() {
			created = timeago.English.FormatReference(t.CreatedAt, now)
		}
		cells := []*tview.TableCell{
			tview.NewTableCell(tview.Escape(string(t.ID))).SetTextColor(a.theme.SecondaryText),
			tview.NewTableCell(tview.Escape(t.Title)).SetExpansion(2).SetMaxWidth(40),
			tview.NewTableCell(tview.Escape(truncateDescription(t.Description))).SetExpansion(3).SetTextColor(a.theme.SecondaryText),
			tview.NewTableCell(displayLabel(string(t.Category), a.locale)),
			tview.NewTableCell(displayLabel(string(t.Priority), a.locale)).SetTextColor(a.theme.PriorityColor(t.Priority)),
			tview.NewTableCell(status),
			tview.NewTableCell(created).SetTextColor(a.theme.SecondaryText),
		}
		for col, cell := range cells {
			table.SetCell(row, col, cell.SetReference(t.ID))
		}
	}

	if len(s.Tickets) == 0 {
		msg, color := "No tickets found.", a.theme.SecondaryText
		switch {
		case s.Loading:
			msg, color = "Loading tickets...", a.theme.Warning
		case s.Error != "":
			msg, color = s.Error, a.theme.Error
		}
		table.SetCell(1, 0, tview.NewTableCell(msg).SetTextColor(color).SetSelectable(false))
	}

	a.ticketsTable.SetTitle(a.ticketsTitle(s))

	selectedRow := 0
	for i, t := range s.Tickets {
		if t.ID == a.selectedID {
			selectedRow = i + 1
			break
		}
	}
	if selectedRow == 0 && len(s.Tickets) > 0 {
		selectedRow = 1
		a.selectedID = s.Tickets[0].ID
	}
	if selectedRow > 0 {
		table.Select(selectedRow, 0)
	}
	if len(s.Tickets) == 0 {
		a.selectedID = ""
	}

	a.renderDetails()
	a.updateStatusBar()
}

func (a *App) ticketsTitle(s controller.ListState) string {
	prev, next := "‹", "›"
	if !s.Meta.HasPrevious {
		prev = " "
	}
	if !s.Meta.HasNext {
		next = " "
	}
	title := fmt.Sprintf(" Tickets %s page %d %s · %s total ", prev, s.Filters.Page, next, formatCount(s.Meta.Count, a.locale))
	if s.Loading {
		title += "(loading) "
	}
	return title
}

// renderDetails shows the selected ticket as rendered markdown.
func (a *App) renderDetails() {
	ticket := a.GetSelectedTicket()
	if ticket == nil {
		a.detailsView.SetText(a.themeTags.SecondaryText + "No ticket selected[-]")
		return
	}

	width := 80
	if _, _, w, _ := a.detailsView.GetInnerRect(); w > 10 {
		width = w - 2
	}
	out, err := a.markdown.Render(ticketMarkdown(*ticket, a.locale), width)
	if err != nil {
		logger.ErrorWithErr(err, "tui.app: failed to render ticket markdown id=%s", ticket.ID)
		a.detailsView.SetText(tview.Escape(ticket.Title + "\n\n" + ticket.Description))
		return
	}
	a.detailsView.SetText(tview.TranslateANSI(out))
	a.detailsView.ScrollToBeginning()
}

func ticketMarkdown(t ticketapi.Ticket, tag language.Tag) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "- **ID:** %s\n", t.ID)
	fmt.Fprintf(&b, "- **Status:** %s\n", controller.StatusLabel(t.Status, tag))
	fmt.Fprintf(&b, "- **Category:** %s\n", displayLabel(string(t.Category), tag))
	fmt.Fprintf(&b, "- **Priority:** %s\n", displayLabel(string(t.Priority), tag))
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created:** %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	b.WriteString("\n---\n\n")
	b.WriteString(t.Description)
	b.WriteString("\n")
	return b.String()
}

// truncateDescription shortens long descriptions for the table.
func truncateDescription(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= descriptionPreviewLength {
		return text
	}
	return string([]rune(text)[:descriptionPreviewLength]) + "..."
}

func displayLabel(value string, tag language.Tag) string {
	return cases.Title(tag).String(strings.ReplaceAll(value, "_", " "))
}

func formatCount(n int, tag language.Tag) string {
	return message.NewPrinter(tag).Sprint(number.Decimal(n))
}

// markdownRenderer caches one glamour renderer per wrap width.
type markdownRenderer struct {
	style string

	mu        sync.Mutex
	width     int
	renderer  *glamour.TermRenderer
	newRender func(style string, width int) (*glamour.TermRenderer, error)
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{
		style: style,
		newRender: func(style string, width int) (*glamour.TermRenderer, error) {
			return glamour.NewTermRenderer(
				glamour.WithStandardStyle(style),
				glamour.WithWordWrap(width),
			)
		},
	}
}

// Render converts markdown to ANSI text wrapped at width.
func (m *markdownRenderer) Render(md string, width int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderer == nil || m.width != width {
		r, err := m.newRender(m.style, width)
		if err != nil {
			return "", fmt.Errorf("create markdown renderer: %w", err)
		}
		m.renderer = r
		m.width = width
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
