package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/text/language"

	"github.com/roeyazroel/ticket-tui/internal/async"
	"github.com/roeyazroel/ticket-tui/internal/clock"
	"github.com/roeyazroel/ticket-tui/internal/config"
	"github.com/roeyazroel/ticket-tui/internal/controller"
	"github.com/roeyazroel/ticket-tui/internal/logger"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

// Backend is everything the TUI needs from the ticket API.
type Backend interface {
	controller.ListService
	controller.CreateService
	controller.ClassifyService
	controller.StatsService
	Health(ctx context.Context) error
}

// FocusTarget indicates which pane has focus.
type FocusTarget int

const (
	FocusTickets FocusTarget = iota
	FocusDetails
	FocusForm
	FocusFilters
	FocusSearch
)

const healthTimeout = 5 * time.Second

// App is the main application controller that manages all UI components.
type App struct {
	app       *tview.Application
	api       Backend
	config    config.Config
	clock     clock.Clock
	locale    language.Tag
	theme     Theme
	themeTags ThemeTags
	commands  []Command

	signal *async.RefreshSignal
	form   *controller.Form
	list   *controller.List
	stats  *controller.Stats

	// UI components
	pages            *tview.Pages
	mainLayout       *tview.Flex
	statsView        *tview.TextView
	formView         *tview.Form
	titleInput       *tview.InputField
	descriptionInput *tview.TextArea
	categoryDropDown *tview.DropDown
	priorityDropDown *tview.DropDown
	formMessage      *tview.TextView
	filterBar        *tview.Flex
	filterForm       *tview.Form
	searchInput      *tview.InputField
	ticketsTable     *tview.Table
	detailsView      *tview.TextView
	statusBar        *tview.TextView

	focusedPane FocusTarget
	// syncing is set while widgets are updated from controller state so their
	// change callbacks do not feed the values back.
	syncing    bool
	tickets    []ticketapi.Ticket
	selectedID ticketapi.TicketID
	flash      string
	backendErr error
	markdown   *markdownRenderer

	queueUpdateDraw func(func())

	// UI update mutex (for test safety when queueUpdateDraw executes immediately)
	uiUpdateMu sync.Mutex
}

// NewApp creates a new application instance.
func NewApp(api Backend, cfg config.Config) *App {
	return newApp(api, cfg, clock.Real())
}

func newApp(api Backend, cfg config.Config, clk clock.Clock) *App {
	theme := ResolveTheme(cfg.Theme)
	locale := cfg.LanguageTag()

	a := &App{
		app:         tview.NewApplication(),
		api:         api,
		config:      cfg,
		clock:       clk,
		locale:      locale,
		theme:       theme,
		themeTags:   NewThemeTags(theme),
		signal:      async.NewRefreshSignal(),
		pages:       tview.NewPages(),
		focusedPane: FocusTickets,
		markdown:    newMarkdownRenderer(theme.MarkdownStyle),
	}
	a.queueUpdateDraw = func(f func()) {
		a.app.QueueUpdateDraw(f)
	}

	base := controller.Options{
		Clock:      clk,
		Dispatch:   a.QueueUpdateDraw,
		MessageTTL: cfg.MessageTTL,
	}

	listOpts := base
	listOpts.Delay = cfg.SearchDebounce
	listOpts.OnChange = a.renderList
	a.list = controller.NewList(api, a.signal, listOpts)

	formOpts := base
	formOpts.OnChange = a.renderForm
	classifyOpts := formOpts
	classifyOpts.Delay = cfg.ClassifyDebounce
	a.form = controller.NewForm(api, api, a.signal, formOpts, classifyOpts)

	statsOpts := base
	statsOpts.OnChange = a.renderStats
	a.stats = controller.NewStats(api, a.signal, statsOpts)

	a.commands = DefaultCommands()

	a.applyThemeStyles()
	a.buildLayout()
	a.bindGlobalKeys()

	return a
}

// Run starts the application and blocks until it exits.
func (a *App) Run() error {
	a.app.SetRoot(a.pages, true).EnableMouse(true)

	a.start()
	defer a.close()

	return a.app.Run()
}

// start kicks off the initial fetches and the backend health probe.
func (a *App) start() {
	logger.Info("tui.app: starting api_url=%s", a.config.APIBaseURL)
	a.list.Start()
	a.stats.Start()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		err := a.api.Health(ctx)
		if err != nil {
			logger.ErrorWithErr(err, "tui.app: backend health check failed")
		}
		a.QueueUpdateDraw(func() {
			a.backendErr = err
			a.updateStatusBar()
		})
	}()
}

func (a *App) close() {
	a.list.Close()
	a.stats.Close()
	a.form.Close()
}

func (a *App) applyThemeStyles() {
	tview.Styles.PrimitiveBackgroundColor = a.theme.Background
	tview.Styles.ContrastBackgroundColor = a.theme.HeaderBg
	tview.Styles.MoreContrastBackgroundColor = a.theme.SelectionBg
	tview.Styles.BorderColor = a.theme.Border
	tview.Styles.TitleColor = a.theme.Foreground
	tview.Styles.GraphicsColor = a.theme.Border
	tview.Styles.PrimaryTextColor = a.theme.Foreground
	tview.Styles.SecondaryTextColor = a.theme.SecondaryText
	tview.Styles.TertiaryTextColor = a.theme.SecondaryText
	tview.Styles.InverseTextColor = a.theme.Background
	tview.Styles.ContrastSecondaryTextColor = a.theme.SecondaryText
}

func (a *App) buildLayout() {
	a.syncing = true
	defer func() { a.syncing = false }()

	a.statsView = tview.NewTextView().SetDynamicColors(true).SetWrap(true)
	a.statsView.SetBorder(true).SetTitle(" Stats ")

	a.buildFormPane()
	a.buildFilterBar()
	a.buildTicketsTable()

	a.detailsView = tview.NewTextView().SetDynamicColors(true).SetWrap(true).SetScrollable(true)
	a.detailsView.SetBorder(true).SetTitle(" Details ")

	a.statusBar = tview.NewTextView().SetDynamicColors(true)
	a.statusBar.SetBackgroundColor(a.theme.HeaderBg)

	formColumn := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.formView, 0, 1, false).
		AddItem(a.formMessage, 4, 0, false)
	formColumn.SetBorder(true).SetTitle(" New Ticket ")

	listColumn := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.filterBar, 3, 0, false).
		AddItem(a.ticketsTable, 0, 3, true).
		AddItem(a.detailsView, 0, 2, false)

	content := tview.NewFlex().
		AddItem(formColumn, 0, 2, false).
		AddItem(listColumn, 0, 5, true)

	a.mainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.statsView, 5, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.pages.AddPage("main", a.mainLayout, true, true)

	a.renderStats()
	a.renderForm()
	a.renderList()
	a.updateFocus()
}

func (a *App) buildFormPane() {
	a.titleInput = tview.NewInputField().
		SetLabel("Title ").
		SetPlaceholder("Short summary").
		SetAcceptanceFunc(func(text string, _ rune) bool {
			return utf8.RuneCountInString(text) <= controller.MaxTitleLength
		})
	a.titleInput.SetChangedFunc(func(text string) {
		if a.syncing {
			return
		}
		a.form.SetTitle(text)
	})

	a.descriptionInput = tview.NewTextArea().
		SetLabel("Description ").
		SetPlaceholder("Describe the problem")
	a.descriptionInput.SetSize(6, 0)
	a.descriptionInput.SetChangedFunc(func() {
		if a.syncing {
			return
		}
		a.form.SetDescription(a.descriptionInput.GetText())
	})

	categories := ticketapi.Categories()
	a.categoryDropDown = tview.NewDropDown().SetLabel("Category ")
	a.categoryDropDown.SetOptions(a.categoryLabels(categories), func(_ string, index int) {
		if a.syncing || index < 0 {
			return
		}
		a.form.SetCategory(categories[index])
	})

	priorities := ticketapi.Priorities()
	a.priorityDropDown = tview.NewDropDown().SetLabel("Priority ")
	a.priorityDropDown.SetOptions(a.priorityLabels(priorities), func(_ string, index int) {
		if a.syncing || index < 0 {
			return
		}
		a.form.SetPriority(priorities[index])
	})

	a.formView = tview.NewForm().
		AddFormItem(a.titleInput).
		AddFormItem(a.descriptionInput).
		AddFormItem(a.categoryDropDown).
		AddFormItem(a.priorityDropDown).
		AddButton("Submit", a.submitForm)
	a.formView.SetCancelFunc(func() {
		a.focus(FocusTickets)
	})

	a.formMessage = tview.NewTextView().SetDynamicColors(true).SetWrap(true)
}

func (a *App) buildFilterBar() {
	a.searchInput = tview.NewInputField().
		SetLabel("Search ").
		SetPlaceholder("title or description")
	a.searchInput.SetChangedFunc(func(text string) {
		if a.syncing {
			return
		}
		a.list.SetSearchInput(text)
	})
	a.searchInput.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			a.list.FlushSearch()
			a.focus(FocusTickets)
		case tcell.KeyEscape:
			a.clearSearch()
			a.focus(FocusTickets)
		case tcell.KeyTab:
			a.focus(FocusFilters)
		}
	})

	anyLabel := "Any"
	categories := ticketapi.Categories()
	category := tview.NewDropDown().SetLabel("Category ")
	category.SetOptions(append([]string{anyLabel}, a.categoryLabels(categories)...), func(_ string, index int) {
		if a.syncing || index < 0 {
			return
		}
		var c ticketapi.Category
		if index > 0 {
			c = categories[index-1]
		}
		a.list.Apply(controller.SetCategory(c))
	})
	category.SetCurrentOption(0)

	priorities := ticketapi.Priorities()
	priority := tview.NewDropDown().SetLabel("Priority ")
	priority.SetOptions(append([]string{anyLabel}, a.priorityLabels(priorities)...), func(_ string, index int) {
		if a.syncing || index < 0 {
			return
		}
		var p ticketapi.Priority
		if index > 0 {
			p = priorities[index-1]
		}
		a.list.Apply(controller.SetPriority(p))
	})
	priority.SetCurrentOption(0)

	statuses := ticketapi.Statuses()
	statusLabels := []string{anyLabel}
	for _, s := range statuses {
		statusLabels = append(statusLabels, controller.StatusLabel(s, a.locale))
	}
	status := tview.NewDropDown().SetLabel("Status ")
	status.SetOptions(statusLabels, func(_ string, index int) {
		if a.syncing || index < 0 {
			return
		}
		var s ticketapi.Status
		if index > 0 {
			s = statuses[index-1]
		}
		a.list.Apply(controller.SetStatus(s))
	})
	status.SetCurrentOption(0)

	orderings := ticketapi.Orderings()
	ordering := tview.NewDropDown().SetLabel("Order ")
	ordering.SetOptions([]string{"Newest", "Oldest"}, func(_ string, index int) {
		if a.syncing || index < 0 {
			return
		}
		a.list.Apply(controller.SetOrdering(orderings[index]))
	})
	ordering.SetCurrentOption(0)

	a.filterForm = tview.NewForm().SetHorizontal(true).
		AddFormItem(category).
		AddFormItem(priority).
		AddFormItem(status).
		AddFormItem(ordering)
	a.filterForm.SetBorderPadding(0, 0, 1, 1)
	a.filterForm.SetCancelFunc(func() {
		a.focus(FocusTickets)
	})

	a.filterBar = tview.NewFlex().
		AddItem(a.searchInput, 0, 2, false).
		AddItem(a.filterForm, 0, 5, false)
	a.filterBar.SetBorder(true).SetTitle(" Filters ")
}

func (a *App) buildTicketsTable() {
	a.ticketsTable = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.ticketsTable.SetBorder(true).SetTitle(" Tickets ")
	a.ticketsTable.SetSelectedStyle(tcell.StyleDefault.
		Foreground(a.theme.SelectionText).
		Background(a.theme.SelectionBg).
		Bold(true))
	a.ticketsTable.SetSelectionChangedFunc(func(row, _ int) {
		if a.syncing {
			return
		}
		a.onTicketHighlighted(row)
	})
	a.ticketsTable.SetSelectedFunc(func(row, _ int) {
		a.onTicketHighlighted(row)
		a.cycleSelectedStatus()
	})
}

func (a *App) categoryLabels(categories []ticketapi.Category) []string {
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		labels = append(labels, displayLabel(string(c), a.locale))
	}
	return labels
}

func (a *App) priorityLabels(priorities []ticketapi.Priority) []string {
	labels := make([]string, 0, len(priorities))
	for _, p := range priorities {
		labels = append(labels, displayLabel(string(p), a.locale))
	}
	return labels
}

// bindGlobalKeys sets up global keyboard shortcuts.
func (a *App) bindGlobalKeys() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			a.app.Stop()
			return nil
		}

		// Text entry panes own every other key.
		switch a.focusedPane {
		case FocusForm:
			if event.Key() == tcell.KeyCtrlS {
				a.submitForm()
				return nil
			}
			return event
		case FocusFilters, FocusSearch:
			return event
		}

		switch event.Key() {
		case tcell.KeyEscape:
			if a.list.Snapshot().Filters.Search != "" || a.searchInput.GetText() != "" {
				a.clearSearch()
				return nil
			}
		case tcell.KeyTab, tcell.KeyBacktab:
			if a.focusedPane == FocusTickets {
				a.focus(FocusDetails)
			} else {
				a.focus(FocusTickets)
			}
			return nil
		case tcell.KeyRune:
			if event.Rune() == '/' {
				a.focus(FocusSearch)
				return nil
			}
		}

		switch a.focusedPane {
		case FocusTickets:
			return a.handleTicketsKey(event)
		case FocusDetails:
			return a.handleDetailsKey(event)
		}
		return event
	})
}

// handleTicketsKey runs command shortcuts while the ticket table is focused.
func (a *App) handleTicketsKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyRight:
		a.focus(FocusDetails)
		return nil
	case tcell.KeyRune:
		r := event.Rune()
		if r == 'l' {
			a.focus(FocusDetails)
			return nil
		}
		// j/k are handled by the table for up/down
		if r != 'j' && r != 'k' {
			for _, cmd := range a.commands {
				if cmd.ShortcutRune != 0 && cmd.ShortcutRune == r {
					cmd.Run(a)
					return nil
				}
			}
		}
	}
	return event
}

// handleDetailsKey handles keyboard input when details pane is focused.
func (a *App) handleDetailsKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft:
		a.focus(FocusTickets)
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'h':
			a.focus(FocusTickets)
			return nil
		case 'q':
			a.app.Stop()
			return nil
		}
	}
	return event
}

func (a *App) focus(target FocusTarget) {
	a.focusedPane = target
	a.updateFocus()
}

// updateFocus moves tview focus to the focused pane and highlights its border.
func (a *App) updateFocus() {
	borders := map[FocusTarget]*tview.Box{
		FocusTickets: a.ticketsTable.Box,
		FocusDetails: a.detailsView.Box,
		FocusFilters: a.filterBar.Box,
		FocusSearch:  a.filterBar.Box,
	}
	for _, box := range borders {
		box.SetBorderColor(a.theme.Border)
	}
	if box, ok := borders[a.focusedPane]; ok {
		box.SetBorderColor(a.theme.BorderFocus)
	}

	switch a.focusedPane {
	case FocusTickets:
		a.app.SetFocus(a.ticketsTable)
	case FocusDetails:
		a.app.SetFocus(a.detailsView)
	case FocusForm:
		a.app.SetFocus(a.formView)
	case FocusFilters:
		a.app.SetFocus(a.filterForm)
	case FocusSearch:
		a.app.SetFocus(a.searchInput)
	}
	a.updateStatusBar()
}

func (a *App) submitForm() {
	err := a.form.Submit()
	if errors.Is(err, controller.ErrSubmitDisabled) {
		if !a.form.Snapshot().Submitting {
			a.setFlash("Title and description are required.")
		}
		return
	}
	a.setFlash("")
}

func (a *App) clearSearch() {
	a.setSearchText("")
	a.list.ClearSearch()
}

func (a *App) setSearchText(text string) {
	prev := a.syncing
	a.syncing = true
	a.searchInput.SetText(text)
	a.syncing = prev
}

func (a *App) refreshAll() {
	logger.Debug("tui.app: manual refresh")
	a.list.Refresh()
	a.stats.Refresh()
}

func (a *App) cycleSelectedStatus() {
	ticket := a.GetSelectedTicket()
	if ticket == nil {
		return
	}
	if !a.list.CycleStatus(ticket.ID) {
		logger.Debug("tui.app: status cycle skipped id=%s", ticket.ID)
	}
}

func (a *App) toggleOrdering() {
	next := ticketapi.OrderingOldest
	if a.list.Snapshot().Filters.Ordering == ticketapi.OrderingOldest {
		next = ticketapi.OrderingNewest
	}
	a.list.Apply(controller.SetOrdering(next))
	a.syncFilterWidgets()
}

func (a *App) clearFilters() {
	a.list.Apply(controller.ClearFilters())
	a.setSearchText("")
	a.list.ClearSearch()
	a.syncFilterWidgets()
}

// syncFilterWidgets shows the list's filter state in the filter dropdowns.
func (a *App) syncFilterWidgets() {
	f := a.list.Snapshot().Filters
	prev := a.syncing
	a.syncing = true
	defer func() { a.syncing = prev }()

	setOption := func(index int, value string, options []string) {
		dd, ok := a.filterForm.GetFormItem(index).(*tview.DropDown)
		if !ok {
			return
		}
		selected := 0
		for i, o := range options {
			if o == value {
				selected = i + 1
			}
		}
		dd.SetCurrentOption(selected)
	}

	categories := make([]string, 0, 4)
	for _, c := range ticketapi.Categories() {
		categories = append(categories, string(c))
	}
	priorities := make([]string, 0, 4)
	for _, p := range ticketapi.Priorities() {
		priorities = append(priorities, string(p))
	}
	statuses := make([]string, 0, 4)
	for _, s := range ticketapi.Statuses() {
		statuses = append(statuses, string(s))
	}
	setOption(0, string(f.Category), categories)
	setOption(1, string(f.Priority), priorities)
	setOption(2, string(f.Status), statuses)

	if dd, ok := a.filterForm.GetFormItem(3).(*tview.DropDown); ok {
		if f.Ordering == ticketapi.OrderingOldest {
			dd.SetCurrentOption(1)
		} else {
			dd.SetCurrentOption(0)
		}
	}
}

func (a *App) onTicketHighlighted(row int) {
	index := row - 1
	if index < 0 || index >= len(a.tickets) {
		return
	}
	a.selectedID = a.tickets[index].ID
	a.renderDetails()
}

// GetSelectedTicket returns the highlighted ticket, if any.
func (a *App) GetSelectedTicket() *ticketapi.Ticket {
	for i := range a.tickets {
		if a.tickets[i].ID == a.selectedID {
			t := a.tickets[i]
			return &t
		}
	}
	return nil
}

func (a *App) setFlash(msg string) {
	a.flash = msg
	a.updateStatusBar()
}

// QueueUpdateDraw queues a UI update function to be run in the main thread.
func (a *App) QueueUpdateDraw(f func()) {
	if a.queueUpdateDraw != nil {
		// Serialize UI updates when test overrides queueUpdateDraw to execute immediately
		a.uiUpdateMu.Lock()
		defer a.uiUpdateMu.Unlock()
		a.queueUpdateDraw(f)
		return
	}
	a.app.QueueUpdateDraw(f)
}

// updateStatusBar updates the status bar with current information.
func (a *App) updateStatusBar() {
	if a.statusBar == nil || a.list == nil {
		return
	}
	keyColor := a.themeTags.SecondaryText

	var helpText string
	switch a.focusedPane {
	case FocusTickets:
		helpText = keyColor + a.shortcutHelp() + "[-]"
	case FocusDetails:
		helpText = fmt.Sprintf("%sj/k: scroll | ←/h/Tab: tickets | /: search | q: quit[-]", keyColor)
	case FocusForm:
		helpText = fmt.Sprintf("%sTab: next field | Ctrl+S: submit | Esc: back[-]", keyColor)
	case FocusFilters:
		helpText = fmt.Sprintf("%sTab: next filter | Enter: choose | Esc: back[-]", keyColor)
	case FocusSearch:
		helpText = fmt.Sprintf("%sEnter: search now | Esc: clear | Tab: filters[-]", keyColor)
	}

	s := a.list.Snapshot()
	parts := []string{helpText}

	if s.Filters.Search != "" {
		parts = append(parts, fmt.Sprintf("%s🔍 %s[-]", a.themeTags.Warning, tview.Escape(s.Filters.Search)))
	}
	switch {
	case a.backendErr != nil:
		parts = append(parts, fmt.Sprintf("%sBackend unreachable at %s[-]", a.themeTags.Error, tview.Escape(a.config.APIBaseURL)))
	case s.Notice != "":
		parts = append(parts, a.themeTags.Warning+s.Notice+"[-]")
	case a.flash != "":
		parts = append(parts, a.themeTags.Warning+tview.Escape(a.flash)+"[-]")
	}

	switch {
	case s.Loading:
		parts = append(parts, a.themeTags.Warning+"Loading...[-]")
	case s.Error != "":
		parts = append(parts, a.themeTags.Error+s.Error+"[-]")
	case len(s.Tickets) == 0:
		parts = append(parts, a.themeTags.SecondaryText+"No tickets[-]")
	default:
		parts = append(parts, fmt.Sprintf("%s%d of %s tickets[-]", a.themeTags.Accent, len(s.Tickets), formatCount(s.Meta.Count, a.locale)))
	}

	sep := fmt.Sprintf("%s | [-]", a.themeTags.Border)
	a.statusBar.SetText(strings.Join(parts, sep))
}

// shortcutHelp lists the command shortcuts for the ticket table.
func (a *App) shortcutHelp() string {
	items := []string{"j/k: navigate", "Enter: cycle status", "/: search"}
	for _, cmd := range a.commands {
		if cmd.ShortcutRune == 0 || !cmd.ShowInHelp {
			continue
		}
		items = append(items, fmt.Sprintf("%s: %s", strings.ToLower(FormatShortcut(cmd.ShortcutRune)), cmd.Short))
	}
	return strings.Join(items, " | ")
}
