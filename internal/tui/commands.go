package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/roeyazroel/ticket-tui/internal/logger"
)

// FormatShortcut returns a human-readable string for a shortcut.
func FormatShortcut(r rune) string {
	if r == 0 {
		return ""
	}
	return strings.ToUpper(string(r))
}

// Command is an action bound to a key in the ticket table.
type Command struct {
	ID           string
	Title        string
	Short        string // label in the status bar help
	ShortcutRune rune
	ShowInHelp   bool
	Run          func(a *App)
}

// DefaultCommands returns the ticket table commands.
func DefaultCommands() []Command {
	return []Command{
		{
			ID:           "cycle_status",
			Title:        "Advance ticket status",
			Short:        "status",
			ShortcutRune: 's',
			Run: func(a *App) {
				a.cycleSelectedStatus()
			},
		},
		{
			ID:           "next_page",
			Title:        "Next page",
			Short:        "next",
			ShortcutRune: 'n',
			ShowInHelp:   true,
			Run: func(a *App) {
				if !a.list.NextPage() {
					a.setFlash("No next page")
				}
			},
		},
		{
			ID:           "prev_page",
			Title:        "Previous page",
			Short:        "prev",
			ShortcutRune: 'p',
			ShowInHelp:   true,
			Run: func(a *App) {
				if !a.list.PrevPage() {
					a.setFlash("No previous page")
				}
			},
		},
		{
			ID:           "new_ticket",
			Title:        "New ticket",
			Short:        "new",
			ShortcutRune: 'c',
			ShowInHelp:   true,
			Run: func(a *App) {
				a.focus(FocusForm)
			},
		},
		{
			ID:           "filters",
			Title:        "Edit filters",
			Short:        "filters",
			ShortcutRune: 'f',
			ShowInHelp:   true,
			Run: func(a *App) {
				a.focus(FocusFilters)
			},
		},
		{
			ID:           "toggle_order",
			Title:        "Toggle newest/oldest",
			Short:        "order",
			ShortcutRune: 'o',
			ShowInHelp:   true,
			Run: func(a *App) {
				a.toggleOrdering()
			},
		},
		{
			ID:           "clear_filters",
			Title:        "Clear filters and search",
			Short:        "clear",
			ShortcutRune: 'x',
			Run: func(a *App) {
				a.clearFilters()
			},
		},
		{
			ID:           "refresh",
			Title:        "Refresh tickets and stats",
			Short:        "refresh",
			ShortcutRune: 'r',
			ShowInHelp:   true,
			Run: func(a *App) {
				a.refreshAll()
			},
		},
		{
			ID:           "copy_id",
			Title:        "Copy ticket ID",
			Short:        "copy id",
			ShortcutRune: 'y',
			Run: func(a *App) {
				ticket := a.GetSelectedTicket()
				if ticket == nil {
					return
				}
				if err := copyToClipboard(string(ticket.ID)); err != nil {
					a.setFlash(fmt.Sprintf("Copy failed: %v", err))
					return
				}
				a.setFlash(fmt.Sprintf("Copied ticket %s", ticket.ID))
			},
		},
		{
			ID:           "quit",
			Title:        "Quit",
			Short:        "quit",
			ShortcutRune: 'q',
			ShowInHelp:   true,
			Run: func(a *App) {
				a.app.Stop()
			},
		},
	}
}

// copyToClipboard copies text to the system clipboard.
func copyToClipboard(text string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		cmd = exec.Command("xclip", "-selection", "clipboard")
	case "windows":
		cmd = exec.Command("clip")
	default:
		logger.Warning("tui.commands: unsupported OS for clipboard operations os=%s", runtime.GOOS)
		return nil
	}

	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		logger.ErrorWithErr(err, "tui.commands: clipboard command failed")
		return err
	}

	logger.Debug("tui.commands: copied to clipboard text_length=%d", len(text))
	return nil
}
