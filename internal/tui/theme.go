package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/roeyazroel/ticket-tui/internal/ticketapi"
)

// Theme is the color palette used by every pane.
type Theme struct {
	Name          string
	Background    tcell.Color
	Foreground    tcell.Color
	HeaderBg      tcell.Color
	Border        tcell.Color
	BorderFocus   tcell.Color
	Accent        tcell.Color
	SecondaryText tcell.Color
	SelectionBg   tcell.Color
	SelectionText tcell.Color
	Success       tcell.Color
	Warning       tcell.Color
	Error         tcell.Color
	// Priority colors, lowest to highest.
	PriorityLow      tcell.Color
	PriorityMedium   tcell.Color
	PriorityHigh     tcell.Color
	PriorityCritical tcell.Color
	// MarkdownStyle is the glamour standard style for the details pane.
	MarkdownStyle string
}

// ThemeTags are tview color tags derived from a Theme.
type ThemeTags struct {
	Accent        string
	SecondaryText string
	Border        string
	Success       string
	Warning       string
	Error         string
}

func darkTheme() Theme {
	return Theme{
		Name:             "dark",
		Background:       tcell.NewRGBColor(24, 24, 32),
		Foreground:       tcell.NewRGBColor(220, 220, 230),
		HeaderBg:         tcell.NewRGBColor(36, 36, 48),
		Border:           tcell.NewRGBColor(70, 70, 90),
		BorderFocus:      tcell.NewRGBColor(120, 140, 255),
		Accent:           tcell.NewRGBColor(120, 140, 255),
		SecondaryText:    tcell.NewRGBColor(140, 140, 160),
		SelectionBg:      tcell.NewRGBColor(60, 70, 120),
		SelectionText:    tcell.NewRGBColor(255, 255, 255),
		Success:          tcell.NewRGBColor(80, 200, 120),
		Warning:          tcell.NewRGBColor(240, 190, 80),
		Error:            tcell.NewRGBColor(240, 90, 90),
		PriorityLow:      tcell.NewRGBColor(120, 180, 120),
		PriorityMedium:   tcell.NewRGBColor(200, 200, 120),
		PriorityHigh:     tcell.NewRGBColor(240, 150, 70),
		PriorityCritical: tcell.NewRGBColor(240, 80, 80),
		MarkdownStyle:    "dark",
	}
}

func lightTheme() Theme {
	return Theme{
		Name:             "light",
		Background:       tcell.NewRGBColor(250, 250, 250),
		Foreground:       tcell.NewRGBColor(30, 30, 40),
		HeaderBg:         tcell.NewRGBColor(232, 232, 238),
		Border:           tcell.NewRGBColor(190, 190, 200),
		BorderFocus:      tcell.NewRGBColor(60, 80, 200),
		Accent:           tcell.NewRGBColor(60, 80, 200),
		SecondaryText:    tcell.NewRGBColor(100, 100, 115),
		SelectionBg:      tcell.NewRGBColor(200, 210, 250),
		SelectionText:    tcell.NewRGBColor(20, 20, 30),
		Success:          tcell.NewRGBColor(30, 140, 70),
		Warning:          tcell.NewRGBColor(180, 120, 0),
		Error:            tcell.NewRGBColor(200, 40, 40),
		PriorityLow:      tcell.NewRGBColor(40, 130, 60),
		PriorityMedium:   tcell.NewRGBColor(140, 130, 20),
		PriorityHigh:     tcell.NewRGBColor(200, 100, 20),
		PriorityCritical: tcell.NewRGBColor(200, 30, 30),
		MarkdownStyle:    "light",
	}
}

// ResolveTheme returns the named theme, defaulting to dark.
func ResolveTheme(name string) Theme {
	if strings.EqualFold(strings.TrimSpace(name), "light") {
		return lightTheme()
	}
	return darkTheme()
}

// NewThemeTags builds color tags for inline text styling.
func NewThemeTags(theme Theme) ThemeTags {
	return ThemeTags{
		Accent:        colorTag(theme.Accent),
		SecondaryText: colorTag(theme.SecondaryText),
		Border:        colorTag(theme.Border),
		Success:       colorTag(theme.Success),
		Warning:       colorTag(theme.Warning),
		Error:         colorTag(theme.Error),
	}
}

// PriorityColor maps a priority to its display color.
func (t Theme) PriorityColor(p ticketapi.Priority) tcell.Color {
	switch p {
	case ticketapi.PriorityLow:
		return t.PriorityLow
	case ticketapi.PriorityMedium:
		return t.PriorityMedium
	case ticketapi.PriorityHigh:
		return t.PriorityHigh
	case ticketapi.PriorityCritical:
		return t.PriorityCritical
	default:
		return t.Foreground
	}
}

func colorTag(c tcell.Color) string {
	r, g, b := c.RGB()
	return fmt.Sprintf("[#%02x%02x%02x]", r, g, b)
}
