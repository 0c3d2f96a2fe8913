// Package styles holds the colour theme and text styles for CLI reports.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/taskflow/internal/models"
)

// Theme represents a color scheme for the application
type Theme struct {
	Name string

	// Base colors
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	// Accent colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color

	// Semantic colors
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	Border lipgloss.Color
}

// TokyoNight is the default color theme
var TokyoNight = Theme{
	Name: "Tokyo Night",

	Foreground:    lipgloss.Color("#c0caf5"),
	ForegroundDim: lipgloss.Color("#565f89"),

	Primary:   lipgloss.Color("#7aa2f7"),
	Secondary: lipgloss.Color("#bb9af7"),
	Accent:    lipgloss.Color("#7dcfff"),

	Success: lipgloss.Color("#9ece6a"),
	Warning: lipgloss.Color("#e0af68"),
	Error:   lipgloss.Color("#f7768e"),
	Info:    lipgloss.Color("#7aa2f7"),

	Border: lipgloss.Color("#3b4261"),
}

// Current holds the active theme
var Current = TokyoNight

// MaxWidth is the widest a report line is allowed to grow (classic terminal width)
const MaxWidth = 80

// Styles holds the pre-computed styles for reports
type Styles struct {
	// Headings
	Title      lipgloss.Style
	TitleMuted lipgloss.Style
	Section    lipgloss.Style

	// Key/value rows in detail views
	Key   lipgloss.Style
	Value lipgloss.Style

	// Tags
	Tag lipgloss.Style

	// Task rows
	TaskID    lipgloss.Style
	TaskTitle lipgloss.Style
	Milestone lipgloss.Style
	Overdue   lipgloss.Style

	// Outcome messages
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Box around detail and stats views
	Panel lipgloss.Style
}

// NewStyles creates styles based on the current theme
func NewStyles() *Styles {
	t := Current

	return &Styles{
		Title: lipgloss.NewStyle().
			Foreground(t.Primary).
			Bold(true),

		TitleMuted: lipgloss.NewStyle().
			Foreground(t.ForegroundDim),

		Section: lipgloss.NewStyle().
			Foreground(t.Secondary).
			Bold(true).
			MarginTop(1),

		Key: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Width(12),

		Value: lipgloss.NewStyle().
			Foreground(t.Foreground),

		Tag: lipgloss.NewStyle().
			Foreground(t.Accent).
			MarginRight(1),

		TaskID: lipgloss.NewStyle().
			Foreground(t.ForegroundDim).
			Width(6),

		TaskTitle: lipgloss.NewStyle().
			Foreground(t.Foreground),

		Milestone: lipgloss.NewStyle().
			Foreground(t.Secondary).
			Bold(true),

		Overdue: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),

		Success: lipgloss.NewStyle().
			Foreground(t.Success),

		Warning: lipgloss.NewStyle().
			Foreground(t.Warning),

		Error: lipgloss.NewStyle().
			Foreground(t.Error).
			Bold(true),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1).
			MaxWidth(MaxWidth),
	}
}

// Priority returns the style for a priority label
func (s *Styles) Priority(p models.Priority) lipgloss.Style {
	t := Current
	style := lipgloss.NewStyle().Width(9)
	switch p {
	case models.PriorityCritical:
		return style.Foreground(t.Error).Bold(true)
	case models.PriorityHigh:
		return style.Foreground(t.Warning).Bold(true)
	case models.PriorityMedium:
		return style.Foreground(t.Info)
	}
	return style.Foreground(t.ForegroundDim)
}

// Status returns a style coloured with a status's own colour, falling back
// to the theme foreground when it has none
func (s *Styles) Status(color string) lipgloss.Style {
	style := lipgloss.NewStyle().Width(14)
	if color == "" {
		return style.Foreground(Current.Foreground)
	}
	return style.Foreground(lipgloss.Color(color))
}

// Swatch renders a coloured dot for a status or label colour
func (s *Styles) Swatch(color string) string {
	if color == "" {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}
