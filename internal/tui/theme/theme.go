// Package theme holds the colors and styles shared by the operator review
// screens.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines all colors for the review screens
type Theme struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color

	Text      lipgloss.Color
	TextMuted lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color
}

// Current is the active theme
var Current = DefaultTheme()

// DefaultTheme returns the default warm theme
func DefaultTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("#D2A679"), // sandy terracotta
		Accent:  lipgloss.Color("#D2A679"),

		Text:      lipgloss.Color("#F0F0F0"),
		TextMuted: lipgloss.Color("#888888"),

		Success: lipgloss.Color("#10B981"),
		Warning: lipgloss.Color("#F59E0B"),
		Error:   lipgloss.Color("#EF4444"),

		Border:      lipgloss.Color("#3d3d3d"),
		BorderFocus: lipgloss.Color("#D2A679"),
	}
}

// Styles are the rendered styles built from a Theme
type Styles struct {
	Title  lipgloss.Style
	Reason lipgloss.Style
	Prompt lipgloss.Style
	Hint   lipgloss.Style
	Error  lipgloss.Style
	Frame  lipgloss.Style
}

// Styles builds the styles for t
func (t Theme) Styles() Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Reason: lipgloss.NewStyle().Foreground(t.Warning),
		Prompt: lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Hint:   lipgloss.NewStyle().Foreground(t.TextMuted),
		Error:  lipgloss.NewStyle().Foreground(t.Error),
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.BorderFocus),
	}
}
