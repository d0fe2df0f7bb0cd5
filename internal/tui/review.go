// Package tui renders the full-screen operator review used with --tui.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/simonyos/wfgen/internal/pipeline"
	"github.com/simonyos/wfgen/internal/tui/theme"
)

const invalidHint = "Enter y to regenerate or n to accept."

// reviewModel shows one failed candidate and collects the operator decision
type reviewModel struct {
	candidate string
	reason    string

	viewport viewport.Model
	input    textinput.Model
	renderer *glamour.TermRenderer
	styles   theme.Styles

	width  int
	height int
	ready  bool
	hint   string

	decided  bool
	approved bool
	aborted  bool
}

func newReviewModel(candidate, reason string) reviewModel {
	ti := textinput.New()
	ti.Placeholder = "y / n"
	ti.Prompt = "Regenerate this workflow? "
	ti.CharLimit = 16
	ti.Focus()

	styles := theme.Current.Styles()
	ti.PromptStyle = styles.Prompt
	ti.PlaceholderStyle = styles.Hint

	return reviewModel{
		candidate: candidate,
		reason:    reason,
		input:     ti,
		styles:    styles,
	}
}

// Init initializes the review screen
func (m reviewModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit

		case "enter":
			approved, ok := pipeline.ParseDecision(m.input.Value())
			if !ok {
				m.hint = invalidHint
				m.input.Reset()
				return m, nil
			}
			m.decided = true
			m.approved = approved
			return m, tea.Quit

		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Layout dimensions
		headerHeight := lipgloss.Height(m.header())
		footerHeight := 3
		frameHeight := 2
		vpHeight := max(msg.Height-headerHeight-footerHeight-frameHeight, 3)

		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = vpHeight
		}
		m.input.Width = msg.Width - lipgloss.Width(m.input.Prompt) - 2

		// Use dark style explicitly to avoid terminal color queries
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(max(msg.Width-10, 20)),
		)
		m.viewport.SetContent(m.renderCandidate())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m reviewModel) renderCandidate() string {
	if m.renderer == nil {
		return m.candidate
	}
	out, err := m.renderer.Render(m.candidate)
	if err != nil {
		return m.candidate
	}
	return out
}

func (m reviewModel) header() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Automated check failed"))
	b.WriteString("\n")
	b.WriteString(m.styles.Reason.Width(max(m.width-2, 20)).Render(m.reason))
	return b.String()
}

// View renders the review screen
func (m reviewModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.styles.Frame.Render(m.viewport.View()))
	b.WriteString("\n")
	if m.hint != "" {
		b.WriteString(m.styles.Error.Render(m.hint))
	} else {
		b.WriteString(m.styles.Hint.Render("↑/↓ pgup/pgdown scroll · y regenerate · n accept · esc quit"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}
