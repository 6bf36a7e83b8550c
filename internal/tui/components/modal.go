package components

import (
	"strings"

	"github.com/Veraticus/caseworker/internal/tui/themes"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ModalModel is a scrollable overlay for long backend output such as
// network reports and SAR drafts.
type ModalModel struct {
	theme    themes.Theme
	title    string
	viewport viewport.Model
}

// NewModal creates a modal showing body under title.
func NewModal(title, body string, width, height int, theme themes.Theme) ModalModel {
	w := max(40, width*4/5)
	h := max(8, height*3/4)

	vp := viewport.New(w-6, h-6)
	vp.SetContent(lipgloss.NewStyle().Width(w - 6).Render(body))

	return ModalModel{
		theme:    theme,
		title:    title,
		viewport: vp,
	}
}

// Title returns the modal title.
func (m ModalModel) Title() string {
	return m.title
}

// Update scrolls the content and closes on Esc, q or Enter.
func (m ModalModel) Update(msg tea.Msg) (ModalModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc", "q", "enter":
			return m, func() tea.Msg { return ModalClosedMsg{} }
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the modal box.
func (m ModalModel) View() string {
	footer := lipgloss.NewStyle().Foreground(m.theme.Muted).
		Render(strings.Join([]string{"[↑↓] Scroll", "[Esc] Close"}, "  "))

	return m.theme.RoundedBox.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		m.theme.Title.Render(m.title),
		m.viewport.View(),
		footer,
	))
}
