package components

import (
	"strings"

	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/tui/themes"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	fieldAmount = iota
	fieldDescription
)

// TransactionFormModel collects a manual transaction.
type TransactionFormModel struct {
	theme  themes.Theme
	err    string
	inputs []textinput.Model
	focus  int
}

// NewTransactionForm creates the add-transaction form.
func NewTransactionForm(theme themes.Theme) TransactionFormModel {
	amount := textinput.New()
	amount.Placeholder = "e.g. 50000"
	amount.Prompt = "Amount:      "
	amount.CharLimit = 20
	amount.Focus()

	description := textinput.New()
	description.Prompt = "Description: "
	description.CharLimit = 200
	description.SetValue(model.DefaultManualDescription)

	return TransactionFormModel{
		theme:  theme,
		inputs: []textinput.Model{amount, description},
	}
}

// SetError shows a validation message under the inputs.
func (m *TransactionFormModel) SetError(msg string) {
	m.err = msg
}

// Update handles messages.
func (m TransactionFormModel) Update(msg tea.Msg) (TransactionFormModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, func() tea.Msg { return FormCanceledMsg{} }

		case "tab", "shift+tab", "up", "down":
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			return m, m.inputs[m.focus].Focus()

		case "enter":
			if m.focus == fieldAmount {
				m.inputs[m.focus].Blur()
				m.focus = fieldDescription
				return m, m.inputs[m.focus].Focus()
			}
			submitted := TransactionSubmittedMsg{
				Amount:      m.inputs[fieldAmount].Value(),
				Description: m.inputs[fieldDescription].Value(),
			}
			return m, func() tea.Msg { return submitted }
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.err = ""
	return m, cmd
}

// View renders the form.
func (m TransactionFormModel) View() string {
	lines := []string{m.theme.Title.Render("Add Manual Transaction")}
	for _, in := range m.inputs {
		lines = append(lines, in.View())
	}
	if m.err != "" {
		lines = append(lines, "", m.theme.StatusError.Render(m.err))
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(m.theme.Muted).
		Render(strings.Join([]string{"[Tab] Next field", "[Enter] Submit", "[Esc] Cancel"}, "  ")))

	return m.theme.RoundedBox.Width(60).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
