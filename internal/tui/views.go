package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/caseworker/internal/actions"
	"github.com/Veraticus/caseworker/internal/common"
	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/tui/themes"
	"github.com/charmbracelet/lipgloss"
)

// renderList renders the user directory screen.
func (m Model) renderList() string {
	if m.loadingUsers {
		return m.renderLoading("Loading users...")
	}
	if m.listErr != nil {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			m.theme.Title.Render("Users"),
			m.theme.StatusError.Render("Failed to load users: "+common.UserMessage(m.listErr)),
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Press Ctrl+R to retry, q to quit."),
		)
	}
	return m.userList.View()
}

// renderDetail renders the dossier screen for the current subject.
func (m Model) renderDetail() string {
	name := "User"
	if m.current != nil {
		name = fmt.Sprintf("%s (ID %d)", m.current.FullName, m.current.ID)
	}
	header := m.theme.Title.Render(name)

	var body string
	switch {
	case m.loading:
		body = m.renderLoading("Loading user dossier...")
	case m.detailErr != nil:
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			m.theme.StatusError.Render("Could not load this user: "+common.UserMessage(m.detailErr)),
			lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Press r to retry, Esc to go back."),
		)
	default:
		body = m.dossierView.View()
	}

	sections := []string{header}
	if running := m.renderProgress(); running != "" {
		sections = append(sections, running)
	}
	sections = append(sections, body, m.renderDetailFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderProgress lists running actions in a stable order.
func (m Model) renderProgress() string {
	if len(m.progress) == 0 {
		return ""
	}

	names := make([]string, 0, len(m.progress))
	for action := range m.progress {
		names = append(names, string(action))
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		action := actions.Action(name)
		lines = append(lines, fmt.Sprintf("%s %s: %s",
			m.spinner.View(),
			actionName(action),
			m.theme.StatusPending.Render(m.progress[action]),
		))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDetailFooter() string {
	hints := []string{
		"[k] KYC", "[g] Network", "[e] Explain risk", "[s] Draft SAR",
		"[a] Add transaction", "[r] Refresh", "[Esc] Back",
	}
	return lipgloss.NewStyle().Foreground(m.theme.Muted).Render(strings.Join(hints, "  "))
}

func (m Model) renderLoading(text string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		lipgloss.NewStyle().Foreground(m.theme.Primary).Render(m.spinner.View()),
		" ",
		m.theme.StatusPending.Render(text),
	)
}

// renderOverlay centers a form or modal over the screen.
func (m Model) renderOverlay(content string) string {
	return lipgloss.Place(
		m.width,
		max(1, m.height-1),
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}

// renderHelp renders the full key reference.
func (m Model) renderHelp() string {
	m.help.ShowAll = true
	m.help.Width = m.width
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.theme.Title.Render("Keyboard Shortcuts"),
		m.help.View(m.keymap),
		"",
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render("Press ? or Esc to close."),
	)
}

// wrapWithStatusBar appends the status bar below content.
func (m Model) wrapWithStatusBar(content string) string {
	bodyHeight := max(1, m.height-1)
	body := lipgloss.NewStyle().
		Width(m.width).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

// renderStatusBar renders the bottom bar: screen name, snackbar and help hint.
func (m Model) renderStatusBar() string {
	var left string
	switch m.state {
	case StateList:
		left = "Users"
	case StateDetail, StateForm, StateModal:
		left = "Dossier"
	case StateHelp:
		left = "Help"
	}

	center := m.snack
	centerStyle := m.theme.Normal
	switch m.snackLevel {
	case snackSuccess:
		centerStyle = m.theme.StatusSuccess
	case snackWarning:
		centerStyle = m.theme.StatusWarning
	case snackError:
		centerStyle = m.theme.StatusError
	}

	right := "? Help"

	spacing := max(2, m.width-lipgloss.Width(left)-lipgloss.Width(center)-lipgloss.Width(right)-2)
	leftPad := spacing / 2
	rightPad := spacing - leftPad

	status := fmt.Sprintf(" %s%s%s%s%s ",
		m.theme.StatusInfo.Render(left),
		strings.Repeat(" ", leftPad),
		centerStyle.Render(center),
		strings.Repeat(" ", rightPad),
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render(right),
	)

	return lipgloss.NewStyle().
		Background(m.theme.Border).
		MaxWidth(m.width).
		Render(status)
}

// renderGraph summarizes a network analysis result for the modal.
func renderGraph(theme themes.Theme, g *model.GraphResult) string {
	var b strings.Builder

	net, err := g.Network()
	if err != nil {
		b.WriteString(theme.StatusError.Render(err.Error()))
	} else {
		fmt.Fprintf(&b, "%s %d nodes, %d edges\n", theme.Bold.Render("Network:"), len(net.Nodes), net.Edges)
		for _, node := range net.Nodes {
			fmt.Fprintf(&b, "  • %s\n", node)
		}
	}

	b.WriteString("\n" + theme.Bold.Render("AI Investigator's Report") + "\n")
	b.WriteString(g.Explanation())
	return b.String()
}
