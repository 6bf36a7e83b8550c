package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DossierViewModel shows a subject's profile, alerts and transactions.
type DossierViewModel struct {
	theme   themes.Theme
	dossier *model.Dossier
	table   table.Model
	width   int
	height  int
}

// NewDossierView creates an empty dossier view.
func NewDossierView(theme themes.Theme) DossierViewModel {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(false)
	s.Selected = theme.Selected
	t.SetStyles(s)

	// Letter keys belong to the detail actions.
	km := table.DefaultKeyMap()
	km.LineUp.SetKeys("up")
	km.LineDown.SetKeys("down")
	km.PageUp.SetKeys("pgup")
	km.PageDown.SetKeys("pgdown")
	km.HalfPageUp.SetKeys("ctrl+u")
	km.HalfPageDown.SetKeys("ctrl+d")
	km.GotoTop.SetKeys("home")
	km.GotoBottom.SetKeys("end")
	t.KeyMap = km

	m := DossierViewModel{
		theme:  theme,
		table:  t,
		width:  80,
		height: 24,
	}
	m.updateColumnWidths()
	return m
}

// SetDossier replaces the displayed dossier.
func (m *DossierViewModel) SetDossier(d *model.Dossier) {
	m.dossier = d

	rows := make([]table.Row, 0, len(d.Transactions))
	for _, t := range d.Transactions {
		ts := "-"
		if !t.Timestamp.IsZero() {
			ts = t.Timestamp.Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{
			strconv.Itoa(t.ID),
			ts,
			fmt.Sprintf("%.2f %s", t.Amount, t.Currency),
			t.Description,
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

// Dossier returns the displayed dossier, or nil before the first load.
func (m DossierViewModel) Dossier() *model.Dossier {
	return m.dossier
}

// Update forwards navigation to the transactions table.
func (m DossierViewModel) Update(msg tea.Msg) (DossierViewModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the dossier.
func (m DossierViewModel) View() string {
	if m.dossier == nil {
		return m.theme.StatusPending.Render("Loading user dossier...")
	}

	half := max(30, (m.width-3)/2)
	top := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.theme.BorderedBox.Width(half).Render(m.renderProfile()),
		" ",
		m.theme.BorderedBox.Width(half).Render(m.renderAlerts()),
	)

	txTitle := m.theme.Title.Render(fmt.Sprintf("Transactions (%d)", len(m.dossier.Transactions)))
	var txBody string
	if len(m.dossier.Transactions) == 0 {
		txBody = m.theme.StatusPending.Render("No transactions recorded.")
	} else {
		txBody = m.table.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, top, txTitle, txBody)
}

func (m DossierViewModel) renderProfile() string {
	p := m.dossier.Profile
	member := "-"
	if !p.CreatedAt.IsZero() {
		member = p.CreatedAt.Format("2006-01-02")
	}

	lines := []string{
		m.theme.Title.Render(p.FullName),
		m.theme.Label.Render("User ID") + strconv.Itoa(p.ID),
		m.theme.Label.Render("Email") + p.Email,
		m.theme.Label.Render("Country") + p.Country,
		m.theme.Label.Render("Member since") + member,
	}
	return strings.Join(lines, "\n")
}

func (m DossierViewModel) renderAlerts() string {
	alerts := m.dossier.Alerts
	title := m.theme.Title.Render(fmt.Sprintf("Alerts (%d open)", m.dossier.OpenAlerts()))
	if len(alerts) == 0 {
		return title + "\n" + m.theme.StatusPending.Render("No alerts for this user.")
	}

	// Each alert takes three lines.
	limit := max(1, (m.height/2-4)/3)
	var b strings.Builder
	b.WriteString(title)
	for i, a := range alerts {
		if i == limit {
			fmt.Fprintf(&b, "\n%s", m.theme.StatusPending.Render(fmt.Sprintf("+%d more", len(alerts)-limit)))
			break
		}
		status := m.theme.StatusPending.Render(string(a.Status))
		if a.IsOpen() {
			status = m.theme.StatusError.Render(string(a.Status))
		}
		fmt.Fprintf(&b, "\n%s %s %s\n  %s\n  %s",
			themes.AlertIcon(a.AlertType),
			m.theme.Bold.Render(a.AlertType),
			status,
			a.Message,
			m.theme.Subtitle.Render("AI: "+a.Summary()),
		)
	}
	return b.String()
}

// Resize updates the component size.
func (m *DossierViewModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(3, height/2-3))
	m.updateColumnWidths()
}

func (m *DossierViewModel) updateColumnWidths() {
	availableWidth := max(60, m.width-4)

	m.table.SetColumns([]table.Column{
		{Title: "ID", Width: max(5, int(float64(availableWidth)*0.08))},
		{Title: "Timestamp", Width: max(16, int(float64(availableWidth)*0.20))},
		{Title: "Amount", Width: max(12, int(float64(availableWidth)*0.18))},
		{Title: "Description", Width: max(20, int(float64(availableWidth)*0.50))},
	})
}
