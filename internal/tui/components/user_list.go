package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/caseworker/internal/directory"
	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/tui/themes"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ListMode represents the current mode of the list.
type ListMode int

// List modes.
const (
	ModeNormal ListMode = iota
	ModeSearch
)

// UserListModel shows the user directory with client-side search.
type UserListModel struct {
	theme       themes.Theme
	users       []model.User
	filtered    []model.User
	searchInput textinput.Model
	table       table.Model
	mode        ListMode
	width       int
	height      int
}

// NewUserList creates a user list.
func NewUserList(users []model.User, theme themes.Theme) UserListModel {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(20),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(false)
	s.Selected = theme.Selected
	t.SetStyles(s)

	searchInput := textinput.New()
	searchInput.Placeholder = "Filter by name or email..."
	searchInput.CharLimit = 100
	searchInput.Prompt = "/ "

	m := UserListModel{
		theme:       theme,
		table:       t,
		searchInput: searchInput,
		width:       80,
		height:      24,
	}
	m.updateColumnWidths()
	m.SetUsers(users)
	return m
}

// SetUsers replaces the directory and reapplies the current filter.
func (m *UserListModel) SetUsers(users []model.User) {
	m.users = users
	m.applyFilter()
}

// Query returns the active search text.
func (m UserListModel) Query() string {
	return m.searchInput.Value()
}

// Searching reports whether the search input has focus.
func (m UserListModel) Searching() bool {
	return m.mode == ModeSearch
}

// Filtered returns the users matching the current search.
func (m UserListModel) Filtered() []model.User {
	return m.filtered
}

// Selected returns the highlighted user.
func (m UserListModel) Selected() (model.User, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return model.User{}, false
	}
	return m.filtered[i], true
}

// Update handles messages.
func (m UserListModel) Update(msg tea.Msg) (UserListModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.mode == ModeSearch {
		return m.handleSearchMode(keyMsg)
	}

	switch keyMsg.String() {
	case "/":
		m.mode = ModeSearch
		m.searchInput.Focus()
		return m, textinput.Blink

	case "enter":
		if user, ok := m.Selected(); ok {
			return m, func() tea.Msg {
				return UserSelectedMsg{User: user}
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// handleSearchMode filters as the analyst types. Enter keeps the filter,
// Esc clears it.
func (m UserListModel) handleSearchMode(msg tea.KeyMsg) (UserListModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.mode = ModeNormal
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.mode = ModeNormal
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

// View renders the user list.
func (m UserListModel) View() string {
	title := m.theme.Title.Render("Users")

	status := fmt.Sprintf("%d of %d users", len(m.filtered), len(m.users))
	if q := m.Query(); q != "" && m.mode == ModeNormal {
		status += fmt.Sprintf(" | Filter: %q", q)
	}
	subtitle := m.theme.Subtitle.Render(status)

	var body string
	if len(m.filtered) == 0 {
		body = m.theme.StatusPending.Render("No users match the current filter.")
	} else {
		body = m.table.View()
	}

	sections := []string{title, subtitle}
	if m.mode == ModeSearch {
		sections = append(sections, m.searchInput.View())
	}
	sections = append(sections, body, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m UserListModel) renderFooter() string {
	hints := []string{"[↑↓] Navigate", "[Enter] Open", "[/] Search", "[?] Help"}
	if m.mode == ModeSearch {
		hints = []string{"[Enter] Keep filter", "[Esc] Clear"}
	}
	return lipgloss.NewStyle().Foreground(m.theme.Muted).Render(strings.Join(hints, "  "))
}

func (m *UserListModel) applyFilter() {
	m.filtered = directory.Filter(m.users, m.searchInput.Value())

	rows := make([]table.Row, 0, len(m.filtered))
	for _, u := range m.filtered {
		created := "-"
		if !u.CreatedAt.IsZero() {
			created = u.CreatedAt.Format("2006-01-02")
		}
		rows = append(rows, table.Row{
			strconv.Itoa(u.ID),
			u.FullName,
			u.Email,
			u.Country,
			created,
		})
	}
	m.table.SetRows(rows)

	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

// Resize updates the component size.
func (m *UserListModel) Resize(width, height int) {
	m.width = width
	m.height = height

	// Title, subtitle, search line, header border and footer.
	m.table.SetHeight(max(1, height-6))
	m.updateColumnWidths()
}

func (m *UserListModel) updateColumnWidths() {
	availableWidth := max(60, m.width-4)

	m.table.SetColumns([]table.Column{
		{Title: "ID", Width: max(5, int(float64(availableWidth)*0.08))},
		{Title: "Name", Width: max(15, int(float64(availableWidth)*0.30))},
		{Title: "Email", Width: max(20, int(float64(availableWidth)*0.34))},
		{Title: "Country", Width: max(7, int(float64(availableWidth)*0.12))},
		{Title: "Created", Width: max(10, int(float64(availableWidth)*0.14))},
	})
}
