package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// List view
	Open   key.Binding
	Search key.Binding
	Reload key.Binding

	// Detail view
	KYC            key.Binding
	Graph          key.Binding
	Explain        key.Binding
	SAR            key.Binding
	AddTransaction key.Binding
	Refresh        key.Binding
	Back           key.Binding

	// Application
	Help        key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
	ClearScreen key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),

		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "open dossier"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("Ctrl+R", "reload users"),
		),

		KYC: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "run KYC check"),
		),
		Graph: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "network analysis"),
		),
		Explain: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "explain risk"),
		),
		SAR: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "draft SAR"),
		),
		AddTransaction: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add transaction"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "back"),
		),

		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("Ctrl+C", "force quit"),
		),
		ClearScreen: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("Ctrl+L", "clear screen"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Open, k.Quit}
}

// FullHelp returns all key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Open, k.Search, k.Reload},
		{k.KYC, k.Graph, k.Explain, k.SAR},
		{k.AddTransaction, k.Refresh, k.Back},
		{k.Help, k.Quit, k.ForceQuit},
	}
}
