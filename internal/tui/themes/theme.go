// Package themes defines the dashboard color schemes.
package themes

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the visual style for the TUI.
type Theme struct {
	Selected      lipgloss.Style
	StatusPending lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusWarning lipgloss.Style
	StatusSuccess lipgloss.Style
	Title         lipgloss.Style
	Subtitle      lipgloss.Style
	Normal        lipgloss.Style
	Bold          lipgloss.Style
	RoundedBox    lipgloss.Style
	BorderedBox   lipgloss.Style
	Label         lipgloss.Style
	Secondary     lipgloss.Color
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Foreground    lipgloss.Color
	Background    lipgloss.Color
	Info          lipgloss.Color
	Error         lipgloss.Color
	Warning       lipgloss.Color
	Success       lipgloss.Color
}

type palette struct {
	primary, secondary, success, warning, danger, info lipgloss.Color
	background, foreground, border, muted, subtle        lipgloss.Color
	selectedText                                         lipgloss.Color
}

func build(p palette) Theme {
	return Theme{
		Primary:    p.primary,
		Secondary:  p.secondary,
		Success:    p.success,
		Warning:    p.warning,
		Error:      p.danger,
		Info:       p.info,
		Background: p.background,
		Foreground: p.foreground,
		Border:     p.border,
		Muted:      p.muted,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.foreground).
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(p.subtle),
		Normal: lipgloss.NewStyle().
			Foreground(p.foreground),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.foreground),
		Label: lipgloss.NewStyle().
			Foreground(p.secondary).
			Width(14),
		Selected: lipgloss.NewStyle().
			Background(p.primary).
			Foreground(p.selectedText).
			Bold(true),

		BorderedBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.border).
			Padding(0, 1),
		RoundedBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.primary).
			Padding(1, 2),

		StatusSuccess: lipgloss.NewStyle().
			Foreground(p.success).
			Bold(true),
		StatusWarning: lipgloss.NewStyle().
			Foreground(p.warning).
			Bold(true),
		StatusError: lipgloss.NewStyle().
			Foreground(p.danger).
			Bold(true),
		StatusInfo: lipgloss.NewStyle().
			Foreground(p.info).
			Bold(true),
		StatusPending: lipgloss.NewStyle().
			Foreground(p.muted).
			Italic(true),
	}
}

// Default is the default theme.
var Default = build(palette{
	primary:      lipgloss.Color("#2563eb"),
	secondary:    lipgloss.Color("#93c5fd"),
	success:      lipgloss.Color("#10b981"),
	warning:      lipgloss.Color("#f59e0b"),
	danger:       lipgloss.Color("#ef4444"),
	info:         lipgloss.Color("#38bdf8"),
	background:   lipgloss.Color("#1a1a1a"),
	foreground:   lipgloss.Color("#fafafa"),
	border:       lipgloss.Color("#404040"),
	muted:        lipgloss.Color("#737373"),
	subtle:       lipgloss.Color("#a3a3a3"),
	selectedText: lipgloss.Color("#fafafa"),
})

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(palette{
	primary:      lipgloss.Color("#89b4fa"),
	secondary:    lipgloss.Color("#b4befe"),
	success:      lipgloss.Color("#a6e3a1"),
	warning:      lipgloss.Color("#f9e2af"),
	danger:       lipgloss.Color("#f38ba8"),
	info:         lipgloss.Color("#89dceb"),
	background:   lipgloss.Color("#1e1e2e"),
	foreground:   lipgloss.Color("#cdd6f4"),
	border:       lipgloss.Color("#45475a"),
	muted:        lipgloss.Color("#6c7086"),
	subtle:       lipgloss.Color("#a6adc8"),
	selectedText: lipgloss.Color("#1e1e2e"),
})

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	switch name {
	case "catppuccin-mocha":
		return CatppuccinMocha
	default:
		return Default
	}
}

// alertIcons maps alert type keywords to icons, checked in order.
var alertIcons = []struct {
	keyword string
	icon    string
}{
	{"GRAPH", "🕸️"},
	{"KYC", "🪪"},
	{"VELOCITY", "⚡"},
	{"STRUCTUR", "🧱"},
	{"AMOUNT", "💰"},
	{"GEO", "🌍"},
}

// AlertIcon returns an icon for an alert type.
func AlertIcon(alertType string) string {
	upper := strings.ToUpper(alertType)
	for _, a := range alertIcons {
		if strings.Contains(upper, a.keyword) {
			return a.icon
		}
	}
	return "🚨"
}
