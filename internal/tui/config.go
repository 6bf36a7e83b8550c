package tui

import (
	"time"

	"github.com/Veraticus/caseworker/internal/actions"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/Veraticus/caseworker/internal/directory"
	"github.com/Veraticus/caseworker/internal/dossier"
	"github.com/Veraticus/caseworker/internal/tui/themes"
)

// Backend is everything the dashboard asks of the compliance API.
type Backend interface {
	actions.Backend
	dossier.Source
	directory.Lister
}

// Config holds TUI configuration.
type Config struct {
	Theme            themes.Theme
	Backend          Backend
	Poll             config.PollConfig
	Actions          config.ActionsConfig
	WarnSize         int
	SnackbarDuration time.Duration
	Width            int
	Height           int
	AltScreen        bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:            themes.Default,
		WarnSize:         directory.DefaultWarnSize,
		SnackbarDuration: 4 * time.Second,
		Width:            80,
		Height:           24,
		AltScreen:        true,
		Actions: config.ActionsConfig{
			KYCSettleDelay: actions.DefaultKYCSettleDelay,
			TxSettleDelay:  actions.DefaultTxSettleDelay,
		},
	}
}

// WithBackend sets the API backend.
func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithPollConfig sets the job poller timing.
func WithPollConfig(p config.PollConfig) Option {
	return func(c *Config) {
		c.Poll = p
	}
}

// WithActionsConfig sets the settle delays.
func WithActionsConfig(a config.ActionsConfig) Option {
	return func(c *Config) {
		c.Actions = a
	}
}

// WithWarnSize sets the user count above which a warning is logged.
func WithWarnSize(n int) Option {
	return func(c *Config) {
		c.WarnSize = n
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithSnackbarDuration sets how long status messages stay visible.
func WithSnackbarDuration(d time.Duration) Option {
	return func(c *Config) {
		c.SnackbarDuration = d
	}
}

// WithAltScreen toggles the alternate screen buffer.
func WithAltScreen(enabled bool) Option {
	return func(c *Config) {
		c.AltScreen = enabled
	}
}
