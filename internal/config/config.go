package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/caseworker/internal/common"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Auth      AuthConfig
	Logging   LoggingConfig
	API       APIConfig
	Metrics   MetricsConfig
	Poll      PollConfig
	Actions   ActionsConfig
	Directory DirectoryConfig
}

// APIConfig points the client at the backend.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig describes how session tokens are obtained and sent.
type AuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	TokenFile    string
	// Header overrides the Authorization header for backends that expect
	// the token under a custom name.
	Header string
	Scopes []string
}

// PollConfig controls the job poller.
type PollConfig struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
}

// ActionsConfig holds settle delays for actions that return no job id.
type ActionsConfig struct {
	KYCSettleDelay time.Duration
	TxSettleDelay  time.Duration
}

// DirectoryConfig tunes the user listing.
type DirectoryConfig struct {
	WarnSize int
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string
}

// LoggingConfig mirrors the --log-* flags.
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", 60*time.Second)

	v.SetDefault("auth.token_file", filepath.Join(Dir(), "token.json"))

	v.SetDefault("poll.initial_delay", 2*time.Second)
	v.SetDefault("poll.interval", 2*time.Second)
	v.SetDefault("poll.max_attempts", 20)

	v.SetDefault("actions.kyc_settle_delay", 3*time.Second)
	v.SetDefault("actions.tx_settle_delay", 2*time.Second)

	v.SetDefault("directory.warn_size", 5000)

	v.SetDefault("sheets.token_file", filepath.Join(Dir(), "sheets-token.json"))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", filepath.Join(Dir(), "caseworker.log"))
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("api.base_url"), "/"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Auth: AuthConfig{
			TokenURL:     v.GetString("auth.token_url"),
			ClientID:     v.GetString("auth.client_id"),
			ClientSecret: v.GetString("auth.client_secret"),
			TokenFile:    ExpandPath(v.GetString("auth.token_file")),
			Header:       v.GetString("auth.header"),
			Scopes:       v.GetStringSlice("auth.scopes"),
		},
		Poll: PollConfig{
			InitialDelay: v.GetDuration("poll.initial_delay"),
			Interval:     v.GetDuration("poll.interval"),
			MaxAttempts:  v.GetInt("poll.max_attempts"),
		},
		Actions: ActionsConfig{
			KYCSettleDelay: v.GetDuration("actions.kyc_settle_delay"),
			TxSettleDelay:  v.GetDuration("actions.tx_settle_delay"),
		},
		Directory: DirectoryConfig{
			WarnSize: v.GetInt("directory.warn_size"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
			File:   ExpandPath(v.GetString("logging.file")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the client cannot work with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", common.ErrMissingConfig)
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api.base_url must be an http(s) URL, got %q", common.ErrInvalidConfig, c.API.BaseURL)
	}

	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("%w: poll.max_attempts must be positive", common.ErrInvalidConfig)
	}
	if c.Poll.Interval < 0 || c.Poll.InitialDelay < 0 {
		return fmt.Errorf("%w: poll delays cannot be negative", common.ErrInvalidConfig)
	}
	if c.Actions.KYCSettleDelay < 0 || c.Actions.TxSettleDelay < 0 {
		return fmt.Errorf("%w: settle delays cannot be negative", common.ErrInvalidConfig)
	}

	hasClientID := c.Auth.ClientID != ""
	hasSecret := c.Auth.ClientSecret != ""
	if hasClientID != hasSecret {
		return fmt.Errorf("%w: auth.client_id and auth.client_secret must be set together", common.ErrInvalidConfig)
	}
	if hasClientID && c.Auth.TokenURL == "" {
		return fmt.Errorf("%w: auth.token_url is required for client credentials", common.ErrMissingConfig)
	}

	return nil
}
