package config

import (
	"testing"
	"time"

	"github.com/Veraticus/caseworker/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Poll.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 20, cfg.Poll.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Actions.KYCSettleDelay)
	assert.Equal(t, 2*time.Second, cfg.Actions.TxSettleDelay)
	assert.NotEmpty(t, cfg.Auth.TokenFile)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("api.base_url", "https://compliance.example.com/")
	v.Set("poll.interval", "500ms")
	v.Set("poll.max_attempts", 5)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://compliance.example.com", cfg.API.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Interval)
	assert.Equal(t, 5, cfg.Poll.MaxAttempts)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			API:  APIConfig{BaseURL: "http://localhost:8000"},
			Poll: PollConfig{Interval: time.Second, MaxAttempts: 20},
		}
	}

	tests := []struct {
		wantErr error
		mutate  func(*Config)
		name    string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: common.ErrMissingConfig},
		{name: "not http", mutate: func(c *Config) { c.API.BaseURL = "ftp://x" }, wantErr: common.ErrInvalidConfig},
		{name: "zero attempts", mutate: func(c *Config) { c.Poll.MaxAttempts = 0 }, wantErr: common.ErrInvalidConfig},
		{name: "negative interval", mutate: func(c *Config) { c.Poll.Interval = -time.Second }, wantErr: common.ErrInvalidConfig},
		{name: "client id without secret", mutate: func(c *Config) { c.Auth.ClientID = "id" }, wantErr: common.ErrInvalidConfig},
		{
			name: "client credentials without token url",
			mutate: func(c *Config) {
				c.Auth.ClientID = "id"
				c.Auth.ClientSecret = "secret"
			},
			wantErr: common.ErrMissingConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("CASEWORKER_TEST_DIR", "/tmp/cw")
	assert.Equal(t, "/tmp/cw/token.json", ExpandPath("$CASEWORKER_TEST_DIR/token.json"))
	assert.Equal(t, "", ExpandPath(""))

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/caseworker", Dir())
}
