package config

import (
	"path/filepath"
	"testing"

	"github.com/Veraticus/caseworker/internal/sheets"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSheetsEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_SHEETS_CLIENT_ID",
		"GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
		"GOOGLE_SHEETS_SPREADSHEET_ID",
		"GOOGLE_SHEETS_SPREADSHEET_NAME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadSheetsConfig(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, v *viper.Viper)
		check   func(t *testing.T, c *sheets.Config)
		wantErr bool
	}{
		{
			name: "service account from viper",
			setup: func(t *testing.T, v *viper.Viper) {
				t.Helper()
				v.Set("sheets.service_account_path", "/keys/sa.json")
				v.Set("sheets.spreadsheet_id", "ss-1")
			},
			check: func(t *testing.T, c *sheets.Config) {
				t.Helper()
				assert.Equal(t, "/keys/sa.json", c.ServiceAccountPath)
				assert.Equal(t, "ss-1", c.SpreadsheetID)
				assert.Equal(t, sheets.DefaultSpreadsheetName, c.SpreadsheetName)
				assert.Empty(t, c.TokenFile)
			},
		},
		{
			name: "oauth from environment with saved token",
			setup: func(t *testing.T, v *viper.Viper) {
				t.Helper()
				t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "client")
				t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "secret")
				v.Set("sheets.token_file", filepath.Join("/tmp", "sheets.json"))
			},
			check: func(t *testing.T, c *sheets.Config) {
				t.Helper()
				assert.Equal(t, "client", c.ClientID)
				assert.Equal(t, "/tmp/sheets.json", c.TokenFile)
			},
		},
		{
			name: "viper wins over environment",
			setup: func(t *testing.T, v *viper.Viper) {
				t.Helper()
				t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "From Env")
				v.Set("sheets.spreadsheet_name", "From Config")
				v.Set("sheets.service_account_path", "/keys/sa.json")
			},
			check: func(t *testing.T, c *sheets.Config) {
				t.Helper()
				assert.Equal(t, "From Config", c.SpreadsheetName)
			},
		},
		{
			name:    "nothing configured",
			setup:   func(*testing.T, *viper.Viper) {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSheetsEnv(t)
			v := viper.New()
			tt.setup(t, v)

			cfg, err := LoadSheetsConfig(v)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}
