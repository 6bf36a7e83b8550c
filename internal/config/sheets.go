package config

import (
	"github.com/Veraticus/caseworker/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig loads Google Sheets export settings. Values come from
// v (config file or CASEWORKER_SHEETS_* variables) first, then from the
// GOOGLE_SHEETS_* variables, then defaults.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()
	config.SpreadsheetName = ""

	config.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	config.ClientID = v.GetString("sheets.client_id")
	config.ClientSecret = v.GetString("sheets.client_secret")
	config.RefreshToken = v.GetString("sheets.refresh_token")
	config.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	config.SpreadsheetName = v.GetString("sheets.spreadsheet_name")
	if tz := v.GetString("sheets.time_zone"); tz != "" {
		config.TimeZone = tz
	}

	config.LoadFromEnv()
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)

	// A saved browser sign-in only matters for user credentials.
	if config.ServiceAccountPath == "" && config.RefreshToken == "" {
		config.TokenFile = ExpandPath(v.GetString("sheets.token_file"))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
