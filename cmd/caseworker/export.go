package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/caseworker/internal/cli"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/Veraticus/caseworker/internal/dossier"
	"github.com/Veraticus/caseworker/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <user-id>",
		Short: "Export a user's dossier to Google Sheets",
		Long: `Write a user's profile, alerts and transactions to a tab of a Google
Sheets spreadsheet.

Authentication uses either a service account (sheets.service_account_path)
or OAuth2 user credentials (sheets.client_id and sheets.client_secret).
With user credentials, --authorize runs the browser sign-in and saves the
token for later exports.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().Bool("authorize", false, "Run the browser sign-in before exporting")
	cmd.Flags().String("spreadsheet-id", "", "Spreadsheet to write to (overrides sheets.spreadsheet_id)")

	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet-id"))

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}

	sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("google sheets is not configured: %w", err)
	}

	if authorize, _ := cmd.Flags().GetBool("authorize"); authorize {
		if sheetsConfig.ServiceAccountPath != "" {
			slog.Info("Service account configured, skipping browser sign-in")
		} else {
			_, err := sheets.GetOrCreateToken(ctx, sheets.OAuth2Config{
				ClientID:     sheetsConfig.ClientID,
				ClientSecret: sheetsConfig.ClientSecret,
				TokenFile:    sheetsConfig.TokenFile,
				OpenURL: func(url string) {
					fmt.Fprintln(out, cli.FormatPrompt("Open this URL in your browser to authorize access:"))
					fmt.Fprintln(out, url)
				},
			})
			if err != nil {
				return fmt.Errorf("sheets authorization failed: %w", err)
			}
		}
	}

	b, err := initBackend(ctx)
	if err != nil {
		return err
	}

	d, err := dossier.NewLoader(b.client).Load(ctx, userID, dossier.Full)
	if err != nil {
		return err
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default())
	if err != nil {
		return err
	}

	url, err := writer.Write(ctx, d)
	if err != nil {
		return fmt.Errorf("failed to export dossier: %w", err)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported %s to %s", d.Profile.FullName, url)))
	return err
}
