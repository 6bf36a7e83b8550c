package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Veraticus/caseworker/internal/auth"
	"github.com/Veraticus/caseworker/internal/cli"
	"github.com/Veraticus/caseworker/internal/common"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the backend session",
		Long:  `Obtain, inspect and remove the session token sent to the backend.`,
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authStatusCmd())
	cmd.AddCommand(authLogoutCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain and save a session token",
		Long: `Obtain a session token and save it for later commands.

With auth.client_id, auth.client_secret and auth.token_url configured the
token is requested with the OAuth2 client-credentials grant. Otherwise paste
a token issued by the backend, either with --token, on stdin with
--token -, or at the prompt.`,
		Args: cobra.NoArgs,
		RunE: runAuthLogin,
	}

	cmd.Flags().String("token", "", "Session token to save (\"-\" reads it from stdin)")

	return cmd
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("token")

	var token *oauth2.Token
	switch {
	case raw == "-":
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read token from stdin: %w", err)
		}
		token = auth.NewSessionToken(string(content))
	case raw != "":
		token = auth.NewSessionToken(raw)
	case cfg.Auth.ClientID != "" && cfg.Auth.TokenURL != "":
		token, err = auth.Login(ctx, cfg.Auth)
		if err != nil {
			return err
		}
	default:
		prompter := cli.NewPrompter(cmd.InOrStdin(), out)
		pasted, err := prompter.Ask(ctx, "Paste your session token:")
		if err != nil {
			return err
		}
		token = auth.NewSessionToken(pasted)
	}

	if strings.TrimSpace(token.AccessToken) == "" {
		return common.NewUserError("No token provided.", nil)
	}
	if auth.Expired(token) {
		return common.NewUserError("That token has already expired.", common.ErrSessionExpired)
	}

	if err := auth.SaveToken(cfg.Auth.TokenFile, token); err != nil {
		return err
	}

	msg := "Session saved to " + cfg.Auth.TokenFile
	if !token.Expiry.IsZero() {
		msg += fmt.Sprintf(" (expires %s)", token.Expiry.Local().Format(time.RFC1123))
	}
	_, err = fmt.Fprintln(out, cli.FormatSuccess(msg))
	return err
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved session",
		Args:  cobra.NoArgs,
		RunE:  runAuthStatus,
	}
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := auth.LoadToken(cfg.Auth.TokenFile)
	if errors.Is(err, common.ErrNoSession) {
		_, err = fmt.Fprintln(out, cli.FormatWarning("Not logged in. Run 'caseworker auth login'."))
		return err
	}
	if err != nil {
		return err
	}

	lines := []string{"Token file: " + cfg.Auth.TokenFile}
	if claims, ok := auth.InspectToken(token.AccessToken); ok {
		if claims.Subject != "" {
			lines = append(lines, "Subject:    "+claims.Subject)
		}
		if claims.Issuer != "" {
			lines = append(lines, "Issuer:     "+claims.Issuer)
		}
	}
	switch {
	case token.Expiry.IsZero():
		lines = append(lines, "Expires:    unknown")
	case auth.Expired(token):
		lines = append(lines, "Expires:    "+cli.ErrorStyle.Render("expired "+token.Expiry.Local().Format(time.RFC1123)))
	default:
		remaining := time.Until(token.Expiry).Round(time.Minute)
		lines = append(lines, fmt.Sprintf("Expires:    %s (in %s)", token.Expiry.Local().Format(time.RFC1123), remaining))
	}

	_, err = fmt.Fprintln(out, cli.RenderBox("Session", strings.Join(lines, "\n")))
	return err
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := auth.DeleteToken(cfg.Auth.TokenFile); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Logged out."))
			return err
		},
	}
}
