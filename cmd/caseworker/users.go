package main

import (
	"fmt"

	"github.com/Veraticus/caseworker/internal/cli"
	"github.com/Veraticus/caseworker/internal/directory"
	"github.com/Veraticus/caseworker/internal/dossier"
	"github.com/spf13/cobra"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users known to the backend",
		Long: `List every user known to the backend.

--search narrows the list to users whose name or email contains the query,
ignoring case.`,
		Args: cobra.NoArgs,
		RunE: runUsers,
	}

	cmd.Flags().StringP("search", "s", "", "Filter by name or email")

	return cmd
}

func runUsers(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	b, err := initBackend(ctx)
	if err != nil {
		return err
	}

	users, err := directory.Load(ctx, b.client, b.cfg.Directory.WarnSize)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	if query, _ := cmd.Flags().GetString("search"); query != "" {
		users = directory.Filter(users, query)
	}

	return cli.RenderUsers(cmd.OutOrStdout(), users)
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's dossier",
		Long: `Show a user's profile, alerts and transactions.

The three parts are fetched together; if any of them fails nothing is shown.`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}

	b, err := initBackend(ctx)
	if err != nil {
		return err
	}

	d, err := dossier.NewLoader(b.client).Load(ctx, userID, dossier.Full)
	if err != nil {
		return err
	}

	return cli.RenderDossier(cmd.OutOrStdout(), d)
}
