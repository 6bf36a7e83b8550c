package main

import (
	"fmt"

	"github.com/Veraticus/caseworker/internal/actions"
	"github.com/Veraticus/caseworker/internal/cli"
	"github.com/Veraticus/caseworker/internal/common"
	"github.com/Veraticus/caseworker/internal/model"
	"github.com/spf13/cobra"
)

const jobHint = "The job keeps running on the backend; rerun the command later or check the dossier."

func kycCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kyc <user-id>",
		Short: "Run a KYC check for a user",
		Long: `Run a KYC check for a user and wait for it to finish.

When the backend returns a job id the job is polled until it completes;
otherwise the command waits a short settle delay.`,
		Args: cobra.ExactArgs(1),
		RunE: runKYC,
	}
}

func runKYC(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}

	b, err := initBackend(cmd.Context())
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, cancel := handler.HandleInterrupts(cmd.Context(), jobHint)
	defer cancel()

	progress := cli.NewPollProgress(cmd.ErrOrStderr(), b.poller.MaxAttempts(), "KYC check")
	res, err := actions.NewDispatcher(b.client, b.poller, b.cfg.Actions).RunKYC(ctx, userID, progress.OnAttempt)
	progress.Done()
	if err != nil {
		return actionError(res, err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(res.Message))
	return err
}

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <user-id>",
		Short: "Run network analysis for a user",
		Long: `Start a network analysis job, poll it until it finishes and print the
network summary with the AI investigator's report.

--json prints the raw job result instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runGraph,
	}

	cmd.Flags().Bool("json", false, "Print the raw result as JSON")

	return cmd
}

func runGraph(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}

	b, err := initBackend(cmd.Context())
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, cancel := handler.HandleInterrupts(cmd.Context(), jobHint)
	defer cancel()

	progress := cli.NewPollProgress(cmd.ErrOrStderr(), b.poller.MaxAttempts(), "Network analysis")
	res, err := actions.NewDispatcher(b.client, b.poller, b.cfg.Actions).RunGraph(ctx, userID, progress.OnAttempt)
	progress.Done()
	if err != nil {
		return actionError(res, err)
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON && res.Outcome != nil {
		_, err = fmt.Fprintln(out, string(res.Outcome.Result))
		return err
	}

	if _, err := fmt.Fprintln(out, cli.FormatSuccess(res.Message)); err != nil {
		return err
	}
	return cli.RenderGraph(out, res.Graph)
}

func advisorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advisor",
		Short: "Ask the AI advisor about a user",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "explain <user-id>",
		Short: "Explain a user's risk profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvisor(cmd, args[0], false)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sar <user-id>",
		Short: "Draft a Suspicious Activity Report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdvisor(cmd, args[0], true)
		},
	})

	return cmd
}

func runAdvisor(cmd *cobra.Command, arg string, sar bool) error {
	userID, err := parseUserID(arg)
	if err != nil {
		return err
	}

	b, err := initBackend(cmd.Context())
	if err != nil {
		return err
	}

	d := actions.NewDispatcher(b.client, b.poller, b.cfg.Actions)
	var res *actions.Result
	if sar {
		res, err = d.DraftSAR(cmd.Context(), userID)
	} else {
		res, err = d.ExplainRisk(cmd.Context(), userID)
	}
	if err != nil {
		if res != nil {
			_ = cli.RenderAdvice(cmd.ErrOrStderr(), res.Title, res.Text)
		}
		return err
	}

	return cli.RenderAdvice(cmd.OutOrStdout(), res.Title, res.Text)
}

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Manage a user's transactions",
	}

	add := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Record a manual transaction",
		Long: `Record a manual transaction for a user. The backend re-analyzes the
user's patterns afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: runTxAdd,
	}
	add.Flags().String("amount", "", "Transaction amount (required)")
	add.Flags().String("description", model.DefaultManualDescription, "Transaction description")
	_ = add.MarkFlagRequired("amount")

	cmd.AddCommand(add)
	return cmd
}

func runTxAdd(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}

	amount, _ := cmd.Flags().GetString("amount")
	description, _ := cmd.Flags().GetString("description")

	// Reject bad input before touching configuration or the network.
	if _, err := model.ParseNewTransaction(amount, description); err != nil {
		return err
	}

	b, err := initBackend(cmd.Context())
	if err != nil {
		return err
	}

	res, err := actions.NewDispatcher(b.client, b.poller, b.cfg.Actions).AddTransaction(cmd.Context(), userID, amount, description)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(res.Message))
	return err
}

// actionError prefers the dispatcher's analyst-facing message.
func actionError(res *actions.Result, err error) error {
	if res == nil || res.Message == "" {
		return err
	}
	return common.NewUserError(res.Message, err)
}
