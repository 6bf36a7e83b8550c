package main

import (
	"fmt"
	"io"

	"github.com/Veraticus/caseworker/internal/cli"
	"github.com/Veraticus/caseworker/internal/ingest"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a bank export for batch processing",
		Long: `Upload a ledger CSV, or an OFX/QFX statement converted to CSV, to the
backend for batch processing.

The file is checked before anything is sent. --clear wipes ALL backend data
first and asks for confirmation unless --yes is given. --wait polls the
processing job until it finishes.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().Bool("clear", false, "Clear all existing backend data before uploading")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().Bool("wait", false, "Wait for the processing job to finish")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	clearFirst, _ := cmd.Flags().GetBool("clear")
	yes, _ := cmd.Flags().GetBool("yes")
	wait, _ := cmd.Flags().GetBool("wait")

	b, err := initBackend(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if clearFirst && !yes {
		prompter := cli.NewPrompter(cmd.InOrStdin(), out)
		ok, err := prompter.Confirm(cmd.Context(), "This deletes ALL existing data on the backend. Continue?")
		if err != nil {
			return err
		}
		if !ok {
			_, err = fmt.Fprintln(out, cli.FormatInfo("Upload canceled."))
			return err
		}
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, cancel := handler.HandleInterrupts(cmd.Context(), "")
	defer cancel()

	uploader := ingest.NewUploader(b.client,
		ingest.WithPoller(b.poller),
		ingest.WithProgress(func(size int64) io.Writer {
			return cli.NewUploadBar(cmd.ErrOrStderr(), size)
		}),
		ingest.WithStatus(func(msg string) {
			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatInfo(msg))
		}),
	)

	res, err := uploader.Upload(ctx, ingest.Request{Path: path, ClearFirst: clearFirst, Wait: wait})
	if err != nil {
		return err
	}

	if res.Converted {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Converted statement to %s", res.Filename)))
	}
	msg := fmt.Sprintf("Uploaded %s (%d bytes)", res.Filename, res.Bytes)
	if res.JobID != "" {
		msg += fmt.Sprintf(", job %s", res.JobID)
	}
	if res.Outcome != nil {
		msg += ", processing finished"
	}
	_, err = fmt.Fprintln(out, cli.FormatSuccess(msg))
	return err
}
