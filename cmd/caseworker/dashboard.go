package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/caseworker/internal/cli"
	"github.com/Veraticus/caseworker/internal/common"
	"github.com/Veraticus/caseworker/internal/metrics"
	"github.com/Veraticus/caseworker/internal/tui"
	"github.com/Veraticus/caseworker/internal/tui/themes"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"tui"},
		Short:   "Open the interactive investigation dashboard",
		Long: `Open the interactive dashboard: browse and search users, open a dossier,
and run KYC checks, network analysis, advisor requests and manual
transactions without leaving the screen.

Logs are written to logging.file while the dashboard is open.`,
		Args: cobra.NoArgs,
		RunE: runDashboard,
	}

	cmd.Flags().String("theme", "default", "Color theme (default, catppuccin-mocha)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().Bool("no-alt-screen", false, "Draw inline instead of using the alternate screen")

	_ = viper.BindPFlag("metrics.addr", cmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("tui.theme", cmd.Flags().Lookup("theme"))

	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, closeLog, err := prepareDashboard(ctx)
	if err != nil {
		return err
	}
	defer closeLog()

	if addr := b.cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				common.LogError(err, "Metrics server stopped", common.Fields{"addr": addr})
			}
		}()
	}

	noAlt, _ := cmd.Flags().GetBool("no-alt-screen")

	slog.Info("Starting dashboard", "backend", b.client.BaseURL())
	start := time.Now()
	err = tui.Run(ctx,
		tui.WithBackend(b.client),
		tui.WithPollConfig(b.cfg.Poll),
		tui.WithActionsConfig(b.cfg.Actions),
		tui.WithWarnSize(b.cfg.Directory.WarnSize),
		tui.WithTheme(themes.GetTheme(viper.GetString("tui.theme"))),
		tui.WithAltScreen(!noAlt),
	)
	slog.Info("Dashboard closed", "duration", time.Since(start).Round(time.Second))
	return err
}

// prepareDashboard moves logging to the log file, then builds the backend,
// so nothing is written to the terminal the dashboard is about to own.
func prepareDashboard(ctx context.Context) (*backend, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	closeLog, err := logToFile(cfg.Logging.File)
	if err != nil {
		return nil, nil, err
	}

	b, err := initBackend(ctx)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return b, closeLog, nil
}

// logToFile redirects logging to path so the dashboard owns the terminal.
func logToFile(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level, err := common.ParseLevel(viper.GetString("logging.level"))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := common.SetupLogger(f, level, viper.GetString("logging.format")); err != nil {
		_ = f.Close()
		return nil, err
	}

	return func() {
		_ = setupLogging()
		_ = f.Close()
	}, nil
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := initBackend(cmd.Context())
			if err != nil {
				return err
			}
			if err := b.client.Health(cmd.Context()); err != nil {
				return common.NewUserError("Backend at "+b.client.BaseURL()+" is not healthy.", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Backend at "+b.client.BaseURL()+" is healthy."))
			return err
		},
	}
}
