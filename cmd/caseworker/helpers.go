package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Veraticus/caseworker/internal/api"
	"github.com/Veraticus/caseworker/internal/auth"
	"github.com/Veraticus/caseworker/internal/common"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/Veraticus/caseworker/internal/jobs"
)

// backend bundles what most commands need to talk to the API.
type backend struct {
	cfg    *config.Config
	client *api.Client
	poller *jobs.Poller
}

// initBackend builds an API client from the configuration. A missing
// session is not fatal: the request goes out without credentials and the
// backend decides.
func initBackend(ctx context.Context) (*backend, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := []api.Option{api.WithTimeout(cfg.API.Timeout)}
	if cfg.Auth.Header != "" {
		opts = append(opts, api.WithAuthHeader(cfg.Auth.Header))
	}

	ts, err := auth.NewTokenSource(ctx, cfg.Auth)
	switch {
	case err == nil:
		opts = append(opts, api.WithTokenSource(ts))
	case errors.Is(err, common.ErrNoSession):
		slog.Warn("No session token found, sending requests without credentials. Run 'caseworker auth login' if the backend requires one.")
	default:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	client, err := api.NewClient(cfg.API.BaseURL, opts...)
	if err != nil {
		return nil, err
	}

	return &backend{
		cfg:    cfg,
		client: client,
		poller: jobs.NewPoller(client, cfg.Poll),
	}, nil
}

// parseUserID parses a positional user id argument.
func parseUserID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("Invalid user id %q: expected a positive number.", arg), nil)
	}
	return id, nil
}
