// Package dossier assembles a subject's profile, alerts and transactions.
package dossier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/caseworker/internal/metrics"
	"github.com/Veraticus/caseworker/internal/model"
	"golang.org/x/sync/errgroup"
)

// Mode controls how a load is presented.
type Mode int

const (
	// Full is the initial load; views show a loading indicator.
	Full Mode = iota
	// Silent refreshes in place after an action; views keep the old
	// dossier on screen until the new one arrives.
	Silent
)

func (m Mode) String() string {
	if m == Silent {
		return "silent"
	}
	return "full"
}

// Source is the subset of the backend client a dossier needs.
type Source interface {
	GetUser(ctx context.Context, userID int) (*model.User, error)
	GetAlerts(ctx context.Context, userID int) ([]model.Alert, error)
	GetTransactions(ctx context.Context, userID int) ([]model.Transaction, error)
}

// Loader fetches dossiers.
type Loader struct {
	source Source
}

// NewLoader creates a loader backed by source.
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// Load fetches the three parts concurrently. The first failure cancels the
// remaining requests and no partial dossier is returned.
func (l *Loader) Load(ctx context.Context, userID int, mode Mode) (*model.Dossier, error) {
	var (
		profile *model.User
		alerts  []model.Alert
		txns    []model.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = l.source.GetUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		alerts, err = l.source.GetAlerts(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load alerts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txns, err = l.source.GetTransactions(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load transactions: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		metrics.DossierLoads.WithLabelValues(mode.String(), "error").Inc()
		slog.Warn("Dossier load failed", "user_id", userID, "mode", mode.String(), "error", err)
		return nil, err
	}

	metrics.DossierLoads.WithLabelValues(mode.String(), "ok").Inc()
	slog.Debug("Dossier loaded",
		"user_id", userID,
		"mode", mode.String(),
		"alerts", len(alerts),
		"transactions", len(txns))

	if alerts == nil {
		alerts = []model.Alert{}
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	return &model.Dossier{Profile: *profile, Alerts: alerts, Transactions: txns}, nil
}
