// Package metrics exposes client-side Prometheus instrumentation.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseworker_api_requests_total",
		Help: "Backend requests issued, labelled by method, route and status code.",
	}, []string{"method", "route", "code"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caseworker_api_request_duration_seconds",
		Help:    "Backend request latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"route"})

	JobPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseworker_job_polls_total",
		Help: "Status queries issued by the job poller, labelled by reported status.",
	}, []string{"status"})

	JobOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseworker_job_outcomes_total",
		Help: "Finished poll loops, labelled by expected result type and outcome.",
	}, []string{"result_type", "outcome"})

	DossierLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseworker_dossier_loads_total",
		Help: "Dossier loads, labelled by mode and result.",
	}, []string{"mode", "result"})
)

// Serve exposes /metrics on addr until ctx is canceled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Error shutting down metrics server", "error", err)
		}
	}()

	slog.Info("Serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
