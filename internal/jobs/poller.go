// Package jobs tracks asynchronous backend jobs through the unified results
// endpoint until they finish, fail, time out or are canceled.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/caseworker/internal/config"
	"github.com/Veraticus/caseworker/internal/metrics"
	"github.com/Veraticus/caseworker/internal/model"
)

// Poll loop errors carried in Outcome.Err.
var (
	ErrJobStart       = errors.New("failed to start job")
	ErrJobFailed      = errors.New("job failed")
	ErrJobTimeout     = errors.New("timed out waiting for job")
	ErrResultMismatch = errors.New("unexpected result type")
)

// Default scheduling.
const (
	DefaultInitialDelay = 2 * time.Second
	DefaultInterval     = 2 * time.Second
	DefaultMaxAttempts  = 20
)

// Kind classifies how a poll loop ended.
type Kind int

// Outcome kinds.
const (
	Succeeded Kind = iota
	Failed
	TimedOut
	Mismatch
	StartFailed
	Canceled
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timeout"
	case Mismatch:
		return "mismatch"
	case StartFailed:
		return "start_failed"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the terminal result of tracking one job.
type Outcome struct {
	Err        error
	JobID      string
	Status     model.JobStatus
	ResultType model.ResultType
	// Result is the raw payload, set only when Kind is Succeeded.
	Result   json.RawMessage
	Kind     Kind
	Attempts int
}

// OK reports whether the job succeeded with the expected result type.
func (o Outcome) OK() bool {
	return o.Kind == Succeeded
}

// Terminal reports whether the job reached an end state on the backend
// side, or the loop gave up on it. Start failures and cancellations are not.
func (o Outcome) Terminal() bool {
	switch o.Kind {
	case Succeeded, Failed, TimedOut, Mismatch:
		return true
	}
	return false
}

// ResultFetcher queries the results endpoint once.
type ResultFetcher interface {
	GetJobResult(ctx context.Context, jobID string) (*model.Job, error)
}

// StartFunc enqueues a job and returns its id.
type StartFunc func(ctx context.Context) (string, error)

// Hooks observe a poll loop.
type Hooks struct {
	// OnAttempt is called after every status query. status is empty when
	// the query itself failed.
	OnAttempt func(attempt int, status model.JobStatus)
	// OnTerminal runs on its own goroutine once the job reaches a terminal
	// outcome, typically to refresh the dossier. It cannot change the outcome.
	OnTerminal func(Outcome)
}

// Poller polls the results endpoint on a fixed schedule.
type Poller struct {
	fetcher      ResultFetcher
	initialDelay time.Duration
	interval     time.Duration
	maxAttempts  int
}

// NewPoller creates a poller. Zero values in cfg fall back to the defaults.
func NewPoller(fetcher ResultFetcher, cfg config.PollConfig) *Poller {
	p := &Poller{
		fetcher:      fetcher,
		initialDelay: cfg.InitialDelay,
		interval:     cfg.Interval,
		maxAttempts:  cfg.MaxAttempts,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.initialDelay < 0 {
		p.initialDelay = DefaultInitialDelay
	}
	if p.maxAttempts <= 0 {
		p.maxAttempts = DefaultMaxAttempts
	}
	return p
}

// MaxAttempts returns the poll budget.
func (p *Poller) MaxAttempts() int {
	return p.maxAttempts
}

// Run starts a job and tracks it to completion. A start failure ends the
// loop immediately without polling.
func (p *Poller) Run(ctx context.Context, start StartFunc, expected model.ResultType, hooks Hooks) Outcome {
	jobID, err := start(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return p.finish(Outcome{Kind: Canceled, Err: ctx.Err()}, expected, hooks)
		}
		return p.finish(Outcome{Kind: StartFailed, Err: fmt.Errorf("%w: %w", ErrJobStart, err)}, expected, hooks)
	}
	if jobID == "" {
		return p.finish(Outcome{Kind: StartFailed, Err: fmt.Errorf("%w: backend returned no job id", ErrJobStart)}, expected, hooks)
	}
	return p.Track(ctx, jobID, expected, hooks)
}

// Track polls an already started job. Failed queries count as attempts
// and are retried like a non-terminal status.
func (p *Poller) Track(ctx context.Context, jobID string, expected model.ResultType, hooks Hooks) Outcome {
	timer := time.NewTimer(p.initialDelay)
	defer timer.Stop()

	last := model.JobStatus("")
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return p.finish(Outcome{Kind: Canceled, JobID: jobID, Status: last, Attempts: attempt - 1, Err: ctx.Err()}, expected, hooks)
		case <-timer.C:
		}

		job, err := p.fetcher.GetJobResult(ctx, jobID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return p.finish(Outcome{Kind: Canceled, JobID: jobID, Status: last, Attempts: attempt, Err: ctx.Err()}, expected, hooks)
			}
			slog.Debug("Job status query failed, retrying", "job_id", jobID, "attempt", attempt, "error", err)
			metrics.JobPolls.WithLabelValues("error").Inc()
			if hooks.OnAttempt != nil {
				hooks.OnAttempt(attempt, "")
			}
		default:
			last = job.Status
			metrics.JobPolls.WithLabelValues(string(job.Status)).Inc()
			if hooks.OnAttempt != nil {
				hooks.OnAttempt(attempt, job.Status)
			}
			if job.Status.IsTerminal() {
				return p.finish(settle(jobID, job, expected, attempt), expected, hooks)
			}
			slog.Debug("Job still running", "job_id", jobID, "status", job.Status, "attempt", attempt)
		}

		timer.Reset(p.interval)
	}

	return p.finish(Outcome{
		Kind:     TimedOut,
		JobID:    jobID,
		Status:   last,
		Attempts: p.maxAttempts,
		Err:      fmt.Errorf("%w %s after %d attempts", ErrJobTimeout, jobID, p.maxAttempts),
	}, expected, hooks)
}

func settle(jobID string, job *model.Job, expected model.ResultType, attempt int) Outcome {
	out := Outcome{JobID: jobID, Status: job.Status, ResultType: job.ResultType, Attempts: attempt}

	if job.Status.IsFailure() {
		out.Kind = Failed
		out.Err = fmt.Errorf("%w: %s reported %s", ErrJobFailed, jobID, job.Status)
		return out
	}

	if job.ResultType != expected {
		out.Kind = Mismatch
		out.Err = fmt.Errorf("%w: expected %q, got %q", ErrResultMismatch, expected, job.ResultType)
		return out
	}

	out.Kind = Succeeded
	out.Result = job.Result
	return out
}

func (p *Poller) finish(out Outcome, expected model.ResultType, hooks Hooks) Outcome {
	metrics.JobOutcomes.WithLabelValues(string(expected), out.Kind.String()).Inc()

	switch out.Kind {
	case Succeeded:
		slog.Info("Job finished", "job_id", out.JobID, "attempts", out.Attempts)
	case Canceled:
		slog.Debug("Job tracking canceled", "job_id", out.JobID, "attempts", out.Attempts)
	default:
		slog.Warn("Job did not succeed", "job_id", out.JobID, "outcome", out.Kind.String(), "error", out.Err)
	}

	if out.Terminal() && hooks.OnTerminal != nil {
		go hooks.OnTerminal(out)
	}
	return out
}
