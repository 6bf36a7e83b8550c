// Package actions runs the analyst actions available on a subject: KYC
// checks, network analysis, manual transactions and AI advisor requests.
package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/caseworker/internal/api"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/Veraticus/caseworker/internal/jobs"
	"github.com/Veraticus/caseworker/internal/model"
)

// Action identifies one dispatcher operation.
type Action string

// Actions.
const (
	KYC            Action = "kyc"
	Graph          Action = "graph"
	AddTransaction Action = "add_transaction"
	Advise         Action = "advise"
)

// Advisor modal titles.
const (
	ExplainTitle = "AI Risk Profile Analysis"
	SARTitle     = "DRAFT: Suspicious Activity Report"
)

// Default settle delays for actions that do not return a job id.
const (
	DefaultKYCSettleDelay = 3 * time.Second
	DefaultTxSettleDelay  = 2 * time.Second
)

// ErrInProgress is returned when the same action is already running.
var ErrInProgress = errors.New("action already in progress")

// Backend is the subset of the API client actions use.
type Backend interface {
	jobs.ResultFetcher
	RunKYCCheck(ctx context.Context, userID int) (string, error)
	RunGraphAnalysis(ctx context.Context, userID int) (string, error)
	CreateTransaction(ctx context.Context, userID int, txn model.NewTransaction) (*model.Transaction, error)
	ExplainRisk(ctx context.Context, userID int) (*api.AdvisorReply, error)
	GenerateSAR(ctx context.Context, userID int) (*api.AdvisorReply, error)
}

// RefreshFunc reloads a subject's dossier in the background.
type RefreshFunc func(userID int)

// Result describes a finished action.
type Result struct {
	// Outcome is set when the action tracked a backend job.
	Outcome *jobs.Outcome
	Graph   *model.GraphResult
	// Message is a short status line for the analyst.
	Message string
	Title   string
	Text    string
	Action  Action
}

// Dispatcher runs actions for one subject at a time. Each action kind has
// its own in-progress flag.
type Dispatcher struct {
	backend  Backend
	poller   *jobs.Poller
	refresh  RefreshFunc
	busy     map[Action]bool
	kycDelay time.Duration
	txDelay  time.Duration
	mu       sync.Mutex
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRefresh sets the hook that reloads the dossier after an action.
func WithRefresh(fn RefreshFunc) Option {
	return func(d *Dispatcher) {
		d.refresh = fn
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(backend Backend, poller *jobs.Poller, cfg config.ActionsConfig, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backend:  backend,
		poller:   poller,
		busy:     make(map[Action]bool),
		kycDelay: cfg.KYCSettleDelay,
		txDelay:  cfg.TxSettleDelay,
	}
	if d.kycDelay < 0 {
		d.kycDelay = DefaultKYCSettleDelay
	}
	if d.txDelay < 0 {
		d.txDelay = DefaultTxSettleDelay
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// InProgress reports whether an action is currently running.
func (d *Dispatcher) InProgress(a Action) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy[a]
}

func (d *Dispatcher) acquire(a Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.busy[a] {
		return fmt.Errorf("%w: %s", ErrInProgress, a)
	}
	d.busy[a] = true
	return nil
}

func (d *Dispatcher) release(a Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.busy, a)
}

func (d *Dispatcher) refreshHook(userID int) func(jobs.Outcome) {
	if d.refresh == nil {
		return nil
	}
	return func(jobs.Outcome) { d.refresh(userID) }
}

// settle waits for untracked backend work, then refreshes.
func (d *Dispatcher) settle(ctx context.Context, userID int, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	if d.refresh != nil {
		d.refresh(userID)
	}
	return nil
}

// RunKYC starts a KYC check. A returned job id is tracked with the poller;
// otherwise the check is given a fixed settle delay before the refresh.
func (d *Dispatcher) RunKYC(ctx context.Context, userID int, onAttempt func(int, model.JobStatus)) (*Result, error) {
	if err := d.acquire(KYC); err != nil {
		return nil, err
	}
	defer d.release(KYC)

	jobID, err := d.backend.RunKYCCheck(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("KYC check failed: %w", err)
	}

	res := &Result{Action: KYC}
	if jobID == "" {
		slog.Debug("KYC check returned no job id, waiting to settle", "user_id", userID, "delay", d.kycDelay)
		if err := d.settle(ctx, userID, d.kycDelay); err != nil {
			return nil, err
		}
		res.Message = "KYC check complete."
		return res, nil
	}

	out := d.poller.Track(ctx, jobID, model.ResultGeneric, jobs.Hooks{
		OnAttempt:  onAttempt,
		OnTerminal: d.refreshHook(userID),
	})
	res.Outcome = &out
	if !out.OK() {
		res.Message = "KYC check failed."
		return res, out.Err
	}
	res.Message = "KYC check complete."
	return res, nil
}

// RunGraph starts network analysis and waits for a graph result.
func (d *Dispatcher) RunGraph(ctx context.Context, userID int, onAttempt func(int, model.JobStatus)) (*Result, error) {
	if err := d.acquire(Graph); err != nil {
		return nil, err
	}
	defer d.release(Graph)

	out := d.poller.Run(ctx, func(ctx context.Context) (string, error) {
		return d.backend.RunGraphAnalysis(ctx, userID)
	}, model.ResultGraph, jobs.Hooks{
		OnAttempt:  onAttempt,
		OnTerminal: d.refreshHook(userID),
	})

	res := &Result{Action: Graph, Outcome: &out}
	switch out.Kind {
	case jobs.Succeeded:
	case jobs.StartFailed:
		res.Message = "Could not start the analysis job."
		return res, out.Err
	case jobs.TimedOut:
		res.Message = "Analysis timed out. The task is taking too long."
		return res, out.Err
	case jobs.Mismatch:
		res.Message = "Received an unexpected result type from the server."
		return res, out.Err
	case jobs.Failed:
		res.Message = "Network analysis failed."
		return res, out.Err
	default:
		return res, out.Err
	}

	var graph model.GraphResult
	if err := json.Unmarshal(out.Result, &graph); err != nil {
		res.Message = "Could not read the analysis result."
		return res, fmt.Errorf("failed to decode graph result: %w", err)
	}
	res.Graph = &graph
	res.Message = "Network analysis complete."
	return res, nil
}

// AddTransaction validates the form input and records a manual
// transaction. Invalid input never reaches the backend.
func (d *Dispatcher) AddTransaction(ctx context.Context, userID int, amount, description string) (*Result, error) {
	txn, err := model.ParseNewTransaction(amount, description)
	if err != nil {
		return nil, err
	}

	if err := d.acquire(AddTransaction); err != nil {
		return nil, err
	}
	defer d.release(AddTransaction)

	if _, err := d.backend.CreateTransaction(ctx, userID, txn); err != nil {
		return nil, fmt.Errorf("error adding transaction: %w", err)
	}

	if err := d.settle(ctx, userID, d.txDelay); err != nil {
		return nil, err
	}
	return &Result{Action: AddTransaction, Message: "Transaction added! Analyzing patterns..."}, nil
}

// ExplainRisk asks the advisor for a risk profile narrative.
func (d *Dispatcher) ExplainRisk(ctx context.Context, userID int) (*Result, error) {
	return d.advise(ctx, ExplainTitle, func(ctx context.Context) (*api.AdvisorReply, error) {
		return d.backend.ExplainRisk(ctx, userID)
	})
}

// DraftSAR asks the advisor for a Suspicious Activity Report draft.
func (d *Dispatcher) DraftSAR(ctx context.Context, userID int) (*Result, error) {
	return d.advise(ctx, SARTitle, func(ctx context.Context) (*api.AdvisorReply, error) {
		return d.backend.GenerateSAR(ctx, userID)
	})
}

func (d *Dispatcher) advise(ctx context.Context, title string, call func(context.Context) (*api.AdvisorReply, error)) (*Result, error) {
	if err := d.acquire(Advise); err != nil {
		return nil, err
	}
	defer d.release(Advise)

	res := &Result{Action: Advise, Title: title}
	reply, err := call(ctx)
	if err != nil {
		res.Text = "Error generating response."
		return res, err
	}
	if reply.JobID == "" {
		res.Text = reply.Text
		return res, nil
	}

	out := d.poller.Track(ctx, reply.JobID, model.ResultGeneric, jobs.Hooks{})
	res.Outcome = &out
	if !out.OK() {
		res.Text = "Error generating response."
		return res, out.Err
	}
	text, err := api.AdviceFromResult(out.Result)
	if err != nil {
		res.Text = "Error generating response."
		return res, err
	}
	res.Text = text
	return res, nil
}
