package actions

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/caseworker/internal/api"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/Veraticus/caseworker/internal/jobs"
	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = 12

type refreshRecorder struct {
	calls chan int
}

func newRefreshRecorder() *refreshRecorder {
	return &refreshRecorder{calls: make(chan int, 8)}
}

func (r *refreshRecorder) refresh(id int) {
	r.calls <- id
}

func (r *refreshRecorder) wait(t *testing.T) int {
	t.Helper()
	select {
	case id := <-r.calls:
		return id
	case <-time.After(time.Second):
		t.Fatal("dossier was not refreshed")
		return 0
	}
}

func setup(t *testing.T, actionsCfg config.ActionsConfig) (*testutil.Backend, *Dispatcher, *refreshRecorder) {
	t.Helper()
	b := testutil.SetupBackend(t)
	b.AddUser(model.User{ID: userID, FullName: "Lena Ortiz"}, nil, nil)

	c, err := api.NewClient(b.URL)
	require.NoError(t, err)
	poller := jobs.NewPoller(c, config.PollConfig{InitialDelay: time.Millisecond, Interval: time.Millisecond, MaxAttempts: 5})

	rec := newRefreshRecorder()
	return b, NewDispatcher(c, poller, actionsCfg, WithRefresh(rec.refresh)), rec
}

func TestRunKYC_SettleDelayWithoutJobID(t *testing.T) {
	b, d, rec := setup(t, config.ActionsConfig{KYCSettleDelay: 20 * time.Millisecond})

	start := time.Now()
	res, err := d.RunKYC(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Nil(t, res.Outcome)
	assert.Equal(t, "KYC check complete.", res.Message)
	assert.Equal(t, userID, rec.wait(t))
	assert.Equal(t, 0, b.Hits("GET /api/v1/results/{job}"))
}

func TestRunKYC_TracksJob(t *testing.T) {
	b, d, rec := setup(t, config.ActionsConfig{KYCSettleDelay: time.Hour})
	b.SetKYCJobID("kyc-7")
	b.AddJob("kyc-7", &testutil.JobScript{
		Statuses:   []model.JobStatus{model.JobPending, model.JobSuccess},
		ResultType: model.ResultGeneric,
		Result:     "KYC passed",
	})

	var attempts []model.JobStatus
	var mu sync.Mutex
	res, err := d.RunKYC(context.Background(), userID, func(_ int, s model.JobStatus) {
		mu.Lock()
		attempts = append(attempts, s)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, jobs.Succeeded, res.Outcome.Kind)
	assert.Equal(t, []model.JobStatus{model.JobPending, model.JobSuccess}, attempts)
	assert.Equal(t, userID, rec.wait(t))
}

func TestRunKYC_StartFailure(t *testing.T) {
	b, d, _ := setup(t, config.ActionsConfig{})
	b.Fail("POST /api/v1/users/{id}/run-kyc-check", http.StatusInternalServerError, "queue down")

	_, err := d.RunKYC(context.Background(), userID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KYC check failed")
	assert.False(t, d.InProgress(KYC))
}

func TestRunGraph(t *testing.T) {
	plot := map[string]any{
		"data": []any{map[string]any{"mode": "markers+text", "text": []string{"<b>Lena</b>", "<b>ACC-1</b>"}}},
		"layout": map[string]any{
			"annotations": []any{map[string]any{"showarrow": true}},
		},
	}

	tests := []struct {
		name        string
		script      *testutil.JobScript
		wantKind    jobs.Kind
		wantMessage string
		wantErr     bool
	}{
		{
			name: "graph after three polls",
			script: &testutil.JobScript{
				Statuses:   []model.JobStatus{model.JobPending, model.JobRunning, model.JobSuccess},
				ResultType: model.ResultGraph,
				Result:     map[string]any{"plot_data": plot, "ai_explanation": "Circular flow."},
			},
			wantKind:    jobs.Succeeded,
			wantMessage: "Network analysis complete.",
		},
		{
			name: "mismatched type",
			script: &testutil.JobScript{
				Statuses:   []model.JobStatus{model.JobSuccess},
				ResultType: model.ResultGeneric,
				Result:     "not a graph",
			},
			wantKind:    jobs.Mismatch,
			wantMessage: "Received an unexpected result type from the server.",
			wantErr:     true,
		},
		{
			name:        "timeout",
			script:      &testutil.JobScript{Statuses: []model.JobStatus{model.JobRunning}},
			wantKind:    jobs.TimedOut,
			wantMessage: "Analysis timed out. The task is taking too long.",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, d, rec := setup(t, config.ActionsConfig{})
			b.AddJob("graph-job", tt.script)

			res, err := d.RunGraph(context.Background(), userID, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, res.Graph)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res.Graph)
				assert.Equal(t, "Circular flow.", res.Graph.Explanation())
				net, err := res.Graph.Network()
				require.NoError(t, err)
				assert.Equal(t, []string{"Lena", "ACC-1"}, net.Nodes)
				assert.Equal(t, 1, net.Edges)
			}
			assert.Equal(t, tt.wantKind, res.Outcome.Kind)
			assert.Equal(t, tt.wantMessage, res.Message)
			assert.Equal(t, userID, rec.wait(t))
		})
	}
}

func TestRunGraph_StartFailure(t *testing.T) {
	b, d, _ := setup(t, config.ActionsConfig{})

	res, err := d.RunGraph(context.Background(), 999, nil)
	require.Error(t, err)
	assert.Equal(t, jobs.StartFailed, res.Outcome.Kind)
	assert.Equal(t, "Could not start the analysis job.", res.Message)
	assert.Equal(t, 0, b.Hits("GET /api/v1/results/{job}"))
}

func TestAddTransaction(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		description string
		wantErr     error
		wantCreated bool
	}{
		{name: "valid", amount: "1500.25", description: "Manual Deposit", wantCreated: true},
		{name: "negative", amount: "-20", description: "Reversal", wantCreated: true},
		{name: "empty amount", amount: "", description: "x", wantErr: model.ErrInvalidAmount},
		{name: "not a number", amount: "abc", description: "x", wantErr: model.ErrInvalidAmount},
		{name: "infinite", amount: "Inf", description: "x", wantErr: model.ErrInvalidAmount},
		{name: "blank description", amount: "10", description: "  ", wantErr: model.ErrMissingDescription},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, d, rec := setup(t, config.ActionsConfig{})

			res, err := d.AddTransaction(context.Background(), userID, tt.amount, tt.description)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, b.Created())
				assert.Equal(t, 0, b.Hits("POST /api/v1/users/{id}/transactions"))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Transaction added! Analyzing patterns...", res.Message)
			require.Len(t, b.Created(), 1)
			assert.Equal(t, tt.description, b.Created()[0].Description)
			assert.Equal(t, userID, rec.wait(t))
		})
	}
}

func TestAdvisor(t *testing.T) {
	b, d, _ := setup(t, config.ActionsConfig{})
	ctx := context.Background()

	b.SetAdvice("explain", map[string]any{"explanation": "Structuring pattern."})
	res, err := d.ExplainRisk(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, ExplainTitle, res.Title)
	assert.Equal(t, "Structuring pattern.", res.Text)

	b.SetAdvice("sar", map[string]any{"job_id": "sar-job"})
	b.AddJob("sar-job", &testutil.JobScript{
		Statuses:   []model.JobStatus{model.JobRunning, model.JobCompleted},
		ResultType: model.ResultGeneric,
		Result:     map[string]any{"sar_draft": "Subject moved funds..."},
	})
	res, err = d.DraftSAR(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, SARTitle, res.Title)
	assert.Equal(t, "Subject moved funds...", res.Text)
	require.NotNil(t, res.Outcome)

	b.SetAdvice("explain", map[string]any{"error": "LLM offline"})
	res, err = d.ExplainRisk(ctx, userID)
	require.EqualError(t, err, "LLM offline")
	assert.Equal(t, "Error generating response.", res.Text)
}

func TestInProgress(t *testing.T) {
	_, d, _ := setup(t, config.ActionsConfig{KYCSettleDelay: 200 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := d.RunKYC(context.Background(), userID, nil)
		done <- err
	}()

	require.Eventually(t, func() bool { return d.InProgress(KYC) }, time.Second, time.Millisecond)
	_, err := d.RunKYC(context.Background(), userID, nil)
	assert.ErrorIs(t, err, ErrInProgress)
	assert.False(t, d.InProgress(Graph))

	require.NoError(t, <-done)
	assert.False(t, d.InProgress(KYC))
}

func TestSettleCanceled(t *testing.T) {
	_, d, rec := setup(t, config.ActionsConfig{TxSettleDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.AddTransaction(ctx, userID, "10", "Manual Deposit")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, rec.calls)
}
