package tui

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/Veraticus/caseworker/internal/actions"
	"github.com/Veraticus/caseworker/internal/api"
	"github.com/Veraticus/caseworker/internal/config"
	"github.com/Veraticus/caseworker/internal/dossier"
	"github.com/Veraticus/caseworker/internal/model"
	"github.com/Veraticus/caseworker/internal/testutil"
	"github.com/Veraticus/caseworker/internal/tui/components"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	asha   = model.User{ID: 1, FullName: "Asha Rao", Email: "asha@example.com", Country: "IN"}
	vikram = model.User{ID: 2, FullName: "Vikram Shah", Email: "vikram@example.com", Country: "AE"}
)

func setupModel(t *testing.T, maxAttempts int) (*testutil.Backend, Model) {
	t.Helper()

	b := testutil.SetupBackend(t)
	b.AddUser(asha,
		[]model.Alert{{ID: 10, AlertType: "GRAPH_CYCLE", Message: "Circular flow", Status: model.AlertOpen}},
		[]model.Transaction{{ID: 90, Amount: 49000, Currency: "INR", Description: "WIRE TO ACC1301"}},
	)
	b.AddUser(vikram, nil, nil)

	client, err := api.NewClient(b.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := defaultConfig()
	for _, opt := range []Option{
		WithBackend(client),
		WithPollConfig(config.PollConfig{InitialDelay: time.Millisecond, Interval: time.Millisecond, MaxAttempts: maxAttempts}),
		WithActionsConfig(config.ActionsConfig{KYCSettleDelay: time.Millisecond, TxSettleDelay: time.Millisecond}),
		WithSize(120, 40),
	} {
		opt(&cfg)
	}
	return b, newModel(ctx, cfg)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func press(t *testing.T, m Model, keys string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch keys {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	return update(t, m, msg)
}

// openAsha loads the directory and opens the first user's dossier.
func openAsha(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, m.loadUsers()())

	m, cmd := update(t, m, components.UserSelectedMsg{User: asha})
	require.Equal(t, StateDetail, m.state)
	require.True(t, m.loading)
	require.NotNil(t, cmd)

	m, _ = update(t, m, cmd())
	require.False(t, m.loading)
	require.NoError(t, m.detailErr)
	return m
}

// waitEvent returns the next background event of type T.
func waitEvent[T tea.Msg](t *testing.T, m Model) T {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-m.events:
			if typed, ok := msg.(T); ok {
				return typed
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T event", zero)
			return zero
		}
	}
}

func TestUsersLoadAndFilter(t *testing.T) {
	_, m := setupModel(t, 5)
	assert.Contains(t, m.View(), "Loading users...")

	m, _ = update(t, m, m.loadUsers()())
	require.NoError(t, m.listErr)
	assert.Len(t, m.userList.Filtered(), 2)

	m, _ = press(t, m, "/")
	require.True(t, m.userList.Searching())
	for _, r := range "VIK" {
		m, _ = press(t, m, string(r))
	}
	require.Len(t, m.userList.Filtered(), 1)
	assert.Equal(t, vikram.ID, m.userList.Filtered()[0].ID)

	// q types into the search box instead of quitting.
	m, _ = press(t, m, "q")
	assert.False(t, m.quitting)
	assert.Empty(t, m.userList.Filtered())
	assert.Contains(t, m.View(), "No users match the current filter.")

	m, _ = press(t, m, "esc")
	assert.False(t, m.userList.Searching())
	assert.Len(t, m.userList.Filtered(), 2)
}

func TestUsersLoadFailure(t *testing.T) {
	b, m := setupModel(t, 5)
	b.Fail("GET /api/v1/users", http.StatusInternalServerError, "database offline")

	m, _ = update(t, m, m.loadUsers()())
	require.Error(t, m.listErr)
	assert.Contains(t, m.View(), "Failed to load users")
	assert.Contains(t, m.View(), "Ctrl+R to retry")
}

func TestOpenDetail(t *testing.T) {
	_, m := setupModel(t, 5)
	m = openAsha(t, m)

	d := m.dossierView.Dossier()
	require.NotNil(t, d)
	assert.Equal(t, asha.FullName, d.Profile.FullName)
	assert.Len(t, d.Alerts, 1)
	assert.Len(t, d.Transactions, 1)

	view := m.View()
	assert.Contains(t, view, "Asha Rao")
	assert.Contains(t, view, "GRAPH_CYCLE")
	assert.Contains(t, view, "WIRE TO ACC1301")
}

func TestOpenDetail_FetchFailure(t *testing.T) {
	b, m := setupModel(t, 5)
	b.Fail("GET /api/v1/users/{id}/alerts", http.StatusInternalServerError, "alerts table locked")

	m, _ = update(t, m, m.loadUsers()())
	m, cmd := update(t, m, components.UserSelectedMsg{User: asha})
	m, _ = update(t, m, cmd())

	require.Error(t, m.detailErr)
	assert.Nil(t, m.dossierView.Dossier())
	assert.Contains(t, m.View(), "Could not load this user")

	// Actions are unavailable until the dossier loads.
	_, cmd = press(t, m, "g")
	assert.Nil(t, cmd)
}

func TestSilentRefreshFailureKeepsDossier(t *testing.T) {
	b, m := setupModel(t, 5)
	m = openAsha(t, m)

	b.Fail("GET /api/v1/users/{id}/transactions", http.StatusInternalServerError, "timeout")
	m, _ = update(t, m, m.loadDossier(asha.ID, dossier.Silent)())

	assert.NoError(t, m.detailErr)
	require.NotNil(t, m.dossierView.Dossier())
	assert.Contains(t, m.snack, "Refresh failed")
}

func TestStaleDossierDropped(t *testing.T) {
	_, m := setupModel(t, 5)
	m, _ = update(t, m, m.loadUsers()())

	m, staleCmd := update(t, m, components.UserSelectedMsg{User: asha})
	staleGen := m.gen

	// The analyst moves on to another user before the first load lands.
	m, _ = press(t, m, "esc")
	require.Equal(t, StateList, m.state)
	m, cmd := update(t, m, components.UserSelectedMsg{User: vikram})
	require.Greater(t, m.gen, staleGen)

	m, _ = update(t, m, dossierLoadedMsg{
		dossier: &model.Dossier{Profile: asha},
		mode:    dossier.Full,
		gen:     staleGen,
	})
	assert.Equal(t, vikram.ID, m.current.ID)
	assert.True(t, m.loading)

	stale := staleCmd()
	m, _ = update(t, m, stale)
	assert.Equal(t, vikram.ID, m.current.ID)

	m, _ = update(t, m, cmd())
	assert.False(t, m.loading)
	assert.Equal(t, vikram.FullName, m.dossierView.Dossier().Profile.FullName)
}

func TestGraphAction(t *testing.T) {
	b, m := setupModel(t, 5)
	plot := map[string]any{
		"data":   []any{map[string]any{"mode": "markers+text", "text": []string{"<b>ACC1</b>", "<b>ACC2</b>"}}},
		"layout": map[string]any{"annotations": []any{map[string]any{}}},
	}
	b.AddJob("graph-job", &testutil.JobScript{
		Statuses:   []model.JobStatus{model.JobPending, model.JobRunning, model.JobSuccess},
		ResultType: model.ResultGraph,
		Result:     map[string]any{"plot_data": plot, "ai_explanation": "ACC1 is a hub."},
	})
	m = openAsha(t, m)

	m, cmd := press(t, m, "g")
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Network analysis")

	done := cmd()

	attempt := waitEvent[pollAttemptMsg](t, m)
	assert.Equal(t, actions.Graph, attempt.action)
	m, _ = update(t, m, attempt)
	assert.Contains(t, m.progress[actions.Graph], "/5)")

	refresh := waitEvent[refreshMsg](t, m)
	assert.Equal(t, asha.ID, refresh.userID)

	m, _ = update(t, m, done)
	require.Equal(t, StateModal, m.state)
	assert.Equal(t, "Network Analysis", m.modal.Title())
	assert.Equal(t, "Network analysis complete.", m.snack)
	assert.Empty(t, m.progress)
	view := m.View()
	assert.Contains(t, view, "2 nodes, 1 edges")
	assert.Contains(t, view, "ACC1 is a hub.")

	m, cmd = press(t, m, "esc")
	m, _ = update(t, m, cmd())
	assert.Equal(t, StateDetail, m.state)

	_, cmd = update(t, m, refresh)
	assert.NotNil(t, cmd)
}

func TestLateAttemptAfterDoneDoesNotBlockRerun(t *testing.T) {
	b, m := setupModel(t, 5)
	b.AddJob("graph-job", &testutil.JobScript{
		Statuses:   []model.JobStatus{model.JobSuccess},
		ResultType: model.ResultGraph,
		Result:     map[string]any{"plot_data": map[string]any{}, "ai_explanation": "Quiet network."},
	})
	m = openAsha(t, m)

	m, cmd := press(t, m, "g")
	require.NotNil(t, cmd)
	done := cmd()
	attempt := waitEvent[pollAttemptMsg](t, m)

	// The result arrives before the last attempt event.
	m, _ = update(t, m, done)
	require.Equal(t, StateModal, m.state)
	assert.Empty(t, m.progress)

	m, cmd = press(t, m, "esc")
	m, _ = update(t, m, cmd())
	require.Equal(t, StateDetail, m.state)

	m, _ = update(t, m, attempt)
	assert.Empty(t, m.progress)

	m, cmd = press(t, m, "g")
	assert.NotNil(t, cmd)
	assert.NotContains(t, m.snack, "already running")
	assert.Contains(t, m.progress, actions.Graph)
}

func TestGraphAction_Mismatch(t *testing.T) {
	b, m := setupModel(t, 5)
	b.AddJob("graph-job", &testutil.JobScript{
		Statuses:   []model.JobStatus{model.JobSuccess},
		ResultType: model.ResultGeneric,
		Result:     "not a graph",
	})
	m = openAsha(t, m)

	m, cmd := press(t, m, "g")
	m, _ = update(t, m, cmd())

	assert.Equal(t, StateDetail, m.state)
	assert.Equal(t, "Received an unexpected result type from the server.", m.snack)
	assert.Equal(t, snackError, m.snackLevel)
}

func TestLeavingDetailCancelsPoll(t *testing.T) {
	b, m := setupModel(t, 100000)
	b.AddJob("graph-job", &testutil.JobScript{Statuses: []model.JobStatus{model.JobRunning}})
	m = openAsha(t, m)

	m, cmd := press(t, m, "g")
	require.NotNil(t, cmd)

	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	waitEvent[pollAttemptMsg](t, m)
	m, _ = press(t, m, "esc")
	require.Equal(t, StateList, m.state)

	var done tea.Msg
	select {
	case done = <-result:
	case <-time.After(time.Second):
		t.Fatal("poll was not canceled when leaving the detail view")
	}

	m, _ = update(t, m, done)
	assert.Equal(t, StateList, m.state)
	assert.Empty(t, m.snack)

	hits := b.Hits("GET /api/v1/results/{job}")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, hits, b.Hits("GET /api/v1/results/{job}"))
}

func TestActionAlreadyRunning(t *testing.T) {
	_, m := setupModel(t, 5)
	m = openAsha(t, m)

	m, cmd := press(t, m, "k")
	require.NotNil(t, cmd)

	m, _ = press(t, m, "k")
	assert.Equal(t, "KYC check is already running.", m.snack)
	assert.Equal(t, snackWarning, m.snackLevel)

	m, _ = update(t, m, cmd())
	assert.Equal(t, "KYC check complete.", m.snack)
	assert.Equal(t, asha.ID, waitEvent[refreshMsg](t, m).userID)
}

func TestAddTransactionForm(t *testing.T) {
	b, m := setupModel(t, 5)
	m = openAsha(t, m)

	m, _ = press(t, m, "a")
	require.Equal(t, StateForm, m.state)
	assert.Contains(t, m.View(), model.DefaultManualDescription)

	tests := []struct {
		name   string
		submit components.TransactionSubmittedMsg
		errMsg string
	}{
		{
			name:   "invalid amount",
			submit: components.TransactionSubmittedMsg{Amount: "lots", Description: "Cash"},
			errMsg: "Please enter a valid amount.",
		},
		{
			name:   "missing description",
			submit: components.TransactionSubmittedMsg{Amount: "100", Description: "  "},
			errMsg: "Description is required.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, cmd := update(t, m, tt.submit)
			assert.Nil(t, cmd)
			assert.Equal(t, StateForm, next.state)
			assert.Contains(t, next.View(), tt.errMsg)
		})
	}
	assert.Empty(t, b.Created())

	m, cmd := update(t, m, components.TransactionSubmittedMsg{Amount: "50000", Description: "Manual Deposit"})
	require.NotNil(t, cmd)
	assert.Equal(t, StateDetail, m.state)

	m, _ = update(t, m, cmd())
	assert.Equal(t, "Transaction added! Analyzing patterns...", m.snack)
	require.Len(t, b.Created(), 1)
	assert.InDelta(t, 50000, b.Created()[0].Amount, 0.001)
}

func TestAdvisorModal(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		title string
		text  string
	}{
		{name: "explain", key: "e", title: actions.ExplainTitle, text: "user appears low-risk"},
		{name: "sar", key: "s", title: actions.SARTitle, text: "SAR not warranted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m := setupModel(t, 5)
			m = openAsha(t, m)

			m, cmd := press(t, m, tt.key)
			require.NotNil(t, cmd)
			m, _ = update(t, m, cmd())

			require.Equal(t, StateModal, m.state)
			assert.Equal(t, tt.title, m.modal.Title())
			assert.Contains(t, m.View(), tt.text)
		})
	}
}

func TestAdvisorErrorShowsModal(t *testing.T) {
	b, m := setupModel(t, 5)
	b.SetAdvice("explain", map[string]any{"error": "LLM quota exceeded"})
	m = openAsha(t, m)

	m, cmd := press(t, m, "e")
	m, _ = update(t, m, cmd())

	require.Equal(t, StateModal, m.state)
	assert.Contains(t, m.View(), "Error generating response.")
}

func TestSnackbarExpiry(t *testing.T) {
	_, m := setupModel(t, 5)

	_ = m.showSnack("first", snackInfo)
	firstID := m.snackID
	_ = m.showSnack("second", snackInfo)

	m, _ = update(t, m, snackExpiredMsg{id: firstID})
	assert.Equal(t, "second", m.snack)

	m, _ = update(t, m, snackExpiredMsg{id: m.snackID})
	assert.Empty(t, m.snack)
}

func TestHelpToggle(t *testing.T) {
	_, m := setupModel(t, 5)
	m = openAsha(t, m)

	m, _ = press(t, m, "?")
	require.Equal(t, StateHelp, m.state)
	assert.Contains(t, m.View(), "draft SAR")

	m, _ = press(t, m, "?")
	assert.Equal(t, StateDetail, m.state)
}
