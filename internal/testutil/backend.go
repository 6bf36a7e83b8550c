// Package testutil provides a fake compliance backend for tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/Veraticus/caseworker/internal/model"
)

// JobScript scripts the statuses a job reports on successive polls. The
// last status repeats once the script is exhausted.
type JobScript struct {
	Result     any
	ResultType model.ResultType
	Statuses   []model.JobStatus
	// FailPolls makes the first n polls answer 503 before the script starts.
	FailPolls int
	polls     int
}

// Upload is a file received by the ingestion endpoint.
type Upload struct {
	Filename string
	Content  string
}

type failure struct {
	detail string
	status int
}

// Backend is an in-memory stand-in for the compliance API.
type Backend struct {
	*httptest.Server
	t            *testing.T
	users        []model.User
	alerts       map[int][]model.Alert
	transactions map[int][]model.Transaction
	jobs         map[string]*JobScript
	failures     map[string]failure
	hits         map[string]int
	created      []model.NewTransaction
	uploads      []Upload
	advice       map[string]map[string]any
	graphJobID   string
	kycJobID     string
	uploadJobID  string
	cleared      int
	mu           sync.Mutex
}

// SetupBackend starts a fake backend that is closed when the test ends.
func SetupBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		t:            t,
		alerts:       make(map[int][]model.Alert),
		transactions: make(map[int][]model.Transaction),
		jobs:         make(map[string]*JobScript),
		failures:     make(map[string]failure),
		hits:         make(map[string]int),
		advice:       make(map[string]map[string]any),
		graphJobID:   "graph-job",
		uploadJobID:  "upload-job",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", b.handle(b.health))
	mux.HandleFunc("GET /api/v1/users", b.handle(b.listUsers))
	mux.HandleFunc("GET /api/v1/users/{id}", b.handle(b.getUser))
	mux.HandleFunc("GET /api/v1/users/{id}/alerts", b.handle(b.getAlerts))
	mux.HandleFunc("GET /api/v1/users/{id}/transactions", b.handle(b.getTransactions))
	mux.HandleFunc("POST /api/v1/users/{id}/transactions", b.handle(b.createTransaction))
	mux.HandleFunc("POST /api/v1/users/{id}/run-kyc-check", b.handle(b.runKYC))
	mux.HandleFunc("POST /api/v1/users/{id}/run-graph-analysis", b.handle(b.runGraph))
	mux.HandleFunc("GET /api/v1/results/{job}", b.handle(b.getResult))
	mux.HandleFunc("GET /api/v1/advisor/explain-risk/{id}", b.handle(b.getAdvice("explain")))
	mux.HandleFunc("GET /api/v1/advisor/generate-sar/{id}", b.handle(b.getAdvice("sar")))
	mux.HandleFunc("POST /ingest/clear-all-data", b.handle(b.clearAll))
	mux.HandleFunc("POST /ingest/upload-csv", b.handle(b.uploadCSV))

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

// AddUser registers a user with its alerts and transactions.
func (b *Backend) AddUser(user model.User, alerts []model.Alert, txns []model.Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = append(b.users, user)
	if alerts == nil {
		alerts = []model.Alert{}
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	b.alerts[user.ID] = alerts
	b.transactions[user.ID] = txns
}

// SetAlerts replaces the alerts of a user.
func (b *Backend) SetAlerts(userID int, alerts []model.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts[userID] = alerts
}

// AddJob scripts the results endpoint for a job id.
func (b *Backend) AddJob(jobID string, script *JobScript) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[jobID] = script
}

// SetGraphJobID sets the job id returned when graph analysis starts.
func (b *Backend) SetGraphJobID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.graphJobID = id
}

// SetKYCJobID sets the job id returned when a KYC check starts. Empty
// means the backend answers without one.
func (b *Backend) SetKYCJobID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kycJobID = id
}

// SetAdvice sets the body returned by an advisor endpoint ("explain" or "sar").
func (b *Backend) SetAdvice(kind string, body map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advice[kind] = body
}

// Fail makes the route answer with status and a {"detail": ...} body.
// Routes use the mux pattern, e.g. "GET /api/v1/users/{id}/alerts".
func (b *Backend) Fail(route string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, detail: detail}
}

// Hits returns how many times a route was requested.
func (b *Backend) Hits(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

// Created returns the manual transactions received.
func (b *Backend) Created() []model.NewTransaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.NewTransaction(nil), b.created...)
}

// Uploads returns the files received by the ingestion endpoint.
func (b *Backend) Uploads() []Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Upload(nil), b.uploads...)
}

// Cleared returns how many times all data was cleared.
func (b *Backend) Cleared() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cleared
}

func (b *Backend) handle(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.Pattern]++
		f, failing := b.failures[r.Pattern]
		b.mu.Unlock()

		if failing {
			writeJSON(w, f.status, map[string]string{"detail": f.detail})
			return
		}
		fn(w, r)
	}
}

func (b *Backend) userID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"path", "id"}, "msg": "Input should be a valid integer"}},
		})
		return 0, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == id {
			return id, true
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "User not found"})
	return 0, false
}

func (b *Backend) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *Backend) listUsers(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	users := append([]model.User{}, b.users...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, users)
}

func (b *Backend) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := b.userID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == id {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
}

func (b *Backend) getAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := b.userID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	alerts := b.alerts[id]
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, alerts)
}

func (b *Backend) getTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := b.userID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	txns := b.transactions[id]
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, txns)
}

func (b *Backend) createTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := b.userID(w, r)
	if !ok {
		return
	}

	var in model.NewTransaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	b.created = append(b.created, in)
	txn := model.Transaction{
		ID:          len(b.created),
		Amount:      in.Amount,
		Currency:    "INR",
		Description: in.Description,
	}
	b.transactions[id] = append([]model.Transaction{txn}, b.transactions[id]...)
	b.mu.Unlock()

	writeJSON(w, http.StatusCreated, txn)
}

func (b *Backend) runKYC(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.userID(w, r); !ok {
		return
	}
	b.mu.Lock()
	jobID := b.kycJobID
	b.mu.Unlock()

	if jobID == "" {
		writeJSON(w, http.StatusAccepted, map[string]string{"message": "KYC check queued"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (b *Backend) runGraph(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.userID(w, r); !ok {
		return
	}
	b.mu.Lock()
	jobID := b.graphJobID
	b.mu.Unlock()
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (b *Backend) getResult(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	script, ok := b.jobs[r.PathValue("job")]
	if !ok {
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": string(model.JobPending), "result_type": string(model.ResultGeneric)})
		return
	}

	if script.FailPolls > 0 {
		script.FailPolls--
		b.mu.Unlock()
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "result backend unavailable"})
		return
	}

	status := model.JobPending
	if len(script.Statuses) > 0 {
		idx := script.polls
		if idx >= len(script.Statuses) {
			idx = len(script.Statuses) - 1
		}
		status = script.Statuses[idx]
	}
	script.polls++
	body := map[string]any{"status": status}
	if status.IsTerminal() {
		body["result_type"] = script.ResultType
		body["result"] = script.Result
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

func (b *Backend) getAdvice(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.userID(w, r); !ok {
			return
		}
		b.mu.Lock()
		body, ok := b.advice[kind]
		b.mu.Unlock()
		if !ok {
			if kind == "explain" {
				body = map[string]any{"explanation": "No open alerts; user appears low-risk."}
			} else {
				body = map[string]any{"sar_draft": "No suspicious activity found. SAR not warranted."}
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func (b *Backend) clearAll(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	b.cleared++
	b.users = nil
	b.alerts = make(map[int][]model.Alert)
	b.transactions = make(map[int][]model.Transaction)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "All investigation data has been cleared."})
}

func (b *Backend) uploadCSV(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Error reading file"})
		return
	}

	b.mu.Lock()
	b.uploads = append(b.uploads, Upload{Filename: header.Filename, Content: string(content)})
	jobID := b.uploadJobID
	b.mu.Unlock()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "File upload successful. Processing has started in the background.",
		"job_id":  jobID,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
