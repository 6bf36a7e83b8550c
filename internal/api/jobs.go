package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Veraticus/caseworker/internal/model"
)

// RunKYCCheck enqueues a KYC check. The job id is empty when the backend
// does not report one.
func (c *Client) RunKYCCheck(ctx context.Context, userID int) (string, error) {
	var ticket model.JobTicket
	if err := c.doJSON(ctx, http.MethodPost, userPath(userID, "/run-kyc-check"), "/api/v1/users/{id}/run-kyc-check", nil, &ticket); err != nil {
		return "", err
	}
	return ticket.JobID, nil
}

// RunGraphAnalysis enqueues a network analysis job.
func (c *Client) RunGraphAnalysis(ctx context.Context, userID int) (string, error) {
	var ticket model.JobTicket
	if err := c.doJSON(ctx, http.MethodPost, userPath(userID, "/run-graph-analysis"), "/api/v1/users/{id}/run-graph-analysis", nil, &ticket); err != nil {
		return "", err
	}
	if ticket.JobID == "" {
		return "", fmt.Errorf("backend accepted graph analysis without a job id")
	}
	return ticket.JobID, nil
}

// GetJobResult queries the unified results endpoint once.
func (c *Client) GetJobResult(ctx context.Context, jobID string) (*model.Job, error) {
	job := model.Job{ID: jobID}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/results/"+url.PathEscape(jobID), "/api/v1/results/{job_id}", nil, &job); err != nil {
		return nil, err
	}
	job.ID = jobID
	return &job, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/health", "/api/v1/health", nil, &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("backend reported status %q", status.Status)
	}
	return nil
}
