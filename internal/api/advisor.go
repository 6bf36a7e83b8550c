package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// AdvisorReply is the AI advisor's answer. Backends that generate advice
// asynchronously return a JobID instead of Text.
type AdvisorReply struct {
	Text  string
	JobID string
}

type advisorBody struct {
	Explanation string `json:"explanation"`
	SARDraft    string `json:"sar_draft"`
	Error       string `json:"error"`
	JobID       string `json:"job_id"`
}

// ExplainRisk asks the advisor to explain a user's risk profile.
func (c *Client) ExplainRisk(ctx context.Context, userID int) (*AdvisorReply, error) {
	var body advisorBody
	path := "/api/v1/advisor/explain-risk/" + strconv.Itoa(userID)
	if err := c.doJSON(ctx, http.MethodGet, path, "/api/v1/advisor/explain-risk/{id}", nil, &body); err != nil {
		return nil, err
	}
	if body.Error != "" {
		return nil, errors.New(body.Error)
	}
	return &AdvisorReply{Text: body.Explanation, JobID: body.JobID}, nil
}

// GenerateSAR asks the advisor to draft a Suspicious Activity Report.
func (c *Client) GenerateSAR(ctx context.Context, userID int) (*AdvisorReply, error) {
	var body advisorBody
	path := "/api/v1/advisor/generate-sar/" + strconv.Itoa(userID)
	if err := c.doJSON(ctx, http.MethodGet, path, "/api/v1/advisor/generate-sar/{id}", nil, &body); err != nil {
		return nil, err
	}
	if body.Error != "" {
		return nil, errors.New(body.Error)
	}
	return &AdvisorReply{Text: body.SARDraft, JobID: body.JobID}, nil
}

// AdviceFromResult extracts advisor text from a finished generic job result.
func AdviceFromResult(result []byte) (string, error) {
	var text string
	if err := json.Unmarshal(result, &text); err == nil {
		return text, nil
	}

	var body advisorBody
	if err := json.Unmarshal(result, &body); err != nil {
		return "", fmt.Errorf("failed to decode advisor result: %w", err)
	}
	if body.Error != "" {
		return "", errors.New(body.Error)
	}
	if body.Explanation != "" {
		return body.Explanation, nil
	}
	return body.SARDraft, nil
}
