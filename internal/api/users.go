package api

import (
	"context"
	"net/http"

	"github.com/Veraticus/caseworker/internal/model"
)

// ListUsers fetches every user summary.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/users", "/api/v1/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser fetches one user's profile.
func (c *Client) GetUser(ctx context.Context, userID int) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, userPath(userID, ""), "/api/v1/users/{id}", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAlerts fetches the alerts raised against a user, newest first.
func (c *Client) GetAlerts(ctx context.Context, userID int) ([]model.Alert, error) {
	alerts := []model.Alert{}
	if err := c.doJSON(ctx, http.MethodGet, userPath(userID, "/alerts"), "/api/v1/users/{id}/alerts", nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetTransactions fetches the transactions credited to a user, newest first.
func (c *Client) GetTransactions(ctx context.Context, userID int) ([]model.Transaction, error) {
	txns := []model.Transaction{}
	if err := c.doJSON(ctx, http.MethodGet, userPath(userID, "/transactions"), "/api/v1/users/{id}/transactions", nil, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// CreateTransaction records a manual transaction for a user. The backend
// analyses it asynchronously without returning a job id.
func (c *Client) CreateTransaction(ctx context.Context, userID int, txn model.NewTransaction) (*model.Transaction, error) {
	var created model.Transaction
	if err := c.doJSON(ctx, http.MethodPost, userPath(userID, "/transactions"), "/api/v1/users/{id}/transactions", txn, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
