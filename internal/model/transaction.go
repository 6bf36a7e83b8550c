package model

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// DefaultManualDescription is the description prefilled for manual entries.
const DefaultManualDescription = "Manual Deposit"

// Transaction is a single movement of funds credited to a user.
type Transaction struct {
	Timestamp   Timestamp `json:"timestamp"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	ID          int       `json:"id"`
}

// NewTransaction is the body for manually adding a transaction.
type NewTransaction struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Validation errors for manual transactions.
var (
	ErrInvalidAmount      = errors.New("please enter a valid amount")
	ErrMissingDescription = errors.New("description is required")
)

// ParseNewTransaction builds a NewTransaction from raw form input.
func ParseNewTransaction(amount, description string) (NewTransaction, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return NewTransaction{}, ErrInvalidAmount
	}

	value, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return NewTransaction{}, ErrInvalidAmount
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return NewTransaction{}, ErrMissingDescription
	}

	return NewTransaction{Amount: value, Description: description}, nil
}
