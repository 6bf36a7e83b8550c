package model

import (
	"strconv"
	"time"
)

// LedgerHeader is the column order of the bank export the ingestion
// endpoint accepts.
var LedgerHeader = []string{
	"Date", "Transaction_ID", "Debit_Account", "Credit_Account", "Amount", "Currency", "Description",
}

// RequiredLedgerColumns must be present in every uploaded file. Currency
// and Description default on the backend.
var RequiredLedgerColumns = []string{
	"Date", "Transaction_ID", "Debit_Account", "Credit_Account", "Amount",
}

// LedgerRow is one line of a bank export: money moves from the debit
// account to the credit account.
type LedgerRow struct {
	Date          time.Time
	TransactionID string
	DebitAccount  string
	CreditAccount string
	Currency      string
	Description   string
	Amount        float64
}

// Record renders the row in LedgerHeader order.
func (r LedgerRow) Record() []string {
	return []string{
		r.Date.Format("2006-01-02T15:04:05"),
		r.TransactionID,
		r.DebitAccount,
		r.CreditAccount,
		strconv.FormatFloat(r.Amount, 'f', 2, 64),
		r.Currency,
		r.Description,
	}
}
