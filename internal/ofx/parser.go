// Package ofx converts OFX/QFX statements into bank export rows.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/Veraticus/caseworker/internal/model"
	"github.com/aclindsa/ofxgo"
)

// DefaultCurrency is used when a statement carries no CURDEF.
const DefaultCurrency = "INR"

// unknownCounterparty stands in for transactions without a payee.
const unknownCounterparty = "UNKNOWN"

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags missing their closing bracket in SGML-style files.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser converts OFX statements.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile reads a statement and returns one ledger row per transaction.
// Outflows are debited from the statement account and credited to the
// payee; inflows run the other way.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.LedgerRow, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var rows []model.LedgerRow
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			rows = append(rows, p.convertList(stmt.BankTranList.Transactions, string(stmt.BankAcctFrom.AcctID), stmt.CurDef)...)
		}
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			rows = append(rows, p.convertList(stmt.BankTranList.Transactions, string(stmt.CCAcctFrom.AcctID), stmt.CurDef)...)
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(rows),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return rows, nil
}

func (p *Parser) convertList(txns []ofxgo.Transaction, accountID string, curDef ofxgo.CurrSymbol) []model.LedgerRow {
	currency := DefaultCurrency
	if code := strings.TrimSpace(curDef.String()); code != "" && code != "XXX" {
		currency = code
	}

	rows := make([]model.LedgerRow, 0, len(txns))
	for _, tx := range txns {
		rows = append(rows, p.convertTransaction(tx, accountID, currency))
	}
	return rows
}

// convertTransaction converts an OFX transaction into a ledger row.
func (p *Parser) convertTransaction(tx ofxgo.Transaction, accountID, currency string) model.LedgerRow {
	counterparty := p.extractMerchantName(tx)
	if counterparty == "" {
		counterparty = unknownCounterparty
	}

	// OFX uses negative amounts for money leaving the account.
	amount, _ := tx.TrnAmt.Float64()

	row := model.LedgerRow{
		Date:          tx.DtPosted.Time,
		TransactionID: string(tx.FiTID),
		Currency:      currency,
		Description:   strings.TrimSpace(string(tx.Name)),
		Amount:        math.Abs(amount),
	}
	if tx.Memo != "" {
		row.Description = strings.TrimSpace(string(tx.Memo))
	}
	if row.Description == "" {
		row.Description = fmt.Sprintf("%v", tx.TrnType)
	}

	if amount < 0 {
		row.DebitAccount, row.CreditAccount = accountID, counterparty
	} else {
		row.DebitAccount, row.CreditAccount = counterparty, accountID
	}
	return row
}

// extractMerchantName tries to get a clean counterparty name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"ACH CREDIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
		"WIRE FROM ",
		"WIRE TO ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Drop a leading "MM/DD " date.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE", "TRANSFER":
		return true
	}
	return false
}

// GetAccounts returns the distinct account ids in a statement.
func (p *Parser) GetAccounts(ctx context.Context, reader io.Reader) ([]string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			accounts = append(accounts, id)
		}
	}
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(string(stmt.BankAcctFrom.AcctID))
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(string(stmt.CCAcctFrom.AcctID))
		}
	}
	return accounts, nil
}
