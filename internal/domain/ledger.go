package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType marks the direction of a ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"  // decreases the account's balance
	EntryCredit EntryType = "CREDIT" // increases the account's balance
)

// LedgerEntry is an immutable, append-only record of a single-sided value
// movement against one account. Entries are only ever created as part of a
// transaction's atomic commit; there is no update or delete path, at the
// repository API level and again at the storage level.
type LedgerEntry struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"` // always positive
	Type          EntryType       `json:"type"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the entry's contribution to its account's balance:
// +amount for CREDIT, -amount for DEBIT.
func (e *LedgerEntry) Signed() decimal.Decimal {
	if e.Type == EntryDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
