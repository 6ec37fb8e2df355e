package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a transaction.
//
// PENDING   → created, atomic commit in flight
// COMPLETED → committed together with its ledger entries
// FAILED    → terminal; swept from stale PENDING or marked by an operator
// REVERTED  → terminal; compensated by an operator action
type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
	TxReverted  TransactionStatus = "REVERTED"
)

// Terminal reports whether the status can never change again.
func (s TransactionStatus) Terminal() bool {
	return s == TxFailed || s == TxReverted
}

// Transaction ties a pair of ledger entries (or a single CREDIT for
// system funding) to one idempotency key.
type Transaction struct {
	ID             string            `json:"id"`
	FromAccountID  string            `json:"from_account"`
	ToAccountID    string            `json:"to_account"`
	Amount         decimal.Decimal   `json:"amount"`
	IdempotencyKey string            `json:"idempotency_key"`
	Status         TransactionStatus `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TransferRequest is the core's transport-agnostic transfer input.
type TransferRequest struct {
	FromAccountID  string          `json:"from_account"`
	ToAccountID    string          `json:"to_account"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
	Actor          Actor           `json:"-"`
}

// Validate rejects a malformed transfer before any side effect.
func (r *TransferRequest) Validate() error {
	if r.FromAccountID == "" || r.ToAccountID == "" {
		return errors.New("fromAccount and toAccount are required")
	}
	if r.IdempotencyKey == "" {
		return errors.New("idempotencyKey is required")
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// SystemFundingRequest credits a target account from the SYSTEM account.
type SystemFundingRequest struct {
	ToAccountID    string          `json:"to_account"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
	Actor          Actor           `json:"-"`
}

func (r *SystemFundingRequest) Validate() error {
	if r.ToAccountID == "" {
		return errors.New("toAccount is required")
	}
	if r.IdempotencyKey == "" {
		return errors.New("idempotencyKey is required")
	}
	if !r.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	return nil
}

// ResultStatus is the caller-visible outcome of submitting a request.
type ResultStatus string

const (
	ResultAccepted         ResultStatus = "ACCEPTED"
	ResultAlreadyProcessed ResultStatus = "ALREADY_PROCESSED"
	ResultStillProcessing  ResultStatus = "STILL_PROCESSING"
	ResultFailed           ResultStatus = "FAILED"
)

// TransactionResult describes a transaction to the caller, whether it was
// executed now or replayed from an earlier submission of the same key.
type TransactionResult struct {
	Status      ResultStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// ReplayResult maps an existing transaction's status to the canonical
// caller-visible outcome for a duplicate idempotency key.
func ReplayResult(tx *Transaction) *TransactionResult {
	switch tx.Status {
	case TxCompleted:
		return &TransactionResult{
			Status:      ResultAlreadyProcessed,
			Message:     "transaction already processed",
			Transaction: tx,
		}
	case TxPending:
		return &TransactionResult{
			Status:      ResultStillProcessing,
			Message:     "transaction is still processing, retry later with the same idempotency key",
			Transaction: tx,
		}
	default: // FAILED, REVERTED
		return &TransactionResult{
			Status:      ResultFailed,
			Message:     "transaction is in terminal state " + string(tx.Status) + ", submit again with a new idempotency key",
			Transaction: tx,
		}
	}
}
