package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
)

// Account state
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is not active")
	ErrAccountClosed   = errors.New("account is closed")
	ErrAccountExists   = errors.New("owner already has an account")
	ErrSystemAccount   = errors.New("system account not configured")
)

// Transfers
var (
	ErrSelfTransfer            = errors.New("fromAccount and toAccount cannot be the same")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrCommitFailed            = errors.New("transaction commit failed")
)

// Ledger immutability
var (
	ErrLedgerImmutable = errors.New("ledger entries are immutable and cannot be modified or deleted")
)

// PG error codes we branch on.
const (
	PGUniqueViolation = "23505"
	PGCheckViolation  = "23514"
)

// ParsePGErrorCode extracts the SQLSTATE code from a pgx error, or "unknown".
func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "unknown"
}

// IsUniqueViolation reports whether err is a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == PGUniqueViolation
}
