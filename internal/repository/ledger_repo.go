package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerRepository is the append-only write path for ledger entries. There is
// deliberately no update or delete method: an entry, once created, can never
// be altered through this API, and the schema's triggers reject mutation from
// any other client as well.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID string) ([]*domain.LedgerEntry, error)
	ListByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error)
	// BalanceOf derives the account's balance from its full entry history.
	BalanceOf(ctx context.Context, accountID string) (decimal.Decimal, error)
	// BalanceOfTx is the same aggregation evaluated inside tx, for sufficiency
	// checks that must see a view consistent with the writes they gate.
	BalanceOfTx(ctx context.Context, tx pgx.Tx, accountID string) (decimal.Decimal, error)
}

type ledgerRepo struct {
	db *pgxpool.Pool
}

func NewLedgerRepo(db *pgxpool.Pool) LedgerRepository {
	return &ledgerRepo{db: db}
}

// Create appends an entry inside an open transaction. Entries only ever come
// into existence as part of a transaction's atomic commit, so a nil tx is a
// programming error.
func (r *ledgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	if tx == nil {
		return errors.New("transaction cannot be nil")
	}
	e.CreatedAt = time.Now()

	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (id, account_id, transaction_id, amount, type, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.AccountID, e.TransactionID, e.Amount.String(), e.Type, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

const ledgerSelect = `
	SELECT id, account_id, transaction_id, amount::text, type, created_at
	FROM ledger_entries`

func (r *ledgerRepo) ListByAccount(ctx context.Context, accountID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, ledgerSelect+`
		WHERE account_id=$1
		ORDER BY created_at ASC, id ASC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *ledgerRepo) ListByTransaction(ctx context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, ledgerSelect+`
		WHERE transaction_id=$1
		ORDER BY created_at ASC, id ASC
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var amount string
		if err := rows.Scan(&e.ID, &e.AccountID, &e.TransactionID, &amount, &e.Type, &e.CreatedAt); err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q on ledger entry %s: %w", amount, e.ID, err)
		}
		e.Amount = dec
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

const balanceQuery = `
	SELECT COALESCE(SUM(CASE WHEN type='CREDIT' THEN amount ELSE -amount END), 0)::text
	FROM ledger_entries
	WHERE account_id=$1`

func (r *ledgerRepo) BalanceOf(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return scanBalance(r.db.QueryRow(ctx, balanceQuery, accountID))
}

func (r *ledgerRepo) BalanceOfTx(ctx context.Context, tx pgx.Tx, accountID string) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, errors.New("transaction cannot be nil")
	}
	return scanBalance(tx.QueryRow(ctx, balanceQuery, accountID))
}

func scanBalance(row pgx.Row) (decimal.Decimal, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance %q: %w", raw, err)
	}
	return balance, nil
}
