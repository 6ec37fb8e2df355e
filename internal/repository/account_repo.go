package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository interface {
	Create(ctx context.Context, a *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByIDForUpdate fetches the account row with a row lock inside tx.
	// Serializes concurrent transfers touching the same account.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error)
	GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error)
	GetSystemAccount(ctx context.Context) (*domain.Account, error)
	UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error
}

type accountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) AccountRepository {
	return &accountRepo{db: db}
}

const accountColumns = `id, owner_id, owner_type, status, currency, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.OwnerType, &a.Status, &a.Currency, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) Create(ctx context.Context, a *domain.Account) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, owner_id, owner_type, status, currency, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, a.ID, a.OwnerID, a.OwnerType, a.Status, a.Currency, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return xerrors.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id=$1
	`, id)
	return scanAccount(row)
}

func (r *accountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error) {
	if tx == nil {
		return nil, errors.New("transaction cannot be nil")
	}
	row := tx.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id=$1
		FOR UPDATE
	`, id)
	return scanAccount(row)
}

func (r *accountRepo) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE owner_id=$1 AND owner_type='user'
	`, ownerID)
	return scanAccount(row)
}

func (r *accountRepo) GetSystemAccount(ctx context.Context) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE owner_type='system'
		ORDER BY created_at ASC
		LIMIT 1
	`)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, xerrors.ErrAccountNotFound) {
			return nil, xerrors.ErrSystemAccount
		}
		return nil, err
	}
	return a, nil
}

// UpdateStatus applies an operator status transition. CLOSED is terminal;
// accounts are never deleted.
func (r *accountRepo) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET status=$2, updated_at=$3
		WHERE id=$1 AND status <> 'CLOSED'
	`, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if existing.Status == domain.AccountClosed {
			return xerrors.ErrAccountClosed
		}
	}
	return nil
}
