package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/xerrors"
	"github.com/ShikharGupta100/Transaction-Ledger/pkg/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type TransactionRepository interface {
	// ExecuteTransfer runs the whole transfer as one atomic unit:
	// PENDING transaction row, DEBIT entry, CREDIT entry, COMPLETED status.
	// Either all four writes commit or none persist.
	ExecuteTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.Transaction, []*domain.LedgerEntry, error)

	// ExecuteSystemFunding credits the target from the SYSTEM account with a
	// single CREDIT entry (money creation; no balance check on SYSTEM).
	ExecuteSystemFunding(ctx context.Context, req *domain.SystemFundingRequest, system *domain.Account) (*domain.Transaction, *domain.LedgerEntry, error)

	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)

	// MarkStalePendingFailed sweeps transactions stuck in PENDING for longer
	// than staleAfter to FAILED. Returns the number of rows swept.
	MarkStalePendingFailed(ctx context.Context, staleAfter time.Duration) (int64, error)
}

type transactionRepo struct {
	db          *pgxpool.Pool
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	gen         *ids.Generator
}

func NewTransactionRepo(db *pgxpool.Pool, accountRepo AccountRepository, ledgerRepo LedgerRepository, gen *ids.Generator) TransactionRepository {
	return &transactionRepo{
		db:          db,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		gen:         gen,
	}
}

func (r *transactionRepo) beginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (r *transactionRepo) ExecuteTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.Transaction, []*domain.LedgerEntry, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	// Step 1: claim the idempotency key by inserting the PENDING row.
	// The unique constraint is the arbiter: a concurrent duplicate blocks
	// here until the winner resolves, then surfaces as a 23505.
	txn, err := r.insertPending(ctx, tx, req.FromAccountID, req.ToAccountID, req.Amount, req.IdempotencyKey)
	if err != nil {
		return nil, nil, err
	}

	// Step 2: lock both account rows in deterministic order to prevent
	// deadlocks, and re-validate status under the lock.
	first, second := req.FromAccountID, req.ToAccountID
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]*domain.Account, 2)
	for _, id := range []string{first, second} {
		account, err := r.accountRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, nil, err
		}
		if account.Status != domain.AccountActive {
			return nil, nil, fmt.Errorf("account %s: %w", id, xerrors.ErrAccountInactive)
		}
		locked[id] = account
	}

	// Step 3: balance sufficiency under the source account's lock. Any
	// concurrent debit of the same account is serialized behind us, so the
	// aggregate cannot be stale relative to the write below.
	balance, err := r.ledgerRepo.BalanceOfTx(ctx, tx, req.FromAccountID)
	if err != nil {
		return nil, nil, err
	}
	if balance.LessThan(req.Amount) {
		return nil, nil, fmt.Errorf("%w (available: %s, required: %s)",
			xerrors.ErrInsufficientBalance, balance.String(), req.Amount.String())
	}

	// Step 4: paired entries of equal amount.
	entries := []*domain.LedgerEntry{
		{
			ID:            r.gen.New(),
			AccountID:     req.FromAccountID,
			TransactionID: txn.ID,
			Amount:        req.Amount,
			Type:          domain.EntryDebit,
		},
		{
			ID:            r.gen.New(),
			AccountID:     req.ToAccountID,
			TransactionID: txn.ID,
			Amount:        req.Amount,
			Type:          domain.EntryCredit,
		},
	}
	for _, e := range entries {
		if err := r.ledgerRepo.Create(ctx, tx, e); err != nil {
			return nil, nil, err
		}
	}

	// Step 5: complete and commit.
	if err := r.markStatus(ctx, tx, txn, domain.TxCompleted); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", xerrors.ErrCommitFailed, err)
	}

	return txn, entries, nil
}

func (r *transactionRepo) ExecuteSystemFunding(ctx context.Context, req *domain.SystemFundingRequest, system *domain.Account) (*domain.Transaction, *domain.LedgerEntry, error) {
	tx, err := r.beginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	txn, err := r.insertPending(ctx, tx, system.ID, req.ToAccountID, req.Amount, req.IdempotencyKey)
	if err != nil {
		return nil, nil, err
	}

	target, err := r.accountRepo.GetByIDForUpdate(ctx, tx, req.ToAccountID)
	if err != nil {
		return nil, nil, err
	}
	if target.Status != domain.AccountActive {
		return nil, nil, fmt.Errorf("account %s: %w", target.ID, xerrors.ErrAccountInactive)
	}

	// Money creation: a single CREDIT on the target, no matching DEBIT on
	// SYSTEM. The SYSTEM balance is not interpreted as real funds.
	entry := &domain.LedgerEntry{
		ID:            r.gen.New(),
		AccountID:     req.ToAccountID,
		TransactionID: txn.ID,
		Amount:        req.Amount,
		Type:          domain.EntryCredit,
	}
	if err := r.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return nil, nil, err
	}

	if err := r.markStatus(ctx, tx, txn, domain.TxCompleted); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", xerrors.ErrCommitFailed, err)
	}

	return txn, entry, nil
}

func (r *transactionRepo) insertPending(ctx context.Context, tx pgx.Tx, fromID, toID string, amount decimal.Decimal, key string) (*domain.Transaction, error) {
	now := time.Now()
	txn := &domain.Transaction{
		ID:             r.gen.New(),
		FromAccountID:  fromID,
		ToAccountID:    toID,
		Amount:         amount,
		IdempotencyKey: key,
		Status:         domain.TxPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, from_account, to_account, amount, idempotency_key, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, txn.ID, txn.FromAccountID, txn.ToAccountID, txn.Amount.String(), txn.IdempotencyKey, txn.Status, txn.CreatedAt, txn.UpdatedAt)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return nil, xerrors.ErrDuplicateIdempotencyKey
		}
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return txn, nil
}

func (r *transactionRepo) markStatus(ctx context.Context, tx pgx.Tx, txn *domain.Transaction, status domain.TransactionStatus) error {
	txn.Status = status
	txn.UpdatedAt = time.Now()

	_, err := tx.Exec(ctx, `
		UPDATE transactions SET status=$2, updated_at=$3 WHERE id=$1
	`, txn.ID, txn.Status, txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}

const transactionSelect = `
	SELECT id, from_account, to_account, amount::text, idempotency_key, status, created_at, updated_at
	FROM transactions`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount string
	err := row.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &amount, &t.IdempotencyKey, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrTransactionNotFound
		}
		return nil, err
	}
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q on transaction %s: %w", amount, t.ID, err)
	}
	t.Amount = dec
	return &t, nil
}

func (r *transactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx, transactionSelect+` WHERE id=$1`, id))
}

func (r *transactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error) {
	return scanTransaction(r.db.QueryRow(ctx, transactionSelect+` WHERE idempotency_key=$1`, key))
}

func (r *transactionRepo) MarkStalePendingFailed(ctx context.Context, staleAfter time.Duration) (int64, error) {
	cutoff := time.Now().Add(-staleAfter)
	tag, err := r.db.Exec(ctx, `
		UPDATE transactions
		SET status='FAILED', updated_at=now()
		WHERE status='PENDING' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale pending transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}
