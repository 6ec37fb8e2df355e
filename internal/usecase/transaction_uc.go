package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/notify"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/pub"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/repository"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/xerrors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	idempotencyCacheTTL = 24 * time.Hour
	sideEffectTimeout   = 5 * time.Second
)

// TransactionUsecase orchestrates transfers and system funding: validation,
// idempotent replay, account guarding, balance gating, and the atomic commit,
// followed by best-effort side effects.
type TransactionUsecase struct {
	transactionRepo repository.TransactionRepository
	accountRepo     repository.AccountRepository
	ledgerRepo      repository.LedgerRepository
	accountUC       *AccountUsecase

	notifier       notify.Notifier
	eventPublisher *pub.TransactionEventPublisher
	redisClient    *redis.Client
	log            *zap.Logger
}

func NewTransactionUsecase(
	transactionRepo repository.TransactionRepository,
	accountRepo repository.AccountRepository,
	ledgerRepo repository.LedgerRepository,
	accountUC *AccountUsecase,
	notifier notify.Notifier,
	eventPublisher *pub.TransactionEventPublisher,
	redisClient *redis.Client,
	log *zap.Logger,
) *TransactionUsecase {
	return &TransactionUsecase{
		transactionRepo: transactionRepo,
		accountRepo:     accountRepo,
		ledgerRepo:      ledgerRepo,
		accountUC:       accountUC,
		notifier:        notifier,
		eventPublisher:  eventPublisher,
		redisClient:     redisClient,
		log:             log,
	}
}

// ===============================
// TRANSFER PATH
// ===============================

// CreateTransfer executes one atomic transfer. Submitting the same
// idempotency key again, concurrently or later, never executes a second
// transfer; the caller gets a result describing the one transaction that
// owns the key.
func (uc *TransactionUsecase) CreateTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.TransactionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidRequest, err)
	}

	// Idempotency short-circuit before any write.
	if result := uc.checkIdempotency(ctx, req.IdempotencyKey); result != nil {
		return result, nil
	}

	// Account guard: existence, status, self-transfer. Read-only.
	from, to, err := uc.accountUC.ValidateTransferParties(ctx, req.FromAccountID, req.ToAccountID)
	if err != nil {
		return nil, err
	}

	// Fast-path sufficiency check before any write. The repo rechecks the
	// aggregate under the account row lock, so this cannot race concurrent
	// debits; it only rejects the obvious case without burning a row.
	balance, err := uc.ledgerRepo.BalanceOf(ctx, req.FromAccountID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("%w (available: %s, required: %s)",
			xerrors.ErrInsufficientBalance, balance.String(), req.Amount.String())
	}

	txn, _, err := uc.transactionRepo.ExecuteTransfer(ctx, req)
	if err != nil {
		if errors.Is(err, xerrors.ErrDuplicateIdempotencyKey) {
			// Lost the claim race; report the winner's transaction.
			return uc.replayExisting(ctx, req.IdempotencyKey)
		}
		if errors.Is(err, xerrors.ErrCommitFailed) {
			// Full rollback: nothing persisted, same key is retry-safe.
			uc.publishFailure(req.FromAccountID, req.ToAccountID, req.Amount.String(), err)
			uc.log.Error("transfer commit failed, all writes rolled back",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(err))
			return nil, fmt.Errorf("%w: retry with the same idempotency key", err)
		}
		return nil, err
	}

	uc.log.Info("transfer completed",
		zap.String("transaction_id", txn.ID),
		zap.String("from_account", from.ID),
		zap.String("to_account", to.ID),
		zap.String("amount", txn.Amount.String()))

	result := &domain.TransactionResult{
		Status:      domain.ResultAccepted,
		Message:     "transaction completed successfully",
		Transaction: txn,
	}
	uc.cacheResult(ctx, req.IdempotencyKey, result)

	// Side effects after commit; their failure never rolls back the transfer.
	go uc.afterCommit(txn, to.OwnerID)

	return result, nil
}

// ===============================
// SYSTEM FUNDING PATH
// ===============================

// CreateSystemFunds injects value from the designated SYSTEM account into a
// target account. SYSTEM is exempt from balance checks and may go arbitrarily
// negative; this is money creation, not a real store of value.
func (uc *TransactionUsecase) CreateSystemFunds(ctx context.Context, req *domain.SystemFundingRequest) (*domain.TransactionResult, error) {
	if !req.Actor.IsSystem {
		return nil, xerrors.ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrInvalidRequest, err)
	}

	if result := uc.checkIdempotency(ctx, req.IdempotencyKey); result != nil {
		return result, nil
	}

	system, err := uc.accountRepo.GetSystemAccount(ctx)
	if err != nil {
		return nil, err
	}
	if req.ToAccountID == system.ID {
		return nil, xerrors.ErrSelfTransfer
	}

	target, err := uc.accountRepo.GetByID(ctx, req.ToAccountID)
	if err != nil {
		return nil, fmt.Errorf("toAccount %s: %w", req.ToAccountID, err)
	}
	if target.Status != domain.AccountActive {
		return nil, fmt.Errorf("toAccount %s: %w", target.ID, xerrors.ErrAccountInactive)
	}

	txn, _, err := uc.transactionRepo.ExecuteSystemFunding(ctx, req, system)
	if err != nil {
		if errors.Is(err, xerrors.ErrDuplicateIdempotencyKey) {
			return uc.replayExisting(ctx, req.IdempotencyKey)
		}
		if errors.Is(err, xerrors.ErrCommitFailed) {
			uc.publishFailure(system.ID, req.ToAccountID, req.Amount.String(), err)
			return nil, fmt.Errorf("%w: retry with the same idempotency key", err)
		}
		return nil, err
	}

	uc.log.Info("system funding completed",
		zap.String("transaction_id", txn.ID),
		zap.String("to_account", target.ID),
		zap.String("amount", txn.Amount.String()))

	result := &domain.TransactionResult{
		Status:      domain.ResultAccepted,
		Message:     "initial funds transaction completed successfully",
		Transaction: txn,
	}
	uc.cacheResult(ctx, req.IdempotencyKey, result)

	go uc.afterCommit(txn, target.OwnerID)

	return result, nil
}

// GetTransaction fetches one transaction; callers may only see transactions
// touching an account they own.
func (uc *TransactionUsecase) GetTransaction(ctx context.Context, id string, actor domain.Actor) (*domain.Transaction, error) {
	txn, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsSystem {
		return txn, nil
	}
	for _, accountID := range []string{txn.FromAccountID, txn.ToAccountID} {
		account, err := uc.accountRepo.GetByID(ctx, accountID)
		if err == nil && account.OwnerID == actor.UserID {
			return txn, nil
		}
	}
	return nil, xerrors.ErrForbidden
}

// ===============================
// IDEMPOTENCY
// ===============================

// checkIdempotency returns a replay result when the key has already been
// claimed, consulting the redis cache before the store. Nil means fresh.
func (uc *TransactionUsecase) checkIdempotency(ctx context.Context, key string) *domain.TransactionResult {
	if uc.redisClient != nil {
		if val, err := uc.redisClient.Get(ctx, idempotencyCacheKey(key)).Result(); err == nil {
			var cached domain.Transaction
			if json.Unmarshal([]byte(val), &cached) == nil {
				return domain.ReplayResult(&cached)
			}
		}
	}

	txn, err := uc.transactionRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil
	}

	result := domain.ReplayResult(txn)
	if txn.Status == domain.TxCompleted {
		uc.cacheTransaction(ctx, key, txn)
	}
	return result
}

func (uc *TransactionUsecase) replayExisting(ctx context.Context, key string) (*domain.TransactionResult, error) {
	txn, err := uc.transactionRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		// The winner rolled back between our conflict and this read; the key
		// is free again and the caller may simply retry.
		return nil, fmt.Errorf("%w: retry with the same idempotency key", xerrors.ErrDuplicateIdempotencyKey)
	}
	return domain.ReplayResult(txn), nil
}

func idempotencyCacheKey(key string) string {
	return "idempotency:" + key
}

func (uc *TransactionUsecase) cacheResult(ctx context.Context, key string, result *domain.TransactionResult) {
	if result.Transaction != nil {
		uc.cacheTransaction(ctx, key, result.Transaction)
	}
}

func (uc *TransactionUsecase) cacheTransaction(ctx context.Context, key string, txn *domain.Transaction) {
	if uc.redisClient == nil {
		return
	}
	if data, err := json.Marshal(txn); err == nil {
		if err := uc.redisClient.Set(ctx, idempotencyCacheKey(key), data, idempotencyCacheTTL).Err(); err != nil {
			uc.log.Warn("failed to cache idempotency result", zap.String("key", key), zap.Error(err))
		}
	}
}

// ===============================
// POST-COMMIT SIDE EFFECTS
// ===============================

// afterCommit runs notification delivery and event publishing. Both are
// fire-and-forget: failures are logged and never affect the transaction.
func (uc *TransactionUsecase) afterCommit(txn *domain.Transaction, recipientOwnerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if uc.notifier != nil {
		if err := uc.notifier.TransferCompleted(ctx, recipientOwnerID, txn); err != nil {
			uc.log.Warn("notification delivery failed",
				zap.String("transaction_id", txn.ID),
				zap.String("recipient", recipientOwnerID),
				zap.Error(err))
		}
	}

	if uc.eventPublisher != nil {
		if err := uc.eventPublisher.PublishCompleted(ctx, txn); err != nil {
			uc.log.Warn("failed to publish transaction event",
				zap.String("transaction_id", txn.ID),
				zap.Error(err))
		}
	}
}

func (uc *TransactionUsecase) publishFailure(fromAccount, toAccount, amount string, cause error) {
	if uc.eventPublisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if err := uc.eventPublisher.PublishFailed(ctx, fromAccount, toAccount, amount, cause.Error()); err != nil {
		uc.log.Warn("failed to publish failure event", zap.Error(err))
	}
}
