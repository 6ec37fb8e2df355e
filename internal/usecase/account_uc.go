package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/repository"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/xerrors"
	"github.com/ShikharGupta100/Transaction-Ledger/pkg/ids"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccountUsecase guards account existence/status and serves derived balances.
type AccountUsecase struct {
	accountRepo repository.AccountRepository
	ledgerRepo  repository.LedgerRepository
	gen         *ids.Generator
	log         *zap.Logger
}

func NewAccountUsecase(accountRepo repository.AccountRepository, ledgerRepo repository.LedgerRepository, gen *ids.Generator, log *zap.Logger) *AccountUsecase {
	return &AccountUsecase{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		gen:         gen,
		log:         log,
	}
}

// CreateAccount provisions one ACTIVE account for an owner. An owner holds at
// most one non-system account; the repo's partial unique index backs the
// check against concurrent creates.
func (uc *AccountUsecase) CreateAccount(ctx context.Context, ownerID, currency string) (*domain.Account, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", xerrors.ErrInvalidRequest)
	}
	if currency == "" {
		currency = "INR"
	}

	if _, err := uc.accountRepo.GetByOwner(ctx, ownerID); err == nil {
		return nil, xerrors.ErrAccountExists
	} else if !errors.Is(err, xerrors.ErrAccountNotFound) {
		return nil, err
	}

	account := &domain.Account{
		ID:        uc.gen.New(),
		OwnerID:   ownerID,
		OwnerType: domain.OwnerTypeUser,
		Status:    domain.AccountActive,
		Currency:  currency,
	}
	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	uc.log.Info("account created",
		zap.String("account_id", account.ID),
		zap.String("owner_id", ownerID),
		zap.String("currency", currency))
	return account, nil
}

func (uc *AccountUsecase) GetAccount(ctx context.Context, id string, actor domain.Actor) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(account, actor); err != nil {
		return nil, err
	}
	return account, nil
}

// ValidateTransferParties resolves both parties of a transfer and rejects
// self-transfers, unknown accounts, and non-ACTIVE accounts. Read-only.
func (uc *AccountUsecase) ValidateTransferParties(ctx context.Context, fromID, toID string) (*domain.Account, *domain.Account, error) {
	if fromID == toID {
		return nil, nil, xerrors.ErrSelfTransfer
	}

	from, err := uc.accountRepo.GetByID(ctx, fromID)
	if err != nil {
		return nil, nil, fmt.Errorf("fromAccount %s: %w", fromID, err)
	}
	to, err := uc.accountRepo.GetByID(ctx, toID)
	if err != nil {
		return nil, nil, fmt.Errorf("toAccount %s: %w", toID, err)
	}

	if from.Status != domain.AccountActive {
		return nil, nil, fmt.Errorf("fromAccount %s: %w", fromID, xerrors.ErrAccountInactive)
	}
	if to.Status != domain.AccountActive {
		return nil, nil, fmt.Errorf("toAccount %s: %w", toID, xerrors.ErrAccountInactive)
	}

	return from, to, nil
}

// GetBalance derives the account's balance from its ledger history.
// An account with no entries has balance zero.
func (uc *AccountUsecase) GetBalance(ctx context.Context, accountID string, actor domain.Actor) (decimal.Decimal, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := authorize(account, actor); err != nil {
		return decimal.Zero, err
	}
	return uc.ledgerRepo.BalanceOf(ctx, accountID)
}

// Statement lists the account's ledger entries oldest-first.
func (uc *AccountUsecase) Statement(ctx context.Context, accountID string, actor domain.Actor) ([]*domain.LedgerEntry, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := authorize(account, actor); err != nil {
		return nil, err
	}
	return uc.ledgerRepo.ListByAccount(ctx, accountID)
}

// SetStatus applies an operator freeze/close. System capability required.
func (uc *AccountUsecase) SetStatus(ctx context.Context, accountID string, status domain.AccountStatus, actor domain.Actor) (*domain.Account, error) {
	if !actor.IsSystem {
		return nil, xerrors.ErrForbidden
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", xerrors.ErrInvalidRequest, status)
	}

	if err := uc.accountRepo.UpdateStatus(ctx, accountID, status); err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	uc.log.Info("account status changed",
		zap.String("account_id", accountID),
		zap.String("status", string(status)),
		zap.String("actor", actor.UserID))
	return account, nil
}

// authorize allows the account's owner or a system actor.
func authorize(account *domain.Account, actor domain.Actor) error {
	if actor.IsSystem {
		return nil
	}
	if account.OwnerID != actor.UserID {
		return xerrors.ErrForbidden
	}
	return nil
}
