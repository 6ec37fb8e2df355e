package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"
	"github.com/ShikharGupta100/Transaction-Ledger/internal/xerrors"
	"github.com/ShikharGupta100/Transaction-Ledger/pkg/ids"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memStore backs the fake repositories. One mutex guards all state, standing
// in for the database's transactional isolation: balance checks and writes in
// ExecuteTransfer happen under the same critical section, the way the real
// repo does them under row locks.
type memStore struct {
	mu      sync.Mutex
	gen     *ids.Generator
	account map[string]*domain.Account
	txns    map[string]*domain.Transaction
	byKey   map[string]string
	entries []*domain.LedgerEntry

	failCommit bool // force the next atomic commit to fail with no writes
}

func newMemStore() *memStore {
	return &memStore{
		gen:     ids.NewGenerator(),
		account: make(map[string]*domain.Account),
		txns:    make(map[string]*domain.Transaction),
		byKey:   make(map[string]string),
	}
}

func (s *memStore) addAccount(ownerID string, ownerType domain.OwnerType, status domain.AccountStatus) *domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &domain.Account{
		ID:        s.gen.New(),
		OwnerID:   ownerID,
		OwnerType: ownerType,
		Status:    status,
		Currency:  "INR",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.account[a.ID] = a
	return a
}

// seedCredit funds an account directly with a completed system credit.
func (s *memStore) seedCredit(accountID string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txnID := s.gen.New()
	s.txns[txnID] = &domain.Transaction{
		ID:             txnID,
		FromAccountID:  "seed",
		ToAccountID:    accountID,
		Amount:         amount,
		IdempotencyKey: "seed-" + txnID,
		Status:         domain.TxCompleted,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.entries = append(s.entries, &domain.LedgerEntry{
		ID:            s.gen.New(),
		AccountID:     accountID,
		TransactionID: txnID,
		Amount:        amount,
		Type:          domain.EntryCredit,
		CreatedAt:     time.Now(),
	})
}

func (s *memStore) balanceLocked(accountID string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.entries {
		if e.AccountID == accountID {
			total = total.Add(e.Signed())
		}
	}
	return total
}

func (s *memStore) entriesFor(accountID string) []*domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.LedgerEntry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *memStore) txnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

// --- AccountRepository ---

type fakeAccountRepo struct{ s *memStore }

func (r *fakeAccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.OwnerType == domain.OwnerTypeUser {
		for _, existing := range r.s.account {
			if existing.OwnerType == domain.OwnerTypeUser && existing.OwnerID == a.OwnerID {
				return xerrors.ErrAccountExists
			}
		}
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	copied := *a
	r.s.account[a.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.account[id]
	if !ok {
		return nil, xerrors.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAccountRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeAccountRepo) GetByOwner(_ context.Context, ownerID string) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.account {
		if a.OwnerType == domain.OwnerTypeUser && a.OwnerID == ownerID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, xerrors.ErrAccountNotFound
}

func (r *fakeAccountRepo) GetSystemAccount(_ context.Context) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.account {
		if a.OwnerType == domain.OwnerTypeSystem {
			copied := *a
			return &copied, nil
		}
	}
	return nil, xerrors.ErrSystemAccount
}

func (r *fakeAccountRepo) UpdateStatus(_ context.Context, id string, status domain.AccountStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.account[id]
	if !ok {
		return xerrors.ErrAccountNotFound
	}
	if a.Status == domain.AccountClosed {
		return xerrors.ErrAccountClosed
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

// --- LedgerRepository ---

type fakeLedgerRepo struct{ s *memStore }

func (r *fakeLedgerRepo) Create(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e.CreatedAt = time.Now()
	copied := *e
	r.s.entries = append(r.s.entries, &copied)
	return nil
}

func (r *fakeLedgerRepo) ListByAccount(_ context.Context, accountID string) ([]*domain.LedgerEntry, error) {
	return r.s.entriesFor(accountID), nil
}

func (r *fakeLedgerRepo) ListByTransaction(_ context.Context, transactionID string) ([]*domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.LedgerEntry
	for _, e := range r.s.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) BalanceOf(_ context.Context, accountID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.balanceLocked(accountID), nil
}

func (r *fakeLedgerRepo) BalanceOfTx(ctx context.Context, _ pgx.Tx, accountID string) (decimal.Decimal, error) {
	return r.BalanceOf(ctx, accountID)
}

// --- TransactionRepository ---

type fakeTxnRepo struct{ s *memStore }

func (r *fakeTxnRepo) ExecuteTransfer(_ context.Context, req *domain.TransferRequest) (*domain.Transaction, []*domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, claimed := r.s.byKey[req.IdempotencyKey]; claimed {
		return nil, nil, xerrors.ErrDuplicateIdempotencyKey
	}
	for _, id := range []string{req.FromAccountID, req.ToAccountID} {
		a, ok := r.s.account[id]
		if !ok {
			return nil, nil, fmt.Errorf("account %s: %w", id, xerrors.ErrAccountNotFound)
		}
		if a.Status != domain.AccountActive {
			return nil, nil, fmt.Errorf("account %s: %w", id, xerrors.ErrAccountInactive)
		}
	}

	balance := r.s.balanceLocked(req.FromAccountID)
	if balance.LessThan(req.Amount) {
		return nil, nil, fmt.Errorf("%w (available: %s, required: %s)",
			xerrors.ErrInsufficientBalance, balance.String(), req.Amount.String())
	}

	if r.s.failCommit {
		return nil, nil, fmt.Errorf("%w: connection reset", xerrors.ErrCommitFailed)
	}

	now := time.Now()
	txn := &domain.Transaction{
		ID:             r.s.gen.New(),
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		Status:         domain.TxCompleted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entries := []*domain.LedgerEntry{
		{ID: r.s.gen.New(), AccountID: req.FromAccountID, TransactionID: txn.ID, Amount: req.Amount, Type: domain.EntryDebit, CreatedAt: now},
		{ID: r.s.gen.New(), AccountID: req.ToAccountID, TransactionID: txn.ID, Amount: req.Amount, Type: domain.EntryCredit, CreatedAt: now},
	}

	r.s.txns[txn.ID] = txn
	r.s.byKey[req.IdempotencyKey] = txn.ID
	r.s.entries = append(r.s.entries, entries...)
	return txn, entries, nil
}

func (r *fakeTxnRepo) ExecuteSystemFunding(_ context.Context, req *domain.SystemFundingRequest, system *domain.Account) (*domain.Transaction, *domain.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, claimed := r.s.byKey[req.IdempotencyKey]; claimed {
		return nil, nil, xerrors.ErrDuplicateIdempotencyKey
	}
	target, ok := r.s.account[req.ToAccountID]
	if !ok {
		return nil, nil, xerrors.ErrAccountNotFound
	}
	if target.Status != domain.AccountActive {
		return nil, nil, xerrors.ErrAccountInactive
	}
	if r.s.failCommit {
		return nil, nil, fmt.Errorf("%w: connection reset", xerrors.ErrCommitFailed)
	}

	now := time.Now()
	txn := &domain.Transaction{
		ID:             r.s.gen.New(),
		FromAccountID:  system.ID,
		ToAccountID:    req.ToAccountID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
		Status:         domain.TxCompleted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entry := &domain.LedgerEntry{
		ID: r.s.gen.New(), AccountID: req.ToAccountID, TransactionID: txn.ID,
		Amount: req.Amount, Type: domain.EntryCredit, CreatedAt: now,
	}

	r.s.txns[txn.ID] = txn
	r.s.byKey[req.IdempotencyKey] = txn.ID
	r.s.entries = append(r.s.entries, entry)
	return txn, entry, nil
}

func (r *fakeTxnRepo) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	txn, ok := r.s.txns[id]
	if !ok {
		return nil, xerrors.ErrTransactionNotFound
	}
	copied := *txn
	return &copied, nil
}

func (r *fakeTxnRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, ok := r.s.byKey[key]
	if !ok {
		return nil, xerrors.ErrTransactionNotFound
	}
	copied := *r.s.txns[id]
	return &copied, nil
}

func (r *fakeTxnRepo) MarkStalePendingFailed(_ context.Context, staleAfter time.Duration) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cutoff := time.Now().Add(-staleAfter)
	var swept int64
	for _, txn := range r.s.txns {
		if txn.Status == domain.TxPending && txn.CreatedAt.Before(cutoff) {
			txn.Status = domain.TxFailed
			txn.UpdatedAt = time.Now()
			swept++
		}
	}
	return swept, nil
}

// --- Notifier ---

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string // recipient owner ids
	fail  bool
	done  chan struct{}
}

func newFakeNotifier(fail bool) *fakeNotifier {
	return &fakeNotifier{fail: fail, done: make(chan struct{}, 16)}
}

func (n *fakeNotifier) TransferCompleted(_ context.Context, recipient string, _ *domain.Transaction) error {
	n.mu.Lock()
	n.calls = append(n.calls, recipient)
	n.mu.Unlock()
	n.done <- struct{}{}
	if n.fail {
		return fmt.Errorf("smtp relay unavailable")
	}
	return nil
}

func (n *fakeNotifier) Close() error { return nil }

func (n *fakeNotifier) wait(t interface{ Fatalf(string, ...any) }) {
	select {
	case <-n.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for notification")
	}
}
