package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/repository"

	"go.uber.org/zap"
)

// Reconciler sweeps transactions stuck in PENDING past a cutoff to FAILED.
// The atomic commit path never leaves a PENDING row behind on its own; the
// sweep covers crash windows and operator surgery so a claimed key always
// reaches a terminal answer.
type Reconciler struct {
	transactionRepo repository.TransactionRepository
	interval        time.Duration
	staleAfter      time.Duration
	log             *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewReconciler(transactionRepo repository.TransactionRepository, interval, staleAfter time.Duration, log *zap.Logger) *Reconciler {
	return &Reconciler{
		transactionRepo: transactionRepo,
		interval:        interval,
		staleAfter:      staleAfter,
		log:             log,
		stopChan:        make(chan struct{}),
	}
}

func (r *Reconciler) Start() {
	r.wg.Add(1)
	go r.run()
}

func (r *Reconciler) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopChan:
			return
		}
	}
}

func (r *Reconciler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	swept, err := r.transactionRepo.MarkStalePendingFailed(ctx, r.staleAfter)
	if err != nil {
		r.log.Error("stale transaction sweep failed", zap.Error(err))
		return
	}
	if swept > 0 {
		r.log.Warn("swept stale pending transactions to FAILED",
			zap.Int64("count", swept),
			zap.Duration("stale_after", r.staleAfter))
	}
}

func (r *Reconciler) Stop() {
	close(r.stopChan)
	r.wg.Wait()
}
