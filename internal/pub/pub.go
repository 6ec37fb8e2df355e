package pub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"

	"github.com/redis/go-redis/v9"
)

const TransactionEventsChannel = "transaction_events"

// TransactionEventPublisher pushes transaction lifecycle events to Redis
// pub/sub for out-of-process consumers (dashboards, audit).
type TransactionEventPublisher struct {
	rdb *redis.Client
}

func NewTransactionEventPublisher(rdb *redis.Client) *TransactionEventPublisher {
	return &TransactionEventPublisher{rdb: rdb}
}

type TransactionEvent struct {
	EventType     string    `json:"event_type"` // transaction.completed, transaction.failed
	TransactionID string    `json:"transaction_id,omitempty"`
	FromAccount   string    `json:"from_account,omitempty"`
	ToAccount     string    `json:"to_account,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Status        string    `json:"status,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (p *TransactionEventPublisher) publish(ctx context.Context, event *TransactionEvent) error {
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, TransactionEventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *TransactionEventPublisher) PublishCompleted(ctx context.Context, txn *domain.Transaction) error {
	return p.publish(ctx, &TransactionEvent{
		EventType:     "transaction.completed",
		TransactionID: txn.ID,
		FromAccount:   txn.FromAccountID,
		ToAccount:     txn.ToAccountID,
		Amount:        txn.Amount.String(),
		Status:        string(txn.Status),
	})
}

func (p *TransactionEventPublisher) PublishFailed(ctx context.Context, fromAccount, toAccount, amount, errMsg string) error {
	return p.publish(ctx, &TransactionEvent{
		EventType:    "transaction.failed",
		FromAccount:  fromAccount,
		ToAccount:    toAccount,
		Amount:       amount,
		Status:       "failed",
		ErrorMessage: errMsg,
	})
}
