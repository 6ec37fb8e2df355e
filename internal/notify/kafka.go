package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShikharGupta100/Transaction-Ledger/internal/domain"

	"github.com/segmentio/kafka-go"
)

// Notifier delivers transfer notifications to the out-of-process notification
// service. Delivery is best-effort: a failure is the caller's to log, never
// to escalate into a transaction failure.
type Notifier interface {
	TransferCompleted(ctx context.Context, recipientOwnerID string, txn *domain.Transaction) error
	Close() error
}

// Message is the payload the notification consumer renders into an email.
type Message struct {
	Recipient     string    `json:"recipient"` // owner id of the credited party
	TransactionID string    `json:"transaction_id"`
	FromAccount   string    `json:"from_account"`
	ToAccount     string    `json:"to_account"`
	Amount        string    `json:"amount"`
	SentAt        time.Time `json:"sent_at"`
}

type kafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) Notifier {
	return &kafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

func (n *kafkaNotifier) TransferCompleted(ctx context.Context, recipientOwnerID string, txn *domain.Transaction) error {
	msg := Message{
		Recipient:     recipientOwnerID,
		TransactionID: txn.ID,
		FromAccount:   txn.FromAccountID,
		ToAccount:     txn.ToAccountID,
		Amount:        txn.Amount.String(),
		SentAt:        time.Now(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(txn.ID),
		Value: payload,
	})
}

func (n *kafkaNotifier) Close() error {
	return n.writer.Close()
}
