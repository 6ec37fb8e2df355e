package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRequestValidate(t *testing.T) {
	valid := TransferRequest{
		FromAccountID:  "acc-1",
		ToAccountID:    "acc-2",
		Amount:         decimal.NewFromInt(10),
		IdempotencyKey: "key-1",
	}

	tests := []struct {
		name    string
		mutate  func(r *TransferRequest)
		wantErr bool
	}{
		{"valid", func(r *TransferRequest) {}, false},
		{"missing from", func(r *TransferRequest) { r.FromAccountID = "" }, true},
		{"missing to", func(r *TransferRequest) { r.ToAccountID = "" }, true},
		{"missing key", func(r *TransferRequest) { r.IdempotencyKey = "" }, true},
		{"zero amount", func(r *TransferRequest) { r.Amount = decimal.Zero }, true},
		{"negative amount", func(r *TransferRequest) { r.Amount = decimal.NewFromInt(-5) }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			err := req.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestReplayResultMapping(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   ResultStatus
	}{
		{TxCompleted, ResultAlreadyProcessed},
		{TxPending, ResultStillProcessing},
		{TxFailed, ResultFailed},
		{TxReverted, ResultFailed},
	}
	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			txn := &Transaction{ID: "txn-1", Status: tc.status}
			result := ReplayResult(txn)
			assert.Equal(t, tc.want, result.Status)
			assert.Same(t, txn, result.Transaction)
			assert.NotEmpty(t, result.Message)
		})
	}
}

func TestTransactionStatusTerminal(t *testing.T) {
	assert.False(t, TxPending.Terminal())
	assert.False(t, TxCompleted.Terminal())
	assert.True(t, TxFailed.Terminal())
	assert.True(t, TxReverted.Terminal())
}

func TestLedgerEntrySigned(t *testing.T) {
	amount := decimal.RequireFromString("12.3400")

	credit := &LedgerEntry{Amount: amount, Type: EntryCredit}
	assert.True(t, credit.Signed().Equal(amount))

	debit := &LedgerEntry{Amount: amount, Type: EntryDebit}
	assert.True(t, debit.Signed().Equal(amount.Neg()))
}

func TestAccountStatusValid(t *testing.T) {
	assert.True(t, AccountActive.Valid())
	assert.True(t, AccountFrozen.Valid())
	assert.True(t, AccountClosed.Valid())
	assert.False(t, AccountStatus("SUSPENDED").Valid())
	assert.False(t, AccountStatus("").Valid())
}
