package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	// Deposit represents a deposit transaction
	Deposit TransactionKind = "deposit"

	// Withdrawal represents a withdrawal transaction
	Withdrawal TransactionKind = "withdrawal"
)

// Transaction is an append-only ledger entry against an account.
// Only the archived flag is ever mutated after creation.
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	AccountID   string          `json:"account_id" db:"account_id"`
	Kind        TransactionKind `json:"kind" db:"kind"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	Archived    bool            `json:"archived" db:"archived"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// represents a deposit or withdrawal request
type TransactionRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// represents the API response for transaction data
type TransactionResponse struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Kind        TransactionKind `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Archived    bool            `json:"archived"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewTransactionResponse converts a transaction to its API shape
func NewTransactionResponse(t *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Kind:        t.Kind,
		Amount:      t.Amount,
		Description: t.Description,
		Archived:    t.Archived,
		CreatedAt:   t.CreatedAt,
	}
}
