package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	// Checking is an ordinary current account
	Checking AccountType = "checking"

	// Savings accounts can carry a blocking window and are archived automatically
	Savings AccountType = "savings"
)

type AccountStatus string

const (
	// StatusActive means the account accepts operations
	StatusActive AccountStatus = "active"

	// StatusBlocked means a blocking window is in force
	StatusBlocked AccountStatus = "blocked"

	// StatusClosed is a soft delete; closed accounts are never removed
	StatusClosed AccountStatus = "closed"
)

// Account represents a bank account in the primary store
type Account struct {
	ID          string          `json:"id" db:"id"`
	Number      string          `json:"number" db:"number"`
	ClientID    string          `json:"client_id" db:"client_id"`
	Type        AccountType     `json:"type" db:"type"`
	Currency    string          `json:"currency" db:"currency"`
	Balance     decimal.Decimal `json:"balance" db:"balance"`
	Status      AccountStatus   `json:"status" db:"status"`
	Archived    bool            `json:"archived" db:"archived"`
	BlockStart  *time.Time      `json:"block_start,omitempty" db:"block_start"`
	BlockEnd    *time.Time      `json:"block_end,omitempty" db:"block_end"`
	BlockReason *string         `json:"block_reason,omitempty" db:"block_reason"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty" db:"closed_at"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// HasBlockingWindow reports whether all three blocking fields are set.
// They are written and cleared together, never one at a time.
func (a *Account) HasBlockingWindow() bool {
	return a.BlockStart != nil && a.BlockEnd != nil && a.BlockReason != nil
}

// represents the request to open a new account
type OpenAccountRequest struct {
	Type           AccountType     `json:"type"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Client         ClientInput     `json:"client"`
}

// represents the request to set a blocking window on a savings account
type BlockAccountRequest struct {
	BlockStart time.Time `json:"block_start"`
	BlockEnd   time.Time `json:"block_end"`
	Reason     string    `json:"reason"`
}

// filter for the account listing endpoint
type AccountFilter struct {
	Type   AccountType
	Limit  int
	Offset int
}

// represents the API response for account data
type AccountResponse struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	ClientID    string          `json:"client_id"`
	Type        AccountType     `json:"type"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	Status      AccountStatus   `json:"status"`
	Archived    bool            `json:"archived"`
	BlockStart  *time.Time      `json:"block_start,omitempty"`
	BlockEnd    *time.Time      `json:"block_end,omitempty"`
	BlockReason *string         `json:"block_reason,omitempty"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewAccountResponse converts an account to its API shape
func NewAccountResponse(a *Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		Number:      a.Number,
		ClientID:    a.ClientID,
		Type:        a.Type,
		Currency:    a.Currency,
		Balance:     a.Balance,
		Status:      a.Status,
		Archived:    a.Archived,
		BlockStart:  a.BlockStart,
		BlockEnd:    a.BlockEnd,
		BlockReason: a.BlockReason,
		ClosedAt:    a.ClosedAt,
		Version:     a.Version,
		CreatedAt:   a.CreatedAt,
	}
}
