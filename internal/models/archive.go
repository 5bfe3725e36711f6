package models

import (
	"time"
)

// ArchivedTransaction is the document-store copy of a ledger entry.
// The _id is the source transaction id, so re-archiving the same week
// upserts the same documents instead of duplicating them.
// Amount is kept as its decimal string form; the document store never
// does arithmetic on it.
type ArchivedTransaction struct {
	ID          string          `json:"id" bson:"_id"`
	AccountID   string          `json:"account_id" bson:"account_id"`
	Kind        TransactionKind `json:"kind" bson:"kind"`
	Amount      string          `json:"amount" bson:"amount"`
	Description string          `json:"description" bson:"description"`
	WeekID      string          `json:"week_id" bson:"week_id"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	ArchivedAt  time.Time       `json:"archived_at" bson:"archived_at"`
}

// NewArchivedTransaction copies a ledger entry into its archive shape
func NewArchivedTransaction(t *Transaction, weekID string, archivedAt time.Time) *ArchivedTransaction {
	return &ArchivedTransaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Kind:        t.Kind,
		Amount:      t.Amount.String(),
		Description: t.Description,
		WeekID:      weekID,
		CreatedAt:   t.CreatedAt,
		ArchivedAt:  archivedAt,
	}
}
