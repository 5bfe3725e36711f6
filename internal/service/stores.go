package service

import (
	"context"
	"time"

	"github.com/madiallo/banque-backoffice/internal/models"
)

// AccountStore is the primary-store surface the account lifecycle
// needs. *db.Postgres implements it.
type AccountStore interface {
	CreateClient(ctx context.Context, c *models.Client) error
	GetClient(ctx context.Context, id string) (*models.Client, error)

	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, number string) (*models.Account, error)
	ListAccounts(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error)
	ListArchivedSavings(ctx context.Context) ([]*models.Account, error)

	SetBlockingWindow(ctx context.Context, accountID string, req models.BlockAccountRequest, blockNow bool, now time.Time) (*models.Account, error)
	ClearBlockingWindow(ctx context.Context, accountID string, now time.Time) (*models.Account, error)
	CloseAccount(ctx context.Context, accountID string, now time.Time) (*models.Account, error)
	SetAccountArchived(ctx context.Context, accountID string, archived bool, now time.Time) (*models.Account, error)

	ListAccountsToArchive(ctx context.Context, today time.Time) ([]*models.Account, error)
	ListAccountsToUnarchive(ctx context.Context, today time.Time) ([]*models.Account, error)
}

// LedgerStore is the transaction-ledger surface. *db.Postgres
// implements it; ApplyTransaction commits the ledger row and the
// balance change as one unit.
type LedgerStore interface {
	ApplyTransaction(ctx context.Context, t *models.Transaction, now time.Time) (*models.Account, error)
	ListTransactionsByAccount(ctx context.Context, accountID string) ([]*models.Transaction, error)
	ListTransactionsBetween(ctx context.Context, from, to time.Time) ([]*models.Transaction, error)
}

// ArchiveStore is the secondary document store holding weekly
// partitions. *db.ArchiveMongo implements it.
type ArchiveStore interface {
	UpsertArchived(ctx context.Context, partition string, at *models.ArchivedTransaction) error
	ListPartition(ctx context.Context, partition string) ([]*models.ArchivedTransaction, error)
}
