package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/madiallo/banque-backoffice/internal/models"
	"github.com/shopspring/decimal"

	_ "github.com/lib/pq"
)

// Postgres is the primary relational store: clients, accounts and the
// transaction ledger.
type Postgres struct {
	db *sql.DB
}

// creates a new Postgres instance
func NewPostgres(connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

// initialize the database schema
func (p *Postgres) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS clients (
		id VARCHAR(36) PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL,
		telephone TEXT NOT NULL,
		address TEXT NOT NULL,
		national_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(36) PRIMARY KEY,
		number VARCHAR(32) NOT NULL UNIQUE,
		client_id VARCHAR(36) NOT NULL REFERENCES clients(id),
		type VARCHAR(16) NOT NULL,
		currency VARCHAR(8) NOT NULL,
		balance DECIMAL(20, 2) NOT NULL,
		status VARCHAR(16) NOT NULL,
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		block_start DATE,
		block_end DATE,
		block_reason TEXT,
		closed_at TIMESTAMP,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id VARCHAR(36) PRIMARY KEY,
		account_id VARCHAR(36) NOT NULL REFERENCES accounts(id),
		kind VARCHAR(16) NOT NULL,
		amount DECIMAL(20, 2) NOT NULL,
		description TEXT NOT NULL,
		archived BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at);`

	_, err := p.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const accountColumns = `id, number, client_id, type, currency, balance, status, archived,
	block_start, block_end, block_reason, closed_at, version, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Number, &a.ClientID, &a.Type, &a.Currency, &a.Balance, &a.Status, &a.Archived,
		&a.BlockStart, &a.BlockEnd, &a.BlockReason, &a.ClosedAt, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// persists a new client
func (p *Postgres) CreateClient(ctx context.Context, c *models.Client) error {
	query := `
	INSERT INTO clients (id, full_name, email, telephone, address, national_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := p.db.ExecContext(ctx, query,
		c.ID, c.FullName, c.Email, c.Telephone, c.Address, c.NationalID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// retrieves a client by ID
func (p *Postgres) GetClient(ctx context.Context, id string) (*models.Client, error) {
	query := `
	SELECT id, full_name, email, telephone, address, national_id, created_at
	FROM clients WHERE id = $1`

	var c models.Client
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.FullName, &c.Email, &c.Telephone, &c.Address, &c.NationalID, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// persists a new account
func (p *Postgres) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
	INSERT INTO accounts (id, number, client_id, type, currency, balance, status, archived, version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := p.db.ExecContext(ctx, query,
		a.ID, a.Number, a.ClientID, a.Type, a.Currency, a.Balance, a.Status, a.Archived,
		a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// retrieves an account by ID
func (p *Postgres) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// retrieves an account by its human-facing number
func (p *Postgres) GetAccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE number = $1`

	account, err := scanAccount(p.db.QueryRowContext(ctx, query, number))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// lists open accounts. Blocked, closed and archived accounts are
// excluded; an optional type filter narrows the result.
func (p *Postgres) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
	FROM accounts
	WHERE status NOT IN ($1, $2) AND archived = FALSE`

	args := []interface{}{models.StatusBlocked, models.StatusClosed}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// lists archived savings accounts
func (p *Postgres) ListArchivedSavings(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
	FROM accounts
	WHERE archived = TRUE AND type = $1
	ORDER BY updated_at DESC`

	rows, err := p.db.QueryContext(ctx, query, models.Savings)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived accounts: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// blocked savings accounts whose blocking window has started and which
// are not archived yet
func (p *Postgres) ListAccountsToArchive(ctx context.Context, today time.Time) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
	FROM accounts
	WHERE type = $1 AND status = $2
	  AND block_start IS NOT NULL AND block_start <= $3
	  AND archived = FALSE`

	rows, err := p.db.QueryContext(ctx, query, models.Savings, models.StatusBlocked, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts to archive: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

// blocked savings accounts whose blocking window has ended and which
// are still archived
func (p *Postgres) ListAccountsToUnarchive(ctx context.Context, today time.Time) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + `
	FROM accounts
	WHERE type = $1 AND status = $2
	  AND block_end IS NOT NULL AND block_end <= $3
	  AND archived = TRUE`

	rows, err := p.db.QueryContext(ctx, query, models.Savings, models.StatusBlocked, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts to unarchive: %w", err)
	}
	defer rows.Close()

	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]*models.Account, error) {
	accounts := make([]*models.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}
	return accounts, nil
}

// ApplyTransaction commits a balance change and its ledger row as one
// unit. The account row is locked for the duration; a withdrawal that
// would drive the balance negative rolls back with ErrInsufficientFunds.
func (p *Postgres) ApplyTransaction(ctx context.Context, t *models.Transaction, now time.Time) (acc *models.Account, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var balance decimal.Decimal
	err = tx.QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE id = $1 FOR UPDATE",
		t.AccountID,
	).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	delta := t.Amount
	if t.Kind == models.Withdrawal {
		delta = delta.Neg()
	}
	newBalance := balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientFunds
	}

	row := tx.QueryRowContext(ctx, `
	UPDATE accounts SET balance = $1, version = version + 1, updated_at = $2
	WHERE id = $3
	RETURNING `+accountColumns, newBalance, now, t.AccountID)
	acc, err = scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO transactions (id, account_id, kind, amount, description, archived, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.AccountID, t.Kind, t.Amount, t.Description, t.Archived, t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return acc, nil
}

// SetBlockingWindow stores the three blocking fields together. When
// blockNow is set the account also transitions to blocked and all of
// its ledger entries are marked archived, in the same database
// transaction.
func (p *Postgres) SetBlockingWindow(ctx context.Context, accountID string, req models.BlockAccountRequest, blockNow bool, now time.Time) (acc *models.Account, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	status := models.StatusActive
	if blockNow {
		status = models.StatusBlocked
	}

	row := tx.QueryRowContext(ctx, `
	UPDATE accounts
	SET block_start = $1, block_end = $2, block_reason = $3, status = $4,
	    version = version + 1, updated_at = $5
	WHERE id = $6
	RETURNING `+accountColumns,
		req.BlockStart, req.BlockEnd, req.Reason, status, now, accountID)
	acc, err = scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to set blocking window: %w", err)
	}

	if blockNow {
		_, err = tx.ExecContext(ctx,
			"UPDATE transactions SET archived = TRUE WHERE account_id = $1", accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to archive account transactions: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return acc, nil
}

// ClearBlockingWindow reactivates the account and clears all three
// blocking fields at once.
func (p *Postgres) ClearBlockingWindow(ctx context.Context, accountID string, now time.Time) (*models.Account, error) {
	row := p.db.QueryRowContext(ctx, `
	UPDATE accounts
	SET block_start = NULL, block_end = NULL, block_reason = NULL, status = $1,
	    version = version + 1, updated_at = $2
	WHERE id = $3
	RETURNING `+accountColumns, models.StatusActive, now, accountID)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to clear blocking window: %w", err)
	}
	return account, nil
}

// CloseAccount is a soft delete: the row stays, the status flips
func (p *Postgres) CloseAccount(ctx context.Context, accountID string, now time.Time) (*models.Account, error) {
	row := p.db.QueryRowContext(ctx, `
	UPDATE accounts
	SET status = $1, closed_at = $2, version = version + 1, updated_at = $2
	WHERE id = $3
	RETURNING `+accountColumns, models.StatusClosed, now, accountID)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to close account: %w", err)
	}
	return account, nil
}

// SetAccountArchived flips the archived flag
func (p *Postgres) SetAccountArchived(ctx context.Context, accountID string, archived bool, now time.Time) (*models.Account, error) {
	row := p.db.QueryRowContext(ctx, `
	UPDATE accounts
	SET archived = $1, version = version + 1, updated_at = $2
	WHERE id = $3
	RETURNING `+accountColumns, archived, now, accountID)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update archived flag: %w", err)
	}
	return account, nil
}

// retrieves an account's ledger entries, newest first
func (p *Postgres) ListTransactionsByAccount(ctx context.Context, accountID string) ([]*models.Transaction, error) {
	query := `
	SELECT id, account_id, kind, amount, description, archived, created_at
	FROM transactions
	WHERE account_id = $1
	ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// retrieves ledger entries created within [from, to)
func (p *Postgres) ListTransactionsBetween(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	query := `
	SELECT id, account_id, kind, amount, description, archived, created_at
	FROM transactions
	WHERE created_at >= $1 AND created_at < $2
	ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	transactions := make([]*models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		err := rows.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.Description, &t.Archived, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return transactions, nil
}
