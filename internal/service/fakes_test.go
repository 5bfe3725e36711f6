package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/madiallo/banque-backoffice/internal/db"
	"github.com/madiallo/banque-backoffice/internal/models"
	"github.com/madiallo/banque-backoffice/internal/notify"
)

// fakeStore is an in-memory implementation of AccountStore,
// LedgerStore and ArchiveStore mirroring the Postgres/Mongo semantics.
type fakeStore struct {
	mu           sync.Mutex
	clients      map[string]*models.Client
	accounts     map[string]*models.Account
	transactions []*models.Transaction
	partitions   map[string]map[string]*models.ArchivedTransaction

	// error injection
	upsertErrs      map[string]error // by transaction id
	setArchivedErrs map[string]error // by account id
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:         make(map[string]*models.Client),
		accounts:        make(map[string]*models.Account),
		partitions:      make(map[string]map[string]*models.ArchivedTransaction),
		upsertErrs:      make(map[string]error),
		setArchivedErrs: make(map[string]error),
	}
}

func (f *fakeStore) CreateClient(_ context.Context, c *models.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.clients[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetClient(_ context.Context, id string) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) CreateAccount(_ context.Context, a *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.accounts[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetAccountByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) GetAccountByNumber(_ context.Context, number string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Number == number {
			cp := *a
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ListAccounts(_ context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Account, 0)
	for _, a := range f.accounts {
		if a.Status == models.StatusBlocked || a.Status == models.StatusClosed || a.Archived {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListArchivedSavings(_ context.Context) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Account, 0)
	for _, a := range f.accounts {
		if a.Archived && a.Type == models.Savings {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) SetBlockingWindow(_ context.Context, accountID string, req models.BlockAccountRequest, blockNow bool, now time.Time) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, db.ErrNotFound
	}
	start, end, reason := req.BlockStart, req.BlockEnd, req.Reason
	a.BlockStart, a.BlockEnd, a.BlockReason = &start, &end, &reason
	if blockNow {
		a.Status = models.StatusBlocked
		for _, t := range f.transactions {
			if t.AccountID == accountID {
				t.Archived = true
			}
		}
	}
	a.Version++
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ClearBlockingWindow(_ context.Context, accountID string, now time.Time) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, db.ErrNotFound
	}
	a.BlockStart, a.BlockEnd, a.BlockReason = nil, nil, nil
	a.Status = models.StatusActive
	a.Version++
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

func (f *fakeStore) CloseAccount(_ context.Context, accountID string, now time.Time) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, db.ErrNotFound
	}
	a.Status = models.StatusClosed
	closedAt := now
	a.ClosedAt = &closedAt
	a.Version++
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

func (f *fakeStore) SetAccountArchived(_ context.Context, accountID string, archived bool, now time.Time) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.setArchivedErrs[accountID]; err != nil {
		return nil, err
	}
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, db.ErrNotFound
	}
	a.Archived = archived
	a.Version++
	a.UpdatedAt = now
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListAccountsToArchive(_ context.Context, today time.Time) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Account, 0)
	for _, a := range f.accounts {
		if a.Type == models.Savings && a.Status == models.StatusBlocked &&
			a.BlockStart != nil && !a.BlockStart.After(today) && !a.Archived {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAccountsToUnarchive(_ context.Context, today time.Time) ([]*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Account, 0)
	for _, a := range f.accounts {
		if a.Type == models.Savings && a.Status == models.StatusBlocked &&
			a.BlockEnd != nil && !a.BlockEnd.After(today) && a.Archived {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyTransaction(_ context.Context, t *models.Transaction, now time.Time) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[t.AccountID]
	if !ok {
		return nil, db.ErrNotFound
	}
	delta := t.Amount
	if t.Kind == models.Withdrawal {
		delta = delta.Neg()
	}
	newBalance := a.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, db.ErrInsufficientFunds
	}
	a.Balance = newBalance
	a.Version++
	a.UpdatedAt = now
	cp := *t
	f.transactions = append(f.transactions, &cp)
	acp := *a
	return &acp, nil
}

func (f *fakeStore) ListTransactionsByAccount(_ context.Context, accountID string) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Transaction, 0)
	for _, t := range f.transactions {
		if t.AccountID == accountID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListTransactionsBetween(_ context.Context, from, to time.Time) ([]*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Transaction, 0)
	for _, t := range f.transactions {
		if !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) UpsertArchived(_ context.Context, partition string, at *models.ArchivedTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErrs[at.ID]; err != nil {
		return err
	}
	p, ok := f.partitions[partition]
	if !ok {
		p = make(map[string]*models.ArchivedTransaction)
		f.partitions[partition] = p
	}
	cp := *at
	p[at.ID] = &cp
	return nil
}

func (f *fakeStore) ListPartition(_ context.Context, partition string) ([]*models.ArchivedTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.ArchivedTransaction, 0)
	for _, at := range f.partitions[partition] {
		cp := *at
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// fakeSender records dispatched notifications and can be forced to fail
type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (s *fakeSender) Send(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// stepClock is a settable clock for deterministic tests
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	return c.t
}

func (c *stepClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}
