package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/madiallo/banque-backoffice/internal/apperrors"
	"github.com/madiallo/banque-backoffice/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	admin = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	today = time.Date(2025, 11, 5, 10, 0, 0, 0, time.UTC) // Wednesday
)

func newAccountFixture() (*AccountService, *fakeStore, *fakeSender, *stepClock) {
	store := newFakeStore()
	sender := &fakeSender{}
	clk := &stepClock{t: today}
	svc := NewAccountService(store, clk, sender, zap.NewNop())
	return svc, store, sender, clk
}

func seedClient(store *fakeStore) *models.Client {
	c := &models.Client{
		ID:        uuid.New().String(),
		FullName:  "Fatou Wade",
		Email:     "fatou.wade@example.com",
		Telephone: "+221771234567",
		Address:   "Dakar",
		CreatedAt: today,
	}
	store.clients[c.ID] = c
	return c
}

func seedAccount(store *fakeStore, client *models.Client, typ models.AccountType, balance int64) *models.Account {
	a := &models.Account{
		ID:        uuid.New().String(),
		Number:    "ACC-20251105-" + uuid.New().String()[:4],
		ClientID:  client.ID,
		Type:      typ,
		Currency:  "FCFA",
		Balance:   decimal.NewFromInt(balance),
		Status:    models.StatusActive,
		Version:   1,
		CreatedAt: today,
		UpdatedAt: today,
	}
	store.accounts[a.ID] = a
	return a
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestOpenAccountCreatesClientInline(t *testing.T) {
	svc, store, sender, _ := newAccountFixture()

	account, err := svc.Open(context.Background(), admin, models.OpenAccountRequest{
		Type:           models.Checking,
		Currency:       "FCFA",
		InitialBalance: decimal.NewFromInt(500000),
		Client: models.ClientInput{
			FullName:  "Amadou Diallo",
			Email:     "amadou.diallo@example.com",
			Telephone: "+221771234568",
			Address:   "Dakar",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, account.Status)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(500000)))
	assert.NotEmpty(t, account.Number)
	assert.False(t, account.Archived)

	_, err = store.GetClient(context.Background(), account.ClientID)
	assert.NoError(t, err)
	assert.Equal(t, 1, sender.count())
}

func TestOpenAccountValidation(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)

	tests := []struct {
		name string
		req  models.OpenAccountRequest
		code string
	}{
		{
			name: "unknown type",
			req: models.OpenAccountRequest{
				Type: "credit", Currency: "FCFA",
				InitialBalance: decimal.NewFromInt(500000),
				Client:         models.ClientInput{ID: client.ID},
			},
			code: "VALIDATION_ERROR",
		},
		{
			name: "unknown currency",
			req: models.OpenAccountRequest{
				Type: models.Savings, Currency: "EUR",
				InitialBalance: decimal.NewFromInt(500000),
				Client:         models.ClientInput{ID: client.ID},
			},
			code: "VALIDATION_ERROR",
		},
		{
			name: "opening balance below minimum",
			req: models.OpenAccountRequest{
				Type: models.Savings, Currency: "FCFA",
				InitialBalance: decimal.NewFromInt(9999),
				Client:         models.ClientInput{ID: client.ID},
			},
			code: "VALIDATION_ERROR",
		},
		{
			name: "missing client fields",
			req: models.OpenAccountRequest{
				Type: models.Savings, Currency: "FCFA",
				InitialBalance: decimal.NewFromInt(500000),
				Client:         models.ClientInput{FullName: "X"},
			},
			code: "VALIDATION_ERROR",
		},
		{
			name: "unknown client id",
			req: models.OpenAccountRequest{
				Type: models.Savings, Currency: "FCFA",
				InitialBalance: decimal.NewFromInt(500000),
				Client:         models.ClientInput{ID: uuid.New().String()},
			},
			code: "NOT_FOUND",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Open(context.Background(), admin, tt.req)
			assertCode(t, err, tt.code)
		})
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)
	account := seedAccount(store, client, models.Checking, 10000)

	owner := models.Actor{ID: client.ID, Role: models.RoleClient}
	got, err := svc.Get(context.Background(), owner, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	// lookup by number works too
	got, err = svc.Get(context.Background(), owner, account.Number)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	stranger := models.Actor{ID: uuid.New().String(), Role: models.RoleClient}
	_, err = svc.Get(context.Background(), stranger, account.ID)
	assertCode(t, err, "FORBIDDEN")

	_, err = svc.Get(context.Background(), admin, uuid.New().String())
	assertCode(t, err, "NOT_FOUND")
}

func TestBlockImmediatelyWhenWindowContainsNow(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)
	account := seedAccount(store, client, models.Savings, 500000)

	// two prior ledger entries
	for i := 0; i < 2; i++ {
		store.transactions = append(store.transactions, &models.Transaction{
			ID:        uuid.New().String(),
			AccountID: account.ID,
			Kind:      models.Deposit,
			Amount:    decimal.NewFromInt(10000),
			CreatedAt: today.Add(-time.Hour),
		})
	}

	blocked, err := svc.Block(context.Background(), admin, account.ID, models.BlockAccountRequest{
		BlockStart: today,
		BlockEnd:   today.AddDate(0, 0, 3),
		Reason:     "Suspicion de fraude",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusBlocked, blocked.Status)
	require.True(t, blocked.HasBlockingWindow())
	assert.Equal(t, today, *blocked.BlockStart)
	assert.Equal(t, today.AddDate(0, 0, 3), *blocked.BlockEnd)
	assert.Equal(t, "Suspicion de fraude", *blocked.BlockReason)

	for _, tx := range store.transactions {
		assert.True(t, tx.Archived, "transaction %s should be archived", tx.ID)
	}
}

func TestBlockDeferredWhenWindowInFuture(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)
	account := seedAccount(store, client, models.Savings, 500000)
	store.transactions = append(store.transactions, &models.Transaction{
		ID: uuid.New().String(), AccountID: account.ID,
		Kind: models.Deposit, Amount: decimal.NewFromInt(10000), CreatedAt: today,
	})

	blocked, err := svc.Block(context.Background(), admin, account.ID, models.BlockAccountRequest{
		BlockStart: today.AddDate(0, 0, 10),
		BlockEnd:   today.AddDate(0, 0, 20),
		Reason:     "Contrôle",
	})
	require.NoError(t, err)

	// the window is stored but the transition waits for maturation
	assert.Equal(t, models.StatusActive, blocked.Status)
	assert.True(t, blocked.HasBlockingWindow())
	assert.False(t, store.transactions[0].Archived)
}

func TestBlockRejections(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)
	checking := seedAccount(store, client, models.Checking, 10000)
	savings := seedAccount(store, client, models.Savings, 10000)
	blocked := seedAccount(store, client, models.Savings, 10000)
	blocked.Status = models.StatusBlocked

	window := models.BlockAccountRequest{
		BlockStart: today,
		BlockEnd:   today.AddDate(0, 0, 3),
		Reason:     "Contrôle",
	}

	_, err := svc.Block(context.Background(), admin, checking.ID, window)
	assertCode(t, err, "VALIDATION_ERROR")

	_, err = svc.Block(context.Background(), admin, blocked.ID, window)
	assertCode(t, err, "CONFLICT")

	clientActor := models.Actor{ID: client.ID, Role: models.RoleClient}
	_, err = svc.Block(context.Background(), clientActor, savings.ID, window)
	assertCode(t, err, "FORBIDDEN")

	_, err = svc.Block(context.Background(), admin, savings.ID, models.BlockAccountRequest{
		BlockStart: today, BlockEnd: today.AddDate(0, 0, 3),
	})
	assertCode(t, err, "VALIDATION_ERROR")

	_, err = svc.Block(context.Background(), admin, savings.ID, models.BlockAccountRequest{
		BlockStart: today, BlockEnd: today.AddDate(0, 0, -1), Reason: "x",
	})
	assertCode(t, err, "VALIDATION_ERROR")
}

func TestUnblockClearsWholeWindow(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)
	account := seedAccount(store, client, models.Savings, 10000)
	start, end, reason := today, today.AddDate(0, 0, 3), "Contrôle"
	account.BlockStart, account.BlockEnd, account.BlockReason = &start, &end, &reason
	account.Status = models.StatusBlocked

	unblocked, err := svc.Unblock(context.Background(), admin, account.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, unblocked.Status)
	assert.Nil(t, unblocked.BlockStart)
	assert.Nil(t, unblocked.BlockEnd)
	assert.Nil(t, unblocked.BlockReason)
}

func TestCloseIsSoftAndNotRepeatable(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)
	account := seedAccount(store, client, models.Checking, 10000)

	closed, err := svc.Close(context.Background(), admin, account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	// the row is still there
	_, err = store.GetAccountByID(context.Background(), account.ID)
	assert.NoError(t, err)

	_, err = svc.Close(context.Background(), admin, account.ID)
	assertCode(t, err, "CONFLICT")
}

func TestManualArchiveForbiddenForSavings(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)
	savings := seedAccount(store, client, models.Savings, 10000)
	checking := seedAccount(store, client, models.Checking, 10000)

	_, err := svc.Archive(context.Background(), admin, savings.ID)
	assertCode(t, err, "FORBIDDEN")

	archived, err := svc.Archive(context.Background(), admin, checking.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	unarchived, err := svc.Unarchive(context.Background(), admin, checking.ID)
	require.NoError(t, err)
	assert.False(t, unarchived.Archived)
}

func TestListExcludesBlockedClosedArchived(t *testing.T) {
	svc, store, _, _ := newAccountFixture()
	client := seedClient(store)
	open := seedAccount(store, client, models.Checking, 10000)
	blocked := seedAccount(store, client, models.Savings, 10000)
	blocked.Status = models.StatusBlocked
	closed := seedAccount(store, client, models.Checking, 10000)
	closed.Status = models.StatusClosed
	archived := seedAccount(store, client, models.Checking, 10000)
	archived.Archived = true

	accounts, err := svc.List(context.Background(), admin, models.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, open.ID, accounts[0].ID)
}

func TestNotificationFailureDoesNotFailOpen(t *testing.T) {
	svc, _, sender, _ := newAccountFixture()
	sender.err = errors.New("smtp down")

	_, err := svc.Open(context.Background(), admin, models.OpenAccountRequest{
		Type:           models.Checking,
		Currency:       "FCFA",
		InitialBalance: decimal.NewFromInt(500000),
		Client: models.ClientInput{
			FullName:  "Fatou Wade",
			Email:     "fatou.wade@example.com",
			Telephone: "+221771234567",
		},
	})
	assert.NoError(t, err)
}
