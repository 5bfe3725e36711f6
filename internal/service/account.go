package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/madiallo/banque-backoffice/internal/apperrors"
	"github.com/madiallo/banque-backoffice/internal/clock"
	"github.com/madiallo/banque-backoffice/internal/db"
	"github.com/madiallo/banque-backoffice/internal/models"
	"github.com/madiallo/banque-backoffice/internal/notify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMinOpeningBalance is the policy floor for the opening balance
var DefaultMinOpeningBalance = decimal.NewFromInt(10000)

var validCurrencies = map[string]bool{
	"FCFA": true,
	"XOF":  true,
}

// AccountService owns the account lifecycle: opening, lookup, manual
// status changes and the blocking window.
type AccountService struct {
	store      AccountStore
	clock      clock.Clock
	sender     notify.Sender
	logger     *zap.Logger
	minOpening decimal.Decimal
}

// creates a new AccountService
func NewAccountService(store AccountStore, clk clock.Clock, sender notify.Sender, logger *zap.Logger) *AccountService {
	return &AccountService{
		store:      store,
		clock:      clk,
		sender:     sender,
		logger:     logger,
		minOpening: DefaultMinOpeningBalance,
	}
}

// Open creates a new account, creating the owning client inline when
// the request does not reference an existing one.
func (s *AccountService) Open(ctx context.Context, actor models.Actor, req models.OpenAccountRequest) (*models.Account, error) {
	if req.Type != models.Checking && req.Type != models.Savings {
		return nil, apperrors.NewValidation("account type must be checking or savings")
	}
	if !validCurrencies[req.Currency] {
		return nil, apperrors.NewValidation("currency must be FCFA or XOF")
	}
	if req.InitialBalance.LessThan(s.minOpening) {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("initial balance must be at least %s", s.minOpening)).
			WithDetail("minimum", s.minOpening.String())
	}

	now := s.clock.Now()

	client, err := s.resolveClient(ctx, req.Client, now)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:        uuid.New().String(),
		Number:    generateAccountNumber(now),
		ClientID:  client.ID,
		Type:      req.Type,
		Currency:  req.Currency,
		Balance:   req.InitialBalance,
		Status:    models.StatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, apperrors.NewInternal("failed to create account", err)
	}

	s.logger.Info("account opened",
		zap.String("account_id", account.ID),
		zap.String("number", account.Number),
		zap.String("type", string(account.Type)),
		zap.String("actor", actor.ID))

	notify.Dispatch(ctx, s.logger, s.sender, notify.Notification{
		ClientID:  client.ID,
		Email:     client.Email,
		Telephone: client.Telephone,
		Message: fmt.Sprintf("Votre compte %s a été créé avec succès. Solde initial: %s %s",
			account.Number, account.Balance, account.Currency),
		CreatedAt: now,
	})

	return account, nil
}

func (s *AccountService) resolveClient(ctx context.Context, in models.ClientInput, now time.Time) (*models.Client, error) {
	if in.ID != "" {
		client, err := s.store.GetClient(ctx, in.ID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, apperrors.NewNotFound("client not found")
			}
			return nil, apperrors.NewInternal("failed to look up client", err)
		}
		return client, nil
	}

	if in.FullName == "" || in.Email == "" || in.Telephone == "" {
		return nil, apperrors.NewValidation("client full name, email and telephone are required")
	}
	client := &models.Client{
		ID:         uuid.New().String(),
		FullName:   in.FullName,
		Email:      in.Email,
		Telephone:  in.Telephone,
		Address:    in.Address,
		NationalID: in.NationalID,
		CreatedAt:  now,
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, apperrors.NewInternal("failed to create client", err)
	}
	return client, nil
}

// Get retrieves an account by id or by account number. Client actors
// may only read accounts they own.
func (s *AccountService) Get(ctx context.Context, actor models.Actor, idOrNumber string) (*models.Account, error) {
	account, err := s.resolve(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	if err := checkOwnership(actor, account); err != nil {
		return nil, err
	}
	return account, nil
}

// List returns open accounts: blocked, closed and archived ones are
// excluded.
func (s *AccountService) List(ctx context.Context, actor models.Actor, filter models.AccountFilter) ([]*models.Account, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	accounts, err := s.store.ListAccounts(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternal("failed to list accounts", err)
	}
	return accounts, nil
}

// Close marks the account closed. The row is never deleted.
func (s *AccountService) Close(ctx context.Context, actor models.Actor, idOrNumber string) (*models.Account, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may close accounts")
	}
	account, err := s.resolve(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	if account.Status == models.StatusClosed {
		return nil, apperrors.NewConflict("account is already closed")
	}

	closed, err := s.store.CloseAccount(ctx, account.ID, s.clock.Now())
	if err != nil {
		return nil, apperrors.NewInternal("failed to close account", err)
	}
	s.logger.Info("account closed",
		zap.String("account_id", closed.ID),
		zap.String("actor", actor.ID))
	return closed, nil
}

// Block stores a blocking window on a savings account. When the window
// already contains "now" the account transitions to blocked at once and
// all of its ledger entries are marked archived in the same operation;
// otherwise the daily maturation run picks it up later.
func (s *AccountService) Block(ctx context.Context, actor models.Actor, idOrNumber string, req models.BlockAccountRequest) (*models.Account, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may block accounts")
	}
	if req.Reason == "" {
		return nil, apperrors.NewValidation("blocking reason is required")
	}
	if req.BlockEnd.Before(req.BlockStart) {
		return nil, apperrors.NewValidation("blocking window end must not precede its start")
	}

	account, err := s.resolve(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	if account.Type != models.Savings {
		return nil, apperrors.NewValidation("only savings accounts can be blocked")
	}
	if account.Status != models.StatusActive {
		return nil, apperrors.NewConflict("only active accounts can be blocked")
	}

	now := s.clock.Now()
	windowStart := startOfDay(req.BlockStart)
	windowEnd := startOfDay(req.BlockEnd).AddDate(0, 0, 1)
	blockNow := !now.Before(windowStart) && now.Before(windowEnd)

	blocked, err := s.store.SetBlockingWindow(ctx, account.ID, req, blockNow, now)
	if err != nil {
		return nil, apperrors.NewInternal("failed to set blocking window", err)
	}

	s.logger.Info("blocking window set",
		zap.String("account_id", blocked.ID),
		zap.Time("block_start", req.BlockStart),
		zap.Time("block_end", req.BlockEnd),
		zap.Bool("blocked_immediately", blockNow),
		zap.String("actor", actor.ID))

	if client, cerr := s.store.GetClient(ctx, blocked.ClientID); cerr == nil {
		notify.Dispatch(ctx, s.logger, s.sender, notify.Notification{
			ClientID:  client.ID,
			Email:     client.Email,
			Telephone: client.Telephone,
			Message:   fmt.Sprintf("Votre compte %s est bloqué du %s au %s.", blocked.Number, req.BlockStart.Format("2006-01-02"), req.BlockEnd.Format("2006-01-02")),
			CreatedAt: now,
		})
	}

	return blocked, nil
}

// Unblock reactivates the account and clears the whole blocking window
func (s *AccountService) Unblock(ctx context.Context, actor models.Actor, idOrNumber string) (*models.Account, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may unblock accounts")
	}
	account, err := s.resolve(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}

	unblocked, err := s.store.ClearBlockingWindow(ctx, account.ID, s.clock.Now())
	if err != nil {
		return nil, apperrors.NewInternal("failed to clear blocking window", err)
	}
	s.logger.Info("account unblocked",
		zap.String("account_id", unblocked.ID),
		zap.String("actor", actor.ID))
	return unblocked, nil
}

// Archive flips the archived flag manually. Savings accounts are only
// ever archived by the maturation run, never by hand.
func (s *AccountService) Archive(ctx context.Context, actor models.Actor, idOrNumber string) (*models.Account, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may archive accounts")
	}
	account, err := s.resolve(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	if account.Type == models.Savings {
		return nil, apperrors.NewForbidden("savings accounts are archived automatically, not manually")
	}
	archived, err := s.store.SetAccountArchived(ctx, account.ID, true, s.clock.Now())
	if err != nil {
		return nil, apperrors.NewInternal("failed to archive account", err)
	}
	return archived, nil
}

// Unarchive clears the archived flag manually
func (s *AccountService) Unarchive(ctx context.Context, actor models.Actor, idOrNumber string) (*models.Account, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may unarchive accounts")
	}
	account, err := s.resolve(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	unarchived, err := s.store.SetAccountArchived(ctx, account.ID, false, s.clock.Now())
	if err != nil {
		return nil, apperrors.NewInternal("failed to unarchive account", err)
	}
	return unarchived, nil
}

// ListArchived returns the archived savings accounts
func (s *AccountService) ListArchived(ctx context.Context, actor models.Actor) ([]*models.Account, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("only admins may list archived accounts")
	}
	accounts, err := s.store.ListArchivedSavings(ctx)
	if err != nil {
		return nil, apperrors.NewInternal("failed to list archived accounts", err)
	}
	return accounts, nil
}

// resolve finds an account by id first, then by number
func (s *AccountService) resolve(ctx context.Context, idOrNumber string) (*models.Account, error) {
	account, err := s.store.GetAccountByID(ctx, idOrNumber)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.NewInternal("failed to look up account", err)
	}

	account, err = s.store.GetAccountByNumber(ctx, idOrNumber)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperrors.NewNotFound("account not found")
		}
		return nil, apperrors.NewInternal("failed to look up account", err)
	}
	return account, nil
}

func checkOwnership(actor models.Actor, account *models.Account) error {
	if actor.IsClient() && account.ClientID != actor.ID {
		return apperrors.NewForbidden("account does not belong to this client")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// generateAccountNumber mints a human-facing number like ACC-20251103-4821
func generateAccountNumber(now time.Time) string {
	return fmt.Sprintf("ACC-%s-%04d", now.Format("20060102"), rand.Intn(10000))
}
