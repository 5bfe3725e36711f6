package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/madiallo/banque-backoffice/internal/apperrors"
	"github.com/madiallo/banque-backoffice/internal/clock"
	"github.com/madiallo/banque-backoffice/internal/db"
	"github.com/madiallo/banque-backoffice/internal/models"
	"github.com/madiallo/banque-backoffice/internal/notify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultMinAmount is the policy floor for deposits and withdrawals
var DefaultMinAmount = decimal.NewFromInt(1000)

// TransactionService owns the ledger: deposits, withdrawals and
// per-account history.
type TransactionService struct {
	ledger    LedgerStore
	accounts  AccountStore
	clock     clock.Clock
	sender    notify.Sender
	logger    *zap.Logger
	minAmount decimal.Decimal
}

// creates a new TransactionService
func NewTransactionService(ledger LedgerStore, accounts AccountStore, clk clock.Clock, sender notify.Sender, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		ledger:    ledger,
		accounts:  accounts,
		clock:     clk,
		sender:    sender,
		logger:    logger,
		minAmount: DefaultMinAmount,
	}
}

// Deposit credits the account and records the ledger entry atomically
func (s *TransactionService) Deposit(ctx context.Context, actor models.Actor, req models.TransactionRequest) (*models.Transaction, error) {
	return s.apply(ctx, actor, models.Deposit, req)
}

// Withdraw debits the account and records the ledger entry atomically.
// A withdrawal that would drive the balance negative fails with
// InsufficientFunds and leaves no trace.
func (s *TransactionService) Withdraw(ctx context.Context, actor models.Actor, req models.TransactionRequest) (*models.Transaction, error) {
	return s.apply(ctx, actor, models.Withdrawal, req)
}

func (s *TransactionService) apply(ctx context.Context, actor models.Actor, kind models.TransactionKind, req models.TransactionRequest) (*models.Transaction, error) {
	if req.Amount.LessThan(s.minAmount) {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("amount must be at least %s", s.minAmount)).
			WithDetail("minimum", s.minAmount.String())
	}

	account, err := s.accounts.GetAccountByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperrors.NewNotFound("account not found")
		}
		return nil, apperrors.NewInternal("failed to look up account", err)
	}
	if err := checkOwnership(actor, account); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	description := req.Description
	if description == "" {
		if kind == models.Deposit {
			description = "Dépôt"
		} else {
			description = "Retrait"
		}
	}

	transaction := &models.Transaction{
		ID:          uuid.New().String(),
		AccountID:   account.ID,
		Kind:        kind,
		Amount:      req.Amount,
		Description: description,
		CreatedAt:   now,
	}

	updated, err := s.ledger.ApplyTransaction(ctx, transaction, now)
	if err != nil {
		if errors.Is(err, db.ErrInsufficientFunds) {
			return nil, apperrors.NewInsufficientFunds("insufficient funds")
		}
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperrors.NewNotFound("account not found")
		}
		return nil, apperrors.NewInternal("failed to apply transaction", err)
	}

	s.logger.Info("transaction recorded",
		zap.String("transaction_id", transaction.ID),
		zap.String("account_id", account.ID),
		zap.String("kind", string(kind)),
		zap.String("amount", req.Amount.String()),
		zap.String("actor", actor.ID))

	if client, cerr := s.accounts.GetClient(ctx, account.ClientID); cerr == nil {
		verb := "Dépôt"
		if kind == models.Withdrawal {
			verb = "Retrait"
		}
		notify.Dispatch(ctx, s.logger, s.sender, notify.Notification{
			ClientID:  client.ID,
			Email:     client.Email,
			Telephone: client.Telephone,
			Message:   fmt.Sprintf("%s de %s %s effectué sur le compte %s.", verb, req.Amount, updated.Currency, updated.Number),
			CreatedAt: now,
		})
	}

	return transaction, nil
}

// ListByAccount retrieves the ledger history, newest first
func (s *TransactionService) ListByAccount(ctx context.Context, actor models.Actor, accountID string) ([]*models.Transaction, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperrors.NewNotFound("account not found")
		}
		return nil, apperrors.NewInternal("failed to look up account", err)
	}
	if err := checkOwnership(actor, account); err != nil {
		return nil, err
	}

	transactions, err := s.ledger.ListTransactionsByAccount(ctx, account.ID)
	if err != nil {
		return nil, apperrors.NewInternal("failed to list transactions", err)
	}
	return transactions, nil
}
