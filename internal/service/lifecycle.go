package service

import (
	"context"
	"time"

	"github.com/madiallo/banque-backoffice/internal/apperrors"
	"github.com/madiallo/banque-backoffice/internal/clock"
	"github.com/madiallo/banque-backoffice/internal/models"
	"go.uber.org/zap"
)

// LifecycleService owns the scheduled procedures: weekly transaction
// archival and daily blocking maturation. Both are idempotent and both
// isolate failures per record, so a re-run or a bad row never aborts a
// whole pass.
type LifecycleService struct {
	accounts AccountStore
	ledger   LedgerStore
	archive  ArchiveStore
	logger   *zap.Logger
}

// creates a new LifecycleService
func NewLifecycleService(accounts AccountStore, ledger LedgerStore, archive ArchiveStore, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		accounts: accounts,
		ledger:   ledger,
		archive:  archive,
		logger:   logger,
	}
}

// ArchiveWeek copies every ledger entry created in the calendar week
// containing ref into that week's partition in the document store.
// Documents are keyed by transaction id, so re-running the same week
// rewrites identical copies instead of duplicating them. Returns the
// number of entries archived.
func (s *LifecycleService) ArchiveWeek(ctx context.Context, ref time.Time) (int, error) {
	start := clock.WeekStart(ref)
	end := clock.WeekEnd(ref)
	partition := clock.PartitionName(start)
	weekID := clock.WeekID(start)

	transactions, err := s.ledger.ListTransactionsBetween(ctx, start, end)
	if err != nil {
		return 0, apperrors.NewInternal("failed to load transactions for the week", err)
	}

	archived := 0
	for _, t := range transactions {
		doc := models.NewArchivedTransaction(t, weekID, end)
		if err := s.archive.UpsertArchived(ctx, partition, doc); err != nil {
			s.logger.Error("failed to archive transaction",
				zap.String("transaction_id", t.ID),
				zap.String("partition", partition),
				zap.Error(err))
			continue
		}
		archived++
	}

	s.logger.Info("weekly archival finished",
		zap.String("partition", partition),
		zap.String("week_id", weekID),
		zap.Int("archived", archived),
		zap.Int("total", len(transactions)))
	return archived, nil
}

// MaturationResult reports what one maturation pass did
type MaturationResult struct {
	Archived   int
	Unarchived int
}

// MatureAccounts applies the two daily date-window rules:
//
//  1. blocked savings accounts whose blocking window has started and
//     which are not archived yet become archived;
//  2. blocked savings accounts whose blocking window has ended and
//     which are archived become unarchived.
//
// Re-applying either rule to an already-transitioned account selects
// nothing, so daily re-runs are no-ops.
func (s *LifecycleService) MatureAccounts(ctx context.Context, today time.Time) (MaturationResult, error) {
	var result MaturationResult
	day := startOfDay(today)

	toArchive, err := s.accounts.ListAccountsToArchive(ctx, day)
	if err != nil {
		return result, apperrors.NewInternal("failed to list accounts to archive", err)
	}
	for _, account := range toArchive {
		if _, err := s.accounts.SetAccountArchived(ctx, account.ID, true, day); err != nil {
			s.logger.Error("failed to archive account",
				zap.String("account_id", account.ID),
				zap.Error(err))
			continue
		}
		result.Archived++
		s.logger.Info("account archived automatically",
			zap.String("account_id", account.ID),
			zap.String("number", account.Number))
	}

	toUnarchive, err := s.accounts.ListAccountsToUnarchive(ctx, day)
	if err != nil {
		return result, apperrors.NewInternal("failed to list accounts to unarchive", err)
	}
	for _, account := range toUnarchive {
		if _, err := s.accounts.SetAccountArchived(ctx, account.ID, false, day); err != nil {
			s.logger.Error("failed to unarchive account",
				zap.String("account_id", account.ID),
				zap.Error(err))
			continue
		}
		result.Unarchived++
		s.logger.Info("account unarchived automatically",
			zap.String("account_id", account.ID),
			zap.String("number", account.Number))
	}

	return result, nil
}

// ListArchivedWeek retrieves one weekly partition by its week
// identifier (e.g. 2025-W45).
func (s *LifecycleService) ListArchivedWeek(ctx context.Context, weekID string) ([]*models.ArchivedTransaction, error) {
	partition, err := clock.PartitionNameForWeekID(weekID)
	if err != nil {
		return nil, apperrors.NewValidation("invalid week identifier, expected e.g. 2025-W45")
	}
	archived, err := s.archive.ListPartition(ctx, partition)
	if err != nil {
		return nil, apperrors.NewInternal("failed to list archived transactions", err)
	}
	return archived, nil
}
