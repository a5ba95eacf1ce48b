package service

import (
	"context"
	stderrors "errors"
	"strings"

	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/ledger"
	"github.com/riteshkumar/ledger-assistant/internal/models"
	"github.com/riteshkumar/ledger-assistant/internal/repository"
)

// AuditService reads back what the audit writer persisted. Entries are
// written asynchronously, so the newest operations may not be visible yet.
type AuditService interface {
	GetAccountAuditLogs(ctx context.Context, accountID string) ([]*models.AuditLog, error)
	GetResetAuditLogs(ctx context.Context) ([]*models.AuditLog, error)
	GetJournal(ctx context.Context, accountID string, limit int) ([]*models.JournalEntry, error)
	GetJournalEntry(ctx context.Context, id string) (*models.JournalEntry, error)
}

type AuditServiceImpl struct {
	engine  *ledger.Engine
	audits  repository.AuditRepository
	journal repository.TransactionRepository
	logger  *zap.Logger
}

func NewAuditService(engine *ledger.Engine, audits repository.AuditRepository, journal repository.TransactionRepository, logger *zap.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{
		engine:  engine,
		audits:  audits,
		journal: journal,
		logger:  logger,
	}
}

func (s *AuditServiceImpl) GetAccountAuditLogs(ctx context.Context, accountID string) ([]*models.AuditLog, error) {
	if err := s.requireAccount(accountID); err != nil {
		return nil, err
	}

	logs, err := s.audits.GetByEntityID(ctx, models.EntityTypeAccount, accountID)
	if err != nil {
		s.logger.Error("failed to read audit logs", zap.String("account_id", accountID), zap.Error(err))
		return nil, errors.NewOperationError("get audit logs", err)
	}
	return logs, nil
}

func (s *AuditServiceImpl) GetResetAuditLogs(ctx context.Context) ([]*models.AuditLog, error) {
	logs, err := s.audits.GetByEntityID(ctx, models.EntityTypeLedger, ledgerEntityID)
	if err != nil {
		s.logger.Error("failed to read reset audit logs", zap.Error(err))
		return nil, errors.NewOperationError("get reset audit logs", err)
	}
	return logs, nil
}

// GetJournal returns the account's persisted records newest first.
func (s *AuditServiceImpl) GetJournal(ctx context.Context, accountID string, limit int) ([]*models.JournalEntry, error) {
	if err := s.requireAccount(accountID); err != nil {
		return nil, err
	}
	if limit < 0 || limit > maxHistoryLimit {
		return nil, errors.NewValidationError("limit", "must be between 0 and 500")
	}

	entries, err := s.journal.GetByAccountID(ctx, accountID, limit)
	if err != nil {
		s.logger.Error("failed to read journal", zap.String("account_id", accountID), zap.Error(err))
		return nil, errors.NewOperationError("get journal", err)
	}
	return entries, nil
}

func (s *AuditServiceImpl) GetJournalEntry(ctx context.Context, id string) (*models.JournalEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.NewValidationError("id", "must be non-empty")
	}

	entry, err := s.journal.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrJournalEntryNotFound) {
			return nil, err
		}
		s.logger.Error("failed to read journal entry", zap.String("transaction_id", id), zap.Error(err))
		return nil, errors.NewOperationError("get journal entry", err)
	}
	return entry, nil
}

func (s *AuditServiceImpl) requireAccount(accountID string) error {
	if err := validateAccountID(accountID); err != nil {
		return err
	}
	if _, err := s.engine.Account(accountID); err != nil {
		return err
	}
	return nil
}
