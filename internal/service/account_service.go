package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/ledger"
	"github.com/riteshkumar/ledger-assistant/internal/models"
)

// maxHistoryLimit caps a single history page.
const maxHistoryLimit = 500

type AccountService interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	FindAccountByName(ctx context.Context, name string) (*models.Account, error)
	GetHistory(ctx context.Context, id string, limit int) ([]models.Transaction, error)
	Reset(ctx context.Context) ([]models.Account, error)
}

type AccountServiceImpl struct {
	engine *ledger.Engine
	audit  auditTrail
	logger *zap.Logger
}

func NewAccountService(engine *ledger.Engine, queue AuditQueue, logger *zap.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		engine: engine,
		audit:  auditTrail{queue: queue, logger: logger},
		logger: logger,
	}
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if err := validateAccountID(id); err != nil {
		return nil, err
	}

	account, err := s.engine.Account(id)
	if err != nil {
		s.logger.Warn("account not found", zap.String("account_id", id))
		return nil, err
	}
	return &account, nil
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.engine.Accounts(), nil
}

// FindAccountByName resolves an account by holder name, ignoring case and
// surrounding whitespace.
func (s *AccountServiceImpl) FindAccountByName(ctx context.Context, name string) (*models.Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewValidationError("name", "must be non-empty")
	}

	account, err := s.engine.FindByName(name)
	if err != nil {
		s.logger.Warn("account not found by name", zap.String("name", name))
		return nil, err
	}
	return &account, nil
}

func (s *AccountServiceImpl) GetHistory(ctx context.Context, id string, limit int) ([]models.Transaction, error) {
	if err := validateAccountID(id); err != nil {
		return nil, err
	}
	if limit < 0 || limit > maxHistoryLimit {
		return nil, errors.NewValidationError("limit", "must be between 0 and 500")
	}

	history, err := s.engine.History(id, limit)
	if err != nil {
		s.logger.Warn("history requested for unknown account", zap.String("account_id", id))
		return nil, err
	}
	return history, nil
}

// Reset restores the demo accounts and returns them.
func (s *AccountServiceImpl) Reset(ctx context.Context) ([]models.Account, error) {
	s.engine.Reset()
	accounts := s.engine.Accounts()

	s.audit.recordReset(ctx, accounts)
	s.logger.Info("ledger reset to demo seed", zap.Int("accounts", len(accounts)))
	return accounts, nil
}
