package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/errors"
	"github.com/riteshkumar/ledger-assistant/internal/ledger"
	"github.com/riteshkumar/ledger-assistant/internal/metrics"
	"github.com/riteshkumar/ledger-assistant/internal/models"
)

type TransactionService interface {
	Deposit(ctx context.Context, accountID string, req *models.AmountRequest) (*ledger.Receipt, error)
	Withdraw(ctx context.Context, accountID string, req *models.AmountRequest) (*ledger.Receipt, error)
	Transfer(ctx context.Context, req *models.TransferRequest) (*ledger.TransferReceipt, error)
	Exchange(ctx context.Context, accountID string, req *models.ExchangeRequest) (*ledger.Receipt, error)
	Rates(ctx context.Context) (models.RateTable, error)
}

type TransactionServiceImpl struct {
	engine  *ledger.Engine
	rates   RateProvider
	audit   auditTrail
	metrics metrics.Collector
	logger  *zap.Logger
}

func NewTransactionService(engine *ledger.Engine, rates RateProvider, queue AuditQueue, collector metrics.Collector, logger *zap.Logger) *TransactionServiceImpl {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &TransactionServiceImpl{
		engine:  engine,
		rates:   rates,
		audit:   auditTrail{queue: queue, logger: logger},
		metrics: collector,
		logger:  logger,
	}
}

func (s *TransactionServiceImpl) Deposit(ctx context.Context, accountID string, req *models.AmountRequest) (*ledger.Receipt, error) {
	start := time.Now()
	receipt, err := s.deposit(ctx, accountID, req)
	s.metrics.RecordOperation("deposit", errors.Classify(err), time.Since(start))
	return receipt, err
}

func (s *TransactionServiceImpl) deposit(ctx context.Context, accountID string, req *models.AmountRequest) (*ledger.Receipt, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}

	receipt, err := s.engine.Deposit(accountID, req.Amount)
	if err != nil {
		s.logFailure("deposit failed", err,
			zap.String("account_id", accountID),
			zap.Stringer("amount", req.Amount),
		)
		return nil, err
	}

	s.audit.record(ctx, models.AuditActionCredit, receipt.Before, receipt.Account.Snapshot(), receipt.Transaction)
	s.logger.Info("deposit completed",
		zap.String("account_id", accountID),
		zap.String("transaction_id", receipt.Transaction.ID),
		zap.Stringer("amount", req.Amount),
		zap.Stringer("home_balance", receipt.Account.HomeBalance),
	)
	return &receipt, nil
}

func (s *TransactionServiceImpl) Withdraw(ctx context.Context, accountID string, req *models.AmountRequest) (*ledger.Receipt, error) {
	start := time.Now()
	receipt, err := s.withdraw(ctx, accountID, req)
	s.metrics.RecordOperation("withdraw", errors.Classify(err), time.Since(start))
	return receipt, err
}

func (s *TransactionServiceImpl) withdraw(ctx context.Context, accountID string, req *models.AmountRequest) (*ledger.Receipt, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}

	receipt, err := s.engine.Withdraw(accountID, req.Amount)
	if err != nil {
		s.logFailure("withdrawal failed", err,
			zap.String("account_id", accountID),
			zap.Stringer("amount", req.Amount),
		)
		return nil, err
	}

	s.audit.record(ctx, models.AuditActionDebit, receipt.Before, receipt.Account.Snapshot(), receipt.Transaction)
	s.logger.Info("withdrawal completed",
		zap.String("account_id", accountID),
		zap.String("transaction_id", receipt.Transaction.ID),
		zap.Stringer("amount", req.Amount),
		zap.Stringer("home_balance", receipt.Account.HomeBalance),
	)
	return &receipt, nil
}

// Transfer moves home currency between two accounts. The ledger applies
// both sides atomically; audit entries are queued afterwards.
func (s *TransactionServiceImpl) Transfer(ctx context.Context, req *models.TransferRequest) (*ledger.TransferReceipt, error) {
	start := time.Now()
	receipt, err := s.transfer(ctx, req)
	s.metrics.RecordOperation("transfer", errors.Classify(err), time.Since(start))
	return receipt, err
}

func (s *TransactionServiceImpl) transfer(ctx context.Context, req *models.TransferRequest) (*ledger.TransferReceipt, error) {
	if err := s.validateTransferRequest(req); err != nil {
		s.logger.Warn("invalid transfer request",
			zap.String("from_account_id", req.FromAccountID),
			zap.String("to_account_id", req.ToAccountID),
			zap.Stringer("amount", req.Amount),
			zap.Error(err),
		)
		return nil, err
	}

	receipt, err := s.engine.Transfer(req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		s.logFailure("transfer failed", err,
			zap.String("from_account_id", req.FromAccountID),
			zap.String("to_account_id", req.ToAccountID),
			zap.Stringer("amount", req.Amount),
		)
		return nil, err
	}

	s.audit.record(ctx, models.AuditActionDebit, receipt.FromBefore, receipt.From.Snapshot(), receipt.Sent)
	s.audit.record(ctx, models.AuditActionCredit, receipt.ToBefore, receipt.To.Snapshot(), receipt.Received)
	s.logger.Info("transfer completed",
		zap.String("from_account_id", req.FromAccountID),
		zap.String("to_account_id", req.ToAccountID),
		zap.String("sent_id", receipt.Sent.ID),
		zap.String("received_id", receipt.Received.ID),
		zap.Stringer("amount", req.Amount),
	)
	return &receipt, nil
}

func (s *TransactionServiceImpl) Exchange(ctx context.Context, accountID string, req *models.ExchangeRequest) (*ledger.Receipt, error) {
	start := time.Now()
	receipt, err := s.exchange(ctx, accountID, req)
	s.metrics.RecordOperation("exchange", errors.Classify(err), time.Since(start))
	return receipt, err
}

func (s *TransactionServiceImpl) exchange(ctx context.Context, accountID string, req *models.ExchangeRequest) (*ledger.Receipt, error) {
	if err := validateAccountID(accountID); err != nil {
		return nil, err
	}
	if err := s.validateExchangeRequest(req); err != nil {
		s.logger.Warn("invalid exchange request",
			zap.String("account_id", accountID),
			zap.String("from", string(req.FromDenomination)),
			zap.String("to", string(req.ToDenomination)),
			zap.Error(err),
		)
		return nil, err
	}

	rates, err := s.rates.Rates(ctx)
	if err != nil {
		s.logger.Error("exchange rates unavailable", zap.Error(err))
		if errors.Classify(err) == "internal" {
			return nil, errors.NewOperationError("exchange", errors.ErrRatesUnavailable)
		}
		return nil, err
	}

	receipt, err := s.engine.Exchange(accountID, req.FromDenomination, req.ToDenomination, req.Amount, rates)
	if err != nil {
		s.logFailure("exchange failed", err,
			zap.String("account_id", accountID),
			zap.String("from", string(req.FromDenomination)),
			zap.String("to", string(req.ToDenomination)),
			zap.Stringer("amount", req.Amount),
		)
		return nil, err
	}

	s.audit.record(ctx, models.AuditActionExchange, receipt.Before, receipt.Account.Snapshot(), receipt.Transaction)
	s.logger.Info("exchange completed",
		zap.String("account_id", accountID),
		zap.String("transaction_id", receipt.Transaction.ID),
		zap.String("kind", string(receipt.Transaction.Kind)),
		zap.Stringer("amount", receipt.Transaction.Amount),
		zap.Stringer("counter_amount", receipt.Transaction.CounterAmount),
		zap.Stringer("rate", receipt.Transaction.Rate.Decimal),
	)
	return &receipt, nil
}

func (s *TransactionServiceImpl) Rates(ctx context.Context) (models.RateTable, error) {
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		s.logger.Error("exchange rates unavailable", zap.Error(err))
		if errors.Classify(err) == "internal" {
			return nil, errors.ErrRatesUnavailable
		}
		return nil, err
	}
	return rates, nil
}

// logFailure logs domain rejections at warn and anything else at error.
func (s *TransactionServiceImpl) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("reason", errors.Classify(err)), zap.Error(err))
	if errors.Classify(err) == "internal" {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Warn(msg, fields...)
}

func (s *TransactionServiceImpl) validateTransferRequest(req *models.TransferRequest) error {
	req.FromAccountID = strings.TrimSpace(req.FromAccountID)
	req.ToAccountID = strings.TrimSpace(req.ToAccountID)
	if req.FromAccountID == "" {
		return errors.NewValidationError("from_account_id", "must be non-empty")
	}
	if req.ToAccountID == "" {
		return errors.NewValidationError("to_account_id", "must be non-empty")
	}
	if req.FromAccountID == req.ToAccountID {
		return errors.ErrSameAccount
	}
	if !req.Amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	return nil
}

func (s *TransactionServiceImpl) validateExchangeRequest(req *models.ExchangeRequest) error {
	req.FromDenomination = models.Denomination(strings.ToUpper(strings.TrimSpace(string(req.FromDenomination))))
	req.ToDenomination = models.Denomination(strings.ToUpper(strings.TrimSpace(string(req.ToDenomination))))
	if !req.FromDenomination.Valid() {
		return errors.NewValidationError("from_denomination", "must be a 3 to 5 letter code")
	}
	if !req.ToDenomination.Valid() {
		return errors.NewValidationError("to_denomination", "must be a 3 to 5 letter code")
	}
	if !req.Amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	return nil
}

func validateAccountID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.ErrInvalidAccountID
	}
	return nil
}
