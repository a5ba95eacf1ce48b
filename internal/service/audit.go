package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/riteshkumar/ledger-assistant/internal/audit"
	"github.com/riteshkumar/ledger-assistant/internal/models"
)

// ledgerEntityID is the entity id of ledger-wide audit entries such as resets.
const ledgerEntityID = "ledger"

// AuditQueue accepts audit entries for asynchronous persistence.
type AuditQueue interface {
	Enqueue(ctx context.Context, entry audit.Entry) error
}

// auditTrail builds audit entries from ledger receipts and queues them.
// Failures are logged and never reach the caller.
type auditTrail struct {
	queue  AuditQueue
	logger *zap.Logger
}

// record queues one entry for an account whose balances changed from old to
// updated because of tx.
func (a auditTrail) record(ctx context.Context, action string, old, updated models.AccountBalanceSnapshot, tx models.Transaction) {
	oldValue, err := json.Marshal(old)
	if err != nil {
		a.logger.Error("failed to encode audit snapshot", zap.String("account_id", old.ID), zap.Error(err))
		return
	}
	newValue, err := json.Marshal(updated)
	if err != nil {
		a.logger.Error("failed to encode audit snapshot", zap.String("account_id", updated.ID), zap.Error(err))
		return
	}

	a.enqueue(ctx, audit.Entry{
		Log: &models.AuditLog{
			EntityType: models.EntityTypeAccount,
			EntityID:   updated.ID,
			Action:     action,
			OldValue:   oldValue,
			NewValue:   newValue,
		},
		Journal: &models.JournalEntry{
			AccountID:   updated.ID,
			Transaction: tx,
		},
	})
}

// recordReset queues a ledger-level entry holding the restored balances.
func (a auditTrail) recordReset(ctx context.Context, accounts []models.Account) {
	snapshots := make([]models.AccountBalanceSnapshot, 0, len(accounts))
	for i := range accounts {
		snapshots = append(snapshots, accounts[i].Snapshot())
	}
	newValue, err := json.Marshal(snapshots)
	if err != nil {
		a.logger.Error("failed to encode reset snapshot", zap.Error(err))
		return
	}

	a.enqueue(ctx, audit.Entry{Log: &models.AuditLog{
		EntityType: models.EntityTypeLedger,
		EntityID:   ledgerEntityID,
		Action:     models.AuditActionReset,
		NewValue:   newValue,
	}})
}

func (a auditTrail) enqueue(ctx context.Context, entry audit.Entry) {
	if err := a.queue.Enqueue(ctx, entry); err != nil {
		fields := []zap.Field{zap.Error(err)}
		if entry.Log != nil {
			fields = append(fields, zap.String("entity_id", entry.Log.EntityID), zap.String("action", entry.Log.Action))
		}
		a.logger.Warn("audit entry not queued", fields...)
	}
}
