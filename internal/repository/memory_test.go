package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/ledger-assistant/internal/models"
)

func TestMemoryAuditRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAuditRepository()

	first := &models.AuditLog{
		EntityType: models.EntityTypeAccount,
		EntityID:   "user1",
		Action:     models.AuditActionDebit,
		OldValue:   json.RawMessage(`{"home_balance":"5000"}`),
		NewValue:   json.RawMessage(`{"home_balance":"4000"}`),
	}
	second := &models.AuditLog{
		EntityType: models.EntityTypeAccount,
		EntityID:   "user1",
		Action:     models.AuditActionCredit,
		NewValue:   json.RawMessage(`{"home_balance":"4500"}`),
	}
	other := &models.AuditLog{
		EntityType: models.EntityTypeAccount,
		EntityID:   "user2",
		Action:     models.AuditActionCredit,
		NewValue:   json.RawMessage(`{}`),
	}
	for _, log := range []*models.AuditLog{first, second, other} {
		if err := repo.Create(ctx, log); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if log.ID == "" || log.CreatedAt.IsZero() {
			t.Fatalf("Create did not fill id and time: %+v", log)
		}
	}

	// Later edits by the caller must not reach the stored copy.
	first.NewValue[2] = 'X'

	logs, err := repo.GetByEntityID(ctx, models.EntityTypeAccount, "user1")
	if err != nil {
		t.Fatalf("GetByEntityID: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	if logs[0].Action != models.AuditActionCredit || logs[1].Action != models.AuditActionDebit {
		t.Fatalf("logs not newest first: %s, %s", logs[0].Action, logs[1].Action)
	}
	if string(logs[1].NewValue) != `{"home_balance":"4000"}` {
		t.Fatalf("stored value was aliased: %s", logs[1].NewValue)
	}
	if repo.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", repo.Len())
	}
}

func TestMemoryAuditRepositoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemoryAuditRepository()
	if err := repo.Create(ctx, &models.AuditLog{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if repo.Len() != 0 {
		t.Fatal("cancelled write was stored")
	}
}

func journalEntry(accountID, id string, seq uint64) *models.JournalEntry {
	rate := decimal.RequireFromString("32.5")
	return &models.JournalEntry{
		AccountID: accountID,
		Transaction: models.Transaction{
			ID:               id,
			Seq:              seq,
			Kind:             models.BuyKind(models.USD),
			FromDenomination: models.TRY,
			ToDenomination:   models.USD,
			Amount:           decimal.RequireFromString("325"),
			CounterAmount:    decimal.RequireFromString("10"),
			Rate:             decimal.NewNullDecimal(rate),
			Timestamp:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Description:      "Bought 10.0000 USD",
		},
	}
}

func TestMemoryTransactionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransactionRepository()

	for _, e := range []*models.JournalEntry{
		journalEntry("user1", "a", 1),
		journalEntry("user1", "c", 3),
		journalEntry("user2", "b", 2),
		journalEntry("user1", "a", 1),
	} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create(%s): %v", e.ID, err)
		}
	}

	got, err := repo.GetByID(ctx, "c")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AccountID != "user1" || !got.Rate.Decimal.Equal(decimal.RequireFromString("32.5")) {
		t.Fatalf("unexpected entry %+v", got)
	}

	if _, err := repo.GetByID(ctx, "zzz"); !errors.Is(err, ErrJournalEntryNotFound) {
		t.Fatalf("err = %v, want ErrJournalEntryNotFound", err)
	}

	entries, err := repo.GetByAccountID(ctx, "user1", 0)
	if err != nil {
		t.Fatalf("GetByAccountID: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "c" || entries[1].ID != "a" {
		t.Fatalf("duplicate not ignored or wrong order: %+v", entries)
	}

	limited, _ := repo.GetByAccountID(ctx, "user1", 1)
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Fatalf("limited = %+v", limited)
	}
}
