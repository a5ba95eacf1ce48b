package audit

import (
	"context"
	"fmt"

	"github.com/riteshkumar/ledger-assistant/internal/models"
	"github.com/riteshkumar/ledger-assistant/internal/repository"
)

// Entry is one unit of audit work. Either field may be nil.
type Entry struct {
	Log     *models.AuditLog
	Journal *models.JournalEntry
}

// Sink persists audit entries.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// RepositorySink writes journal entries and audit logs to their repositories.
type RepositorySink struct {
	audits  repository.AuditRepository
	journal repository.TransactionRepository
}

func NewRepositorySink(audits repository.AuditRepository, journal repository.TransactionRepository) *RepositorySink {
	return &RepositorySink{audits: audits, journal: journal}
}

func (s *RepositorySink) Write(ctx context.Context, entry Entry) error {
	if entry.Journal != nil {
		if err := s.journal.Create(ctx, entry.Journal); err != nil {
			return fmt.Errorf("journal %s: %w", entry.Journal.ID, err)
		}
	}
	if entry.Log != nil {
		if err := s.audits.Create(ctx, entry.Log); err != nil {
			return fmt.Errorf("audit %s/%s: %w", entry.Log.EntityType, entry.Log.EntityID, err)
		}
	}
	return nil
}
