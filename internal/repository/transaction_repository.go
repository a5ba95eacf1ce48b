package repository

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/lib/pq"

	"github.com/riteshkumar/ledger-assistant/internal/models"
)

// TransactionRepository journals ledger records outside the process. The
// in-memory ledger stays authoritative; the journal is a downstream copy.
type TransactionRepository interface {
	// Create is idempotent on the record id.
	Create(ctx context.Context, entry *models.JournalEntry) error
	GetByID(ctx context.Context, id string) (*models.JournalEntry, error)
	GetByAccountID(ctx context.Context, accountID string, limit int) ([]*models.JournalEntry, error)
}

// ErrJournalEntryNotFound is returned by GetByID for unknown ids.
var ErrJournalEntryNotFound = errors.New("journal entry not found")

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, entry *models.JournalEntry) error {
	query := `INSERT INTO ledger_transactions (id, account_id, seq, kind, from_denomination, to_denomination,
			amount, counter_amount, rate, counterparty_id, description, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.AccountID,
		int64(entry.Seq),
		string(entry.Kind),
		string(entry.FromDenomination),
		string(entry.ToDenomination),
		entry.Amount,
		entry.CounterAmount,
		entry.Rate,
		entry.CounterpartyID,
		entry.Description,
		entry.Timestamp,
	)
	if err != nil {
		// A retried write of the same record is already journaled.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("failed to create journal entry: %w", err)
	}
	return nil
}

const journalColumns = `id, account_id, seq, kind, from_denomination, to_denomination,
	amount, counter_amount, rate, counterparty_id, description, occurred_at`

func scanJournalEntry(row interface{ Scan(...any) error }) (*models.JournalEntry, error) {
	entry := &models.JournalEntry{}
	var (
		seq            int64
		kind, from, to string
	)
	err := row.Scan(&entry.ID, &entry.AccountID, &seq, &kind, &from, &to,
		&entry.Amount, &entry.CounterAmount, &entry.Rate, &entry.CounterpartyID, &entry.Description, &entry.Timestamp)
	if err != nil {
		return nil, err
	}
	entry.Seq = uint64(seq)
	entry.Kind = models.TransactionKind(kind)
	entry.FromDenomination = models.Denomination(from)
	entry.ToDenomination = models.Denomination(to)
	return entry, nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (*models.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM ledger_transactions WHERE id = $1`

	entry, err := scanJournalEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrJournalEntryNotFound
		}
		return nil, fmt.Errorf("failed to get journal entry by ID: %w", err)
	}
	return entry, nil
}

// GetByAccountID returns the account's journaled records newest first.
// A limit <= 0 returns all of them.
func (r *PostgresTransactionRepository) GetByAccountID(ctx context.Context, accountID string, limit int) ([]*models.JournalEntry, error) {
	query := `SELECT ` + journalColumns + `
		FROM ledger_transactions
		WHERE account_id = $1
		ORDER BY seq DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries by account ID: %w", err)
	}
	defer rows.Close()

	var entries []*models.JournalEntry
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over journal entries: %w", err)
	}
	return entries, nil
}

type MemoryTransactionRepository struct {
	mu      sync.RWMutex
	entries []models.JournalEntry
	byID    map[string]int
}

func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{byID: make(map[string]int)}
}

func (r *MemoryTransactionRepository) Create(ctx context.Context, entry *models.JournalEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[entry.ID]; exists {
		return nil
	}
	r.byID[entry.ID] = len(r.entries)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryTransactionRepository) GetByID(ctx context.Context, id string) (*models.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, ErrJournalEntryNotFound
	}
	entry := r.entries[i]
	return &entry, nil
}

// GetByAccountID returns newest first by Seq, matching the Postgres ordering.
func (r *MemoryTransactionRepository) GetByAccountID(ctx context.Context, accountID string, limit int) ([]*models.JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []*models.JournalEntry
	for i := range r.entries {
		if r.entries[i].AccountID == accountID {
			entry := r.entries[i]
			entries = append(entries, &entry)
		}
	}
	slices.SortFunc(entries, func(a, b *models.JournalEntry) int {
		return cmp.Compare(b.Seq, a.Seq)
	})
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}
