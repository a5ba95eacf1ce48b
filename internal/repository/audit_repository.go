package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riteshkumar/ledger-assistant/internal/models"
)

type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error)
}

type PostgresAuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

// Create inserts a new audit log entry and fills in its id and creation time.
func (r *PostgresAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	query := `INSERT INTO audit_logs (entity_type, entity_id, action, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		RETURNING id, created_at`

	var oldValue interface{}
	if log.OldValue != nil {
		oldValue = []byte(log.OldValue)
	}

	err := r.db.QueryRowContext(ctx, query,
		log.EntityType,
		log.EntityID,
		log.Action,
		oldValue,
		[]byte(log.NewValue),
	).Scan(&log.ID, &log.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// GetByEntityID retrieves audit logs for a specific entity type and ID, newest first.
func (r *PostgresAuditRepository) GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error) {
	query := `SELECT id, entity_type, entity_id, action, old_value, new_value, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs by entity ID: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var oldValue, newValue []byte

		err := rows.Scan(
			&log.ID, &log.EntityType, &log.EntityID, &log.Action, &oldValue, &newValue, &log.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if oldValue != nil {
			log.OldValue = json.RawMessage(oldValue)
		}
		log.NewValue = json.RawMessage(newValue)

		logs = append(logs, log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over audit logs: %w", err)
	}
	return logs, nil
}

// MemoryAuditRepository keeps audit logs in process memory. It backs the
// server when no database is configured, and the tests.
type MemoryAuditRepository struct {
	mu   sync.RWMutex
	logs []models.AuditLog
	now  func() time.Time
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{now: func() time.Time { return time.Now().UTC() }}
}

func (r *MemoryAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log.ID = uuid.NewString()
	log.CreatedAt = r.now()
	stored := *log
	stored.OldValue = slices.Clone(log.OldValue)
	stored.NewValue = slices.Clone(log.NewValue)
	r.logs = append(r.logs, stored)
	return nil
}

func (r *MemoryAuditRepository) GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var logs []*models.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].EntityType == entityType && r.logs[i].EntityID == entityID {
			log := r.logs[i]
			log.OldValue = slices.Clone(log.OldValue)
			log.NewValue = slices.Clone(log.NewValue)
			logs = append(logs, &log)
		}
	}
	return logs, nil
}

// Len reports how many entries have been written.
func (r *MemoryAuditRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.logs)
}
