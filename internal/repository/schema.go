package repository

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		action      TEXT NOT NULL,
		old_value   JSONB,
		new_value   JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_entity_idx ON audit_logs (entity_type, entity_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ledger_transactions (
		id                TEXT PRIMARY KEY,
		account_id        TEXT NOT NULL,
		seq               BIGINT NOT NULL,
		kind              TEXT NOT NULL,
		from_denomination TEXT NOT NULL,
		to_denomination   TEXT NOT NULL,
		amount            NUMERIC(28, 8) NOT NULL,
		counter_amount    NUMERIC(28, 8) NOT NULL,
		rate              NUMERIC(28, 8),
		counterparty_id   TEXT NOT NULL DEFAULT '',
		description       TEXT NOT NULL,
		occurred_at       TIMESTAMPTZ NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS ledger_transactions_account_idx ON ledger_transactions (account_id, seq DESC)`,
}

// EnsureSchema creates the audit and journal tables when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
