package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products_master (
		product_name   TEXT PRIMARY KEY,
		category       TEXT NOT NULL DEFAULT '',
		search_keyword TEXT NOT NULL DEFAULT '',
		target_size    DOUBLE PRECISION NOT NULL DEFAULT 0,
		brand_type     TEXT NOT NULL DEFAULT 'Specific',
		aldi_price     DOUBLE PRECISION,
		last_updated   TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS price_history (
		id           BIGSERIAL PRIMARY KEY,
		product_name TEXT NOT NULL REFERENCES products_master(product_name),
		price        DOUBLE PRECISION NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_product
		ON price_history (product_name, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS price_runs (
		id           UUID PRIMARY KEY,
		status       TEXT NOT NULL,
		processed    INT NOT NULL DEFAULT 0,
		updated      INT NOT NULL DEFAULT 0,
		skipped      INT NOT NULL DEFAULT 0,
		failed       INT NOT NULL DEFAULT 0,
		error        TEXT NOT NULL DEFAULT '',
		started_at   TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS price_run_outcomes (
		run_id       UUID NOT NULL REFERENCES price_runs(id),
		position     INT NOT NULL,
		product_name TEXT NOT NULL,
		status       TEXT NOT NULL,
		reason       TEXT NOT NULL DEFAULT '',
		price        DOUBLE PRECISION,
		error        TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	)`,
}

// EnsureSchema creates the tracker tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
