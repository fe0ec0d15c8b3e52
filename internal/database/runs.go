package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/grocerytrack/grocery-price-tracker/internal/updater"
)

var ErrRunNotFound = errors.New("run not found")

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one persisted price-update pass.
type Run struct {
	ID          string     `json:"id"`
	Status      RunStatus  `json:"status"`
	Processed   int        `json:"processed"`
	Updated     int        `json:"updated"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RunOutcome is one persisted per-entry outcome of a run.
type RunOutcome struct {
	ProductName string  `json:"product_name"`
	Status      string  `json:"status"`
	Reason      string  `json:"reason,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// CreateRun inserts a new run in the running state and returns it.
func (db *DB) CreateRun(ctx context.Context) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}

	query := `
		INSERT INTO price_runs (id, status, started_at)
		VALUES ($1, $2, $3)`

	if _, err := db.pool.Exec(ctx, query, run.ID, run.Status, run.StartedAt); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// CompleteRun stores the report totals and per-entry outcomes for a finished
// run in one transaction.
func (db *DB) CompleteRun(ctx context.Context, runID string, report *updater.RunReport) error {
	return db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE price_runs SET
				status = $2,
				processed = $3,
				updated = $4,
				skipped = $5,
				failed = $6,
				completed_at = CURRENT_TIMESTAMP
			WHERE id = $1`,
			runID, RunStatusCompleted, report.Processed, report.Updated, report.Skipped, report.Failed)
		if err != nil {
			return fmt.Errorf("failed to complete run: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("complete run %q: %w", runID, ErrRunNotFound)
		}

		for i, outcome := range report.Outcomes {
			errMsg := ""
			if outcome.Err != nil {
				errMsg = outcome.Err.Error()
			}

			var price sql.NullFloat64
			if outcome.Status == updater.StatusUpdated {
				price = sql.NullFloat64{Float64: outcome.Price, Valid: true}
			}

			if _, err := tx.Exec(ctx, `
				INSERT INTO price_run_outcomes (run_id, position, product_name, status, reason, price, error)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				runID, i, outcome.ProductName, string(outcome.Status), string(outcome.Reason), price, errMsg); err != nil {
				return fmt.Errorf("failed to insert run outcome: %w", err)
			}
		}

		return nil
	})
}

// FailRun marks a run as failed with the error that aborted it (e.g. the
// catalog itself could not be read).
func (db *DB) FailRun(ctx context.Context, runID string, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}

	query := `
		UPDATE price_runs SET
			status = $2,
			error = $3,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	tag, err := db.pool.Exec(ctx, query, runID, RunStatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail run %q: %w", runID, ErrRunNotFound)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `
		SELECT id, status, processed, updated, skipped, failed, error, started_at, completed_at
		FROM price_runs
		WHERE id = $1`

	run := &Run{}
	err := db.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID, &run.Status, &run.Processed, &run.Updated, &run.Skipped,
		&run.Failed, &run.Error, &run.StartedAt, &run.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, status, processed, updated, skipped, failed, error, started_at, completed_at
		FROM price_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.Status, &run.Processed, &run.Updated,
			&run.Skipped, &run.Failed, &run.Error, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run rows: %w", err)
	}

	return runs, nil
}

// GetRunOutcomes returns the per-entry outcomes of a run in pass order.
func (db *DB) GetRunOutcomes(ctx context.Context, runID string) ([]RunOutcome, error) {
	query := `
		SELECT product_name, status, reason, price, error
		FROM price_run_outcomes
		WHERE run_id = $1
		ORDER BY position ASC`

	rows, err := db.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []RunOutcome
	for rows.Next() {
		var (
			o     RunOutcome
			price sql.NullFloat64
		)
		if err := rows.Scan(&o.ProductName, &o.Status, &o.Reason, &price, &o.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run outcome row: %w", err)
		}
		if price.Valid {
			o.Price = price.Float64
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run outcome rows: %w", err)
	}

	return outcomes, nil
}
