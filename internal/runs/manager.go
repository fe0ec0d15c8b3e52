package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/grocerytrack/grocery-price-tracker/internal/database"
	"github.com/grocerytrack/grocery-price-tracker/internal/models"
	"github.com/grocerytrack/grocery-price-tracker/internal/updater"
)

// ErrPassInProgress is returned when a pass is requested while another one
// is still running. The coordinator is not safe for concurrent passes
// against the same store, so the manager serializes them.
var ErrPassInProgress = errors.New("a price update pass is already running")

// Store persists runs and their outcomes.
type Store interface {
	CreateRun(ctx context.Context) (*database.Run, error)
	CompleteRun(ctx context.Context, runID string, report *updater.RunReport) error
	FailRun(ctx context.Context, runID string, runErr error) error
}

// Catalog supplies the entries for a pass.
type Catalog interface {
	ListEntries(ctx context.Context) ([]models.CatalogEntry, error)
}

// Manager runs price-update passes and records them.
type Manager struct {
	store   Store
	catalog Catalog
	coord   *updater.Coordinator
	logger  *slog.Logger
	running atomic.Bool
}

func NewManager(store Store, catalog Catalog, coord *updater.Coordinator, logger *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		catalog: catalog,
		coord:   coord,
		logger:  logger.With("component", "run_manager"),
	}
}

// StartPass kicks off a pass in the background and returns its run record
// immediately. ctx should outlive the HTTP request that triggered the pass.
func (m *Manager) StartPass(ctx context.Context) (*database.Run, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrPassInProgress
	}

	run, err := m.store.CreateRun(ctx)
	if err != nil {
		m.running.Store(false)
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	go func() {
		defer m.running.Store(false)
		m.execute(ctx, run)
	}()

	m.logger.Info("pass started", "run_id", run.ID)
	return run, nil
}

// RunOnce executes a pass synchronously and returns the run record and the
// report. Used by the CLI.
func (m *Manager) RunOnce(ctx context.Context) (*database.Run, *updater.RunReport, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, nil, ErrPassInProgress
	}
	defer m.running.Store(false)

	run, err := m.store.CreateRun(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}

	report, err := m.execute(ctx, run)
	if err != nil {
		return run, nil, err
	}

	return run, report, nil
}

func (m *Manager) execute(ctx context.Context, run *database.Run) (*updater.RunReport, error) {
	entries, err := m.catalog.ListEntries(ctx)
	if err != nil {
		// Failure to obtain the catalog is fatal to the whole pass.
		m.logger.Error("failed to read catalog", "run_id", run.ID, "error", err)
		if failErr := m.store.FailRun(ctx, run.ID, err); failErr != nil {
			m.logger.Error("failed to mark run failed", "run_id", run.ID, "error", failErr)
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	report := m.coord.Run(ctx, entries)

	if err := m.store.CompleteRun(ctx, run.ID, report); err != nil {
		m.logger.Error("failed to store run report", "run_id", run.ID, "error", err)
		return report, err
	}

	m.logger.Info("run recorded",
		"run_id", run.ID,
		"processed", report.Processed,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed)

	return report, nil
}
