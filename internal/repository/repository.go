package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/fx-backtest/internal/config"
	"github.com/yourusername/fx-backtest/internal/database"
	"github.com/yourusername/fx-backtest/internal/models"
)

// Repositories holds all repository implementations
type Repositories struct {
	Jobs    JobRepository
	Candles CandleRepository

	closers []func()
}

// NewRepositories builds the job store selected by cfg.Store.Driver.
// db may be nil unless the store driver or the price source is postgres.
func NewRepositories(ctx context.Context, cfg *config.Config, db *database.DB) (*Repositories, error) {
	repos := &Repositories{}

	switch cfg.Store.Driver {
	case "memory":
		repos.Jobs = NewMemoryJobRepository()
	case "sqlite":
		sqlDB, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		repos.Jobs = NewSQLiteJobRepository(sqlDB)
		repos.closers = append(repos.closers, func() { _ = sqlDB.Close() })
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("database connection is required for the postgres store")
		}
		repos.Jobs = NewPostgresJobRepository(db)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	if db != nil {
		repos.Candles = NewPostgresCandleRepository(db)
	}

	return repos, nil
}

// Close releases resources owned by the repositories
func (r *Repositories) Close() {
	for _, closeFn := range r.closers {
		closeFn()
	}
}

// checkTransition reports ErrInvalidTransition when current may not move to next
func checkTransition(id string, current, next models.JobStatus) error {
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("job %s: %w: %s -> %s", id, models.ErrInvalidTransition, current, next)
	}
	return nil
}

// resolveMissedUpdate explains why a guarded UPDATE touched no rows
func resolveMissedUpdate(ctx context.Context, repo JobRepository, id string, next models.JobStatus) error {
	job, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkTransition(id, job.Status, next); err != nil {
		return err
	}
	return fmt.Errorf("job %s: concurrent status update", id)
}
