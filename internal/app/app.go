package app

import (
	"context"
	"fmt"
	"time"

	"codetime/internal/database"
	"codetime/internal/infrastructure/errors"
	"codetime/internal/infrastructure/logging"
	"codetime/internal/repository"
	"codetime/internal/services"
)

const (
	// healthCheckTimeout bounds the startup database probe
	healthCheckTimeout = 5 * time.Second

	// writerQueueDepth is how many pending flush batches the session
	// writer buffers before submitters block
	writerQueueDepth = 32
)

// App wires the tracker, the aggregation services and the persistence
// stack together and owns their lifecycle.
type App struct {
	config    *database.Config
	dbService database.Service
	repo      repository.SessionRepository
	writer    *repository.SessionWriter
	tracker   *services.SessionTracker
	stats     *services.StatsService
	exporter  *services.ExportService
	logger    logging.Logger
}

// Options selects how the application is assembled.
type Options struct {
	// ConfigFile is an optional YAML config path; environment
	// variables still override its values.
	ConfigFile string

	// Environment picks the base configuration profile when no config
	// file is given (development, production, test).
	Environment string

	// Tracker overrides the default tracker settings when non-nil.
	Tracker *services.TrackerConfig
}

// New builds the full application from configuration. The database is
// connected and migrated before this returns, so a non-nil App is
// ready to start.
func New(opts Options) (*App, error) {
	logger := logging.NewDefaultLogger()

	config := database.ConfigForEnvironment(opts.Environment)
	if opts.ConfigFile != "" {
		if err := config.LoadFromFile(opts.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	config.LoadFromEnvironment()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbService := database.NewSQLiteService(logger)
	if err := dbService.Connect(context.Background(), config); err != nil {
		return nil, err
	}
	if err := dbService.Migrate(context.Background()); err != nil {
		dbService.Close()
		return nil, err
	}

	repo := repository.NewSQLiteRepository(dbService, logger)
	writer := repository.NewSessionWriter(repo, writerQueueDepth, logger)

	trackerConfig := services.DefaultTrackerConfig()
	if opts.Tracker != nil {
		trackerConfig = *opts.Tracker
	}
	tracker := services.NewSessionTracker(trackerConfig, writer, nil, nil, logger)
	stats := services.NewStatsService(repo, config.SummaryPushdownThreshold, logger)
	exporter := services.NewExportService(repo, logger)

	return &App{
		config:    config,
		dbService: dbService,
		repo:      repo,
		writer:    writer,
		tracker:   tracker,
		stats:     stats,
		exporter:  exporter,
		logger:    logger,
	}, nil
}

// Tracker exposes the session tracker for event sources.
func (a *App) Tracker() *services.SessionTracker { return a.tracker }

// Stats exposes the aggregation service.
func (a *App) Stats() *services.StatsService { return a.stats }

// Exporter exposes the export/import service.
func (a *App) Exporter() *services.ExportService { return a.exporter }

// Repository exposes the raw session repository.
func (a *App) Repository() repository.SessionRepository { return a.repo }

// Logger exposes the shared application logger.
func (a *App) Logger() logging.Logger { return a.logger }

// Startup verifies database health, runs retention cleanup when
// enabled and starts the tracker's background loops.
func (a *App) Startup(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	err := a.dbService.Health(healthCtx)
	cancel()
	if err != nil {
		return errors.NewRepositoryErrorWithContext("startup", err,
			errors.ClassifyError(err), map[string]string{"operation": "health_check"})
	}

	a.cleanupOldSessions(ctx)
	a.tracker.Start()

	a.logger.Info("Application started",
		"environment", a.config.Environment,
		"database", a.config.Path)
	return nil
}

// Shutdown flushes all live sessions, drains the writer within its
// bounded timeout and closes the database. Errors during the drain are
// logged but do not block the close.
func (a *App) Shutdown() error {
	if err := a.tracker.Stop(); err != nil {
		a.logger.Error("Tracker shutdown incomplete", "error", err)
	}

	if err := a.dbService.Close(); err != nil {
		a.logger.Error("Failed to close database", "error", err)
		return err
	}

	a.logger.Info("Application stopped")
	return nil
}

// cleanupOldSessions enforces the retention policy; failures are
// logged and otherwise ignored so startup never depends on cleanup.
func (a *App) cleanupOldSessions(ctx context.Context) {
	if !a.config.EnableCleanup || a.config.RetentionDays <= 0 {
		return
	}

	olderThan := time.Now().AddDate(0, 0, -a.config.RetentionDays)
	removed, err := a.repo.DeleteOldSessions(ctx, olderThan)
	if err != nil {
		a.logger.Error("Retention cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		a.logger.Info("Retention cleanup removed old sessions",
			"removed", removed, "retention_days", a.config.RetentionDays)
	}
}
