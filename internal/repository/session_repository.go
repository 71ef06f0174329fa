package repository

import (
	"context"
	"database/sql"

	"codetime/internal/database"
	repoerrors "codetime/internal/infrastructure/errors"
	"codetime/internal/infrastructure/logging"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query method
// works unchanged inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// BatchConfig holds configuration for batch operations
type BatchConfig struct {
	DefaultBatchSize int
	MaxBatchSize     int
}

// DefaultBatchConfig returns sensible defaults for batch operations
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		DefaultBatchSize: 100,
		MaxBatchSize:     1000,
	}
}

// SQLiteRepository implements SessionRepository against SQLite.
type SQLiteRepository struct {
	db          *sql.DB
	q           dbtx // *sql.DB normally, *sql.Tx inside WithTransaction
	dbService   database.Service
	retryConfig *repoerrors.RetryConfig
	batchConfig *BatchConfig
	logger      logging.Logger
}

// NewSQLiteRepository creates a new SQLite repository instance
func NewSQLiteRepository(dbService database.Service, logger logging.Logger) *SQLiteRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &SQLiteRepository{
		db:          dbService.DB(),
		q:           dbService.DB(),
		dbService:   dbService,
		retryConfig: repoerrors.DefaultRetryConfig(),
		batchConfig: DefaultBatchConfig(),
		logger:      logger,
	}
}

// NewSQLiteRepositoryWithConfig creates a repository with custom retry
// and batch configuration.
func NewSQLiteRepositoryWithConfig(dbService database.Service, retryConfig *repoerrors.RetryConfig, batchConfig *BatchConfig, logger logging.Logger) *SQLiteRepository {
	if retryConfig == nil {
		retryConfig = repoerrors.DefaultRetryConfig()
	}
	if batchConfig == nil {
		batchConfig = DefaultBatchConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &SQLiteRepository{
		db:          dbService.DB(),
		q:           dbService.DB(),
		dbService:   dbService,
		retryConfig: retryConfig,
		batchConfig: batchConfig,
		logger:      logger,
	}
}
