package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repoerrors "codetime/internal/infrastructure/errors"
	"codetime/internal/infrastructure/logging"
)

// WithTransaction executes fn within a database transaction with retry
// on transient begin/commit failures. The repository passed to fn runs
// every query on the transaction.
func (r *SQLiteRepository) WithTransaction(ctx context.Context, fn func(repo SessionRepository) error) error {
	start := time.Now()

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			repoErr := repoerrors.NewRepositoryError("WithTransaction.Begin", err, r.classifyError(err))
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error beginning transaction", "error", err)
			} else {
				logging.LogRepositoryError(r.logger, repoErr, "WithTransaction.Begin", nil)
			}
			return repoErr
		}

		var originalErr error
		var committed bool
		defer func() {
			if !committed && tx != nil {
				if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
					r.logger.Debug("Failed to rollback transaction",
						"rollback_error", rollbackErr,
						"original_error", originalErr)
				}
			}
		}()

		txRepo := &SQLiteRepository{
			db:          r.db,
			q:           tx,
			dbService:   r.dbService,
			retryConfig: r.retryConfig,
			batchConfig: r.batchConfig,
			logger:      r.logger,
		}

		if err := fn(txRepo); err != nil {
			// fn returns proper repository errors; don't re-wrap
			originalErr = err
			r.logger.Debug("Transaction function failed", "error", err)
			return err
		}

		if err := tx.Commit(); err != nil {
			originalErr = err
			repoErr := repoerrors.NewRepositoryError("WithTransaction.Commit", err, r.classifyError(err))
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error committing transaction", "error", err)
			} else {
				logging.LogRepositoryError(r.logger, repoErr, "WithTransaction.Commit", nil)
			}
			return repoErr
		}
		committed = true

		return nil
	})

	if err == nil {
		logging.LogRepositoryOperation(r.logger, "WithTransaction", time.Since(start), nil)
	}

	return err
}
