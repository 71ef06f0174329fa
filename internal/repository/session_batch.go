package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	repoerrors "codetime/internal/infrastructure/errors"
	"codetime/internal/infrastructure/logging"
	"codetime/internal/types"
)

const insertSessionSQL = `INSERT INTO coding_sessions
	(session_uuid, user_id, project_name, language, platform, ide_name,
	 start_time, end_time, last_modified, is_deleted, is_synced, synced_at, sync_version)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const upsertSessionSQL = insertSessionSQL + `
	ON CONFLICT(session_uuid) DO UPDATE SET
		user_id = excluded.user_id,
		project_name = excluded.project_name,
		language = excluded.language,
		platform = excluded.platform,
		ide_name = excluded.ide_name,
		start_time = excluded.start_time,
		end_time = excluded.end_time,
		last_modified = excluded.last_modified,
		is_deleted = excluded.is_deleted,
		sync_version = coding_sessions.sync_version + 1`

func sessionArgs(s *types.CodingSession) []interface{} {
	return []interface{}{
		s.SessionUUID, s.UserID, s.ProjectName, s.Language, s.Platform, s.IDEName,
		formatTime(s.StartTime), formatTime(s.EndTime), formatTime(s.LastModified),
		boolToInt(s.IsDeleted), boolToInt(s.IsSynced), nullTimeString(s.SyncedAt), s.SyncVersion,
	}
}

// InsertSessions writes a batch of sessions inside one transaction.
// Any row failure rolls back the whole batch; nothing is ever
// partially committed.
func (r *SQLiteRepository) InsertSessions(ctx context.Context, sessions []types.CodingSession, strategy types.BatchStrategy) error {
	opStart := time.Now()

	if len(sessions) == 0 {
		return nil
	}

	for i := range sessions {
		if sessions[i].EndTime.Before(sessions[i].StartTime) {
			return repoerrors.HandleValidationError("InsertSessions", "end_time",
				formatTime(sessions[i].EndTime), "end time precedes start time")
		}
	}

	var query string
	var strategyName string
	switch strategy {
	case types.BatchStrategyInsertOnly:
		query = insertSessionSQL
		strategyName = "insert"
	case types.BatchStrategyUpsert:
		query = upsertSessionSQL
		strategyName = "upsert"
	default:
		return repoerrors.NewRepositoryErrorWithContext("InsertSessions",
			fmt.Errorf("unsupported batch strategy: %d", strategy),
			repoerrors.ErrCodeValidation, map[string]string{
				"strategy": fmt.Sprintf("%d", strategy),
			})
	}

	err := r.WithTransaction(ctx, func(repo SessionRepository) error {
		txRepo := repo.(*SQLiteRepository)

		for i := range sessions {
			if _, err := txRepo.q.ExecContext(ctx, query, sessionArgs(&sessions[i])...); err != nil {
				repoErr := repoerrors.NewRepositoryErrorWithContext("InsertSessions", err, r.classifyError(err), map[string]string{
					"session_uuid": sessions[i].SessionUUID,
					"batch_index":  fmt.Sprintf("%d", i),
					"batch_size":   fmt.Sprintf("%d", len(sessions)),
					"strategy":     strategyName,
				})

				logging.LogRepositoryError(r.logger, repoErr, "InsertSessions", map[string]interface{}{
					"session_uuid": sessions[i].SessionUUID,
					"batch_index":  i,
					"batch_size":   len(sessions),
					"strategy":     strategyName,
				})

				return repoErr
			}
		}
		return nil
	})

	if err == nil {
		logging.LogRepositoryOperation(r.logger, "InsertSessions", time.Since(opStart), map[string]interface{}{
			"batch_size": len(sessions),
			"strategy":   strategyName,
		})
	}

	return err
}

// UpsertSession saves or updates a single session by its UUID.
func (r *SQLiteRepository) UpsertSession(ctx context.Context, session *types.CodingSession) error {
	if session == nil {
		return repoerrors.NewRepositoryError("UpsertSession", errors.New("session is nil"), repoerrors.ErrCodeValidation)
	}
	if session.EndTime.Before(session.StartTime) {
		return repoerrors.HandleValidationError("UpsertSession", "end_time",
			formatTime(session.EndTime), "end time precedes start time")
	}

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		if _, err := r.q.ExecContext(ctx, upsertSessionSQL, sessionArgs(session)...); err != nil {
			repoErr := repoerrors.NewRepositoryErrorWithContext("UpsertSession", err, r.classifyError(err), map[string]string{
				"session_uuid": session.SessionUUID,
			})
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in UpsertSession", "error", err, "session_uuid", session.SessionUUID)
			} else {
				logging.LogRepositoryError(r.logger, repoErr, "UpsertSession", map[string]interface{}{
					"session_uuid": session.SessionUUID,
				})
			}
			return repoErr
		}
		return nil
	})

	return err
}
