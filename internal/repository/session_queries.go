package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	repoerrors "codetime/internal/infrastructure/errors"
	"codetime/internal/infrastructure/logging"
	"codetime/internal/types"
)

// maxSQLVars bounds bind variables per IN clause to stay within
// SQLite's default SQLITE_MAX_VARIABLE_NUMBER (999).
const maxSQLVars = 500

const sessionColumns = `id, session_uuid, user_id, project_name, language, platform,
	ide_name, start_time, end_time, last_modified, is_deleted, is_synced,
	synced_at, sync_version`

// GetSessionsInRange fetches the candidate sessions overlapping the
// closed-open interval [start, end): end_time > start AND
// start_time < end. Callers clip to the interval themselves.
func (r *SQLiteRepository) GetSessionsInRange(ctx context.Context, start, end time.Time, projectFilter string) ([]types.CodingSession, error) {
	opStart := time.Now()

	if !end.After(start) {
		return nil, repoerrors.HandleValidationError("GetSessionsInRange", "range",
			start.Format(timeLayout)+".."+end.Format(timeLayout), "end must be after start")
	}

	query := `SELECT ` + sessionColumns + `
		FROM coding_sessions
		WHERE is_deleted = 0 AND end_time > ? AND start_time < ?`
	args := []interface{}{formatTime(start), formatTime(end)}

	if projectFilter != "" {
		query += ` AND project_name = ?`
		args = append(args, projectFilter)
	}
	query += ` ORDER BY start_time`

	var sessions []types.CodingSession

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.q.QueryContext(ctx, query, args...)
		if err != nil {
			return repoerrors.NewRepositoryErrorWithContext("GetSessionsInRange", err, r.classifyError(err), map[string]string{
				"start": formatTime(start),
				"end":   formatTime(end),
			})
		}
		defer rows.Close()

		sessions = sessions[:0]
		for rows.Next() {
			var row sessionRow
			if err := rows.Scan(&row.id, &row.sessionUUID, &row.userID, &row.projectName,
				&row.language, &row.platform, &row.ideName, &row.startTime, &row.endTime,
				&row.lastModified, &row.isDeleted, &row.isSynced, &row.syncedAt, &row.syncVersion); err != nil {
				return repoerrors.NewRepositoryError("GetSessionsInRange.Scan", err, r.classifyError(err))
			}
			session, err := row.toSession()
			if err != nil {
				return repoerrors.NewRepositoryErrorWithContext("GetSessionsInRange.Parse", err,
					repoerrors.ErrCodeCorruption, map[string]string{"session_uuid": row.sessionUUID})
			}
			sessions = append(sessions, session)
		}
		if err := rows.Err(); err != nil {
			return repoerrors.NewRepositoryError("GetSessionsInRange.Rows", err, r.classifyError(err))
		}
		return nil
	})

	if err == nil {
		logging.LogRepositoryOperation(r.logger, "GetSessionsInRange", time.Since(opStart), map[string]interface{}{
			"count": len(sessions),
		})
	}

	return sessions, err
}

// GetSessionSpans loads only the (start, end) pairs of all non-deleted
// sessions. This is the small-dataset summary path: one cheap full
// scan instead of five range queries.
func (r *SQLiteRepository) GetSessionSpans(ctx context.Context) ([]types.SessionSpan, error) {
	var spans []types.SessionSpan

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.q.QueryContext(ctx,
			`SELECT start_time, end_time FROM coding_sessions WHERE is_deleted = 0`)
		if err != nil {
			return repoerrors.NewRepositoryError("GetSessionSpans", err, r.classifyError(err))
		}
		defer rows.Close()

		spans = spans[:0]
		for rows.Next() {
			var startStr, endStr string
			if err := rows.Scan(&startStr, &endStr); err != nil {
				return repoerrors.NewRepositoryError("GetSessionSpans.Scan", err, r.classifyError(err))
			}
			start, err := parseTime(startStr)
			if err != nil {
				return repoerrors.NewRepositoryError("GetSessionSpans.Parse", err, repoerrors.ErrCodeCorruption)
			}
			end, err := parseTime(endStr)
			if err != nil {
				return repoerrors.NewRepositoryError("GetSessionSpans.Parse", err, repoerrors.ErrCodeCorruption)
			}
			spans = append(spans, types.SessionSpan{Start: start, End: end})
		}
		return rows.Err()
	})

	return spans, err
}

// CountSessions returns the number of non-deleted sessions.
func (r *SQLiteRepository) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		if err := r.q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM coding_sessions WHERE is_deleted = 0`).Scan(&count); err != nil {
			return repoerrors.NewRepositoryError("CountSessions", err, r.classifyError(err))
		}
		return nil
	})
	return count, err
}

// TotalDurationSeconds computes the sum of (end - start) over all
// non-deleted sessions inside the storage engine.
func (r *SQLiteRepository) TotalDurationSeconds(ctx context.Context, projectFilter string) (int64, error) {
	query := `SELECT COALESCE(CAST(ROUND(SUM(
			(julianday(end_time) - julianday(start_time)) * 86400.0
		)) AS INTEGER), 0)
		FROM coding_sessions
		WHERE is_deleted = 0`
	var args []interface{}
	if projectFilter != "" {
		query += ` AND project_name = ?`
		args = append(args, projectFilter)
	}

	var total int64
	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		if err := r.q.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
			return repoerrors.NewRepositoryError("TotalDurationSeconds", err, r.classifyError(err))
		}
		return nil
	})
	return total, err
}

// SumOverlapSeconds computes the overlap-clipped duration sum against
// [start, end) entirely inside SQLite. The MIN/MAX scalar functions
// compare the stored UTC strings lexicographically, which matches
// chronological order.
func (r *SQLiteRepository) SumOverlapSeconds(ctx context.Context, start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, repoerrors.HandleValidationError("SumOverlapSeconds", "range",
			start.Format(timeLayout)+".."+end.Format(timeLayout), "end must be after start")
	}

	startStr := formatTime(start)
	endStr := formatTime(end)

	var total int64
	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		if err := r.q.QueryRowContext(ctx,
			`SELECT COALESCE(CAST(ROUND(SUM(
				(julianday(MIN(end_time, ?)) - julianday(MAX(start_time, ?))) * 86400.0
			)) AS INTEGER), 0)
			FROM coding_sessions
			WHERE is_deleted = 0 AND end_time > ? AND start_time < ?`,
			endStr, startStr, startStr, endStr).Scan(&total); err != nil {
			return repoerrors.NewRepositoryError("SumOverlapSeconds", err, r.classifyError(err))
		}
		return nil
	})
	return total, err
}

// GetTimeBounds returns the earliest start and latest end across all
// non-deleted sessions. NotFound when the table is empty.
func (r *SQLiteRepository) GetTimeBounds(ctx context.Context) (time.Time, time.Time, error) {
	var minStr, maxStr sql.NullString

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		if err := r.q.QueryRowContext(ctx,
			`SELECT MIN(start_time), MAX(end_time) FROM coding_sessions WHERE is_deleted = 0`).
			Scan(&minStr, &maxStr); err != nil {
			return repoerrors.NewRepositoryError("GetTimeBounds", err, r.classifyError(err))
		}
		return nil
	})
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if !minStr.Valid || !maxStr.Valid {
		return time.Time{}, time.Time{}, repoerrors.HandleNotFound("GetTimeBounds", "coding_sessions", "any")
	}

	minTime, err := parseTime(minStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, repoerrors.NewRepositoryError("GetTimeBounds.Parse", err, repoerrors.ErrCodeCorruption)
	}
	maxTime, err := parseTime(maxStr.String)
	if err != nil {
		return time.Time{}, time.Time{}, repoerrors.NewRepositoryError("GetTimeBounds.Parse", err, repoerrors.ErrCodeCorruption)
	}

	return minTime, maxTime, nil
}

// FindExistingUUIDs reports which of the given UUIDs are already
// persisted, chunking the IN clause to respect bind-variable limits.
func (r *SQLiteRepository) FindExistingUUIDs(ctx context.Context, uuids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(uuids))
	if len(uuids) == 0 {
		return existing, nil
	}

	for i := 0; i < len(uuids); i += maxSQLVars {
		chunk := uuids[i:min(i+maxSQLVars, len(uuids))]

		placeholders := make([]string, len(chunk))
		args := make([]interface{}, len(chunk))
		for j, id := range chunk {
			placeholders[j] = "?"
			args[j] = id
		}

		err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
			rows, err := r.q.QueryContext(ctx,
				`SELECT session_uuid FROM coding_sessions WHERE session_uuid IN (`+
					strings.Join(placeholders, ",")+`)`, args...)
			if err != nil {
				return repoerrors.NewRepositoryError("FindExistingUUIDs", err, r.classifyError(err))
			}
			defer rows.Close()

			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					return repoerrors.NewRepositoryError("FindExistingUUIDs.Scan", err, r.classifyError(err))
				}
				existing[id] = struct{}{}
			}
			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
	}

	return existing, nil
}

// DeleteOldSessions hard-deletes sessions ending before olderThan and
// returns the number of rows removed.
func (r *SQLiteRepository) DeleteOldSessions(ctx context.Context, olderThan time.Time) (int64, error) {
	var deleted int64

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		result, err := r.q.ExecContext(ctx,
			`DELETE FROM coding_sessions WHERE end_time < ?`, formatTime(olderThan))
		if err != nil {
			return repoerrors.NewRepositoryErrorWithContext("DeleteOldSessions", err, r.classifyError(err), map[string]string{
				"older_than": formatTime(olderThan),
			})
		}
		deleted, err = result.RowsAffected()
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return repoerrors.NewRepositoryError("DeleteOldSessions.RowsAffected", err, r.classifyError(err))
		}
		return nil
	})

	if err == nil && deleted > 0 {
		r.logger.Info("Deleted old sessions", "count", deleted, "older_than", formatTime(olderThan))
	}

	return deleted, err
}
