package repository

import (
	"database/sql"
	"time"

	repoerrors "codetime/internal/infrastructure/errors"
	"codetime/internal/types"
)

// timeLayout is the persisted timestamp format. Everything is stored
// UTC so lexicographic comparison in SQL matches chronological order.
const timeLayout = time.RFC3339

// formatTime renders a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp back.
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// nullTimeString converts an optional timestamp for storage.
func nullTimeString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// sessionRow is the scan target for coding_sessions rows.
type sessionRow struct {
	id           int64
	sessionUUID  string
	userID       string
	projectName  string
	language     string
	platform     string
	ideName      string
	startTime    string
	endTime      string
	lastModified string
	isDeleted    int64
	isSynced     int64
	syncedAt     sql.NullString
	syncVersion  int64
}

// toSession converts a scanned row to the domain type.
func (row *sessionRow) toSession() (types.CodingSession, error) {
	start, err := parseTime(row.startTime)
	if err != nil {
		return types.CodingSession{}, err
	}
	end, err := parseTime(row.endTime)
	if err != nil {
		return types.CodingSession{}, err
	}
	modified, err := parseTime(row.lastModified)
	if err != nil {
		return types.CodingSession{}, err
	}

	session := types.CodingSession{
		ID:           row.id,
		SessionUUID:  row.sessionUUID,
		UserID:       row.userID,
		ProjectName:  row.projectName,
		Language:     row.language,
		Platform:     row.platform,
		IDEName:      row.ideName,
		StartTime:    start,
		EndTime:      end,
		LastModified: modified,
		IsDeleted:    row.isDeleted != 0,
		IsSynced:     row.isSynced != 0,
		SyncVersion:  row.syncVersion,
	}

	if row.syncedAt.Valid {
		syncedAt, err := parseTime(row.syncedAt.String)
		if err != nil {
			return types.CodingSession{}, err
		}
		session.SyncedAt = &syncedAt
	}

	return session, nil
}

// boolToInt converts for the INTEGER flag columns
func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// classifyError classifies database errors into repository error codes
func (r *SQLiteRepository) classifyError(err error) repoerrors.ErrorCode {
	return repoerrors.ClassifyError(err)
}
