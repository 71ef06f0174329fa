package repository

import (
	"context"
	"time"

	"codetime/internal/types"
)

// SessionRepository defines the persistence operations the session
// tracker and the aggregation engine depend on.
type SessionRepository interface {
	// Mutating operations
	//
	// InsertSessions writes a batch inside a single transaction; on any
	// row failure the whole batch rolls back. Strategy selects conflict
	// behavior on session_uuid:
	// - BatchStrategyInsertOnly: fail the batch on conflicts
	// - BatchStrategyUpsert: replace existing rows on conflicts
	InsertSessions(ctx context.Context, sessions []types.CodingSession, strategy types.BatchStrategy) error
	UpsertSession(ctx context.Context, session *types.CodingSession) error
	DeleteOldSessions(ctx context.Context, olderThan time.Time) (int64, error)

	// Range queries for the aggregation engine. GetSessionsInRange
	// returns candidates overlapping [start, end): end_time > start AND
	// start_time < end; overlap clipping happens in the caller.
	GetSessionsInRange(ctx context.Context, start, end time.Time, projectFilter string) ([]types.CodingSession, error)

	// GetSessionSpans loads only (start, end) pairs for every
	// non-deleted session; the in-memory summary path.
	GetSessionSpans(ctx context.Context) ([]types.SessionSpan, error)

	// Pushdown aggregates
	CountSessions(ctx context.Context) (int64, error)
	TotalDurationSeconds(ctx context.Context, projectFilter string) (int64, error)
	SumOverlapSeconds(ctx context.Context, start, end time.Time) (int64, error)
	GetTimeBounds(ctx context.Context) (time.Time, time.Time, error)

	// Import support: which of the given UUIDs already exist
	FindExistingUUIDs(ctx context.Context, uuids []string) (map[string]struct{}, error)

	// Transaction support
	WithTransaction(ctx context.Context, fn func(repo SessionRepository) error) error
}
