package testutils

import (
	"time"

	"github.com/google/uuid"

	"codetime/internal/types"
)

// SessionFixture builds a finished coding session for tests. Optional
// overrides mutate the session before it is returned.
func SessionFixture(project, language string, start time.Time, duration time.Duration, overrides ...func(*types.CodingSession)) types.CodingSession {
	session := types.CodingSession{
		SessionUUID:  uuid.NewString(),
		UserID:       "test-user",
		ProjectName:  project,
		Language:     language,
		Platform:     "test",
		IDEName:      "test-ide",
		StartTime:    start.UTC(),
		EndTime:      start.Add(duration).UTC(),
		LastModified: start.Add(duration).UTC(),
	}
	for _, override := range overrides {
		override(&session)
	}
	return session
}

// Day returns midnight UTC of the given date; handy for building
// deterministic ranges in tests.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
