package types

import (
	"time"

	"github.com/google/uuid"
)

// CodingSession is the atomic unit of tracked coding time: one
// contiguous stretch of activity for a (project, language) pair.
type CodingSession struct {
	ID           int64      `json:"id"`
	SessionUUID  string     `json:"sessionUuid"`
	UserID       string     `json:"userId"`
	ProjectName  string     `json:"projectName"`
	Language     string     `json:"language"`
	Platform     string     `json:"platform"`
	IDEName      string     `json:"ideName"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      time.Time  `json:"endTime"` // always >= StartTime
	LastModified time.Time  `json:"lastModified"`
	IsDeleted    bool       `json:"isDeleted"`
	IsSynced     bool       `json:"isSynced"`
	SyncedAt     *time.Time `json:"syncedAt,omitempty"`
	SyncVersion  int64      `json:"syncVersion"`
}

// NewCodingSession creates a live session starting (and ending) at now.
func NewCodingSession(userID, project, language, platform, ideName string, now time.Time) *CodingSession {
	return &CodingSession{
		SessionUUID:  uuid.NewString(),
		UserID:       userID,
		ProjectName:  project,
		Language:     language,
		Platform:     platform,
		IDEName:      ideName,
		StartTime:    now,
		EndTime:      now,
		LastModified: now,
	}
}

// DurationSeconds returns the session length in whole seconds.
func (s *CodingSession) DurationSeconds() int64 {
	if s == nil || s.EndTime.Before(s.StartTime) {
		return 0
	}
	return int64(s.EndTime.Sub(s.StartTime).Seconds())
}

// Clone returns a deep copy of the session.
func (s *CodingSession) Clone() *CodingSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.SyncedAt != nil {
		t := *s.SyncedAt
		c.SyncedAt = &t
	}
	return &c
}

// SessionSpan is the minimal (start, end) projection used by the
// in-memory summary path, which never needs the descriptive columns.
type SessionSpan struct {
	Start time.Time
	End   time.Time
}

// BatchStrategy selects conflict behavior for batch writes
type BatchStrategy int

const (
	// BatchStrategyInsertOnly fails the batch on UUID conflicts
	BatchStrategyInsertOnly BatchStrategy = iota
	// BatchStrategyUpsert replaces existing rows on UUID conflicts
	BatchStrategyUpsert
)
