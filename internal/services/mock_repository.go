package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"codetime/internal/infrastructure/errors"
	"codetime/internal/repository"
	"codetime/internal/types"
)

// MockRepository implements the SessionRepository interface for testing
type MockRepository struct {
	mu               sync.RWMutex
	sessions         map[string]types.CodingSession // key: session UUID
	nextID           int64
	insertCallCount  int
	queryCallCount   int
	deleteCallCount  int
	transactionCalls int
	shouldFailWrite  bool
	shouldFailRead   bool
	shouldFailTx     bool
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		sessions: make(map[string]types.CodingSession),
	}
}

// SetFailureModes configures the mock to simulate failures
func (m *MockRepository) SetFailureModes(write, read, tx bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailWrite = write
	m.shouldFailRead = read
	m.shouldFailTx = tx
}

// GetCallCounts returns the number of times each method group was called
func (m *MockRepository) GetCallCounts() (insert, query, delete, tx int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.insertCallCount, m.queryCallCount, m.deleteCallCount, m.transactionCalls
}

// Seed stores sessions directly, bypassing failure modes and counters
func (m *MockRepository) Seed(sessions ...types.CodingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, session := range sessions {
		m.storeLocked(session)
	}
}

// SessionByUUID returns a stored session copy for assertions
func (m *MockRepository) SessionByUUID(uuid string) (types.CodingSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[uuid]
	return session, ok
}

func (m *MockRepository) storeLocked(session types.CodingSession) {
	if existing, ok := m.sessions[session.SessionUUID]; ok {
		session.ID = existing.ID
		session.SyncVersion = existing.SyncVersion + 1
	} else {
		m.nextID++
		session.ID = m.nextID
	}
	m.sessions[session.SessionUUID] = session
}

// InsertSessions implements SessionRepository interface
func (m *MockRepository) InsertSessions(ctx context.Context, sessions []types.CodingSession, strategy types.BatchStrategy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCallCount++

	if m.shouldFailWrite {
		return errors.NewRepositoryError("InsertSessions", fmt.Errorf("mock write failure"), errors.ErrCodeConnection)
	}

	if strategy == types.BatchStrategyInsertOnly {
		// The real repository rolls the whole batch back on a conflict
		for _, session := range sessions {
			if _, exists := m.sessions[session.SessionUUID]; exists {
				return errors.NewRepositoryError("InsertSessions",
					fmt.Errorf("session %s already exists", session.SessionUUID), errors.ErrCodeDuplicate)
			}
		}
	}

	for _, session := range sessions {
		m.storeLocked(session)
	}
	return nil
}

// UpsertSession implements SessionRepository interface
func (m *MockRepository) UpsertSession(ctx context.Context, session *types.CodingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCallCount++

	if m.shouldFailWrite {
		return errors.NewRepositoryError("UpsertSession", fmt.Errorf("mock write failure"), errors.ErrCodeConnection)
	}

	m.storeLocked(*session)
	return nil
}

// DeleteOldSessions implements SessionRepository interface
func (m *MockRepository) DeleteOldSessions(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteCallCount++

	if m.shouldFailWrite {
		return 0, errors.NewRepositoryError("DeleteOldSessions", fmt.Errorf("mock delete failure"), errors.ErrCodeConnection)
	}

	var removed int64
	for uuid, session := range m.sessions {
		if session.EndTime.Before(olderThan) {
			delete(m.sessions, uuid)
			removed++
		}
	}
	return removed, nil
}

// GetSessionsInRange implements SessionRepository interface
func (m *MockRepository) GetSessionsInRange(ctx context.Context, start, end time.Time, projectFilter string) ([]types.CodingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCallCount++

	if m.shouldFailRead {
		return nil, errors.NewRepositoryError("GetSessionsInRange", fmt.Errorf("mock read failure"), errors.ErrCodeConnection)
	}
	if !end.After(start) {
		return nil, errors.HandleValidationError("GetSessionsInRange", "range", "", "end must be after start")
	}

	var result []types.CodingSession
	for _, session := range m.sessions {
		if session.IsDeleted {
			continue
		}
		if !session.EndTime.After(start) || !session.StartTime.Before(end) {
			continue
		}
		if projectFilter != "" && session.ProjectName != projectFilter {
			continue
		}
		result = append(result, session)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

// GetSessionSpans implements SessionRepository interface
func (m *MockRepository) GetSessionSpans(ctx context.Context) ([]types.SessionSpan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCallCount++

	if m.shouldFailRead {
		return nil, errors.NewRepositoryError("GetSessionSpans", fmt.Errorf("mock read failure"), errors.ErrCodeConnection)
	}

	var spans []types.SessionSpan
	for _, session := range m.sessions {
		if session.IsDeleted {
			continue
		}
		spans = append(spans, types.SessionSpan{Start: session.StartTime, End: session.EndTime})
	}
	return spans, nil
}

// CountSessions implements SessionRepository interface
func (m *MockRepository) CountSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCallCount++

	if m.shouldFailRead {
		return 0, errors.NewRepositoryError("CountSessions", fmt.Errorf("mock read failure"), errors.ErrCodeConnection)
	}

	var count int64
	for _, session := range m.sessions {
		if !session.IsDeleted {
			count++
		}
	}
	return count, nil
}

// TotalDurationSeconds implements SessionRepository interface
func (m *MockRepository) TotalDurationSeconds(ctx context.Context, projectFilter string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCallCount++

	if m.shouldFailRead {
		return 0, errors.NewRepositoryError("TotalDurationSeconds", fmt.Errorf("mock read failure"), errors.ErrCodeConnection)
	}

	var total int64
	for _, session := range m.sessions {
		if session.IsDeleted {
			continue
		}
		if projectFilter != "" && session.ProjectName != projectFilter {
			continue
		}
		total += int64(math.Round(session.EndTime.Sub(session.StartTime).Seconds()))
	}
	return total, nil
}

// SumOverlapSeconds implements SessionRepository interface
func (m *MockRepository) SumOverlapSeconds(ctx context.Context, start, end time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCallCount++

	if m.shouldFailRead {
		return 0, errors.NewRepositoryError("SumOverlapSeconds", fmt.Errorf("mock read failure"), errors.ErrCodeConnection)
	}

	var total int64
	for _, session := range m.sessions {
		if session.IsDeleted {
			continue
		}
		total += clipSeconds(session.StartTime, session.EndTime, start, end)
	}
	return total, nil
}

// GetTimeBounds implements SessionRepository interface
func (m *MockRepository) GetTimeBounds(ctx context.Context) (time.Time, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCallCount++

	if m.shouldFailRead {
		return time.Time{}, time.Time{}, errors.NewRepositoryError("GetTimeBounds", fmt.Errorf("mock read failure"), errors.ErrCodeConnection)
	}

	var first, last time.Time
	found := false
	for _, session := range m.sessions {
		if session.IsDeleted {
			continue
		}
		if !found || session.StartTime.Before(first) {
			first = session.StartTime
		}
		if !found || session.EndTime.After(last) {
			last = session.EndTime
		}
		found = true
	}
	if !found {
		return time.Time{}, time.Time{}, errors.HandleNotFound("GetTimeBounds", "sessions", "any")
	}
	return first, last, nil
}

// FindExistingUUIDs implements SessionRepository interface
func (m *MockRepository) FindExistingUUIDs(ctx context.Context, uuids []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queryCallCount++

	if m.shouldFailRead {
		return nil, errors.NewRepositoryError("FindExistingUUIDs", fmt.Errorf("mock read failure"), errors.ErrCodeConnection)
	}

	existing := make(map[string]struct{})
	for _, uuid := range uuids {
		if _, ok := m.sessions[uuid]; ok {
			existing[uuid] = struct{}{}
		}
	}
	return existing, nil
}

// WithTransaction implements SessionRepository interface
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repo repository.SessionRepository) error) error {
	m.mu.Lock()
	m.transactionCalls++
	shouldFail := m.shouldFailTx
	m.mu.Unlock()

	if shouldFail {
		return errors.NewRepositoryError("WithTransaction", fmt.Errorf("mock transaction failure"), errors.ErrCodeTransaction)
	}

	return fn(m)
}
