package services

import (
	"context"
	"time"

	"codetime/internal/types"
)

// CheckIdleStatus closes and persists every live session once the idle
// threshold has elapsed since the last activity. Persisted end times
// are clamped to lastActivity + threshold, never to now, so idle dead
// time between checker ticks is not counted as coding.
func (t *SessionTracker) CheckIdleStatus(now time.Time) {
	lastNano := t.lastActivity.Load()
	if lastNano == 0 {
		return
	}
	last := time.Unix(0, lastNano)
	if now.Sub(last) < t.config.IdleThreshold {
		return
	}

	cutoff := last.Add(t.config.IdleThreshold)

	t.mu.Lock()
	if len(t.sessions) == 0 {
		// Nothing live to close, for example right after a force
		// persist. Leave the active flag alone.
		t.mu.Unlock()
		return
	}
	toFlush := t.drainAllLocked(now, &cutoff)
	wasActive := t.userActive
	t.userActive = false
	t.mu.Unlock()

	if len(toFlush) > 0 {
		t.writer.Submit(toFlush)
		t.logger.Info("Idle flush", "sessions", len(toFlush),
			"last_activity", last.UTC().Format(time.RFC3339))
	}
	if wasActive {
		t.notifier.Publish(EventActivityStopped, "")
	}
}

// ForcePersistSessions flushes all live sessions immediately and waits
// for the write to land. Used when a scope-changing setting flips so
// accumulated time is not attributed to the wrong bucket.
func (t *SessionTracker) ForcePersistSessions(ctx context.Context) error {
	t.mu.Lock()
	toFlush := t.drainAllLocked(time.Now(), nil)
	t.mu.Unlock()

	if len(toFlush) == 0 {
		return nil
	}
	return t.writer.SubmitAndWait(ctx, toFlush)
}

// StopProjectTracking flushes and removes the live sessions of a
// single project, for example when its editor window closes. When it
// was the last live project the activity-stopped notification fires.
func (t *SessionTracker) StopProjectTracking(projectName string) {
	now := time.Now()

	var toFlush []types.CodingSession
	var stopped bool

	t.mu.Lock()
	projectSessions := t.sessions[projectName]
	for language, session := range projectSessions {
		session.EndTime = clampSwitchEnd(session.EndTime, now)
		session.LastModified = now
		toFlush = append(toFlush, *session)
		delete(projectSessions, language)
	}
	delete(t.sessions, projectName)
	if len(t.sessions) == 0 && t.userActive {
		t.userActive = false
		stopped = true
	}
	t.mu.Unlock()

	if len(toFlush) > 0 {
		t.writer.Submit(toFlush)
	}
	if stopped {
		t.notifier.Publish(EventActivityStopped, "")
	}
}

// Stop flushes everything, halts the checker goroutines and blocks
// until the writer queue drains or the shutdown timeout expires.
func (t *SessionTracker) Stop() error {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
	t.loopWG.Wait()

	t.mu.Lock()
	toFlush := t.drainAllLocked(time.Now(), nil)
	wasActive := t.userActive
	t.userActive = false
	t.mu.Unlock()

	if len(toFlush) > 0 {
		t.writer.Submit(toFlush)
	}
	if wasActive {
		t.notifier.Publish(EventActivityStopped, "")
	}

	return t.writer.Drain(t.config.ShutdownDrainTimeout)
}

// drainAllLocked snapshots and clears every live session. The caller
// holds the write lock; persistence happens outside it. A non-nil
// clampEnd caps each session's end time, bounded by one idle threshold
// past the session's own last tick so stale sessions of an inactive
// project are never stretched to the global cutoff.
func (t *SessionTracker) drainAllLocked(now time.Time, clampEnd *time.Time) []types.CodingSession {
	var toFlush []types.CodingSession
	for projectName, projectSessions := range t.sessions {
		for _, session := range projectSessions {
			if clampEnd != nil {
				end := *clampEnd
				if ownCap := session.EndTime.Add(t.config.IdleThreshold); ownCap.Before(end) {
					end = ownCap
				}
				if end.After(session.EndTime) {
					session.EndTime = end
				}
			}
			session.LastModified = now
			toFlush = append(toFlush, *session)
		}
		delete(t.sessions, projectName)
	}
	return toFlush
}
