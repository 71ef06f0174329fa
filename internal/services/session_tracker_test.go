package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codetime/internal/platform"
	"codetime/internal/repository"
)

// stubResolver maps file names onto fixed targets so tracker tests
// control project and language attribution directly.
type stubResolver struct {
	targets map[string]platform.EditorTarget
}

func (r *stubResolver) Resolve(path string) (*platform.EditorTarget, bool) {
	target, ok := r.targets[filepath.Base(path)]
	if !ok {
		return nil, false
	}
	return &target, true
}

type trackerFixture struct {
	tracker *SessionTracker
	writer  *repository.SessionWriter
	repo    *MockRepository
	files   map[string]string
}

// setupTracker builds a tracker over the mock repository plus real
// temp files so the activity gate sees regular writable paths.
func setupTracker(t *testing.T, names map[string]platform.EditorTarget) *trackerFixture {
	t.Helper()

	dir := t.TempDir()
	files := make(map[string]string, len(names))
	resolver := &stubResolver{targets: names}
	for name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		files[name] = path
	}

	repo := NewMockRepository()
	writer := repository.NewSessionWriter(repo, 8, nil)

	config := DefaultTrackerConfig()
	config.UserID = "test-user"
	tracker := NewSessionTracker(config, writer, resolver, nil, nil)

	return &trackerFixture{tracker: tracker, writer: writer, repo: repo, files: files}
}

func goTarget(project string) platform.EditorTarget {
	return platform.EditorTarget{ProjectName: project, Language: "Go", Platform: "test", IDEName: "test-ide"}
}

func tsTarget(project string) platform.EditorTarget {
	return platform.EditorTarget{ProjectName: project, Language: "TypeScript", Platform: "test", IDEName: "test-ide"}
}

func TestOnActivityCreatesAndAdvancesSession(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.OnActivity(f.files["main.go"], base.Add(30*time.Second))

	live := f.tracker.ActiveSessions()
	if len(live) != 1 {
		t.Fatalf("Expected 1 live session, got %d", len(live))
	}
	if !live[0].StartTime.Equal(base) {
		t.Errorf("Expected start %v, got %v", base, live[0].StartTime)
	}
	if !live[0].EndTime.Equal(base.Add(30 * time.Second)) {
		t.Errorf("Expected end advanced to +30s, got %v", live[0].EndTime)
	}
	if !f.tracker.UserActive() {
		t.Error("Expected user to be marked active")
	}
}

func TestOnActivityIgnoresUnknownAndMissingFiles(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})

	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity("/nonexistent/file.go", now)

	if len(f.tracker.ActiveSessions()) != 0 {
		t.Error("Missing file should not create a session")
	}
	if f.tracker.UserActive() {
		t.Error("Missing file should not mark the user active")
	}
}

func TestLanguageSwitchFlushesProjectSessions(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{
		"main.go":  goTarget("api"),
		"index.ts": tsTarget("api"),
	})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.OnActivity(f.files["main.go"], base.Add(20*time.Second))
	f.tracker.OnActivity(f.files["index.ts"], base.Add(40*time.Second))

	live := f.tracker.ActiveSessions()
	if len(live) != 1 {
		t.Fatalf("Expected only the new language session live, got %d", len(live))
	}
	if live[0].Language != "TypeScript" {
		t.Errorf("Expected live TypeScript session, got %s", live[0].Language)
	}

	if err := f.writer.Drain(time.Second); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	count, _ := f.repo.CountSessions(context.Background())
	if count != 1 {
		t.Fatalf("Expected the Go session persisted, found %d rows", count)
	}

	spans, _ := f.repo.GetSessionSpans(context.Background())
	want := base.Add(40 * time.Second)
	if !spans[0].End.Equal(want) {
		t.Errorf("Expected flushed session end %v, got %v", want, spans[0].End)
	}
}

func TestIdleFlushClampsEndToLastActivityPlusThreshold(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)

	// The checker fires long after the last activity; the persisted
	// end must not include the dead time.
	f.tracker.CheckIdleStatus(base.Add(300 * time.Second))

	if err := f.writer.Drain(time.Second); err != nil {
		t.Fatalf("Drain failed: %v", err)
	}

	spans, _ := f.repo.GetSessionSpans(context.Background())
	if len(spans) != 1 {
		t.Fatalf("Expected 1 persisted session, got %d", len(spans))
	}
	want := base.Add(60 * time.Second)
	if !spans[0].End.Equal(want) {
		t.Errorf("Expected clamped end %v, got %v", want, spans[0].End)
	}
	if len(f.tracker.ActiveSessions()) != 0 {
		t.Error("Idle flush should clear live sessions")
	}
	if f.tracker.UserActive() {
		t.Error("Idle flush should mark the user inactive")
	}
}

func TestIdleCheckBeforeThresholdDoesNothing(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.CheckIdleStatus(base.Add(30 * time.Second))

	if len(f.tracker.ActiveSessions()) != 1 {
		t.Error("Session flushed before the idle threshold elapsed")
	}
	if !f.tracker.UserActive() {
		t.Error("User deactivated before the idle threshold elapsed")
	}
}

func TestActivityResumesAfterIdleFlushStartsNewSession(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.CheckIdleStatus(base.Add(300 * time.Second))

	resume := base.Add(600 * time.Second)
	f.tracker.OnActivity(f.files["main.go"], resume)

	live := f.tracker.ActiveSessions()
	if len(live) != 1 {
		t.Fatalf("Expected 1 live session after resume, got %d", len(live))
	}
	if !live[0].StartTime.Equal(resume) {
		t.Errorf("Resume should start a fresh session at %v, got %v", resume, live[0].StartTime)
	}
}

func TestForcePersistSessionsFlushesEverything(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{
		"main.go": goTarget("api"),
		"app.ts":  tsTarget("web"),
	})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.OnActivity(f.files["app.ts"], base.Add(10*time.Second))

	if err := f.tracker.ForcePersistSessions(context.Background()); err != nil {
		t.Fatalf("ForcePersistSessions failed: %v", err)
	}

	count, _ := f.repo.CountSessions(context.Background())
	if count != 2 {
		t.Errorf("Expected both sessions persisted, found %d", count)
	}
	if len(f.tracker.ActiveSessions()) != 0 {
		t.Error("ForcePersistSessions should clear the live index")
	}
}

func TestIdleCheckIsNoopWithoutLiveSessions(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})

	var events []Event
	f.tracker.Notifier().Subscribe(func(event Event, detail string) {
		events = append(events, event)
	})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)

	// A force persist empties the live index without changing the
	// user's active state
	if err := f.tracker.ForcePersistSessions(context.Background()); err != nil {
		t.Fatalf("ForcePersistSessions failed: %v", err)
	}

	f.tracker.CheckIdleStatus(base.Add(5 * time.Minute))

	if !f.tracker.UserActive() {
		t.Error("Idle check with nothing live should not flip the active flag")
	}
	for _, event := range events {
		if event == EventActivityStopped {
			t.Error("Idle check with nothing live should not publish a stop event")
		}
	}
}

func TestStopProjectTrackingDeactivatesWhenLastProjectCloses(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{
		"main.go": goTarget("api"),
		"app.ts":  tsTarget("web"),
	})

	var events []Event
	f.tracker.Notifier().Subscribe(func(event Event, detail string) {
		events = append(events, event)
	})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.OnActivity(f.files["app.ts"], base.Add(10*time.Second))

	f.tracker.StopProjectTracking("api")
	if f.tracker.UserActive() == false {
		t.Error("User should stay active while another project is live")
	}

	f.tracker.StopProjectTracking("web")
	if f.tracker.UserActive() {
		t.Error("User should be inactive after the last project closes")
	}

	var stops int
	for _, event := range events {
		if event == EventActivityStopped {
			stops++
		}
	}
	if stops != 1 {
		t.Errorf("Expected exactly one stop notification, got %d", stops)
	}
}

func TestLiveCountersSkipLongGaps(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.OnActivity(f.files["main.go"], base.Add(30*time.Second))
	// Gap beyond the idle threshold contributes nothing
	f.tracker.OnActivity(f.files["main.go"], base.Add(30*time.Second+5*time.Minute))

	counters := f.tracker.LiveCounters()
	if counters.TodaySeconds != 30 {
		t.Errorf("Expected 30 counted seconds, got %d", counters.TodaySeconds)
	}
}

func TestStartStopNotifications(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})

	var events []Event
	f.tracker.Notifier().Subscribe(func(event Event, detail string) {
		events = append(events, event)
	})

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.OnActivity(f.files["main.go"], base.Add(10*time.Second))
	f.tracker.CheckIdleStatus(base.Add(300 * time.Second))

	if len(events) != 2 {
		t.Fatalf("Expected start and stop events, got %v", events)
	}
	if events[0] != EventActivityStarted || events[1] != EventActivityStopped {
		t.Errorf("Unexpected event order: %v", events)
	}
}

func TestStopFlushesAndDrains(t *testing.T) {
	f := setupTracker(t, map[string]platform.EditorTarget{"main.go": goTarget("api")})
	f.tracker.Start()

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	f.tracker.OnActivity(f.files["main.go"], base)
	f.tracker.OnActivity(f.files["main.go"], base.Add(15*time.Second))

	if err := f.tracker.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	count, _ := f.repo.CountSessions(context.Background())
	if count != 1 {
		t.Errorf("Expected the live session persisted on stop, found %d", count)
	}
	if len(f.tracker.ActiveSessions()) != 0 {
		t.Error("Stop should clear the live index")
	}
}
