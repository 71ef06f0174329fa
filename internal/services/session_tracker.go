package services

import (
	"sync"
	"sync/atomic"
	"time"

	"codetime/internal/infrastructure/logging"
	"codetime/internal/platform"
	"codetime/internal/repository"
	"codetime/internal/types"
)

// TrackerConfig holds the session tracker's tunables.
type TrackerConfig struct {
	UserID               string
	IDEName              string
	IdleThreshold        time.Duration // inactivity before a live session is closed
	IdleCheckInterval    time.Duration
	PeriodCheckInterval  time.Duration
	ShutdownDrainTimeout time.Duration // bounded wait for the final flush
}

// DefaultTrackerConfig returns the production tracker settings.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		UserID:               "default",
		IDEName:              "codetime",
		IdleThreshold:        60 * time.Second,
		IdleCheckInterval:    5 * time.Second,
		PeriodCheckInterval:  time.Second,
		ShutdownDrainTimeout: 5 * time.Second,
	}
}

// liveCounters are the best-effort display counters, one per rolling
// period. They are independent of the durable session end times.
type liveCounters struct {
	today atomic.Int64
	week  atomic.Int64
	month atomic.Int64
	year  atomic.Int64
}

func (c *liveCounters) add(seconds int64) {
	c.today.Add(seconds)
	c.week.Add(seconds)
	c.month.Add(seconds)
	c.year.Add(seconds)
}

func (c *liveCounters) reset(kind PeriodKind) {
	switch kind {
	case PeriodDay:
		c.today.Store(0)
	case PeriodWeek:
		c.week.Store(0)
	case PeriodMonth:
		c.month.Store(0)
	case PeriodYear:
		c.year.Store(0)
	}
}

func (c *liveCounters) resetAll() {
	for _, kind := range PeriodKinds {
		c.reset(kind)
	}
}

func (c *liveCounters) snapshot() types.LiveCounters {
	return types.LiveCounters{
		TodaySeconds: c.today.Load(),
		WeekSeconds:  c.week.Load(),
		MonthSeconds: c.month.Load(),
		YearSeconds:  c.year.Load(),
	}
}

// SessionTracker converts noisy activity events into discrete,
// non-overlapping coding sessions. The live session index maps
// project -> language -> session; the invariant is one language key
// per project at any instant.
type SessionTracker struct {
	config   TrackerConfig
	gate     *ActivityGate
	resolver platform.TargetResolver
	writer   *repository.SessionWriter
	notifier *Notifier
	periods  *PeriodManager
	logger   logging.Logger

	mu         sync.RWMutex
	sessions   map[string]map[string]*types.CodingSession
	userActive bool

	// lastActivity is shared with the idle-checker goroutine, hence
	// atomic (UnixNano; zero means no activity yet).
	lastActivity atomic.Int64

	counters liveCounters

	stop     chan struct{}
	stopOnce sync.Once
	loopWG   sync.WaitGroup
}

// NewSessionTracker wires the tracker's collaborators. A nil resolver
// gets the default file resolver; a nil notifier gets a fresh one.
func NewSessionTracker(config TrackerConfig, writer *repository.SessionWriter, resolver platform.TargetResolver, notifier *Notifier, logger logging.Logger) *SessionTracker {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if resolver == nil {
		resolver = platform.NewFileTargetResolver(config.IDEName)
	}
	if notifier == nil {
		notifier = NewNotifier()
	}

	return &SessionTracker{
		config:   config,
		gate:     NewActivityGate(),
		resolver: resolver,
		writer:   writer,
		notifier: notifier,
		periods:  NewPeriodManager(nil),
		logger:   logger,
		sessions: make(map[string]map[string]*types.CodingSession),
		stop:     make(chan struct{}),
	}
}

// Notifier returns the tracker's event registry for subscribers.
func (t *SessionTracker) Notifier() *Notifier {
	return t.notifier
}

// Start launches the idle checker and the period rollover checker.
func (t *SessionTracker) Start() {
	t.loopWG.Add(2)
	go t.idleLoop()
	go t.periodLoop()
}

// OnActivity processes one editing event against the live session
// index. Non-countable targets are ignored silently.
func (t *SessionTracker) OnActivity(path string, now time.Time) {
	if !t.gate.IsCountableActivity(path) {
		return
	}
	target, ok := t.resolver.Resolve(path)
	if !ok {
		return
	}

	prevNano := t.lastActivity.Swap(now.UnixNano())

	var toFlush []types.CodingSession
	var started bool

	t.mu.Lock()
	if !t.userActive {
		t.userActive = true
		started = true
	}

	projectSessions := t.sessions[target.ProjectName]
	if projectSessions == nil {
		projectSessions = make(map[string]*types.CodingSession, 1)
		t.sessions[target.ProjectName] = projectSessions
	}

	// A language switch invalidates the whole project's live entries:
	// the project tracks one active language bucket at a time.
	if _, exists := projectSessions[target.Language]; !exists && len(projectSessions) > 0 {
		for language, session := range projectSessions {
			session.EndTime = clampSwitchEnd(session.EndTime, now)
			session.LastModified = now
			toFlush = append(toFlush, *session)
			delete(projectSessions, language)
		}
	}

	session := projectSessions[target.Language]
	if session == nil {
		session = types.NewCodingSession(t.config.UserID, target.ProjectName,
			target.Language, target.Platform, target.IDEName, now)
		projectSessions[target.Language] = session
	} else {
		if now.After(session.EndTime) {
			session.EndTime = now
		}
		session.LastModified = now
	}
	t.mu.Unlock()

	if started {
		t.notifier.Publish(EventActivityStarted, "")
	}

	// Live display counters: only short gaps count, so a long pause is
	// never double-counted after resume. This is a separate concern
	// from advancing the durable session end time above.
	if prevNano > 0 {
		delta := now.Sub(time.Unix(0, prevNano))
		if delta > 0 && delta < t.config.IdleThreshold {
			t.counters.add(int64(delta.Seconds()))
		}
	}

	if len(toFlush) > 0 {
		t.writer.Submit(toFlush)
	}
}

// clampSwitchEnd keeps the closed-out session's end at the switch
// instant without ever moving it backward.
func clampSwitchEnd(end, now time.Time) time.Time {
	if now.After(end) {
		return now
	}
	return end
}

// LiveCounters returns a snapshot of the resettable period counters.
func (t *SessionTracker) LiveCounters() types.LiveCounters {
	return t.counters.snapshot()
}

// ResetLiveCounters zeroes every period counter; used together with
// ForcePersistSessions when a scope-changing setting flips.
func (t *SessionTracker) ResetLiveCounters() {
	t.counters.resetAll()
}

// ActiveSessions returns a derived snapshot of the live session index;
// the live map itself is never exposed.
func (t *SessionTracker) ActiveSessions() []types.CodingSession {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var snapshot []types.CodingSession
	for _, projectSessions := range t.sessions {
		for _, session := range projectSessions {
			snapshot = append(snapshot, *session.Clone())
		}
	}
	return snapshot
}

// UserActive reports whether the activity-started notification is
// currently outstanding.
func (t *SessionTracker) UserActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.userActive
}

func (t *SessionTracker) idleLoop() {
	defer t.loopWG.Done()

	ticker := time.NewTicker(t.config.IdleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.CheckIdleStatus(time.Now())
		case <-t.stop:
			return
		}
	}
}

func (t *SessionTracker) periodLoop() {
	defer t.loopWG.Done()

	ticker := time.NewTicker(t.config.PeriodCheckInterval)
	defer ticker.Stop()

	lastMinute := time.Now().Truncate(time.Minute)

	for {
		select {
		case <-ticker.C:
			// Checked every tick, acted on only at minute boundaries
			minute := time.Now().Truncate(time.Minute)
			if minute.Equal(lastMinute) {
				continue
			}
			lastMinute = minute
			t.checkPeriodRollovers()
		case <-t.stop:
			return
		}
	}
}

func (t *SessionTracker) checkPeriodRollovers() {
	for _, kind := range PeriodKinds {
		if t.periods.IsPeriodChanged(kind) {
			t.periods.ResetPeriod(kind)
			t.counters.reset(kind)
			t.notifier.Publish(EventPeriodReset, kind.String())
			t.logger.Info("Period rolled over", "period", kind.String())
		}
	}
}
