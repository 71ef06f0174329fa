package services

import (
	"sync"
	"time"
)

// PeriodKind identifies one of the rolling display periods.
type PeriodKind int

const (
	PeriodDay PeriodKind = iota
	PeriodWeek
	PeriodMonth
	PeriodYear
)

func (k PeriodKind) String() string {
	switch k {
	case PeriodDay:
		return "day"
	case PeriodWeek:
		return "week"
	case PeriodMonth:
		return "month"
	case PeriodYear:
		return "year"
	default:
		return "unknown"
	}
}

// PeriodKinds lists every kind in reset-check order.
var PeriodKinds = []PeriodKind{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the Monday of t's ISO-8601 week.
func StartOfWeek(t time.Time) time.Time {
	midnight := StartOfDay(t)
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -daysSinceMonday)
}

// StartOfMonth returns midnight of the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// StartOfYear returns midnight of January 1st of t's year.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
}

// StartOfPeriod returns the current boundary instant for kind at t.
func StartOfPeriod(kind PeriodKind, t time.Time) time.Time {
	switch kind {
	case PeriodDay:
		return StartOfDay(t)
	case PeriodWeek:
		return StartOfWeek(t)
	case PeriodMonth:
		return StartOfMonth(t)
	case PeriodYear:
		return StartOfYear(t)
	default:
		return StartOfDay(t)
	}
}

// PeriodManager tracks rolling period boundaries independent of the
// persisted data, so live counters can be reset the moment a day,
// week, month, or year rolls over.
type PeriodManager struct {
	mu         sync.Mutex
	boundaries map[PeriodKind]time.Time
	now        func() time.Time
}

// NewPeriodManager seeds all boundaries from the given clock. A nil
// clock uses time.Now.
func NewPeriodManager(now func() time.Time) *PeriodManager {
	if now == nil {
		now = time.Now
	}

	pm := &PeriodManager{
		boundaries: make(map[PeriodKind]time.Time, len(PeriodKinds)),
		now:        now,
	}

	current := now()
	for _, kind := range PeriodKinds {
		pm.boundaries[kind] = StartOfPeriod(kind, current)
	}

	return pm
}

// IsPeriodChanged recomputes the boundary for kind from the wall clock
// and reports whether it moved since the stored boundary.
func (pm *PeriodManager) IsPeriodChanged(kind PeriodKind) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return !StartOfPeriod(kind, pm.now()).Equal(pm.boundaries[kind])
}

// ResetPeriod overwrites the stored boundary for kind with the freshly
// computed one.
func (pm *PeriodManager) ResetPeriod(kind PeriodKind) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.boundaries[kind] = StartOfPeriod(kind, pm.now())
}

// Boundary returns the stored boundary for kind.
func (pm *PeriodManager) Boundary(kind PeriodKind) time.Time {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.boundaries[kind]
}
