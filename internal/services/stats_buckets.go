package services

import (
	"math"
	"time"

	"codetime/internal/types"
)

// clipSeconds returns the whole seconds of overlap between the span
// [spanStart, spanEnd) and the range [rangeStart, rangeEnd). Clipping
// is exact: a session is never counted outside the queried range and
// never truncated inside it.
func clipSeconds(spanStart, spanEnd, rangeStart, rangeEnd time.Time) int64 {
	if spanStart.Before(rangeStart) {
		spanStart = rangeStart
	}
	if spanEnd.After(rangeEnd) {
		spanEnd = rangeEnd
	}
	if !spanEnd.After(spanStart) {
		return 0
	}
	return int64(math.Round(spanEnd.Sub(spanStart).Seconds()))
}

// forEachDaySegment cuts [start, end) at local midnight boundaries and
// calls fn once per calendar day with that day's share in seconds. The
// shares sum to the span's total duration.
func forEachDaySegment(start, end time.Time, loc *time.Location, fn func(day time.Time, seconds int64)) {
	cur := start.In(loc)
	end = end.In(loc)

	for cur.Before(end) {
		day := StartOfDay(cur)
		next := day.AddDate(0, 0, 1)
		segEnd := end
		if next.Before(segEnd) {
			segEnd = next
		}
		if seconds := int64(math.Round(segEnd.Sub(cur).Seconds())); seconds > 0 {
			fn(day, seconds)
		}
		cur = next
	}
}

// forEachHourSegment cuts [start, end) at local hour boundaries and
// calls fn once per segment with the wall-clock position of its hour.
func forEachHourSegment(start, end time.Time, loc *time.Location, fn func(hourStart time.Time, seconds int64)) {
	cur := start.In(loc)
	end = end.In(loc)

	for cur.Before(end) {
		hourStart := time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), 0, 0, 0, loc)
		next := hourStart.Add(time.Hour)
		segEnd := end
		if next.Before(segEnd) {
			segEnd = next
		}
		if seconds := int64(math.Round(segEnd.Sub(cur).Seconds())); seconds > 0 {
			fn(hourStart, seconds)
		}
		cur = next
	}
}

// bucketForHour maps an hour of the day onto its six-hour segment.
func bucketForHour(hour int) types.TimeOfDayBucket {
	return types.TimeOfDayBucket(hour / 6)
}

// daysSpanned counts the calendar days touched by [start, end) in loc,
// at least one.
func daysSpanned(start, end time.Time, loc *time.Location) int {
	first := StartOfDay(start.In(loc))
	last := StartOfDay(end.In(loc))
	if end.In(loc).After(last) {
		last = last.AddDate(0, 0, 1)
	}
	days := 0
	for d := first; d.Before(last); d = d.AddDate(0, 0, 1) {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}
