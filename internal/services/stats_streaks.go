package services

import (
	"sort"
	"time"

	"codetime/internal/types"
)

// activeDays reduces session spans to the sorted set of local calendar
// days that saw any coding at all.
func activeDays(spans []types.SessionSpan, loc *time.Location) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, span := range spans {
		forEachDaySegment(span.Start, span.End, loc, func(day time.Time, _ int64) {
			seen[day] = struct{}{}
		})
	}

	days := make([]time.Time, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// computeStreaks walks the sorted active days and returns the longest
// consecutive run plus the run ending at the most recent day. The
// current streak is zero unless that day is today or yesterday, so a
// streak survives overnight but not a skipped day.
func computeStreaks(days []time.Time, now time.Time, loc *time.Location) types.CodingStreaks {
	if len(days) == 0 {
		return types.CodingStreaks{}
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	streaks := types.CodingStreaks{Longest: longest}

	today := StartOfDay(now.In(loc))
	lastDay := days[len(days)-1]
	if lastDay.Equal(today) || lastDay.Equal(today.AddDate(0, 0, -1)) {
		streaks.Current = run
	}
	return streaks
}
