package services

import (
	"context"
	"time"

	apperrors "codetime/internal/infrastructure/errors"
	"codetime/internal/repository"
	"codetime/internal/types"
)

// summaryStrategy computes the dashboard summary one of two ways; the
// stats service picks per call based on table size.
type summaryStrategy interface {
	summarize(ctx context.Context, now time.Time) (types.SummaryStatistics, error)
}

// inMemorySummary loads every (start, end) span once and computes all
// six figures in a single pass. Cheapest while the table is small.
type inMemorySummary struct {
	repo repository.SessionRepository
	loc  *time.Location
}

func (s *inMemorySummary) summarize(ctx context.Context, now time.Time) (types.SummaryStatistics, error) {
	spans, err := s.repo.GetSessionSpans(ctx)
	if err != nil {
		return types.SummaryStatistics{}, err
	}
	if len(spans) == 0 {
		return types.SummaryStatistics{}, nil
	}

	local := now.In(s.loc)
	dayStart := StartOfDay(local)
	weekStart := StartOfWeek(local)
	monthStart := StartOfMonth(local)
	yearStart := StartOfYear(local)

	var stats types.SummaryStatistics
	firstStart := spans[0].Start
	for _, span := range spans {
		if span.Start.Before(firstStart) {
			firstStart = span.Start
		}
		stats.TotalSeconds += clipSeconds(span.Start, span.End, span.Start, span.End)
		stats.TodaySeconds += clipSeconds(span.Start, span.End, dayStart, now)
		stats.WeekSeconds += clipSeconds(span.Start, span.End, weekStart, now)
		stats.MonthSeconds += clipSeconds(span.Start, span.End, monthStart, now)
		stats.YearSeconds += clipSeconds(span.Start, span.End, yearStart, now)
	}

	stats.DailyAverageSeconds = dailyAverage(stats.TotalSeconds, firstStart, now, s.loc)
	return stats, nil
}

// pushdownSummary asks SQLite for each figure directly so large tables
// never stream through Go.
type pushdownSummary struct {
	repo repository.SessionRepository
	loc  *time.Location
}

func (s *pushdownSummary) summarize(ctx context.Context, now time.Time) (types.SummaryStatistics, error) {
	total, err := s.repo.TotalDurationSeconds(ctx, "")
	if err != nil {
		return types.SummaryStatistics{}, err
	}

	local := now.In(s.loc)
	var stats types.SummaryStatistics
	stats.TotalSeconds = total

	ranges := []struct {
		start time.Time
		dst   *int64
	}{
		{StartOfDay(local), &stats.TodaySeconds},
		{StartOfWeek(local), &stats.WeekSeconds},
		{StartOfMonth(local), &stats.MonthSeconds},
		{StartOfYear(local), &stats.YearSeconds},
	}
	for _, r := range ranges {
		sum, err := s.repo.SumOverlapSeconds(ctx, r.start, now)
		if err != nil {
			return types.SummaryStatistics{}, err
		}
		*r.dst = sum
	}

	first, _, err := s.repo.GetTimeBounds(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return types.SummaryStatistics{}, nil
		}
		return types.SummaryStatistics{}, err
	}
	stats.DailyAverageSeconds = dailyAverage(total, first, now, s.loc)
	return stats, nil
}

// dailyAverage divides the all-time total by the whole calendar days
// elapsed between the first recorded activity day and today, at least
// one. First activity yesterday means one elapsed day, not two.
func dailyAverage(totalSeconds int64, first, now time.Time, loc *time.Location) int64 {
	firstDay := StartOfDay(first.In(loc))
	today := StartOfDay(now.In(loc))

	var days int64
	for d := firstDay; d.Before(today); d = d.AddDate(0, 0, 1) {
		days++
	}
	if days < 1 {
		days = 1
	}
	return totalSeconds / days
}
