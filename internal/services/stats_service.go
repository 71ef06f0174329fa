package services

import (
	"context"
	"sort"
	"time"

	apperrors "codetime/internal/infrastructure/errors"
	"codetime/internal/infrastructure/logging"
	"codetime/internal/repository"
	"codetime/internal/types"
)

// DefaultSummaryPushdownThreshold is the session count at which the
// summary switches from the in-memory pass to SQL aggregation.
const DefaultSummaryPushdownThreshold = 20000

// StatsService is the read side: it turns persisted sessions into the
// aggregate views. All range math clips sessions at the range
// boundaries so overlapping queries never double-count.
type StatsService struct {
	repo              repository.SessionRepository
	logger            logging.Logger
	loc               *time.Location
	now               func() time.Time
	pushdownThreshold int64
}

// NewStatsService builds a stats service over the given repository.
// A threshold <= 0 falls back to the default.
func NewStatsService(repo repository.SessionRepository, pushdownThreshold int64, logger logging.Logger) *StatsService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if pushdownThreshold <= 0 {
		pushdownThreshold = DefaultSummaryPushdownThreshold
	}
	return &StatsService{
		repo:              repo,
		logger:            logger,
		loc:               time.Local,
		now:               time.Now,
		pushdownThreshold: pushdownThreshold,
	}
}

// TotalCodingTime returns the all-time coded seconds, optionally for a
// single project.
func (s *StatsService) TotalCodingTime(ctx context.Context, projectFilter string) (int64, error) {
	total, err := s.repo.TotalDurationSeconds(ctx, projectFilter)
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "TotalCodingTime", nil)
		return 0, err
	}
	return total, nil
}

// CodingTimeForPeriod returns the clipped seconds inside the calendar
// period containing ref.
func (s *StatsService) CodingTimeForPeriod(ctx context.Context, kind PeriodKind, ref time.Time) (int64, error) {
	start := StartOfPeriod(kind, ref.In(s.loc))
	end := nextPeriodStart(kind, start)

	sum, err := s.repo.SumOverlapSeconds(ctx, start, end)
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "CodingTimeForPeriod", nil)
		return 0, err
	}
	return sum, nil
}

// CodingTimeForRange returns the clipped seconds inside an arbitrary
// [start, end), optionally restricted to one project. The candidate
// fetch uses the range indexes; clipping happens here because the
// project filter rules out the SQL sum path.
func (s *StatsService) CodingTimeForRange(ctx context.Context, start, end time.Time, projectFilter string) (int64, error) {
	sessions, err := s.repo.GetSessionsInRange(ctx, start, end, projectFilter)
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "CodingTimeForRange", nil)
		return 0, err
	}

	var total int64
	for i := range sessions {
		total += clipSeconds(sessions[i].StartTime, sessions[i].EndTime, start, end)
	}
	return total, nil
}

func nextPeriodStart(kind PeriodKind, start time.Time) time.Time {
	switch kind {
	case PeriodDay:
		return start.AddDate(0, 0, 1)
	case PeriodWeek:
		return start.AddDate(0, 0, 7)
	case PeriodMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(1, 0, 0)
	}
}

// DailyCodingTimeForHeatmap returns per-calendar-day totals inside
// [start, end), ascending by date. Days without activity are omitted.
func (s *StatsService) DailyCodingTimeForHeatmap(ctx context.Context, start, end time.Time) ([]types.DailySummary, error) {
	sessions, err := s.repo.GetSessionsInRange(ctx, start, end, "")
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "DailyCodingTimeForHeatmap", nil)
		return nil, err
	}

	totals := make(map[time.Time]int64)
	for _, session := range sessions {
		segStart, segEnd, ok := clipSpan(session.StartTime, session.EndTime, start, end)
		if !ok {
			continue
		}
		forEachDaySegment(segStart, segEnd, s.loc, func(day time.Time, seconds int64) {
			totals[day] += seconds
		})
	}

	days := make([]time.Time, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	result := make([]types.DailySummary, 0, len(days))
	for _, day := range days {
		result = append(result, types.DailySummary{
			Date:         day.Format("2006-01-02"),
			TotalSeconds: totals[day],
		})
	}
	return result, nil
}

// CodingStreaks returns the current and longest consecutive-day runs.
// Zero-valued bounds cover every recorded session; an explicit
// [start, end) counts only the days touched by clipped fragments.
func (s *StatsService) CodingStreaks(ctx context.Context, start, end time.Time) (types.CodingStreaks, error) {
	spans, err := s.repo.GetSessionSpans(ctx)
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "CodingStreaks", nil)
		return types.CodingStreaks{}, err
	}

	if !start.IsZero() || !end.IsZero() {
		clipped := make([]types.SessionSpan, 0, len(spans))
		for _, span := range spans {
			if segStart, segEnd, ok := clipSpan(span.Start, span.End, start, end); ok {
				clipped = append(clipped, types.SessionSpan{Start: segStart, End: segEnd})
			}
		}
		spans = clipped
	}
	return computeStreaks(activeDays(spans, s.loc), s.now(), s.loc), nil
}

// DailyHourDistribution returns the average seconds per (weekday,
// hour) cell. Zero-valued bounds cover the full recorded range. Each
// cell's denominator is the number of times its weekday occurred in
// the range, so a Monday cell averages over Mondays only.
func (s *StatsService) DailyHourDistribution(ctx context.Context, start, end time.Time) ([]types.WeekdayHourUsage, error) {
	start, end, ok, err := s.resolveRange(ctx, start, end)
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "DailyHourDistribution", nil)
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	sessions, err := s.repo.GetSessionsInRange(ctx, start, end, "")
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "DailyHourDistribution", nil)
		return nil, err
	}

	var totals [7][24]int64
	for _, session := range sessions {
		segStart, segEnd, clipped := clipSpan(session.StartTime, session.EndTime, start, end)
		if !clipped {
			continue
		}
		forEachHourSegment(segStart, segEnd, s.loc, func(hourStart time.Time, seconds int64) {
			totals[int(hourStart.Weekday())][hourStart.Hour()] += seconds
		})
	}

	occurrences := weekdayOccurrences(start, end, s.loc)

	result := make([]types.WeekdayHourUsage, 0, 7*24)
	for weekday := 0; weekday < 7; weekday++ {
		for hour := 0; hour < 24; hour++ {
			var avg float64
			if occurrences[weekday] > 0 {
				avg = float64(totals[weekday][hour]) / float64(occurrences[weekday])
			}
			result = append(result, types.WeekdayHourUsage{
				Weekday:        time.Weekday(weekday),
				Hour:           hour,
				AverageSeconds: avg,
			})
		}
	}
	return result, nil
}

// weekdayOccurrences counts how many of each weekday begin inside
// [start, end).
func weekdayOccurrences(start, end time.Time, loc *time.Location) [7]int {
	var counts [7]int
	for d := StartOfDay(start.In(loc)); d.Before(end.In(loc)); d = d.AddDate(0, 0, 1) {
		counts[int(d.Weekday())]++
	}
	return counts
}

// resolveRange substitutes the full recorded range for zero-valued
// bounds. ok is false when the store is empty and there is nothing to
// aggregate.
func (s *StatsService) resolveRange(ctx context.Context, start, end time.Time) (time.Time, time.Time, bool, error) {
	if !start.IsZero() || !end.IsZero() {
		return start, end, true, nil
	}

	first, last, err := s.repo.GetTimeBounds(ctx)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return time.Time{}, time.Time{}, false, nil
		}
		return time.Time{}, time.Time{}, false, err
	}
	return first, last.Add(time.Second), true, nil
}

// OverallHourlyDistribution returns average seconds per hour of the
// day. With an explicit range the denominator is the calendar days the
// range spans; with zero start and end it covers everything and
// averages over distinct active days instead.
func (s *StatsService) OverallHourlyDistribution(ctx context.Context, start, end time.Time) ([]types.HourlyUsage, error) {
	openEnded := start.IsZero() && end.IsZero()
	start, end, ok, err := s.resolveRange(ctx, start, end)
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "OverallHourlyDistribution", nil)
		return nil, err
	}
	if !ok {
		return emptyHourly(), nil
	}

	sessions, err := s.repo.GetSessionsInRange(ctx, start, end, "")
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "OverallHourlyDistribution", nil)
		return nil, err
	}

	var totals [24]int64
	activeDaySet := make(map[time.Time]struct{})
	for _, session := range sessions {
		segStart, segEnd, ok := clipSpan(session.StartTime, session.EndTime, start, end)
		if !ok {
			continue
		}
		forEachHourSegment(segStart, segEnd, s.loc, func(hourStart time.Time, seconds int64) {
			totals[hourStart.Hour()] += seconds
			activeDaySet[StartOfDay(hourStart)] = struct{}{}
		})
	}

	var days int
	if openEnded {
		days = len(activeDaySet)
	} else {
		days = daysSpanned(start, end, s.loc)
	}
	if days < 1 {
		days = 1
	}

	result := emptyHourly()
	for hour := 0; hour < 24; hour++ {
		result[hour].AverageSeconds = float64(totals[hour]) / float64(days)
	}
	return result, nil
}

func emptyHourly() []types.HourlyUsage {
	result := make([]types.HourlyUsage, 24)
	for hour := range result {
		result[hour].Hour = hour
	}
	return result
}

// LanguageDistribution returns clipped per-language totals in
// [start, end), largest first. Zero-valued bounds cover the full
// recorded range.
func (s *StatsService) LanguageDistribution(ctx context.Context, start, end time.Time) ([]types.LanguageUsage, error) {
	totals, err := s.rangeTotals(ctx, start, end, func(session *types.CodingSession) string {
		return session.Language
	})
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "LanguageDistribution", nil)
		return nil, err
	}

	result := make([]types.LanguageUsage, 0, len(totals))
	for language, seconds := range totals {
		result = append(result, types.LanguageUsage{Language: language, TotalSeconds: seconds})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalSeconds != result[j].TotalSeconds {
			return result[i].TotalSeconds > result[j].TotalSeconds
		}
		return result[i].Language < result[j].Language
	})
	return result, nil
}

// ProjectDistribution returns clipped per-project totals in
// [start, end), largest first. Zero-valued bounds cover the full
// recorded range.
func (s *StatsService) ProjectDistribution(ctx context.Context, start, end time.Time) ([]types.ProjectUsage, error) {
	totals, err := s.rangeTotals(ctx, start, end, func(session *types.CodingSession) string {
		return session.ProjectName
	})
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "ProjectDistribution", nil)
		return nil, err
	}

	result := make([]types.ProjectUsage, 0, len(totals))
	for project, seconds := range totals {
		result = append(result, types.ProjectUsage{ProjectName: project, TotalSeconds: seconds})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalSeconds != result[j].TotalSeconds {
			return result[i].TotalSeconds > result[j].TotalSeconds
		}
		return result[i].ProjectName < result[j].ProjectName
	})
	return result, nil
}

// TimeOfDayDistribution splits the range's coding time into the four
// six-hour day segments, returned in day order. Zero-valued bounds
// cover the full recorded range.
func (s *StatsService) TimeOfDayDistribution(ctx context.Context, start, end time.Time) ([]types.TimeOfDayUsage, error) {
	var totals [4]int64

	start, end, ok, err := s.resolveRange(ctx, start, end)
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "TimeOfDayDistribution", nil)
		return nil, err
	}
	if !ok {
		return timeOfDayRows(totals), nil
	}

	sessions, err := s.repo.GetSessionsInRange(ctx, start, end, "")
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "TimeOfDayDistribution", nil)
		return nil, err
	}
	for _, session := range sessions {
		segStart, segEnd, ok := clipSpan(session.StartTime, session.EndTime, start, end)
		if !ok {
			continue
		}
		forEachHourSegment(segStart, segEnd, s.loc, func(hourStart time.Time, seconds int64) {
			totals[bucketForHour(hourStart.Hour())] += seconds
		})
	}

	return timeOfDayRows(totals), nil
}

func timeOfDayRows(totals [4]int64) []types.TimeOfDayUsage {
	result := make([]types.TimeOfDayUsage, 4)
	for bucket := range result {
		result[bucket] = types.TimeOfDayUsage{
			Bucket:       types.TimeOfDayBucket(bucket),
			TotalSeconds: totals[bucket],
		}
	}
	return result
}

// Summary computes the dashboard figures, switching between the
// in-memory pass and SQL pushdown at the configured session count.
// It degrades to all zeros on any failure rather than erroring out.
func (s *StatsService) Summary(ctx context.Context) types.SummaryStatistics {
	count, err := s.repo.CountSessions(ctx)
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "Summary", nil)
		return types.SummaryStatistics{}
	}

	var strategy summaryStrategy
	if count < s.pushdownThreshold {
		strategy = &inMemorySummary{repo: s.repo, loc: s.loc}
	} else {
		strategy = &pushdownSummary{repo: s.repo, loc: s.loc}
	}

	stats, err := strategy.summarize(ctx, s.now())
	if err != nil {
		logging.LogRepositoryError(s.logger, err, "Summary", nil)
		return types.SummaryStatistics{}
	}
	return stats
}

// rangeTotals accumulates clipped seconds per key over [start, end).
// Zero-valued bounds cover the full recorded range.
func (s *StatsService) rangeTotals(ctx context.Context, start, end time.Time, keyOf func(*types.CodingSession) string) (map[string]int64, error) {
	start, end, ok, err := s.resolveRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]int64{}, nil
	}

	sessions, err := s.repo.GetSessionsInRange(ctx, start, end, "")
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for i := range sessions {
		session := &sessions[i]
		if seconds := clipSeconds(session.StartTime, session.EndTime, start, end); seconds > 0 {
			totals[keyOf(session)] += seconds
		}
	}
	return totals, nil
}

// clipSpan intersects [spanStart, spanEnd) with [rangeStart, rangeEnd)
// and reports whether anything remains.
func clipSpan(spanStart, spanEnd, rangeStart, rangeEnd time.Time) (time.Time, time.Time, bool) {
	if spanStart.Before(rangeStart) {
		spanStart = rangeStart
	}
	if spanEnd.After(rangeEnd) {
		spanEnd = rangeEnd
	}
	if !spanEnd.After(spanStart) {
		return time.Time{}, time.Time{}, false
	}
	return spanStart, spanEnd, true
}
