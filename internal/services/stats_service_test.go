package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codetime/internal/testutils"
	"codetime/internal/types"
)

// newStatsFixture pins the service to UTC and a fixed clock so range
// math in tests is deterministic.
func newStatsFixture(t *testing.T, now time.Time) (*StatsService, *MockRepository) {
	t.Helper()

	repo := NewMockRepository()
	stats := NewStatsService(repo, 0, nil)
	stats.loc = time.UTC
	stats.now = func() time.Time { return now }
	return stats, repo
}

func TestHeatmapSplitsSessionAtMidnight(t *testing.T) {
	now := testutils.Day(2026, time.March, 4)
	stats, repo := newStatsFixture(t, now)

	// 23:30 on the 2nd until 00:15 on the 3rd
	repo.Seed(testutils.SessionFixture("api", "Go",
		testutils.Day(2026, time.March, 2).Add(23*time.Hour+30*time.Minute), 45*time.Minute))

	days, err := stats.DailyCodingTimeForHeatmap(context.Background(),
		testutils.Day(2026, time.March, 1), testutils.Day(2026, time.March, 5))
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Equal(t, int64(30*60), days[0].TotalSeconds)
	assert.Equal(t, "2026-03-03", days[1].Date)
	assert.Equal(t, int64(15*60), days[1].TotalSeconds)
}

func TestHeatmapClipsAtQueryBoundaries(t *testing.T) {
	now := testutils.Day(2026, time.March, 4)
	stats, repo := newStatsFixture(t, now)

	// Crosses into the queried range by 20 minutes only
	repo.Seed(testutils.SessionFixture("api", "Go",
		testutils.Day(2026, time.March, 1).Add(23*time.Hour+40*time.Minute), time.Hour))

	days, err := stats.DailyCodingTimeForHeatmap(context.Background(),
		testutils.Day(2026, time.March, 2), testutils.Day(2026, time.March, 3))
	require.NoError(t, err)
	require.Len(t, days, 1)

	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Equal(t, int64(40*60), days[0].TotalSeconds)
}

func TestHeatmapConservesTotalSeconds(t *testing.T) {
	now := testutils.Day(2026, time.March, 10)
	stats, repo := newStatsFixture(t, now)

	var want int64
	base := testutils.Day(2026, time.March, 2)
	durations := []time.Duration{25 * time.Minute, 3 * time.Hour, 45 * time.Minute, 90 * time.Minute}
	for i, d := range durations {
		repo.Seed(testutils.SessionFixture("api", "Go", base.Add(time.Duration(i)*26*time.Hour+22*time.Hour), d))
		want += int64(d.Seconds())
	}

	days, err := stats.DailyCodingTimeForHeatmap(context.Background(),
		base, base.AddDate(0, 0, 8))
	require.NoError(t, err)

	var got int64
	for _, day := range days {
		got += day.TotalSeconds
	}
	assert.Equal(t, want, got, "day-splitting must conserve the clipped total")
}

func TestCodingStreaks(t *testing.T) {
	now := testutils.Day(2026, time.March, 6).Add(12 * time.Hour) // Friday noon
	stats, repo := newStatsFixture(t, now)

	// Mar 1-3 run of three, then Mar 5-6 run of two (today)
	for _, day := range []int{1, 2, 3, 5, 6} {
		repo.Seed(testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, day).Add(9*time.Hour), 30*time.Minute))
	}

	streaks, err := stats.CodingStreaks(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 3, streaks.Longest)
	assert.Equal(t, 2, streaks.Current)
}

func TestCodingStreaksWindowedRange(t *testing.T) {
	now := testutils.Day(2026, time.March, 6).Add(12 * time.Hour)
	stats, repo := newStatsFixture(t, now)

	for _, day := range []int{1, 2, 3, 5, 6} {
		repo.Seed(testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, day).Add(9*time.Hour), 30*time.Minute))
	}

	// A window ending before the recent run sees only the Mar 1-3 days
	streaks, err := stats.CodingStreaks(context.Background(),
		testutils.Day(2026, time.March, 1), testutils.Day(2026, time.March, 4))
	require.NoError(t, err)
	assert.Equal(t, 3, streaks.Longest)
	assert.Equal(t, 0, streaks.Current, "last windowed day is not today or yesterday")

	// The open-ended view still sees the run ending today
	streaks, err = stats.CodingStreaks(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, streaks.Current)
}

func TestCodingStreaksCurrentSurvivesOvernight(t *testing.T) {
	// Last activity yesterday still counts as a live streak
	now := testutils.Day(2026, time.March, 7).Add(8 * time.Hour)
	stats, repo := newStatsFixture(t, now)

	for _, day := range []int{5, 6} {
		repo.Seed(testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, day).Add(9*time.Hour), 30*time.Minute))
	}

	streaks, err := stats.CodingStreaks(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, streaks.Current)
}

func TestCodingStreaksCurrentDiesAfterSkippedDay(t *testing.T) {
	now := testutils.Day(2026, time.March, 9).Add(8 * time.Hour)
	stats, repo := newStatsFixture(t, now)

	for _, day := range []int{5, 6} {
		repo.Seed(testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, day).Add(9*time.Hour), 30*time.Minute))
	}

	streaks, err := stats.CodingStreaks(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, streaks.Current)
	assert.Equal(t, 2, streaks.Longest)
}

func TestCodingStreaksEmpty(t *testing.T) {
	stats, _ := newStatsFixture(t, testutils.Day(2026, time.March, 9))

	streaks, err := stats.CodingStreaks(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Zero(t, streaks.Current)
	assert.Zero(t, streaks.Longest)
}

func TestDailyHourDistributionNormalizesPerWeekdayOccurrence(t *testing.T) {
	now := testutils.Day(2026, time.March, 16)
	stats, repo := newStatsFixture(t, now)

	// Range spans Mon Mar 2 through Mon Mar 9: two Mondays. One hour
	// of coding at 09:00 on the first Monday only.
	repo.Seed(
		testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, 2).Add(9*time.Hour), time.Hour),
		testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, 9).Add(14*time.Hour), 30*time.Minute),
	)

	cells, err := stats.DailyHourDistribution(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, cells, 7*24)

	byCell := make(map[[2]int]float64, len(cells))
	for _, cell := range cells {
		byCell[[2]int{int(cell.Weekday), cell.Hour}] = cell.AverageSeconds
	}

	assert.InDelta(t, 1800.0, byCell[[2]int{int(time.Monday), 9}], 0.01,
		"one hour over two Mondays averages to half an hour")
	assert.InDelta(t, 900.0, byCell[[2]int{int(time.Monday), 14}], 0.01)
	assert.Zero(t, byCell[[2]int{int(time.Tuesday), 9}])
}

func TestDailyHourDistributionExplicitRange(t *testing.T) {
	now := testutils.Day(2026, time.March, 16)
	stats, repo := newStatsFixture(t, now)

	// One hour on each of two Mondays
	repo.Seed(
		testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, 2).Add(9*time.Hour), time.Hour),
		testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, 9).Add(9*time.Hour), time.Hour),
	)

	// A window covering only the first Monday has one occurrence
	cells, err := stats.DailyHourDistribution(context.Background(),
		testutils.Day(2026, time.March, 2), testutils.Day(2026, time.March, 7))
	require.NoError(t, err)

	for _, cell := range cells {
		if cell.Weekday == time.Monday && cell.Hour == 9 {
			assert.Equal(t, float64(3600), cell.AverageSeconds)
		}
	}
}

func TestDailyHourDistributionEmptyDatabase(t *testing.T) {
	stats, _ := newStatsFixture(t, testutils.Day(2026, time.March, 16))

	cells, err := stats.DailyHourDistribution(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestOverallHourlyDistributionExplicitRange(t *testing.T) {
	now := testutils.Day(2026, time.March, 16)
	stats, repo := newStatsFixture(t, now)

	// One hour at 09:00 on one of the four queried days
	repo.Seed(testutils.SessionFixture("api", "Go",
		testutils.Day(2026, time.March, 2).Add(9*time.Hour), time.Hour))

	hours, err := stats.OverallHourlyDistribution(context.Background(),
		testutils.Day(2026, time.March, 2), testutils.Day(2026, time.March, 6))
	require.NoError(t, err)
	require.Len(t, hours, 24)

	assert.InDelta(t, 900.0, hours[9].AverageSeconds, 0.01,
		"explicit range divides by calendar days spanned")
	assert.Zero(t, hours[10].AverageSeconds)
}

func TestOverallHourlyDistributionOpenEndedUsesActiveDays(t *testing.T) {
	now := testutils.Day(2026, time.March, 16)
	stats, repo := newStatsFixture(t, now)

	// Two active days far apart; open-ended averages over active days
	repo.Seed(
		testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, 2).Add(9*time.Hour), time.Hour),
		testutils.SessionFixture("api", "Go",
			testutils.Day(2026, time.March, 12).Add(9*time.Hour), time.Hour),
	)

	hours, err := stats.OverallHourlyDistribution(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 3600.0, hours[9].AverageSeconds, 0.01,
		"open-ended divides by distinct active days, not elapsed days")
}

func TestLanguageDistributionSortsDescending(t *testing.T) {
	now := testutils.Day(2026, time.March, 4)
	stats, repo := newStatsFixture(t, now)

	base := testutils.Day(2026, time.March, 2)
	repo.Seed(
		testutils.SessionFixture("api", "Go", base.Add(9*time.Hour), 2*time.Hour),
		testutils.SessionFixture("web", "TypeScript", base.Add(12*time.Hour), 30*time.Minute),
		testutils.SessionFixture("scripts", "Python", base.Add(15*time.Hour), time.Hour),
	)

	languages, err := stats.LanguageDistribution(context.Background(), base, base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, languages, 3)

	assert.Equal(t, "Go", languages[0].Language)
	assert.Equal(t, int64(7200), languages[0].TotalSeconds)
	assert.Equal(t, "Python", languages[1].Language)
	assert.Equal(t, "TypeScript", languages[2].Language)
}

func TestProjectDistributionClipsToRange(t *testing.T) {
	now := testutils.Day(2026, time.March, 4)
	stats, repo := newStatsFixture(t, now)

	day := testutils.Day(2026, time.March, 2)
	// 23:00 until 01:00 next day; only the first hour is in range
	repo.Seed(testutils.SessionFixture("api", "Go", day.Add(23*time.Hour), 2*time.Hour))

	projects, err := stats.ProjectDistribution(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, int64(3600), projects[0].TotalSeconds)
}

func TestTimeOfDayDistribution(t *testing.T) {
	now := testutils.Day(2026, time.March, 4)
	stats, repo := newStatsFixture(t, now)

	day := testutils.Day(2026, time.March, 2)
	repo.Seed(
		// 05:30-06:30 straddles night and morning
		testutils.SessionFixture("api", "Go", day.Add(5*time.Hour+30*time.Minute), time.Hour),
		// solidly daytime
		testutils.SessionFixture("api", "Go", day.Add(13*time.Hour), 2*time.Hour),
		// evening
		testutils.SessionFixture("api", "Go", day.Add(20*time.Hour), 30*time.Minute),
	)

	buckets, err := stats.TimeOfDayDistribution(context.Background(), day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, buckets, 4)

	assert.Equal(t, int64(1800), buckets[types.TimeOfDayNight].TotalSeconds)
	assert.Equal(t, int64(1800), buckets[types.TimeOfDayMorning].TotalSeconds)
	assert.Equal(t, int64(7200), buckets[types.TimeOfDayDaytime].TotalSeconds)
	assert.Equal(t, int64(1800), buckets[types.TimeOfDayEvening].TotalSeconds)
}

func TestCodingTimeForPeriod(t *testing.T) {
	now := testutils.Day(2026, time.March, 4).Add(15 * time.Hour) // Wednesday
	stats, repo := newStatsFixture(t, now)

	repo.Seed(
		// inside this ISO week (Mon Mar 2)
		testutils.SessionFixture("api", "Go", testutils.Day(2026, time.March, 3).Add(9*time.Hour), time.Hour),
		// previous week
		testutils.SessionFixture("api", "Go", testutils.Day(2026, time.February, 27).Add(9*time.Hour), time.Hour),
	)

	week, err := stats.CodingTimeForPeriod(context.Background(), PeriodWeek, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), week)

	month, err := stats.CodingTimeForPeriod(context.Background(), PeriodMonth, now)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), month)

	year, err := stats.CodingTimeForPeriod(context.Background(), PeriodYear, now)
	require.NoError(t, err)
	assert.Equal(t, int64(7200), year)
}

func TestCodingTimeForRangeClipsAndFilters(t *testing.T) {
	now := testutils.Day(2026, time.March, 4).Add(15 * time.Hour)
	stats, repo := newStatsFixture(t, now)

	repo.Seed(
		// straddles the range start, 30 minutes inside
		testutils.SessionFixture("api", "Go", testutils.Day(2026, time.March, 1).Add(23*time.Hour+30*time.Minute), time.Hour),
		// fully inside
		testutils.SessionFixture("api", "Go", testutils.Day(2026, time.March, 2).Add(9*time.Hour), time.Hour),
		// other project, fully inside
		testutils.SessionFixture("web", "TypeScript", testutils.Day(2026, time.March, 2).Add(11*time.Hour), 2*time.Hour),
	)

	start := testutils.Day(2026, time.March, 2)
	end := testutils.Day(2026, time.March, 3)

	all, err := stats.CodingTimeForRange(context.Background(), start, end, "")
	require.NoError(t, err)
	assert.Equal(t, int64(30*60+3600+7200), all)

	api, err := stats.CodingTimeForRange(context.Background(), start, end, "api")
	require.NoError(t, err)
	assert.Equal(t, int64(30*60+3600), api)
}

func TestDistributionsAcceptOpenEndedBounds(t *testing.T) {
	now := testutils.Day(2026, time.March, 4)
	stats, repo := newStatsFixture(t, now)

	repo.Seed(
		testutils.SessionFixture("api", "Go", testutils.Day(2026, time.March, 2).Add(13*time.Hour), 2*time.Hour),
		testutils.SessionFixture("web", "TypeScript", testutils.Day(2026, time.February, 20).Add(9*time.Hour), time.Hour),
	)

	buckets, err := stats.TimeOfDayDistribution(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	assert.Equal(t, int64(7200), buckets[types.TimeOfDayDaytime].TotalSeconds)
	assert.Equal(t, int64(3600), buckets[types.TimeOfDayMorning].TotalSeconds)

	languages, err := stats.LanguageDistribution(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, languages, 2)
	assert.Equal(t, "Go", languages[0].Language)

	projects, err := stats.ProjectDistribution(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestDistributionsEmptyDatabaseOpenEnded(t *testing.T) {
	stats, _ := newStatsFixture(t, testutils.Day(2026, time.March, 4))

	buckets, err := stats.TimeOfDayDistribution(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	for _, usage := range buckets {
		assert.Zero(t, usage.TotalSeconds)
	}

	languages, err := stats.LanguageDistribution(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, languages)
}

func TestSummaryStrategiesAgree(t *testing.T) {
	now := testutils.Day(2026, time.March, 4).Add(18 * time.Hour)
	_, repo := newStatsFixture(t, now)

	repo.Seed(
		testutils.SessionFixture("api", "Go", testutils.Day(2026, time.March, 4).Add(9*time.Hour), 2*time.Hour),
		testutils.SessionFixture("api", "Go", testutils.Day(2026, time.March, 1).Add(9*time.Hour), time.Hour),
		testutils.SessionFixture("api", "Go", testutils.Day(2026, time.February, 10).Add(9*time.Hour), 3*time.Hour),
	)

	inMem := &inMemorySummary{repo: repo, loc: time.UTC}
	pushdown := &pushdownSummary{repo: repo, loc: time.UTC}

	a, err := inMem.summarize(context.Background(), now)
	require.NoError(t, err)
	b, err := pushdown.summarize(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, a, b, "both summary strategies must produce identical figures")
	assert.Equal(t, int64(2*3600), a.TodaySeconds)
	assert.Equal(t, int64(2*3600), a.WeekSeconds, "March 1st is a Sunday of the previous ISO week")
	assert.Equal(t, int64(3*3600), a.MonthSeconds)
	assert.Equal(t, int64(6*3600), a.YearSeconds)
	assert.Equal(t, int64(6*3600), a.TotalSeconds)

	// 22 whole days elapsed between Feb 10 and Mar 4
	assert.Equal(t, int64(6*3600/22), a.DailyAverageSeconds)
}

func TestDailyAverageCountsElapsedDays(t *testing.T) {
	yesterday := testutils.Day(2026, time.March, 3).Add(10 * time.Hour)
	today := testutils.Day(2026, time.March, 4).Add(12 * time.Hour)

	// First activity yesterday: one elapsed day, not two
	assert.Equal(t, int64(3600), dailyAverage(3600, yesterday, today, time.UTC))

	// First activity earlier today: clamped to one day
	assert.Equal(t, int64(3600), dailyAverage(3600, today.Add(-2*time.Hour), today, time.UTC))

	// A week of history
	assert.Equal(t, int64(3600), dailyAverage(7*3600, testutils.Day(2026, time.February, 25), today, time.UTC))
}

func TestSummaryReturnsZerosOnFailure(t *testing.T) {
	now := testutils.Day(2026, time.March, 4)
	stats, repo := newStatsFixture(t, now)
	repo.SetFailureModes(false, true, false)

	summary := stats.Summary(context.Background())
	assert.Zero(t, summary.TotalSeconds)
	assert.Zero(t, summary.TodaySeconds)
	assert.Zero(t, summary.DailyAverageSeconds)
}

func TestSummaryEmptyDatabase(t *testing.T) {
	now := testutils.Day(2026, time.March, 4)
	stats, _ := newStatsFixture(t, now)

	summary := stats.Summary(context.Background())
	assert.Equal(t, types.SummaryStatistics{}, summary)
}
