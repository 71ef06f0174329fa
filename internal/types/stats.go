package types

import "time"

// DailySummary is the per-calendar-day total used by heatmaps.
// Date is formatted as 2006-01-02 in the query's location.
type DailySummary struct {
	Date         string `json:"date"`
	TotalSeconds int64  `json:"totalSeconds"`
}

// HourlyUsage is the average coding time for one hour of the day.
type HourlyUsage struct {
	Hour           int     `json:"hour"` // 0-23
	AverageSeconds float64 `json:"averageSeconds"`
}

// WeekdayHourUsage is the average coding time for one (weekday, hour)
// cell, normalized by how often that weekday occurred in range.
type WeekdayHourUsage struct {
	Weekday        time.Weekday `json:"weekday"`
	Hour           int          `json:"hour"`
	AverageSeconds float64      `json:"averageSeconds"`
}

// LanguageUsage is the total coding time attributed to one language.
type LanguageUsage struct {
	Language     string `json:"language"`
	TotalSeconds int64  `json:"totalSeconds"`
}

// ProjectUsage is the total coding time attributed to one project.
type ProjectUsage struct {
	ProjectName  string `json:"projectName"`
	TotalSeconds int64  `json:"totalSeconds"`
}

// TimeOfDayBucket is one of the four fixed six-hour day segments.
type TimeOfDayBucket int

const (
	TimeOfDayNight   TimeOfDayBucket = iota // 00:00-06:00
	TimeOfDayMorning                        // 06:00-12:00
	TimeOfDayDaytime                        // 12:00-18:00
	TimeOfDayEvening                        // 18:00-24:00
)

func (b TimeOfDayBucket) String() string {
	switch b {
	case TimeOfDayNight:
		return "Night"
	case TimeOfDayMorning:
		return "Morning"
	case TimeOfDayDaytime:
		return "Daytime"
	case TimeOfDayEvening:
		return "Evening"
	default:
		return "Unknown"
	}
}

// TimeOfDayUsage is the total coding time inside one day segment.
type TimeOfDayUsage struct {
	Bucket       TimeOfDayBucket `json:"bucket"`
	TotalSeconds int64           `json:"totalSeconds"`
}

// CodingStreaks holds the consecutive-day run lengths for a range.
// Current is zero unless the most recent coding day is today or
// yesterday.
type CodingStreaks struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// SummaryStatistics is the aggregate figure set shown on dashboards.
type SummaryStatistics struct {
	TodaySeconds        int64 `json:"todaySeconds"`
	WeekSeconds         int64 `json:"weekSeconds"`
	MonthSeconds        int64 `json:"monthSeconds"`
	YearSeconds         int64 `json:"yearSeconds"`
	TotalSeconds        int64 `json:"totalSeconds"`
	DailyAverageSeconds int64 `json:"dailyAverageSeconds"`
}

// LiveCounters are the resettable display counters the tracker keeps
// for immediate UI feedback, independent of persisted data.
type LiveCounters struct {
	TodaySeconds int64 `json:"todaySeconds"`
	WeekSeconds  int64 `json:"weekSeconds"`
	MonthSeconds int64 `json:"monthSeconds"`
	YearSeconds  int64 `json:"yearSeconds"`
}
