package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"codetime/internal/app"
)

var (
	statsProject  string
	statsDays     int
	statsHeatmap  bool
	statsHourly   bool
	statsByHour   bool
	statsBuckets  bool
	statsLangs    int
	statsProjects int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show coding time statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsProject, "project", "", "restrict the all-time total to one project")
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "range for breakdowns, counted back from now")
	statsCmd.Flags().BoolVar(&statsHeatmap, "heatmap", false, "print per-day totals for the range")
	statsCmd.Flags().BoolVar(&statsHourly, "hourly", false, "print the average per hour of the day")
	statsCmd.Flags().BoolVar(&statsByHour, "weekday-hours", false, "print weekday x hour averages over all data")
	statsCmd.Flags().BoolVar(&statsBuckets, "time-of-day", false, "print totals per six-hour day segment")
	statsCmd.Flags().IntVar(&statsLangs, "languages", 5, "how many languages to list (0 disables)")
	statsCmd.Flags().IntVar(&statsProjects, "projects", 5, "how many projects to list (0 disables)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Shutdown()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	end := time.Now()
	start := end.AddDate(0, 0, -statsDays)

	printSummary(out, application, ctx)

	if statsProject != "" {
		total, err := application.Stats().TotalCodingTime(ctx, statsProject)
		if err != nil {
			return err
		}
		recent, err := application.Stats().CodingTimeForRange(ctx, start, end, statsProject)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nProject %s: %s all-time, %s in the last %d days\n",
			statsProject, formatSeconds(total), formatSeconds(recent), statsDays)
	}

	streaks, err := application.Stats().CodingStreaks(ctx, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nStreak: %d day(s) current, %d day(s) longest\n", streaks.Current, streaks.Longest)

	if statsLangs > 0 {
		if err := printLanguages(out, application, ctx, start, end); err != nil {
			return err
		}
	}
	if statsProjects > 0 {
		if err := printProjects(out, application, ctx, start, end); err != nil {
			return err
		}
	}
	if statsHeatmap {
		if err := printHeatmap(out, application, ctx, start, end); err != nil {
			return err
		}
	}
	if statsHourly {
		if err := printHourly(out, application, ctx, start, end); err != nil {
			return err
		}
	}
	if statsByHour {
		if err := printWeekdayHours(out, application, ctx); err != nil {
			return err
		}
	}
	if statsBuckets {
		if err := printTimeOfDay(out, application, ctx, start, end); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(out io.Writer, application *app.App, ctx context.Context) {
	summary := application.Stats().Summary(ctx)
	fmt.Fprintf(out, "Today:  %s\n", formatSeconds(summary.TodaySeconds))
	fmt.Fprintf(out, "Week:   %s\n", formatSeconds(summary.WeekSeconds))
	fmt.Fprintf(out, "Month:  %s\n", formatSeconds(summary.MonthSeconds))
	fmt.Fprintf(out, "Year:   %s\n", formatSeconds(summary.YearSeconds))
	fmt.Fprintf(out, "Total:  %s (avg %s/day)\n",
		formatSeconds(summary.TotalSeconds), formatSeconds(summary.DailyAverageSeconds))
}

func printLanguages(out io.Writer, application *app.App, ctx context.Context, start, end time.Time) error {
	languages, err := application.Stats().LanguageDistribution(ctx, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTop languages (last %d days):\n", statsDays)
	for i, usage := range languages {
		if i >= statsLangs {
			break
		}
		fmt.Fprintf(out, "  %-16s %s\n", usage.Language, formatSeconds(usage.TotalSeconds))
	}
	return nil
}

func printProjects(out io.Writer, application *app.App, ctx context.Context, start, end time.Time) error {
	projects, err := application.Stats().ProjectDistribution(ctx, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTop projects (last %d days):\n", statsDays)
	for i, usage := range projects {
		if i >= statsProjects {
			break
		}
		fmt.Fprintf(out, "  %-24s %s\n", usage.ProjectName, formatSeconds(usage.TotalSeconds))
	}
	return nil
}

func printHeatmap(out io.Writer, application *app.App, ctx context.Context, start, end time.Time) error {
	days, err := application.Stats().DailyCodingTimeForHeatmap(ctx, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nDaily totals:\n")
	for _, day := range days {
		fmt.Fprintf(out, "  %s  %s\n", day.Date, formatSeconds(day.TotalSeconds))
	}
	return nil
}

func printHourly(out io.Writer, application *app.App, ctx context.Context, start, end time.Time) error {
	hours, err := application.Stats().OverallHourlyDistribution(ctx, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nAverage per hour of day:\n")
	for _, usage := range hours {
		if usage.AverageSeconds == 0 {
			continue
		}
		fmt.Fprintf(out, "  %02d:00  %s\n", usage.Hour, formatSeconds(int64(usage.AverageSeconds)))
	}
	return nil
}

func printWeekdayHours(out io.Writer, application *app.App, ctx context.Context) error {
	cells, err := application.Stats().DailyHourDistribution(ctx, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nWeekday x hour averages:\n")
	for _, cell := range cells {
		if cell.AverageSeconds == 0 {
			continue
		}
		fmt.Fprintf(out, "  %-9s %02d:00  %s\n", cell.Weekday, cell.Hour, formatSeconds(int64(cell.AverageSeconds)))
	}
	return nil
}

func printTimeOfDay(out io.Writer, application *app.App, ctx context.Context, start, end time.Time) error {
	buckets, err := application.Stats().TimeOfDayDistribution(ctx, start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTime of day (last %d days):\n", statsDays)
	for _, usage := range buckets {
		fmt.Fprintf(out, "  %-8s %s\n", usage.Bucket, formatSeconds(usage.TotalSeconds))
	}
	return nil
}

// formatSeconds renders a duration as 3h24m or 52m or 31s.
func formatSeconds(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", hours, minutes)
}

