package cmd

import (
	"github.com/spf13/cobra"

	"codetime/internal/app"
)

var (
	configFile  string
	environment string
)

var rootCmd = &cobra.Command{
	Use:   "codetime",
	Short: "Track and analyze coding time per project and language",
	Long: `codetime records coding sessions from editor file activity,
stores them in a local SQLite database and answers questions about
where the time went: totals, streaks, heatmaps and per-language or
per-project breakdowns.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&environment, "env", "production", "configuration profile (development, production, test)")
}

// newApp assembles the application from the shared flags.
func newApp() (*app.App, error) {
	return app.New(app.Options{
		ConfigFile:  configFile,
		Environment: environment,
	})
}
