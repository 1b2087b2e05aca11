package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spiralshops/relevance/config"
	"github.com/spiralshops/relevance/internal/logging"
)

var (
	cfg      *config.Config
	logLevel string
)

// rootCmd runs the server when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "relevance",
	Short: "Search relevance and recommendation engine for the Spiral marketplace",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded

		logging.Init(logging.Config{
			Level:     cfg.Log.Level,
			Format:    cfg.Log.Format,
			Caller:    cfg.Server.Environment == "development",
			Timestamp: true,
			Output:    os.Stdout,
		})
		return nil
	},
	RunE: runServe,
}

func init() {
	time.Local = time.UTC
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVarP(
		&logLevel,
		"log-level", "l",
		"",
		"override the configured log level | example: --log-level=debug",
	)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
