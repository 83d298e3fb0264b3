// Package main provides the uniscore CLI: the entity-resolution engine that
// reconciles the ALPHA and BETA football sources into the Unified Entity
// Store. Subcommands serve the HTTP API, execute mapping runs, manage the
// UES schema and seed the synthetic source databases.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/uniscore-io/uniscore/internal/config"
)

var version = "dev" // set by build flags

var rootCmd = &cobra.Command{
	Use:     "uniscore",
	Short:   "Unified Entity Store resolution engine",
	Long: `uniscore reconciles the ALPHA and BETA football databases into a
Unified Entity Store: five matching stages (teams, competitions, seasons,
players, matches), LLM-assisted gray-zone validation, anomaly detection and
run-level quality gates.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// newLogger builds the process-wide JSON logger, level from LOG_LEVEL.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
