package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the UES database schema",
	Long:  `Applies or rolls back the embedded UES schema migrations against UES_DB_URL.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Args:  cobra.NoArgs,
	Short: "Apply all pending migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withRunner(func(runner *migrations.Runner) error {
			return runner.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Args:  cobra.NoArgs,
	Short: "Roll back the most recent migration",
	RunE: func(_ *cobra.Command, _ []string) error {
		return withRunner(func(runner *migrations.Runner) error {
			return runner.Down()
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Args:  cobra.NoArgs,
	Short: "Show the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(func(runner *migrations.Runner) error {
			version, dirty, err := runner.Version()
			if err != nil {
				return err
			}

			cmd.Printf("version: %d dirty: %t\n", version, dirty)

			return nil
		})
	},
}

var migrateDropCmd = &cobra.Command{
	Use:   "drop",
	Args:  cobra.NoArgs,
	Short: "Drop every table (destructive, requires --yes)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			return fmt.Errorf("refusing to drop all tables without --yes")
		}

		return withRunner(func(runner *migrations.Runner) error {
			return runner.Drop()
		})
	},
}

func init() {
	migrateDropCmd.Flags().Bool("yes", false, "confirm the drop")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	migrateCmd.AddCommand(migrateDropCmd)
}

func withRunner(fn func(runner *migrations.Runner) error) error {
	url := config.GetEnvStr(uesDBEnvVar, "")
	if url == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingDatabaseURL, uesDBEnvVar)
	}

	runner, err := migrations.NewRunner(url, newLogger())
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	return fn(runner)
}
