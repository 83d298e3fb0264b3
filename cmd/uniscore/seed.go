package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/uniscore-io/uniscore/internal/synthetic"
)

var (
	seedAlphaOnly bool
	seedBetaOnly  bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Args:  cobra.NoArgs,
	Short: "Seed the source databases with synthetic data",
	Long: `Creates the ALPHA and BETA source schemas if needed and replaces
their contents with the deterministic synthetic fixtures.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedAlphaOnly, "alpha-only", false, "seed only the ALPHA source")
	seedCmd.Flags().BoolVar(&seedBetaOnly, "beta-only", false, "seed only the BETA source")
	seedCmd.MarkFlagsMutuallyExclusive("alpha-only", "beta-only")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	ctx := cmd.Context()

	if !seedBetaOnly {
		db, err := openSourceDB(alphaDBEnvVar)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := synthetic.SeedAlpha(ctx, db); err != nil {
			return err
		}

		logger.Info("seeded ALPHA source", slog.String("database", alphaDBEnvVar))
	}

	if !seedAlphaOnly {
		db, err := openSourceDB(betaDBEnvVar)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := synthetic.SeedBeta(ctx, db); err != nil {
			return err
		}

		logger.Info("seeded BETA source", slog.String("database", betaDBEnvVar))
	}

	return nil
}
