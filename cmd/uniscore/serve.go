package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/uniscore-io/uniscore/internal/api"
	"github.com/uniscore-io/uniscore/internal/api/middleware"
	"github.com/uniscore-io/uniscore/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Args:  cobra.NoArgs,
	Short: "Run the uniscore HTTP API server",
	Long: `Starts the HTTP API: UES entity and lineage reads, review workflow,
run monitoring and the mapping-run trigger. Admin endpoints require the key
named by INTERNAL_API_KEY.`,
	RunE: runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := newLogger()

	eng, err := buildEngine(logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	serverConfig := api.LoadServerConfig()

	logger.Info("loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	var verifier middleware.KeyVerifier

	if key := config.GetEnvStr("INTERNAL_API_KEY", ""); key != "" {
		internal, err := middleware.NewInternalKeyVerifier(key)
		if err != nil {
			return err
		}

		verifier = internal
	}

	limiter := middleware.NewInMemoryRateLimiter(middleware.RateLimitConfig{
		GlobalRPS: config.GetEnvInt("UNISCORE_RATE_LIMIT_GLOBAL_RPS", 0),
		ClientRPS: config.GetEnvInt("UNISCORE_RATE_LIMIT_CLIENT_RPS", 0),
	})

	server := api.NewServer(serverConfig, api.Deps{
		Store:       eng.store,
		Runner:      eng.pipeline,
		RateLimiter: limiter,
		KeyVerifier: verifier,
	})

	return server.Start()
}
