package migrations

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// uesTables lists every table 001_init creates.
var uesTables = []string{
	"ues_teams",
	"ues_competitions",
	"ues_seasons",
	"ues_players",
	"ues_matches",
	"source_lineage",
	"llm_match_reviews",
	"pipeline_run_metrics",
	"anomaly_events",
	"anomaly_triage_reports",
	"quality_gate_results",
}

func TestRunner_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("uniscore_migrations_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	runner, err := NewRunner(databaseURL, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = runner.Close() })

	require.NoError(t, runner.Up())

	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Up is idempotent.
	require.NoError(t, runner.Up())

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range uesTables {
		var exists bool
		require.NoError(t, db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)",
			table,
		).Scan(&exists))
		assert.True(t, exists, table)
	}

	require.NoError(t, runner.Down())

	version, _, err = runner.Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	var exists bool
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'ues_teams')",
	).Scan(&exists))
	assert.False(t, exists, "down migration drops the schema")
}
