package api

import (
	"context"

	"github.com/uniscore-io/uniscore/internal/pipeline"
	"github.com/uniscore-io/uniscore/internal/qa"
	"github.com/uniscore-io/uniscore/internal/store"
	"github.com/uniscore-io/uniscore/internal/ues"
)

// Compile-time checks that the concrete implementations satisfy the server's
// dependency interfaces.
var (
	_ Store         = (*store.Store)(nil)
	_ MappingRunner = (*pipeline.Pipeline)(nil)
)

type (
	// Store is the persistence surface the API reads and mutates. The
	// Postgres store implements it. Embedding qa.ReportSource lets the
	// monitoring handler hand the store straight to qa.BuildReport.
	Store interface {
		qa.ReportSource

		// HealthCheck verifies the database connection for readiness probes.
		HealthCheck(ctx context.Context) error

		// GetPlayer returns the canonical player for a UES id.
		GetPlayer(ctx context.Context, uesPlayerID string) (ues.Player, error)

		// PlayerLineage returns the flat lineage rows for a player.
		PlayerLineage(ctx context.Context, uesPlayerID string) ([]store.LineageRow, error)

		// LookupPlayerUESID resolves a source-local player id to its UES id.
		LookupPlayerUESID(ctx context.Context, sourceSystem, sourceID string) (string, error)

		// ListReviews returns review rows, newest first, optionally filtered
		// by status.
		ListReviews(ctx context.Context, status string, limit int) ([]store.ReviewRecord, error)

		// GetReview returns a single review row by id.
		GetReview(ctx context.Context, id int64) (store.ReviewRecord, error)

		// UpdateReviewStatus transitions a review row to the given status.
		UpdateReviewStatus(ctx context.Context, id int64, status string) error

		// GateResultForRun returns the persisted gate verdict for a run; the
		// boolean reports whether one exists.
		GateResultForRun(ctx context.Context, runID string) (qa.GateResult, bool, error)
	}

	// MappingRunner executes a full mapping run. The pipeline implements it.
	MappingRunner interface {
		Run(ctx context.Context) (*pipeline.RunResult, error)
	}
)
