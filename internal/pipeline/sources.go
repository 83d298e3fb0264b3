package pipeline

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uniscore-io/uniscore/internal/source"
)

// DBSources snapshots the ALPHA and BETA Postgres databases through the
// typed source loaders.
type DBSources struct {
	alpha *source.AlphaLoader
	beta  *source.BetaLoader
}

var _ Sources = (*DBSources)(nil)

// NewDBSources builds loaders over the two open source databases.
func NewDBSources(alphaDB, betaDB *sql.DB) (*DBSources, error) {
	alpha, err := source.NewAlphaLoader(alphaDB)
	if err != nil {
		return nil, fmt.Errorf("create ALPHA loader: %w", err)
	}

	beta, err := source.NewBetaLoader(betaDB)
	if err != nil {
		return nil, fmt.Errorf("create BETA loader: %w", err)
	}

	return &DBSources{alpha: alpha, beta: beta}, nil
}

// LoadAlpha reads the full ALPHA snapshot.
func (s *DBSources) LoadAlpha(ctx context.Context) (*source.AlphaSnapshot, error) {
	return s.alpha.LoadSnapshot(ctx)
}

// LoadBeta reads the full BETA snapshot.
func (s *DBSources) LoadBeta(ctx context.Context) (*source.BetaSnapshot, error) {
	return s.beta.LoadSnapshot(ctx)
}
