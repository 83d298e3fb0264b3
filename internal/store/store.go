package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uniscore-io/uniscore/internal/monitoring"
	"github.com/uniscore-io/uniscore/internal/pipeline"
	"github.com/uniscore-io/uniscore/internal/qa"
	"github.com/uniscore-io/uniscore/internal/ues"
)

// Sentinel errors for UES store operations.
var (
	// ErrWriteFailed is returned when a persistence operation fails.
	ErrWriteFailed = errors.New("ues write failed")

	// ErrReadFailed is returned when a query fails.
	ErrReadFailed = errors.New("ues read failed")

	// ErrPlayerNotFound is returned when no player exists for the given id.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrReviewNotFound is returned when no review row exists for the given id.
	ErrReviewNotFound = errors.New("review not found")

	// Compile-time interface assertions: the store serves the orchestrator,
	// the anomaly detector, the triager, the quality gates and the quality
	// report.
	_ pipeline.Store           = (*Store)(nil)
	_ monitoring.MetricsSource = (*Store)(nil)
	_ monitoring.TriageSource  = (*Store)(nil)
	_ qa.MetricsSource         = (*Store)(nil)
	_ qa.ReportSource          = (*Store)(nil)
)

// resetOrder lists the run-scoped tables wiped by Reset, child tables first.
var resetOrder = []string{
	"source_lineage",
	"ues_matches",
	"ues_players",
	"ues_seasons",
	"ues_competitions",
	"ues_teams",
	"llm_match_reviews",
	"pipeline_run_metrics",
	"anomaly_events",
	"anomaly_triage_reports",
	"quality_gate_results",
}

// Store is the PostgreSQL-backed UES persistence layer. All writes are
// idempotent: entity inserts conflict on the deterministic UES id and lineage
// rows on their full tuple, so re-running a pipeline over identical snapshots
// leaves the database unchanged.
type Store struct {
	conn   *Connection
	logger *slog.Logger
}

// NewStore creates a UES store over an established connection.
func NewStore(conn *Connection, logger *slog.Logger) (*Store, error) {
	if conn == nil || conn.db == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &Store{conn: conn, logger: logger}, nil
}

// HealthCheck verifies the database connection is alive. The readiness probe
// uses it.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.conn.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return nil
}

// Reset wipes all run-scoped tables in one transaction. Every mapping run
// starts from a clean store.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.conn.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin reset: %w", ErrWriteFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range resetOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("%w: reset %s: %w", ErrWriteFailed, table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit reset: %w", ErrWriteFailed, err)
	}

	s.logger.Info("ues store reset", slog.Int("tables", len(resetOrder)))

	return nil
}

// WriteTeams persists merged teams and their lineage rows.
func (s *Store) WriteTeams(ctx context.Context, teams []ues.Team) error {
	if len(teams) == 0 {
		return nil
	}

	return s.inTx(ctx, "write teams", func(tx *sql.Tx) error {
		for _, team := range teams {
			lineage, err := json.Marshal(team.Lineage)
			if err != nil {
				return fmt.Errorf("marshal lineage: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO ues_teams (ues_team_id, name, country, merge_confidence, lineage)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (ues_team_id) DO NOTHING`,
				team.ID, team.Name, nullString(team.Country), team.MergeConfidence, lineage,
			)
			if err != nil {
				return err
			}

			if err := insertLineageRows(ctx, tx, ues.EntityTeam, team.ID, team.Lineage); err != nil {
				return err
			}
		}

		return nil
	})
}

// WriteCompetitions persists merged competitions and their lineage rows.
func (s *Store) WriteCompetitions(ctx context.Context, competitions []ues.Competition) error {
	if len(competitions) == 0 {
		return nil
	}

	return s.inTx(ctx, "write competitions", func(tx *sql.Tx) error {
		for _, competition := range competitions {
			lineage, err := json.Marshal(competition.Lineage)
			if err != nil {
				return fmt.Errorf("marshal lineage: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO ues_competitions (ues_competition_id, name, country, merge_confidence, lineage)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (ues_competition_id) DO NOTHING`,
				competition.ID, competition.Name, nullString(competition.Country),
				competition.MergeConfidence, lineage,
			)
			if err != nil {
				return err
			}

			if err := insertLineageRows(ctx, tx, ues.EntityCompetition, competition.ID, competition.Lineage); err != nil {
				return err
			}
		}

		return nil
	})
}

// WriteSeasons persists merged seasons and their lineage rows.
func (s *Store) WriteSeasons(ctx context.Context, seasons []ues.Season) error {
	if len(seasons) == 0 {
		return nil
	}

	return s.inTx(ctx, "write seasons", func(tx *sql.Tx) error {
		for _, season := range seasons {
			lineage, err := json.Marshal(season.Lineage)
			if err != nil {
				return fmt.Errorf("marshal lineage: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO ues_seasons (ues_season_id, start_year, end_year, competition_ues_id, merge_confidence, lineage)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (ues_season_id) DO NOTHING`,
				season.ID, nullInt(season.StartYear), nullInt(season.EndYear),
				nullString(season.CompetitionID), season.MergeConfidence, lineage,
			)
			if err != nil {
				return err
			}

			if err := insertLineageRows(ctx, tx, ues.EntitySeason, season.ID, season.Lineage); err != nil {
				return err
			}
		}

		return nil
	})
}

// WritePlayers persists merged players and their lineage rows.
func (s *Store) WritePlayers(ctx context.Context, players []ues.Player) error {
	if len(players) == 0 {
		return nil
	}

	return s.inTx(ctx, "write players", func(tx *sql.Tx) error {
		for _, player := range players {
			lineage, err := json.Marshal(player.Lineage)
			if err != nil {
				return fmt.Errorf("marshal lineage: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO ues_players (
					ues_player_id, canonical_name, dob, birth_year, nationality,
					height_cm, foot, team_ues_id, merge_confidence, lineage
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (ues_player_id) DO NOTHING`,
				player.ID, player.CanonicalName, player.DOB, player.BirthYear,
				nullString(player.Nationality), player.HeightCM, nullString(player.Foot),
				nullString(player.TeamID), player.MergeConfidence, lineage,
			)
			if err != nil {
				return err
			}

			if err := insertLineageRows(ctx, tx, ues.EntityPlayer, player.ID, player.Lineage); err != nil {
				return err
			}
		}

		return nil
	})
}

// WriteMatches persists merged matches and their lineage rows.
func (s *Store) WriteMatches(ctx context.Context, matches []ues.Match) error {
	if len(matches) == 0 {
		return nil
	}

	return s.inTx(ctx, "write matches", func(tx *sql.Tx) error {
		for _, fixture := range matches {
			lineage, err := json.Marshal(fixture.Lineage)
			if err != nil {
				return fmt.Errorf("marshal lineage: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO ues_matches (
					ues_match_id, home_team_ues_id, away_team_ues_id, season_ues_id,
					competition_ues_id, match_date, merge_confidence, lineage
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (ues_match_id) DO NOTHING`,
				fixture.ID, nullString(fixture.HomeTeamID), nullString(fixture.AwayTeamID),
				nullString(fixture.SeasonID), nullString(fixture.CompetitionID),
				fixture.MatchDate, fixture.MergeConfidence, lineage,
			)
			if err != nil {
				return err
			}

			if err := insertLineageRows(ctx, tx, ues.EntityMatch, fixture.ID, fixture.Lineage); err != nil {
				return err
			}
		}

		return nil
	})
}

// insertLineageRows writes one source_lineage row per lineage source, two per
// entity.
func insertLineageRows(ctx context.Context, tx *sql.Tx, entityType, entityID string, lineage ues.Lineage) error {
	for _, src := range lineage.Sources {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO source_lineage (source_system, source_id, ues_entity_type, ues_entity_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (source_system, source_id, ues_entity_type, ues_entity_id) DO NOTHING`,
			src.Source, src.ID, entityType, entityID,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// inTx runs fn inside a transaction and wraps failures with ErrWriteFailed.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin %s: %w", ErrWriteFailed, op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %w", ErrWriteFailed, op, err)
	}

	return nil
}

// nullString maps the empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullInt maps zero to NULL. Years are never legitimately zero in either
// source.
func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}
