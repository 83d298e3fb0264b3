package synthetic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrSeedFailed is returned when a source database cannot be seeded.
var ErrSeedFailed = errors.New("seed failed")

var alphaSchema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		team_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		country TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS competitions (
		competition_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		country TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS seasons (
		season_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		competition_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		player_id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		dob DATE,
		nationality TEXT,
		height_cm INT,
		foot TEXT,
		team_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		match_id BIGINT PRIMARY KEY,
		home_team_id BIGINT NOT NULL,
		away_team_id BIGINT NOT NULL,
		season_id BIGINT NOT NULL,
		competition_id BIGINT NOT NULL,
		match_date DATE
	)`,
}

var betaSchema = []string{
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGINT PRIMARY KEY,
		display_name TEXT NOT NULL,
		region TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS competitions (
		id BIGINT PRIMARY KEY,
		title TEXT NOT NULL,
		locale TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS seasons (
		id BIGINT PRIMARY KEY,
		label TEXT NOT NULL,
		competition_id BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id BIGINT PRIMARY KEY,
		full_name TEXT NOT NULL,
		birth_year INT,
		nationality TEXT,
		height_cm INT,
		footedness TEXT,
		team_name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id BIGINT PRIMARY KEY,
		home_team_id BIGINT,
		away_team_id BIGINT,
		home_team TEXT,
		away_team TEXT,
		season_id BIGINT NOT NULL,
		competition_id BIGINT NOT NULL,
		match_date DATE
	)`,
}

// tables in child-first order so deletes respect references.
var seedTables = []string{"matches", "players", "seasons", "competitions", "teams"}

// SeedAlpha creates the ALPHA schema if needed and replaces its contents with
// the synthetic fixture. The whole seed runs in one transaction.
func SeedAlpha(ctx context.Context, db *sql.DB) error {
	fixture := AlphaFixture()

	return seed(ctx, db, "alpha", alphaSchema, func(tx *sql.Tx) error {
		for _, team := range fixture.Teams {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO teams (team_id, name, country) VALUES ($1, $2, $3)`,
				team.TeamID, team.Name, team.Country); err != nil {
				return fmt.Errorf("teams: %w", err)
			}
		}

		for _, competition := range fixture.Competitions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO competitions (competition_id, name, country) VALUES ($1, $2, $3)`,
				competition.CompetitionID, competition.Name, competition.Country); err != nil {
				return fmt.Errorf("competitions: %w", err)
			}
		}

		for _, season := range fixture.Seasons {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO seasons (season_id, name, competition_id) VALUES ($1, $2, $3)`,
				season.SeasonID, season.Name, season.CompetitionID); err != nil {
				return fmt.Errorf("seasons: %w", err)
			}
		}

		for _, player := range fixture.Players {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO players (player_id, name, dob, nationality, height_cm, foot, team_id)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				player.PlayerID, player.Name, player.DOB, player.Nationality,
				player.HeightCM, player.Foot, player.TeamID); err != nil {
				return fmt.Errorf("players: %w", err)
			}
		}

		for _, match := range fixture.Matches {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO matches (match_id, home_team_id, away_team_id, season_id, competition_id, match_date)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				match.MatchID, match.HomeTeamID, match.AwayTeamID,
				match.SeasonID, match.CompetitionID, match.MatchDate); err != nil {
				return fmt.Errorf("matches: %w", err)
			}
		}

		return nil
	})
}

// SeedBeta creates the BETA schema if needed and replaces its contents with
// the synthetic fixture.
func SeedBeta(ctx context.Context, db *sql.DB) error {
	fixture := BetaFixture()

	return seed(ctx, db, "beta", betaSchema, func(tx *sql.Tx) error {
		for _, team := range fixture.Teams {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO teams (id, display_name, region) VALUES ($1, $2, $3)`,
				team.ID, team.DisplayName, team.Region); err != nil {
				return fmt.Errorf("teams: %w", err)
			}
		}

		for _, competition := range fixture.Competitions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO competitions (id, title, locale) VALUES ($1, $2, $3)`,
				competition.ID, competition.Title, competition.Locale); err != nil {
				return fmt.Errorf("competitions: %w", err)
			}
		}

		for _, season := range fixture.Seasons {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO seasons (id, label, competition_id) VALUES ($1, $2, $3)`,
				season.ID, season.Label, season.CompetitionID); err != nil {
				return fmt.Errorf("seasons: %w", err)
			}
		}

		for _, player := range fixture.Players {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO players (id, full_name, birth_year, nationality, height_cm, footedness, team_name)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				player.ID, player.FullName, player.BirthYear, player.Nationality,
				player.HeightCM, player.Footedness, player.TeamName); err != nil {
				return fmt.Errorf("players: %w", err)
			}
		}

		for _, match := range fixture.Matches {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO matches (id, home_team_id, away_team_id, home_team, away_team,
				                      season_id, competition_id, match_date)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				match.ID, match.HomeTeamID, match.AwayTeamID, match.HomeTeam, match.AwayTeam,
				match.SeasonID, match.CompetitionID, match.MatchDate); err != nil {
				return fmt.Errorf("matches: %w", err)
			}
		}

		return nil
	})
}

func seed(ctx context.Context, db *sql.DB, name string, schema []string, insert func(tx *sql.Tx) error) error {
	for _, statement := range schema {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("%w: %s schema: %v", ErrSeedFailed, name, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %s begin: %v", ErrSeedFailed, name, err)
	}

	for _, table := range seedTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("%w: %s clear %s: %v", ErrSeedFailed, name, table, err)
		}
	}

	if err := insert(tx); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("%w: %s: %v", ErrSeedFailed, name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %s commit: %v", ErrSeedFailed, name, err)
	}

	return nil
}
