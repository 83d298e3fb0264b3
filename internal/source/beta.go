package source

import (
	"context"
	"database/sql"
	"fmt"
)

// BetaLoader reads mapping-run snapshots from the BETA source database.
type BetaLoader struct {
	db *sql.DB
}

// NewBetaLoader creates a loader over an open BETA connection.
func NewBetaLoader(db *sql.DB) (*BetaLoader, error) {
	if db == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &BetaLoader{db: db}, nil
}

// LoadSnapshot reads all five BETA tables in source row order.
func (l *BetaLoader) LoadSnapshot(ctx context.Context) (*BetaSnapshot, error) {
	snapshot := &BetaSnapshot{}

	var err error
	if snapshot.Teams, err = l.loadTeams(ctx); err != nil {
		return nil, err
	}

	if snapshot.Competitions, err = l.loadCompetitions(ctx); err != nil {
		return nil, err
	}

	if snapshot.Seasons, err = l.loadSeasons(ctx); err != nil {
		return nil, err
	}

	if snapshot.Players, err = l.loadPlayers(ctx); err != nil {
		return nil, err
	}

	if snapshot.Matches, err = l.loadMatches(ctx); err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (l *BetaLoader) loadTeams(ctx context.Context) ([]BetaTeam, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, display_name, COALESCE(region, '') FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: beta teams: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var teams []BetaTeam

	for rows.Next() {
		var team BetaTeam
		if err := rows.Scan(&team.ID, &team.DisplayName, &team.Region); err != nil {
			return nil, fmt.Errorf("%w: beta teams scan: %v", ErrSnapshotFailed, err)
		}

		teams = append(teams, team)
	}

	return teams, rows.Err()
}

func (l *BetaLoader) loadCompetitions(ctx context.Context) ([]BetaCompetition, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, title, COALESCE(locale, '') FROM competitions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: beta competitions: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var competitions []BetaCompetition

	for rows.Next() {
		var competition BetaCompetition
		if err := rows.Scan(&competition.ID, &competition.Title, &competition.Locale); err != nil {
			return nil, fmt.Errorf("%w: beta competitions scan: %v", ErrSnapshotFailed, err)
		}

		competitions = append(competitions, competition)
	}

	return competitions, rows.Err()
}

func (l *BetaLoader) loadSeasons(ctx context.Context) ([]BetaSeason, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, label, competition_id FROM seasons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: beta seasons: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var seasons []BetaSeason

	for rows.Next() {
		var season BetaSeason
		if err := rows.Scan(&season.ID, &season.Label, &season.CompetitionID); err != nil {
			return nil, fmt.Errorf("%w: beta seasons scan: %v", ErrSnapshotFailed, err)
		}

		seasons = append(seasons, season)
	}

	return seasons, rows.Err()
}

func (l *BetaLoader) loadPlayers(ctx context.Context) ([]BetaPlayer, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, full_name, birth_year, COALESCE(nationality, ''), height_cm,
		        COALESCE(footedness, ''), COALESCE(team_name, '')
		 FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: beta players: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var players []BetaPlayer

	for rows.Next() {
		var (
			player    BetaPlayer
			birthYear sql.NullInt64
			height    sql.NullInt64
		)

		if err := rows.Scan(&player.ID, &player.FullName, &birthYear,
			&player.Nationality, &height, &player.Footedness, &player.TeamName); err != nil {
			return nil, fmt.Errorf("%w: beta players scan: %v", ErrSnapshotFailed, err)
		}

		if birthYear.Valid {
			value := int(birthYear.Int64)
			player.BirthYear = &value
		}

		if height.Valid {
			value := int(height.Int64)
			player.HeightCM = &value
		}

		players = append(players, player)
	}

	return players, rows.Err()
}

func (l *BetaLoader) loadMatches(ctx context.Context) ([]BetaMatch, error) {
	// home_team_id/away_team_id only exist in newer BETA exports; the name
	// columns are always present.
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, home_team_id, away_team_id, COALESCE(home_team, ''), COALESCE(away_team, ''),
		        season_id, competition_id, match_date
		 FROM matches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: beta matches: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var matches []BetaMatch

	for rows.Next() {
		var (
			match      BetaMatch
			homeTeamID sql.NullInt64
			awayTeamID sql.NullInt64
			matchDate  sql.NullTime
		)

		if err := rows.Scan(&match.ID, &homeTeamID, &awayTeamID, &match.HomeTeam, &match.AwayTeam,
			&match.SeasonID, &match.CompetitionID, &matchDate); err != nil {
			return nil, fmt.Errorf("%w: beta matches scan: %v", ErrSnapshotFailed, err)
		}

		if homeTeamID.Valid {
			value := homeTeamID.Int64
			match.HomeTeamID = &value
		}

		if awayTeamID.Valid {
			value := awayTeamID.Int64
			match.AwayTeamID = &value
		}

		if matchDate.Valid {
			value := matchDate.Time
			match.MatchDate = &value
		}

		matches = append(matches, match)
	}

	return matches, rows.Err()
}
