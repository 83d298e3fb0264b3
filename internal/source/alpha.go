package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors for source snapshot loading.
var (
	// ErrSnapshotFailed is returned when a source table cannot be read.
	ErrSnapshotFailed = errors.New("source snapshot failed")

	// ErrNoDatabaseConnection is returned when a loader is constructed without a connection.
	ErrNoDatabaseConnection = errors.New("database connection is nil")
)

// AlphaLoader reads mapping-run snapshots from the ALPHA source database.
type AlphaLoader struct {
	db *sql.DB
}

// NewAlphaLoader creates a loader over an open ALPHA connection.
func NewAlphaLoader(db *sql.DB) (*AlphaLoader, error) {
	if db == nil {
		return nil, ErrNoDatabaseConnection
	}

	return &AlphaLoader{db: db}, nil
}

// LoadSnapshot reads all five ALPHA tables in source row order.
func (l *AlphaLoader) LoadSnapshot(ctx context.Context) (*AlphaSnapshot, error) {
	snapshot := &AlphaSnapshot{}

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

func (l *AlphaLoader) loadTeams(ctx context.Context) ([]AlphaTeam, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT team_id, name, COALESCE(country, '') FROM teams ORDER BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: alpha teams: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var teams []AlphaTeam

	for rows.Next() {
		var team AlphaTeam
		if err := rows.Scan(&team.TeamID, &team.Name, &team.Country); err != nil {
			return nil, fmt.Errorf("%w: alpha teams scan: %v", ErrSnapshotFailed, err)
		}

		teams = append(teams, team)
	}

	return teams, rows.Err()
}

func (l *AlphaLoader) loadCompetitions(ctx context.Context) ([]AlphaCompetition, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT competition_id, name, COALESCE(country, '') FROM competitions ORDER BY competition_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: alpha competitions: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var competitions []AlphaCompetition

	for rows.Next() {
		var competition AlphaCompetition
		if err := rows.Scan(&competition.CompetitionID, &competition.Name, &competition.Country); err != nil {
			return nil, fmt.Errorf("%w: alpha competitions scan: %v", ErrSnapshotFailed, err)
		}

		competitions = append(competitions, competition)
	}

	return competitions, rows.Err()
}

func (l *AlphaLoader) loadSeasons(ctx context.Context) ([]AlphaSeason, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT season_id, name, competition_id FROM seasons ORDER BY season_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: alpha seasons: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var seasons []AlphaSeason

	for rows.Next() {
		var season AlphaSeason
		if err := rows.Scan(&season.SeasonID, &season.Name, &season.CompetitionID); err != nil {
			return nil, fmt.Errorf("%w: alpha seasons scan: %v", ErrSnapshotFailed, err)
		}

		seasons = append(seasons, season)
	}

	return seasons, rows.Err()
}

func (l *AlphaLoader) loadPlayers(ctx context.Context) ([]AlphaPlayer, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT player_id, name, dob, COALESCE(nationality, ''), height_cm, COALESCE(foot, ''), team_id
		 FROM players ORDER BY player_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: alpha players: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var players []AlphaPlayer

	for rows.Next() {
		var (
			player AlphaPlayer
			dob    sql.NullTime
			height sql.NullInt64
		)

		if err := rows.Scan(&player.PlayerID, &player.Name, &dob,
			&player.Nationality, &height, &player.Foot, &player.TeamID); err != nil {
			return nil, fmt.Errorf("%w: alpha players scan: %v", ErrSnapshotFailed, err)
		}

		if dob.Valid {
			value := dob.Time
			player.DOB = &value
		}

		if height.Valid {
			value := int(height.Int64)
			player.HeightCM = &value
		}

		players = append(players, player)
	}

	return players, rows.Err()
}

func (l *AlphaLoader) loadMatches(ctx context.Context) ([]AlphaMatch, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT match_id, home_team_id, away_team_id, season_id, competition_id, match_date
		 FROM matches ORDER BY match_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: alpha matches: %v", ErrSnapshotFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var matches []AlphaMatch

	for rows.Next() {
		var (
			match     AlphaMatch
			matchDate sql.NullTime
		)

		if err := rows.Scan(&match.MatchID, &match.HomeTeamID, &match.AwayTeamID,
			&match.SeasonID, &match.CompetitionID, &matchDate); err != nil {
			return nil, fmt.Errorf("%w: alpha matches scan: %v", ErrSnapshotFailed, err)
		}

		if matchDate.Valid {
			value := matchDate.Time
			match.MatchDate = &value
		}

		matches = append(matches, match)
	}

	return matches, rows.Err()
}
