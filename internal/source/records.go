// Package source defines the typed records read from the ALPHA and BETA
// football databases and the Postgres loaders that snapshot them for a
// mapping run. The two sources model the same world with different schemas:
// ALPHA keys everything by explicit ids, BETA leans on display names.
package source

import "time"

// AlphaTeam is a row from the ALPHA teams table.
type AlphaTeam struct {
	TeamID  int64
	Name    string
	Country string
}

// AlphaCompetition is a row from the ALPHA competitions table.
type AlphaCompetition struct {
	CompetitionID int64
	Name          string
	Country       string
}

// AlphaSeason is a row from the ALPHA seasons table. Name carries the season
// label ("2020/21").
type AlphaSeason struct {
	SeasonID      int64
	Name          string
	CompetitionID int64
}

// AlphaPlayer is a row from the ALPHA players table. DOB and HeightCM are
// nullable in the source.
type AlphaPlayer struct {
	PlayerID    int64
	Name        string
	DOB         *time.Time
	Nationality string
	HeightCM    *int
	Foot        string
	TeamID      int64
}

// AlphaMatch is a row from the ALPHA matches table.
type AlphaMatch struct {
	MatchID       int64
	HomeTeamID    int64
	AwayTeamID    int64
	SeasonID      int64
	CompetitionID int64
	MatchDate     *time.Time
}

// BetaTeam is a row from the BETA teams table.
type BetaTeam struct {
	ID          int64
	DisplayName string
	Region      string
}

// BetaCompetition is a row from the BETA competitions table.
type BetaCompetition struct {
	ID     int64
	Title  string
	Locale string
}

// BetaSeason is a row from the BETA seasons table. Label carries the season
// label ("20-21").
type BetaSeason struct {
	ID            int64
	Label         string
	CompetitionID int64
}

// BetaPlayer is a row from the BETA players table. BETA records a birth year
// rather than a full date of birth, and references the team by name.
type BetaPlayer struct {
	ID          int64
	FullName    string
	BirthYear   *int
	Nationality string
	HeightCM    *int
	Footedness  string
	TeamName    string
}

// BetaMatch is a row from the BETA matches table. Team references arrive as
// ids when the feed provides them, otherwise as display names; either pair
// may be absent.
type BetaMatch struct {
	ID            int64
	HomeTeamID    *int64
	AwayTeamID    *int64
	HomeTeam      string
	AwayTeam      string
	SeasonID      int64
	CompetitionID int64
	MatchDate     *time.Time
}

// AlphaSnapshot is a full read of the ALPHA source taken at the start of a
// mapping run. Slices preserve source row order, which makes matcher
// iteration order deterministic.
type AlphaSnapshot struct {
	Teams        []AlphaTeam
	Competitions []AlphaCompetition
	Seasons      []AlphaSeason
	Players      []AlphaPlayer
	Matches      []AlphaMatch
}

// BetaSnapshot is a full read of the BETA source.
type BetaSnapshot struct {
	Teams        []BetaTeam
	Competitions []BetaCompetition
	Seasons      []BetaSeason
	Players      []BetaPlayer
	Matches      []BetaMatch
}
