// Package synthetic generates deterministic ALPHA/BETA fixture data for the
// seed subcommand and for tests. The two fixtures describe the same small
// football world with the discrepancies the pipeline must reconcile: sponsor
// phrases in competition titles, diacritics and nicknames in player names,
// divergent season-label formats and off-by-one match dates.
package synthetic

import (
	"time"

	"github.com/uniscore-io/uniscore/internal/source"
)

func date(year int, month time.Month, day int) *time.Time {
	value := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)

	return &value
}

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

// AlphaFixture returns the ALPHA-side synthetic snapshot. Calls are
// deterministic: the same data every time.
func AlphaFixture() *source.AlphaSnapshot {
	return &source.AlphaSnapshot{
		Teams: []source.AlphaTeam{
			{TeamID: 1, Name: "City FC", Country: "England"},
			{TeamID: 2, Name: "Beachside United", Country: "USA"},
			{TeamID: 3, Name: "Rio Wanderers", Country: "Brazil"},
		},
		Competitions: []source.AlphaCompetition{
			{CompetitionID: 1, Name: "Premier League", Country: "England"},
			{CompetitionID: 2, Name: "Coastal Cup", Country: "USA"},
		},
		Seasons: []source.AlphaSeason{
			{SeasonID: 1, Name: "2020/21", CompetitionID: 1},
			{SeasonID: 2, Name: "2021/22", CompetitionID: 1},
			{SeasonID: 3, Name: "2020", CompetitionID: 2},
		},
		Players: []source.AlphaPlayer{
			{
				PlayerID: 1, Name: "John Doe", DOB: date(1995, time.April, 10),
				Nationality: "England", HeightCM: intPtr(182), Foot: "Right", TeamID: 1,
			},
			{
				PlayerID: 2, Name: "Carlos Silva", DOB: date(1998, time.August, 23),
				Nationality: "Brasil", HeightCM: intPtr(176), Foot: "Left", TeamID: 3,
			},
			{
				PlayerID: 3, Name: "Mike Stone", DOB: date(1992, time.January, 5),
				Nationality: "USA", Foot: "Right", TeamID: 2,
			},
			{
				PlayerID: 4, Name: "Jordan Miles", DOB: date(2000, time.February, 14),
				Nationality: "England", HeightCM: intPtr(188), Foot: "Left", TeamID: 1,
			},
			{
				PlayerID: 5, Name: "João Mendes", DOB: date(1997, time.June, 2),
				Nationality: "Brasil", HeightCM: intPtr(179), Foot: "Right", TeamID: 3,
			},
		},
		Matches: []source.AlphaMatch{
			{
				MatchID: 1, HomeTeamID: 1, AwayTeamID: 2, SeasonID: 1,
				CompetitionID: 1, MatchDate: date(2021, time.March, 10),
			},
			{
				MatchID: 2, HomeTeamID: 3, AwayTeamID: 1, SeasonID: 3,
				CompetitionID: 2, MatchDate: date(2020, time.July, 18),
			},
		},
	}
}

// BetaFixture returns the BETA-side synthetic snapshot: the same world as
// AlphaFixture seen through a name-keyed feed with its own spellings.
func BetaFixture() *source.BetaSnapshot {
	return &source.BetaSnapshot{
		Teams: []source.BetaTeam{
			{ID: 1, DisplayName: "City Football Club", Region: "England"},
			{ID: 2, DisplayName: "Beachside Utd", Region: "USA"},
			{ID: 3, DisplayName: "Rio Wanderers", Region: "Brasil"},
		},
		Competitions: []source.BetaCompetition{
			{ID: 1, Title: "Premier League presented by SportsCorp", Locale: "England"},
			{ID: 2, Title: "Coastal Championship", Locale: "USA"},
		},
		Seasons: []source.BetaSeason{
			{ID: 1, Label: "20-21", CompetitionID: 1},
			{ID: 2, Label: "2021-2022", CompetitionID: 1},
			{ID: 3, Label: "2020", CompetitionID: 2},
		},
		Players: []source.BetaPlayer{
			{
				ID: 10, FullName: "Jon Doe", BirthYear: intPtr(1995), Nationality: "EN",
				HeightCM: intPtr(181), Footedness: "R", TeamName: "City Football Club",
			},
			{
				ID: 11, FullName: "Carlos Silva", BirthYear: intPtr(1998), Nationality: "Brazil",
				HeightCM: intPtr(177), Footedness: "Left-footed", TeamName: "Rio Wanderers",
			},
			{
				ID: 12, FullName: "Michael Stone", BirthYear: intPtr(1992), Nationality: "United States",
				HeightCM: intPtr(180), Footedness: "Right", TeamName: "Beachside Utd",
			},
			{
				ID: 13, FullName: "J Miles", BirthYear: intPtr(2000), Nationality: "England",
				HeightCM: intPtr(186), Footedness: "L", TeamName: "City Football Club",
			},
			{
				ID: 14, FullName: "Joao Mendes", BirthYear: intPtr(1997), Nationality: "Brazil",
				HeightCM: intPtr(179), Footedness: "R", TeamName: "Rio Wanderers",
			},
		},
		Matches: []source.BetaMatch{
			{
				ID: 1, HomeTeamID: int64Ptr(1), AwayTeamID: int64Ptr(2),
				HomeTeam: "City Football Club", AwayTeam: "Beachside Utd",
				SeasonID: 1, CompetitionID: 1, MatchDate: date(2021, time.March, 11),
			},
			{
				ID: 2, HomeTeam: "Rio Wanderers", AwayTeam: "City Football Club",
				SeasonID: 3, CompetitionID: 2, MatchDate: date(2020, time.July, 17),
			},
		},
	}
}
