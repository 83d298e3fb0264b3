package merge

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/match"
	"github.com/uniscore-io/uniscore/internal/source"
	"github.com/uniscore-io/uniscore/internal/ues"
)

func testMerger() *Merger {
	return New(&config.Bundle{
		Normalization: config.Normalization{
			Countries: map[string]string{"England": "GB", "United Kingdom": "GB"},
		},
	})
}

func TestMerger_Teams_PrefersAlphaValues(t *testing.T) {
	merger := testMerger()

	pairs := []match.TeamPair{{AlphaTeamID: 1, BetaTeamID: 10, Confidence: 0.95}}
	alpha := []source.AlphaTeam{{TeamID: 1, Name: "City FC", Country: "England"}}
	beta := []source.BetaTeam{{ID: 10, DisplayName: "City Football Club", Region: "United Kingdom"}}

	teams, alphaMap, betaMap := merger.Teams(pairs, alpha, beta)

	require.Len(t, teams, 1)
	assert.Equal(t, "City FC", teams[0].Name)
	assert.Equal(t, "England", teams[0].Country)
	assert.True(t, strings.HasPrefix(teams[0].ID, ues.PrefixTeam+"-"))
	assert.Equal(t, teams[0].ID, alphaMap[1])
	assert.Equal(t, teams[0].ID, betaMap[10])
	assert.Equal(t, ues.EntityTeam, teams[0].Lineage.EntityType)
}

func TestMerger_Teams_FallsBackToBeta(t *testing.T) {
	merger := testMerger()

	pairs := []match.TeamPair{{AlphaTeamID: 1, BetaTeamID: 10, Confidence: 0.9}}
	alpha := []source.AlphaTeam{{TeamID: 1, Name: "City FC"}} // no country
	beta := []source.BetaTeam{{ID: 10, DisplayName: "City Football Club", Region: "United Kingdom"}}

	teams, _, _ := merger.Teams(pairs, alpha, beta)

	require.Len(t, teams, 1)
	assert.Equal(t, "City FC", teams[0].Name)
	assert.Equal(t, "United Kingdom", teams[0].Country)
}

func TestMerger_Teams_DeterministicIDs(t *testing.T) {
	merger := testMerger()

	pairs := []match.TeamPair{{AlphaTeamID: 1, BetaTeamID: 10, Confidence: 0.9}}
	alpha := []source.AlphaTeam{{TeamID: 1, Name: "City FC", Country: "England"}}
	beta := []source.BetaTeam{{ID: 10, DisplayName: "City FC", Region: "England"}}

	first, _, _ := merger.Teams(pairs, alpha, beta)
	second, _, _ := merger.Teams(pairs, alpha, beta)

	assert.Equal(t, first[0].ID, second[0].ID, "re-runs converge on the same id")
}

func TestMerger_Competitions_NormalizesCountry(t *testing.T) {
	merger := testMerger()

	pairs := []match.CompetitionPair{{
		AlphaCompetitionID: 3, BetaCompetitionID: 30,
		Confidence: 0.97, Name: "Premier League", Country: "England",
	}}

	competitions, alphaMap, betaMap := merger.Competitions(pairs)

	require.Len(t, competitions, 1)
	assert.Equal(t, "Premier League", competitions[0].Name)
	assert.Equal(t, "GB", competitions[0].Country)
	assert.Equal(t, competitions[0].ID, alphaMap[3])
	assert.Equal(t, competitions[0].ID, betaMap[30])
}

func TestMerger_Seasons_ResolvesCompetitionViaAlphaMap(t *testing.T) {
	merger := testMerger()

	pairs := []match.SeasonPair{{
		AlphaSeasonID: 5, BetaSeasonID: 50,
		Confidence: 1.0, StartYear: 2020, EndYear: 2021,
		AlphaCompetitionID: 3, BetaCompetitionID: 30,
	}}

	seasons, alphaMap, betaMap := merger.Seasons(pairs,
		IDMap{3: "UESC-aaaaaaaa"}, IDMap{30: "UESC-bbbbbbbb"})

	require.Len(t, seasons, 1)
	assert.Equal(t, "UESC-aaaaaaaa", seasons[0].CompetitionID, "ALPHA map wins when both resolve")
	assert.Equal(t, 2020, seasons[0].StartYear)
	assert.Equal(t, 2021, seasons[0].EndYear)
	assert.Equal(t, seasons[0].ID, alphaMap[5])
	assert.Equal(t, seasons[0].ID, betaMap[50])
}

func TestMerger_Seasons_BetaFallbackForCompetition(t *testing.T) {
	merger := testMerger()

	pairs := []match.SeasonPair{{
		AlphaSeasonID: 5, BetaSeasonID: 50,
		Confidence: 0.7, StartYear: 2020, EndYear: 2021,
		AlphaCompetitionID: 3, BetaCompetitionID: 30,
	}}

	seasons, _, _ := merger.Seasons(pairs, IDMap{}, IDMap{30: "UESC-bbbbbbbb"})

	require.Len(t, seasons, 1)
	assert.Equal(t, "UESC-bbbbbbbb", seasons[0].CompetitionID)
}

func TestMerger_Players_CanonicalizationRules(t *testing.T) {
	merger := testMerger()

	dob := time.Date(1995, time.April, 10, 0, 0, 0, 0, time.UTC)
	birthYear := 1995
	alphaHeight := 181
	betaHeight := 180

	pairs := []match.PlayerPair{{
		AlphaPlayerID: 7, BetaPlayerID: 70, Confidence: 0.91,
		Breakdown: match.PlayerBreakdown{NameSimilarity: 1.0, DOBSimilarity: 1.0, TeamSimilarity: 0.5},
	}}
	alpha := []source.AlphaPlayer{{
		PlayerID: 7, Name: "John Doe", DOB: &dob, Nationality: "England",
		HeightCM: &alphaHeight, Foot: "Right", TeamID: 1,
	}}
	beta := []source.BetaPlayer{{
		ID: 70, FullName: "Jon Doe", BirthYear: &birthYear, Nationality: "United Kingdom",
		HeightCM: &betaHeight, Footedness: "LEFT", TeamName: "City FC",
	}}

	players, alphaMap, betaMap := merger.Players(pairs, alpha, beta, IDMap{1: "UEST-11111111"})

	require.Len(t, players, 1)
	player := players[0]
	assert.Equal(t, "John Doe", player.CanonicalName)
	assert.Equal(t, "GB", player.Nationality)
	assert.Equal(t, "left", player.Foot, "BETA footedness preferred, lowercased")
	require.NotNil(t, player.HeightCM)
	assert.Equal(t, 181, *player.HeightCM, "ALPHA height preferred")
	assert.Equal(t, &dob, player.DOB)
	assert.Equal(t, &birthYear, player.BirthYear)
	assert.Equal(t, "UEST-11111111", player.TeamID)
	assert.Equal(t, player.ID, alphaMap[7])
	assert.Equal(t, player.ID, betaMap[70])
	assert.InDelta(t, 1.0, player.Lineage.ConfidenceBreakdown["name_similarity"], 1e-9)
}

func TestMerger_Players_BetaFallbacks(t *testing.T) {
	merger := testMerger()

	betaHeight := 176

	pairs := []match.PlayerPair{{AlphaPlayerID: 7, BetaPlayerID: 70, Confidence: 0.8}}
	alpha := []source.AlphaPlayer{{PlayerID: 7, TeamID: 99}} // sparse ALPHA row
	beta := []source.BetaPlayer{{
		ID: 70, FullName: "Jon Doe", Nationality: "England",
		HeightCM: &betaHeight, Footedness: "Right",
	}}

	players, _, _ := merger.Players(pairs, alpha, beta, IDMap{})

	require.Len(t, players, 1)
	player := players[0]
	assert.Equal(t, "Jon Doe", player.CanonicalName)
	assert.Equal(t, "GB", player.Nationality)
	assert.Equal(t, "right", player.Foot)
	require.NotNil(t, player.HeightCM)
	assert.Equal(t, 176, *player.HeightCM)
	assert.Empty(t, player.TeamID, "unresolved ALPHA team leaves the reference empty")
}

func TestMerger_Players_SkipsUnknownSourceRows(t *testing.T) {
	merger := testMerger()

	pairs := []match.PlayerPair{{AlphaPlayerID: 7, BetaPlayerID: 70, Confidence: 0.8}}

	players, alphaMap, _ := merger.Players(pairs, nil, nil, IDMap{})

	assert.Empty(t, players)
	assert.Empty(t, alphaMap)
}

func TestMerger_Matches_TranslatesReferences(t *testing.T) {
	merger := testMerger()

	matchDate := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	pairs := []match.MatchPair{{AlphaMatchID: 9, BetaMatchID: 90, Confidence: 0.85}}
	alpha := []source.AlphaMatch{{
		MatchID: 9, HomeTeamID: 1, AwayTeamID: 2,
		SeasonID: 5, CompetitionID: 3, MatchDate: &matchDate,
	}}

	matches := merger.Matches(pairs, alpha,
		IDMap{1: "UEST-home", 2: "UEST-away"},
		IDMap{3: "UESC-comp"},
		IDMap{5: "UESS-season"})

	require.Len(t, matches, 1)
	assert.Equal(t, "UEST-home", matches[0].HomeTeamID)
	assert.Equal(t, "UEST-away", matches[0].AwayTeamID)
	assert.Equal(t, "UESS-season", matches[0].SeasonID)
	assert.Equal(t, "UESC-comp", matches[0].CompetitionID)
	assert.Equal(t, &matchDate, matches[0].MatchDate)
	assert.True(t, strings.HasPrefix(matches[0].ID, ues.PrefixMatch+"-"))
}

func TestMerger_Matches_SkipsMissingAlphaRow(t *testing.T) {
	merger := testMerger()

	pairs := []match.MatchPair{{AlphaMatchID: 9, BetaMatchID: 90, Confidence: 0.85}}

	matches := merger.Matches(pairs, nil, IDMap{}, IDMap{}, IDMap{})

	assert.Empty(t, matches)
}
