package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/match"
	"github.com/uniscore-io/uniscore/internal/source"
)

func testAdapter() *Adapter {
	return NewAdapter(&config.Bundle{
		Normalization: config.Normalization{
			Countries:           map[string]string{"England": "GB", "United Kingdom": "GB"},
			CompetitionSponsors: []string{"Barclays"},
		},
	})
}

func TestAdapter_TeamCountryConflict(t *testing.T) {
	adapter := testAdapter()

	pairs := []match.TeamPair{{AlphaTeamID: 1, BetaTeamID: 10, Confidence: 0.95}}
	alpha := []source.AlphaTeam{{TeamID: 1, Name: "City FC", Country: "England"}}
	beta := []source.BetaTeam{{ID: 10, DisplayName: "City FC", Region: "France"}}

	candidates := adapter.TeamCandidates(pairs, alpha, beta)

	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].hasConflict())
	assert.Equal(t, []string{"country_mismatch"}, candidates[0].Signals["conflict_flags"])
	assert.Equal(t, false, candidates[0].Signals["country_match"])
}

func TestAdapter_TeamCountryAliasesAgree(t *testing.T) {
	adapter := testAdapter()

	pairs := []match.TeamPair{{AlphaTeamID: 1, BetaTeamID: 10, Confidence: 0.95}}
	alpha := []source.AlphaTeam{{TeamID: 1, Name: "City FC", Country: "England"}}
	beta := []source.BetaTeam{{ID: 10, DisplayName: "City FC", Region: "United Kingdom"}}

	candidates := adapter.TeamCandidates(pairs, alpha, beta)

	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].hasConflict(), "both sides canonicalize to GB")
}

func TestAdapter_SeasonYearConflict(t *testing.T) {
	adapter := testAdapter()

	pairs := []match.SeasonPair{{AlphaSeasonID: 1, BetaSeasonID: 2, Confidence: 0.7}}
	alpha := []source.AlphaSeason{{SeasonID: 1, Name: "2020/21"}}
	beta := []source.BetaSeason{{ID: 2, Label: "2023-24"}}

	candidates := adapter.SeasonCandidates(pairs, alpha, beta)

	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].hasConflict())
	assert.Equal(t, 3, candidates[0].Signals["start_year_delta"])
}

func TestAdapter_PlayerDOBConflict(t *testing.T) {
	adapter := testAdapter()

	dob := time.Date(1995, time.April, 10, 0, 0, 0, 0, time.UTC)
	birthYear := 1990

	pairs := []match.PlayerPair{{AlphaPlayerID: 1, BetaPlayerID: 2, Confidence: 0.88}}
	alpha := []source.AlphaPlayer{{PlayerID: 1, Name: "John Doe", DOB: &dob}}
	beta := []source.BetaPlayer{{ID: 2, FullName: "Jon Doe", BirthYear: &birthYear}}

	candidates := adapter.PlayerCandidates(pairs, alpha, beta)

	require.Len(t, candidates, 1)
	assert.Equal(t, []string{"dob_mismatch"}, candidates[0].Signals["conflict_flags"])
	assert.Equal(t, 1995, candidates[0].Signals["birth_year_alpha"])
	assert.Equal(t, 1990, candidates[0].Signals["birth_year_beta"])
}

func TestAdapter_PlayerMissingDOBNoConflict(t *testing.T) {
	adapter := testAdapter()

	pairs := []match.PlayerPair{{AlphaPlayerID: 1, BetaPlayerID: 2, Confidence: 0.88}}
	alpha := []source.AlphaPlayer{{PlayerID: 1, Name: "John Doe"}}
	beta := []source.BetaPlayer{{ID: 2, FullName: "Jon Doe"}}

	candidates := adapter.PlayerCandidates(pairs, alpha, beta)

	require.Len(t, candidates, 1)
	assert.False(t, candidates[0].hasConflict())
	assert.Nil(t, candidates[0].Signals["birth_year_alpha"])
}

func TestAdapter_MatchDateConflict(t *testing.T) {
	adapter := testAdapter()

	alphaDate := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	betaDate := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	pairs := []match.MatchPair{{AlphaMatchID: 1, BetaMatchID: 2, Confidence: 0.7}}
	alpha := []source.AlphaMatch{{MatchID: 1, MatchDate: &alphaDate}}
	beta := []source.BetaMatch{{ID: 2, MatchDate: &betaDate}}

	candidates := adapter.MatchCandidates(pairs, alpha, beta)

	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].hasConflict())
	assert.Equal(t, 4, candidates[0].Signals["date_delta_days"])
	assert.Equal(t, "2024-03-01", candidates[0].Left["match_date"])
}
