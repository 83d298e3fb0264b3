// Package merge builds canonical UES entities from router-approved candidate
// pairs. Canonicalization prefers the ALPHA value and falls back to BETA,
// except where the BETA feed is known to be richer (player footedness).
// Every merger returns the ALPHA-side and BETA-side source-id to UES-id maps
// consumed by the downstream stages.
package merge

import (
	"strings"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/match"
	"github.com/uniscore-io/uniscore/internal/normalize"
	"github.com/uniscore-io/uniscore/internal/source"
	"github.com/uniscore-io/uniscore/internal/ues"
)

// IDMap translates source-local ids to UES ids for one side of one entity type.
type IDMap map[int64]string

// Merger constructs canonical entities using the normalization tables from
// the config bundle.
type Merger struct {
	countries normalize.CountryTable
}

// New builds a Merger from the loaded configuration bundle.
func New(bundle *config.Bundle) *Merger {
	return &Merger{countries: normalize.NewCountryTable(bundle.Normalization.Countries)}
}

// Teams merges approved team pairs. Name and country come from ALPHA, falling
// back to the BETA display name and region.
func (m *Merger) Teams(
	pairs []match.TeamPair,
	alphaTeams []source.AlphaTeam,
	betaTeams []source.BetaTeam,
) ([]ues.Team, IDMap, IDMap) {
	alphaByID := make(map[int64]source.AlphaTeam, len(alphaTeams))
	for _, team := range alphaTeams {
		alphaByID[team.TeamID] = team
	}

	betaByID := make(map[int64]source.BetaTeam, len(betaTeams))
	for _, team := range betaTeams {
		betaByID[team.ID] = team
	}

	teams := make([]ues.Team, 0, len(pairs))
	alphaMap := make(IDMap, len(pairs))
	betaMap := make(IDMap, len(pairs))

	for _, pair := range pairs {
		alpha, alphaOK := alphaByID[pair.AlphaTeamID]
		beta := betaByID[pair.BetaTeamID]

		name := alpha.Name
		country := alpha.Country

		if !alphaOK || name == "" {
			name = beta.DisplayName
		}

		if !alphaOK || country == "" {
			country = beta.Region
		}

		id := ues.GenerateID(ues.PrefixTeam, pair.AlphaTeamID, pair.BetaTeamID)

		teams = append(teams, ues.Team{
			ID:              id,
			Name:            name,
			Country:         country,
			MergeConfidence: pair.Confidence,
			Lineage: ues.BuildLineage(ues.EntityTeam, pair.AlphaTeamID, pair.BetaTeamID, pair.Confidence,
				map[string]any{"name_similarity": pair.Confidence}),
		})

		alphaMap[pair.AlphaTeamID] = id
		betaMap[pair.BetaTeamID] = id
	}

	return teams, alphaMap, betaMap
}

// Competitions merges approved competition pairs. The matcher record already
// carries the canonical name and country.
func (m *Merger) Competitions(pairs []match.CompetitionPair) ([]ues.Competition, IDMap, IDMap) {
	competitions := make([]ues.Competition, 0, len(pairs))
	alphaMap := make(IDMap, len(pairs))
	betaMap := make(IDMap, len(pairs))

	for _, pair := range pairs {
		id := ues.GenerateID(ues.PrefixCompetition, pair.AlphaCompetitionID, pair.BetaCompetitionID)

		competitions = append(competitions, ues.Competition{
			ID:              id,
			Name:            pair.Name,
			Country:         m.countries.Normalize(pair.Country),
			MergeConfidence: pair.Confidence,
			Lineage: ues.BuildLineage(ues.EntityCompetition, pair.AlphaCompetitionID, pair.BetaCompetitionID,
				pair.Confidence, map[string]any{"name_similarity": pair.Confidence}),
		})

		alphaMap[pair.AlphaCompetitionID] = id
		betaMap[pair.BetaCompetitionID] = id
	}

	return competitions, alphaMap, betaMap
}

// Seasons merges approved season pairs, resolving the owning competition via
// the ALPHA-side map with a BETA-side fallback.
func (m *Merger) Seasons(
	pairs []match.SeasonPair,
	alphaCompetitionMap, betaCompetitionMap IDMap,
) ([]ues.Season, IDMap, IDMap) {
	seasons := make([]ues.Season, 0, len(pairs))
	alphaMap := make(IDMap, len(pairs))
	betaMap := make(IDMap, len(pairs))

	for _, pair := range pairs {
		id := ues.GenerateID(ues.PrefixSeason, pair.AlphaSeasonID, pair.BetaSeasonID)

		competitionID := alphaCompetitionMap[pair.AlphaCompetitionID]
		if competitionID == "" {
			competitionID = betaCompetitionMap[pair.BetaCompetitionID]
		}

		seasons = append(seasons, ues.Season{
			ID:              id,
			StartYear:       pair.StartYear,
			EndYear:         pair.EndYear,
			CompetitionID:   competitionID,
			MergeConfidence: pair.Confidence,
			Lineage: ues.BuildLineage(ues.EntitySeason, pair.AlphaSeasonID, pair.BetaSeasonID, pair.Confidence,
				map[string]any{"start_year": pair.StartYear}),
		})

		alphaMap[pair.AlphaSeasonID] = id
		betaMap[pair.BetaSeasonID] = id
	}

	return seasons, alphaMap, betaMap
}

// Players merges approved player pairs. The canonical name prefers ALPHA,
// nationality is canonicalized, footedness prefers the BETA value lowercased,
// and the team reference resolves through the ALPHA team map.
func (m *Merger) Players(
	pairs []match.PlayerPair,
	alphaPlayers []source.AlphaPlayer,
	betaPlayers []source.BetaPlayer,
	teamMap IDMap,
) ([]ues.Player, IDMap, IDMap) {
	alphaByID := make(map[int64]source.AlphaPlayer, len(alphaPlayers))
	for _, player := range alphaPlayers {
		alphaByID[player.PlayerID] = player
	}

	betaByID := make(map[int64]source.BetaPlayer, len(betaPlayers))
	for _, player := range betaPlayers {
		betaByID[player.ID] = player
	}

	players := make([]ues.Player, 0, len(pairs))
	alphaMap := make(IDMap, len(pairs))
	betaMap := make(IDMap, len(pairs))

	for _, pair := range pairs {
		alpha, alphaOK := alphaByID[pair.AlphaPlayerID]
		beta, betaOK := betaByID[pair.BetaPlayerID]

		if !alphaOK || !betaOK {
			continue
		}

		id := ues.GenerateID(ues.PrefixPlayer, pair.AlphaPlayerID, pair.BetaPlayerID)

		name := alpha.Name
		if name == "" {
			name = beta.FullName
		}

		nationality := alpha.Nationality
		if nationality == "" {
			nationality = beta.Nationality
		}

		foot := beta.Footedness
		if foot == "" {
			foot = alpha.Foot
		}

		height := alpha.HeightCM
		if height == nil {
			height = beta.HeightCM
		}

		breakdown := map[string]any{
			"name_similarity": pair.Breakdown.NameSimilarity,
			"dob_similarity":  pair.Breakdown.DOBSimilarity,
			"team_similarity": pair.Breakdown.TeamSimilarity,
		}

		players = append(players, ues.Player{
			ID:              id,
			CanonicalName:   name,
			DOB:             alpha.DOB,
			BirthYear:       beta.BirthYear,
			Nationality:     m.countries.Normalize(nationality),
			HeightCM:        height,
			Foot:            strings.ToLower(foot),
			TeamID:          teamMap[alpha.TeamID],
			MergeConfidence: pair.Confidence,
			Lineage:         ues.BuildLineage(ues.EntityPlayer, pair.AlphaPlayerID, pair.BetaPlayerID, pair.Confidence, breakdown),
		})

		alphaMap[pair.AlphaPlayerID] = id
		betaMap[pair.BetaPlayerID] = id
	}

	return players, alphaMap, betaMap
}

// Matches merges approved match pairs, translating the home/away teams,
// season and competition through the ALPHA-side UES maps.
func (m *Merger) Matches(
	pairs []match.MatchPair,
	alphaMatches []source.AlphaMatch,
	teamMap, competitionMap, seasonMap IDMap,
) []ues.Match {
	alphaByID := make(map[int64]source.AlphaMatch, len(alphaMatches))
	for _, fixture := range alphaMatches {
		alphaByID[fixture.MatchID] = fixture
	}

	matches := make([]ues.Match, 0, len(pairs))

	for _, pair := range pairs {
		alpha, ok := alphaByID[pair.AlphaMatchID]
		if !ok {
			continue
		}

		matches = append(matches, ues.Match{
			ID:              ues.GenerateID(ues.PrefixMatch, pair.AlphaMatchID, pair.BetaMatchID),
			HomeTeamID:      teamMap[alpha.HomeTeamID],
			AwayTeamID:      teamMap[alpha.AwayTeamID],
			SeasonID:        seasonMap[alpha.SeasonID],
			CompetitionID:   competitionMap[alpha.CompetitionID],
			MatchDate:       alpha.MatchDate,
			MergeConfidence: pair.Confidence,
			Lineage: ues.BuildLineage(ues.EntityMatch, pair.AlphaMatchID, pair.BetaMatchID, pair.Confidence,
				map[string]any{"team": pair.Confidence}),
		})
	}

	return matches
}
