package validation

import (
	"strconv"
	"time"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/match"
	"github.com/uniscore-io/uniscore/internal/normalize"
	"github.com/uniscore-io/uniscore/internal/source"
)

// Adapter translates matcher pairs into router Candidates, resolving the
// source rows behind each pair and deriving the per-entity signals and
// conflict flags the router and the LLM see.
type Adapter struct {
	sponsors  []string
	countries normalize.CountryTable
}

// NewAdapter builds an Adapter from the loaded configuration bundle.
func NewAdapter(bundle *config.Bundle) *Adapter {
	return &Adapter{
		sponsors:  bundle.Normalization.CompetitionSponsors,
		countries: normalize.NewCountryTable(bundle.Normalization.Countries),
	}
}

// TeamCandidates adapts team pairs. Conflict: both sides carry a country and
// the canonicalized values disagree.
func (a *Adapter) TeamCandidates(pairs []match.TeamPair, alphaTeams []source.AlphaTeam, betaTeams []source.BetaTeam) []Candidate {
	alphaByID := make(map[int64]source.AlphaTeam, len(alphaTeams))
	for _, team := range alphaTeams {
		alphaByID[team.TeamID] = team
	}

	betaByID := make(map[int64]source.BetaTeam, len(betaTeams))
	for _, team := range betaTeams {
		betaByID[team.ID] = team
	}

	candidates := make([]Candidate, 0, len(pairs))

	for i, pair := range pairs {
		alpha := alphaByID[pair.AlphaTeamID]
		beta := betaByID[pair.BetaTeamID]

		alphaCountry := a.normalizeCountry(alpha.Country)
		betaCountry := a.normalizeCountry(beta.Region)

		var conflict string
		if alphaCountry != "" && betaCountry != "" && alphaCountry != betaCountry {
			conflict = "country_mismatch"
		}

		candidates = append(candidates, Candidate{
			Index:       i,
			LeftID:      formatID(pair.AlphaTeamID),
			RightID:     formatID(pair.BetaTeamID),
			LeftSource:  "ALPHA",
			RightSource: "BETA",
			Left: map[string]any{
				"id":   formatID(pair.AlphaTeamID),
				"name": normalize.NormalizeName(alpha.Name),
			},
			Right: map[string]any{
				"id":   formatID(pair.BetaTeamID),
				"name": normalize.NormalizeName(beta.DisplayName),
			},
			MatcherScore: pair.Confidence,
			Signals: map[string]any{
				"name_similarity": pair.Confidence,
				"country_match":   countryMatchSignal(alphaCountry, betaCountry),
				"conflict_flags":  conflictFlags(conflict),
			},
		})
	}

	return candidates
}

// CompetitionCandidates adapts competition pairs with the same country
// conflict rule as teams, comparing sponsor-stripped names.
func (a *Adapter) CompetitionCandidates(pairs []match.CompetitionPair, alphaComps []source.AlphaCompetition, betaComps []source.BetaCompetition) []Candidate {
	alphaByID := make(map[int64]source.AlphaCompetition, len(alphaComps))
	for _, comp := range alphaComps {
		alphaByID[comp.CompetitionID] = comp
	}

	betaByID := make(map[int64]source.BetaCompetition, len(betaComps))
	for _, comp := range betaComps {
		betaByID[comp.ID] = comp
	}

	candidates := make([]Candidate, 0, len(pairs))

	for i, pair := range pairs {
		alpha := alphaByID[pair.AlphaCompetitionID]
		beta := betaByID[pair.BetaCompetitionID]

		alphaCountry := a.normalizeCountry(alpha.Country)
		betaCountry := a.normalizeCountry(beta.Locale)

		var conflict string
		if alphaCountry != "" && betaCountry != "" && alphaCountry != betaCountry {
			conflict = "country_mismatch"
		}

		candidates = append(candidates, Candidate{
			Index:       i,
			LeftID:      formatID(pair.AlphaCompetitionID),
			RightID:     formatID(pair.BetaCompetitionID),
			LeftSource:  "ALPHA",
			RightSource: "BETA",
			Left: map[string]any{
				"id":   formatID(pair.AlphaCompetitionID),
				"name": normalize.NormalizeCompetition(alpha.Name, a.sponsors),
			},
			Right: map[string]any{
				"id":   formatID(pair.BetaCompetitionID),
				"name": normalize.NormalizeCompetition(beta.Title, a.sponsors),
			},
			MatcherScore: pair.Confidence,
			Signals: map[string]any{
				"name_similarity": pair.Confidence,
				"country_match":   countryMatchSignal(alphaCountry, betaCountry),
				"conflict_flags":  conflictFlags(conflict),
			},
		})
	}

	return candidates
}

// SeasonCandidates adapts season pairs. Conflict: both labels parse and the
// start years differ by more than one.
func (a *Adapter) SeasonCandidates(pairs []match.SeasonPair, alphaSeasons []source.AlphaSeason, betaSeasons []source.BetaSeason) []Candidate {
	alphaByID := make(map[int64]source.AlphaSeason, len(alphaSeasons))
	for _, season := range alphaSeasons {
		alphaByID[season.SeasonID] = season
	}

	betaByID := make(map[int64]source.BetaSeason, len(betaSeasons))
	for _, season := range betaSeasons {
		betaByID[season.ID] = season
	}

	candidates := make([]Candidate, 0, len(pairs))

	for i, pair := range pairs {
		alpha := alphaByID[pair.AlphaSeasonID]
		beta := betaByID[pair.BetaSeasonID]

		alphaStart, alphaEnd, alphaOK := normalize.NormalizeSeason(alpha.Name)
		betaStart, betaEnd, betaOK := normalize.NormalizeSeason(beta.Label)

		var (
			conflict  string
			yearDelta any
		)

		if alphaOK && betaOK {
			delta := alphaStart - betaStart
			if delta < 0 {
				delta = -delta
			}

			yearDelta = delta
			if delta > 1 {
				conflict = "season_year_mismatch"
			}
		}

		candidates = append(candidates, Candidate{
			Index:       i,
			LeftID:      formatID(pair.AlphaSeasonID),
			RightID:     formatID(pair.BetaSeasonID),
			LeftSource:  "ALPHA",
			RightSource: "BETA",
			Left: map[string]any{
				"id":         formatID(pair.AlphaSeasonID),
				"start_year": seasonYearSignal(alphaStart, alphaOK),
				"end_year":   seasonYearSignal(alphaEnd, alphaOK),
			},
			Right: map[string]any{
				"id":         formatID(pair.BetaSeasonID),
				"start_year": seasonYearSignal(betaStart, betaOK),
				"end_year":   seasonYearSignal(betaEnd, betaOK),
			},
			MatcherScore: pair.Confidence,
			Signals: map[string]any{
				"start_year_delta": yearDelta,
				"conflict_flags":   conflictFlags(conflict),
			},
		})
	}

	return candidates
}

// PlayerCandidates adapts player pairs, exposing the matcher's breakdown plus
// the birth years from both sides. Conflict: both years present and more than
// one year apart.
func (a *Adapter) PlayerCandidates(pairs []match.PlayerPair, alphaPlayers []source.AlphaPlayer, betaPlayers []source.BetaPlayer) []Candidate {
	alphaByID := make(map[int64]source.AlphaPlayer, len(alphaPlayers))
	for _, player := range alphaPlayers {
		alphaByID[player.PlayerID] = player
	}

	betaByID := make(map[int64]source.BetaPlayer, len(betaPlayers))
	for _, player := range betaPlayers {
		betaByID[player.ID] = player
	}

	candidates := make([]Candidate, 0, len(pairs))

	for i, pair := range pairs {
		alpha := alphaByID[pair.AlphaPlayerID]
		beta := betaByID[pair.BetaPlayerID]

		var (
			alphaYear any
			betaYear  any
			conflict  string
		)

		if alpha.DOB != nil {
			alphaYear = alpha.DOB.Year()
		}

		if beta.BirthYear != nil {
			betaYear = *beta.BirthYear
		}

		if alpha.DOB != nil && beta.BirthYear != nil {
			delta := alpha.DOB.Year() - *beta.BirthYear
			if delta < 0 {
				delta = -delta
			}

			if delta > 1 {
				conflict = "dob_mismatch"
			}
		}

		candidates = append(candidates, Candidate{
			Index:       i,
			LeftID:      formatID(pair.AlphaPlayerID),
			RightID:     formatID(pair.BetaPlayerID),
			LeftSource:  "ALPHA",
			RightSource: "BETA",
			Left: map[string]any{
				"id":   formatID(pair.AlphaPlayerID),
				"name": normalize.NormalizeName(alpha.Name),
			},
			Right: map[string]any{
				"id":   formatID(pair.BetaPlayerID),
				"name": normalize.NormalizeName(beta.FullName),
			},
			MatcherScore: pair.Confidence,
			Signals: map[string]any{
				"name_similarity":  pair.Breakdown.NameSimilarity,
				"dob_similarity":   pair.Breakdown.DOBSimilarity,
				"team_similarity":  pair.Breakdown.TeamSimilarity,
				"birth_year_alpha": alphaYear,
				"birth_year_beta":  betaYear,
				"conflict_flags":   conflictFlags(conflict),
			},
		})
	}

	return candidates
}

// MatchCandidates adapts fixture pairs. Conflict: both kickoff dates present
// and more than two days apart.
func (a *Adapter) MatchCandidates(pairs []match.MatchPair, alphaMatches []source.AlphaMatch, betaMatches []source.BetaMatch) []Candidate {
	alphaByID := make(map[int64]source.AlphaMatch, len(alphaMatches))
	for _, fixture := range alphaMatches {
		alphaByID[fixture.MatchID] = fixture
	}

	betaByID := make(map[int64]source.BetaMatch, len(betaMatches))
	for _, fixture := range betaMatches {
		betaByID[fixture.ID] = fixture
	}

	candidates := make([]Candidate, 0, len(pairs))

	for i, pair := range pairs {
		alpha := alphaByID[pair.AlphaMatchID]
		beta := betaByID[pair.BetaMatchID]

		var (
			dateDelta any
			conflict  string
		)

		if alpha.MatchDate != nil && beta.MatchDate != nil {
			delta := alpha.MatchDate.Sub(*beta.MatchDate)
			if delta < 0 {
				delta = -delta
			}

			days := int(delta.Hours() / 24)
			dateDelta = days

			if days > 2 {
				conflict = "date_mismatch"
			}
		}

		candidates = append(candidates, Candidate{
			Index:       i,
			LeftID:      formatID(pair.AlphaMatchID),
			RightID:     formatID(pair.BetaMatchID),
			LeftSource:  "ALPHA",
			RightSource: "BETA",
			Left: map[string]any{
				"id":         formatID(pair.AlphaMatchID),
				"match_date": formatDate(alpha.MatchDate),
			},
			Right: map[string]any{
				"id":         formatID(pair.BetaMatchID),
				"match_date": formatDate(beta.MatchDate),
			},
			MatcherScore: pair.Confidence,
			Signals: map[string]any{
				"date_delta_days": dateDelta,
				"conflict_flags":  conflictFlags(conflict),
			},
		})
	}

	return candidates
}

func (a *Adapter) normalizeCountry(value string) string {
	if value == "" {
		return ""
	}

	return a.countries.Normalize(value)
}

// countryMatchSignal is true/false when the ALPHA side has a country, nil
// otherwise.
func countryMatchSignal(alphaCountry, betaCountry string) any {
	if alphaCountry == "" {
		return nil
	}

	return alphaCountry == betaCountry
}

func seasonYearSignal(year int, ok bool) any {
	if !ok {
		return nil
	}

	return year
}

// conflictFlags drops empty entries so signals always carry a well-formed,
// possibly empty list.
func conflictFlags(flags ...string) []string {
	out := []string{}

	for _, flag := range flags {
		if flag != "" {
			out = append(out, flag)
		}
	}

	return out
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatDate(value *time.Time) string {
	if value == nil {
		return ""
	}

	return value.Format("2006-01-02")
}
