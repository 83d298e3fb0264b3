package match

import (
	"time"

	"github.com/uniscore-io/uniscore/internal/normalize"
	"github.com/uniscore-io/uniscore/internal/source"
)

// Matches aligns ALPHA matches with BETA matches. Candidates are restricted
// to BETA rows whose competition and season ids agree with the ALPHA→BETA
// maps from the earlier stages, and whose home/away team ids both equal the
// mapped ALPHA team ids. BETA rows without direct team ids are skipped;
// MatchesByName handles name-only exports.
func (m *Matcher) Matches(
	alphaMatches []source.AlphaMatch,
	betaMatches []source.BetaMatch,
	teamMap map[int64]int64,
	competitionMap map[int64]int64,
	seasonMap map[int64]int64,
) []MatchPair {
	return m.matchFixtures(alphaMatches, betaMatches, teamMap, competitionMap, seasonMap, nil)
}

// MatchesByName is the name-tolerant variant: BETA rows lacking
// home_team_id/away_team_id resolve their team references through a
// normalized display-name index built from betaTeams. Rows that resolve
// neither way are skipped.
func (m *Matcher) MatchesByName(
	alphaMatches []source.AlphaMatch,
	betaMatches []source.BetaMatch,
	teamMap map[int64]int64,
	competitionMap map[int64]int64,
	seasonMap map[int64]int64,
	betaTeams []source.BetaTeam,
) []MatchPair {
	lookup := make(map[string]int64, len(betaTeams))
	for _, team := range betaTeams {
		lookup[normalize.NormalizeName(team.DisplayName)] = team.ID
	}

	return m.matchFixtures(alphaMatches, betaMatches, teamMap, competitionMap, seasonMap, lookup)
}

func (m *Matcher) matchFixtures(
	alphaMatches []source.AlphaMatch,
	betaMatches []source.BetaMatch,
	teamMap map[int64]int64,
	competitionMap map[int64]int64,
	seasonMap map[int64]int64,
	betaTeamLookup map[string]int64,
) []MatchPair {
	var pairs []MatchPair

	for _, alpha := range alphaMatches {
		var (
			best      *source.BetaMatch
			bestScore float64
		)

		for i := range betaMatches {
			beta := &betaMatches[i]

			if mapped, ok := competitionMap[alpha.CompetitionID]; !ok || mapped != beta.CompetitionID {
				continue
			}

			if mapped, ok := seasonMap[alpha.SeasonID]; !ok || mapped != beta.SeasonID {
				continue
			}

			mappedHome, homeOK := teamMap[alpha.HomeTeamID]
			mappedAway, awayOK := teamMap[alpha.AwayTeamID]

			if !homeOK || !awayOK {
				continue
			}

			betaHome, betaAway, resolved := resolveBetaTeams(beta, betaTeamLookup)
			if !resolved || mappedHome != betaHome || mappedAway != betaAway {
				continue
			}

			score := matchTeamWeight + matchDateWeight*dateSimilarity(alpha.MatchDate, beta.MatchDate) + matchBaseScore
			if score > bestScore {
				bestScore = score
				best = beta
			}
		}

		if best == nil || bestScore < m.thresholds.ConfidenceReview {
			continue
		}

		pairs = append(pairs, MatchPair{
			AlphaMatchID: alpha.MatchID,
			BetaMatchID:  best.ID,
			Confidence:   bestScore,
		})
	}

	return pairs
}

// resolveBetaTeams returns the BETA home/away team ids, preferring direct id
// columns and falling back to the display-name lookup when one is supplied.
func resolveBetaTeams(beta *source.BetaMatch, lookup map[string]int64) (home, away int64, ok bool) {
	if beta.HomeTeamID != nil && beta.AwayTeamID != nil {
		return *beta.HomeTeamID, *beta.AwayTeamID, true
	}

	if lookup == nil {
		return 0, 0, false
	}

	home, homeOK := lookup[normalize.NormalizeName(beta.HomeTeam)]
	away, awayOK := lookup[normalize.NormalizeName(beta.AwayTeam)]

	return home, away, homeOK && awayOK
}

// dateSimilarity scores kickoff-date closeness: same day 1.0, one day apart
// 0.8, otherwise 0. Missing dates on either side score 0.
func dateSimilarity(alphaDate, betaDate *time.Time) float64 {
	if alphaDate == nil || betaDate == nil {
		return 0.0
	}

	delta := alphaDate.Sub(*betaDate)
	if delta < 0 {
		delta = -delta
	}

	days := int(delta.Hours() / 24)

	switch {
	case days == 0:
		return 1.0
	case days <= 1:
		return dayDateScore
	default:
		return 0.0
	}
}
