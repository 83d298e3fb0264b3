package match

import (
	"time"

	"github.com/uniscore-io/uniscore/internal/normalize"
	"github.com/uniscore-io/uniscore/internal/source"
)

// Players aligns ALPHA players with BETA players by a weighted blend of name,
// date-of-birth and team signals. teamMap translates ALPHA team ids to BETA
// team ids (from the teams stage); betaTeams supplies the normalized
// display-name index used to resolve each BETA player's team reference.
// Only candidates reaching the auto-pass confidence are emitted.
func (m *Matcher) Players(
	alphaPlayers []source.AlphaPlayer,
	betaPlayers []source.BetaPlayer,
	teamMap map[int64]int64,
	betaTeams []source.BetaTeam,
) []PlayerPair {
	betaTeamLookup := make(map[string]int64, len(betaTeams))
	for _, team := range betaTeams {
		betaTeamLookup[normalize.NormalizeName(team.DisplayName)] = team.ID
	}

	pairs := make([]PlayerPair, 0, len(alphaPlayers))

	for _, alpha := range alphaPlayers {
		normAlphaName := normalize.NormalizeName(alpha.Name)

		var (
			best          *source.BetaPlayer
			bestScore     float64
			bestBreakdown PlayerBreakdown
		)

		for i := range betaPlayers {
			beta := &betaPlayers[i]

			nameScore := normalize.TokenSortRatio(normAlphaName, normalize.NormalizeName(beta.FullName))
			dobScore := m.dobSimilarity(alpha.DOB, beta.BirthYear)

			teamScore := 0.0

			if betaTeamID, ok := betaTeamLookup[normalize.NormalizeName(beta.TeamName)]; ok {
				if mapped, hasMapping := teamMap[alpha.TeamID]; hasMapping && mapped == betaTeamID {
					teamScore = 1.0
				}
			}

			confidence := playerNameWeight*nameScore + playerDOBWeight*dobScore + playerTeamWeight*teamScore
			if confidence > bestScore {
				bestScore = confidence
				best = beta
				bestBreakdown = PlayerBreakdown{
					NameSimilarity: nameScore,
					DOBSimilarity:  dobScore,
					TeamSimilarity: teamScore,
				}
			}
		}

		if best == nil || bestScore < m.thresholds.ConfidenceAutoPass {
			continue
		}

		pairs = append(pairs, PlayerPair{
			AlphaPlayerID: alpha.PlayerID,
			BetaPlayerID:  best.ID,
			Confidence:    bestScore,
			Breakdown:     bestBreakdown,
		})
	}

	return pairs
}

// dobSimilarity compares an ALPHA date of birth against a BETA birth year.
// Either side missing yields 0.
func (m *Matcher) dobSimilarity(dob *time.Time, birthYear *int) float64 {
	if dob == nil || birthYear == nil {
		return 0.0
	}

	switch delta := absInt(dob.Year() - *birthYear); delta {
	case 0:
		return 1.0
	case 1:
		return m.thresholds.DOBPartialScore
	default:
		return 0.0
	}
}
