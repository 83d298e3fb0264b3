package match

import (
	"github.com/uniscore-io/uniscore/internal/normalize"
	"github.com/uniscore-io/uniscore/internal/source"
)

// Teams aligns ALPHA teams with BETA teams by normalized-name similarity.
// For each ALPHA team the best-scoring BETA team is kept when its
// token-sort ratio reaches the team similarity threshold.
func (m *Matcher) Teams(alphaTeams []source.AlphaTeam, betaTeams []source.BetaTeam) []TeamPair {
	pairs := make([]TeamPair, 0, len(alphaTeams))

	for _, alpha := range alphaTeams {
		normAlpha := normalize.NormalizeName(m.applyAlias(alpha.Name))

		var (
			best      *source.BetaTeam
			bestScore float64
		)

		for i := range betaTeams {
			beta := &betaTeams[i]
			normBeta := normalize.NormalizeName(m.applyAlias(beta.DisplayName))

			if score := normalize.TokenSortRatio(normAlpha, normBeta); score > bestScore {
				bestScore = score
				best = beta
			}
		}

		if best == nil || bestScore < m.thresholds.TeamSimilarity {
			continue
		}

		country := alpha.Country
		if country == "" {
			country = best.Region
		}

		pairs = append(pairs, TeamPair{
			AlphaTeamID: alpha.TeamID,
			BetaTeamID:  best.ID,
			Confidence:  bestScore,
			Name:        alpha.Name,
			Country:     country,
		})
	}

	return pairs
}
