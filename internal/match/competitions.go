package match

import (
	"github.com/uniscore-io/uniscore/internal/normalize"
	"github.com/uniscore-io/uniscore/internal/source"
)

// Competitions aligns ALPHA competitions with BETA competitions by
// sponsor-stripped name similarity. Country falls back to the BETA locale
// when ALPHA has none; either way it is canonicalized.
func (m *Matcher) Competitions(alphaComps []source.AlphaCompetition, betaComps []source.BetaCompetition) []CompetitionPair {
	pairs := make([]CompetitionPair, 0, len(alphaComps))

	for _, alpha := range alphaComps {
		normAlpha := normalize.NormalizeCompetition(alpha.Name, m.sponsors)

		var (
			best      *source.BetaCompetition
			bestScore float64
		)

		for i := range betaComps {
			beta := &betaComps[i]
			normBeta := normalize.NormalizeCompetition(beta.Title, m.sponsors)

			if score := normalize.TokenSortRatio(normAlpha, normBeta); score > bestScore {
				bestScore = score
				best = beta
			}
		}

		if best == nil || bestScore < m.thresholds.CompetitionSimilarity {
			continue
		}

		country := alpha.Country
		if country == "" {
			country = best.Locale
		}

		pairs = append(pairs, CompetitionPair{
			AlphaCompetitionID: alpha.CompetitionID,
			BetaCompetitionID:  best.ID,
			Confidence:         bestScore,
			Name:               alpha.Name,
			Country:            m.countries.Normalize(country),
		})
	}

	return pairs
}
