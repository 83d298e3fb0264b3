package match

import (
	"github.com/uniscore-io/uniscore/internal/normalize"
	"github.com/uniscore-io/uniscore/internal/source"
)

// offByOneSeasonScore is the confidence for seasons whose start years differ
// by exactly one, which happens when one feed labels a season by its end year.
const offByOneSeasonScore = 0.7

// Seasons aligns ALPHA seasons with BETA seasons within competitions already
// mapped by the competitions stage. competitionMap translates ALPHA
// competition ids to BETA competition ids. Every qualifying pair is emitted.
func (m *Matcher) Seasons(
	alphaSeasons []source.AlphaSeason,
	betaSeasons []source.BetaSeason,
	competitionMap map[int64]int64,
) []SeasonPair {
	var pairs []SeasonPair

	for _, alpha := range alphaSeasons {
		alphaStart, alphaEnd, alphaOK := normalize.NormalizeSeason(alpha.Name)

		mappedComp, mapped := competitionMap[alpha.CompetitionID]
		if !mapped {
			continue
		}

		for _, beta := range betaSeasons {
			if beta.CompetitionID != mappedComp {
				continue
			}

			betaStart, betaEnd, betaOK := normalize.NormalizeSeason(beta.Label)

			var confidence float64

			switch {
			case alphaOK && betaOK && alphaStart == betaStart:
				confidence = 1.0
			case alphaOK && betaOK && absInt(alphaStart-betaStart) == 1:
				confidence = offByOneSeasonScore
			default:
				confidence = 0.0
			}

			if confidence < m.thresholds.ConfidenceReview {
				continue
			}

			startYear, endYear := alphaStart, alphaEnd
			if !alphaOK {
				startYear, endYear = betaStart, betaEnd
			}

			pairs = append(pairs, SeasonPair{
				AlphaSeasonID:      alpha.SeasonID,
				BetaSeasonID:       beta.ID,
				Confidence:         confidence,
				StartYear:          startYear,
				EndYear:            endYear,
				AlphaCompetitionID: alpha.CompetitionID,
				BetaCompetitionID:  beta.CompetitionID,
			})
		}
	}

	return pairs
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
