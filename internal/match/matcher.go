// Package match implements the candidate-pair matchers that align ALPHA and
// BETA entities. Each matcher walks the ALPHA side in source row order and
// scores BETA candidates with the normalize package's similarity primitives;
// ties keep the earliest BETA row. Matchers never fail on malformed rows:
// missing optional fields contribute a zero sub-score, and unmappable ids are
// dropped silently.
package match

import (
	"strings"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/normalize"
)

// Player confidence blend weights.
const (
	playerNameWeight = 0.6
	playerDOBWeight  = 0.3
	playerTeamWeight = 0.1
)

// Match confidence components: aligned teams contribute a fixed share, the
// date closeness the rest, plus a constant base for passing the id filters.
const (
	matchTeamWeight = 0.4
	matchDateWeight = 0.3
	matchBaseScore  = 0.3
)

// dayDateScore is the date sub-score when kickoff dates differ by one day,
// which absorbs timezone skew between the two feeds.
const dayDateScore = 0.8

// Matcher produces candidate pairs for all five entity types using the
// thresholds, alias rules and normalization tables from the config bundle.
type Matcher struct {
	thresholds config.Thresholds
	aliases    map[string]string
	sponsors   []string
	countries  normalize.CountryTable
}

// New builds a Matcher from the loaded configuration bundle.
func New(bundle *config.Bundle) *Matcher {
	aliases := make(map[string]string, len(bundle.Rules.TeamNameAliases))
	for from, to := range bundle.Rules.TeamNameAliases {
		aliases[strings.ToLower(from)] = to
	}

	return &Matcher{
		thresholds: bundle.Thresholds,
		aliases:    aliases,
		sponsors:   bundle.Normalization.CompetitionSponsors,
		countries:  normalize.NewCountryTable(bundle.Normalization.Countries),
	}
}

// applyAlias replaces a team name with its configured canonical form, if any.
func (m *Matcher) applyAlias(name string) string {
	if alias, ok := m.aliases[strings.ToLower(name)]; ok {
		return alias
	}

	return name
}
