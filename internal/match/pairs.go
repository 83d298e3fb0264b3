package match

// TeamPair is a candidate team alignment emitted by the teams matcher.
// Name and Country carry the ALPHA values used later by the merger.
type TeamPair struct {
	AlphaTeamID int64
	BetaTeamID  int64
	Confidence  float64
	Name        string
	Country     string
}

// CompetitionPair is a candidate competition alignment.
type CompetitionPair struct {
	AlphaCompetitionID int64
	BetaCompetitionID  int64
	Confidence         float64
	Name               string
	Country            string
}

// SeasonPair is a candidate season alignment. Unlike the other matchers the
// seasons matcher emits every qualifying pair per ALPHA season, because the
// same season label legitimately repeats across competitions.
type SeasonPair struct {
	AlphaSeasonID      int64
	BetaSeasonID       int64
	Confidence         float64
	StartYear          int
	EndYear            int
	AlphaCompetitionID int64
	BetaCompetitionID  int64
}

// PlayerPair is a candidate player alignment with its per-signal breakdown.
type PlayerPair struct {
	AlphaPlayerID int64
	BetaPlayerID  int64
	Confidence    float64
	Breakdown     PlayerBreakdown
}

// PlayerBreakdown records the individual similarity signals blended into a
// player confidence.
type PlayerBreakdown struct {
	NameSimilarity float64 `json:"name_similarity"`
	DOBSimilarity  float64 `json:"dob_similarity"`
	TeamSimilarity float64 `json:"team_similarity"`
}

// MatchPair is a candidate match alignment.
type MatchPair struct {
	AlphaMatchID int64
	BetaMatchID  int64
	Confidence   float64
}
