// Package ues defines the Unified Entity Store domain model: canonical
// entities merged from the ALPHA and BETA sources, their provenance lineage,
// and the deterministic identifier scheme that keeps re-runs stable.
package ues

import (
	"crypto/md5" //nolint:gosec // identifier derivation, not security
	"encoding/hex"
	"fmt"
	"time"
)

// Entity type names used across lineage, reviews, metrics and anomalies.
const (
	EntityTeam        = "team"
	EntityCompetition = "competition"
	EntitySeason      = "season"
	EntityPlayer      = "player"
	EntityMatch       = "match"
)

// UES identifier prefixes, one per entity type.
const (
	PrefixTeam        = "UEST"
	PrefixCompetition = "UESC"
	PrefixSeason      = "UESS"
	PrefixPlayer      = "UESP"
	PrefixMatch       = "UESM"
)

// Source system names recorded in lineage.
const (
	SourceAlpha = "ALPHA"
	SourceBeta  = "BETA"
)

// idDigestLen is the number of hex digits kept from the MD5 digest.
const idDigestLen = 8

// GenerateID derives the deterministic UES identifier for a matched pair:
// the prefix followed by the first eight hex digits of the MD5 digest of
// "prefix-alphaID-betaID". The same inputs always produce the same id, so
// repeated runs over identical snapshots converge on identical entities.
func GenerateID(prefix string, alphaID, betaID int64) string {
	digest := md5.Sum(fmt.Appendf(nil, "%s-%d-%d", prefix, alphaID, betaID)) //nolint:gosec // see import note

	return prefix + "-" + hex.EncodeToString(digest[:])[:idDigestLen]
}

// LineageSource identifies one side of a merged pair.
type LineageSource struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// Lineage is the provenance document stored alongside every UES entity.
// Sources always holds exactly one ALPHA and one BETA entry.
type Lineage struct {
	Sources             []LineageSource `json:"sources"`
	Confidence          float64         `json:"confidence"`
	ConfidenceBreakdown map[string]any  `json:"confidence_breakdown"`
	EntityType          string          `json:"entity_type"`
}

// BuildLineage assembles the lineage document for a merged entity.
func BuildLineage(entityType string, alphaID, betaID int64, confidence float64, breakdown map[string]any) Lineage {
	return Lineage{
		Sources: []LineageSource{
			{Source: SourceAlpha, ID: fmt.Sprintf("%d", alphaID)},
			{Source: SourceBeta, ID: fmt.Sprintf("%d", betaID)},
		},
		Confidence:          confidence,
		ConfidenceBreakdown: breakdown,
		EntityType:          entityType,
	}
}

// Team is a canonical team entity.
type Team struct {
	ID              string
	Name            string
	Country         string
	MergeConfidence float64
	Lineage         Lineage
}

// Competition is a canonical competition entity.
type Competition struct {
	ID              string
	Name            string
	Country         string
	MergeConfidence float64
	Lineage         Lineage
}

// Season is a canonical season entity. CompetitionID references the UES
// competition the season belongs to; empty when the competition was not
// resolved in this run.
type Season struct {
	ID              string
	StartYear       int
	EndYear         int
	CompetitionID   string
	MergeConfidence float64
	Lineage         Lineage
}

// Player is a canonical player entity. DOB comes from ALPHA, BirthYear from
// BETA; either may be absent.
type Player struct {
	ID              string
	CanonicalName   string
	DOB             *time.Time
	BirthYear       *int
	Nationality     string
	HeightCM        *int
	Foot            string
	TeamID          string
	MergeConfidence float64
	Lineage         Lineage
}

// Match is a canonical match entity. All referenced ids are UES ids resolved
// through the ALPHA-side maps; empty when unresolved.
type Match struct {
	ID              string
	HomeTeamID      string
	AwayTeamID      string
	SeasonID        string
	CompetitionID   string
	MatchDate       *time.Time
	MergeConfidence float64
	Lineage         Lineage
}
