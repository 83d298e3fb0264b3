package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/uniscore-io/uniscore/internal/api/middleware"
	"github.com/uniscore-io/uniscore/internal/store"
	"github.com/uniscore-io/uniscore/internal/ues"
)

type (
	// PlayerResponse is the canonical player document served by the API.
	PlayerResponse struct {
		ID              string      `json:"ues_player_id"`
		CanonicalName   string      `json:"canonical_name"`
		DOB             *string     `json:"dob,omitempty"`
		BirthYear       *int        `json:"birth_year,omitempty"`
		Nationality     string      `json:"nationality,omitempty"`
		HeightCM        *int        `json:"height_cm,omitempty"`
		Foot            string      `json:"foot,omitempty"`
		TeamID          string      `json:"team_ues_id,omitempty"`
		MergeConfidence float64     `json:"merge_confidence"`
		Lineage         ues.Lineage `json:"lineage"`
	}

	// LookupResponse maps a source-local id to its UES id.
	LookupResponse struct {
		SourceSystem string `json:"source_system"`
		SourceID     string `json:"source_id"`
		UESPlayerID  string `json:"ues_player_id"`
	}
)

// handleGetPlayer serves GET /api/v1/ues/players/{id}.
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.store.GetPlayer(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrPlayerNotFound) {
		WriteErrorResponse(w, r, s.logger, NotFound("No player with that UES id"))

		return
	}

	if err != nil {
		s.logStoreError(r, "get player", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to load player"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, playerResponse(player))
}

// handlePlayerLineage serves GET /api/v1/ues/players/{id}/lineage.
func (s *Server) handlePlayerLineage(w http.ResponseWriter, r *http.Request) {
	lineage, err := s.store.PlayerLineage(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logStoreError(r, "player lineage", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to load lineage"))

		return
	}

	if len(lineage) == 0 {
		WriteErrorResponse(w, r, s.logger, NotFound("No lineage recorded for that UES id"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, lineage)
}

// handleLookupAlphaPlayer serves GET /api/v1/lookup/players/alpha/{id}.
func (s *Server) handleLookupAlphaPlayer(w http.ResponseWriter, r *http.Request) {
	s.lookupPlayer(w, r, ues.SourceAlpha)
}

// handleLookupBetaPlayer serves GET /api/v1/lookup/players/beta/{id}.
func (s *Server) handleLookupBetaPlayer(w http.ResponseWriter, r *http.Request) {
	s.lookupPlayer(w, r, ues.SourceBeta)
}

func (s *Server) lookupPlayer(w http.ResponseWriter, r *http.Request, sourceSystem string) {
	sourceID := r.PathValue("id")

	uesID, err := s.store.LookupPlayerUESID(r.Context(), sourceSystem, sourceID)
	if errors.Is(err, store.ErrPlayerNotFound) {
		WriteErrorResponse(w, r, s.logger, NotFound("No mapping for that source id"))

		return
	}

	if err != nil {
		s.logStoreError(r, "lookup player", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to resolve player id"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, LookupResponse{
		SourceSystem: sourceSystem,
		SourceID:     sourceID,
		UESPlayerID:  uesID,
	})
}

func (s *Server) logStoreError(r *http.Request, op string, err error) {
	s.logger.Error("store operation failed",
		slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

func playerResponse(player ues.Player) PlayerResponse {
	resp := PlayerResponse{
		ID:              player.ID,
		CanonicalName:   player.CanonicalName,
		BirthYear:       player.BirthYear,
		Nationality:     player.Nationality,
		HeightCM:        player.HeightCM,
		Foot:            player.Foot,
		TeamID:          player.TeamID,
		MergeConfidence: player.MergeConfidence,
		Lineage:         player.Lineage,
	}

	if player.DOB != nil {
		dob := player.DOB.Format("2006-01-02")
		resp.DOB = &dob
	}

	return resp
}
