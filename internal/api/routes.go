package api

import (
	"net/http"

	"github.com/uniscore-io/uniscore/internal/api/middleware"
)

// setupRoutes registers every HTTP route. Mutating endpoints are registered
// as admin endpoints so the auth middleware demands the internal API key;
// reads and health probes stay open.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health probes.
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Mapping run trigger.
	mux.HandleFunc("POST /api/v1/mapping/run", s.handleRunMapping)
	middleware.RegisterAdminEndpoint("POST /api/v1/mapping/run")

	// UES entity reads and source-id lookups.
	mux.HandleFunc("GET /api/v1/ues/players/{id}", s.handleGetPlayer)
	mux.HandleFunc("GET /api/v1/ues/players/{id}/lineage", s.handlePlayerLineage)
	mux.HandleFunc("GET /api/v1/lookup/players/alpha/{id}", s.handleLookupAlphaPlayer)
	mux.HandleFunc("GET /api/v1/lookup/players/beta/{id}", s.handleLookupBetaPlayer)

	// Review workflow. Reads are open, status transitions are admin-only.
	mux.HandleFunc("GET /api/v1/validation/reviews", s.handleListReviews)
	mux.HandleFunc("GET /api/v1/validation/reviews/{id}", s.handleGetReview)
	mux.HandleFunc("POST /api/v1/validation/reviews/{id}/approve", s.handleApproveReview)
	mux.HandleFunc("POST /api/v1/validation/reviews/{id}/reject", s.handleRejectReview)
	middleware.RegisterAdminEndpoint("POST /api/v1/validation/reviews")

	// Run monitoring.
	mux.HandleFunc("GET /api/v1/runs/{run_id}/report", s.handleRunReport)
	mux.HandleFunc("GET /api/v1/runs/{run_id}/gate", s.handleRunGate)

	// Catch-all 404 in problem+json form.
	mux.HandleFunc("/", s.handleNotFound)
}

// handleNotFound returns RFC 7807 compliant 404 responses for unknown paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}
