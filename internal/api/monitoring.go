package api

import (
	"net/http"

	"github.com/uniscore-io/uniscore/internal/qa"
)

// handleRunReport serves GET /api/v1/runs/{run_id}/report: the full quality
// document for one run, assembled from metrics, anomalies and review counts.
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	report, err := qa.BuildReport(r.Context(), s.store, runID)
	if err != nil {
		s.logStoreError(r, "build run report", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to build run report"))

		return
	}

	if len(report.Metrics) == 0 {
		WriteErrorResponse(w, r, s.logger, NotFound("No metrics recorded for that run"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, report)
}

// handleRunGate serves GET /api/v1/runs/{run_id}/gate: the persisted
// quality-gate verdict for one run.
func (s *Server) handleRunGate(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")

	result, ok, err := s.store.GateResultForRun(r.Context(), runID)
	if err != nil {
		s.logStoreError(r, "load gate result", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to load gate result"))

		return
	}

	if !ok {
		WriteErrorResponse(w, r, s.logger, NotFound("No gate verdict recorded for that run"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, result)
}
