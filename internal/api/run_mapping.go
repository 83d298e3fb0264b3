package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/uniscore-io/uniscore/internal/api/middleware"
)

// RunResponse is the body returned by POST /api/v1/mapping/run.
type RunResponse struct {
	RunID       string    `json:"run_id"`
	GateStatus  string    `json:"gate_status"`
	FailedGates []string  `json:"failed_gates,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// handleRunMapping executes a full mapping run synchronously and returns the
// run id with its quality-gate verdict.
func (s *Server) handleRunMapping(w http.ResponseWriter, r *http.Request) {
	result, err := s.runner.Run(r.Context())
	if err != nil {
		s.logger.Error("mapping run failed",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Mapping run failed"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, RunResponse{
		RunID:       result.RunID,
		GateStatus:  result.Gate.Status,
		FailedGates: result.Gate.FailedGates,
		StartedAt:   result.StartedAt,
		FinishedAt:  result.FinishedAt,
	})
}
