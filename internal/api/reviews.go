package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/uniscore-io/uniscore/internal/store"
	"github.com/uniscore-io/uniscore/internal/validation"
)

const (
	defaultReviewLimit = 50
	maxReviewLimit     = 500
)

var allowedReviewStatuses = map[string]bool{
	validation.StatusPending:  true,
	validation.StatusApproved: true,
	validation.StatusRejected: true,
}

// ReviewListResponse is the body returned by the review list endpoint.
type ReviewListResponse struct {
	Reviews []store.ReviewRecord `json:"reviews"`
	Count   int                  `json:"count"`
}

// handleListReviews serves GET /api/v1/validation/reviews with optional
// status and limit query parameters.
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !allowedReviewStatuses[status] {
		WriteErrorResponse(w, r, s.logger, BadRequest("status must be PENDING, APPROVED or REJECTED"))

		return
	}

	limit := defaultReviewLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxReviewLimit {
			WriteErrorResponse(w, r, s.logger,
				BadRequest("limit must be a positive integer no greater than "+strconv.Itoa(maxReviewLimit)))

			return
		}

		limit = parsed
	}

	reviews, err := s.store.ListReviews(r.Context(), status, limit)
	if err != nil {
		s.logStoreError(r, "list reviews", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to list reviews"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, ReviewListResponse{Reviews: reviews, Count: len(reviews)})
}

// handleGetReview serves GET /api/v1/validation/reviews/{id}.
func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id, ok := s.reviewID(w, r)
	if !ok {
		return
	}

	review, err := s.store.GetReview(r.Context(), id)
	if errors.Is(err, store.ErrReviewNotFound) {
		WriteErrorResponse(w, r, s.logger, NotFound("No review with that id"))

		return
	}

	if err != nil {
		s.logStoreError(r, "get review", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to load review"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, review)
}

// handleApproveReview serves POST /api/v1/validation/reviews/{id}/approve.
func (s *Server) handleApproveReview(w http.ResponseWriter, r *http.Request) {
	s.transitionReview(w, r, validation.StatusApproved)
}

// handleRejectReview serves POST /api/v1/validation/reviews/{id}/reject.
func (s *Server) handleRejectReview(w http.ResponseWriter, r *http.Request) {
	s.transitionReview(w, r, validation.StatusRejected)
}

// transitionReview moves a pending review to the given terminal status and
// returns the updated record. Re-deciding an already decided review is a 409.
func (s *Server) transitionReview(w http.ResponseWriter, r *http.Request, status string) {
	id, ok := s.reviewID(w, r)
	if !ok {
		return
	}

	review, err := s.store.GetReview(r.Context(), id)
	if errors.Is(err, store.ErrReviewNotFound) {
		WriteErrorResponse(w, r, s.logger, NotFound("No review with that id"))

		return
	}

	if err != nil {
		s.logStoreError(r, "get review", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to load review"))

		return
	}

	if review.Status != validation.StatusPending {
		WriteErrorResponse(w, r, s.logger, Conflict("Review has already been decided"))

		return
	}

	if err := s.store.UpdateReviewStatus(r.Context(), id, status); err != nil {
		s.logStoreError(r, "update review status", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to update review"))

		return
	}

	updated, err := s.store.GetReview(r.Context(), id)
	if err != nil {
		s.logStoreError(r, "reload review", err)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to reload review"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, updated)
}

func (s *Server) reviewID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteErrorResponse(w, r, s.logger, BadRequest("review id must be a positive integer"))

		return 0, false
	}

	return id, true
}
