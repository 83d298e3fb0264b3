package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uniscore-io/uniscore/internal/qa"
	"github.com/uniscore-io/uniscore/internal/ues"
	"github.com/uniscore-io/uniscore/internal/validation"
)

// LineageRow is one source_lineage row, the flat provenance record the API
// serves alongside an entity.
type LineageRow struct {
	SourceSystem  string `json:"source_system"`
	SourceID      string `json:"source_id"`
	UESEntityType string `json:"ues_entity_type"`
	UESEntityID   string `json:"ues_entity_id"`
}

// ReviewRecord is a llm_match_reviews row with its database id, the shape the
// review API works with.
type ReviewRecord struct {
	ID int64 `json:"id"`

	validation.ReviewItem
}

// GetPlayer returns the canonical player for the given UES id.
func (s *Store) GetPlayer(ctx context.Context, uesPlayerID string) (ues.Player, error) {
	var (
		player      ues.Player
		nationality sql.NullString
		foot        sql.NullString
		teamID      sql.NullString
		lineage     []byte
	)

	err := s.conn.db.QueryRowContext(ctx, `
		SELECT ues_player_id, canonical_name, dob, birth_year, nationality,
		       height_cm, foot, team_ues_id, merge_confidence, lineage
		FROM ues_players
		WHERE ues_player_id = $1`,
		uesPlayerID,
	).Scan(
		&player.ID, &player.CanonicalName, &player.DOB, &player.BirthYear,
		&nationality, &player.HeightCM, &foot, &teamID,
		&player.MergeConfidence, &lineage,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ues.Player{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, uesPlayerID)
	}

	if err != nil {
		return ues.Player{}, fmt.Errorf("%w: get player: %w", ErrReadFailed, err)
	}

	player.Nationality = nationality.String
	player.Foot = foot.String
	player.TeamID = teamID.String

	if len(lineage) > 0 {
		if err := json.Unmarshal(lineage, &player.Lineage); err != nil {
			return ues.Player{}, fmt.Errorf("%w: decode lineage: %w", ErrReadFailed, err)
		}
	}

	return player, nil
}

// PlayerLineage returns the flat lineage rows for a player.
func (s *Store) PlayerLineage(ctx context.Context, uesPlayerID string) ([]LineageRow, error) {
	rows, err := s.conn.db.QueryContext(ctx, `
		SELECT source_system, source_id, ues_entity_type, ues_entity_id
		FROM source_lineage
		WHERE ues_entity_type = $1 AND ues_entity_id = $2
		ORDER BY source_system`,
		ues.EntityPlayer, uesPlayerID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: player lineage: %w", ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var lineage []LineageRow

	for rows.Next() {
		var row LineageRow

		if err := rows.Scan(&row.SourceSystem, &row.SourceID, &row.UESEntityType, &row.UESEntityID); err != nil {
			return nil, fmt.Errorf("%w: scan lineage row: %w", ErrReadFailed, err)
		}

		lineage = append(lineage, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: player lineage: %w", ErrReadFailed, err)
	}

	return lineage, nil
}

// LookupPlayerUESID resolves a source-local player id to its UES id through
// the lineage table.
func (s *Store) LookupPlayerUESID(ctx context.Context, sourceSystem, sourceID string) (string, error) {
	var uesID string

	err := s.conn.db.QueryRowContext(ctx, `
		SELECT ues_entity_id
		FROM source_lineage
		WHERE source_system = $1 AND source_id = $2 AND ues_entity_type = $3
		LIMIT 1`,
		sourceSystem, sourceID, ues.EntityPlayer,
	).Scan(&uesID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s/%s", ErrPlayerNotFound, sourceSystem, sourceID)
	}

	if err != nil {
		return "", fmt.Errorf("%w: lookup player: %w", ErrReadFailed, err)
	}

	return uesID, nil
}

// ListReviews returns review rows, newest first, optionally filtered by status.
func (s *Store) ListReviews(ctx context.Context, status string, limit int) ([]ReviewRecord, error) {
	query := `
		SELECT id, run_id, entity_type, left_source, left_id, right_source, right_id,
		       matcher_score, signals, llm_decision, llm_confidence,
		       reasons, risk_flags, status, created_at, updated_at
		FROM llm_match_reviews`

	args := []any{}

	if status != "" {
		query += ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, status, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.conn.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list reviews: %w", ErrReadFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var records []ReviewRecord

	for rows.Next() {
		record, err := scanReview(rows)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list reviews: %w", ErrReadFailed, err)
	}

	return records, nil
}

// GetReview returns a single review row by id.
func (s *Store) GetReview(ctx context.Context, id int64) (ReviewRecord, error) {
	row := s.conn.db.QueryRowContext(ctx, `
		SELECT id, run_id, entity_type, left_source, left_id, right_source, right_id,
		       matcher_score, signals, llm_decision, llm_confidence,
		       reasons, risk_flags, status, created_at, updated_at
		FROM llm_match_reviews
		WHERE id = $1`,
		id,
	)

	record, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ReviewRecord{}, fmt.Errorf("%w: %d", ErrReviewNotFound, id)
	}

	if err != nil {
		return ReviewRecord{}, err
	}

	return record, nil
}

// UpdateReviewStatus transitions a review row to the given status, bumping
// updated_at. Returns ErrReviewNotFound when the row does not exist.
func (s *Store) UpdateReviewStatus(ctx context.Context, id int64, status string) error {
	result, err := s.conn.db.ExecContext(ctx, `
		UPDATE llm_match_reviews
		SET status = $2, updated_at = $3
		WHERE id = $1`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: update review status: %w", ErrWriteFailed, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update review status: %w", ErrWriteFailed, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrReviewNotFound, id)
	}

	return nil
}

// GateResultForRun returns the persisted quality-gate verdict for a run. The
// boolean reports whether a verdict exists.
func (s *Store) GateResultForRun(ctx context.Context, runID string) (qa.GateResult, bool, error) {
	var (
		result      qa.GateResult
		failedGates []byte
		gateValues  []byte
	)

	err := s.conn.db.QueryRowContext(ctx, `
		SELECT run_id, status, failed_gates, gate_values, created_at
		FROM quality_gate_results
		WHERE run_id = $1`,
		runID,
	).Scan(&result.RunID, &result.Status, &failedGates, &gateValues, &result.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return qa.GateResult{}, false, nil
	}

	if err != nil {
		return qa.GateResult{}, false, fmt.Errorf("%w: gate result: %w", ErrReadFailed, err)
	}

	if len(failedGates) > 0 {
		if err := json.Unmarshal(failedGates, &result.FailedGates); err != nil {
			return qa.GateResult{}, false, fmt.Errorf("%w: decode failed gates: %w", ErrReadFailed, err)
		}
	}

	if len(gateValues) > 0 {
		if err := json.Unmarshal(gateValues, &result.GateValues); err != nil {
			return qa.GateResult{}, false, fmt.Errorf("%w: decode gate values: %w", ErrReadFailed, err)
		}
	}

	return result, true, nil
}

func scanReview(row rowScanner) (ReviewRecord, error) {
	var (
		record    ReviewRecord
		signals   []byte
		reasons   []byte
		riskFlags []byte
	)

	err := row.Scan(
		&record.ID, &record.RunID, &record.EntityType,
		&record.LeftSource, &record.LeftID, &record.RightSource, &record.RightID,
		&record.MatcherScore, &signals, &record.LLMDecision, &record.LLMConfidence,
		&reasons, &riskFlags, &record.Status, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ReviewRecord{}, err
	}

	if err != nil {
		return ReviewRecord{}, fmt.Errorf("%w: scan review: %w", ErrReadFailed, err)
	}

	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &record.Signals); err != nil {
			return ReviewRecord{}, fmt.Errorf("%w: decode signals: %w", ErrReadFailed, err)
		}
	}

	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &record.Reasons); err != nil {
			return ReviewRecord{}, fmt.Errorf("%w: decode reasons: %w", ErrReadFailed, err)
		}
	}

	if len(riskFlags) > 0 {
		if err := json.Unmarshal(riskFlags, &record.RiskFlags); err != nil {
			return ReviewRecord{}, fmt.Errorf("%w: decode risk flags: %w", ErrReadFailed, err)
		}
	}

	return record, nil
}
