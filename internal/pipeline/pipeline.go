// Package pipeline orchestrates a full mapping run: it resets the UES,
// snapshots both sources, executes the five resolution stages in strict
// order (teams → competitions → seasons → players → matches), propagates the
// ID maps between stages, persists every run artifact and finishes with the
// run-level quality gate evaluation. Resolution and persistence failures are
// fatal to the run (the partially-written state is cleared by the next run's
// reset); monitoring failures — anomaly detection, triage, gate evaluation —
// are logged and skipped so they never discard a resolved run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/match"
	"github.com/uniscore-io/uniscore/internal/merge"
	"github.com/uniscore-io/uniscore/internal/monitoring"
	"github.com/uniscore-io/uniscore/internal/qa"
	"github.com/uniscore-io/uniscore/internal/source"
	"github.com/uniscore-io/uniscore/internal/ues"
	"github.com/uniscore-io/uniscore/internal/validation"
)

// AutoTriageEnvVar gates per-stage triage report generation during mapping.
const AutoTriageEnvVar = "AUTO_TRIAGE_DURING_MAPPING"

// Store is the persistence surface the orchestrator drives. The UES store
// implements it.
type Store interface {
	Reset(ctx context.Context) error

	WriteTeams(ctx context.Context, teams []ues.Team) error
	WriteCompetitions(ctx context.Context, competitions []ues.Competition) error
	WriteSeasons(ctx context.Context, seasons []ues.Season) error
	WritePlayers(ctx context.Context, players []ues.Player) error
	WriteMatches(ctx context.Context, matches []ues.Match) error

	WriteReviews(ctx context.Context, reviews []validation.ReviewItem) error
	WriteMetrics(ctx context.Context, metrics validation.StageMetrics) error
	WriteAnomalies(ctx context.Context, anomalies []monitoring.AnomalyEvent) error
	WriteTriageReport(ctx context.Context, runID, entityType string, report monitoring.TriageReport) error
	WriteGateResult(ctx context.Context, result qa.GateResult) error
}

// Router adjudicates one stage's candidates. validation.Router implements it.
type Router interface {
	Route(ctx context.Context, runID, entityType string, candidates []validation.Candidate) validation.Outcome
}

// AnomalyDetector compares a finished stage against its baseline.
// monitoring.Detector implements it.
type AnomalyDetector interface {
	Detect(ctx context.Context, runID, entityType string) ([]monitoring.AnomalyEvent, error)
}

// TriageGenerator builds the per-stage anomaly triage report.
// monitoring.Triager implements it.
type TriageGenerator interface {
	Generate(ctx context.Context, runID, entityType string) (monitoring.TriageReport, error)
}

// GateEvaluator renders the run-level PASS/FAIL verdict. qa.Evaluator
// implements it.
type GateEvaluator interface {
	Evaluate(ctx context.Context, runID string) (qa.GateResult, error)
}

// Sources snapshots the ALPHA and BETA databases at run start.
type Sources interface {
	LoadAlpha(ctx context.Context) (*source.AlphaSnapshot, error)
	LoadBeta(ctx context.Context) (*source.BetaSnapshot, error)
}

// Deps bundles the collaborators a Pipeline drives. Events may be nil, in
// which case run events are dropped.
type Deps struct {
	Sources  Sources
	Store    Store
	Router   Router
	Detector AnomalyDetector
	Triager  TriageGenerator
	Gates    GateEvaluator
	Events   EventPublisher
}

// Pipeline sequences the resolution stages for one or more mapping runs. It
// is safe to reuse across runs but not concurrently.
type Pipeline struct {
	sources  Sources
	store    Store
	router   Router
	detector AnomalyDetector
	triager  TriageGenerator
	gates    GateEvaluator
	events   EventPublisher
	logger   *slog.Logger

	matcher *match.Matcher
	adapter *validation.Adapter
	merger  *merge.Merger

	now      func() time.Time
	newRunID func() string
}

// New builds a Pipeline from the loaded configuration bundle and its
// collaborators.
func New(bundle *config.Bundle, deps Deps, logger *slog.Logger) *Pipeline {
	events := deps.Events
	if events == nil {
		events = NopPublisher{}
	}

	return &Pipeline{
		sources:  deps.Sources,
		store:    deps.Store,
		router:   deps.Router,
		detector: deps.Detector,
		triager:  deps.Triager,
		gates:    deps.Gates,
		events:   events,
		logger:   logger,
		matcher:  match.New(bundle),
		adapter:  validation.NewAdapter(bundle),
		merger:   merge.New(bundle),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
}

// RunResult summarizes a completed mapping run.
type RunResult struct {
	RunID      string
	Gate       qa.GateResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// stageMaps carries one stage's alignment products to the stages that depend
// on it: the raw ALPHA→BETA id map consumed by downstream matchers, and the
// source-id→UES-id maps consumed by downstream mergers.
type stageMaps struct {
	alphaToBeta map[int64]int64
	alphaUES    merge.IDMap
	betaUES     merge.IDMap
}

// Run executes one full mapping run and returns its run id and gate verdict.
// On error the run is left partially written; the next run's reset clears it.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	runID := p.newRunID()
	startedAt := p.now().UTC()
	autoTriage := config.GetEnvBool(AutoTriageEnvVar, false)

	p.logger.Info("mapping run started",
		slog.String("run_id", runID),
		slog.Bool("auto_triage", autoTriage))

	if err := p.store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset store: %w", err)
	}

	alpha, err := p.sources.LoadAlpha(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ALPHA snapshot: %w", err)
	}

	beta, err := p.sources.LoadBeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("load BETA snapshot: %w", err)
	}

	teams, err := p.runTeams(ctx, runID, autoTriage, alpha, beta)
	if err != nil {
		return nil, fmt.Errorf("team stage: %w", err)
	}

	competitions, err := p.runCompetitions(ctx, runID, autoTriage, alpha, beta)
	if err != nil {
		return nil, fmt.Errorf("competition stage: %w", err)
	}

	seasons, err := p.runSeasons(ctx, runID, autoTriage, alpha, beta, competitions)
	if err != nil {
		return nil, fmt.Errorf("season stage: %w", err)
	}

	if err := p.runPlayers(ctx, runID, autoTriage, alpha, beta, teams); err != nil {
		return nil, fmt.Errorf("player stage: %w", err)
	}

	if err := p.runMatches(ctx, runID, autoTriage, alpha, beta, teams, competitions, seasons); err != nil {
		return nil, fmt.Errorf("match stage: %w", err)
	}

	// Gate evaluation is advisory too: the run's entities are already
	// persisted, so an evaluation failure leaves the verdict empty instead
	// of discarding the run.
	gate, err := p.gates.Evaluate(ctx, runID)
	if err != nil {
		p.logger.Warn("quality gate evaluation failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))

		gate = qa.GateResult{}
	} else if err := p.store.WriteGateResult(ctx, gate); err != nil {
		return nil, fmt.Errorf("write gate result: %w", err)
	}

	finishedAt := p.now().UTC()

	// Run events are best-effort: a broker outage never fails a completed run.
	event := RunEvent{
		RunID:       runID,
		Status:      gate.Status,
		FailedGates: gate.FailedGates,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	}
	if err := p.events.Publish(ctx, event); err != nil {
		p.logger.Warn("run event publish failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()))
	}

	p.logger.Info("mapping run finished",
		slog.String("run_id", runID),
		slog.String("gate_status", gate.Status),
		slog.Duration("elapsed", finishedAt.Sub(startedAt)))

	return &RunResult{
		RunID:      runID,
		Gate:       gate,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}, nil
}

func (p *Pipeline) runTeams(
	ctx context.Context,
	runID string,
	autoTriage bool,
	alpha *source.AlphaSnapshot,
	beta *source.BetaSnapshot,
) (stageMaps, error) {
	pairs := p.matcher.Teams(alpha.Teams, beta.Teams)
	candidates := p.adapter.TeamCandidates(pairs, alpha.Teams, beta.Teams)

	routeStart := p.now().UTC()
	outcome := p.router.Route(ctx, runID, ues.EntityTeam, candidates)

	if err := p.finishStage(ctx, runID, ues.EntityTeam, autoTriage, routeStart, &outcome); err != nil {
		return stageMaps{}, err
	}

	approved := approvedPairs(pairs, outcome.Approved)

	entities, alphaMap, betaMap := p.merger.Teams(approved, alpha.Teams, beta.Teams)
	if err := p.store.WriteTeams(ctx, entities); err != nil {
		return stageMaps{}, fmt.Errorf("write teams: %w", err)
	}

	raw := make(map[int64]int64, len(approved))
	for _, pair := range approved {
		raw[pair.AlphaTeamID] = pair.BetaTeamID
	}

	return stageMaps{alphaToBeta: raw, alphaUES: alphaMap, betaUES: betaMap}, nil
}

func (p *Pipeline) runCompetitions(
	ctx context.Context,
	runID string,
	autoTriage bool,
	alpha *source.AlphaSnapshot,
	beta *source.BetaSnapshot,
) (stageMaps, error) {
	pairs := p.matcher.Competitions(alpha.Competitions, beta.Competitions)
	candidates := p.adapter.CompetitionCandidates(pairs, alpha.Competitions, beta.Competitions)

	routeStart := p.now().UTC()
	outcome := p.router.Route(ctx, runID, ues.EntityCompetition, candidates)

	if err := p.finishStage(ctx, runID, ues.EntityCompetition, autoTriage, routeStart, &outcome); err != nil {
		return stageMaps{}, err
	}

	approved := approvedPairs(pairs, outcome.Approved)

	entities, alphaMap, betaMap := p.merger.Competitions(approved)
	if err := p.store.WriteCompetitions(ctx, entities); err != nil {
		return stageMaps{}, fmt.Errorf("write competitions: %w", err)
	}

	raw := make(map[int64]int64, len(approved))
	for _, pair := range approved {
		raw[pair.AlphaCompetitionID] = pair.BetaCompetitionID
	}

	return stageMaps{alphaToBeta: raw, alphaUES: alphaMap, betaUES: betaMap}, nil
}

func (p *Pipeline) runSeasons(
	ctx context.Context,
	runID string,
	autoTriage bool,
	alpha *source.AlphaSnapshot,
	beta *source.BetaSnapshot,
	competitions stageMaps,
) (stageMaps, error) {
	pairs := p.matcher.Seasons(alpha.Seasons, beta.Seasons, competitions.alphaToBeta)
	candidates := p.adapter.SeasonCandidates(pairs, alpha.Seasons, beta.Seasons)

	routeStart := p.now().UTC()
	outcome := p.router.Route(ctx, runID, ues.EntitySeason, candidates)

	if err := p.finishStage(ctx, runID, ues.EntitySeason, autoTriage, routeStart, &outcome); err != nil {
		return stageMaps{}, err
	}

	approved := approvedPairs(pairs, outcome.Approved)

	entities, alphaMap, betaMap := p.merger.Seasons(approved, competitions.alphaUES, competitions.betaUES)
	if err := p.store.WriteSeasons(ctx, entities); err != nil {
		return stageMaps{}, fmt.Errorf("write seasons: %w", err)
	}

	raw := make(map[int64]int64, len(approved))
	for _, pair := range approved {
		raw[pair.AlphaSeasonID] = pair.BetaSeasonID
	}

	return stageMaps{alphaToBeta: raw, alphaUES: alphaMap, betaUES: betaMap}, nil
}

func (p *Pipeline) runPlayers(
	ctx context.Context,
	runID string,
	autoTriage bool,
	alpha *source.AlphaSnapshot,
	beta *source.BetaSnapshot,
	teams stageMaps,
) error {
	pairs := p.matcher.Players(alpha.Players, beta.Players, teams.alphaToBeta, beta.Teams)
	candidates := p.adapter.PlayerCandidates(pairs, alpha.Players, beta.Players)

	routeStart := p.now().UTC()
	outcome := p.router.Route(ctx, runID, ues.EntityPlayer, candidates)

	if err := p.finishStage(ctx, runID, ues.EntityPlayer, autoTriage, routeStart, &outcome); err != nil {
		return err
	}

	approved := approvedPairs(pairs, outcome.Approved)

	entities, _, _ := p.merger.Players(approved, alpha.Players, beta.Players, teams.alphaUES)
	if err := p.store.WritePlayers(ctx, entities); err != nil {
		return fmt.Errorf("write players: %w", err)
	}

	return nil
}

func (p *Pipeline) runMatches(
	ctx context.Context,
	runID string,
	autoTriage bool,
	alpha *source.AlphaSnapshot,
	beta *source.BetaSnapshot,
	teams, competitions, seasons stageMaps,
) error {
	// The strict id-only matcher is wired here; MatchesByName remains
	// available for feeds that export team names instead of ids.
	pairs := p.matcher.Matches(alpha.Matches, beta.Matches,
		teams.alphaToBeta, competitions.alphaToBeta, seasons.alphaToBeta)
	candidates := p.adapter.MatchCandidates(pairs, alpha.Matches, beta.Matches)

	routeStart := p.now().UTC()
	outcome := p.router.Route(ctx, runID, ues.EntityMatch, candidates)

	if err := p.finishStage(ctx, runID, ues.EntityMatch, autoTriage, routeStart, &outcome); err != nil {
		return err
	}

	approved := approvedPairs(pairs, outcome.Approved)

	entities := p.merger.Matches(approved, alpha.Matches,
		teams.alphaUES, competitions.alphaUES, seasons.alphaUES)
	if err := p.store.WriteMatches(ctx, entities); err != nil {
		return fmt.Errorf("write matches: %w", err)
	}

	return nil
}

// finishStage stamps the routing window onto the stage metrics and persists
// the run artifacts: reviews, metrics, anomaly events and, when enabled, the
// triage report.
func (p *Pipeline) finishStage(
	ctx context.Context,
	runID, entityType string,
	autoTriage bool,
	routeStart time.Time,
	outcome *validation.Outcome,
) error {
	outcome.Metrics.StartedAt = routeStart
	outcome.Metrics.FinishedAt = p.now().UTC()

	if err := p.store.WriteReviews(ctx, outcome.Reviews); err != nil {
		return fmt.Errorf("write reviews: %w", err)
	}

	if err := p.store.WriteMetrics(ctx, outcome.Metrics); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	// Monitoring is advisory: a baseline read failure must not discard a
	// fully-resolved stage, so detection and triage errors are logged and
	// their artifacts skipped.
	anomalies, err := p.detector.Detect(ctx, runID, entityType)
	if err != nil {
		p.logger.Warn("anomaly detection failed",
			slog.String("run_id", runID),
			slog.String("entity_type", entityType),
			slog.String("error", err.Error()))

		anomalies = nil
	} else if err := p.store.WriteAnomalies(ctx, anomalies); err != nil {
		return fmt.Errorf("write anomalies: %w", err)
	}

	if autoTriage {
		report, err := p.triager.Generate(ctx, runID, entityType)
		if err != nil {
			p.logger.Warn("triage report generation failed",
				slog.String("run_id", runID),
				slog.String("entity_type", entityType),
				slog.String("error", err.Error()))
		} else if err := p.store.WriteTriageReport(ctx, runID, entityType, report); err != nil {
			return fmt.Errorf("write triage report: %w", err)
		}
	}

	p.logger.Info("stage complete",
		slog.String("run_id", runID),
		slog.String("entity_type", entityType),
		slog.Int("total_candidates", outcome.Metrics.TotalCandidates),
		slog.Int("auto_match", outcome.Metrics.AutoMatchCount),
		slog.Int("auto_reject", outcome.Metrics.AutoRejectCount),
		slog.Int("gray_zone_sent", outcome.Metrics.GrayZoneSentCount),
		slog.Int("anomalies", len(anomalies)))

	return nil
}

// approvedPairs recovers the matcher pairs behind the router-approved
// candidates via Candidate.Index.
func approvedPairs[T any](pairs []T, approved []validation.Candidate) []T {
	out := make([]T, 0, len(approved))

	for _, candidate := range approved {
		out = append(out, pairs[candidate.Index])
	}

	return out
}
