package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniscore-io/uniscore/internal/api/middleware"
	"github.com/uniscore-io/uniscore/internal/monitoring"
	"github.com/uniscore-io/uniscore/internal/pipeline"
	"github.com/uniscore-io/uniscore/internal/qa"
	"github.com/uniscore-io/uniscore/internal/store"
	"github.com/uniscore-io/uniscore/internal/ues"
	"github.com/uniscore-io/uniscore/internal/validation"
)

const testAdminKey = "test-admin-key"

var errStoreDown = errors.New("store down")

type fakeStore struct {
	healthErr error
	players   map[string]ues.Player
	lineage   map[string][]store.LineageRow
	lookups   map[string]string
	reviews   map[int64]store.ReviewRecord
	metrics   map[string][]validation.StageMetrics
	anomalies map[string][]monitoring.AnomalyEvent
	counts    map[string]map[string]map[string]int
	gates     map[string]qa.GateResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		players:   map[string]ues.Player{},
		lineage:   map[string][]store.LineageRow{},
		lookups:   map[string]string{},
		reviews:   map[int64]store.ReviewRecord{},
		metrics:   map[string][]validation.StageMetrics{},
		anomalies: map[string][]monitoring.AnomalyEvent{},
		counts:    map[string]map[string]map[string]int{},
		gates:     map[string]qa.GateResult{},
	}
}

func (f *fakeStore) HealthCheck(_ context.Context) error { return f.healthErr }

func (f *fakeStore) GetPlayer(_ context.Context, id string) (ues.Player, error) {
	player, ok := f.players[id]
	if !ok {
		return ues.Player{}, fmt.Errorf("%w: %s", store.ErrPlayerNotFound, id)
	}

	return player, nil
}

func (f *fakeStore) PlayerLineage(_ context.Context, id string) ([]store.LineageRow, error) {
	return f.lineage[id], nil
}

func (f *fakeStore) LookupPlayerUESID(_ context.Context, sourceSystem, sourceID string) (string, error) {
	uesID, ok := f.lookups[sourceSystem+"/"+sourceID]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", store.ErrPlayerNotFound, sourceSystem, sourceID)
	}

	return uesID, nil
}

func (f *fakeStore) ListReviews(_ context.Context, status string, limit int) ([]store.ReviewRecord, error) {
	var records []store.ReviewRecord

	for _, record := range f.reviews {
		if status == "" || record.Status == status {
			records = append(records, record)
		}

		if len(records) == limit {
			break
		}
	}

	return records, nil
}

func (f *fakeStore) GetReview(_ context.Context, id int64) (store.ReviewRecord, error) {
	record, ok := f.reviews[id]
	if !ok {
		return store.ReviewRecord{}, fmt.Errorf("%w: %d", store.ErrReviewNotFound, id)
	}

	return record, nil
}

func (f *fakeStore) UpdateReviewStatus(_ context.Context, id int64, status string) error {
	record, ok := f.reviews[id]
	if !ok {
		return fmt.Errorf("%w: %d", store.ErrReviewNotFound, id)
	}

	record.Status = status
	f.reviews[id] = record

	return nil
}

func (f *fakeStore) GateResultForRun(_ context.Context, runID string) (qa.GateResult, bool, error) {
	result, ok := f.gates[runID]

	return result, ok, nil
}

func (f *fakeStore) MetricsForRun(_ context.Context, runID string) ([]validation.StageMetrics, error) {
	return f.metrics[runID], nil
}

func (f *fakeStore) AnomaliesForRun(_ context.Context, runID string) ([]monitoring.AnomalyEvent, error) {
	return f.anomalies[runID], nil
}

func (f *fakeStore) ReviewCountsByStatus(_ context.Context, runID string) (map[string]map[string]int, error) {
	return f.counts[runID], nil
}

type fakeRunner struct {
	result *pipeline.RunResult
	err    error
	calls  int
}

func (f *fakeRunner) Run(_ context.Context) (*pipeline.RunResult, error) {
	f.calls++

	return f.result, f.err
}

func newTestServer(t *testing.T, st Store, runner MappingRunner) *httptest.Server {
	t.Helper()

	middleware.ResetAdminEndpoints()
	t.Cleanup(middleware.ResetAdminEndpoints)

	verifier, err := middleware.NewInternalKeyVerifier(testAdminKey)
	require.NoError(t, err)

	server := NewServer(LoadServerConfig(), Deps{
		Store:       st,
		Runner:      runner,
		KeyVerifier: verifier,
	})

	ts := httptest.NewServer(server.httpServer.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func doRequest(t *testing.T, method, url string, admin bool) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, nil)
	require.NoError(t, err)

	if admin {
		req.Header.Set(middleware.InternalKeyHeader, testAdminKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, body
}

func TestPingAndHealth(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeRunner{})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/ping", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	resp, body = doRequest(t, http.MethodGet, ts.URL+"/health", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "uniscore", health.ServiceName)
}

func TestReady_StoreUnavailable(t *testing.T) {
	st := newFakeStore()
	st.healthErr = errStoreDown

	ts := newTestServer(t, st, &fakeRunner{})

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/ready", false)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestGetPlayer(t *testing.T) {
	st := newFakeStore()
	dob := time.Date(2001, 9, 5, 0, 0, 0, 0, time.UTC)
	st.players["UESP-abc12345"] = ues.Player{
		ID:              "UESP-abc12345",
		CanonicalName:   "Bukayo Saka",
		DOB:             &dob,
		MergeConfidence: 0.97,
	}

	ts := newTestServer(t, st, &fakeRunner{})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/ues/players/UESP-abc12345", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var player PlayerResponse
	require.NoError(t, json.Unmarshal(body, &player))
	assert.Equal(t, "Bukayo Saka", player.CanonicalName)
	require.NotNil(t, player.DOB)
	assert.Equal(t, "2001-09-05", *player.DOB)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/ues/players/UESP-missing", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLookupPlayer(t *testing.T) {
	st := newFakeStore()
	st.lookups[ues.SourceAlpha+"/1000"] = "UESP-abc12345"
	st.lookups[ues.SourceBeta+"/7000"] = "UESP-abc12345"

	ts := newTestServer(t, st, &fakeRunner{})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/lookup/players/alpha/1000", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lookup LookupResponse
	require.NoError(t, json.Unmarshal(body, &lookup))
	assert.Equal(t, ues.SourceAlpha, lookup.SourceSystem)
	assert.Equal(t, "UESP-abc12345", lookup.UESPlayerID)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/lookup/players/beta/7000", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/lookup/players/beta/9999", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListReviews_RejectsInvalidParams(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeRunner{})

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/api/v1/validation/reviews?status=BOGUS", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/validation/reviews?limit=0", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/validation/reviews?limit=100000", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApproveReview(t *testing.T) {
	st := newFakeStore()
	st.reviews[42] = store.ReviewRecord{
		ID: 42,
		ReviewItem: validation.ReviewItem{
			RunID:      "run-1",
			EntityType: ues.EntityPlayer,
			Status:     validation.StatusPending,
		},
	}

	ts := newTestServer(t, st, &fakeRunner{})

	// Mutations require the admin key.
	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/v1/validation/reviews/42/approve", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/v1/validation/reviews/42/approve", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated store.ReviewRecord
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, validation.StatusApproved, updated.Status)

	// A decided review cannot be re-decided.
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/api/v1/validation/reviews/42/reject", true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRejectReview_UnknownID(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeRunner{})

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/v1/validation/reviews/999/reject", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/api/v1/validation/reviews/abc/reject", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunMapping(t *testing.T) {
	runner := &fakeRunner{
		result: &pipeline.RunResult{
			RunID: "run-1",
			Gate:  qa.GateResult{RunID: "run-1", Status: qa.StatusPass},
		},
	}

	ts := newTestServer(t, newFakeStore(), runner)

	// The trigger is admin-only.
	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/v1/mapping/run", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, runner.calls)

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/api/v1/mapping/run", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, runner.calls)

	var run RunResponse
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, qa.StatusPass, run.GateStatus)
}

func TestRunMapping_RunnerFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("sources unavailable")}

	ts := newTestServer(t, newFakeStore(), runner)

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/api/v1/mapping/run", true)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestRunReport(t *testing.T) {
	st := newFakeStore()
	st.metrics["run-1"] = []validation.StageMetrics{
		{RunID: "run-1", EntityType: ues.EntityTeam, TotalCandidates: 4, AutoMatchCount: 4},
	}
	st.counts["run-1"] = map[string]map[string]int{
		ues.EntityTeam: {validation.StatusPending: 1},
	}

	ts := newTestServer(t, st, &fakeRunner{})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/runs/run-1/report", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report qa.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, "run-1", report.RunID)
	require.Len(t, report.Metrics, 1)
	assert.Equal(t, ues.EntityTeam, report.Metrics[0].EntityType)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/runs/run-404/report", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunGate(t *testing.T) {
	st := newFakeStore()
	st.gates["run-1"] = qa.GateResult{
		RunID:       "run-1",
		Status:      qa.StatusFail,
		FailedGates: []string{qa.GateLLMErrorRate},
	}

	ts := newTestServer(t, st, &fakeRunner{})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/api/v1/runs/run-1/gate", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var gate qa.GateResult
	require.NoError(t, json.Unmarshal(body, &gate))
	assert.Equal(t, qa.StatusFail, gate.Status)
	assert.Contains(t, gate.FailedGates, qa.GateLLMErrorRate)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/v1/runs/run-404/gate", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownRouteReturnsProblemJSON(t *testing.T) {
	ts := newTestServer(t, newFakeStore(), &fakeRunner{})

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/nope", false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, http.StatusNotFound, problem.Status)
	assert.NotEmpty(t, problem.CorrelationID)
}

func TestServerConfigValidate(t *testing.T) {
	cfg := LoadServerConfig()
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Port = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidPort)

	bad = *cfg
	bad.Host = ""
	assert.ErrorIs(t, bad.Validate(), ErrEmptyHost)

	bad = *cfg
	bad.ReadTimeout = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTimeout)
}
