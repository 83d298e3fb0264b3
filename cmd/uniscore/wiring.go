package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/uniscore-io/uniscore/internal/config"
	"github.com/uniscore-io/uniscore/internal/monitoring"
	"github.com/uniscore-io/uniscore/internal/pipeline"
	"github.com/uniscore-io/uniscore/internal/qa"
	"github.com/uniscore-io/uniscore/internal/store"
	"github.com/uniscore-io/uniscore/internal/validation"
)

// Environment variables naming the three databases.
const (
	alphaDBEnvVar = "SOURCE_ALPHA_DB_URL"
	betaDBEnvVar  = "SOURCE_BETA_DB_URL"
	uesDBEnvVar   = "UES_DB_URL"
)

// ErrMissingDatabaseURL is returned when a required database URL env var is unset.
var ErrMissingDatabaseURL = errors.New("missing database URL")

// engine bundles everything a mapping run needs plus the handles to release
// afterwards.
type engine struct {
	pipeline *pipeline.Pipeline
	store    *store.Store
	closers  []io.Closer
}

// Close releases every connection the engine holds, in reverse open order.
func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

// openSourceDB opens one source database named by its environment variable.
func openSourceDB(envVar string) (*sql.DB, error) {
	url := config.GetEnvStr(envVar, "")
	if url == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrMissingDatabaseURL, envVar)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", envVar, err)
	}

	return db, nil
}

// buildEngine wires the full mapping pipeline: config bundle, UES store,
// source loaders, validation router, anomaly detector, triager, quality
// gates and the optional Kafka run-event publisher.
func buildEngine(logger *slog.Logger) (*engine, error) {
	bundle, err := config.LoadBundleFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load configuration bundle: %w", err)
	}

	conn, err := store.NewConnection(store.LoadConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to UES database: %w", err)
	}

	eng := &engine{closers: []io.Closer{conn}}

	uesStore, err := store.NewStore(conn, logger)
	if err != nil {
		eng.Close()

		return nil, fmt.Errorf("create UES store: %w", err)
	}

	alphaDB, err := openSourceDB(alphaDBEnvVar)
	if err != nil {
		eng.Close()

		return nil, err
	}

	eng.closers = append(eng.closers, alphaDB)

	betaDB, err := openSourceDB(betaDBEnvVar)
	if err != nil {
		eng.Close()

		return nil, err
	}

	eng.closers = append(eng.closers, betaDB)

	sources, err := pipeline.NewDBSources(alphaDB, betaDB)
	if err != nil {
		eng.Close()

		return nil, fmt.Errorf("create source loaders: %w", err)
	}

	validator := validation.NewValidator(bundle.LLM, logger)
	router := validation.NewRouter(bundle.LLM, validator, logger)
	detector := monitoring.NewDetector(uesStore, logger)
	triager := monitoring.NewTriager(bundle.LLM, uesStore, logger)
	gates := qa.NewEvaluator(bundle.Gates, uesStore, logger)
	events := pipeline.NewPublisherFromEnv(logger)

	eng.closers = append(eng.closers, events)

	eng.pipeline = pipeline.New(bundle, pipeline.Deps{
		Sources:  sources,
		Store:    uesStore,
		Router:   router,
		Detector: detector,
		Triager:  triager,
		Gates:    gates,
		Events:   events,
	}, logger)
	eng.store = uesStore

	return eng, nil
}
