package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/dqb/internal/query"
	"github.com/roach88/dqb/internal/schema"
	"github.com/roach88/dqb/internal/schemaload"
	"github.com/roach88/dqb/internal/store"
)

// Harness is the scenario execution engine for one scenario.
type Harness struct {
	scenario *Scenario
	db       *store.DB
	schema   *schema.Schema
	source   *store.SQLSource
	extras   []string
	logger   *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger passed to the schema, builder and store.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. Step
// failures are reported in the result; the error is reserved for setup
// failures (unreadable schema or fixture, schema build errors).
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.setup(ctx); err != nil {
		return nil, err
	}
	defer h.db.Close()

	result := NewResult()
	for i, step := range scenario.Steps {
		sr := h.runStep(ctx, i, step)
		result.Steps = append(result.Steps, sr)

		if step.Expect == nil {
			continue
		}
		for _, err := range checkStep(sr, *step.Expect) {
			result.AddError(fmt.Sprintf("step %d (%s): %v", i+1, step.Name, err))
		}
	}
	return result, nil
}

func (h *Harness) setup(ctx context.Context) error {
	cfg, err := schemaload.LoadFile(h.scenario.Schema)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	h.schema = cfg.Schema(
		schema.WithLogger(h.logger),
		schema.WithAccessLevel(h.scenario.AccessLevel),
	)
	if _, err := h.schema.Build(); err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	db, err := store.Open(ctx, store.DriverSQLite, ":memory:", store.WithLogger(h.logger))
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	h.db = db

	if h.scenario.Fixture != "" {
		script, err := os.ReadFile(h.scenario.Fixture)
		if err != nil {
			db.Close()
			return fmt.Errorf("read fixture: %w", err)
		}
		if err := db.ExecScript(ctx, string(script)); err != nil {
			db.Close()
			return fmt.Errorf("load fixture: %w", err)
		}
	}

	var sourceOpts []store.SourceOption
	for table, columns := range h.scenario.ExtraKeys {
		sourceOpts = append(sourceOpts, store.WithKeyColumns(table, columns...))
	}
	h.source = db.ExtraSource(h.schema, sourceOpts...)

	for _, key := range h.schema.Tables() {
		table, err := h.schema.TableConfig(key)
		if err != nil {
			db.Close()
			return err
		}
		if table.IsExtra {
			h.extras = append(h.extras, key)
		}
	}
	return nil
}

// runStep prepares, renders, fetches and counts one request. The first
// failure ends the step.
func (h *Harness) runStep(ctx context.Context, index int, step Step) StepResult {
	sr := StepResult{Name: step.Name, RequestID: fmt.Sprintf("%s-%d", h.scenario.Name, index+1)}

	fail := func(err error) StepResult {
		sr.Error = query.ErrorCode(err)
		if sr.Error == "" {
			sr.Error = "error"
		}
		sr.Message = err.Error()
		return sr
	}

	opts := []query.Option{
		query.WithLogger(h.logger),
		query.WithLimits(h.scenario.Limits),
		query.WithIDGenerator(query.NewFixedGenerator(sr.RequestID)),
	}
	for _, key := range h.extras {
		opts = append(opts, query.WithExtraSource(key, h.source))
	}
	b := query.New(h.schema, opts...)

	req, err := step.Request.Request()
	if err != nil {
		return fail(err)
	}
	if err := b.Prepare(req); err != nil {
		return fail(err)
	}

	stmt, err := b.SQL(nil)
	if err != nil {
		return fail(err)
	}
	sr.SQL = stmt.SQL
	sr.Params = stmt.Params

	if sr.Records, err = h.db.Fetch(ctx, b, !step.Keep); err != nil {
		return fail(err)
	}
	if sr.Count, err = h.db.Count(ctx, b); err != nil {
		return fail(err)
	}
	return sr
}
