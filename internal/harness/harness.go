package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fedunion/internal/queryir"
	"github.com/roach88/fedunion/internal/querysql"
	"github.com/roach88/fedunion/internal/store"
	"github.com/roach88/fedunion/internal/testutil"
)

// Harness is the test execution engine.
// It compiles scenarios and records the output with deterministic IDs.
type Harness struct {
	store    *store.Store
	recorder *store.Recorder
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Compile the request with the scenario's compiler options
// 3. Record the generated query and read it back
// 4. Evaluate expectations
//
// A rejected request is not an execution error: the rejection codes are
// compared with the expected codes.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store: st,
		recorder: store.NewRecorder(st,
			testutil.NewSequenceIDGenerator("query"),
			testutil.NewDeterministicClock(),
		),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result := NewResult()
	if err := h.compile(ctx, scenario, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"arms", result.Arms,
	)

	return result, nil
}

// compile runs the compiler and, on success, records and re-reads the query.
func (h *Harness) compile(ctx context.Context, scenario *Scenario, result *Result) error {
	compiler := querysql.NewCompiler(scenario.CompilerOptions())

	gq, err := compiler.Compile(scenario.Request)
	if err != nil {
		var verrs queryir.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				result.ErrorCodes = append(result.ErrorCodes, ve.Code)
			}
			return nil
		}
		var ve queryir.ValidationError
		if errors.As(err, &ve) {
			result.ErrorCodes = append(result.ErrorCodes, ve.Code)
			return nil
		}
		return fmt.Errorf("compile %s: %w", scenario.Name, err)
	}

	result.Query = gq.Query
	result.Arms = len(gq.Units)
	result.Warnings = gq.Warnings

	rec, err := h.recorder.RecordQuery(ctx, scenario.Request, gq)
	if err != nil {
		return fmt.Errorf("record %s: %w", scenario.Name, err)
	}
	stored, err := h.store.GetQuery(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("read back %s: %w", scenario.Name, err)
	}
	if stored.Query != gq.Query {
		result.AddError("history: stored query differs from generated query")
	}
	result.RequestHash = stored.RequestHash

	h.logger.Info("query recorded",
		"scenario", scenario.Name,
		"id", rec.ID,
		"request_hash", rec.RequestHash,
	)
	return nil
}
