package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/fichas/internal/calc"
	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/sheet"
	"github.com/roach88/fichas/internal/store"
	"github.com/roach88/fichas/internal/testutil"
)

// Epoch is the deterministic clock start; the n-th stored sheet is stamped
// Epoch + (n-1) seconds.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness executes one scenario.
type Harness struct {
	store *store.Store
	svc   *sheet.Service
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh seeded database under t.TempDir() with a
// stub engine, deterministic clock and sequential run ids. A returned error
// means the scenario itself could not be executed; expectation failures are
// reported in Result.Errors.
func Run(t testing.TB, scenario *Scenario) (*Result, error) {
	t.Helper()
	ctx := context.Background()

	stub := testutil.NewJSONStub(t, scenario.Engine.Output, scenario.Engine.ExitCode)
	clock := testutil.NewDeterministicClock(Epoch, time.Second)

	st, err := store.Open(filepath.Join(t.TempDir(), "harness.db"), store.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	if report := st.Initialize(ctx); report.Failures > 0 {
		return nil, fmt.Errorf("failed to seed catalog: %d failures", report.Failures)
	}

	runIDs := testutil.NewSequentialIDGenerator("run")
	inv := calc.New(calc.Config{Interpreter: stub.Path, WorkDir: t.TempDir()}, zap.NewNop(),
		calc.WithRunIDGenerator(runIDs.Generate))

	h := &Harness{
		store: st,
		svc:   sheet.NewService(st, inv, sheet.StandardDefaults(), zap.NewNop()),
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		ev, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
		ev.Seq = int64(i + 1)
		result.AddTrace(ev)

		if step.Expect != nil {
			for _, msg := range checkExpect(ev, step.Expect) {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, msg))
			}
		}
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, EngineCalls: len(stub.Calls(t))}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// execute runs one flow step. Service errors become outcomes; only
// malformed step arguments are returned as errors.
func (h *Harness) execute(ctx context.Context, step FlowStep) (TraceEvent, error) {
	ev := TraceEvent{Op: step.Op, Args: step.Args}

	switch step.Op {
	case OpCompute:
		req, err := computeRequest(step.Args)
		if err != nil && !ficha.IsValidation(err) {
			return ev, err
		}
		if err == nil {
			var res sheet.Result
			res, err = h.svc.ComputeAndStore(ctx, req)
			if err == nil {
				ev.Outcome = OutcomeStored
				ev.Result = map[string]any(res.Merged())
				return ev, nil
			}
		}
		ev.Outcome, ev.Result = outcomeOf(err)

	case OpGet:
		id, err := argInt(step.Args, "id")
		if err != nil {
			return ev, err
		}
		sh, err := h.svc.GetSheet(ctx, id)
		if err != nil {
			ev.Outcome, ev.Result = outcomeOf(err)
			return ev, nil
		}
		ev.Outcome = OutcomeFound
		ev.Result, err = sheetMap(sh)
		if err != nil {
			return ev, err
		}

	case OpList:
		filter := store.SheetFilter{CategoryCode: argString(step.Args, "categoria_id")}
		if p, ok := step.Args["provincia"].(string); ok {
			filter.Province = &p
		}
		sheets, err := h.svc.ListSheets(ctx, filter)
		if err != nil {
			ev.Outcome, ev.Result = outcomeOf(err)
			return ev, nil
		}
		ids := make([]any, len(sheets))
		for i, s := range sheets {
			ids[i] = ficha.Number(s.ID)
		}
		ev.Outcome = OutcomeListed
		ev.Result = map[string]any{"ids": ids}

	case OpDelete:
		id, err := argInt(step.Args, "id")
		if err != nil {
			return ev, err
		}
		if err := h.svc.DeleteSheet(ctx, id); err != nil {
			ev.Outcome, ev.Result = outcomeOf(err)
			return ev, nil
		}
		ev.Outcome = OutcomeDeleted

	default:
		return ev, fmt.Errorf("unknown op %q", step.Op)
	}

	return ev, nil
}

// outcomeOf classifies a service error.
func outcomeOf(err error) (string, map[string]any) {
	var (
		validation *ficha.ValidationError
		fault      *ficha.CalculationFault
	)
	switch {
	case errors.As(err, &validation):
		return OutcomeValidation, map[string]any{"field": validation.Field}
	case ficha.IsNotFound(err):
		return OutcomeNotFound, nil
	case errors.As(err, &fault):
		res := map[string]any{"error": fault.Message}
		if fault.Type != "" {
			res["type"] = fault.Type
		}
		return OutcomeFault, res
	case ficha.IsEngineUnavailable(err):
		return OutcomeUnavailable, nil
	case ficha.IsStorage(err):
		return OutcomeStorage, nil
	default:
		return OutcomeFailed, map[string]any{"error": err.Error()}
	}
}

func computeRequest(args map[string]any) (sheet.ComputeRequest, error) {
	var req sheet.ComputeRequest

	switch h := args["hectareas"].(type) {
	case int:
		req.Hectares = float64(h)
	case float64:
		req.Hectares = h
	case string:
		parsed, err := sheet.ParseHectares(h)
		if err != nil {
			return req, err
		}
		req.Hectares = parsed
	case nil:
		return req, fmt.Errorf("compute requires args.hectareas")
	default:
		return req, fmt.Errorf("args.hectareas: unsupported type %T", h)
	}

	req.CategoryCode = argString(args, "categoria_id")
	req.EngineKey = argString(args, "motor")
	if _, ok := args["cultivo_id"]; ok {
		id, err := argInt(args, "cultivo_id")
		if err != nil {
			return req, err
		}
		req.CropID = &id
	}
	if p, ok := args["provincia"].(string); ok {
		req.Province = &p
	}
	return req, nil
}

func argInt(args map[string]any, key string) (int64, error) {
	switch v := args[key].(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("args.%s: want integer, got %T", key, v)
	}
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// sheetMap converts a sheet to its JSON object form.
func sheetMap(s ficha.Sheet) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	p, err := ficha.UnmarshalPayload(data)
	if err != nil {
		return nil, err
	}
	return map[string]any(p), nil
}
