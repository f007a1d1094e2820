package harness

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/store"
)

// AssertionContext is the final state assertions are evaluated against.
type AssertionContext struct {
	Ctx         context.Context
	Store       *store.Store
	EngineCalls int
}

// EvaluateAssertions returns one message per failed assertion.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return failures
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertSheetCount:
		filter := store.SheetFilter{CategoryCode: a.Where["categoria_id"]}
		if p, ok := a.Where["provincia"]; ok {
			filter.Province = &p
		}
		n, err := actx.Store.CountSheets(actx.Ctx, filter)
		if err != nil {
			return err
		}
		if n != int64(a.Count) {
			return fmt.Errorf("expected %d sheets, found %d", a.Count, n)
		}

	case AssertEngineCalls:
		if actx.EngineCalls != a.Count {
			return fmt.Errorf("expected %d engine runs, found %d", a.Count, actx.EngineCalls)
		}

	case AssertFinalSheet:
		sh, err := actx.Store.GetSheet(actx.Ctx, a.ID)
		if err != nil {
			return err
		}
		actual, err := sheetMap(sh)
		if err != nil {
			return err
		}
		if diffs := subsetDiff(a.Expect, actual); len(diffs) > 0 {
			return fmt.Errorf("%v", diffs)
		}

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// checkExpect compares a step outcome against its expect clause.
func checkExpect(ev TraceEvent, expect *ExpectClause) []string {
	var msgs []string
	if ev.Outcome != expect.Outcome {
		msgs = append(msgs, fmt.Sprintf("expected outcome %s, got %s", expect.Outcome, ev.Outcome))
	}
	msgs = append(msgs, subsetDiff(expect.Result, ev.Result)...)
	return msgs
}

// subsetDiff reports every key of expected whose value differs in actual.
// Values are compared in canonical JSON form, so 1000 matches json.Number("1000").
func subsetDiff(expected, actual map[string]any) []string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var diffs []string
	for _, k := range keys {
		got, ok := actual[k]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("%s: missing", k))
			continue
		}
		want := canonical(expected[k])
		if have := canonical(got); want != have {
			diffs = append(diffs, fmt.Sprintf("%s: expected %s, got %s", k, want, have))
		}
	}
	return diffs
}

func canonical(v any) string {
	data, err := ficha.MarshalPayload(ficha.Payload{"v": v})
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	// Strip the {"v": ... } wrapper.
	return string(data[5 : len(data)-1])
}
