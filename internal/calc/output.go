package calc

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/roach88/fichas/internal/ficha"
)

// maxDiagnostic caps captured stdout/stderr carried by a fault.
const maxDiagnostic = 64 << 10

// interpret classifies a finished run.
//
// A fault object ({"error": ...}) wins regardless of exit status. Otherwise
// a clean exit must have produced exactly one JSON object, and a non-zero
// exit is a generic fault carrying the captured output.
func interpret(engine, runID string, res runResult) (ficha.Payload, error) {
	payload, parseErr := ficha.UnmarshalPayload(bytes.TrimSpace(res.stdout))

	if parseErr == nil {
		if reported, ok := payload["error"]; ok {
			return nil, &ficha.CalculationFault{
				Engine:   engine,
				RunID:    runID,
				Message:  text(reported),
				Type:     text(payload["type"]),
				Trace:    text(payload["trace"]),
				ExitCode: res.exitCode,
			}
		}
		if res.exitCode == 0 {
			return payload, nil
		}
	}

	fault := &ficha.CalculationFault{
		Engine:   engine,
		RunID:    runID,
		ExitCode: res.exitCode,
		Stdout:   truncate(res.stdout),
		Stderr:   truncate(res.stderr),
	}
	if res.exitCode == 0 {
		fault.Message = fmt.Sprintf("invalid engine output: %v", parseErr)
	} else {
		fault.Message = fmt.Sprintf("engine exited with status %d", res.exitCode)
	}
	return nil, fault
}

// text renders a fault field. Engines normally send strings; anything else
// is kept in its JSON form.
func text(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any:
		if b, err := ficha.MarshalPayload(ficha.Payload(val)); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

// truncate returns at most maxDiagnostic bytes of b without splitting a
// UTF-8 sequence.
func truncate(b []byte) string {
	if len(b) <= maxDiagnostic {
		return string(b)
	}
	cut := maxDiagnostic
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "\n[truncated]"
}
