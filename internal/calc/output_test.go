package calc

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fichas/internal/ficha"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name        string
		res         runResult
		wantPayload ficha.Payload
		wantMessage string
	}{
		{
			name:        "payload",
			res:         runResult{stdout: []byte("  {\"costo_total\": 1000}\n\n")},
			wantPayload: ficha.Payload{"costo_total": json.Number("1000")},
		},
		{
			name:        "fault with exit 1",
			res:         runResult{stdout: []byte(`{"error":"boom","type":"KeyError"}`), exitCode: 1},
			wantMessage: "boom",
		},
		{
			name:        "non-string error field",
			res:         runResult{stdout: []byte(`{"error":{"code":7}}`), exitCode: 1},
			wantMessage: `{"code":7}`,
		},
		{
			name:        "valid object but non-zero exit",
			res:         runResult{stdout: []byte(`{"parcial":true}`), exitCode: 2},
			wantMessage: "engine exited with status 2",
		},
		{
			name:        "empty output",
			res:         runResult{},
			wantMessage: "invalid engine output: decode payload: EOF",
		},
		{
			name:        "array output",
			res:         runResult{stdout: []byte(`[1,2]`)},
			wantMessage: "invalid engine output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := interpret("cacao-convencional", "run-1", tt.res)
			if tt.wantPayload != nil {
				require.NoError(t, err)
				assert.Equal(t, tt.wantPayload, payload)
				return
			}

			require.Error(t, err)
			var fault *ficha.CalculationFault
			require.ErrorAs(t, err, &fault)
			assert.Contains(t, fault.Message, tt.wantMessage)
			assert.Equal(t, tt.res.exitCode, fault.ExitCode)
		})
	}
}

func TestTruncate(t *testing.T) {
	short := []byte("hola")
	assert.Equal(t, "hola", truncate(short))

	// Multi-byte rune straddling the limit must not be split.
	long := []byte(strings.Repeat("a", maxDiagnostic-1) + "ñ" + "tail")
	got := truncate(long)

	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "\n[truncated]"))
	assert.Equal(t, maxDiagnostic-1, len(strings.TrimSuffix(got, "\n[truncated]")))
}

func TestRegistry(t *testing.T) {
	r := Registry{"b": "mod.b", "a": "mod.a", "vacio": ""}

	module, err := r.Module("a")
	require.NoError(t, err)
	assert.Equal(t, "mod.a", module)

	_, err = r.Module("vacio")
	assert.True(t, ficha.IsValidation(err))

	_, err = r.Module("zzz")
	assert.True(t, ficha.IsValidation(err))
	assert.Contains(t, err.Error(), `"zzz"`)

	assert.Equal(t, []string{"a", "b", "vacio"}, r.Keys())
}
