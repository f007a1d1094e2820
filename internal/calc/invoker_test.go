package calc

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/logging"
	"github.com/roach88/fichas/internal/testutil"
)

func newTestInvoker(t *testing.T, interpreter string, mutate ...func(*Config)) *Invoker {
	t.Helper()
	cfg := Config{
		Interpreter: interpreter,
		WorkDir:     t.TempDir(),
		Timeout:     5 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, zaptest.NewLogger(t), WithRunIDGenerator(testutil.NewSequentialIDGenerator("run").Generate))
}

func TestInvoke_Success(t *testing.T) {
	stub := testutil.NewJSONStub(t, "{\n  \"costo_total\": 1000,\n  \"cultivo\": \"cacao\"\n}", 0)
	inv := newTestInvoker(t, stub.Path)

	payload, err := inv.Invoke(context.Background(), DefaultEngine, 2.5)
	require.NoError(t, err)

	assert.Equal(t, ficha.Payload{"costo_total": json.Number("1000"), "cultivo": "cacao"}, payload)
	assert.Equal(t, []string{"-m calculadoras.cacao_convencional.ejecutar 2.5"}, stub.Calls(t))
}

func TestInvoke_LogsThroughRequestLogger(t *testing.T) {
	stub := testutil.NewJSONStub(t, `{"costo_total": 1}`, 0)
	inv := newTestInvoker(t, stub.Path)

	core, logs := observer.New(zap.InfoLevel)
	ctx := logging.WithContext(context.Background(), zap.New(core).With(zap.String("request_id", "req-1")))

	_, err := inv.Invoke(ctx, DefaultEngine, 1)
	require.NoError(t, err)

	completed := logs.FilterMessage("engine run completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, DefaultEngine, fields["engine"])
}

func TestInvoke_HectaresNeverInExponentForm(t *testing.T) {
	tests := []struct {
		hectares float64
		want     string
	}{
		{1, "1"},
		{0.0000001, "0.0000001"},
		{1e21, "1000000000000000000000"},
		{12.75, "12.75"},
	}

	for _, tt := range tests {
		stub := testutil.NewJSONStub(t, `{"ok":true}`, 0)
		inv := newTestInvoker(t, stub.Path)

		_, err := inv.Invoke(context.Background(), DefaultEngine, tt.hectares)
		require.NoError(t, err)
		assert.Equal(t, []string{"-m calculadoras.cacao_convencional.ejecutar " + tt.want}, stub.Calls(t))
	}
}

func TestInvoke_RunsInWorkDir(t *testing.T) {
	stub := testutil.NewStubEngine(t, `printf '{"cwd":"%s"}' "$(pwd -P)"`)
	workDir := t.TempDir()
	inv := newTestInvoker(t, stub.Path, func(c *Config) { c.WorkDir = workDir })

	payload, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(workDir)
	require.NoError(t, err)
	assert.Equal(t, resolved, payload["cwd"])
}

func TestInvoke_ReportedFaultIsPassedThrough(t *testing.T) {
	for _, code := range []int{1, 0} {
		stub := testutil.NewJSONStub(t,
			`{"error": "hectareas fuera de rango", "type": "ValueError", "trace": "Traceback (most recent call last):\n..."}`, code)
		inv := newTestInvoker(t, stub.Path)

		_, err := inv.Invoke(context.Background(), DefaultEngine, 2.5)
		require.Error(t, err)

		var fault *ficha.CalculationFault
		require.True(t, errors.As(err, &fault), "exit %d", code)
		assert.Equal(t, "hectareas fuera de rango", fault.Message)
		assert.Equal(t, "ValueError", fault.Type)
		assert.Equal(t, "Traceback (most recent call last):\n...", fault.Trace)
		assert.Equal(t, code, fault.ExitCode)
		assert.Equal(t, DefaultEngine, fault.Engine)
		assert.Equal(t, "run-1", fault.RunID)
	}
}

func TestInvoke_InvalidOutputOnCleanExit(t *testing.T) {
	stub := testutil.NewStubEngine(t, "echo 'Resultado listo'; echo 'aviso' >&2")
	inv := newTestInvoker(t, stub.Path)

	_, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	require.Error(t, err)

	var fault *ficha.CalculationFault
	require.True(t, errors.As(err, &fault))
	assert.Contains(t, fault.Message, "invalid engine output")
	assert.Equal(t, 0, fault.ExitCode)
	assert.Equal(t, "Resultado listo\n", fault.Stdout)
	assert.Equal(t, "aviso\n", fault.Stderr)
}

func TestInvoke_TrailingOutputIsInvalid(t *testing.T) {
	stub := testutil.NewStubEngine(t, `echo '{"a":1}'; echo 'DEBUG listo'`)
	inv := newTestInvoker(t, stub.Path)

	_, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	assert.True(t, ficha.IsCalculationFault(err))
}

func TestInvoke_NonZeroExitWithoutFault(t *testing.T) {
	stub := testutil.NewStubEngine(t, "echo 'ImportError: numpy' >&2; exit 3")
	inv := newTestInvoker(t, stub.Path)

	_, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	require.Error(t, err)

	var fault *ficha.CalculationFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "engine exited with status 3", fault.Message)
	assert.Equal(t, 3, fault.ExitCode)
	assert.Equal(t, "ImportError: numpy\n", fault.Stderr)
}

func TestInvoke_ValidationSpawnsNothing(t *testing.T) {
	stub := testutil.NewJSONStub(t, `{"ok":true}`, 0)
	inv := newTestInvoker(t, stub.Path)

	_, err := inv.Invoke(context.Background(), "no-such-engine", 1)
	assert.True(t, ficha.IsValidation(err))

	_, err = inv.Invoke(context.Background(), DefaultEngine, 0)
	assert.True(t, ficha.IsValidation(err))

	assert.Empty(t, stub.Calls(t))
}

func TestInvoke_MissingInterpreter(t *testing.T) {
	inv := newTestInvoker(t, filepath.Join(t.TempDir(), "python3"))

	_, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	require.Error(t, err)

	var unavailable *ficha.EngineUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, ficha.UnavailableNotFound, unavailable.Kind)
	assert.Equal(t, DefaultEngine, unavailable.Engine)
}

func TestInvoke_InterpreterFailsToStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "python3")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o644))
	inv := newTestInvoker(t, path)

	_, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	require.Error(t, err)

	var unavailable *ficha.EngineUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, ficha.UnavailableStartFailed, unavailable.Kind)
}

func TestInvoke_Timeout(t *testing.T) {
	stub := testutil.NewStubEngine(t, "sleep 30 & wait")
	inv := newTestInvoker(t, stub.Path, func(c *Config) { c.Timeout = 200 * time.Millisecond })

	start := time.Now()
	_, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	require.Error(t, err)

	var unavailable *ficha.EngineUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, ficha.UnavailableTimeout, unavailable.Kind)
	assert.Less(t, time.Since(start), 10*time.Second, "process group must be killed")
}

// requireSetsid skips tests that need a descendant outside the engine's
// process group.
func requireSetsid(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("setsid"); err != nil {
		t.Skip("setsid not available")
	}
}

func TestInvoke_TimeoutIsHardWithEscapedDescendant(t *testing.T) {
	requireSetsid(t)
	stub := testutil.NewStubEngine(t, "setsid sleep 6 &\nsleep 30")
	inv := newTestInvoker(t, stub.Path, func(c *Config) { c.Timeout = 300 * time.Millisecond })

	start := time.Now()
	_, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	elapsed := time.Since(start)
	require.Error(t, err)

	var unavailable *ficha.EngineUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, ficha.UnavailableTimeout, unavailable.Kind)
	assert.Less(t, elapsed, 3*time.Second, "run outlived its timeout")
}

func TestInvoke_FinishedEngineWithLingeringDescendant(t *testing.T) {
	requireSetsid(t)
	stub := testutil.NewStubEngine(t, "setsid sleep 6 &\nprintf '{\"costo_total\": 7}'\nexit 0")
	inv := newTestInvoker(t, stub.Path)

	start := time.Now()
	payload, err := inv.Invoke(context.Background(), DefaultEngine, 1)
	require.NoError(t, err)
	assert.Equal(t, json.Number("7"), payload["costo_total"])
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestInvoke_Canceled(t *testing.T) {
	stub := testutil.NewStubEngine(t, "sleep 30")
	inv := newTestInvoker(t, stub.Path)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := inv.Invoke(ctx, DefaultEngine, 1)
	require.Error(t, err)

	var unavailable *ficha.EngineUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, ficha.UnavailableCanceled, unavailable.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvoke_ConcurrentRuns(t *testing.T) {
	stub := testutil.NewStubEngine(t, `printf '{"hectareas":%s}' "$3"`)
	inv := New(Config{Interpreter: stub.Path, WorkDir: t.TempDir()}, zap.NewNop())

	errs := make(chan error, 8)
	for i := 1; i <= 8; i++ {
		go func(h float64) {
			payload, err := inv.Invoke(context.Background(), DefaultEngine, h)
			if err == nil && payload["hectareas"] != json.Number(formatHectares(h)) {
				err = errors.New("payload mixed up between runs")
			}
			errs <- err
		}(float64(i))
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
	assert.Len(t, stub.Calls(t), 8)
}

func formatHectares(h float64) string {
	b, _ := json.Marshal(h)
	return string(b)
}

func TestNew_Defaults(t *testing.T) {
	inv := New(Config{}, nil)

	assert.Equal(t, DefaultCandidates, inv.cfg.Candidates)
	assert.Equal(t, DefaultTimeout, inv.cfg.Timeout)
	assert.Equal(t, DefaultProbeTimeout, inv.cfg.ProbeTimeout)
	assert.Equal(t, []string{DefaultEngine}, inv.Engines().Keys())
	assert.NotEmpty(t, inv.newRunID())
}
