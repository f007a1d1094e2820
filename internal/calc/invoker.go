package calc

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/logging"
)

const (
	// DefaultTimeout bounds a single engine run.
	DefaultTimeout = 60 * time.Second

	// DefaultProbeTimeout bounds each interpreter --version probe.
	DefaultProbeTimeout = 5 * time.Second

	// waitGrace bounds how long a finished or killed run waits for its
	// output pipes to close.
	waitGrace = 500 * time.Millisecond
)

// Config holds invoker settings.
type Config struct {
	// Interpreter is an explicit interpreter path or name. When set,
	// discovery is skipped.
	Interpreter string

	// Candidates are probed in order when Interpreter is empty.
	Candidates []string

	// WorkDir is the directory engines run from; it must contain the
	// calculators package.
	WorkDir string

	// Timeout bounds a single engine run.
	Timeout time.Duration

	// ProbeTimeout bounds each interpreter probe.
	ProbeTimeout time.Duration

	// Engines maps engine keys to module entry points.
	Engines Registry
}

// Invoker runs calculation engines as subprocesses.
// It is safe for concurrent use; each Invoke spawns its own process.
type Invoker struct {
	cfg      Config
	logger   *zap.Logger
	newRunID func() string

	discoverOnce sync.Once
	interpreter  string
	discoverErr  error
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithRunIDGenerator overrides how run ids are produced.
func WithRunIDGenerator(gen func() string) Option {
	return func(inv *Invoker) { inv.newRunID = gen }
}

// New creates an Invoker. Zero config fields take their defaults.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Invoker {
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = DefaultCandidates
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Engines == nil {
		cfg.Engines = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	inv := &Invoker{
		cfg:      cfg,
		logger:   logger,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Engines returns the configured engine registry.
func (inv *Invoker) Engines() Registry {
	return inv.cfg.Engines
}

// runResult is the raw outcome of one engine process.
type runResult struct {
	stdout   []byte
	stderr   []byte
	exitCode int
}

// Invoke runs engine for the given hectares and returns its payload.
func (inv *Invoker) Invoke(ctx context.Context, engine string, hectares float64) (ficha.Payload, error) {
	module, err := inv.cfg.Engines.Module(engine)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(hectares) || math.IsInf(hectares, 0) || hectares <= 0 {
		return nil, ficha.NewValidationError("hectareas", "must be a finite number > 0, got %v", hectares)
	}

	interpreter, err := inv.Interpreter(ctx)
	if err != nil {
		var unavailable *ficha.EngineUnavailableError
		if errors.As(err, &unavailable) {
			return nil, &ficha.EngineUnavailableError{Kind: unavailable.Kind, Engine: engine, Err: unavailable.Err}
		}
		return nil, err
	}

	runID := inv.newRunID()
	log := logging.WithFields(ctx, inv.logger,
		zap.String("run_id", runID),
		zap.String("engine", engine),
		zap.Float64("hectareas", hectares),
	)

	// Plain decimal notation; engines parse with float() and must never see
	// exponents.
	arg := decimal.NewFromFloat(hectares).String()

	start := time.Now()
	res, err := inv.run(ctx, interpreter, module, arg)
	elapsed := time.Since(start)
	if err != nil {
		var unavailable *ficha.EngineUnavailableError
		if errors.As(err, &unavailable) {
			unavailable.Engine = engine
		}
		log.Warn("engine run aborted", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, err
	}

	payload, err := interpret(engine, runID, res)
	if err != nil {
		log.Warn("engine run failed",
			zap.Duration("elapsed", elapsed),
			zap.Int("exit_code", res.exitCode),
			zap.Error(err))
		return nil, err
	}

	log.Info("engine run completed",
		zap.Duration("elapsed", elapsed),
		zap.Int("payload_keys", len(payload)))
	return payload, nil
}

// run executes one engine process, killing its process group if the run
// outlives its timeout or the caller's context. Output pipes held open by
// escaped descendants are abandoned after waitGrace.
func (inv *Invoker) run(ctx context.Context, interpreter, module, hectares string) (runResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, inv.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, interpreter, "-m", module, hectares)
	cmd.Dir = inv.cfg.WorkDir
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8", "PYTHONDONTWRITEBYTECODE=1")
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		kind := ficha.UnavailableStartFailed
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			kind = ficha.UnavailableNotFound
		}
		return runResult{}, &ficha.EngineUnavailableError{Kind: kind, Err: err}
	}

	err := cmd.Wait()
	if ctxErr := runCtx.Err(); ctxErr != nil {
		kind := ficha.UnavailableCanceled
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			kind = ficha.UnavailableTimeout
		}
		return runResult{}, &ficha.EngineUnavailableError{Kind: kind, Err: ctxErr}
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// The engine exited but a descendant kept its output open.
		err = nil
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return runResult{}, &ficha.EngineUnavailableError{Kind: ficha.UnavailableStartFailed, Err: err}
		}
		exitCode = exitErr.ExitCode()
	}

	return runResult{
		stdout:   stdout.Bytes(),
		stderr:   stderr.Bytes(),
		exitCode: exitCode,
	}, nil
}
