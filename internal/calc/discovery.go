package calc

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/fichas/internal/ficha"
)

// DefaultCandidates are the interpreter names tried, in order, when no
// explicit interpreter is configured.
var DefaultCandidates = []string{"python3", "python", "py"}

// Interpreter returns the interpreter used for engine runs.
//
// An explicitly configured interpreter is returned as is. Otherwise the
// candidates are probed once with --version and the first that answers is
// cached for the lifetime of the Invoker, as is a failure to find any.
func (inv *Invoker) Interpreter(ctx context.Context) (string, error) {
	if inv.cfg.Interpreter != "" {
		return inv.cfg.Interpreter, nil
	}

	inv.discoverOnce.Do(func() {
		// The result is shared by every later caller, so it must not depend
		// on this caller's cancellation.
		probeCtx := context.WithoutCancel(ctx)
		inv.interpreter, inv.discoverErr = inv.discover(probeCtx)
	})
	return inv.interpreter, inv.discoverErr
}

func (inv *Invoker) discover(ctx context.Context) (string, error) {
	var tried []string
	for _, candidate := range inv.cfg.Candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			tried = append(tried, candidate+": not on PATH")
			continue
		}

		version, err := probe(ctx, path, inv.cfg.ProbeTimeout)
		if err != nil {
			tried = append(tried, fmt.Sprintf("%s: %v", candidate, err))
			inv.logger.Debug("interpreter probe failed", zap.String("candidate", path), zap.Error(err))
			continue
		}

		inv.logger.Info("python interpreter found",
			zap.String("path", path),
			zap.String("version", version))
		return path, nil
	}

	inv.logger.Error("no python interpreter available", zap.Strings("tried", tried))
	return "", &ficha.EngineUnavailableError{
		Kind: ficha.UnavailableNotFound,
		Err:  fmt.Errorf("no usable interpreter among %s", strings.Join(inv.cfg.Candidates, ", ")),
	}
}

// probe runs "<path> --version" and returns the reported version line.
func probe(ctx context.Context, path string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "--version")
	cmd.WaitDelay = waitGrace
	cmd.Stdout = &out
	// Python 2 prints its version on stderr.
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("timed out after %s", timeout)
		}
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}
