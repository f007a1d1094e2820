package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/fichas/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Seed the catalog and serve the HTTP API until interrupted. SIGINT and
SIGTERM trigger a graceful shutdown bounded by server.shutdown_timeout.

Examples:
  fichas serve
  fichas serve --addr 0.0.0.0:8080 --db /var/lib/fichas/fichas.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.host and server.port)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := opts.Addr
	if addr == "" {
		addr = a.cfg.Server.Addr()
	}

	if interp, err := a.invoker.Interpreter(ctx); err != nil {
		a.logger.Warn("no calculation interpreter available, compute requests will fail", zap.Error(err))
	} else {
		a.logger.Info("calculation interpreter", zap.String("path", interp))
	}

	srv := api.New(a.svc, a.invoker, a.logger, api.Options{
		AllowOrigins: a.cfg.Server.AllowOrigins,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server failed", err)
	}
	return nil
}
