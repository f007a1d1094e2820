package cli

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/fichas/internal/calc"
	"github.com/roach88/fichas/internal/config"
	"github.com/roach88/fichas/internal/logging"
	"github.com/roach88/fichas/internal/sheet"
	"github.com/roach88/fichas/internal/store"
)

// app is the wired service graph shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	invoker *calc.Invoker
	svc     *sheet.Service
	seeded  store.SeedReport

	restoreLogger func()
}

// openApp loads configuration, opens and seeds the database and wires the
// calculation invoker and sheet service.
func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.DBPath != "" {
		cfg.Database.Path = opts.DBPath
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logger, restore, err := logging.Setup(level, cfg.Log.Format)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}
	logger.Debug("configuration loaded", zap.Stringer("config", cfg))

	st, err := store.Open(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		restore()
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	report := st.Initialize(ctx)
	inv := calc.New(calcConfig(cfg), logger)

	return &app{
		cfg:           cfg,
		logger:        logger,
		store:         st,
		invoker:       inv,
		svc:           sheet.NewService(st, inv, sheetDefaults(cfg), logger),
		seeded:        report,
		restoreLogger: restore,
	}, nil
}

// Close releases the database and restores the global logger.
func (a *app) Close() error {
	_ = a.logger.Sync()
	a.restoreLogger()
	return a.store.Close()
}

func calcConfig(cfg *config.Config) calc.Config {
	return calc.Config{
		Interpreter:  cfg.Calc.Interpreter,
		Candidates:   cfg.Calc.Candidates,
		WorkDir:      cfg.Calc.WorkDir,
		Timeout:      cfg.Calc.Timeout,
		ProbeTimeout: cfg.Calc.ProbeTimeout,
		Engines:      calc.Registry(cfg.Calc.Engines),
	}
}

func sheetDefaults(cfg *config.Config) sheet.Defaults {
	return sheet.Defaults{
		Category: cfg.Defaults.Category,
		CropID:   cfg.Defaults.CropID,
		Province: cfg.Defaults.Province,
		Engine:   cfg.Defaults.Engine,
	}
}

// formatter builds the output formatter for a command.
func formatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: out, ErrWriter: errOut, Verbose: opts.Verbose}
}
