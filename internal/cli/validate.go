package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fichas/internal/calc"
	"github.com/roach88/fichas/internal/config"
	"github.com/roach88/fichas/internal/store"
)

// Problem is one validation finding.
type Problem struct {
	Check   string `json:"check" yaml:"check"` // "config", "database" or "interpreter"
	Message string `json:"message" yaml:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool      `json:"valid" yaml:"valid"`
	Database    string    `json:"database,omitempty" yaml:"database,omitempty"`
	Interpreter string    `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
	Engines     []string  `json:"engines,omitempty" yaml:"engines,omitempty"`
	Problems    []Problem `json:"problems,omitempty" yaml:"problems,omitempty"`
}

func (r ValidationResult) RenderText(w io.Writer) error {
	if r.Valid {
		fmt.Fprintln(w, "✓ Configuration valid")
		fmt.Fprintf(w, "  database:    %s\n", r.Database)
		fmt.Fprintf(w, "  interpreter: %s\n", r.Interpreter)
		fmt.Fprintf(w, "  engines:     %v\n", r.Engines)
		return nil
	}

	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, p := range r.Problems {
		fmt.Fprintf(w, "  %s: %s\n", p.Check, p.Message)
	}
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration, database and interpreter without serving",
		Long: `Load the configuration, open the database and locate the calculation
interpreter, reporting every problem found. Nothing is computed or seeded.

Exit codes:
  0 - Everything is usable
  1 - One or more checks failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	f := formatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	result := ValidationResult{}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems {
				result.Problems = append(result.Problems, Problem{Check: "config", Message: p})
			}
		} else {
			result.Problems = append(result.Problems, Problem{Check: "config", Message: err.Error()})
		}
		return outputValidation(f, result)
	}
	if opts.DBPath != "" {
		cfg.Database.Path = opts.DBPath
	}
	result.Database = cfg.Database.Path
	f.VerboseLog("%s", cfg)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		result.Problems = append(result.Problems, Problem{Check: "database", Message: err.Error()})
	} else {
		_ = st.Close()
	}

	inv := calc.New(calcConfig(cfg), nil)
	result.Engines = inv.Engines().Keys()
	interp, err := inv.Interpreter(cmd.Context())
	if err != nil {
		result.Problems = append(result.Problems, Problem{Check: "interpreter", Message: err.Error()})
	}
	result.Interpreter = interp

	return outputValidation(f, result)
}

// outputValidation writes result and turns failed checks into exit code 1.
func outputValidation(f *OutputFormatter, result ValidationResult) error {
	result.Valid = len(result.Problems) == 0
	if err := f.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		err := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(result.Problems)))
		err.Reported = true
		return err
	}
	return nil
}
