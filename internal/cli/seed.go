package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fichas/internal/store"
)

// seedResult wraps the seed report for text output.
type seedResult struct {
	store.SeedReport `yaml:",inline"`
}

func (r seedResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Catalog ready: %d categories and %d crops inserted, %d failures\n",
		r.CategoriesInserted, r.CropsInserted, r.Failures)
	return err
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the database and seed the crop catalog",
		Long: `Create the database schema if needed and insert the fixed category and
crop catalog. Running it again inserts nothing.

Exit codes:
  0 - Catalog seeded (failures are reported but do not fail the command)
  2 - Command error (invalid configuration, unreadable database)

Examples:
  fichas seed --db ./fichas_tecnicas.db
  fichas seed --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			f := formatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			f.VerboseLog("database: %s", a.cfg.Database.Path)
			return f.Success(seedResult{a.seeded})
		},
	}
}
