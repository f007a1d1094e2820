package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/sheet"
)

// ComputeOptions holds flags for the compute command.
type ComputeOptions struct {
	*RootOptions
	Category string
	CropID   int64
	Province string
	Engine   string
}

type computeResult struct {
	sheet.Result
}

func (r computeResult) RenderText(w io.Writer) error {
	data, err := ficha.MarshalPayload(r.Merged())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Ficha %d stored\n%s\n", r.SheetID, data)
	return err
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute <hectares>",
		Short: "Run the calculation engine and store a technical sheet",
		Long: `Run the calculation engine for the given area and store the result as a
new technical sheet. Omitted fields fall back to the configured defaults.

Exit codes:
  0 - Sheet computed and stored
  1 - Engine fault, engine unavailable or storage failure
  2 - Command error (invalid hectares, unknown category, crop or engine)

Examples:
  fichas compute 2.5
  fichas compute 2.5 --category PEREN_SEMI --crop 47 --province Cusco
  fichas compute 10 --engine cacao-convencional --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "category code (default from config)")
	cmd.Flags().Int64Var(&opts.CropID, "crop", 0, "crop id (default from config)")
	cmd.Flags().StringVar(&opts.Province, "province", "", "province name (default from config)")
	cmd.Flags().StringVar(&opts.Engine, "engine", "", "calculation engine key (default from config)")

	return cmd
}

func runCompute(opts *ComputeOptions, rawHectares string, cmd *cobra.Command) error {
	hectares, err := sheet.ParseHectares(rawHectares)
	if err != nil {
		return wrapOpError("invalid hectares", err)
	}

	req := sheet.ComputeRequest{
		Hectares:     hectares,
		CategoryCode: opts.Category,
		EngineKey:    opts.Engine,
	}
	if cmd.Flags().Changed("crop") {
		req.CropID = &opts.CropID
	}
	if cmd.Flags().Changed("province") {
		req.Province = &opts.Province
	}

	a, err := openApp(cmd.Context(), opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	f := formatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	f.VerboseLog("engine defaults: %s", a.cfg.Defaults.Engine)

	res, err := a.svc.ComputeAndStore(cmd.Context(), req)
	if err != nil {
		return wrapOpError("compute failed", err)
	}
	return f.Success(computeResult{res})
}
