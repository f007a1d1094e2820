package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/fichas/internal/ficha"
)

type categoryList []ficha.Category

func (l categoryList) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tDESCRIPTION")
	for _, c := range l {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Code, c.Name, c.Description)
	}
	return tw.Flush()
}

type cropList []ficha.Crop

func (l cropList) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tNAME")
	for _, c := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.CategoryCode, c.Name)
	}
	return tw.Flush()
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List crop categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := a.svc.ListCategories(cmd.Context())
			if err != nil {
				return wrapOpError("failed to list categories", err)
			}
			return formatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(categoryList(categories))
		},
	}
}

// CropsOptions holds flags for the crops command.
type CropsOptions struct {
	*RootOptions
	Category string
}

// NewCropsCommand creates the crops command.
func NewCropsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CropsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "crops",
		Short: "List crops, optionally of one category",
		Long: `List crops ordered by category and name, or the crops of one category
ordered by name.

Examples:
  fichas crops
  fichas crops --category PECUARIOS --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			crops, err := a.svc.ListCrops(cmd.Context(), opts.Category)
			if err != nil {
				return wrapOpError("failed to list crops", err)
			}
			return formatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(cropList(crops))
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "category code (e.g. PECUARIOS)")

	return cmd
}
