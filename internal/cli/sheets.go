package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fichas/internal/ficha"
	"github.com/roach88/fichas/internal/store"
)

type sheetList []ficha.Sheet

func (l sheetList) RenderText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No sheets found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tCROP\tPROVINCE\tHECTARES\tCREATED")
	for _, s := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.CategoryCode, optional(s.CropID), optional(s.Province),
			strconv.FormatFloat(s.Hectares, 'f', -1, 64), s.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

type sheetDetail struct {
	ficha.Sheet `yaml:",inline"`
}

func (d sheetDetail) RenderText(w io.Writer) error {
	payload, err := ficha.MarshalPayload(d.Payload)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Ficha:\t%d\n", d.ID)
	fmt.Fprintf(tw, "Category:\t%s\n", d.CategoryCode)
	fmt.Fprintf(tw, "Crop:\t%s\n", optional(d.CropID))
	fmt.Fprintf(tw, "Province:\t%s\n", optional(d.Province))
	fmt.Fprintf(tw, "Hectares:\t%s\n", strconv.FormatFloat(d.Hectares, 'f', -1, 64))
	fmt.Fprintf(tw, "Created:\t%s\n", d.CreatedAt.Format(time.RFC3339Nano))
	fmt.Fprintf(tw, "Data:\t%s\n", payload)
	return tw.Flush()
}

type deleted struct {
	ID int64 `json:"id_ficha" yaml:"id_ficha"`
}

func (d deleted) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Ficha %d deleted\n", d.ID)
	return err
}

func optional[T any](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

// SheetsListOptions holds flags for the sheets list command.
type SheetsListOptions struct {
	*RootOptions
	Category string
	Province string
}

// NewSheetsCommand creates the sheets command group.
func NewSheetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "List, show and delete stored technical sheets",
	}

	cmd.AddCommand(newSheetsListCommand(rootOpts))
	cmd.AddCommand(newSheetsGetCommand(rootOpts))
	cmd.AddCommand(newSheetsDeleteCommand(rootOpts))

	return cmd
}

func newSheetsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SheetsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sheets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			filter := store.SheetFilter{CategoryCode: opts.Category}
			if cmd.Flags().Changed("province") {
				filter.Province = &opts.Province
			}

			sheets, err := a.svc.ListSheets(cmd.Context(), filter)
			if err != nil {
				return wrapOpError("failed to list sheets", err)
			}
			return formatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(sheetList(sheets))
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "only sheets of this category")
	cmd.Flags().StringVar(&opts.Province, "province", "", "only sheets of this province")

	return cmd
}

func newSheetsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one stored sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSheetID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			sh, err := a.svc.GetSheet(cmd.Context(), id)
			if err != nil {
				return wrapOpError("failed to get sheet", err)
			}
			return formatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(sheetDetail{sh})
		},
	}
}

func newSheetsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored sheet (missing ids are not an error)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSheetID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.DeleteSheet(cmd.Context(), id); err != nil {
				return wrapOpError("failed to delete sheet", err)
			}
			return formatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(deleted{ID: id})
		},
	}
}

func parseSheetID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, wrapOpError("invalid sheet id", ficha.NewValidationError("id_ficha", "%q is not a sheet id", raw))
	}
	return id, nil
}
