package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/emporium/internal/order"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Clear bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [order-id]",
		Short: "Show recent orders",
		Long: `Show the most recent orders submitted from this machine, newest last.
Only the last 10 orders are kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runHistory(opts, id, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Clear, "clear", false, "delete the order history")
	return cmd
}

func runHistory(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	out := opts.Formatter(cmd)

	st, err := opts.OpenStore()
	if err != nil {
		return err
	}
	defer st.Close()
	h := order.NewHistory(st, opts.Config.Namespace, opts.Logger())

	if opts.Clear {
		if err := h.Clear(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to clear history", err)
		}
		return out.Success("Order history cleared.")
	}

	if id != "" {
		r, ok, err := h.Find(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		if !ok {
			_ = out.Error("E_NOT_FOUND", fmt.Sprintf("order %s not found", id), nil)
			return NewExitError(ExitFailure, fmt.Sprintf("order %s not found", id))
		}
		return out.SuccessText(order.ExportForAdmin(r), func(w io.Writer) {
			fmt.Fprintf(w, "%s  %s  %s\n", r.ID, r.Timestamp, r.Status)
			fmt.Fprintf(w, "%s (%s), %s, %s\n", r.Customer.Name, r.Customer.Phone, r.Customer.PickupLocation, r.Customer.PreferredTime)
			for _, it := range r.Items {
				fmt.Fprintf(w, "  %dx %s\n", it.Quantity, it.Name)
			}
		})
	}

	records, err := h.List(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}
	return out.SuccessText(records, func(w io.Writer) {
		if len(records) == 0 {
			fmt.Fprintln(w, "No orders yet.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTIME\tCUSTOMER\tITEMS\tSTATUS")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Timestamp, r.Customer.Name, r.Summary.TotalItems, r.Status)
		}
		tw.Flush()
	})
}
