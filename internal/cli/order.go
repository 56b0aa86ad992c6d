package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/emporium/internal/cart"
	"github.com/roach88/emporium/internal/order"
	"github.com/roach88/emporium/internal/session"
)

// OrderOptions holds flags for the order command.
type OrderOptions struct {
	*RootOptions
	Items      []string
	FieldsFile string
	Fields     order.Fields
	DryRun     bool
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Compose a WhatsApp order",
		Long: `Build a cart from --item flags, validate the customer details, and print
the WhatsApp message with its deep link. Submitted orders are kept in the
local order history.

Customer details come from flags or a YAML file (--fields); flags win.

Exit codes:
  0 - Order composed
  1 - Order rejected (validation problems, empty cart, unknown product)
  2 - Command error`,
		Example: `  emporium order --item 1:2 --item 6 --name "Siti Aminah" --phone "+673 7123456" \
    --location "Batu Satu Branch" --method "Store Pickup" --time "10:00 AM - 10:30 AM" \
    --priority standard
  emporium order --item 14 --fields customer.yaml --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.Items, "item", nil, "product to order as id[:quantity] (repeatable)")
	f.StringVar(&opts.FieldsFile, "fields", "", "YAML file with customer details")
	f.StringVar(&opts.Fields.CustomerName, "name", "", "customer name")
	f.StringVar(&opts.Fields.CustomerPhone, "phone", "", "customer WhatsApp number")
	f.StringVar(&opts.Fields.PickupLocation, "location", "", "pickup location")
	f.StringVar(&opts.Fields.CollectionMethod, "method", "", "collection method")
	f.StringVar(&opts.Fields.PreferredTime, "time", "", "preferred pickup time")
	f.StringVar(&opts.Fields.Priority, "priority", "", "order priority (standard|urgent|express)")
	f.StringVar(&opts.Fields.SpecialRequests, "requests", "", "special requests")
	f.BoolVar(&opts.DryRun, "dry-run", false, "compose without recording history")

	return cmd
}

// ParseItem parses "id" or "id:quantity".
func ParseItem(s string) (int64, int, error) {
	idPart, qtyPart, hasQty := strings.Cut(strings.TrimSpace(s), ":")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("invalid item %q: product id must be a positive integer", s)
	}
	qty := 1
	if hasQty {
		qty, err = strconv.Atoi(qtyPart)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid item %q: quantity must be an integer", s)
		}
	}
	return id, qty, nil
}

func (o *OrderOptions) resolveFields() (order.Fields, error) {
	var f order.Fields
	if o.FieldsFile != "" {
		data, err := os.ReadFile(o.FieldsFile)
		if err != nil {
			return order.Fields{}, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return order.Fields{}, fmt.Errorf("parse %s: %w", o.FieldsFile, err)
		}
	}
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&f.CustomerName, o.Fields.CustomerName)
	override(&f.CustomerPhone, o.Fields.CustomerPhone)
	override(&f.PickupLocation, o.Fields.PickupLocation)
	override(&f.CollectionMethod, o.Fields.CollectionMethod)
	override(&f.PreferredTime, o.Fields.PreferredTime)
	override(&f.Priority, o.Fields.Priority)
	override(&f.SpecialRequests, o.Fields.SpecialRequests)
	return f, nil
}

func runOrder(opts *OrderOptions, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	out := opts.Formatter(cmd)
	logger := opts.Logger()

	fields, err := opts.resolveFields()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read customer details", err)
	}

	cat, err := opts.LoadCatalog()
	if err != nil {
		return err
	}
	loc, err := opts.Config.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid time zone", err)
	}

	sopts := session.Options{
		Catalog: cat,
		Logger:  logger,
		Composer: []order.ComposerOption{
			order.WithLocation(loc),
			order.WithStoreNumber(opts.Config.StoreNumber),
			order.WithCountryCode(opts.Config.CountryCode),
		},
	}
	if !opts.DryRun {
		st, err := opts.OpenStore()
		if err != nil {
			return err
		}
		defer st.Close()
		sopts.KV = st
		sopts.Namespace = opts.Config.Namespace
	}

	s, err := session.Open(ctx, sopts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open session", err)
	}
	defer s.Close(ctx)

	// The order is built from flags alone; a cart left by an earlier run
	// does not leak into it.
	s.Cart.Clear()
	for _, item := range opts.Items {
		id, qty, err := ParseItem(item)
		if err != nil {
			return NewExitError(ExitCommandError, err.Error())
		}
		if _, err := s.Cart.AddItem(id, qty); err != nil {
			return rejectOrder(out, err)
		}
	}

	var sub order.Submission
	if opts.DryRun {
		sub, err = s.Composer.Preview(s.Cart, fields)
	} else {
		sub, err = s.Submit(ctx, fields)
	}
	if err != nil {
		return rejectOrder(out, err)
	}

	return out.SuccessText(sub, func(w io.Writer) {
		fmt.Fprintf(w, "Order %s\n\n", sub.Record.ID)
		fmt.Fprintln(w, sub.Message)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Estimated preparation: %d minutes (ready from %s)\n",
			sub.Pickup.PrepMinutes, sub.Pickup.Earliest.Format("3:04 PM"))
		fmt.Fprintln(w, sub.Link)
	})
}

// rejectOrder reports a cart or validation failure with ExitFailure.
func rejectOrder(out *OutputFormatter, err error) error {
	var (
		verr *order.ValidationError
		cerr *cart.Error
	)
	switch {
	case errors.As(err, &verr):
		_ = out.Error("E_VALIDATION", "order rejected", verr.Problems)
		if out.Format != "json" {
			for _, p := range verr.Problems {
				fmt.Fprintf(out.Writer, "  - %s\n", p)
			}
		}
	case errors.As(err, &cerr):
		_ = out.Error(string(cerr.Code), cerr.Message, cerr.ProductID)
	default:
		return WrapExitError(ExitCommandError, "order failed", err)
	}
	return WrapExitError(ExitFailure, "order rejected", err)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
