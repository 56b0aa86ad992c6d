package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/emporium/internal/catalog"
)

// CatalogOptions holds flags for the catalog commands.
type CatalogOptions struct {
	*RootOptions
	Category string
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the product catalog",
	}
	cmd.PersistentFlags().StringVar(&opts.Category, "category", catalog.AllCategories, "category filter")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List products",
		Example: `  emporium catalog list
  emporium catalog list --category dairy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, "", cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "search <term>",
		Short: "Search product names and descriptions",
		Example: `  emporium catalog search milk
  emporium catalog search "fresh" --category fresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, args[0], cmd)
		},
	})
	return cmd
}

func runCatalog(opts *CatalogOptions, term string, cmd *cobra.Command) error {
	c, err := opts.LoadCatalog()
	if err != nil {
		return err
	}
	products := c.Search(opts.Category, term)

	return opts.Formatter(cmd).SuccessText(products, func(w io.Writer) {
		if len(products) == 0 {
			fmt.Fprintln(w, "No products found.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tDESCRIPTION")
		for _, p := range products {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Description)
		}
		tw.Flush()
	})
}
