package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stevemurr/storefront/storefront"
)

// NewStatsCommand creates the admin dashboard command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store totals (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				st, err := sf.Dashboard()
				if err != nil {
					return err
				}
				return out.Success(st, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintf(tw, "Products:\t%s\n", count(st.Products))
					fmt.Fprintf(tw, "Low stock:\t%s\n", count(st.LowStock))
					fmt.Fprintf(tw, "Inventory value:\t%s\n", money(st.InventoryValue))
					fmt.Fprintf(tw, "Customers:\t%s\n", count(st.Customers))
					fmt.Fprintf(tw, "Orders:\t%s\n", count(st.Orders))
					fmt.Fprintf(tw, "Revenue:\t%s\n", money(st.Revenue))
					tw.Flush()
				})
			})
		},
	}
}
