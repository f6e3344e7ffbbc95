package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/orders"
	"github.com/stevemurr/storefront/storefront"
)

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders and update their status",
	}
	cmd.AddCommand(
		newOrdersListCommand(rootOpts),
		newOrdersStatusCommand(rootOpts),
	)
	return cmd
}

func newOrdersListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		mine   bool
		status string
		search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Long: `List orders, most recent first. Admins see every order; --mine lists
the logged-in user's own orders.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				var (
					list []orders.Order
					err  error
				)
				switch {
				case mine:
					list, err = sf.MyOrders()
				case search != "":
					if list, err = sf.AllOrders(); err == nil {
						list = sf.Orders.Search(search)
					}
				default:
					list, err = sf.AllOrders()
				}
				if err != nil {
					return err
				}
				if status != "" {
					st, err := orders.ParseStatus(status)
					if err != nil {
						return fault.Invalid("orders.list", err)
					}
					list = filterStatus(list, st)
				}
				return out.Success(list, func(w io.Writer) { renderOrders(w, list) })
			})
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only the logged-in user's orders")
	cmd.Flags().StringVar(&status, "status", "", "only orders in this status")
	cmd.Flags().StringVar(&search, "search", "", "match customer name or order id (admin)")
	return cmd
}

func newOrdersStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Move an order to Pending, Processing, Shipped or Delivered (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				st, err := orders.ParseStatus(args[1])
				if err != nil {
					return fault.Invalid("orders.set_status", err)
				}
				o, err := sf.SetOrderStatus(args[0], st)
				if err != nil {
					return err
				}
				return out.Success(o, func(w io.Writer) {
					fmt.Fprintf(w, "Order %s is now %s\n", o.ID, o.Status)
				})
			})
		},
	}
}

func filterStatus(list []orders.Order, st orders.Status) []orders.Order {
	var out []orders.Order
	for _, o := range list {
		if o.Status == st {
			out = append(out, o)
		}
	}
	return out
}

func renderOrders(w io.Writer, list []orders.Order) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No orders")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCUSTOMER\tITEMS\tAMOUNT\tSTATUS")
	for _, o := range list {
		items := 0
		for _, it := range o.Items {
			items += it.Quantity
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			o.ID, o.CreatedAt.Format("2006-01-02"), o.CustomerName, items, moneyf(o.Amount), o.Status)
	}
	tw.Flush()
}
