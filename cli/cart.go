package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stevemurr/storefront/cart"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/storefront"
)

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "View and change the cart",
		Long: `View and change the cart.

Cart lines are addressed as <product-id> or <product-id>/<size>,
e.g. PRD001/M.`,
	}
	cmd.AddCommand(
		newCartShowCommand(rootOpts),
		newCartAddCommand(rootOpts),
		newCartRemoveCommand(rootOpts),
		newCartSetCommand(rootOpts),
		newCartClearCommand(rootOpts),
	)
	return cmd
}

// cartView is the cart as printed.
type cartView struct {
	Lines   []cart.Line  `json:"lines"`
	Summary cart.Summary `json:"summary"`
}

func showCart(sf *storefront.Storefront, out *OutputFormatter) error {
	v := cartView{Lines: sf.Cart.Lines(), Summary: sf.CartSummary()}
	return out.Success(v, func(w io.Writer) { renderCart(w, v) })
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart and its totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, showCart)
		},
	}
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	var size string
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add one unit of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				if err := sf.AddToCart(args[0], size); err != nil {
					return err
				}
				return showCart(sf, out)
			})
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "selected size")
	return cmd
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "remove <line>",
		Short: "Remove a cart line",
		Long: `Remove a cart line. With --all, every line of the product is removed
regardless of size.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				key := cart.ParseKey(args[0])
				var err error
				if all {
					err = sf.Cart.RemoveProduct(key.ProductID)
				} else {
					err = sf.Cart.Remove(key)
				}
				if err != nil {
					return err
				}
				return showCart(sf, out)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove the product in every size")
	return cmd
}

func newCartSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <line> <quantity>",
		Short: "Set a line's quantity; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fault.Invalid("cart.set_quantity", fmt.Errorf("quantity %q is not a number", args[1]))
				}
				if err := sf.Cart.SetLineQuantity(cart.ParseKey(args[0]), n); err != nil {
					return err
				}
				return showCart(sf, out)
			})
		},
	}
}

func newCartClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				if err := sf.Cart.Clear(); err != nil {
					return err
				}
				return showCart(sf, out)
			})
		},
	}
}

func renderCart(w io.Writer, v cartView) {
	if len(v.Lines) == 0 {
		fmt.Fprintln(w, "Your cart is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tNAME\tPRICE\tQTY\tAMOUNT")
	for _, l := range v.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", l.Key(), l.Name, moneyf(l.Price), l.Quantity, money(l.Amount()))
	}
	fmt.Fprintf(tw, "\t\t\tSubtotal\t%s\n", money(v.Summary.Subtotal))
	fmt.Fprintf(tw, "\t\t\tShipping\t%s\n", money(v.Summary.Shipping))
	fmt.Fprintf(tw, "\t\t\tTotal\t%s\n", money(v.Summary.Total))
	tw.Flush()
}
