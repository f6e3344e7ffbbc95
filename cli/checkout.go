package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stevemurr/storefront/storefront"
)

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	var info storefront.ShippingInfo
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the cart",
		Long: `Place an order for everything in the cart and empty it. Requires a
login; every shipping field is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				order, err := sf.Checkout(info)
				if err != nil {
					return err
				}
				return out.Success(order, func(w io.Writer) {
					fmt.Fprintf(w, "Order %s placed: %s (%s)\n", order.ID, moneyf(order.Amount), order.Status)
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&info.FullName, "full-name", "", "recipient name")
	f.StringVar(&info.Email, "email", "", "contact email")
	f.StringVar(&info.Address, "address", "", "street address")
	f.StringVar(&info.City, "city", "", "city")
	f.StringVar(&info.ZipCode, "zip", "", "ZIP code")
	return cmd
}
