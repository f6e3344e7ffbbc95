package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stevemurr/storefront/catalog"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/storefront"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and manage products",
	}
	cmd.AddCommand(
		newCatalogListCommand(rootOpts),
		newCatalogGetCommand(rootOpts),
		newCatalogSearchCommand(rootOpts),
		newCatalogAddCommand(rootOpts),
		newCatalogUpdateCommand(rootOpts),
		newCatalogDeleteCommand(rootOpts),
		newCatalogLowStockCommand(rootOpts),
	)
	return cmd
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				products := sf.Catalog.Products()
				if status != "" {
					st := catalog.Status(strings.ToLower(status))
					if !st.Valid() {
						return fault.Invalid("catalog.list", fmt.Errorf("unknown product status %q", status))
					}
					products = sf.Catalog.ByStatus(st)
				}
				return out.Success(products, func(w io.Writer) { renderProducts(w, products) })
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only products in this status (active|draft|inactive)")
	return cmd
}

func newCatalogGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <product-id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				p, ok := sf.Catalog.Get(args[0])
				if !ok {
					return fault.NotFound("catalog.get", args[0])
				}
				return out.Success(p, func(w io.Writer) { renderProduct(w, p) })
			})
		},
	}
}

func newCatalogSearchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find products by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				products := sf.Catalog.Search(args[0])
				return out.Success(products, func(w io.Writer) { renderProducts(w, products) })
			})
		},
	}
}

func newCatalogAddCommand(rootOpts *RootOptions) *cobra.Command {
	var in catalog.FormInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product (admin)",
		Long: `Add a product to the catalog. Requires an admin login.

Numeric fields are parsed the way the product form parses them: a blank
price or stock becomes 0 and a blank status becomes active.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				p, err := sf.AddProduct(in)
				if err != nil {
					return err
				}
				return out.Success(p, func(w io.Writer) { renderProduct(w, p) })
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "product name")
	f.StringVar(&in.Description, "description", "", "description")
	f.StringVar(&in.Price, "price", "", "price")
	f.StringVar(&in.ComparePrice, "compare-price", "", "original price shown struck through")
	f.StringVar(&in.Category, "category", "", "category")
	f.StringVar(&in.Stock, "stock", "", "units in stock")
	f.StringVar(&in.LowStockAlert, "low-stock-alert", "", "stock level that counts as low")
	f.StringVar(&in.Status, "status", "", "active|draft|inactive")
	f.StringVar(&in.SKU, "sku", "", "stock keeping unit")
	f.StringArrayVar(&in.Images, "image", nil, "image file name (repeatable)")
	return cmd
}

func newCatalogUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		set    map[string]string
		images []string
	)
	cmd := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Change product fields (admin)",
		Long: `Change product fields. Requires an admin login.

  storefront catalog update PRD001 --set price=89.50 --set stock=40

Fields: name, description, price, comparePrice, category, stock,
lowStockAlert, status. --image replaces the image list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				patch, err := catalog.ParsePatch(set)
				if err != nil {
					return fault.Invalid("catalog.update", err)
				}
				if cmd.Flags().Changed("image") {
					patch.Images = images
				}
				if patch.Empty() {
					return fault.Invalid("catalog.update", fmt.Errorf("nothing to update"))
				}
				p, err := sf.UpdateProduct(args[0], patch)
				if err != nil {
					return err
				}
				return out.Success(p, func(w io.Writer) { renderProduct(w, p) })
			})
		},
	}
	cmd.Flags().StringToStringVar(&set, "set", nil, "field=value to change (repeatable)")
	cmd.Flags().StringArrayVar(&images, "image", nil, "image reference (repeatable)")
	return cmd
}

func newCatalogDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Remove a product (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				if err := sf.DeleteProduct(args[0]); err != nil {
					return err
				}
				return out.Success(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s\n", args[0])
				})
			})
		},
	}
}

func newCatalogLowStockCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "low-stock",
		Short: "List products at or below their low-stock alert",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(sf *storefront.Storefront, out *OutputFormatter) error {
				products := sf.Catalog.LowStock()
				return out.Success(products, func(w io.Writer) { renderProducts(w, products) })
			})
		},
	}
}

func renderProducts(w io.Writer, products []catalog.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tSTATUS")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, moneyf(p.Price), count(p.Stock), p.Status)
	}
	tw.Flush()
}

func renderProduct(w io.Writer, p catalog.Product) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", p.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", p.Description)
	}
	fmt.Fprintf(tw, "Price:\t%s\n", moneyf(p.Price))
	if p.ComparePrice != nil {
		fmt.Fprintf(tw, "Compare at:\t%s\n", moneyf(*p.ComparePrice))
	}
	fmt.Fprintf(tw, "Category:\t%s\n", p.Category)
	fmt.Fprintf(tw, "Stock:\t%s\n", count(p.Stock))
	if p.LowStockAlert != nil {
		fmt.Fprintf(tw, "Low stock at:\t%s\n", count(*p.LowStockAlert))
	}
	fmt.Fprintf(tw, "Status:\t%s\n", p.Status)
	fmt.Fprintf(tw, "SKU:\t%s\n", p.SKU)
	if len(p.Images) > 0 {
		fmt.Fprintf(tw, "Images:\t%s\n", strings.Join(p.Images, ", "))
	}
	tw.Flush()
}
