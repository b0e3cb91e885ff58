package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lumenshop/storefront/internal/service"
)

var productQuery service.ProductQuery

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"product"},
	Short:   "Browse the catalog",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Long: `List catalog products, featured first.

Filters combine. --where takes a boolean expression over the product fields
id, name, slug, price, category, tags, stock, in_stock, is_featured, is_new
and rating.

Examples:
  storefront products list --category electronics --sort price-low-high
  storefront products list --price 50-100
  storefront products list --where 'price < 100.0 && "audio" in tags'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			products, err := a.catalogs.List(cmd.Context(), productQuery)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), products)
			}
			return printProducts(cmd.OutOrStdout(), products)
		})
	},
}

var productsShowCmd = &cobra.Command{
	Use:   "show <id|slug>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			p, err := a.catalogs.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), p)
			}
			printProduct(cmd.OutOrStdout(), p)
			return nil
		})
	},
}

var productsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List product categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			cats, err := a.catalogs.Categories(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), cats)
			}
			return printCategories(cmd.OutOrStdout(), cats)
		})
	},
}

func init() {
	f := productsListCmd.Flags()
	f.StringVar(&productQuery.Category, "category", "", "category slug or name")
	f.StringVar(&productQuery.Price, "price", "", "price band: under-50, 50-100, 100-200, over-200")
	f.StringVar(&productQuery.Sort, "sort", "", "sort order: featured, newest, price-low-high, price-high-low")
	f.BoolVar(&productQuery.FeaturedOnly, "featured", false, "only featured products")
	f.StringVar(&productQuery.Where, "where", "", "filter expression")

	productsCmd.AddCommand(productsListCmd, productsShowCmd, productsCategoriesCmd)
	rootCmd.AddCommand(productsCmd)
}
