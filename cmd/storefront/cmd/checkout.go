package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenshop/storefront/internal/domain/checkout"
	"github.com/lumenshop/storefront/internal/service"
)

var (
	shippingMethod string
	historyLimit   int
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Price the cart and place a demo order",
}

var checkoutQuoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Show subtotal, shipping, tax and total",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := checkout.ParseShippingMethod(shippingMethod)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			q := a.checkouts.Quote(cmd.Context(), method)
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), q)
			}
			printQuote(cmd.OutOrStdout(), q)
			return nil
		})
	},
}

var checkoutPlaceCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a demo order (nothing is charged, the cart is kept)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := checkout.ParseShippingMethod(shippingMethod)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			order, err := a.checkouts.PlaceOrder(cmd.Context(), method)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), order)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Order %s placed.\n", order.ID)
			if order.Customer != "" {
				fmt.Fprintf(out, "Customer:  %s\n", order.Customer)
			}
			printQuote(out, order.Quote)
			return nil
		})
	},
}

var checkoutHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently placed orders, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			orders := a.checkouts.RecentOrders(historyLimit)
			if jsonOutput {
				if orders == nil {
					orders = []service.Order{}
				}
				return printJSON(cmd.OutOrStdout(), orders)
			}
			return printOrders(cmd.OutOrStdout(), orders)
		})
	},
}

func init() {
	checkoutCmd.PersistentFlags().StringVarP(&shippingMethod, "shipping", "s", string(checkout.ShippingStandard), "shipping method: standard or express")

	checkoutHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of orders to show")

	checkoutCmd.AddCommand(checkoutQuoteCmd, checkoutPlaceCmd, checkoutHistoryCmd)
	rootCmd.AddCommand(checkoutCmd)
}
