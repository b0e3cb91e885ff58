package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lumenshop/storefront/internal/domain/cart"
	"github.com/lumenshop/storefront/internal/service"
)

var addQuantity int

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and change the cart",
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return renderCart(cmd, a.carts.View())
		})
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id|slug>",
	Short: "Add a product to the cart",
	Long: `Add a product to the cart. Adding a product that is already in the cart
increases the quantity of its line. The quantity is limited to the stock
on hand.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			ctx := cmd.Context()
			p, err := a.catalogs.Product(ctx, args[0])
			if err != nil {
				return err
			}
			qty := p.ClampQuantity(addQuantity)
			if qty == 0 {
				return fmt.Errorf("%s is out of stock", p.Name)
			}
			if qty != addQuantity {
				fmt.Fprintf(cmd.ErrOrStderr(), "Quantity adjusted to %d.\n", qty)
			}
			line, err := a.carts.AddProduct(ctx, *p, qty)
			if err != nil {
				return err
			}
			if !jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d x %s (line %d).\n\n", qty, p.Name, line.ID)
			}
			return renderCart(cmd, a.carts.View())
		})
	},
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update <line-id> <quantity>",
	Short: "Set the quantity of a cart line (0 removes it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lineID, err := parseLineID(args[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		if qty > cart.MaxQuantity {
			return cart.ErrQuantityLimit
		}
		return withApp(cmd.Context(), func(a *app) error {
			if err := requireLine(a.carts, lineID); err != nil {
				return err
			}
			if err := a.carts.UpdateQuantity(cmd.Context(), lineID, qty); err != nil {
				return err
			}
			return renderCart(cmd, a.carts.View())
		})
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:     "remove <line-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a cart line",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lineID, err := parseLineID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			if err := requireLine(a.carts, lineID); err != nil {
				return err
			}
			if err := a.carts.RemoveItem(cmd.Context(), lineID); err != nil {
				return err
			}
			return renderCart(cmd, a.carts.View())
		})
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every line from the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			if err := a.carts.Clear(cmd.Context()); err != nil {
				return err
			}
			return renderCart(cmd, a.carts.View())
		})
	},
}

func init() {
	cartAddCmd.Flags().IntVarP(&addQuantity, "quantity", "q", 1, "number of units to add")

	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd)
	rootCmd.AddCommand(cartCmd)
}

var errLineNotFound = errors.New("cart line not found")

func parseLineID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid line id %q", s)
	}
	return id, nil
}

func requireLine(carts *service.CartService, lineID int64) error {
	if _, ok := carts.Snapshot().Find(lineID); !ok {
		return fmt.Errorf("%w: %d", errLineNotFound, lineID)
	}
	return nil
}

func renderCart(cmd *cobra.Command, view service.CartView) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), view)
	}
	return printCart(cmd.OutOrStdout(), view)
}
