package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/model"
)

// CheckoutOptions holds flags for the checkout command.
type CheckoutOptions struct {
	*RootOptions
	BuyNow   string
	Quantity int
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckoutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order from the cart or a single product",
		Long: `Place an order.

Without flags the cart is checked out: its lines become a Placed order
priced at current product prices, and the cart is cleared. With --buy-now
a single product is ordered directly and the cart is left untouched.

Exit codes:
  0 - Order placed
  1 - Empty cart, or the order could not be saved (the cart is kept)
  2 - Command error

Examples:
  shopstate checkout
  shopstate checkout --buy-now 3 --qty 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := engine.Command{Kind: engine.KindCheckoutCart}
			if opts.BuyNow != "" {
				qty, err := quantityFlag(cmd, opts.Quantity)
				if err != nil {
					return err
				}
				c = engine.Command{
					Kind:      engine.KindCheckoutDirect,
					ProductID: model.ProductID(opts.BuyNow),
					Quantity:  qty,
				}
			} else if cmd.Flags().Changed("qty") {
				return NewExitError(ExitCommandError, "--qty requires --buy-now")
			}
			return execute(opts.RootOptions, cmd, c, func(_ *Session, res engine.Result) any {
				return OrderView{Order: *res.Order}
			})
		},
	}

	cmd.Flags().StringVar(&opts.BuyNow, "buy-now", "", "product id to order directly, bypassing the cart")
	cmd.Flags().IntVar(&opts.Quantity, "qty", 1, "quantity for --buy-now")

	return cmd
}
