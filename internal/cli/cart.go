package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/model"
)

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Edit and show the cart",
		Long: `Edit and show the cart.

Examples:
  shopstate cart add 3 --qty 2
  shopstate cart inc 3
  shopstate cart show --format json`,
	}

	var qty int
	add := cartMutation(rootOpts, "add <product-id>", "Add a product (repeat adds increase quantity)", engine.KindCartAdd, &qty)
	add.Flags().IntVar(&qty, "qty", 1, "quantity to add")

	cmd.AddCommand(add)
	cmd.AddCommand(cartMutation(rootOpts, "remove <product-id>", "Remove a product's line", engine.KindCartRemove, nil))
	cmd.AddCommand(cartMutation(rootOpts, "inc <product-id>", "Increase a line's quantity by one", engine.KindCartIncrement, nil))
	cmd.AddCommand(cartMutation(rootOpts, "dec <product-id>", "Decrease a line's quantity by one (never below 1)", engine.KindCartDecrement, nil))
	cmd.AddCommand(&cobra.Command{
		Use:           "clear",
		Short:         "Empty the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(rootOpts, cmd, engine.Command{Kind: engine.KindCartClear}, cartView)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Show cart lines and total",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return show(rootOpts, cmd, func(s *Session) (any, error) {
				return cartView(s, engine.Result{}), nil
			})
		},
	})

	return cmd
}

func cartMutation(rootOpts *RootOptions, use, short string, kind engine.Kind, qty *int) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := engine.Command{Kind: kind, ProductID: model.ProductID(args[0])}
			if qty != nil {
				n, err := quantityFlag(cmd, *qty)
				if err != nil {
					return err
				}
				c.Quantity = n
			}
			return execute(rootOpts, cmd, c, cartView)
		},
	}
}

// quantityFlag returns the --qty value to put on a command: 0 (the engine's
// default of one) when the flag was not given, so journaled args show only
// what the caller passed. An explicit zero is a command error.
func quantityFlag(cmd *cobra.Command, value int) (int, error) {
	if !cmd.Flags().Changed("qty") {
		return 0, nil
	}
	if value == 0 {
		return 0, NewExitError(ExitCommandError, "--qty must be at least 1")
	}
	return value, nil
}

func cartView(s *Session, _ engine.Result) any {
	c := s.Engine.Cart()
	return CartView{
		Lines:    nonNilLines(c.Lines()),
		Quantity: c.Quantity(),
		Total:    c.Total(),
	}
}

func nonNilLines(lines []model.CartLine) []model.CartLine {
	if lines == nil {
		return []model.CartLine{}
	}
	return lines
}
