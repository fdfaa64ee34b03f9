package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/model"
)

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders and move them through their lifecycle",
		Long: `List orders and move them through their lifecycle.

Lifecycle: Placed -> Packed -> Shipped -> OutForDelivery -> Delivered.
Any non-delivered order may be cancelled. Only Delivered or Cancelled
orders may be removed.

Exit codes:
  0 - Success (including no-ops on unknown order ids)
  1 - Invalid transition
  2 - Command error`,
	}

	lifecycle := func(use, short string, kind engine.Kind) *cobra.Command {
		return &cobra.Command{
			Use:           use + " <order-id>",
			Short:         short,
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseOrderID(args[0])
				if err != nil {
					return err
				}
				return execute(rootOpts, cmd, engine.Command{Kind: kind, OrderID: id}, orderResultView(kind, id))
			},
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List orders, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return show(rootOpts, cmd, func(s *Session) (any, error) {
				orders := s.Engine.Ledger().List()
				if orders == nil {
					orders = []model.Order{}
				}
				return OrdersView{Orders: orders}, nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <order-id>",
		Short:         "Show one order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			return show(rootOpts, cmd, func(s *Session) (any, error) {
				o, ok := s.Engine.Ledger().Get(id)
				if !ok {
					return nil, NewExitError(ExitCommandError, fmt.Sprintf("order %d not found", id))
				}
				return OrderView{Order: o}, nil
			})
		},
	})
	cmd.AddCommand(lifecycle("advance", "Move an order one step forward", engine.KindOrderAdvance))
	cmd.AddCommand(lifecycle("deliver", "Mark an order delivered", engine.KindOrderDeliver))
	cmd.AddCommand(lifecycle("cancel", "Cancel an order that has not been delivered", engine.KindOrderCancel))
	cmd.AddCommand(lifecycle("remove", "Delete a delivered or cancelled order", engine.KindOrderRemove))

	return cmd
}

func parseOrderID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid order id %q: must be a positive integer", s))
	}
	return id, nil
}

// orderResultView renders the order a lifecycle command touched. Commands
// on unknown ids are no-ops and render as such.
func orderResultView(kind engine.Kind, id int64) func(*Session, engine.Result) any {
	return func(_ *Session, res engine.Result) any {
		switch {
		case res.Order != nil:
			return OrderView{Order: *res.Order}
		case kind == engine.KindOrderRemove:
			return OrderRemovedView{Removed: id}
		default:
			return OrderMissingView{OrderID: id}
		}
	}
}
