package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/model"
)

// NewWishlistCommand creates the wishlist command group.
func NewWishlistCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Save products for later",
	}

	mutation := func(use, short string, kind engine.Kind) *cobra.Command {
		return &cobra.Command{
			Use:           use,
			Short:         short,
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				c := engine.Command{Kind: kind, ProductID: model.ProductID(args[0])}
				return execute(rootOpts, cmd, c, wishlistView)
			},
		}
	}

	cmd.AddCommand(mutation("add <product-id>", "Save a product (no-op if already saved)", engine.KindWishlistAdd))
	cmd.AddCommand(mutation("remove <product-id>", "Remove a saved product", engine.KindWishlistRemove))
	cmd.AddCommand(mutation("toggle <product-id>", "Save or unsave a product", engine.KindWishlistToggle))
	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "List saved products",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return show(rootOpts, cmd, func(s *Session) (any, error) {
				return wishlistView(s, engine.Result{}), nil
			})
		},
	})

	return cmd
}

func wishlistView(s *Session, _ engine.Result) any {
	return ProductsView{Title: "Wishlist", Products: nonNilProducts(s.Engine.Wishlist().Items())}
}

func nonNilProducts(ps []model.Product) []model.Product {
	if ps == nil {
		return []model.Product{}
	}
	return ps
}
