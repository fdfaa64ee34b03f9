package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/shopstate/internal/engine"
	"github.com/roach88/shopstate/internal/model"
)

// NewViewCommand creates the view command.
func NewViewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view <product-id>",
		Short: "Record a product view",
		Long: `Record that a product was viewed. The product moves to the front of the
recently viewed list, which is capped at recent_limit entries.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := engine.Command{Kind: engine.KindView, ProductID: model.ProductID(args[0])}
			return execute(rootOpts, cmd, c, recentView)
		},
	}
}

// NewRecentCommand creates the recent command.
func NewRecentCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "recent",
		Short:         "List recently viewed products, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return show(rootOpts, cmd, func(s *Session) (any, error) {
				return recentView(s, engine.Result{}), nil
			})
		},
	}
}

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "products",
		Short:         "List the catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return show(rootOpts, cmd, func(s *Session) (any, error) {
				ps, err := s.Engine.Catalog().List(cmd.Context())
				if err != nil {
					return nil, err
				}
				return ProductsView{Title: "Products", Products: nonNilProducts(ps)}, nil
			})
		},
	}
}

func recentView(s *Session, _ engine.Result) any {
	return ProductsView{Title: "Recently viewed", Products: nonNilProducts(s.Engine.Recent().Items())}
}
