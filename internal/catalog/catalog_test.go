package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopstate/internal/model"
)

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	src, err := LoadFile(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	products, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)

	p, err := src.Product(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "109.95", p.Price.String())
	assert.Equal(t, "3.9", p.Rating.Rate.String())
	assert.Equal(t, int64(120), p.Rating.Count)

	p, err = src.Product(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "22.3", p.Price.String(), "quoted and unquoted prices read the same")
}

func TestProduct_Unknown(t *testing.T) {
	src := NewStatic()
	_, err := src.Product(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrUnknownProduct)
	assert.Equal(t, model.ErrCodeUnknownProduct, model.CodeOf(err))
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("products:\n  - id: \"1\"\n    price: 1\n    colour: red\n"))
	assert.Error(t, err)
}

func TestParse_RejectsBadPrice(t *testing.T) {
	for name, doc := range map[string]string{
		"not a number": "products:\n  - id: \"1\"\n    price: cheap\n",
		"missing":      "products:\n  - id: \"1\"\n",
		"negative":     "products:\n  - id: \"1\"\n    price: -3\n",
		"missing id":   "products:\n  - title: x\n    price: 3\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	src, err := Parse(nil)
	require.NoError(t, err)
	products, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestNewStatic_DuplicateReplaces(t *testing.T) {
	ctx := context.Background()
	src := NewStatic(
		model.Product{ID: "a", Title: "old", Price: decimal.NewFromInt(1)},
		model.Product{ID: "b", Price: decimal.NewFromInt(2)},
		model.Product{ID: "a", Title: "new", Price: decimal.NewFromInt(3)},
	)

	products, err := src.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "new", products[0].Title)
}
