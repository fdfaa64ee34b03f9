package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price string) Product {
	return Product{ID: ProductID(id), Title: "Product " + id, Price: decimal.RequireFromString(price)}
}

func TestSumLineItems(t *testing.T) {
	lines := []CartLine{
		{Product: product("A", "10"), Quantity: 2},
		{Product: product("B", "5"), Quantity: 1},
	}
	items := SnapshotLines(lines)
	assert.True(t, SumLineItems(items).Equal(decimal.NewFromInt(25)))
}

func TestSumLineItems_FixedPoint(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3.
	items := []LineItem{
		{UnitPrice: decimal.RequireFromString("0.1"), Quantity: 1},
		{UnitPrice: decimal.RequireFromString("0.2"), Quantity: 1},
	}
	assert.Equal(t, "0.3", SumLineItems(items).String())
}

func TestSnapshotLines_CapturesPrice(t *testing.T) {
	lines := []CartLine{{Product: product("A", "19.99"), Quantity: 3}}
	items := SnapshotLines(lines)
	lines[0].Product.Price = decimal.NewFromInt(1)
	assert.Equal(t, "19.99", items[0].UnitPrice.String())
}

func TestOrderClone(t *testing.T) {
	o := Order{ID: 1, Items: []LineItem{{Quantity: 1}}}
	c := o.Clone()
	c.Items[0].Quantity = 9
	assert.Equal(t, 1, o.Items[0].Quantity)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeEmptyCart, CodeOf(fmt.Errorf("wrap: %w", &EmptyCartError{})))
	assert.Equal(t, ErrCodeInvalidTransition, CodeOf(&InvalidTransitionError{}))
	assert.Equal(t, ErrCodePersistence, CodeOf(&PersistenceError{Key: "orders", Op: "set", Err: errors.New("disk")}))
	assert.Equal(t, ErrCodeUnknownProduct, CodeOf(fmt.Errorf("lookup: %w", ErrUnknownProduct)))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("other")))
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &PersistenceError{Key: "orders", Op: "set", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "orders")
}

func TestProductID_UnmarshalJSON(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"title":"x","price":109.95}`), &p))
	assert.Equal(t, ProductID("7"), p.ID)
	assert.Equal(t, "109.95", p.Price.String())

	require.NoError(t, json.Unmarshal([]byte(`{"id":"sku-1"}`), &p))
	assert.Equal(t, ProductID("sku-1"), p.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":1.5}`), &p))
}
