package wishlist

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopstate/internal/model"
)

func product(id string) model.Product {
	return model.Product{ID: model.ProductID(id), Title: "P" + id, Price: decimal.NewFromInt(1)}
}

func TestAdd_Idempotent(t *testing.T) {
	w := New()

	assert.True(t, w.Add(product("a")))
	assert.False(t, w.Add(product("a")))

	require.Equal(t, 1, w.Len())
	assert.True(t, w.Contains("a"))
}

func TestAdd_KeepsFirstProductValue(t *testing.T) {
	w := New()
	first := product("a")
	second := product("a")
	second.Title = "renamed"

	w.Add(first)
	w.Add(second)

	assert.Equal(t, "Pa", w.Items()[0].Title)
}

func TestRemove(t *testing.T) {
	w := New()
	w.Add(product("a"))
	w.Add(product("b"))

	assert.True(t, w.Remove("a"))
	assert.False(t, w.Remove("a"))
	assert.False(t, w.Contains("a"))
	assert.Equal(t, []model.Product{product("b")}, w.Items())
}

func TestItems_InsertionOrder(t *testing.T) {
	w := New()
	for _, id := range []string{"c", "a", "b"} {
		w.Add(product(id))
	}

	var ids []model.ProductID
	for _, p := range w.Items() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []model.ProductID{"c", "a", "b"}, ids)
}

func TestToggle(t *testing.T) {
	w := New()

	assert.True(t, w.Toggle(product("a")))
	assert.False(t, w.Toggle(product("a")))
	assert.Equal(t, 0, w.Len())
}

func TestSubscribe(t *testing.T) {
	w := New()
	var sizes []int
	w.Subscribe(func(items []model.Product) { sizes = append(sizes, len(items)) })

	w.Add(product("a"))
	w.Add(product("a"))
	w.Add(product("b"))
	w.Remove("a")

	assert.Equal(t, []int{1, 2, 1}, sizes)
}

func TestRestore_Dedups(t *testing.T) {
	w := New()
	w.Restore([]model.Product{product("a"), product("b"), product("a")})

	assert.Equal(t, 2, w.Len())
}
