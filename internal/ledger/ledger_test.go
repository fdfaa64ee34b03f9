package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/store"
	"github.com/roach88/shopstate/internal/testutil"
)

func item(id, price string, qty int) model.LineItem {
	p := model.Product{ID: model.ProductID(id), Title: "P" + id, Price: decimal.RequireFromString(price)}
	return model.LineItem{Product: p, Quantity: qty, UnitPrice: p.Price}
}

func newLedger(t *testing.T, kv store.KV) *Ledger {
	t.Helper()
	l := New(kv, WithNow(testutil.NewFixedTime(testutil.Epoch, time.Minute).Now))
	require.NoError(t, l.Load(context.Background()))
	return l
}

// placeN places n single-item orders and returns their ids.
func placeN(t *testing.T, l *Ledger, n int) []int64 {
	t.Helper()
	var ids []int64
	for i := 0; i < n; i++ {
		o, err := l.Place(context.Background(), []model.LineItem{item("a", "10", 1)})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	return ids
}

func TestLoad_AbsentIsEmpty(t *testing.T) {
	l := newLedger(t, store.NewMemory())
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(0), l.Seq())
	assert.False(t, l.Dirty())
}

func TestLoad_MalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	for name, raw := range map[string]string{
		"not json":      "{{{",
		"not an array":  `{"id":1}`,
		"zero quantity": `[{"id":1,"items":[{"id":1,"price":1,"quantity":0}]}]`,
	} {
		t.Run(name, func(t *testing.T) {
			kv := store.NewMemory()
			require.NoError(t, kv.Set(ctx, KeyOrders, raw))

			l := newLedger(t, kv)
			assert.Equal(t, 0, l.Len())
		})
	}
}

func TestLoad_UnknownStatusResetsToPlaced(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	raw := `[
		{"id":1,"items":[],"status":"Lost"},
		{"id":2,"items":[],"status":"Shipped"},
		{"id":3,"items":[],"status":{"code":9}}
	]`
	require.NoError(t, kv.Set(ctx, KeyOrders, raw))

	l := newLedger(t, kv)
	require.Equal(t, 3, l.Len())
	for id, want := range map[int64]model.OrderStatus{
		1: model.StatusPlaced,
		2: model.StatusShipped,
		3: model.StatusPlaced,
	} {
		o, ok := l.Get(id)
		require.True(t, ok, "order %d", id)
		assert.Equal(t, want, o.Status, "order %d", id)
	}

	// The next write keeps every record.
	o, err := l.Place(ctx, []model.LineItem{item("a", "1", 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), o.ID)
	assert.Equal(t, 4, newLedger(t, kv).Len())
}

func TestLoad_ReadFailureIsPersistenceError(t *testing.T) {
	kv := testutil.NewFaultyKV(store.NewMemory())
	kv.FailReads(true)

	l := New(kv)
	err := l.Load(context.Background())
	assert.True(t, model.IsPersistence(err))
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Stale())
}

func TestLoad_ReadFailureKeepsStoredLedger(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	placeN(t, newLedger(t, mem), 3)

	kv := testutil.NewFaultyKV(mem)
	kv.FailReads(true)
	l := New(kv)
	require.Error(t, l.Load(ctx))
	kv.FailReads(false)

	_, err := l.Place(ctx, []model.LineItem{item("b", "5", 1)})
	require.ErrorIs(t, err, ErrNotLoaded)
	assert.True(t, model.IsPersistence(err))
	require.ErrorIs(t, l.Advance(ctx, 1), ErrNotLoaded)
	require.ErrorIs(t, l.Cancel(ctx, 1), ErrNotLoaded)
	require.ErrorIs(t, l.Remove(ctx, 1), ErrNotLoaded)
	assert.Equal(t, 0, l.Len())
	assert.Zero(t, kv.Writes())

	stored := newLedger(t, mem)
	assert.Equal(t, 3, stored.Len())
	assert.Equal(t, int64(3), stored.Seq())

	// A successful reload lifts the guard and ids continue from the stored mark.
	require.NoError(t, l.Load(ctx))
	assert.False(t, l.Stale())
	o, err := l.Place(ctx, []model.LineItem{item("b", "5", 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), o.ID)
}

func TestLoad_LegacyRecords(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	legacy := `[
		{"date":"2024-03-01T10:00:00.000Z","items":[{"id":1,"title":"Backpack","price":109.95,"quantity":2}],"total":219.9,"status":2},
		{"id":0,"date":1709287200000,"items":[{"id":2,"title":"Shirt","price":22.3,"quantity":1}],"total":"22.3","status":4},
		{"id":9,"items":[{"id":3,"title":"Jacket","price":55.99,"quantity":1}],"status":-1},
		{"id":10,"items":[],"status":7},
		{"id":11,"items":[],"status":"Out for Delivery"}
	]`
	require.NoError(t, kv.Set(ctx, KeyOrders, legacy))

	l := newLedger(t, kv)
	orders := l.Orders()
	require.Len(t, orders, 5)

	assert.Equal(t, int64(1), orders[0].ID, "missing id falls back to index+1")
	assert.Equal(t, model.StatusShipped, orders[0].Status)
	assert.Equal(t, model.ProductID("1"), orders[0].Items[0].Product.ID)
	assert.Equal(t, "109.95", orders[0].Items[0].UnitPrice.String())
	assert.Equal(t, "219.9", orders[0].Total.String())
	assert.Equal(t, 2024, orders[0].CreatedAt.Year())

	assert.Equal(t, int64(2), orders[1].ID, "zero id falls back to index+1")
	assert.Equal(t, model.StatusDelivered, orders[1].Status)
	assert.Equal(t, int64(1709287200000), orders[1].CreatedAt.UnixMilli())

	assert.Equal(t, model.StatusCancelled, orders[2].Status)
	assert.Equal(t, "55.99", orders[2].Total.String(), "missing total is recomputed")

	assert.Equal(t, model.StatusPlaced, orders[3].Status, "unknown numeric status maps to Placed")
	assert.Equal(t, model.StatusOutForDelivery, orders[4].Status)

	o, err := l.Place(ctx, []model.LineItem{item("z", "1", 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(12), o.ID)
}

func TestLoad_DuplicateFallbackIDsAreReassigned(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, KeyOrders, `[{"id":2,"items":[]},{"items":[]}]`))

	l := newLedger(t, kv)
	orders := l.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[0].ID)
	assert.Equal(t, int64(3), orders[1].ID)
}

func TestPlace_AssignsIDTotalStatus(t *testing.T) {
	l := newLedger(t, store.NewMemory())

	o, err := l.Place(context.Background(), []model.LineItem{
		item("a", "10", 2),
		item("b", "5", 1),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), o.ID)
	assert.Equal(t, "25", o.Total.String())
	assert.Equal(t, model.StatusPlaced, o.Status)
	assert.Equal(t, testutil.Epoch, o.CreatedAt)
}

func TestPlace_RejectsEmptyAndBadQuantity(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())

	_, err := l.Place(ctx, nil)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	_, err = l.Place(ctx, []model.LineItem{item("a", "1", 0)})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(0), l.Seq(), "rejected orders do not consume ids")
}

func TestPlace_IDsMonotonicAfterRemovingNewest(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	l := newLedger(t, kv)
	ids := placeN(t, l, 3)

	require.NoError(t, l.Cancel(ctx, ids[2]))
	require.NoError(t, l.Remove(ctx, ids[2]))

	o, err := l.Place(ctx, []model.LineItem{item("a", "1", 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), o.ID)

	// The high-water mark survives a restart too.
	require.NoError(t, l.Cancel(ctx, 4))
	require.NoError(t, l.Remove(ctx, 4))

	reloaded := newLedger(t, kv)
	o, err = reloaded.Place(ctx, []model.LineItem{item("a", "1", 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(5), o.ID)
}

func TestPlace_SnapshotIsImmutable(t *testing.T) {
	l := newLedger(t, store.NewMemory())
	items := []model.LineItem{item("a", "10", 1)}

	o, err := l.Place(context.Background(), items)
	require.NoError(t, err)

	items[0].Quantity = 50
	o.Items[0].Quantity = 99

	got, ok := l.Get(o.ID)
	require.True(t, ok)
	assert.Equal(t, 1, got.Items[0].Quantity)
}

func TestAdvance_Progression(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())
	id := placeN(t, l, 1)[0]

	want := []model.OrderStatus{
		model.StatusPacked,
		model.StatusShipped,
		model.StatusOutForDelivery,
		model.StatusOutForDelivery,
	}
	for _, w := range want {
		require.NoError(t, l.Advance(ctx, id))
		o, _ := l.Get(id)
		assert.Equal(t, w, o.Status)
	}
}

func TestAdvance_TerminalAndAbsentAreNoops(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())
	ids := placeN(t, l, 2)

	require.NoError(t, l.MarkDelivered(ctx, ids[0]))
	require.NoError(t, l.Cancel(ctx, ids[1]))

	require.NoError(t, l.Advance(ctx, ids[0]))
	require.NoError(t, l.Advance(ctx, ids[1]))
	require.NoError(t, l.Advance(ctx, 999))

	o0, _ := l.Get(ids[0])
	o1, _ := l.Get(ids[1])
	assert.Equal(t, model.StatusDelivered, o0.Status)
	assert.Equal(t, model.StatusCancelled, o1.Status)
}

func TestMarkDelivered(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())
	ids := placeN(t, l, 2)

	require.NoError(t, l.MarkDelivered(ctx, ids[0]))
	require.NoError(t, l.MarkDelivered(ctx, ids[0]), "delivering twice is a no-op")

	require.NoError(t, l.Cancel(ctx, ids[1]))
	err := l.MarkDelivered(ctx, ids[1])
	assert.True(t, model.IsInvalidTransition(err))

	o, _ := l.Get(ids[1])
	assert.Equal(t, model.StatusCancelled, o.Status)
}

func TestCancel_DeliveredIsInvalid(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())
	id := placeN(t, l, 1)[0]
	require.NoError(t, l.MarkDelivered(ctx, id))

	err := l.Cancel(ctx, id)
	require.Error(t, err)
	var it *model.InvalidTransitionError
	require.ErrorAs(t, err, &it)
	assert.Equal(t, id, it.OrderID)
	assert.Equal(t, model.StatusDelivered, it.From)
	assert.Equal(t, model.OpCancel, it.Op)

	o, _ := l.Get(id)
	assert.Equal(t, model.StatusDelivered, o.Status)
}

func TestCancel_Idempotent(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())
	id := placeN(t, l, 1)[0]

	require.NoError(t, l.Cancel(ctx, id))
	require.NoError(t, l.Cancel(ctx, id))
	o, _ := l.Get(id)
	assert.Equal(t, model.StatusCancelled, o.Status)
}

func TestScenario_ShippedAdvanceTwice(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	l := newLedger(t, kv)
	ids := placeN(t, l, 7)
	id := ids[6]
	require.Equal(t, int64(7), id)

	require.NoError(t, l.Advance(ctx, id))
	require.NoError(t, l.Advance(ctx, id))
	o, _ := l.Get(id)
	require.Equal(t, model.StatusShipped, o.Status)

	require.NoError(t, l.Advance(ctx, id))
	o, _ = l.Get(id)
	assert.Equal(t, model.StatusOutForDelivery, o.Status)

	require.NoError(t, l.Advance(ctx, id))
	o, _ = l.Get(id)
	assert.Equal(t, model.StatusOutForDelivery, o.Status)
}

func TestScenario_CancelPackedThenRemove(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())
	id := placeN(t, l, 1)[0]

	require.NoError(t, l.Advance(ctx, id))
	require.NoError(t, l.Cancel(ctx, id))
	require.NoError(t, l.Remove(ctx, id))

	_, ok := l.Get(id)
	assert.False(t, ok)
}

func TestRemove_ActiveIsInvalid(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())
	id := placeN(t, l, 1)[0]

	err := l.Remove(ctx, id)
	assert.True(t, model.IsInvalidTransition(err))
	assert.Equal(t, 1, l.Len())

	assert.NoError(t, l.Remove(ctx, 12345), "absent id is a no-op")
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	l := newLedger(t, kv)
	ids := placeN(t, l, 3)
	_, err := l.Place(ctx, []model.LineItem{item("x", "0.1", 3), item("y", "19.99", 2)})
	require.NoError(t, err)
	require.NoError(t, l.Advance(ctx, ids[0]))
	require.NoError(t, l.Cancel(ctx, ids[1]))
	require.NoError(t, l.MarkDelivered(ctx, ids[2]))

	reloaded := newLedger(t, kv)
	before := l.Orders()
	after := reloaded.Orders()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.True(t, before[i].Total.Equal(after[i].Total), "order %d total", before[i].ID)
		assert.Equal(t, before[i].Status, after[i].Status)
		assert.True(t, before[i].CreatedAt.Equal(after[i].CreatedAt))
		assert.Len(t, after[i].Items, len(before[i].Items))
	}
	assert.Equal(t, "40.28", after[3].Total.String())
}

func TestRoundTrip_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	l := newLedger(t, s)
	placeN(t, l, 2)
	require.NoError(t, l.Cancel(ctx, 2))

	reloaded := newLedger(t, s)
	require.Equal(t, 2, reloaded.Len())
	o, _ := reloaded.Get(2)
	assert.Equal(t, model.StatusCancelled, o.Status)
}

func TestList_NewestFirst(t *testing.T) {
	l := newLedger(t, store.NewMemory())
	placeN(t, l, 3)

	var ids []int64
	for _, o := range l.List() {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
}

func TestWriteFailure_KeepsMirrorAndFlushes(t *testing.T) {
	ctx := context.Background()
	inner := store.NewMemory()
	kv := testutil.NewFaultyKV(inner)
	l := newLedger(t, kv)
	id := placeN(t, l, 1)[0]

	kv.FailWrites(true)
	err := l.Advance(ctx, id)
	assert.True(t, model.IsPersistence(err))
	assert.True(t, l.Dirty())

	o, _ := l.Get(id)
	assert.Equal(t, model.StatusPacked, o.Status, "mirror stays authoritative")

	assert.Error(t, l.Flush(ctx))

	kv.FailWrites(false)
	require.NoError(t, l.Flush(ctx))
	assert.False(t, l.Dirty())

	reloaded := newLedger(t, inner)
	o, _ = reloaded.Get(id)
	assert.Equal(t, model.StatusPacked, o.Status)
}

func TestPlace_WriteFailureKeepsOrder(t *testing.T) {
	kv := testutil.NewFaultyKV(store.NewMemory())
	l := newLedger(t, kv)
	kv.FailWrites(true)

	o, err := l.Place(context.Background(), []model.LineItem{item("a", "1", 1)})
	assert.True(t, model.IsPersistence(err))
	assert.Equal(t, int64(1), o.ID)
	assert.Equal(t, 1, l.Len())
	assert.True(t, l.Dirty())
}

func TestPlaceDurable_WriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewFaultyKV(store.NewMemory())
	l := newLedger(t, kv)
	kv.FailWrites(true)

	_, err := l.PlaceDurable(ctx, []model.LineItem{item("a", "1", 1)})
	assert.True(t, model.IsPersistence(err))
	assert.Equal(t, 0, l.Len())

	kv.FailWrites(false)
	o, err := l.PlaceDurable(ctx, []model.LineItem{item("a", "1", 1)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), o.ID, "the rolled back id is not reused")
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, store.NewMemory())
	var counts []int
	l.Subscribe(func(orders []model.Order) { counts = append(counts, len(orders)) })

	id := placeN(t, l, 1)[0]
	require.NoError(t, l.Advance(ctx, id))
	require.NoError(t, l.Cancel(ctx, id))
	require.NoError(t, l.Cancel(ctx, id)) // no-op, no notification
	require.NoError(t, l.Remove(ctx, id))

	assert.Equal(t, []int{1, 1, 1, 0}, counts)
}
