package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/roach88/shopstate/internal/codec"
	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/notify"
	"github.com/roach88/shopstate/internal/store"
)

// Persisted keys.
const (
	KeyOrders   = "orders"
	KeyOrderSeq = "orderSeq"
)

// ErrNotLoaded is wrapped in the *model.PersistenceError returned by
// mutations after a failed Load. The stored ledger is unknown, so writing
// the mirror would overwrite it.
var ErrNotLoaded = errors.New("ledger not loaded")

// Ledger is the Order Ledger. Single writer; not safe for concurrent
// mutation.
type Ledger struct {
	kv     store.KV
	now    func() time.Time
	orders []model.Order
	seq    int64
	dirty  bool
	stale  bool
	hub    notify.Hub[[]model.Order]
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithNow sets the time source used for order creation timestamps.
func WithNow(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns an empty ledger backed by kv. Call Load to read the persisted
// copy.
func New(kv store.KV, opts ...Option) *Ledger {
	l := &Ledger{
		kv:  kv,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the mirror with the persisted ledger.
//
// An absent key yields an empty ledger. Malformed data is logged and also
// yields an empty ledger. A failing read returns a *model.PersistenceError
// and leaves the ledger empty and stale: mutations are refused until a
// later Load succeeds.
func (l *Ledger) Load(ctx context.Context) error {
	l.orders = nil
	l.seq = 0
	l.dirty = false
	l.stale = true

	raw, ok, err := l.kv.Get(ctx, KeyOrders)
	if err != nil {
		return &model.PersistenceError{Key: KeyOrders, Op: "load", Err: err}
	}
	if ok {
		orders, err := decodeOrders([]byte(raw))
		if err != nil {
			slog.Warn("persisted ledger is malformed, starting empty",
				"key", KeyOrders,
				"error", err,
			)
		} else {
			l.orders = orders
		}
	}

	for _, o := range l.orders {
		if o.ID > l.seq {
			l.seq = o.ID
		}
	}

	rawSeq, ok, err := l.kv.Get(ctx, KeyOrderSeq)
	if err != nil {
		return &model.PersistenceError{Key: KeyOrderSeq, Op: "load", Err: err}
	}
	if ok {
		if hw, err := strconv.ParseInt(rawSeq, 10, 64); err == nil && hw > l.seq {
			l.seq = hw
		} else if err != nil {
			slog.Warn("ignoring malformed order sequence", "key", KeyOrderSeq, "value", rawSeq)
		}
	}

	l.stale = false
	slog.Debug("ledger loaded", "orders", len(l.orders), "seq", l.seq)
	return nil
}

// Stale reports whether the last Load failed to read the persisted ledger.
func (l *Ledger) Stale() bool {
	return l.stale
}

func (l *Ledger) checkLoaded() error {
	if l.stale {
		return &model.PersistenceError{Key: KeyOrders, Op: "write", Err: ErrNotLoaded}
	}
	return nil
}

// Place appends a new order built from items and persists the ledger.
//
// The order gets the next id, status Placed, and a total computed as the
// fixed-point sum of unit price × quantity. If the write fails the order
// stays in the mirror and a *model.PersistenceError is returned together
// with the order.
func (l *Ledger) Place(ctx context.Context, items []model.LineItem) (model.Order, error) {
	o, err := l.appendOrder(items)
	if err != nil {
		return model.Order{}, err
	}
	if err := l.persist(ctx); err != nil {
		return o.Clone(), err
	}
	return o.Clone(), nil
}

// PlaceDurable is Place for callers that need the order to be durable
// before they proceed. If the write fails the order is removed from the
// mirror and the error is returned. The consumed id is not reused.
func (l *Ledger) PlaceDurable(ctx context.Context, items []model.LineItem) (model.Order, error) {
	o, err := l.appendOrder(items)
	if err != nil {
		return model.Order{}, err
	}
	if err := l.persist(ctx); err != nil {
		l.orders = l.orders[:len(l.orders)-1]
		slog.Warn("order rolled back after failed write", "order_id", o.ID, "error", err)
		l.changed()
		return model.Order{}, err
	}
	return o.Clone(), nil
}

func (l *Ledger) appendOrder(items []model.LineItem) (model.Order, error) {
	if err := l.checkLoaded(); err != nil {
		return model.Order{}, err
	}
	if len(items) == 0 {
		return model.Order{}, fmt.Errorf("%w: order has no line items", model.ErrInvalidArgument)
	}
	for _, li := range items {
		if li.Quantity < 1 {
			return model.Order{}, fmt.Errorf("%w: quantity %d for product %q must be >= 1",
				model.ErrInvalidArgument, li.Quantity, li.Product.ID)
		}
	}

	l.seq++
	o := model.Order{
		ID:        l.seq,
		CreatedAt: l.now(),
		Items:     append([]model.LineItem(nil), items...),
		Total:     model.SumLineItems(items),
		Status:    model.StatusPlaced,
	}
	l.orders = append(l.orders, o)
	slog.Info("order placed", "order_id", o.ID, "total", o.Total.String(), "items", len(o.Items))
	l.changed()
	return o, nil
}

// Advance moves an order one step along Placed → Packed → Shipped →
// OutForDelivery. It is a no-op for an absent order or one that is already
// OutForDelivery, Delivered or Cancelled.
func (l *Ledger) Advance(ctx context.Context, id int64) error {
	return l.transition(ctx, id, model.OpAdvance)
}

// MarkDelivered moves any active order directly to Delivered. It is a no-op
// for an absent or already delivered order. A cancelled order yields a
// *model.InvalidTransitionError.
func (l *Ledger) MarkDelivered(ctx context.Context, id int64) error {
	return l.transition(ctx, id, model.OpDeliver)
}

// Cancel moves an active order to Cancelled. Cancelling a cancelled order
// is a no-op. A delivered order yields a *model.InvalidTransitionError.
func (l *Ledger) Cancel(ctx context.Context, id int64) error {
	return l.transition(ctx, id, model.OpCancel)
}

// Remove deletes a Delivered or Cancelled order. Removing an active order
// yields a *model.InvalidTransitionError. Absent ids are a no-op.
func (l *Ledger) Remove(ctx context.Context, id int64) error {
	if err := l.checkLoaded(); err != nil {
		return err
	}
	i := l.index(id)
	if i < 0 {
		return nil
	}
	o := l.orders[i]
	if !o.Status.CanRemove() {
		return &model.InvalidTransitionError{OrderID: id, From: o.Status, Op: model.OpRemove}
	}
	l.orders = append(l.orders[:i], l.orders[i+1:]...)
	slog.Info("order removed", "order_id", id, "status", o.Status.String())
	l.changed()
	return l.persist(ctx)
}

func (l *Ledger) transition(ctx context.Context, id int64, op model.Op) error {
	if err := l.checkLoaded(); err != nil {
		return err
	}
	i := l.index(id)
	if i < 0 {
		slog.Debug("order not found, ignoring", "order_id", id, "op", string(op))
		return nil
	}
	from := l.orders[i].Status
	to, err := from.Step(id, op)
	if err != nil {
		return err
	}
	if to == from {
		return nil
	}
	l.orders[i].Status = to
	slog.Info("order status changed",
		"order_id", id,
		"op", string(op),
		"from", from.String(),
		"status", to.String(),
	)
	l.changed()
	return l.persist(ctx)
}

// Get returns a copy of the order with id.
func (l *Ledger) Get(id int64) (model.Order, bool) {
	if i := l.index(id); i >= 0 {
		return l.orders[i].Clone(), true
	}
	return model.Order{}, false
}

// Orders returns copies of all orders in insertion order.
func (l *Ledger) Orders() []model.Order {
	out := make([]model.Order, len(l.orders))
	for i, o := range l.orders {
		out[i] = o.Clone()
	}
	return out
}

// List returns copies of all orders, newest (highest id) first.
func (l *Ledger) List() []model.Order {
	out := l.Orders()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Len returns the number of orders.
func (l *Ledger) Len() int {
	return len(l.orders)
}

// Seq returns the id high-water mark.
func (l *Ledger) Seq() int64 {
	return l.seq
}

// Dirty reports whether the mirror is ahead of the persisted copy.
func (l *Ledger) Dirty() bool {
	return l.dirty
}

// Flush writes the ledger if a previous write failed. It is a no-op when
// the ledger is clean.
func (l *Ledger) Flush(ctx context.Context) error {
	if !l.dirty {
		return nil
	}
	if err := l.persist(ctx); err != nil {
		return err
	}
	slog.Info("ledger flushed", "orders", len(l.orders))
	return nil
}

// Subscribe registers fn to receive a snapshot of the orders (insertion
// order) after every mutation.
func (l *Ledger) Subscribe(fn func([]model.Order)) (unsubscribe func()) {
	return l.hub.Subscribe(fn)
}

// persist writes the full ledger and the id high-water mark in one
// transaction.
func (l *Ledger) persist(ctx context.Context) error {
	if err := l.checkLoaded(); err != nil {
		return err
	}
	orders := l.orders
	if orders == nil {
		orders = []model.Order{}
	}
	data, err := codec.Marshal(orders)
	if err != nil {
		l.dirty = true
		return &model.PersistenceError{Key: KeyOrders, Op: "encode", Err: err}
	}
	err = l.kv.SetMany(ctx, map[string]string{
		KeyOrders:   string(data),
		KeyOrderSeq: strconv.FormatInt(l.seq, 10),
	})
	if err != nil {
		l.dirty = true
		slog.Warn("ledger write failed, in-memory state kept", "key", KeyOrders, "error", err)
		return &model.PersistenceError{Key: KeyOrders, Op: "write", Err: err}
	}
	l.dirty = false
	return nil
}

func (l *Ledger) index(id int64) int {
	for i, o := range l.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) changed() {
	l.hub.Publish(l.Orders())
}
