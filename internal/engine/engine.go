package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/shopstate/internal/cart"
	"github.com/roach88/shopstate/internal/catalog"
	"github.com/roach88/shopstate/internal/checkout"
	"github.com/roach88/shopstate/internal/codec"
	"github.com/roach88/shopstate/internal/ledger"
	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/recent"
	"github.com/roach88/shopstate/internal/store"
	"github.com/roach88/shopstate/internal/wishlist"
)

// Session keys written when session persistence is enabled.
const (
	KeyCart     = "cart"
	KeyWishlist = "wishlist"
)

// DefaultFlushInterval is how often Run retries pending writes.
const DefaultFlushInterval = 30 * time.Second

// Engine is the single-writer session engine.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Execute(), Load(), Flush() and the store accessors: owning goroutine
//     only, and never while Run is active
type Engine struct {
	backend store.Backend
	catalog catalog.Source
	clock   LogicalClock
	session string
	now     func() time.Time

	cart     *cart.Store
	wishlist *wishlist.Store
	ledger   *ledger.Ledger
	checkout *checkout.Orchestrator
	recent   *recent.Tracker

	persistSession bool
	recentLimit    int
	flushInterval  time.Duration
	sessionGen     SessionGenerator

	// pending session writes, set by store notifications
	cartDirty     bool
	wishlistDirty bool

	queue    *commandQueue
	done     chan struct{}
	doneOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionGenerator sets the generator for the session id.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(e *Engine) { e.sessionGen = g }
}

// WithClock sets the logical clock. Load advances it past the highest
// journaled seq when it implements AdvanceTo.
func WithClock(c LogicalClock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithNow sets the wall-clock source for order timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPersistSession enables writing the cart and wishlist under the
// "cart" and "wishlist" keys, and restoring them on Load.
func WithPersistSession(enabled bool) Option {
	return func(e *Engine) { e.persistSession = enabled }
}

// WithRecentLimit caps the recently viewed list.
func WithRecentLimit(n int) Option {
	return func(e *Engine) { e.recentLimit = n }
}

// WithFlushInterval sets how often Run retries pending writes.
// Zero or negative disables periodic flushing.
func WithFlushInterval(d time.Duration) Option {
	return func(e *Engine) { e.flushInterval = d }
}

// New creates an engine over backend with products resolved from src.
// Call Load before executing commands against persisted state.
func New(backend store.Backend, src catalog.Source, opts ...Option) *Engine {
	e := &Engine{
		backend:       backend,
		catalog:       src,
		clock:         NewClock(),
		now:           func() time.Time { return time.Now().UTC() },
		recentLimit:   recent.DefaultLimit,
		flushInterval: DefaultFlushInterval,
		sessionGen:    UUIDv7Generator{},
		queue:         newCommandQueue(),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.catalog == nil {
		e.catalog = catalog.NewStatic()
	}

	e.session = e.sessionGen.Generate()
	e.cart = cart.New()
	e.wishlist = wishlist.New()
	e.ledger = ledger.New(backend, ledger.WithNow(e.now))
	e.checkout = checkout.New(e.cart, e.ledger)
	e.recent = recent.New(backend, e.recentLimit)

	if e.persistSession {
		e.cart.Subscribe(func([]model.CartLine) { e.cartDirty = true })
		e.wishlist.Subscribe(func([]model.Product) { e.wishlistDirty = true })
	}
	return e
}

// Session returns the session id stamped on journal entries.
func (e *Engine) Session() string { return e.session }

// Cart returns the session cart.
func (e *Engine) Cart() *cart.Store { return e.cart }

// Wishlist returns the session wishlist.
func (e *Engine) Wishlist() *wishlist.Store { return e.wishlist }

// Ledger returns the order ledger.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Recent returns the recently viewed tracker.
func (e *Engine) Recent() *recent.Tracker { return e.recent }

// Catalog returns the product source.
func (e *Engine) Catalog() catalog.Source { return e.catalog }

// Clock returns the logical clock.
func (e *Engine) Clock() LogicalClock { return e.clock }

// Load reads persisted state: the journal position, the ledger, the
// recently viewed list and, with session persistence, the cart and
// wishlist. Absent or malformed data yields empty state. Read failures are
// returned joined; they are non-fatal and the engine is usable afterwards.
func (e *Engine) Load(ctx context.Context) error {
	var errs []error

	seq, err := e.backend.MaxJournalSeq(ctx)
	if err != nil {
		errs = append(errs, &model.PersistenceError{Key: "journal", Op: "load", Err: err})
	} else if r, ok := e.clock.(interface{ AdvanceTo(int64) }); ok {
		r.AdvanceTo(seq)
	}

	if err := e.ledger.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.recent.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.persistSession {
		if err := e.loadSession(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	slog.Debug("session loaded",
		"session", e.session,
		"seq", e.clock.Current(),
		"orders", e.ledger.Len(),
		"cart_lines", e.cart.Len(),
		"wishlist", e.wishlist.Len(),
	)
	return errors.Join(errs...)
}

func (e *Engine) loadSession(ctx context.Context) error {
	raw, ok, err := e.backend.Get(ctx, KeyCart)
	if err != nil {
		return &model.PersistenceError{Key: KeyCart, Op: "load", Err: err}
	}
	if ok {
		var lines []model.CartLine
		if err := json.Unmarshal([]byte(raw), &lines); err != nil {
			slog.Warn("persisted cart is malformed, starting empty", "key", KeyCart, "error", err)
		} else {
			e.cart.Restore(lines)
		}
	}

	raw, ok, err = e.backend.Get(ctx, KeyWishlist)
	if err != nil {
		return &model.PersistenceError{Key: KeyWishlist, Op: "load", Err: err}
	}
	if ok {
		var items []model.Product
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			slog.Warn("persisted wishlist is malformed, starting empty", "key", KeyWishlist, "error", err)
		} else {
			e.wishlist.Restore(items)
		}
	}
	return nil
}

// Execute applies cmd, writes changed state and journals the outcome.
//
// Domain failures (empty cart, invalid transition, unknown product,
// invalid argument) and failed checkouts are returned as errors with no
// state change. A write failure after an in-memory change is returned as
// Result.Warning instead.
func (e *Engine) Execute(ctx context.Context, cmd Command) (Result, error) {
	seq := e.clock.Next()

	slog.Debug("executing command",
		"seq", seq,
		"command", string(cmd.Kind),
		"product_id", string(cmd.ProductID),
		"order_id", cmd.OrderID,
	)

	res, err := e.apply(ctx, cmd)
	res.Seq = seq

	if werr := e.saveSession(ctx); werr != nil && res.Warning == nil {
		res.Warning = werr
	}
	if res.Warning != nil {
		slog.Warn("command applied, write pending",
			"seq", seq,
			"command", string(cmd.Kind),
			"error", res.Warning,
		)
	}

	e.record(ctx, seq, cmd, res, err)
	return res, err
}

func (e *Engine) apply(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.Validate(); err != nil {
		return Result{}, err
	}

	switch cmd.Kind {
	case KindCartAdd:
		p, err := e.product(ctx, cmd.ProductID)
		if err != nil {
			return Result{}, err
		}
		return Result{}, e.cart.Add(p, cmd.quantity())

	case KindCartRemove:
		e.cart.Remove(cmd.ProductID)
	case KindCartIncrement:
		e.cart.Increment(cmd.ProductID)
	case KindCartDecrement:
		e.cart.Decrement(cmd.ProductID)
	case KindCartClear:
		e.cart.Clear()

	case KindWishlistAdd:
		p, err := e.product(ctx, cmd.ProductID)
		if err != nil {
			return Result{}, err
		}
		e.wishlist.Add(p)
	case KindWishlistRemove:
		e.wishlist.Remove(cmd.ProductID)
	case KindWishlistToggle:
		if e.wishlist.Contains(cmd.ProductID) {
			e.wishlist.Remove(cmd.ProductID)
			break
		}
		p, err := e.product(ctx, cmd.ProductID)
		if err != nil {
			return Result{}, err
		}
		e.wishlist.Add(p)

	case KindOrderAdvance:
		return e.orderOp(ctx, cmd.OrderID, e.ledger.Advance)
	case KindOrderDeliver:
		return e.orderOp(ctx, cmd.OrderID, e.ledger.MarkDelivered)
	case KindOrderCancel:
		return e.orderOp(ctx, cmd.OrderID, e.ledger.Cancel)
	case KindOrderRemove:
		return e.orderOp(ctx, cmd.OrderID, e.ledger.Remove)

	case KindCheckoutCart:
		order, err := e.checkout.FromCart(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Order: &order}, nil

	case KindCheckoutDirect:
		p, err := e.product(ctx, cmd.ProductID)
		if err != nil {
			return Result{}, err
		}
		order, err := e.checkout.BuyNow(ctx, p, cmd.quantity())
		if err != nil {
			return Result{}, err
		}
		return Result{Order: &order}, nil

	case KindView:
		p, err := e.product(ctx, cmd.ProductID)
		if err != nil {
			return Result{}, err
		}
		if err := e.recent.View(ctx, p); err != nil {
			return Result{Warning: err}, nil
		}
	}
	return Result{}, nil
}

// orderOp runs a ledger lifecycle operation. A persistence failure is a
// warning: the status change stands in memory. A ledger that failed to
// load refuses the operation.
func (e *Engine) orderOp(ctx context.Context, id int64, op func(context.Context, int64) error) (Result, error) {
	var res Result
	if err := op(ctx, id); err != nil {
		if !model.IsPersistence(err) || errors.Is(err, ledger.ErrNotLoaded) {
			return Result{}, err
		}
		res.Warning = err
	}
	if o, ok := e.ledger.Get(id); ok {
		res.Order = &o
	}
	return res, nil
}

func (e *Engine) product(ctx context.Context, id model.ProductID) (model.Product, error) {
	p, err := e.catalog.Product(ctx, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("lookup product: %w", err)
	}
	return p, nil
}

// saveSession writes the cart and wishlist keys that changed since the last
// successful write. Keys stay pending on failure.
func (e *Engine) saveSession(ctx context.Context) error {
	if !e.persistSession {
		return nil
	}
	var errs []error
	if e.cartDirty {
		if err := e.writeKey(ctx, KeyCart, nonNil(e.cart.Lines())); err != nil {
			errs = append(errs, err)
		} else {
			e.cartDirty = false
		}
	}
	if e.wishlistDirty {
		if err := e.writeKey(ctx, KeyWishlist, nonNil(e.wishlist.Items())); err != nil {
			errs = append(errs, err)
		} else {
			e.wishlistDirty = false
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) writeKey(ctx context.Context, key string, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return &model.PersistenceError{Key: key, Op: "encode", Err: err}
	}
	if err := e.backend.Set(ctx, key, string(data)); err != nil {
		return &model.PersistenceError{Key: key, Op: "write", Err: err}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// record appends the journal entry for an executed command. Failures are
// logged, never returned.
func (e *Engine) record(ctx context.Context, seq int64, cmd Command, res Result, err error) {
	args, merr := codec.Marshal(cmd)
	if merr != nil {
		slog.Error("journal encode failed", "seq", seq, "command", string(cmd.Kind), "error", merr)
		return
	}

	entry := store.Entry{
		ID:      codec.JournalEntryID(e.session, string(cmd.Kind), args, seq),
		Seq:     seq,
		Session: e.session,
		Command: string(cmd.Kind),
		Args:    string(args),
		Outcome: OutcomeOf(err),
	}
	switch {
	case err != nil:
		entry.Message = err.Error()
	case res.Warning != nil:
		entry.Message = "warning: " + res.Warning.Error()
	}

	if jerr := e.backend.AppendJournal(ctx, entry); jerr != nil {
		slog.Error("journal append failed",
			"seq", seq,
			"session", e.session,
			"command", string(cmd.Kind),
			"error", jerr,
		)
	}
}

// Flush retries pending ledger and session writes.
func (e *Engine) Flush(ctx context.Context) error {
	return errors.Join(e.ledger.Flush(ctx), e.saveSession(ctx))
}

// Pending reports whether any write is waiting to be retried.
func (e *Engine) Pending() bool {
	return e.ledger.Dirty() || (e.persistSession && (e.cartDirty || e.wishlistDirty))
}

// Trace returns journal entries matching q, ordered by seq.
func (e *Engine) Trace(ctx context.Context, q store.JournalQuery) ([]store.Entry, error) {
	return e.backend.ReadJournal(ctx, q)
}

// Submit enqueues cmd for the Run loop and waits for its result.
// Safe to call from any goroutine.
func (e *Engine) Submit(ctx context.Context, cmd Command) (Result, error) {
	r := request{ctx: ctx, cmd: cmd, reply: make(chan reply, 1)}
	if !e.queue.Enqueue(r) {
		return Result{}, ErrStopped
	}

	select {
	case rep := <-r.reply:
		return rep.res, rep.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-e.done:
		select {
		case rep := <-r.reply:
			return rep.res, rep.err
		default:
			return Result{}, ErrStopped
		}
	}
}

// Run starts the single-writer command loop.
// Blocks until ctx is cancelled or Stop() is called and the queue drains.
// Pending writes are retried every flush interval and once more on exit.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "session", e.session)
	defer e.doneOnce.Do(func() { close(e.done) })

	var tick <-chan time.Time
	if e.flushInterval > 0 {
		ticker := time.NewTicker(e.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if r, ok := e.queue.TryDequeue(); ok {
			rctx := r.ctx
			if rctx == nil {
				rctx = ctx
			}
			res, err := e.Execute(rctx, r.cmd)
			r.reply <- reply{res: res, err: err}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.finalFlush(context.WithoutCancel(ctx))
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Drained() {
				slog.Info("engine stopping: queue closed")
				e.finalFlush(ctx)
				return nil
			}

		case <-tick:
			if !e.Pending() {
				continue
			}
			if err := e.Flush(ctx); err != nil {
				slog.Warn("flush failed, will retry", "error", err)
			}
		}
	}
}

func (e *Engine) finalFlush(ctx context.Context) {
	if !e.Pending() {
		return
	}
	if err := e.Flush(ctx); err != nil {
		slog.Error("final flush failed, unsaved changes lost", "error", err)
	}
}

// Stop closes the command queue. Run returns after draining it.
func (e *Engine) Stop() {
	e.queue.Close()
}
