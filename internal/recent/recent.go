// Package recent tracks recently viewed products, newest first, under the
// "recentlyViewed" key.
package recent

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/roach88/shopstate/internal/codec"
	"github.com/roach88/shopstate/internal/model"
	"github.com/roach88/shopstate/internal/store"
)

// Key is the persisted key for the recently viewed list.
const Key = "recentlyViewed"

// DefaultLimit caps the list when no limit is configured.
const DefaultLimit = 10

// Tracker keeps the recently viewed list. Single writer.
type Tracker struct {
	kv    store.KV
	limit int
	items []model.Product
}

// New returns an empty tracker. A limit < 1 means DefaultLimit.
func New(kv store.KV, limit int) *Tracker {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Tracker{kv: kv, limit: limit}
}

// Load reads the persisted list. Absent or malformed data yields an empty
// list; a failing read returns a *model.PersistenceError.
func (t *Tracker) Load(ctx context.Context) error {
	t.items = nil
	raw, ok, err := t.kv.Get(ctx, Key)
	if err != nil {
		return &model.PersistenceError{Key: Key, Op: "load", Err: err}
	}
	if !ok {
		return nil
	}
	var items []model.Product
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		slog.Warn("recently viewed list is malformed, starting empty", "key", Key, "error", err)
		return nil
	}
	t.items = dedup(items, t.limit)
	return nil
}

// View moves p to the front of the list, dropping any older entry with the
// same id and trimming to the limit, then persists the list. A failed write
// keeps the in-memory list and returns a *model.PersistenceError.
func (t *Tracker) View(ctx context.Context, p model.Product) error {
	items := append([]model.Product{p}, t.items...)
	t.items = dedup(items, t.limit)
	return t.save(ctx)
}

// Items returns a copy of the list, newest first.
func (t *Tracker) Items() []model.Product {
	out := make([]model.Product, len(t.items))
	copy(out, t.items)
	return out
}

func (t *Tracker) save(ctx context.Context) error {
	items := t.items
	if items == nil {
		items = []model.Product{}
	}
	data, err := codec.Marshal(items)
	if err != nil {
		return &model.PersistenceError{Key: Key, Op: "encode", Err: err}
	}
	if err := t.kv.Set(ctx, Key, string(data)); err != nil {
		return &model.PersistenceError{Key: Key, Op: "write", Err: err}
	}
	return nil
}

func dedup(items []model.Product, limit int) []model.Product {
	seen := make(map[model.ProductID]bool, len(items))
	out := make([]model.Product, 0, limit)
	for _, p := range items {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
