package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process KV and journal. It is not durable across
// restarts; tests and embedders use it where SQLite is unnecessary.
type Memory struct {
	mu      sync.Mutex
	data    map[string]string
	journal []Entry
	ids     map[string]bool
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]string),
		ids:  make(map[string]bool),
	}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) SetMany(ctx context.Context, entries map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns all stored keys in ascending order.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// AppendJournal records e unless an entry with the same ID exists.
func (m *Memory) AppendJournal(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[e.ID] {
		return nil
	}
	if e.Args == "" {
		e.Args = "{}"
	}
	m.ids[e.ID] = true
	m.journal = append(m.journal, e)
	return nil
}

// ReadJournal mirrors Store.ReadJournal.
func (m *Memory) ReadJournal(ctx context.Context, q JournalQuery) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Entry{}
	for _, e := range m.journal {
		if q.Session != "" && e.Session != q.Session {
			continue
		}
		if q.Command != "" && e.Command != q.Command {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out, nil
}

// MaxJournalSeq mirrors Store.MaxJournalSeq.
func (m *Memory) MaxJournalSeq(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max int64
	for _, e := range m.journal {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max, nil
}
