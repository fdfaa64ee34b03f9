package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/shopstate/internal/store"
)

// ErrInjected is the error FaultyKV returns for injected failures.
var ErrInjected = errors.New("injected storage fault")

// FaultyKV wraps a store.Backend and fails reads, writes or journal
// appends on demand. It is used to exercise the persistence-failure paths.
type FaultyKV struct {
	inner store.Backend

	mu          sync.Mutex
	failWrites  bool
	failReads   bool
	failJournal bool
	writes      int
}

var _ store.Backend = (*FaultyKV)(nil)

// NewFaultyKV wraps inner. With no faults set it behaves exactly like inner.
func NewFaultyKV(inner store.Backend) *FaultyKV {
	return &FaultyKV{inner: inner}
}

// FailWrites makes every subsequent Set, SetMany and Delete fail (or stop
// failing).
func (f *FaultyKV) FailWrites(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = fail
}

// FailReads makes every subsequent Get fail (or stop failing).
func (f *FaultyKV) FailReads(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads = fail
}

// FailJournal makes every subsequent AppendJournal fail (or stop failing).
func (f *FaultyKV) FailJournal(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failJournal = fail
}

// Writes returns the number of successful writes passed through.
func (f *FaultyKV) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *FaultyKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failReads
	f.mu.Unlock()
	if fail {
		return "", false, ErrInjected
	}
	return f.inner.Get(ctx, key)
}

func (f *FaultyKV) Set(ctx context.Context, key, value string) error {
	return f.write(func() error { return f.inner.Set(ctx, key, value) })
}

func (f *FaultyKV) SetMany(ctx context.Context, entries map[string]string) error {
	return f.write(func() error { return f.inner.SetMany(ctx, entries) })
}

func (f *FaultyKV) Delete(ctx context.Context, key string) error {
	return f.write(func() error { return f.inner.Delete(ctx, key) })
}

func (f *FaultyKV) write(do func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return ErrInjected
	}
	if err := do(); err != nil {
		return err
	}
	f.writes++
	return nil
}

func (f *FaultyKV) AppendJournal(ctx context.Context, e store.Entry) error {
	f.mu.Lock()
	fail := f.failJournal
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.inner.AppendJournal(ctx, e)
}

func (f *FaultyKV) ReadJournal(ctx context.Context, q store.JournalQuery) ([]store.Entry, error) {
	return f.inner.ReadJournal(ctx, q)
}

func (f *FaultyKV) MaxJournalSeq(ctx context.Context) (int64, error) {
	return f.inner.MaxJournalSeq(ctx)
}
