package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journalImplementations(t *testing.T) map[string]Journal {
	return map[string]Journal{
		"sqlite": createTestStore(t),
		"memory": NewMemory(),
	}
}

func TestJournal_OrderedBySeq(t *testing.T) {
	ctx := context.Background()
	for name, j := range journalImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, j.AppendJournal(ctx, createTestEntry("c", "s1", "cart.add", 3)))
			require.NoError(t, j.AppendJournal(ctx, createTestEntry("a", "s1", "cart.add", 1)))
			require.NoError(t, j.AppendJournal(ctx, createTestEntry("b", "s1", "checkout.cart", 2)))

			entries, err := j.ReadJournal(ctx, JournalQuery{})
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, []int64{1, 2, 3}, []int64{entries[0].Seq, entries[1].Seq, entries[2].Seq})
		})
	}
}

func TestJournal_Idempotent(t *testing.T) {
	ctx := context.Background()
	for name, j := range journalImplementations(t) {
		t.Run(name, func(t *testing.T) {
			e := createTestEntry("dup", "s1", "cart.add", 1)
			require.NoError(t, j.AppendJournal(ctx, e))
			require.NoError(t, j.AppendJournal(ctx, e))

			entries, err := j.ReadJournal(ctx, JournalQuery{})
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestJournal_Filters(t *testing.T) {
	ctx := context.Background()
	for name, j := range journalImplementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, j.AppendJournal(ctx, createTestEntry("1", "s1", "cart.add", 1)))
			require.NoError(t, j.AppendJournal(ctx, createTestEntry("2", "s2", "cart.add", 2)))
			require.NoError(t, j.AppendJournal(ctx, createTestEntry("3", "s2", "orders.cancel", 3)))
			require.NoError(t, j.AppendJournal(ctx, createTestEntry("4", "s2", "cart.add", 4)))

			bySession, err := j.ReadJournal(ctx, JournalQuery{Session: "s2"})
			require.NoError(t, err)
			assert.Len(t, bySession, 3)

			byCommand, err := j.ReadJournal(ctx, JournalQuery{Session: "s2", Command: "cart.add"})
			require.NoError(t, err)
			require.Len(t, byCommand, 2)
			assert.Equal(t, "2", byCommand[0].ID)

			last, err := j.ReadJournal(ctx, JournalQuery{Limit: 2})
			require.NoError(t, err)
			require.Len(t, last, 2)
			assert.Equal(t, int64(3), last[0].Seq)
			assert.Equal(t, int64(4), last[1].Seq)
		})
	}
}

func TestJournal_EmptyReadIsNotNil(t *testing.T) {
	for name, j := range journalImplementations(t) {
		t.Run(name, func(t *testing.T) {
			entries, err := j.ReadJournal(context.Background(), JournalQuery{})
			require.NoError(t, err)
			assert.NotNil(t, entries)
			assert.Empty(t, entries)
		})
	}
}

func TestJournal_MaxSeq(t *testing.T) {
	ctx := context.Background()
	for name, j := range journalImplementations(t) {
		t.Run(name, func(t *testing.T) {
			seq, err := j.MaxJournalSeq(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(0), seq)

			require.NoError(t, j.AppendJournal(ctx, createTestEntry("x", "s", "cart.clear", 41)))
			seq, err = j.MaxJournalSeq(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(41), seq)
		})
	}
}

func TestJournal_DefaultArgs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	e := createTestEntry("x", "s", "cart.clear", 1)
	e.Args = ""
	require.NoError(t, s.AppendJournal(ctx, e))

	entries, err := s.ReadJournal(ctx, JournalQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "{}", entries[0].Args)
}
