package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_StartingPoint(t *testing.T) {
	tests := []struct {
		name  string
		clock *Clock
		want  int64
	}{
		{"fresh", NewClock(), 0},
		{"resumed", NewClockAt(42), 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.clock.Current())
			assert.Equal(t, tt.want+1, tt.clock.Next(), "first stamp follows the start")
		})
	}
}

func TestClock_StampsIncreaseByOne(t *testing.T) {
	c := NewClock()

	var last int64
	for i := 0; i < 50; i++ {
		seq := c.Next()
		require.Equal(t, last+1, seq)
		last = seq
	}

	// reading the position does not consume a stamp
	assert.Equal(t, last, c.Current())
	assert.Equal(t, last, c.Current())
}

func TestClock_ConcurrentStampsAreDistinct(t *testing.T) {
	c := NewClock()
	const writers, perWriter = 20, 250

	var mu sync.Mutex
	seen := make(map[int64]struct{}, writers*perWriter)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWriter)
			for j := 0; j < perWriter; j++ {
				local = append(local, c.Next())
			}
			mu.Lock()
			for _, seq := range local {
				seen[seq] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, writers*perWriter)
	assert.Equal(t, int64(writers*perWriter), c.Current())
}

func TestClock_AdvanceTo(t *testing.T) {
	c := NewClockAt(5)

	c.AdvanceTo(3)
	assert.Equal(t, int64(5), c.Current(), "never moves backwards")

	c.AdvanceTo(40)
	assert.Equal(t, int64(40), c.Current())
	assert.Equal(t, int64(41), c.Next())
}
