package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func req(kind Kind) request {
	return request{cmd: Command{Kind: kind}}
}

func TestCommandQueue_FIFO(t *testing.T) {
	q := newCommandQueue()

	q.Enqueue(req(KindCartAdd))
	q.Enqueue(req(KindCartRemove))
	q.Enqueue(req(KindCartClear))

	for _, want := range []Kind{KindCartAdd, KindCartRemove, KindCartClear} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.cmd.Kind)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestCommandQueue_SignalOnEnqueue(t *testing.T) {
	q := newCommandQueue()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(req(KindView))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock")
	}
}

func TestCommandQueue_Close(t *testing.T) {
	q := newCommandQueue()
	q.Enqueue(req(KindView))
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(req(KindView)), "enqueue after close should return false")
	assert.False(t, q.Drained(), "closed but not empty")

	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.True(t, q.Drained())

	select {
	case <-q.Wait():
	default:
		t.Fatal("wait channel should be closed")
	}
}

func TestCommandQueue_ThreadSafe(t *testing.T) {
	q := newCommandQueue()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(req(KindCartIncrement))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
