package mailbox

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox_PutTake(t *testing.T) {
	b := New[string](4)

	require.True(t, b.Put("a"))

	got, ok := b.TryTake()
	require.True(t, ok)
	assert.Equal(t, "a", got)
}

func TestBox_FIFO(t *testing.T) {
	b := New[int](0)
	for i := 1; i <= 3; i++ {
		b.Put(i)
	}

	for want := 1; want <= 3; want++ {
		got, ok := b.TryTake()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := b.TryTake()
	assert.False(t, ok, "take from empty box should return false")
}

func TestBox_TakeAll(t *testing.T) {
	b := New[int](0)
	assert.Nil(t, b.TakeAll())

	b.Put(1)
	b.Put(2)
	b.Put(3)

	assert.Equal(t, []int{1, 2, 3}, b.TakeAll())
	assert.Equal(t, 0, b.Len())
}

func TestBox_SignalCoalesces(t *testing.T) {
	b := New[int](0)
	b.Put(1)
	b.Put(2)

	select {
	case <-b.Wait():
	default:
		t.Fatal("expected pending signal")
	}

	select {
	case <-b.Wait():
		t.Fatal("second signal should have been coalesced")
	default:
	}
	assert.Equal(t, 2, b.Len())
}

func TestBox_CloseWakesWaiter(t *testing.T) {
	b := New[int](0)
	done := make(chan struct{})

	go func() {
		<-b.Wait()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("waiter not woken by close")
	}
	assert.True(t, b.Closed())
}

func TestBox_PutAfterClose(t *testing.T) {
	b := New[int](0)
	b.Put(1)
	b.Close()
	b.Close() // idempotent

	assert.False(t, b.Put(2))

	got, ok := b.TryTake()
	require.True(t, ok, "items queued before close stay available")
	assert.Equal(t, 1, got)
}

func TestBox_ThreadSafe(t *testing.T) {
	b := New[int](0)

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Put(id*1000 + i)
			}
		}(p)
	}
	wg.Wait()

	assert.Len(t, b.TakeAll(), producers*perProducer)
}
