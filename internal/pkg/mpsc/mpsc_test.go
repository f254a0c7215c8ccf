package mpsc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO(t *testing.T) {
	q := New[int]()
	assert.True(t, q.Empty())

	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	assert.False(t, q.Empty())

	for i := 0; i < 100; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := q.Dequeue()
	assert.False(t, ok)
	assert.True(t, q.Empty())
}

func TestDequeueBulk(t *testing.T) {
	q := New[string]()
	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")

	batch := q.DequeueBulk(nil, 2)
	assert.Equal(t, []string{"a", "b"}, batch)

	batch = q.DequeueBulk(batch[:0], 10)
	assert.Equal(t, []string{"c"}, batch)
}

// Many producers, one consumer: every item arrives exactly once and each
// producer's items keep their relative order.
func TestConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 10_000

	q := New[[2]int]()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue([2]int{p, i})
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	seen := 0
	for seen < producers*perProducer {
		v, ok := q.Dequeue()
		if !ok {
			select {
			case <-done:
				if q.Empty() {
					t.Fatalf("queue drained early: got %d of %d", seen, producers*perProducer)
				}
			default:
			}
			continue
		}
		p, i := v[0], v[1]
		require.Equal(t, last[p]+1, i, "producer %d out of order", p)
		last[p] = i
		seen++
	}
	assert.True(t, q.Empty())
}
