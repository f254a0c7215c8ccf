package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsAllTasks(t *testing.T) {
	p := New(4, 16)
	var counter atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 1_000; i++ {
		wg.Add(1)
		require.True(t, p.Submit(func() {
			counter.Add(1)
			wg.Done()
		}))
	}
	wg.Wait()
	assert.Equal(t, int64(1_000), counter.Load())
	p.Stop()
}

func TestStopDrainsInFlight(t *testing.T) {
	p := New(2, 64)
	var done atomic.Int64
	for i := 0; i < 50; i++ {
		p.Submit(func() { done.Add(1) })
	}
	p.Stop()
	assert.Equal(t, int64(50), done.Load(), "queued tasks must run to completion")
	assert.False(t, p.Submit(func() {}), "submit after stop must fail")
}

func TestStopIdempotent(t *testing.T) {
	p := New(1, 1)
	p.Stop()
	p.Stop()
}
