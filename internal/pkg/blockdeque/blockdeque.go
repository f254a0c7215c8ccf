// Package blockdeque implements the bounded blocking FIFO feeding the async
// log writer: one mutex, two condition variables, close-aware on both ends.
package blockdeque

import "sync"

type Deque[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []T // ring buffer
	head     int
	size     int
	closed   bool
}

func New[T any](capacity int) *Deque[T] {
	if capacity <= 0 {
		capacity = 1
	}
	d := &Deque[T]{items: make([]T, capacity)}
	d.notEmpty = sync.NewCond(&d.mu)
	d.notFull = sync.NewCond(&d.mu)
	return d
}

// PushBack blocks while the deque is full. Returns false once closed.
func (d *Deque[T]) PushBack(v T) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.size == len(d.items) && !d.closed {
		d.notFull.Wait()
	}
	if d.closed {
		return false
	}
	d.items[(d.head+d.size)%len(d.items)] = v
	d.size++
	d.notEmpty.Signal()
	return true
}

// PopFront blocks while the deque is empty. Returns false when the deque was
// closed and no items remain; items pushed before Close still drain.
func (d *Deque[T]) PopFront() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.size == 0 && !d.closed {
		d.notEmpty.Wait()
	}
	if d.size == 0 {
		var zero T
		return zero, false
	}
	v := d.items[d.head]
	var zero T
	d.items[d.head] = zero
	d.head = (d.head + 1) % len(d.items)
	d.size--
	d.notFull.Signal()
	return v, true
}

// Flush kicks the consumer awake without enqueuing anything.
func (d *Deque[T]) Flush() {
	d.mu.Lock()
	d.notEmpty.Signal()
	d.mu.Unlock()
}

// Close wakes every waiter on both conditions. Idempotent.
func (d *Deque[T]) Close() {
	d.mu.Lock()
	d.closed = true
	d.notEmpty.Broadcast()
	d.notFull.Broadcast()
	d.mu.Unlock()
}

func (d *Deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

func (d *Deque[T]) Cap() int { return len(d.items) }
