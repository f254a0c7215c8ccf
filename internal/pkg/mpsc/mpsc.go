// Package mpsc provides an unbounded lock-free multi-producer single-consumer
// queue. Producers CAS onto the tail and never block; the sole consumer walks
// the sentinel's next pointer. Publication order is release on the next link,
// acquire on the read side (atomic.Pointer gives both).
package mpsc

import "sync/atomic"

type node[T any] struct {
	next atomic.Pointer[node[T]]
	val  T
}

type Queue[T any] struct {
	head atomic.Pointer[node[T]] // sentinel, owned by the consumer
	tail atomic.Pointer[node[T]]
}

func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	sentinel := &node[T]{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue is safe to call from any goroutine.
func (q *Queue[T]) Enqueue(v T) {
	n := &node[T]{val: v}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(tail, n)
				return
			}
		} else {
			// Help a stalled producer swing the tail forward.
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// Dequeue must only be called by the single consumer.
func (q *Queue[T]) Dequeue() (T, bool) {
	head := q.head.Load()
	next := head.next.Load()
	if next == nil {
		var zero T
		return zero, false
	}
	v := next.val
	var zero T
	next.val = zero // drop the reference; next becomes the new sentinel
	q.head.Store(next)
	return v, true
}

// DequeueBulk appends up to max items to dst in queue order and returns the
// extended slice. Consumer-only, like Dequeue.
func (q *Queue[T]) DequeueBulk(dst []T, max int) []T {
	for i := 0; i < max; i++ {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		dst = append(dst, v)
	}
	return dst
}

func (q *Queue[T]) Empty() bool {
	return q.head.Load().next.Load() == nil
}
