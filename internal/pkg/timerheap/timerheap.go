// Package timerheap implements the idle-timeout timer: an indexed binary
// min-heap of (id, deadline) entries with an id→index map maintained on every
// swap. Not safe for concurrent use; the server serializes access.
package timerheap

import "time"

type entry struct {
	id       int
	deadline time.Time
	cb       func()
}

type Timer struct {
	heap []entry
	ref  map[int]int
	now  func() time.Time // overridable in tests
}

func New() *Timer {
	return &Timer{ref: make(map[int]int), now: time.Now}
}

// Add inserts a timer for id firing cb after d, or resets deadline and
// callback when id is already present.
func (t *Timer) Add(id int, d time.Duration, cb func()) {
	if i, ok := t.ref[id]; ok {
		t.heap[i].deadline = t.now().Add(d)
		t.heap[i].cb = cb
		if !t.siftDown(i, len(t.heap)) {
			t.siftUp(i)
		}
		return
	}
	t.heap = append(t.heap, entry{id: id, deadline: t.now().Add(d), cb: cb})
	t.ref[id] = len(t.heap) - 1
	t.siftUp(len(t.heap) - 1)
}

// Adjust resets the deadline of an existing timer; unknown ids are ignored.
func (t *Timer) Adjust(id int, d time.Duration) {
	i, ok := t.ref[id]
	if !ok {
		return
	}
	t.heap[i].deadline = t.now().Add(d)
	if !t.siftDown(i, len(t.heap)) {
		t.siftUp(i)
	}
}

// Cancel removes id without firing its callback.
func (t *Timer) Cancel(id int) {
	if i, ok := t.ref[id]; ok {
		t.remove(i)
	}
}

// Tick fires and removes every entry whose deadline has passed.
func (t *Timer) Tick() {
	for len(t.heap) > 0 {
		head := t.heap[0]
		if head.deadline.After(t.now()) {
			break
		}
		t.remove(0)
		if head.cb != nil {
			head.cb()
		}
	}
}

// NextDelayMS ticks expired entries and returns the delay in milliseconds to
// the earliest remaining deadline, or -1 when the heap is empty.
func (t *Timer) NextDelayMS() int {
	t.Tick()
	if len(t.heap) == 0 {
		return -1
	}
	d := t.heap[0].deadline.Sub(t.now()).Milliseconds()
	if d < 0 {
		d = 0
	}
	return int(d)
}

func (t *Timer) Len() int { return len(t.heap) }

func (t *Timer) remove(i int) {
	last := len(t.heap) - 1
	if i < last {
		t.swap(i, last)
	}
	delete(t.ref, t.heap[last].id)
	t.heap = t.heap[:last]
	if i < last {
		if !t.siftDown(i, len(t.heap)) {
			t.siftUp(i)
		}
	}
}

func (t *Timer) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !t.heap[i].deadline.Before(t.heap[parent].deadline) {
			break
		}
		t.swap(i, parent)
		i = parent
	}
}

// siftDown reports whether the entry moved.
func (t *Timer) siftDown(i, n int) bool {
	start := i
	for {
		child := 2*i + 1
		if child >= n {
			break
		}
		if child+1 < n && t.heap[child+1].deadline.Before(t.heap[child].deadline) {
			child++
		}
		if !t.heap[child].deadline.Before(t.heap[i].deadline) {
			break
		}
		t.swap(i, child)
		i = child
	}
	return i > start
}

func (t *Timer) swap(i, j int) {
	t.heap[i], t.heap[j] = t.heap[j], t.heap[i]
	t.ref[t.heap[i].id] = i
	t.ref[t.heap[j].id] = j
}
