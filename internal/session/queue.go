package session

import (
	"sync"
)

// frameQueue decouples the transport read loop from frame dispatch: the
// read loop pushes, a single dispatch goroutine pops. The ring grows
// (doubling at 70% occupancy) instead of blocking the producer, so a slow
// event handler can never stall the receive loop.
type frameQueue[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalPushed int64
	totalPopped int64
	resizeCount int
}

// newFrameQueue creates a queue with the given initial capacity.
func newFrameQueue[T any](initialCapacity int) *frameQueue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &frameQueue[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends an item, growing the ring when needed.
// Returns false if the queue is closed.
func (q *frameQueue[T]) push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalPushed++

	q.cond.Signal()
	return true
}

// pop removes and returns the oldest item, blocking until one is
// available or the queue is closed. Returns false once closed and empty.
func (q *frameQueue[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.count == 0 && q.closed {
		var zero T
		return zero, false
	}

	return q.takeLocked(), true
}

// tryPop removes the oldest item without blocking.
func (q *frameQueue[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.takeLocked(), true
}

// takeLocked removes the head item. Must be called with the lock held and
// count > 0.
func (q *frameQueue[T]) takeLocked() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // release the reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalPopped++
	return item
}

// close marks the queue closed. Pending items remain poppable; push
// returns false afterwards and blocked poppers wake up.
func (q *frameQueue[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// length returns the number of queued items.
func (q *frameQueue[T]) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// capacityNow returns the current ring capacity.
func (q *frameQueue[T]) capacityNow() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// QueueStats describes the dispatch queue for Manager.Stats.
type QueueStats struct {
	Count       int
	Capacity    int
	TotalPushed int64
	TotalPopped int64
	ResizeCount int
}

func (q *frameQueue[T]) stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:       q.count,
		Capacity:    q.capacity,
		TotalPushed: q.totalPushed,
		TotalPopped: q.totalPopped,
		ResizeCount: q.resizeCount,
	}
}

// grow doubles the ring capacity. Must be called with the lock held.
func (q *frameQueue[T]) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]T, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
	q.resizeCount++
}
