package engine

import "sync/atomic"

// Queue is a bounded single-producer, single-consumer ring of commands. Push
// and Pop never block or allocate. One goroutine may push while another pops.
type Queue struct {
	buf  []Command
	mask uint64
	// head is the next slot to read, owned by the consumer.
	head atomic.Uint64
	// tail is the next slot to write, owned by the producer.
	tail atomic.Uint64
}

// NewQueue returns a queue holding at least capacity commands; the size is
// rounded up to a power of two.
func NewQueue(capacity int) *Queue {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Queue{buf: make([]Command, size), mask: uint64(size - 1)}
}

// Push appends c and reports false when the queue is full.
func (q *Queue) Push(c Command) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == uint64(len(q.buf)) {
		return false
	}
	q.buf[tail&q.mask] = c
	q.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest command.
func (q *Queue) Pop() (Command, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Command{}, false
	}
	c := q.buf[head&q.mask]
	q.head.Store(head + 1)
	return c, true
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	head := q.head.Load()
	return int(q.tail.Load() - head)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return len(q.buf) }
