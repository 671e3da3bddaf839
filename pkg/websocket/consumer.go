package websocket

import (
	"sync"
	"sync/atomic"
)

// Consumer receives routed frames from a channel queue.
type Consumer struct {
	queue   *FrameQueue
	dropped atomic.Uint64
}

// NewConsumer creates a consumer with a bounded queue.
func NewConsumer(capacity int, policy OverflowPolicy) *Consumer {
	return &Consumer{
		queue: NewFrameQueue(capacity, policy),
	}
}

// Next blocks until a frame is available or the queue is closed.
func (c *Consumer) Next() (*Frame, bool) {
	if c == nil || c.queue == nil {
		return nil, false
	}
	return c.queue.Pop()
}

// Close closes the consumer queue and drops pending frames.
func (c *Consumer) Close() {
	if c == nil || c.queue == nil {
		return
	}
	c.queue.Close()
}

// Policy returns the overflow policy of the queue.
func (c *Consumer) Policy() OverflowPolicy {
	if c == nil || c.queue == nil {
		return OverflowDropNewest
	}
	return c.queue.policy
}

// Len returns the number of queued frames.
func (c *Consumer) Len() int {
	if c == nil || c.queue == nil {
		return 0
	}
	return c.queue.Len()
}

// Dropped returns how many frames the overflow policy discarded.
func (c *Consumer) Dropped() uint64 {
	if c == nil {
		return 0
	}
	return c.dropped.Load() + c.queue.Evicted()
}

func (c *Consumer) enqueue(frame *Frame) bool {
	if c == nil || c.queue == nil {
		return false
	}
	if !c.queue.Push(frame) {
		c.dropped.Add(1)
		return false
	}
	return true
}

// FrameQueue is a bounded ring buffer for frames.
type FrameQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      []*Frame
	head     int
	tail     int
	size     int
	closed   bool
	policy   OverflowPolicy
	evicted  uint64
}

// NewFrameQueue creates a bounded ring buffer.
func NewFrameQueue(capacity int, policy OverflowPolicy) *FrameQueue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &FrameQueue{
		buf:    make([]*Frame, capacity),
		policy: policy,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a frame according to the overflow policy.
func (q *FrameQueue) Push(frame *Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return false
		}
		if q.size < len(q.buf) {
			q.buf[q.tail] = frame
			q.tail = (q.tail + 1) % len(q.buf)
			q.size++
			q.notEmpty.Signal()
			return true
		}
		switch q.policy {
		case OverflowBlock:
			q.notFull.Wait()
		case OverflowDropOldest:
			q.buf[q.head] = nil
			q.head = (q.head + 1) % len(q.buf)
			q.size--
			q.evicted++
		default:
			return false
		}
	}
}

// Pop dequeues the next frame, blocking until available or closed.
func (q *FrameQueue) Pop() (*Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.size > 0 {
			frame := q.buf[q.head]
			q.buf[q.head] = nil
			q.head = (q.head + 1) % len(q.buf)
			q.size--
			q.notFull.Signal()
			return frame, true
		}
		if q.closed {
			return nil, false
		}
		q.notEmpty.Wait()
	}
}

// Close closes the queue and drops pending frames.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	clear(q.buf)
	q.size = 0
	q.head = 0
	q.tail = 0
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
	q.mu.Unlock()
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	size := q.size
	q.mu.Unlock()
	return size
}

// Evicted returns how many frames OverflowDropOldest pushed out.
func (q *FrameQueue) Evicted() uint64 {
	q.mu.Lock()
	n := q.evicted
	q.mu.Unlock()
	return n
}
