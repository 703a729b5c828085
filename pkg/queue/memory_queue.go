package queue

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryQueue in-process queue with one buffered channel per topic
type MemoryQueue struct {
	bufferSize int

	mu     sync.RWMutex
	topics map[string]chan []byte
	closed bool
	done   chan struct{}

	published atomic.Int64
	consumed  atomic.Int64
	dropped   atomic.Int64
}

// NewMemoryQueue creates a memory queue; bufferSize bounds every topic
func NewMemoryQueue(bufferSize int) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &MemoryQueue{
		bufferSize: bufferSize,
		topics:     make(map[string]chan []byte),
		done:       make(chan struct{}),
	}
}

func (q *MemoryQueue) topic(name string) (chan []byte, error) {
	q.mu.RLock()
	ch, ok := q.topics[name]
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return nil, ErrQueueClosed
	}
	if ok {
		return ch, nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	if ch, ok = q.topics[name]; !ok {
		ch = make(chan []byte, q.bufferSize)
		q.topics[name] = ch
	}
	return ch, nil
}

// Publish enqueues message; a full topic rejects with ErrQueueFull
func (q *MemoryQueue) Publish(ctx context.Context, topic string, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := q.topic(topic)
	if err != nil {
		return err
	}

	select {
	case ch <- message:
		q.published.Add(1)
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Consume waits for the next message on topic
func (q *MemoryQueue) Consume(ctx context.Context, topic string) ([]byte, error) {
	ch, err := q.topic(topic)
	if err != nil {
		return nil, err
	}

	select {
	case message := <-ch:
		q.consumed.Add(1)
		return message, nil
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops consumers; queued messages are discarded
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

// Stats returns queue statistics
func (q *MemoryQueue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	pending := make(map[string]int, len(q.topics))
	for name, ch := range q.topics {
		pending[name] = len(ch)
	}
	return Stats{
		Published: q.published.Load(),
		Consumed:  q.consumed.Load(),
		Dropped:   q.dropped.Load(),
		Pending:   pending,
		Closed:    q.closed,
	}
}
