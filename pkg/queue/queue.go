package queue

import (
	"context"
	"errors"
)

// MessageQueue is a topic-addressed FIFO of opaque payloads
type MessageQueue interface {
	// Publish enqueues message on topic without blocking
	Publish(ctx context.Context, topic string, message []byte) error
	// Consume blocks until a message is available on topic or ctx is done
	Consume(ctx context.Context, topic string) ([]byte, error)
	Close() error
}

// Stats represents queue statistics
type Stats struct {
	Published int64          `json:"published"`
	Consumed  int64          `json:"consumed"`
	Dropped   int64          `json:"dropped"`
	Pending   map[string]int `json:"pending"`
	Closed    bool           `json:"closed"`
}

// Common errors
var (
	ErrQueueClosed = errors.New("queue is closed")
	ErrQueueFull   = errors.New("queue is full")
)
