// Package queue buffers scoreboard pushes between the host connection and
// the dispatcher that installs them.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/pkg/metrics"
)

const defaultQueueCapacity = 16

// Notification is one scoreboard push waiting to be installed.
type Notification struct {
	ID       uuid.UUID
	Received time.Time
	Payload  host.Best30Response
}

// NewNotification stamps a payload with an id and its arrival time.
func NewNotification(payload host.Best30Response) Notification {
	return Notification{ID: uuid.New(), Received: time.Now(), Payload: payload}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notification. It returns false when the queue is full
	// or closed.
	Enqueue(ctx context.Context, n Notification) bool

	// Dequeue returns the channel notifications are delivered on, in
	// arrival order. It is closed once the queue is closed and drained.
	Dequeue() <-chan Notification

	Len() int

	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Notification
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Notification, q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds n to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notification) bool { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		metrics.RecordQueueRejected()
		return false
	}
	select {
	case q.items <- n:
		metrics.UpdateQueueSize(len(q.items))
		return true
	default:
		metrics.RecordQueueRejected()
		return false
	}
}

// Dequeue returns the delivery channel.
func (q *InMemoryQueue) Dequeue() <-chan Notification {
	return q.items
}

// Len returns the current number of queued notifications.
func (q *InMemoryQueue) Len() int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting notifications. Queued ones stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
