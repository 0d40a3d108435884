// Package worker installs queued scoreboards one at a time.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/adapters/mq/queue"
	"github.com/okian/aol-b30/pkg/logger"
)

// Installer replaces the displayed scoreboard.
type Installer interface {
	Install(ctx context.Context, resp host.Best30Response) error
}

// Queue defines how the dispatcher receives notifications.
type Queue interface {
	Dequeue() <-chan queue.Notification
}

// Stats is a snapshot of dispatcher progress.
type Stats struct {
	Processed int64
	Failed    int64
	LastID    string
	LastError string
	LastAt    time.Time
}

// Dispatcher drains the queue on a single goroutine, so scoreboards are
// installed strictly in arrival order and never overlap.
type Dispatcher struct {
	queue     Queue
	installer Installer
	name      string

	processed atomic.Int64
	failed    atomic.Int64

	mu      sync.Mutex
	lastID  string
	lastErr string
	lastAt  time.Time

	shutdown  chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	logger logger.Logger
}

// NewDispatcher creates a dispatcher reading from q.
func NewDispatcher(q Queue, installer Installer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		queue:     q,
		installer: installer,
		name:      "dispatcher",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.OrNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named(d.name)
	return d
}

// Start launches the dispatch loop. Later calls are no-ops.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() { go d.Run(ctx) })
}

// Run processes notifications until ctx ends, Shutdown is called or the
// queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	items := d.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case n, ok := <-items:
			if !ok {
				return
			}
			if err := d.process(ctx, n); err != nil {
				d.logger.Error(ctx, "scoreboard install failed",
					logger.String("notification", n.ID.String()),
					logger.Error(err),
				)
			}
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, n queue.Notification) error { //nolint:gocritic // hugeParam: by value off the channel
	start := time.Now()
	err := d.installer.Install(ctx, n.Payload)

	d.mu.Lock()
	d.lastID = n.ID.String()
	d.lastAt = time.Now()
	d.lastErr = ""
	if err != nil {
		d.lastErr = err.Error()
	}
	d.mu.Unlock()

	d.processed.Add(1)
	if err != nil {
		d.failed.Add(1)
		return fmt.Errorf("install %s: %w", n.ID, err)
	}
	d.logger.Debug(ctx, "scoreboard installed",
		logger.String("notification", n.ID.String()),
		logger.Int("entries", len(n.Payload.B30)),
		logger.Duration("waited", start.Sub(n.Received)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// Stats reports dispatcher progress.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Processed: d.processed.Load(),
		Failed:    d.failed.Load(),
		LastID:    d.lastID,
		LastError: d.lastErr,
		LastAt:    d.lastAt,
	}
}

// Done is closed when the loop has exited.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Shutdown stops the loop and waits for the notification in flight.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.shutdown) })
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
