// Package dedupe suppresses repeated scoreboard pushes. A push is keyed by
// its content, so a host that resends the same scoreboard does not trigger
// another install.
package dedupe

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// pushNamespace scopes content keys.
var pushNamespace = uuid.MustParse("6f1c2a4e-8b1d-5c3e-9a7f-2d4b6e8c0a13")

// Key derives the content key of a serialised push.
func Key(payload []byte) string {
	return uuid.NewSHA1(pushNamespace, payload).String()
}

// Deduper records recent push keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the same push can be retried, e.g. after its
	// install failed.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// window keeps the last maxSize keys; the oldest is evicted first.
type window struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	maxSize int
}

// NewInMemoryDeduper creates a deduper remembering the most recent pushes.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &window{maxSize: 1}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.maxSize)
	return d
}

func (d *window) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return true
	}
	if len(d.order) >= d.maxSize {
		delete(d.seen, d.order[0])
		d.order = d.order[1:]
	}
	d.seen[key] = struct{}{}
	d.order = append(d.order, key)
	return false
}

func (d *window) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; !ok {
		return
	}
	delete(d.seen, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *window) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.order))
}
