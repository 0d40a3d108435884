package resource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // register the webp decoder for image.Decode
	"golang.org/x/sync/errgroup"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/geom"
	"github.com/okian/aol-b30/pkg/logger"
	"github.com/okian/aol-b30/pkg/metrics"
)

const (
	defaultPrefix      = "/blob/"
	defaultConcurrency = 8
)

// Arena owns every live ephemeral handle, keyed by resource id. Handles are
// registered by a Scope and released when that scope is released.
type Arena struct {
	mu   sync.RWMutex
	live map[uuid.UUID]*Resource

	prefix      string
	concurrency int
	logger      logger.Logger
}

// NewArena creates an empty arena.
func NewArena(opts ...Option) *Arena {
	a := &Arena{
		live:        make(map[uuid.UUID]*Resource),
		prefix:      defaultPrefix,
		concurrency: defaultConcurrency,
		logger:      logger.OrNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prefix reports the path prefix of ephemeral handles.
func (a *Arena) Prefix() string { return a.prefix }

// Scope opens a new ownership scope.
func (a *Arena) Scope() *Scope {
	return &Scope{arena: a}
}

// Lookup returns a live resource by id.
func (a *Arena) Lookup(id uuid.UUID) (*Resource, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.live[id]
	return r, ok
}

// Resolve returns the live resource behind an ephemeral handle.
func (a *Arena) Resolve(handle string) (*Resource, bool) {
	raw, ok := strings.CutPrefix(handle, a.prefix)
	if !ok {
		return nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return a.Lookup(id)
}

// Len reports the number of live handles.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.live)
}

func (a *Arena) register(r *Resource) {
	a.mu.Lock()
	a.live[r.id] = r
	n := len(a.live)
	a.mu.Unlock()
	metrics.UpdateLiveHandles(n)
}

func (a *Arena) release(ids []uuid.UUID) {
	a.mu.Lock()
	for _, id := range ids {
		if r, ok := a.live[id]; ok {
			r.released.Store(true)
			delete(a.live, id)
		}
	}
	n := len(a.live)
	a.mu.Unlock()
	metrics.UpdateLiveHandles(n)
}

// Scope groups the handles created for one owner. Release frees all of
// them exactly once; resources detailed after release are rejected.
type Scope struct {
	arena *Arena

	mu     sync.Mutex
	ids    []uuid.UUID
	closed bool
}

var errScopeReleased = errors.New("scope released")

func (s *Scope) adopt(r *Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errScopeReleased
	}
	s.ids = append(s.ids, r.id)
	s.arena.register(r)
	return nil
}

// Release frees every handle of the scope. Calling it again is a no-op.
func (s *Scope) Release() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	ids := s.ids
	s.ids = nil
	s.mu.Unlock()

	s.arena.release(ids)
}

// Len reports the number of handles owned by the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Detail decodes an image payload once, records its pixel size and
// registers its ephemeral handle.
func (s *Scope) Detail(ctx context.Context, f File) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.Data) == 0 {
		metrics.RecordDecodeError()
		return nil, &errs.DecodeError{Source: source(f), Err: errors.New("empty payload")}
	}
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		metrics.RecordDecodeError()
		return nil, &errs.DecodeError{Source: source(f), Err: err}
	}
	r := newResource(f, s.arena.prefix)
	r.img = img
	b := img.Bounds()
	r.size = geom.Vector2D{X: float64(b.Dx()), Y: float64(b.Dy())}
	if err := s.adopt(r); err != nil {
		return nil, err
	}
	metrics.RecordResourceDecoded("image")
	return r, nil
}

// DetailAll details a batch concurrently. The result has the order of
// files; an item that fails leaves a nil slot and contributes to the joined
// error without stopping its siblings.
func (s *Scope) DetailAll(ctx context.Context, files []File) ([]*Resource, error) {
	out := make([]*Resource, len(files))
	failures := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(s.arena.concurrency)
	for i := range files {
		g.Go(func() error {
			r, err := s.Detail(ctx, files[i])
			if err != nil {
				failures[i] = fmt.Errorf("item %d: %w", i, err)
				return nil
			}
			out[i] = r
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(failures...)
	if err != nil {
		s.arena.logger.Warn(ctx, "batch decode had failures",
			logger.Int("items", len(files)),
			logger.Error(err),
		)
	}
	return out, err
}

// Font wraps a font payload. Fonts are never decoded here; they only need
// their representations.
func (s *Scope) Font(f File) (*Resource, error) {
	if len(f.Data) == 0 {
		metrics.RecordDecodeError()
		return nil, &errs.DecodeError{Source: source(f), Err: errors.New("empty font payload")}
	}
	r := newResource(f, s.arena.prefix)
	if err := s.adopt(r); err != nil {
		return nil, err
	}
	metrics.RecordResourceDecoded("font")
	return r, nil
}

func source(f File) string {
	if f.URL != "" {
		return f.URL
	}
	if f.Name != "" {
		return f.Name
	}
	return "payload"
}
