package resource

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/okian/aol-b30/internal/domain/errs"
)

const defaultFetchTimeout = 15 * time.Second

// Resolver maps any representation back to its payload: ephemeral handles
// through the arena, data URLs by decoding, network URLs by fetching.
type Resolver struct {
	arena  *Arena
	client *http.Client
}

// NewResolver creates a resolver backed by arena.
func NewResolver(arena *Arena, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		arena:  arena,
		client: &http.Client{Timeout: defaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bytes returns the payload behind href.
func (r *Resolver) Bytes(ctx context.Context, href string) ([]byte, error) {
	switch {
	case r.arena != nil && strings.HasPrefix(href, r.arena.prefix):
		res, ok := r.arena.Resolve(href)
		if !ok {
			return nil, fmt.Errorf("handle %s: %w", href, errs.ErrResourceNotFound)
		}
		return res.Raw(), nil
	case strings.HasPrefix(href, "data:"):
		_, data, err := ParseDataURL(href)
		if err != nil {
			return nil, err
		}
		return data, nil
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return r.fetch(ctx, href)
	default:
		return nil, fmt.Errorf("unsupported reference %q: %w", truncate(href), errs.ErrResourceNotFound)
	}
}

// Image returns the decoded pixels behind href. Ephemeral handles reuse the
// pixels decoded when the resource was detailed.
func (r *Resolver) Image(ctx context.Context, href string) (image.Image, error) {
	if r.arena != nil {
		if res, ok := r.arena.Resolve(href); ok && res.Image() != nil {
			return res.Image(), nil
		}
	}
	data, err := r.Bytes(ctx, href)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &errs.DecodeError{Source: truncate(href), Err: err}
	}
	return img, nil
}

func (r *Resolver) fetch(ctx context.Context, href string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", href, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch %s: %w", href, errs.ErrResourceNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", href, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", href, err)
	}
	return data, nil
}

func truncate(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
