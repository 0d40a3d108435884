// Package resource wraps raw image and font payloads with the three
// addressable representations a render can bind to: an ephemeral handle
// served by this process, an embedded data payload, and the network URL the
// payload came from.
package resource

import (
	"encoding/base64"
	"fmt"
	"image"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/geom"
)

// Kind selects one representation of a resource.
type Kind int

const (
	// Ephemeral is a process-local handle, valid until its scope is released.
	Ephemeral Kind = iota
	// Embedded is a self-contained data URL.
	Embedded
	// Network is the origin URL of the payload.
	Network
)

func (k Kind) String() string {
	switch k {
	case Ephemeral:
		return "ephemeral"
	case Embedded:
		return "embedded"
	case Network:
		return "network"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the names produced by String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ephemeral", "blob":
		return Ephemeral, nil
	case "embedded", "data", "inline":
		return Embedded, nil
	case "network", "dist", "linked":
		return Network, nil
	default:
		return 0, fmt.Errorf("representation %q: %w", s, errs.ErrInvalidArgument)
	}
}

// File is a raw payload as delivered by the host.
type File struct {
	// Name is informational, usually the last path element.
	Name string `json:"name,omitempty"`
	// URL is where the payload came from; empty when unknown.
	URL string `json:"url,omitempty"`
	// Type is the MIME type the host reported, if any.
	Type string `json:"type,omitempty"`
	Data []byte `json:"data"`
}

// Resource is a detailed payload. All representations derive from Raw.
type Resource struct {
	id     uuid.UUID
	file   File
	mime   string
	size   geom.Vector2D
	img    image.Image
	handle string

	released atomic.Bool

	embedOnce sync.Once
	embedded  string
}

func newResource(f File, prefix string) *Resource {
	id := uuid.New()
	return &Resource{
		id:     id,
		file:   f,
		mime:   sniff(f),
		handle: prefix + id.String(),
	}
}

// ID identifies the resource inside its arena.
func (r *Resource) ID() uuid.UUID { return r.id }

// Raw is the canonical payload.
func (r *Resource) Raw() []byte { return r.file.Data }

// Name reports the file name given by the host.
func (r *Resource) Name() string { return r.file.Name }

// MIME reports the sniffed content type.
func (r *Resource) MIME() string { return r.mime }

// Size reports the pixel dimensions; zero for fonts.
func (r *Resource) Size() geom.Vector2D { return r.size }

// Image returns the decoded pixels; nil for fonts.
func (r *Resource) Image() image.Image { return r.img }

// Released reports whether the owning scope was released.
func (r *Resource) Released() bool { return r.released.Load() }

// Ephemeral returns the process-local handle.
func (r *Resource) Ephemeral() string { return r.handle }

// Embedded returns the data URL of the payload, built on first use.
func (r *Resource) Embedded() string {
	r.embedOnce.Do(func() {
		r.embedded = DataURL(r.mime, r.file.Data)
	})
	return r.embedded
}

// Network returns the origin URL when it is an absolute http(s) URL.
func (r *Resource) Network() (string, bool) {
	u, err := url.Parse(r.file.URL)
	if err != nil || !u.IsAbs() {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

// URL returns the representation selected by kind.
func (r *Resource) URL(kind Kind) (string, error) {
	switch kind {
	case Ephemeral:
		if r.Released() {
			return "", fmt.Errorf("handle %s was released: %w", r.handle, errs.ErrResourceNotFound)
		}
		return r.handle, nil
	case Embedded:
		return r.Embedded(), nil
	case Network:
		u, ok := r.Network()
		if !ok {
			return "", fmt.Errorf("%q has no network reference: %w", r.file.Name, errs.ErrResourceNotFound)
		}
		return u, nil
	default:
		return "", fmt.Errorf("representation %v: %w", kind, errs.ErrInvalidArgument)
	}
}

func sniff(f File) string {
	if kind, err := filetype.Match(f.Data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if f.Type != "" {
		return f.Type
	}
	return "application/octet-stream"
}

// DataURL encodes data as a base64 data URL.
func DataURL(mime string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// ParseDataURL decodes a data URL produced by DataURL or by a browser.
func ParseDataURL(s string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url: %w", errs.ErrInvalidArgument)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data url without payload: %w", errs.ErrInvalidArgument)
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("data url payload: %w", err)
		}
		return mime, []byte(text), nil
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data url payload: %w", err)
	}
	return mime, data, nil
}
