package resource

import (
	"net/http"

	"github.com/okian/aol-b30/pkg/logger"
)

// Option applies a configuration option to the Arena.
type Option func(*Arena)

// WithPrefix sets the path prefix of ephemeral handles.
func WithPrefix(prefix string) Option {
	return func(a *Arena) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// WithConcurrency bounds the decodes DetailAll runs at once.
func WithConcurrency(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Arena) {
		if l != nil {
			a.logger = l
		}
	}
}

// ResolverOption applies a configuration option to the Resolver.
type ResolverOption func(*Resolver)

// WithHTTPClient sets the client used for network references.
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.client = c
		}
	}
}
