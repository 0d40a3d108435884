package host

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/aol-b30/pkg/logger"
)

// ClientOption configures a websocket Client.
type ClientOption func(*Client)

// WithCallTimeout bounds every call. Zero disables the bound.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithVersionConstraint sets the semver constraint the host must satisfy.
func WithVersionConstraint(constraint string) ClientOption {
	return func(c *Client) {
		if constraint != "" {
			c.constraint = constraint
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithHeader adds handshake headers, e.g. an auth token.
func WithHeader(h http.Header) ClientOption {
	return func(c *Client) {
		c.header = h
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// LocalOption configures a Local host.
type LocalOption func(*Local)

// WithPreferenceFile sets where preferences are persisted.
func WithPreferenceFile(path string) LocalOption {
	return func(l *Local) {
		if path != "" {
			l.prefPath = path
		}
	}
}

// WithExportDir sets where exports are written.
func WithExportDir(dir string) LocalOption {
	return func(l *Local) {
		if dir != "" {
			l.exportDir = dir
		}
	}
}

// WithChooser sets the picker used when the context carries no choice.
func WithChooser(fn Chooser) LocalOption {
	return func(l *Local) {
		if fn != nil {
			l.chooser = fn
		}
	}
}

// WithLocalLogger sets the local host logger.
func WithLocalLogger(lg logger.Logger) LocalOption {
	return func(l *Local) {
		if lg != nil {
			l.logger = lg
		}
	}
}
