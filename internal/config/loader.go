package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/go-homedir"
)

// Scale bounds.
const (
	minScale = 1
	maxScale = 4
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if B30_CONFIG is set
//  3. env (prefix B30_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("B30_CONFIG"); path != "" {
		path, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Map env keys like B30_QUEUE_SIZE -> queue_size (flat keys).
	envProvider := env.Provider("B30_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "b30_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.AssetDir, &c.PreferenceFile, &c.ExportDir} {
		v, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		*p = v
	}
	if c.ScoreboardFile != "" && !filepath.IsAbs(c.ScoreboardFile) && !strings.HasPrefix(c.ScoreboardFile, "~") {
		c.ScoreboardFile = filepath.Join(c.AssetDir, c.ScoreboardFile)
	}
	v, err := homedir.Expand(c.ScoreboardFile)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.ScoreboardFile = v
	return nil
}

// Validate reports the first setting outside its range.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DefaultScale < minScale || c.DefaultScale > maxScale:
		return fmt.Errorf("%w: default_scale %v outside [%d, %d]", ErrInvalidConfig, c.DefaultScale, minScale, maxScale)
	case c.DecodeConcurrency <= 0:
		return fmt.Errorf("%w: decode_concurrency must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.DedupeWindow <= 0:
		return fmt.Errorf("%w: dedupe_window must be positive", ErrInvalidConfig)
	case c.HostCallTimeoutMS <= 0:
		return fmt.Errorf("%w: host_call_timeout_ms must be positive", ErrInvalidConfig)
	case !strings.HasPrefix(c.BlobPrefix, "/") || !strings.HasSuffix(c.BlobPrefix, "/"):
		return fmt.Errorf("%w: blob_prefix %q must start and end with /", ErrInvalidConfig, c.BlobPrefix)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
