package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/aol-b30/internal/sample"
	"github.com/okian/aol-b30/pkg/logger"
)

// Default configuration constants.
const (
	defaultItems      = 30
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 2 * time.Minute
)

const usage = `Scoreboard sample tool
======================

Writes a sample asset directory usable by the local host and, with -url,
pushes its scoreboard to a running service and checks the rendered PNG.

Usage:
  go run ./cmd/sample-assets [options]

Options:
`

func main() {
	var (
		dir     = flag.String("dir", "./assets", "Directory to write the sample assets to")
		items   = flag.Int("items", defaultItems, "Number of plays in the scoreboard")
		seed    = flag.Uint64("seed", 1, "Generator seed")
		baseURL = flag.String("url", "", "Base URL of a running service (empty: only write assets)")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output  = flag.String("output", "", "Write the fetched PNG here")
	)
	flag.Usage = func() {
		os.Stdout.WriteString(usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &sample.Config{
		Dir:     *dir,
		Items:   *items,
		Seed:    *seed,
		BaseURL: *baseURL,
		Timeout: *timeout,
		Output:  *output,
	}
	if _, err := sample.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Sample run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
