package sample

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/pkg/logger"
)

// Polling constants.
const (
	pollInterval = 100 * time.Millisecond
	renderScale  = 1
)

// Run writes a sample asset directory and, when cfg.BaseURL is set, pushes
// the scoreboard to a running service and checks the rendered bitmap.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	start := time.Now()
	log := logger.OrNop().Named("sample")

	resp := Scoreboard(cfg.Items, cfg.Seed)
	files, err := Files(resp)
	if err != nil {
		return Report{}, err
	}
	if err := WriteAssets(cfg.Dir, resp); err != nil {
		return Report{}, fmt.Errorf("write assets: %w", err)
	}
	report := Report{Assets: len(files), Items: len(resp.B30)}
	log.Info(ctx, "sample assets written",
		logger.String("dir", cfg.Dir),
		logger.Int("assets", report.Assets),
		logger.Int("items", report.Items))

	if cfg.BaseURL == "" {
		report.Duration = time.Since(start)
		return report, nil
	}

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}
	before, err := client.GetState(ctx)
	if err != nil {
		return report, err
	}
	if err := client.Submit(ctx, resp); err != nil {
		return report, err
	}
	if err := waitInstalled(ctx, client, before, min(len(resp.B30), model.MaxItems)); err != nil {
		return report, err
	}

	data, err := client.PNG(ctx, renderScale)
	if err != nil {
		return report, err
	}
	cfgPNG, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return report, fmt.Errorf("decode rendered png: %w", err)
	}
	wantW, wantH := int(model.Canvas.Width)*renderScale, int(model.Canvas.Height)*renderScale
	if cfgPNG.Width != wantW || cfgPNG.Height != wantH {
		return report, fmt.Errorf("rendered %dx%d, want %dx%d", cfgPNG.Width, cfgPNG.Height, wantW, wantH)
	}
	report.Width, report.Height, report.Bytes = cfgPNG.Width, cfgPNG.Height, len(data)

	if cfg.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output), directoryPermission); err != nil {
			return report, fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(cfg.Output, data, filePermission); err != nil {
			return report, fmt.Errorf("write %s: %w", cfg.Output, err)
		}
	}

	report.Duration = time.Since(start)
	log.Info(ctx, "sample run completed",
		logger.Int("width", report.Width),
		logger.Int("height", report.Height),
		logger.Int("bytes", report.Bytes),
		logger.Duration("duration", report.Duration))
	return report, nil
}

// waitInstalled polls until the push was installed, or was skipped because
// the service already holds the same scoreboard.
func waitInstalled(ctx context.Context, client *Client, before State, items int) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		st, err := client.GetState(ctx)
		if err != nil {
			return err
		}
		if st.Processed > before.Processed || st.Duplicates > before.Duplicates {
			if st.Items != items {
				return fmt.Errorf("installed %d items, want %d", st.Items, items)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for install: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
