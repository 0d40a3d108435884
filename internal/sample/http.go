package sample

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/pkg/logger"
)

// Client talks to a running scoreboard service.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client for the service at base.
func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", path, err)
	}
	return data, resp.StatusCode, nil
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, status, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", status)
	}
	return nil
}

// Submit pushes a scoreboard for installation.
func (c *Client) Submit(ctx context.Context, resp host.Best30Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal scoreboard: %w", err)
	}
	body, status, err := c.do(ctx, http.MethodPost, "/scoreboard", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if status != http.StatusAccepted {
		return fmt.Errorf("submit scoreboard: status %d: %s", status, bytes.TrimSpace(body))
	}
	return nil
}

// GetState reads /state.
func (c *Client) GetState(ctx context.Context) (State, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/state", nil)
	if err != nil {
		return State{}, err
	}
	if status != http.StatusOK {
		return State{}, fmt.Errorf("state: status %d", status)
	}
	var st State
	if err := json.Unmarshal(body, &st); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// PNG fetches the rendered bitmap at scale.
func (c *Client) PNG(ctx context.Context, scale float64) ([]byte, error) {
	body, status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/scoreboard.png?scale=%g", scale), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("render png: status %d: %s", status, bytes.TrimSpace(body))
	}
	return body, nil
}
