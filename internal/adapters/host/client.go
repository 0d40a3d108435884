package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gorilla/websocket"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
	"github.com/okian/aol-b30/pkg/logger"
	"github.com/okian/aol-b30/pkg/metrics"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultConstraint  = "^1.0.0"

	methodHello     = "hello"
	methodSetBest30 = "setB30"
)

// ScoreboardHandler receives scoreboards pushed by the host.
type ScoreboardHandler func(ctx context.Context, resp Best30Response) error

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type message struct {
	ID     uint64          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

// Client is an API backed by a JSON RPC websocket connection. Requests are
// {id, method, params} with positional params; the host answers
// {id, result|error} and pushes scoreboards as setB30 calls.
type Client struct {
	dialer     *websocket.Dialer
	header     http.Header
	conn       *websocket.Conn
	logger     logger.Logger
	timeout    time.Duration
	constraint string
	version    *semver.Version

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan message
	handler ScoreboardHandler
	backlog *Best30Response
	err     error

	seq       atomic.Uint64
	closed    chan struct{}
	closeOnce sync.Once
}

var _ API = (*Client)(nil)

// Dial connects to the host and checks its API version.
func Dial(ctx context.Context, url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		dialer:     websocket.DefaultDialer,
		logger:     logger.OrNop().Named("host"),
		timeout:    defaultCallTimeout,
		constraint: defaultConstraint,
		pending:    make(map[uint64]chan message),
		closed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	constraint, err := semver.NewConstraint(c.constraint)
	if err != nil {
		return nil, fmt.Errorf("version constraint %q: %w", c.constraint, errs.ErrInvalidArgument)
	}

	conn, resp, err := c.dialer.DialContext(ctx, url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial host %s: %w", url, err)
	}
	c.conn = conn
	go c.readLoop()

	if err := c.hello(ctx, constraint); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.logger.Info(ctx, "connected to host",
		logger.String("url", url),
		logger.String("version", c.version.String()),
	)
	return c, nil
}

// Version is the host API version announced in the handshake.
func (c *Client) Version() *semver.Version { return c.version }

func (c *Client) hello(ctx context.Context, constraint *semver.Constraints) error {
	var res struct {
		Version string `json:"version"`
	}
	if err := c.call(ctx, methodHello, &res); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	v, err := semver.NewVersion(res.Version)
	if err != nil {
		return fmt.Errorf("host version %q: %w", res.Version, ErrIncompatibleHost)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("host version %s does not satisfy %s: %w", v, c.constraint, ErrIncompatibleHost)
	}
	c.version = v
	return nil
}

// OnScoreboard installs the push handler. A scoreboard pushed before any
// handler was installed is delivered immediately; older ones are dropped.
func (c *Client) OnScoreboard(h ScoreboardHandler) {
	c.mu.Lock()
	c.handler = h
	backlog := c.backlog
	c.backlog = nil
	c.mu.Unlock()
	if backlog != nil && h != nil {
		if err := h(context.Background(), *backlog); err != nil {
			c.logger.Warn(context.Background(), "early scoreboard rejected", logger.Error(err))
		}
	}
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.closed }

// Err reports why the connection closed.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears the connection down and fails every pending call.
func (c *Client) Close() error {
	c.fail(ErrClosed)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Client) fail(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.closed)
	})
}

func (c *Client) readLoop() {
	ctx := context.Background()
	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrClosed
			}
			c.fail(err)
			return
		}
		switch {
		case msg.Method != "":
			c.serve(ctx, msg)
		case msg.ID != 0:
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if !ok {
				c.logger.Debug(ctx, "ignoring reply to unknown call", logger.String("id", strconv.FormatUint(msg.ID, 10)))
				continue
			}
			ch <- msg
		default:
			c.logger.Debug(ctx, "ignoring host message without id or method")
		}
	}
}

func (c *Client) serve(ctx context.Context, msg message) {
	var err error
	switch msg.Method {
	case methodSetBest30:
		err = c.deliver(ctx, msg.Params)
	default:
		err = fmt.Errorf("unknown method %q: %w", msg.Method, errs.ErrInvalidArgument)
	}
	if err != nil {
		c.logger.Warn(ctx, "host request failed", logger.String("method", msg.Method), logger.Error(err))
	}
	if msg.ID == 0 {
		return
	}
	reply := message{ID: msg.ID, Result: json.RawMessage("null")}
	if err != nil {
		reply = message{ID: msg.ID, Error: &rpcError{Code: 1, Message: err.Error()}}
	}
	if werr := c.write(reply); werr != nil {
		c.logger.Warn(ctx, "reply to host failed", logger.Error(werr))
	}
}

func (c *Client) deliver(ctx context.Context, params json.RawMessage) error {
	var resp Best30Response
	if err := decodeArg(params, &resp); err != nil {
		return fmt.Errorf("setB30 params: %w", err)
	}
	c.mu.Lock()
	h := c.handler
	if h == nil {
		c.backlog = &resp
	}
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	return h(ctx, resp)
}

// decodeArg accepts a bare object or a one-element positional array.
func decodeArg(raw json.RawMessage, v any) error {
	var args []json.RawMessage
	if err := json.Unmarshal(raw, &args); err == nil {
		if len(args) == 0 {
			return fmt.Errorf("missing argument: %w", errs.ErrInvalidArgument)
		}
		raw = args[0]
	}
	return json.Unmarshal(raw, v)
}

func (c *Client) write(msg message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) call(ctx context.Context, method string, result any, args ...any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordHostCall(method, time.Since(start), err) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if args == nil {
		args = []any{}
	}
	params, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%s params: %w", method, err)
	}

	id := c.seq.Add(1)
	ch := make(chan message, 1)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ErrClosed)
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(message{ID: id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case msg := <-ch:
		if msg.Error != nil {
			return &RemoteError{Method: method, Code: msg.Error.Code, Message: msg.Error.Message}
		}
		if result == nil || len(msg.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(msg.Result, result); err != nil {
			return fmt.Errorf("%s result: %w", method, err)
		}
		return nil
	case <-c.closed:
		return fmt.Errorf("%s: %w", method, errors.Join(ErrClosed, c.Err()))
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// GetPreference returns the stored preference; unset fields are zero.
func (c *Client) GetPreference(ctx context.Context) (model.UserPreference, error) {
	var p *model.UserPreference
	if err := c.call(ctx, "getPreference", &p); err != nil {
		return model.UserPreference{}, err
	}
	if p == nil {
		return model.UserPreference{}, nil
	}
	return *p, nil
}

func (c *Client) SavePreference(ctx context.Context, p model.UserPreference) error {
	return c.call(ctx, "savePreference", nil, p)
}

func (c *Client) GetImages(ctx context.Context, urls []string) ([]resource.File, error) {
	var files []resource.File
	if err := c.call(ctx, "getImages", &files, urls); err != nil {
		return nil, err
	}
	if len(files) != len(urls) {
		return nil, fmt.Errorf("getImages returned %d files for %d urls: %w", len(files), len(urls), errs.ErrResourceNotFound)
	}
	for i := range files {
		if files[i].URL == "" {
			files[i].URL = urls[i]
		}
	}
	return files, nil
}

func (c *Client) ResolveCharacterImages(ctx context.Context, images []model.CharacterImage) ([]string, error) {
	return c.urls(ctx, "resolveCharacterImages", len(images), images)
}

func (c *Client) ResolveAssets(ctx context.Context, paths []string) ([]string, error) {
	return c.urls(ctx, "resolveAssets", len(paths), paths)
}

func (c *Client) ResolveBanners(ctx context.Context, courses []int) ([]string, error) {
	return c.urls(ctx, "resolveBanners", len(courses), courses)
}

func (c *Client) ResolveCovers(ctx context.Context, covers []CoverRef) ([]string, error) {
	return c.urls(ctx, "resolveCovers", len(covers), covers)
}

func (c *Client) ResolveGradeImages(ctx context.Context, grades []string) ([]string, error) {
	return c.urls(ctx, "resolveGradeImgs", len(grades), grades)
}

func (c *Client) ResolvePotentialBadge(ctx context.Context, rating int) (string, error) {
	var u string
	if err := c.call(ctx, "resolvePotentialBadge", &u, rating); err != nil {
		return "", err
	}
	return u, nil
}

func (c *Client) urls(ctx context.Context, method string, want int, arg any) ([]string, error) {
	var out []string
	if err := c.call(ctx, method, &out, arg); err != nil {
		return nil, err
	}
	if len(out) != want {
		return nil, fmt.Errorf("%s returned %d urls for %d inputs: %w", method, len(out), want, errs.ErrResourceNotFound)
	}
	return out, nil
}

func (c *Client) PickImage(ctx context.Context, candidates []Candidate, opts PickOptions) (Selection, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "pickImage", &raw, candidates, opts); err != nil {
		return nil, err
	}
	return UnmarshalSelection(raw)
}

func (c *Client) ExportAsImage(ctx context.Context, blob Blob, opts ExportOptions) error {
	return c.call(ctx, "exportAsImage", nil, blob, opts)
}

func (c *Client) GetAllCharacters(ctx context.Context) ([]Character, error) {
	var out []Character
	if err := c.call(ctx, "getAllCharacters", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAssetsInfo(ctx context.Context) (AssetsInfo, error) {
	var info AssetsInfo
	if err := c.call(ctx, "getAssetsInfo", &info); err != nil {
		return AssetsInfo{}, err
	}
	return info, nil
}
