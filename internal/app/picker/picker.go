// Package picker resolves the three user customisable inputs of the
// scoreboard (avatar, course banner, background) and lets the user change
// them through the host's image picker.
package picker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
	"github.com/okian/aol-b30/pkg/logger"
	"github.com/okian/aol-b30/pkg/metrics"
)

// Slot names a customisable input.
type Slot string

// Slots.
const (
	SlotAvatar     Slot = "avatar"
	SlotCourse     Slot = "course"
	SlotBackground Slot = "background"
)

// ParseSlot validates a slot name.
func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotAvatar, SlotCourse, SlotBackground:
		return Slot(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownSlot)
	}
}

// Result is the detailed resource of a slot and the colours derived from it.
// Only the theme fields a slot is responsible for are set.
type Result struct {
	Resource *resource.Resource
	Theme    model.Theme
}

// Strategy describes one slot: where its choice is stored, how a choice is
// resolved to a URL, and what the picker offers.
type Strategy[C any] interface {
	Slot() Slot
	Stored(p model.UserPreference) C
	Apply(p *model.UserPreference, choice C)
	Locate(ctx context.Context, api host.API, choice C) (string, error)
	Candidates(ctx context.Context, api host.API) ([]C, []string, error)
	Options() host.PickOptions
	// Upload turns a custom pick into a choice; ok is false when the slot
	// does not take uploads.
	Upload(url string) (choice C, ok bool)
	Derive(res *resource.Resource, choice C) (model.Theme, error)
}

// Picker is the slot independent view of a Controller.
type Picker interface {
	Slot() Slot
	Fetch(ctx context.Context) (Result, error)
	Pick(ctx context.Context) (bool, error)
	Current() Result
	Close()
}

// Controller keeps the resolved resource of one slot. It owns the scope of
// that resource and releases it when the resource is replaced.
type Controller[C any] struct {
	api      host.API
	prefs    *Preferences
	arena    *resource.Arena
	strategy Strategy[C]
	logger   logger.Logger

	mu      sync.Mutex
	scope   *resource.Scope
	current Result
	url     string
}

var _ Picker = (*Controller[int])(nil)

// NewController creates a controller for strategy.
func NewController[C any](api host.API, prefs *Preferences, arena *resource.Arena, strategy Strategy[C], opts ...Option) *Controller[C] {
	s := settings{logger: logger.OrNop()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Controller[C]{
		api:      api,
		prefs:    prefs,
		arena:    arena,
		strategy: strategy,
		logger:   s.logger.Named("picker." + string(strategy.Slot())),
	}
}

// Slot reports the slot of the controller.
func (c *Controller[C]) Slot() Slot { return c.strategy.Slot() }

// Fetch resolves the stored choice, details it and replaces the current
// result. On failure the current result is kept.
func (c *Controller[C]) Fetch(ctx context.Context) (Result, error) {
	pref, err := c.prefs.Get(ctx)
	if err != nil {
		return Result{}, err
	}
	choice := c.strategy.Stored(pref)
	url, err := c.strategy.Locate(ctx, c.api, choice)
	if err != nil {
		return Result{}, fmt.Errorf("%s: locate: %w", c.Slot(), err)
	}
	files, err := c.api.GetImages(ctx, []string{url})
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", c.Slot(), err)
	}
	if len(files) != 1 {
		return Result{}, fmt.Errorf("%s: %s: %w", c.Slot(), url, errs.ErrResourceNotFound)
	}

	scope := c.arena.Scope()
	res, err := scope.Detail(ctx, files[0])
	if err != nil {
		scope.Release()
		return Result{}, fmt.Errorf("%s: %w", c.Slot(), err)
	}
	theme, err := c.strategy.Derive(res, choice)
	if err != nil {
		scope.Release()
		return Result{}, fmt.Errorf("%s: derive theme: %w", c.Slot(), err)
	}

	result := Result{Resource: res, Theme: theme}
	c.mu.Lock()
	old := c.scope
	c.scope, c.current, c.url = scope, result, url
	c.mu.Unlock()
	if old != nil {
		old.Release()
	}
	c.logger.Debug(ctx, "slot resolved", logger.String("url", url))
	return result, nil
}

// Pick shows the host picker. It reports false when the user cancelled or
// picked something the slot ignores; otherwise the choice is persisted and
// fetched.
func (c *Controller[C]) Pick(ctx context.Context) (bool, error) {
	choices, urls, err := c.strategy.Candidates(ctx, c.api)
	if err != nil {
		return false, fmt.Errorf("%s: candidates: %w", c.Slot(), err)
	}
	candidates := make([]host.Candidate, len(urls))
	for i, u := range urls {
		candidates[i] = host.Candidate{URL: u}
	}
	opts := c.strategy.Options()
	c.mu.Lock()
	opts.DefaultSelected = c.url
	c.mu.Unlock()

	sel, err := c.api.PickImage(ctx, candidates, opts)
	if err != nil {
		return false, fmt.Errorf("%s: pick: %w", c.Slot(), err)
	}
	var choice C
	switch s := sel.(type) {
	case nil:
		return false, nil
	case host.BasicSelection:
		if s.Index < 0 || s.Index >= len(choices) {
			return false, fmt.Errorf("%s: pick %d of %d: %w", c.Slot(), s.Index, len(choices), errs.ErrInvalidArgument)
		}
		choice = choices[s.Index]
	case host.CustomSelection:
		var ok bool
		if choice, ok = c.strategy.Upload(s.ResourceURL); !ok {
			c.logger.Debug(ctx, "ignoring custom pick")
			return false, nil
		}
	}

	if _, err := c.prefs.Update(ctx, func(p *model.UserPreference) { c.strategy.Apply(p, choice) }); err != nil {
		return false, fmt.Errorf("%s: %w", c.Slot(), err)
	}
	metrics.RecordPickerCommit(string(c.Slot()))
	if _, err := c.Fetch(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Current returns the last fetched result.
func (c *Controller[C]) Current() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Close releases the current resource.
func (c *Controller[C]) Close() {
	c.mu.Lock()
	scope := c.scope
	c.scope, c.current, c.url = nil, Result{}, ""
	c.mu.Unlock()
	if scope != nil {
		scope.Release()
	}
}
