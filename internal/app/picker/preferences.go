package picker

import (
	"context"
	"fmt"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/domain/model"
)

// Preferences reads the host preference over the defaults and serialises
// read-modify-write updates, so concurrent commits of different slots never
// overwrite each other.
type Preferences struct {
	api host.API
	mu  sync.Mutex
}

// NewPreferences creates a preference store backed by api.
func NewPreferences(api host.API) *Preferences {
	return &Preferences{api: api}
}

// Merge fills every unset field of stored from the defaults.
func Merge(stored model.UserPreference) (model.UserPreference, error) {
	merged := model.DefaultPreference()
	if err := copier.CopyWithOption(&merged, &stored, copier.Option{IgnoreEmpty: true}); err != nil {
		return model.UserPreference{}, fmt.Errorf("merge preference: %w", err)
	}
	return merged, nil
}

// Get returns the merged preference.
func (p *Preferences) Get(ctx context.Context) (model.UserPreference, error) {
	stored, err := p.api.GetPreference(ctx)
	if err != nil {
		return model.UserPreference{}, fmt.Errorf("get preference: %w", err)
	}
	return Merge(stored)
}

// Update applies fn to the current preference and saves the result.
func (p *Preferences) Update(ctx context.Context, fn func(*model.UserPreference)) (model.UserPreference, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.Get(ctx)
	if err != nil {
		return model.UserPreference{}, err
	}
	fn(&current)
	if err := p.api.SavePreference(ctx, current); err != nil {
		return model.UserPreference{}, fmt.Errorf("save preference: %w", err)
	}
	return current, nil
}
