package picker

import (
	"context"
	"fmt"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/domain/contrast"
	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
)

// Upload folders the host stores custom images in.
const (
	customAvatar     = "custom/avatar"
	customBackground = "custom/bg"
)

func first(urls []string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if len(urls) != 1 {
		return "", fmt.Errorf("resolved %d urls for one reference: %w", len(urls), errs.ErrResourceNotFound)
	}
	return urls[0], nil
}

// Avatar is the player icon: a character image or an uploaded picture.
type Avatar struct{}

func (Avatar) Slot() Slot { return SlotAvatar }

func (Avatar) Stored(p model.UserPreference) model.AvatarRef { return p.Avatar }

func (Avatar) Apply(p *model.UserPreference, a model.AvatarRef) { p.Avatar = a }

func (Avatar) Locate(ctx context.Context, api host.API, a model.AvatarRef) (string, error) {
	if a.Character != nil {
		return first(api.ResolveCharacterImages(ctx, []model.CharacterImage{*a.Character}))
	}
	if a.URL == "" {
		return "", fmt.Errorf("empty avatar: %w", errs.ErrResourceNotFound)
	}
	return a.URL, nil
}

func (Avatar) Candidates(ctx context.Context, api host.API) ([]model.AvatarRef, []string, error) {
	chars, err := api.GetAllCharacters(ctx)
	if err != nil {
		return nil, nil, err
	}
	var images []model.CharacterImage
	for _, c := range chars {
		images = append(images, c.Images()...)
	}
	urls, err := api.ResolveCharacterImages(ctx, images)
	if err != nil {
		return nil, nil, err
	}
	choices := make([]model.AvatarRef, len(images))
	for i, img := range images {
		choices[i] = model.CharacterAvatar(img)
	}
	return choices, urls, nil
}

func (Avatar) Options() host.PickOptions {
	return host.PickOptions{
		Title:   "Select avatar",
		Display: host.Display{Height: 64, Width: 64, Columns: 4},
		Custom: &host.Custom{
			Single: customAvatar,
			Clip:   host.Clip{Config: host.Diamond(288), Canvas: host.Canvas{Width: 320, Height: 320}},
		},
	}
}

func (Avatar) Upload(url string) (model.AvatarRef, bool) { return model.URLAvatar(url), true }

func (Avatar) Derive(*resource.Resource, model.AvatarRef) (model.Theme, error) {
	return model.Theme{}, nil
}

// Course is the course rank banner behind the player name.
type Course struct{}

func (Course) Slot() Slot { return SlotCourse }

func (Course) Stored(p model.UserPreference) int { return p.Course }

func (Course) Apply(p *model.UserPreference, course int) { p.Course = course }

func (Course) Locate(ctx context.Context, api host.API, course int) (string, error) {
	if course < 1 || course > model.Courses {
		return "", fmt.Errorf("course %d: %w", course, errs.ErrInvalidArgument)
	}
	return first(api.ResolveBanners(ctx, []int{course}))
}

func (Course) Candidates(ctx context.Context, api host.API) ([]int, []string, error) {
	info, err := api.GetAssetsInfo(ctx)
	if err != nil {
		return nil, nil, err
	}
	urls, err := api.ResolveBanners(ctx, info.Banners)
	if err != nil {
		return nil, nil, err
	}
	return info.Banners, urls, nil
}

func (Course) Options() host.PickOptions {
	return host.PickOptions{
		Title:   "Select course",
		Display: host.Display{Height: 32, Width: 250, Columns: 1},
	}
}

func (Course) Upload(string) (int, bool) { return 0, false }

func (Course) Derive(_ *resource.Resource, course int) (model.Theme, error) {
	return model.Theme{PlayerText: contrast.PlayerText(course)}, nil
}

// Background is the full canvas picture: a catalog entry or an upload.
type Background struct{}

func (Background) Slot() Slot { return SlotBackground }

func (Background) Stored(p model.UserPreference) model.BackgroundRef { return p.Background }

func (Background) Apply(p *model.UserPreference, b model.BackgroundRef) { p.Background = b }

func (Background) Locate(ctx context.Context, api host.API, b model.BackgroundRef) (string, error) {
	if b.URL != "" {
		return b.URL, nil
	}
	if b.Path == "" {
		return "", fmt.Errorf("empty background: %w", errs.ErrResourceNotFound)
	}
	return first(api.ResolveAssets(ctx, []string{b.Path}))
}

func (Background) Candidates(ctx context.Context, api host.API) ([]model.BackgroundRef, []string, error) {
	urls, err := api.ResolveAssets(ctx, contrast.Backgrounds)
	if err != nil {
		return nil, nil, err
	}
	choices := make([]model.BackgroundRef, len(contrast.Backgrounds))
	for i, p := range contrast.Backgrounds {
		choices[i] = model.PathBackground(p)
	}
	return choices, urls, nil
}

func (Background) Options() host.PickOptions {
	return host.PickOptions{
		Title:   "Select background",
		Display: host.Display{Height: 80, Width: 80, Columns: 3},
		Custom: &host.Custom{
			Single: customBackground,
			Clip: host.Clip{
				Config: host.Rect(int(model.Canvas.Width), int(model.Canvas.Height)),
				Canvas: host.Canvas{Width: 1000, Height: 1146},
			},
		},
	}
}

func (Background) Upload(url string) (model.BackgroundRef, bool) {
	return model.URLBackground(url), true
}

func (Background) Derive(res *resource.Resource, b model.BackgroundRef) (model.Theme, error) {
	return contrast.BackgroundTheme(res.Image(), b.Path)
}

// Set holds the three slot controllers.
type Set struct {
	Avatar     *Controller[model.AvatarRef]
	Course     *Controller[int]
	Background *Controller[model.BackgroundRef]
}

// NewSet creates the controllers of every slot over one preference store.
func NewSet(api host.API, arena *resource.Arena, opts ...Option) *Set {
	prefs := NewPreferences(api)
	return &Set{
		Avatar:     NewController[model.AvatarRef](api, prefs, arena, Avatar{}, opts...),
		Course:     NewController[int](api, prefs, arena, Course{}, opts...),
		Background: NewController[model.BackgroundRef](api, prefs, arena, Background{}, opts...),
	}
}

// Get returns the controller of slot.
func (s *Set) Get(slot Slot) (Picker, error) {
	switch slot {
	case SlotAvatar:
		return s.Avatar, nil
	case SlotCourse:
		return s.Course, nil
	case SlotBackground:
		return s.Background, nil
	default:
		return nil, fmt.Errorf("%q: %w", slot, ErrUnknownSlot)
	}
}

// All lists the controllers in a fixed order.
func (s *Set) All() []Picker {
	return []Picker{s.Avatar, s.Course, s.Background}
}

// Theme combines the colours derived by the background and course slots.
func (s *Set) Theme() model.Theme {
	bg := s.Background.Current().Theme
	return model.Theme{
		GeneratorText: bg.GeneratorText,
		FooterText:    bg.FooterText,
		PlayerText:    s.Course.Current().Theme.PlayerText,
	}
}

// Close releases every slot.
func (s *Set) Close() {
	for _, p := range s.All() {
		p.Close()
	}
}
