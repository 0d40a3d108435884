// Package host talks to the application that owns the player's data: it
// stores preferences, resolves asset URLs, serves image payloads, shows the
// image picker and receives exports.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
)

// API is the host surface the renderer needs. Every call may fail; a
// failure aborts only the action in flight.
type API interface {
	GetPreference(ctx context.Context) (model.UserPreference, error)
	SavePreference(ctx context.Context, p model.UserPreference) error
	GetImages(ctx context.Context, urls []string) ([]resource.File, error)
	ResolveCharacterImages(ctx context.Context, images []model.CharacterImage) ([]string, error)
	ResolveAssets(ctx context.Context, paths []string) ([]string, error)
	ResolveBanners(ctx context.Context, courses []int) ([]string, error)
	ResolveCovers(ctx context.Context, covers []CoverRef) ([]string, error)
	ResolveGradeImages(ctx context.Context, grades []string) ([]string, error)
	ResolvePotentialBadge(ctx context.Context, rating int) (string, error)
	PickImage(ctx context.Context, candidates []Candidate, opts PickOptions) (Selection, error)
	ExportAsImage(ctx context.Context, blob Blob, opts ExportOptions) error
	GetAllCharacters(ctx context.Context) ([]Character, error)
	GetAssetsInfo(ctx context.Context) (AssetsInfo, error)
}

// CoverRef names the jacket of one chart.
type CoverRef struct {
	SongID     string `json:"songId"`
	Difficulty int    `json:"difficulty"`
}

// Candidate is one entry of the image picker.
type Candidate struct {
	URL string `json:"url"`
}

// Display sizes the picker grid.
type Display struct {
	Height  int `json:"height"`
	Width   int `json:"width"`
	Columns int `json:"columns"`
}

// ClipConfig describes the crop shape of an upload.
type ClipConfig struct {
	Type   string `json:"type"`
	Size   int    `json:"size,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Diamond is a square crop rotated by 45 degrees.
func Diamond(size int) ClipConfig { return ClipConfig{Type: "diamond", Size: size} }

// Rect is a rectangular crop.
func Rect(width, height int) ClipConfig {
	return ClipConfig{Type: "rect", Width: width, Height: height}
}

// Canvas is the editing area around a crop.
type Canvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Clip combines a crop shape with its canvas.
type Clip struct {
	Config ClipConfig `json:"config"`
	Canvas Canvas     `json:"canvas"`
}

// Custom enables uploads; Single names the resource slot on the host.
type Custom struct {
	Single string `json:"single"`
	Clip   Clip   `json:"clip"`
}

// PickOptions configures the host picker.
type PickOptions struct {
	Title           string  `json:"title"`
	Display         Display `json:"display"`
	Custom          *Custom `json:"custom,omitempty"`
	DefaultSelected string  `json:"defaultSelected,omitempty"`
}

// Blob is an exported payload.
type Blob struct {
	Data []byte `json:"data"`
	Type string `json:"type"`
}

// ExportOptions names the exported file.
type ExportOptions struct {
	Filename string `json:"filename"`
}

// Abilities lists the extra image variants of a character.
type Abilities struct {
	Awake bool `json:"awake,omitempty"`
	Lost  bool `json:"lost,omitempty"`
}

// Character is a playable character.
type Character struct {
	ID  int       `json:"id"`
	Can Abilities `json:"can"`
}

// Images lists the avatar variants of c: the initial icon, then the awakened
// and lost icons when the character has them.
func (c Character) Images() []model.CharacterImage {
	out := []model.CharacterImage{{ID: c.ID, Kind: model.ImageKindIcon, Status: model.StatusInitial}}
	if c.Can.Awake {
		out = append(out, model.CharacterImage{ID: c.ID, Kind: model.ImageKindIcon, Status: model.StatusAwaken})
	}
	if c.Can.Lost {
		out = append(out, model.CharacterImage{ID: c.ID, Kind: model.ImageKindIcon, Status: model.StatusLost})
	}
	return out
}

// AssetsInfo describes what the host can serve.
type AssetsInfo struct {
	Banners []int `json:"banners"`
}

// Best30Response is the scoreboard pushed by the host.
type Best30Response struct {
	Username  string        `json:"username"`
	Potential json.Number   `json:"potential"`
	Rating    int           `json:"rating"`
	QueryTime int64         `json:"queryTime"`
	B30       []Best30Entry `json:"b30"`
}

// PotentialValue parses the player potential.
func (r Best30Response) PotentialValue() (float64, error) {
	if r.Potential == "" {
		return 0, nil
	}
	p, err := r.Potential.Float64()
	if err != nil {
		return 0, fmt.Errorf("potential %q: %w", r.Potential, errs.ErrInvalidArgument)
	}
	return p, nil
}

// QueriedAt converts the millisecond query timestamp.
func (r Best30Response) QueriedAt() time.Time {
	return time.UnixMilli(r.QueryTime)
}

// Song identifies a song.
type Song struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Side model.Side `json:"side"`
}

// ChartOverride replaces song metadata for one chart.
type ChartOverride struct {
	Name string `json:"name,omitempty"`
}

// Chart is one difficulty of a song.
type Chart struct {
	Difficulty string         `json:"difficulty"`
	Level      int            `json:"level"`
	Plus       bool           `json:"plus,omitempty"`
	Override   *ChartOverride `json:"override,omitempty"`
}

// Score is a play result.
type Score struct {
	Score     int     `json:"score"`
	Potential float64 `json:"potential"`
	Grade     string  `json:"grade"`
}

// Best30Entry is one ranked play.
type Best30Entry struct {
	No    int    `json:"no"`
	Song  Song   `json:"song"`
	Chart Chart  `json:"chart"`
	Score Score  `json:"score"`
	Clear string `json:"clear,omitempty"`
}

// Title is the chart override name when present, else the song name.
func (e Best30Entry) Title() string {
	if e.Chart.Override != nil && e.Chart.Override.Name != "" {
		return e.Chart.Override.Name
	}
	return e.Song.Name
}
