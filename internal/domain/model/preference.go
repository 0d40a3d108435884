package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Character image kinds and statuses understood by the host.
const (
	ImageKindIcon = "icon"

	StatusInitial = "initial"
	StatusAwaken  = "awaken"
	StatusLost    = "lost"
)

// CharacterImage identifies one image variant of a character.
type CharacterImage struct {
	ID     int    `json:"id"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

// AvatarRef is either a character image or an external image URL.
// Exactly one side is set on a non-zero value.
type AvatarRef struct {
	Character *CharacterImage
	URL       string
}

// CharacterAvatar references a character image.
func CharacterAvatar(c CharacterImage) AvatarRef { return AvatarRef{Character: &c} }

// URLAvatar references an uploaded image.
func URLAvatar(u string) AvatarRef { return AvatarRef{URL: u} }

// IsZero reports an unset avatar.
func (a AvatarRef) IsZero() bool { return a.Character == nil && a.URL == "" }

// MarshalJSON writes a character as an object and a URL as a string.
func (a AvatarRef) MarshalJSON() ([]byte, error) {
	switch {
	case a.Character != nil:
		return json.Marshal(a.Character)
	case a.URL != "":
		return json.Marshal(a.URL)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts both forms written by MarshalJSON.
func (a *AvatarRef) UnmarshalJSON(data []byte) error {
	*a = AvatarRef{}
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, &a.URL)
	default:
		var c CharacterImage
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("avatar: %w", err)
		}
		a.Character = &c
		return nil
	}
}

// BackgroundRef is either a built-in asset path or an external image URL.
type BackgroundRef struct {
	Path string
	URL  string
}

// PathBackground references a built-in background.
func PathBackground(p string) BackgroundRef { return BackgroundRef{Path: p} }

// URLBackground references an uploaded background.
func URLBackground(u string) BackgroundRef { return BackgroundRef{URL: u} }

// IsZero reports an unset background.
func (b BackgroundRef) IsZero() bool { return b.Path == "" && b.URL == "" }

type urlObject struct {
	URL string `json:"url"`
}

// MarshalJSON writes a path as a string and a URL as {"url": ...}.
func (b BackgroundRef) MarshalJSON() ([]byte, error) {
	switch {
	case b.URL != "":
		return json.Marshal(urlObject{URL: b.URL})
	case b.Path != "":
		return json.Marshal(b.Path)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts both forms written by MarshalJSON.
func (b *BackgroundRef) UnmarshalJSON(data []byte) error {
	*b = BackgroundRef{}
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, &b.Path)
	default:
		var o urlObject
		if err := json.Unmarshal(data, &o); err != nil {
			return fmt.Errorf("bg: %w", err)
		}
		b.URL = o.URL
		return nil
	}
}

// UserPreference is the record the host persists for the user.
type UserPreference struct {
	Avatar     AvatarRef     `json:"avatar"`
	Course     int           `json:"course"`
	Background BackgroundRef `json:"bg"`
}

// Courses is the number of course banners.
const Courses = 11

// DefaultPreference is used for every field the host has not stored.
func DefaultPreference() UserPreference {
	return UserPreference{
		Avatar:     CharacterAvatar(CharacterImage{ID: 0, Kind: ImageKindIcon, Status: StatusInitial}),
		Course:     1,
		Background: PathBackground("img/bg_light.jpg"),
	}
}
