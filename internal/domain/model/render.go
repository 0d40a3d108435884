package model

import (
	"fmt"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/geom"
	"github.com/okian/aol-b30/internal/domain/resource"
)

// Canvas is the logical scoreboard size.
var Canvas = geom.Size{Width: 900, Height: 1046}

// Text colours picked for legibility.
const (
	DarkText  = "#231731"
	LightText = "#ffffff"
)

// Theme holds the computed foreground colours.
type Theme struct {
	GeneratorText string `json:"generatorText"`
	FooterText    string `json:"footerText"`
	PlayerText    string `json:"playerText"`
}

// RenderContext is the immutable snapshot a render works from.
type RenderContext struct {
	Scoreboard ScoreboardData
	Avatar     *resource.Resource
	Background *resource.Resource
	Course     *resource.Resource
	Brand      *resource.Resource
	Font       *resource.Resource
	Theme      Theme
	Scale      float64
	Kind       resource.Kind
}

// WithKind returns a copy bound to another representation.
func (rc RenderContext) WithKind(k resource.Kind) RenderContext {
	rc.Kind = k
	return rc
}

// WithScale returns a copy with another scale.
func (rc RenderContext) WithScale(s float64) RenderContext {
	rc.Scale = s
	return rc
}

// Validate reports the first missing piece.
func (rc RenderContext) Validate() error {
	if rc.Scale <= 0 {
		return fmt.Errorf("scale %v: %w", rc.Scale, errs.ErrInvalidArgument)
	}
	named := []struct {
		name string
		res  *resource.Resource
	}{
		{"avatar", rc.Avatar},
		{"background", rc.Background},
		{"course", rc.Course},
		{"brand", rc.Brand},
		{"font", rc.Font},
		{"rating badge", rc.Scoreboard.RatingBadge},
	}
	for _, n := range named {
		if n.res == nil {
			return fmt.Errorf("%s: %w", n.name, errs.ErrResourceNotFound)
		}
	}
	return nil
}
