// Package contrast decides whether text over a background region should be
// dark or light.
package contrast

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/geom"
	"github.com/okian/aol-b30/internal/domain/model"
)

// Tone classifies a region.
type Tone int

const (
	Dark Tone = iota
	Light
)

func (t Tone) String() string {
	if t == Light {
		return "light"
	}
	return "dark"
}

// Foreground returns the legible text colour over a region of this tone.
func (t Tone) Foreground() string {
	if t == Light {
		return model.DarkText
	}
	return model.LightText
}

// threshold is half of the largest channel sum, 3*255/2.
const threshold = 382.5

// Classify maps average channel values to a tone. A sum of exactly the
// threshold is Dark.
func Classify(r, g, b float64) Tone {
	if r+g+b > threshold {
		return Light
	}
	return Dark
}

// Sample averages every channel of img over region and classifies the
// result. Regions are clipped to the image bounds.
func Sample(img image.Image, region image.Rectangle) (Tone, error) {
	if img == nil {
		return Dark, fmt.Errorf("sample: nil image: %w", errs.ErrInvalidArgument)
	}
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return Dark, fmt.Errorf("sample: region outside image: %w", errs.ErrInvalidArgument)
	}
	crop := imaging.Crop(img, region)
	var r, g, b float64
	for i := 0; i < len(crop.Pix); i += 4 {
		r += float64(crop.Pix[i])
		g += float64(crop.Pix[i+1])
		b += float64(crop.Pix[i+2])
	}
	n := float64(len(crop.Pix) / 4)
	return Classify(r/n, g/n, b/n), nil
}

// CanvasRegion maps a region in canvas units onto the pixels of a
// background drawn with cover fit at the canvas origin.
func CanvasRegion(bg geom.Vector2D, canvas geom.Size, region image.Rectangle) image.Rectangle {
	if bg.X <= 0 || bg.Y <= 0 {
		return image.Rectangle{}
	}
	zoom := math.Max(canvas.Width/bg.X, canvas.Height/bg.Y)
	if zoom <= 0 {
		return region
	}
	scale := func(v int) int { return int(math.Floor(float64(v) / zoom)) }
	return image.Rect(scale(region.Min.X), scale(region.Min.Y),
		int(math.Ceil(float64(region.Max.X)/zoom)), int(math.Ceil(float64(region.Max.Y)/zoom)))
}
