// Package geom converts logical layout units into scaled device units.
//
// Every visual element of the scoreboard is authored once in unscaled
// logical coordinates; a Transform carries the origin and the uniform scale
// so the same layout renders at any resolution.
package geom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/aol-b30/internal/domain/errs"
)

// Vector2D is a point or extent in device units.
type Vector2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height extent.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Transform maps logical coordinates to device coordinates. It is a value
// type: Translate returns a child and never touches the receiver.
type Transform struct {
	x, y  float64
	scale float64
}

// New returns a transform rooted at (x, y) with a uniform scale.
func New(x, y, scale float64) Transform {
	return Transform{x: x, y: y, scale: scale}
}

// Scaled returns a transform rooted at the origin.
func Scaled(scale float64) Transform {
	return New(0, 0, scale)
}

// Scale reports the scale factor.
func (t Transform) Scale() float64 { return t.scale }

// Origin reports the logical origin.
func (t Transform) Origin() Vector2D { return Vector2D{X: t.x, Y: t.y} }

// Point applies the origin offset and then the scale.
func (t Transform) Point(dx, dy float64) Vector2D {
	return Vector2D{X: (t.x + dx) * t.scale, Y: (t.y + dy) * t.scale}
}

// Size scales an extent.
func (t Transform) Size(s Size) Size {
	return Size{Width: s.Width * t.scale, Height: s.Height * t.scale}
}

// Zoom scales a scalar.
func (t Transform) Zoom(n float64) float64 {
	return n * t.scale
}

// Vectors scales every number of a whitespace separated list of comma
// pairs, e.g. a polygon point list. Tokens that are not numbers are kept.
func (t Transform) Vectors(seq string) string {
	pairs := strings.Fields(seq)
	out := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		parts := strings.Split(pair, ",")
		for i, p := range parts {
			n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				continue
			}
			parts[i] = FormatNumber(n * t.scale)
		}
		out = append(out, strings.Join(parts, ","))
	}
	return strings.Join(out, " ")
}

// Translate returns a transform rooted at (x+dx, y+dy) with the same scale.
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{x: t.x + dx, y: t.y + dy, scale: t.scale}
}

func (t Transform) String() string {
	return fmt.Sprintf("transform(%s,%s x%s)", FormatNumber(t.x), FormatNumber(t.y), FormatNumber(t.scale))
}

// FormatNumber renders n with at most four decimals and no trailing zeros.
func FormatNumber(n float64) string {
	const precision = 1e4
	r := float64(int64(n*precision+sign(n)*0.5)) / precision
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func sign(n float64) float64 {
	if n < 0 {
		return -1
	}
	return 1
}

// SizeHint names the one dimension a caller wants; the other is derived.
type SizeHint struct {
	Width  float64
	Height float64
}

// Resize derives the missing dimension of hint from an aspect ratio. Width
// wins when both are given.
func Resize(ratio Vector2D, hint SizeHint) (Size, error) {
	if ratio.X <= 0 || ratio.Y <= 0 {
		return Size{}, fmt.Errorf("resize ratio %vx%v: %w", ratio.X, ratio.Y, errs.ErrInvalidArgument)
	}
	switch {
	case hint.Width > 0:
		return Size{Width: hint.Width, Height: ratio.Y * hint.Width / ratio.X}, nil
	case hint.Height > 0:
		return Size{Width: ratio.X * hint.Height / ratio.Y, Height: hint.Height}, nil
	default:
		return Size{}, fmt.Errorf("resize needs a width or a height: %w", errs.ErrInvalidArgument)
	}
}

// Grid chunks items into rows of cols, row-major.
func Grid[T any](items []T, cols int) [][]T {
	if cols <= 0 || len(items) == 0 {
		return nil
	}
	rows := make([][]T, 0, (len(items)+cols-1)/cols)
	for i := 0; i < len(items); i += cols {
		end := min(i+cols, len(items))
		rows = append(rows, items[i:end])
	}
	return rows
}
