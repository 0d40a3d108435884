package export

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/scene"
)

var namedColours = map[string]color.NRGBA{
	"white":       {R: 255, G: 255, B: 255, A: 255},
	"black":       {A: 255},
	"transparent": {},
}

// parseColour understands #rgb, #rrggbb, rgb(), rgba() and a few names.
func parseColour(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColours[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(expandHex(s))
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, errs.ErrInvalidArgument)
		}
		r, g, b := c.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
	}
	inner, ok := strings.CutPrefix(s, "rgba(")
	if !ok {
		inner, ok = strings.CutPrefix(s, "rgb(")
	}
	if !ok || !strings.HasSuffix(inner, ")") {
		return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, errs.ErrInvalidArgument)
	}
	parts := strings.Split(strings.TrimSuffix(inner, ")"), ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, errs.ErrInvalidArgument)
	}
	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, errs.ErrInvalidArgument)
		}
		ch[i] = v
	}
	return color.NRGBA{
		R: clampByte(ch[0]),
		G: clampByte(ch[1]),
		B: clampByte(ch[2]),
		A: clampByte(ch[3] * 255),
	}, nil
}

func expandHex(s string) string {
	if len(s) != 4 {
		return s
	}
	return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = clampByte(float64(c.A) * a)
	return c
}

// style is the inherited presentation state.
type style struct {
	fill        string
	stroke      string
	strokeWidth float64
	fontSize    float64
	fontWeight  string
	fontFamily  string
	anchor      string
}

func defaultStyle() style {
	return style{fill: "black", stroke: "none", strokeWidth: 1, fontSize: 16, anchor: "start"}
}

// with applies the presentation attributes of n.
func (s style) with(n *scene.Node) style {
	if v, ok := n.Attr("fill"); ok {
		s.fill = v
	}
	if v, ok := n.Attr("stroke"); ok {
		s.stroke = v
	}
	if v, ok := n.Attr("stroke-width"); ok {
		s.strokeWidth = number(v, s.strokeWidth)
	}
	if v, ok := n.Attr("font-size"); ok {
		s.fontSize = number(v, s.fontSize)
	}
	if v, ok := n.Attr("font-weight"); ok {
		s.fontWeight = v
	}
	if v, ok := n.Attr("font-family"); ok {
		s.fontFamily = v
	}
	if v, ok := n.Attr("text-anchor"); ok {
		s.anchor = v
	}
	return s
}

func number(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return v
}

func attrNum(n *scene.Node, name string) float64 {
	v, _ := n.Attr(name)
	return number(v, 0)
}

// fraction reads a gradient coordinate: "50%" or "0.5".
func fraction(n *scene.Node, name string, fallback float64) float64 {
	v, ok := n.Attr(name)
	if !ok {
		return fallback
	}
	if p, isPct := strings.CutSuffix(strings.TrimSpace(v), "%"); isPct {
		return number(p, fallback*100) / 100
	}
	return number(v, fallback)
}

// box is an axis aligned rectangle in user space.
type box struct {
	x0, y0, x1, y1 float64
}

func (b box) union(o box) box {
	return box{
		x0: math.Min(b.x0, o.x0), y0: math.Min(b.y0, o.y0),
		x1: math.Max(b.x1, o.x1), y1: math.Max(b.y1, o.y1),
	}
}

func (b box) shift(dx, dy float64) box {
	return box{x0: b.x0 + dx, y0: b.y0 + dy, x1: b.x1 + dx, y1: b.y1 + dy}
}

func (b box) pad(d float64) box {
	return box{x0: b.x0 - d, y0: b.y0 - d, x1: b.x1 + d, y1: b.y1 + d}
}

func (b box) w() float64 { return b.x1 - b.x0 }
func (b box) h() float64 { return b.y1 - b.y0 }

// points parses a polygon point list.
func points(s string) [][2]float64 {
	var out [][2]float64
	for _, pair := range strings.Fields(s) {
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			continue
		}
		out = append(out, [2]float64{number(xy[0], 0), number(xy[1], 0)})
	}
	return out
}

// patternImage exposes a gg pattern as an image in device pixels.
type patternImage struct {
	p gg.Pattern
	b image.Rectangle
}

func (pi patternImage) ColorModel() color.Model { return color.RGBAModel }
func (pi patternImage) Bounds() image.Rectangle { return pi.b }
func (pi patternImage) At(x, y int) color.Color { return pi.p.ColorAt(x, y) }
