package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/resource"
	"github.com/okian/aol-b30/internal/domain/scene"
	"github.com/okian/aol-b30/pkg/logger"
)

const maxUseDepth = 32

var (
	fallbackOnce    sync.Once
	fallbackRegular *opentype.Font
	fallbackBold    *opentype.Font
	errFallback     error
)

func fallbackFonts() (regular, bold *opentype.Font, err error) {
	fallbackOnce.Do(func() {
		fallbackRegular, errFallback = opentype.Parse(goregular.TTF)
		if errFallback != nil {
			return
		}
		fallbackBold, errFallback = opentype.Parse(gobold.TTF)
	})
	return fallbackRegular, fallbackBold, errFallback
}

// Rasterizer paints a scene tree into pixels. It understands the subset of
// SVG the scene composer emits.
type Rasterizer struct {
	resolver *resource.Resolver
	logger   logger.Logger
}

// NewRasterizer creates a rasterizer that loads hrefs through resolver.
func NewRasterizer(resolver *resource.Resolver, l logger.Logger) *Rasterizer {
	if l == nil {
		l = logger.Nop()
	}
	return &Rasterizer{resolver: resolver, logger: l}
}

type faceKey struct {
	family string
	bold   bool
	size   float64
}

type painter struct {
	ctx    context.Context
	r      *Rasterizer
	ids    map[string]*scene.Node
	custom *opentype.Font
	faces  map[faceKey]font.Face
	images map[string]image.Image
	depth  int
}

// Rasterize paints root onto a transparent canvas of its width and height.
func (r *Rasterizer) Rasterize(ctx context.Context, root *scene.Node) (image.Image, error) {
	if root == nil || root.Tag != "svg" {
		return nil, fmt.Errorf("rasterize: root is not an svg element: %w", errs.ErrInvalidArgument)
	}
	w := int(math.Ceil(attrNum(root, "width")))
	h := int(math.Ceil(attrNum(root, "height")))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("rasterize: canvas %dx%d: %w", w, h, errs.ErrInvalidArgument)
	}

	p := &painter{
		ctx:    ctx,
		r:      r,
		ids:    make(map[string]*scene.Node),
		faces:  make(map[faceKey]font.Face),
		images: make(map[string]image.Image),
	}
	defer p.closeFaces()
	root.Walk(func(n *scene.Node) bool {
		if id := n.ID(); id != "" {
			p.ids[id] = n
		}
		if n.Tag == "style" {
			p.loadFontFace(n.Text)
		}
		return true
	})

	dc := gg.NewContext(w, h)
	if err := p.paint(dc, root, defaultStyle()); err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// loadFontFace picks up the first @font-face source. A font that cannot be
// parsed falls back to Go's own faces.
func (p *painter) loadFontFace(css string) {
	_, rest, ok := strings.Cut(css, "url(")
	if !ok {
		return
	}
	href, _, ok := strings.Cut(rest, ")")
	if !ok {
		return
	}
	href = strings.Trim(href, `"'`)
	data, err := p.r.resolver.Bytes(p.ctx, href)
	if err != nil {
		p.r.logger.Warn(p.ctx, "font unavailable, using fallback", logger.Error(err))
		return
	}
	f, err := opentype.Parse(data)
	if err != nil {
		p.r.logger.Debug(p.ctx, "font not parseable, using fallback", logger.Error(err))
		return
	}
	p.custom = f
}

func (p *painter) closeFaces() {
	for _, f := range p.faces {
		_ = f.Close()
	}
}

func (p *painter) face(st style) (font.Face, error) {
	bold := st.fontWeight == "bold" || st.fontWeight == "700"
	key := faceKey{family: st.fontFamily, bold: bold, size: st.fontSize}
	if f, ok := p.faces[key]; ok {
		return f, nil
	}
	regular, boldFont, err := fallbackFonts()
	if err != nil {
		return nil, fmt.Errorf("fallback font: %w", err)
	}
	src := regular
	if bold {
		src = boldFont
	}
	if st.fontFamily == "Exo" && p.custom != nil {
		src = p.custom
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: st.fontSize, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	p.faces[key] = f
	return f, nil
}

func (p *painter) image(href string) (image.Image, error) {
	if img, ok := p.images[href]; ok {
		return img, nil
	}
	img, err := p.r.resolver.Image(p.ctx, href)
	if err != nil {
		return nil, err
	}
	p.images[href] = img
	return img, nil
}

func (p *painter) ref(n *scene.Node, attr string) *scene.Node {
	v, ok := n.Attr(attr)
	if !ok {
		return nil
	}
	id, ok := scene.RefID(v)
	if !ok {
		return nil
	}
	return p.ids[id]
}

func isDefinition(tag string) bool {
	switch tag {
	case "defs", "style", "clipPath", "filter", "linearGradient", "radialGradient", "stop",
		"feGaussianBlur", "feDropShadow":
		return true
	default:
		return false
	}
}

func (p *painter) paint(dc *gg.Context, n *scene.Node, inherited style) error {
	if isDefinition(n.Tag) {
		return nil
	}
	if err := p.ctx.Err(); err != nil {
		return err
	}
	st := inherited.with(n)
	filter := p.ref(n, "filter")
	clip := p.ref(n, "clip-path")
	if filter != nil || clip != nil {
		return p.paintLayered(dc, n, st, filter, clip)
	}
	return p.paintPlain(dc, n, st)
}

func (p *painter) paintPlain(dc *gg.Context, n *scene.Node, st style) error {
	switch n.Tag {
	case "svg", "g":
		for _, c := range n.Children {
			if err := p.paint(dc, c, st); err != nil {
				return err
			}
		}
		return nil
	case "use":
		return p.use(dc, n, st, func(target *scene.Node, s style) error {
			return p.paint(dc, target, s)
		})
	case "rect":
		return p.rect(dc, n, st)
	case "polygon":
		return p.polygon(dc, n, st)
	case "image":
		return p.drawImage(dc, n)
	case "text":
		return p.text(dc, n, st)
	default:
		return nil
	}
}

func (p *painter) use(dc *gg.Context, n *scene.Node, st style, fn func(*scene.Node, style) error) error {
	target := p.ref(n, "href")
	if target == nil {
		href, _ := n.Attr("href")
		return fmt.Errorf("use %q: %w", href, errs.ErrResourceNotFound)
	}
	if p.depth >= maxUseDepth {
		return fmt.Errorf("use nesting deeper than %d: %w", maxUseDepth, errs.ErrInvalidArgument)
	}
	p.depth++
	defer func() { p.depth-- }()
	dc.Push()
	defer dc.Pop()
	dc.Translate(attrNum(n, "x"), attrNum(n, "y"))
	return fn(target, st)
}

// device maps a user space box to pixel bounds of dc.
func device(dc *gg.Context, b box) image.Rectangle {
	x0, y0 := dc.TransformPoint(b.x0, b.y0)
	x1, y1 := dc.TransformPoint(b.x1, b.y1)
	r := image.Rect(int(math.Floor(x0)), int(math.Floor(y0)), int(math.Ceil(x1)), int(math.Ceil(y1)))
	return r.Intersect(image.Rect(0, 0, dc.Width(), dc.Height()))
}

// layer returns a context covering area of dc with the same user space.
func layer(dc *gg.Context, area image.Rectangle) *gg.Context {
	l := gg.NewContext(area.Dx(), area.Dy())
	tx, ty := dc.TransformPoint(0, 0)
	l.Translate(tx-float64(area.Min.X), ty-float64(area.Min.Y))
	return l
}

func composite(dc *gg.Context, img image.Image, at image.Point) {
	dc.Push()
	dc.Identity()
	dc.DrawImage(img, at.X, at.Y)
	dc.Pop()
}

func (p *painter) paintLayered(dc *gg.Context, n *scene.Node, st style, filter, clip *scene.Node) error {
	b, ok := p.bounds(n, st)
	if !ok {
		return nil
	}
	area := device(dc, b.pad(filterReach(filter)))
	if area.Empty() {
		return nil
	}
	l := layer(dc, area)
	if err := p.paintPlain(l, n, st); err != nil {
		return err
	}
	img := l.Image()
	if filter != nil {
		img = applyFilter(img, filter)
	}
	if clip != nil {
		m := layer(dc, area)
		m.SetColor(color.White)
		if err := p.clipPath(m, clip); err != nil {
			return err
		}
		masked := image.NewRGBA(img.Bounds())
		draw.DrawMask(masked, masked.Bounds(), img, img.Bounds().Min, m.AsMask(), image.Point{}, draw.Src)
		img = masked
	}
	composite(dc, img, area.Min)
	return nil
}

// clipPath fills the clip shapes of def in white.
func (p *painter) clipPath(m *gg.Context, def *scene.Node) error {
	for _, c := range def.Children {
		if err := p.clipShape(m, c); err != nil {
			return err
		}
	}
	return nil
}

func (p *painter) clipShape(m *gg.Context, n *scene.Node) error {
	switch n.Tag {
	case "rect":
		m.DrawRectangle(attrNum(n, "x"), attrNum(n, "y"), attrNum(n, "width"), attrNum(n, "height"))
		m.Fill()
	case "polygon":
		v, _ := n.Attr("points")
		tracePolygon(m, points(v))
		m.Fill()
	case "use":
		return p.use(m, n, defaultStyle(), func(target *scene.Node, _ style) error {
			return p.clipShape(m, target)
		})
	}
	return nil
}

func tracePolygon(dc *gg.Context, pts [][2]float64) {
	for i, pt := range pts {
		if i == 0 {
			dc.MoveTo(pt[0], pt[1])
		} else {
			dc.LineTo(pt[0], pt[1])
		}
	}
	dc.ClosePath()
}

// paintSpec turns a fill or stroke value into a gg pattern for the given
// user space bounds; ok is false for "none".
func (p *painter) paintSpec(dc *gg.Context, value string, b box) (gg.Pattern, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "none" {
		return nil, false, nil
	}
	if strings.HasPrefix(value, "url(") {
		id, _ := scene.RefID(value)
		def := p.ids[id]
		if def == nil {
			return nil, false, fmt.Errorf("paint server %q: %w", id, errs.ErrResourceNotFound)
		}
		return gradient(dc, def, b), true, nil
	}
	c, err := parseColour(value)
	if err != nil {
		return nil, false, err
	}
	return gg.NewSolidPattern(c), true, nil
}

func gradient(dc *gg.Context, def *scene.Node, b box) gg.Pattern {
	at := func(fx, fy float64) (float64, float64) {
		return dc.TransformPoint(b.x0+fx*b.w(), b.y0+fy*b.h())
	}
	var g gg.Gradient
	if def.Tag == "radialGradient" {
		cx, cy := at(fraction(def, "cx", 0.5), fraction(def, "cy", 0.5))
		ex, ey := at(1, 1)
		sx, sy := at(0, 0)
		r := fraction(def, "r", 0.5) * math.Max(ex-sx, ey-sy)
		g = gg.NewRadialGradient(cx, cy, 0, cx, cy, r)
	} else {
		x0, y0 := at(fraction(def, "x1", 0), fraction(def, "y1", 0))
		x1, y1 := at(fraction(def, "x2", 1), fraction(def, "y2", 0))
		g = gg.NewLinearGradient(x0, y0, x1, y1)
	}
	for _, s := range def.Children {
		if s.Tag != "stop" {
			continue
		}
		colour, _ := s.Attr("stop-color")
		c, err := parseColour(colour)
		if err != nil {
			continue
		}
		g.AddColorStop(fraction(s, "offset", 0), c)
	}
	return g
}

func opacity(n *scene.Node) float64 {
	v, ok := n.Attr("opacity")
	if !ok {
		return 1
	}
	return math.Max(0, math.Min(1, number(v, 1)))
}

func (p *painter) fillAndStroke(dc *gg.Context, n *scene.Node, st style, b box) error {
	fill, hasFill, err := p.paintSpec(dc, st.fill, b)
	if err != nil {
		return err
	}
	stroke, hasStroke, err := p.paintSpec(dc, st.stroke, b)
	if err != nil {
		return err
	}
	if a := opacity(n); a < 1 {
		if c, solid := solidOf(st.fill); solid && hasFill {
			fill = gg.NewSolidPattern(withAlpha(c, a))
		}
	}
	switch {
	case hasFill && hasStroke:
		dc.SetFillStyle(fill)
		dc.FillPreserve()
		dc.SetStrokeStyle(stroke)
		dc.SetLineWidth(st.strokeWidth)
		dc.Stroke()
	case hasFill:
		dc.SetFillStyle(fill)
		dc.Fill()
	case hasStroke:
		dc.SetStrokeStyle(stroke)
		dc.SetLineWidth(st.strokeWidth)
		dc.Stroke()
	default:
		dc.ClearPath()
	}
	return nil
}

func solidOf(value string) (color.NRGBA, bool) {
	c, err := parseColour(value)
	return c, err == nil
}

func (p *painter) rect(dc *gg.Context, n *scene.Node, st style) error {
	b, _ := p.bounds(n, st)
	if b.w() <= 0 || b.h() <= 0 {
		return nil
	}
	if r := math.Max(attrNum(n, "rx"), attrNum(n, "ry")); r > 0 {
		dc.DrawRoundedRectangle(b.x0, b.y0, b.w(), b.h(), r)
	} else {
		dc.DrawRectangle(b.x0, b.y0, b.w(), b.h())
	}
	return p.fillAndStroke(dc, n, st, b)
}

func (p *painter) polygon(dc *gg.Context, n *scene.Node, st style) error {
	v, _ := n.Attr("points")
	pts := points(v)
	if len(pts) < 3 {
		return nil
	}
	b, _ := p.bounds(n, st)
	tracePolygon(dc, pts)
	return p.fillAndStroke(dc, n, st, b)
}

func (p *painter) drawImage(dc *gg.Context, n *scene.Node) error {
	href, _ := n.Attr("href")
	src, err := p.image(href)
	if err != nil {
		return fmt.Errorf("image: %w", err)
	}
	w := int(math.Round(attrNum(n, "width")))
	h := int(math.Round(attrNum(n, "height")))
	if w <= 0 || h <= 0 {
		return nil
	}
	if sb := src.Bounds(); sb.Dx() != w || sb.Dy() != h {
		key := fmt.Sprintf("%s@%dx%d", href, w, h)
		resized, ok := p.images[key]
		if !ok {
			resized = imaging.Resize(src, w, h, imaging.Lanczos)
			p.images[key] = resized
		}
		src = resized
	}
	if a := opacity(n); a < 1 {
		src = fade(src, a)
	}
	dc.DrawImage(src, int(math.Round(attrNum(n, "x"))), int(math.Round(attrNum(n, "y"))))
	return nil
}

func fade(img image.Image, a float64) image.Image {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = clampByte(float64(out.Pix[i]) * a)
	}
	return out
}

func anchorShift(anchor string) float64 {
	switch anchor {
	case "middle":
		return 0.5
	case "end":
		return 1
	default:
		return 0
	}
}

// textBox measures a text element in user space.
func (p *painter) textBox(n *scene.Node, st style) (box, font.Face, error) {
	face, err := p.face(st)
	if err != nil {
		return box{}, nil, err
	}
	width := float64(font.MeasureString(face, n.Text)) / 64
	m := face.Metrics()
	x := attrNum(n, "x") - anchorShift(st.anchor)*width
	y := attrNum(n, "y")
	b := box{x0: x, y0: y - float64(m.Ascent)/64, x1: x + width, y1: y + float64(m.Descent)/64}
	if st.stroke != "" && st.stroke != "none" {
		b = b.pad(st.strokeWidth)
	}
	return b, face, nil
}

func (p *painter) text(dc *gg.Context, n *scene.Node, st style) error {
	if strings.TrimSpace(n.Text) == "" {
		return nil
	}
	b, face, err := p.textBox(n, st)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	x, y := attrNum(n, "x"), attrNum(n, "y")
	ax := anchorShift(st.anchor)

	if c, ok := solidOf(st.stroke); ok && st.strokeWidth > 0 {
		dc.SetColor(c)
		r := st.strokeWidth / 2
		for i := 0; i < 8; i++ {
			theta := float64(i) * math.Pi / 4
			dc.DrawStringAnchored(n.Text, x+r*math.Cos(theta), y+r*math.Sin(theta), ax, 0)
		}
	}

	if c, ok := solidOf(st.fill); ok {
		dc.SetColor(withAlpha(c, opacity(n)))
		dc.DrawStringAnchored(n.Text, x, y, ax, 0)
		return nil
	}
	pattern, ok, err := p.paintSpec(dc, st.fill, b)
	if err != nil || !ok {
		return err
	}
	area := device(dc, b)
	if area.Empty() {
		return nil
	}
	m := layer(dc, area)
	m.SetFontFace(face)
	m.SetColor(color.White)
	m.DrawStringAnchored(n.Text, x, y, ax, 0)
	dst, isRGBA := dc.Image().(*image.RGBA)
	if !isRGBA {
		return nil
	}
	src := patternImage{p: pattern, b: image.Rect(0, 0, dc.Width(), dc.Height())}
	mask := m.AsMask()
	draw.DrawMask(dst, area, src, area.Min, mask, image.Point{}, draw.Over)
	return nil
}

// bounds reports the user space extent of n; ok is false when n paints
// nothing.
func (p *painter) bounds(n *scene.Node, st style) (box, bool) {
	switch n.Tag {
	case "rect", "image":
		x, y := attrNum(n, "x"), attrNum(n, "y")
		return box{x0: x, y0: y, x1: x + attrNum(n, "width"), y1: y + attrNum(n, "height")}, true
	case "polygon":
		v, _ := n.Attr("points")
		pts := points(v)
		if len(pts) == 0 {
			return box{}, false
		}
		b := box{x0: pts[0][0], y0: pts[0][1], x1: pts[0][0], y1: pts[0][1]}
		for _, pt := range pts[1:] {
			b = b.union(box{x0: pt[0], y0: pt[1], x1: pt[0], y1: pt[1]})
		}
		return b.pad(st.strokeWidth / 2), true
	case "text":
		b, _, err := p.textBox(n, st)
		return b, err == nil
	case "use":
		target := p.ref(n, "href")
		if target == nil || p.depth >= maxUseDepth {
			return box{}, false
		}
		p.depth++
		defer func() { p.depth-- }()
		b, ok := p.bounds(target, st.with(target))
		return b.shift(attrNum(n, "x"), attrNum(n, "y")), ok
	case "g", "svg":
		var (
			out   box
			found bool
		)
		for _, c := range n.Children {
			if isDefinition(c.Tag) {
				continue
			}
			b, ok := p.bounds(c, st.with(c))
			if !ok {
				continue
			}
			if found {
				out = out.union(b)
			} else {
				out, found = b, true
			}
		}
		return out, found
	default:
		return box{}, false
	}
}
