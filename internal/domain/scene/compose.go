package scene

import (
	"fmt"
	"math"
	"strconv"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/geom"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/domain/resource"
)

// Grid layout in canvas units.
const (
	Columns = 5
	gridX   = 42
	gridY   = 176
	pitchX  = 168
	pitchY  = 136
)

// FooterText is printed bottom right of the panel.
const FooterText = "Arcaea Toolbelt@AOL B30"

const ink = "#231731"

var sideGlow = map[model.Side]string{
	model.SideLight:     "#376e99",
	model.SideConflict:  "#8456b3",
	model.SideColorless: "#d4c6d4",
}

type composer struct {
	rc   model.RenderContext
	kind resource.Kind
	t    geom.Transform
}

// Compose builds the scoreboard tree. Every href uses the representation
// named by rc.Kind; a resource missing it aborts the whole composition.
func Compose(rc model.RenderContext) (*Node, error) {
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}
	c := &composer{rc: rc, kind: rc.Kind, t: geom.Scaled(rc.Scale)}
	return c.root()
}

func (c *composer) href(name string, r *resource.Resource) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%s: %w", name, errs.ErrResourceNotFound)
	}
	u, err := r.URL(c.kind)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return u, nil
}

func (c *composer) root() (*Node, error) {
	t := c.t
	canvas := t.Point(model.Canvas.Width, model.Canvas.Height)

	svg := El("svg").
		Set("class", "b30").
		Set("xmlns", "http://www.w3.org/2000/svg").
		Set("viewBox", "0 0 "+geom.FormatNumber(canvas.X)+" "+geom.FormatNumber(canvas.Y)).
		Num("width", canvas.X).
		Num("height", canvas.Y)

	font, err := c.href("font", c.rc.Font)
	if err != nil {
		return nil, err
	}
	svg.Append(El("style").Content(`@font-face{font-family:Exo;src:url("` + font + `")format("woff2");}`))

	defs, err := c.mainDefs(canvas)
	if err != nil {
		return nil, err
	}
	svg.Append(defs, c.cardDefs())

	brand, err := c.href("brand", c.rc.Brand)
	if err != nil {
		return nil, err
	}
	brandSize, err := geom.Resize(c.rc.Brand.Size(), geom.SizeHint{Width: 300})
	if err != nil {
		return nil, fmt.Errorf("brand: %w", err)
	}
	svg.Append(
		El("use").Set("href", "#bg"),
		El("use").Set("href", "#panel"),
		El("image").Set("href", brand).Sized(t.Size(brandSize)).At(t.Point(0, 24)),
		El("use").Set("href", "#generator-info").At(t.Point(666, 80)),
		El("use").Set("href", "#player-info").At(t.Point(330, 100)),
	)

	for i, row := range geom.Grid(c.rc.Scoreboard.Cards(), Columns) {
		for j, item := range row {
			card, err := c.card(i*Columns+j, item, t.Translate(float64(gridX+j*pitchX), float64(gridY+i*pitchY)))
			if err != nil {
				return nil, fmt.Errorf("card %d: %w", item.Rank, err)
			}
			svg.Append(card)
		}
	}
	return svg, nil
}

func (c *composer) mainDefs(canvas geom.Vector2D) (*Node, error) { //nolint:funlen // mirrors the layout
	t, rc := c.t, c.rc
	whole, fraction := ParsePotential(rc.Scoreboard.Potential)

	course, err := c.href("course", rc.Course)
	if err != nil {
		return nil, err
	}
	courseSize, err := geom.Resize(rc.Course.Size(), geom.SizeHint{Height: 37})
	if err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	bg, err := c.href("background", rc.Background)
	if err != nil {
		return nil, err
	}
	bgSize := rc.Background.Size()
	if bgSize.X <= 0 || bgSize.Y <= 0 {
		return nil, fmt.Errorf("background size %vx%v: %w", bgSize.X, bgSize.Y, errs.ErrInvalidArgument)
	}
	zoom := math.Max(canvas.X/bgSize.X, canvas.Y/bgSize.Y)
	avatar, err := c.href("avatar", rc.Avatar)
	if err != nil {
		return nil, err
	}
	avatarSize, err := geom.Resize(rc.Avatar.Size(), geom.SizeHint{Height: 72})
	if err != nil {
		return nil, fmt.Errorf("avatar: %w", err)
	}
	badge, err := c.href("rating badge", rc.Scoreboard.RatingBadge)
	if err != nil {
		return nil, err
	}
	badgeSize, err := geom.Resize(rc.Scoreboard.RatingBadge.Size(), geom.SizeHint{Width: 44})
	if err != nil {
		return nil, fmt.Errorf("rating badge: %w", err)
	}

	blur := El("filter").Set("id", "bg-blur-filter").Append(
		El("feGaussianBlur").Num("stdDeviation", t.Zoom(5)).Set("in", "BackgroundImage"),
	)
	blurPart := El("rect").Set("id", "bg-blur-part").At(t.Point(24, 116)).Sized(t.Size(geom.Size{Width: 852, Height: 930}))
	blurClip := El("clipPath").Set("id", "bg-blur-clip").Append(El("use").Set("href", "#bg-blur-part"))

	generator := El("g").Set("id", "generator-info").Append(
		El("text").Num("font-size", t.Zoom(12)).Set("font-weight", "bold").Set("fill", rc.Theme.GeneratorText).
			Content("Generated on:"),
		El("text").At(t.Point(0, 24)).Num("font-size", t.Zoom(18)).Set("font-weight", "bold").Set("fill", rc.Theme.GeneratorText).
			Content(rc.Scoreboard.DateLabel()),
	)

	banner := El("g").Set("id", "course-banner").Append(
		El("clipPath").Set("id", "course-right").Append(
			El("rect").Sized(t.Size(geom.Size{Width: 230, Height: 37})),
		),
		El("image").Set("href", course).Sized(t.Size(courseSize)).Set("clip-path", "url(#course-right)"),
	)

	background := El("image").Set("id", "bg").Set("href", bg).
		Sized(geom.Size{Width: bgSize.X * zoom, Height: bgSize.Y * zoom})

	avatarGroup := El("g").Set("id", "avatar-and-potential").Append(
		El("filter").Set("id", "avatar-shadow").Append(
			El("feDropShadow").Num("dx", t.Zoom(0)).Num("dy", t.Zoom(0)).Num("stdDeviation", t.Zoom(3)).Set("flood-color", ink),
		),
		El("image").Set("href", avatar).Sized(t.Size(avatarSize)).Set("filter", "url(#avatar-shadow)"),
		El("image").Set("href", badge).Sized(t.Size(badgeSize)).At(t.Point(39, 31)),
		El("text").Set("font-family", "Exo").Set("text-anchor", "end").Num("font-size", t.Zoom(22)).
			Set("stroke", ink).Num("stroke-width", t.Zoom(1.3)).Set("fill", "white").At(t.Point(58, 60)).
			Content(whole),
		El("text").Set("font-family", "Exo").Set("text-anchor", "start").Num("font-size", t.Zoom(18)).
			Set("stroke", ink).Num("stroke-width", t.Zoom(1)).Set("fill", "white").At(t.Point(58, 60)).
			Content(fraction),
	)

	player := El("g").Set("id", "player-info").Append(
		El("use").Set("href", "#course-banner"),
		El("use").Set("href", "#avatar-and-potential").At(t.Point(183, -15)),
		El("text").At(t.Point(105, 25)).Set("text-anchor", "middle").Num("font-size", t.Zoom(16)).
			Set("fill", rc.Theme.PlayerText).Content(rc.Scoreboard.Player),
	)

	panel := El("g").Set("id", "panel").Append(
		El("use").Set("href", "#bg").Set("clip-path", "url(#bg-blur-clip)").Set("filter", `url("#bg-blur-filter")`),
		El("use").Set("href", "#bg-blur-part").Set("fill", "rgba(0, 0, 0, 0.1)"),
		El("text").Set("fill", rc.Theme.FooterText).Num("font-size", t.Zoom(12)).Set("text-anchor", "end").
			At(t.Point(model.Canvas.Width-36, model.Canvas.Height-12)).Content(FooterText),
	)

	return El("defs").Append(blur, blurPart, blurClip, generator, banner, background, avatarGroup, player, panel), nil
}

func stop(offset, colour string) *Node {
	return El("stop").Set("offset", offset).Set("stop-color", colour)
}

func dropShadow(t geom.Transform, dx, dy, std float64, colour string) *Node {
	return El("feDropShadow").Num("dx", t.Zoom(dx)).Num("dy", t.Zoom(dy)).Num("stdDeviation", t.Zoom(std)).Set("flood-color", colour)
}

type badgeStyle struct {
	glyph  string
	fill   *Node
	text   *Node
	shadow *Node
	stroke string
	ink    string
	edge   string
	dx     float64
}

func (c *composer) clearBadges() []*Node {
	t := c.t
	radial := func(id string, stops ...*Node) *Node {
		return El("radialGradient").Set("id", id).Append(stops...)
	}
	vertical := func(id, x1, y1, x2, y2 string, stops ...*Node) *Node {
		return El("linearGradient").Set("id", id).Set("x1", x1).Set("y1", y1).Set("x2", x2).Set("y2", y2).Append(stops...)
	}
	styles := map[model.ClearRank]badgeStyle{
		model.ClearTrackLost: {
			glyph: "L", dx: -6, stroke: "#460117", ink: "#bb405f", edge: "#691b32",
			fill: radial("fail-fill", stop("0", "#5a1e3c"), stop("80%", "#2b0a13"), stop("100%", "#170509")),
		},
		model.ClearEasy: {
			glyph: "C", dx: -7, stroke: "#04363c", ink: "#e6ffff", edge: "#699d9d",
			fill: radial("easy-fill", stop("0", "#2b625c"), stop("40%", "#295e57"), stop("90%", "#092030"), stop("100%", "#0a202f")),
		},
		model.ClearNormal: {
			glyph: "C", dx: -7, stroke: "#15254f", ink: "#ffffff", edge: "#2b3568",
			fill: radial("normal-fill", stop("0", "#2e386a"), stop("40%", "#1b233f"), stop("90%", "#101438"), stop("100%", "#0a202f")),
		},
		model.ClearHard: {
			glyph: "C", dx: -7, stroke: "#53092a", ink: "#fec2f0", edge: "#761c39",
			fill: radial("hard-fill", stop("0", "#572135"), stop("40%", "#4c1e31"), stop("90%", "#360c19"), stop("100%", "#220507")),
		},
		model.ClearFull: {
			glyph: "F", dx: -7, stroke: "#642e5d", ink: "url(#full-text-fill)", edge: "#6e3068",
			fill: vertical("full-fill", "50%", "100%", "50%", "0",
				stop("0", "#522456"), stop("40%", "#3a223c"), stop("70%", "#2c192f"), stop("100%", "#140a14")),
			text: vertical("full-text-fill", "0", "100%", "0", "0",
				stop("0", "#ff20ff"), stop("30%", "#ff6cff"), stop("50%", "#ffaeff"), stop("60%", "#ffccff"), stop("100%", "#ffffff")),
			shadow: El("filter").Set("id", "full-shadow").Append(dropShadow(t, -0.5, 2, 1, "#752b6a")),
		},
		model.ClearPure: {
			glyph: "P", dx: -7, stroke: "#433267", ink: "url(#pure-text-fill)", edge: "#2f5c80",
			fill: vertical("pure-fill", "50%", "100%", "50%", "0",
				stop("0", "#2f4f63"), stop("40%", "#2c394e"), stop("70%", "#1e2332"), stop("100%", "#001419")),
			text: vertical("pure-text-fill", "0", "100%", "0", "0",
				stop("0", "#ffffff"), stop("65%", "#ffeeff"), stop("100%", "#ff66ff")),
			shadow: El("filter").Set("id", "pure-shadow").Append(dropShadow(t, -0.5, 2, 1.2, "#2d719a")),
		},
	}

	order := []model.ClearRank{
		model.ClearTrackLost, model.ClearEasy, model.ClearNormal,
		model.ClearHard, model.ClearFull, model.ClearPure,
	}
	out := make([]*Node, 0, len(order))
	for _, rank := range order {
		s := styles[rank]
		g := El("g").Set("id", rank.Symbol()).Append(s.fill)
		if s.text != nil {
			g.Append(s.text)
		}
		if s.shadow != nil {
			g.Append(s.shadow)
		}
		glyph := El("text").Set("fill", s.ink).Set("stroke", s.edge).Num("stroke-width", t.Zoom(0.7)).
			Num("font-size", t.Zoom(20)).Set("font-family", "Exo")
		if s.shadow != nil {
			glyph.Set("filter", "url(#"+s.shadow.ID()+")")
		}
		glyph.At(t.Point(s.dx, 7)).Content(s.glyph)
		g.Append(
			El("use").Set("href", "#clear-hexagon").Set("fill", "url(#"+s.fill.ID()+")").Set("stroke", s.stroke),
			glyph,
		)
		out = append(out, g)
	}
	return out
}

func (c *composer) cardDefs() *Node {
	t := c.t
	defs := El("defs").Append(
		El("filter").Set("id", "number-badge-shadow").Append(dropShadow(t, 1, 1, 2, "#8988a7")),
		El("filter").Set("id", "number-shadow").Append(dropShadow(t, 1, 1, 1, "#4c4c4c")),
		El("linearGradient").Set("id", "number-badge-fill").
			Set("x1", "0").Set("y1", "100%").Set("x2", "50%").Set("y2", "60%").
			Append(stop("0", "#a777be"), stop("100%", "#75658b")),
		El("polygon").Set("id", "number-badge").Set("points", t.Vectors("0,0 30,0 41,10 30,20 0,20")).
			Set("fill", "url(#number-badge-fill)").Set("filter", "url(#number-badge-shadow)"),

		El("linearGradient").Set("id", "left-fading-line").
			Append(stop("0", "rgba(255, 255, 255, 0)"), stop("100%", "rgba(255, 255, 255, 1)")),
		El("polygon").Set("id", "dot").Set("points", t.Vectors("0,1.5 1.5,0 0,-1.5 -1.5,0")).Set("fill", "#ffffff"),
		El("linearGradient").Set("id", "right-fading-line").
			Append(stop("0", "rgba(255, 255, 255, 1)"), stop("100%", "rgba(255, 255, 255, 0)")),

		El("polygon").Set("id", "hexagon").Set("points", t.Vectors("-5,11 4,11 14,0 4,-11 -5,-11 -15,0")),

		El("filter").Set("id", "side-shadow").Append(El("feGaussianBlur").Num("stdDeviation", t.Zoom(5))),

		El("linearGradient").Set("id", "score-banner").Append(
			stop("0", "rgba(41, 27, 57, 0)"), stop("30%", "rgba(41, 27, 57, 1)"), stop("100%", "rgba(41, 27, 57, 1)"),
		),

		El("polygon").Set("id", "clear-hexagon").Set("points", t.Vectors("-5,12 4,12 15,0 4,-12 -5,-12 -16,0")),
	)
	return defs.Append(c.clearBadges()...)
}

func (c *composer) card(index int, item model.PlayResultItem, t geom.Transform) (*Node, error) { //nolint:funlen // mirrors the layout
	score, err := FormatScore(item.Score)
	if err != nil {
		return nil, err
	}
	rankBadge, err := c.href("grade badge", item.RankBadge)
	if err != nil {
		return nil, err
	}
	cover, err := c.href("cover", item.Cover)
	if err != nil {
		return nil, err
	}
	difficulty, err := c.href("difficulty badge", item.DifficultyBadge)
	if err != nil {
		return nil, err
	}
	whole, fraction := ParsePotential(item.Potential)
	level := strconv.Itoa(item.Level)
	if item.Plus {
		level += "+"
	}
	glow, ok := sideGlow[item.Side]
	if !ok {
		glow = sideGlow[model.SideLight]
	}
	clipID := "song-title-clip-" + strconv.Itoa(index)

	return El("g").Append(
		El("rect").Set("fill", "#6b5e88").Sized(t.Size(geom.Size{Width: 142, Height: 97})).At(t.Point(0, 0)),
		El("rect").Set("fill", "#d7bcfa").Sized(t.Size(geom.Size{Width: 142, Height: 18})).At(t.Point(0, 97)),
		El("rect").Set("fill", "#000000").Set("opacity", "0.3").Sized(t.Size(geom.Size{Width: 138, Height: 111})).At(t.Point(2, 2)),
		El("use").Set("href", "#number-badge").At(t.Point(-4, 7)),
		El("text").Set("fill", "#ffffff").Set("text-anchor", "middle").Num("font-size", t.Zoom(12)).
			Set("font-weight", "bold").Set("filter", "url(#number-shadow)").At(t.Point(16, 22)).
			Content("#"+strconv.Itoa(item.Rank)),
		El("text").Set("fill", "#ffffff").Set("text-anchor", "middle").Num("font-size", t.Zoom(5)).At(t.Point(25, 41)).
			Content("POTENTIAL"),
		El("text").Set("fill", "#ffffff").Set("text-anchor", "middle").Num("font-size", t.Zoom(10)).At(t.Point(25, 55)).
			Content(whole+fraction),
		El("rect").Sized(t.Size(geom.Size{Width: 9, Height: 1})).Set("fill", "url(#left-fading-line)").At(t.Point(10, 61)),
		El("use").Set("href", "#dot").At(t.Point(25, 61)),
		El("rect").Sized(t.Size(geom.Size{Width: 9, Height: 1})).Set("fill", "url(#right-fading-line)").At(t.Point(31, 61)),
		El("use").Set("href", "#hexagon").Set("fill", "#dad7e8").At(t.Point(25, 77)),
		El("image").Set("href", rankBadge).Sized(t.Size(geom.Size{Width: 36, Height: 36})).At(t.Point(7, 59)),
		El("rect").Sized(t.Size(geom.Size{Width: 95, Height: 95})).Num("rx", t.Zoom(10)).Num("ry", t.Zoom(10)).
			Set("fill", glow).Set("filter", "url(#side-shadow)").At(t.Point(47, 4)),
		El("rect").Sized(t.Size(geom.Size{Width: 91, Height: 91})).Set("fill", "#291b39").At(t.Point(48, 5)),
		El("image").Set("href", cover).Sized(t.Size(geom.Size{Width: 87, Height: 87})).At(t.Point(50, 7)),
		El("image").Set("href", difficulty).Sized(t.Size(geom.Size{Width: 36, Height: 36})).At(t.Point(122, -12)),
		El("text").Set("fill", "#ffffff").Set("text-anchor", "middle").Num("font-size", t.Zoom(10)).At(t.Point(140, 10)).
			Content(level),
		El("rect").Sized(t.Size(geom.Size{Width: 87, Height: 12})).At(t.Point(50, 82)).Set("fill", "url(#score-banner)"),
		El("text").Num("font-size", t.Zoom(12)).Set("font-weight", "bold").Set("font-family", "Exo").
			Set("fill", "#ffffff").Set("stroke", "#2d1e3e").Num("stroke-width", t.Zoom(0.5)).Set("text-anchor", "end").
			At(t.Point(117, 93)).Content(score),
		El("clipPath").Set("id", clipID).Append(
			El("rect").At(t.Point(9, 95)).Sized(t.Size(geom.Size{Width: 110, Height: 20})),
		),
		El("text").Num("font-size", t.Zoom(12)).Set("font-family", "Exo").Set("fill", "#ffffff").
			Set("stroke", "#2d1e3e").Set("font-weight", "bold").Num("stroke-width", t.Zoom(0.35)).
			Set("clip-path", "url(#"+clipID+")").At(t.Point(9, 110)).Content(item.Title),
		El("use").Set("href", "#"+item.Clear.Symbol()).At(t.Point(138, 95)),
	), nil
}
