package scene_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/resource"
	"github.com/okian/aol-b30/internal/domain/scene"
	"github.com/okian/aol-b30/internal/sample"
)

func TestFormatScore(t *testing.T) {
	Convey("Given scores", t, func() {
		cases := map[int]string{
			0:        "00'000'000",
			9876543:  "09'876'543",
			10002221: "10'002'221",
			99999999: "99'999'999",
		}
		for in, want := range cases {
			got, err := scene.FormatScore(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		_, err := scene.FormatScore(-1)
		So(errors.Is(err, errs.ErrFormatViolation), ShouldBeTrue)
		_, err = scene.FormatScore(100000000)
		So(errors.Is(err, errs.ErrFormatViolation), ShouldBeTrue)
	})
}

func TestParsePotential(t *testing.T) {
	Convey("Given potentials", t, func() {
		whole, fraction := scene.ParsePotential(12.345)
		So(whole, ShouldEqual, "12")
		So(fraction, ShouldEqual, ".34")

		whole, fraction = scene.ParsePotential(9.005)
		So(whole, ShouldEqual, "9")
		So(fraction, ShouldEqual, ".00")

		whole, fraction = scene.ParsePotential(0)
		So(whole, ShouldEqual, "0")
		So(fraction, ShouldEqual, ".00")
	})
}

func cards(root *scene.Node) []*scene.Node {
	var out []*scene.Node
	for _, c := range root.Children {
		if c.Tag == "g" && c.ID() == "" {
			out = append(out, c)
		}
	}
	return out
}

func TestCompose(t *testing.T) {
	Convey("Given a full scoreboard", t, func() {
		ctx := context.Background()
		arena := resource.NewArena()
		scope := arena.Scope()
		defer scope.Release()
		rc, err := sample.RenderContext(ctx, scope, 30)
		So(err, ShouldBeNil)

		Convey("When composing at scale 1", func() {
			root, err := scene.Compose(rc)
			So(err, ShouldBeNil)

			Convey("Then the canvas is 900x1046", func() {
				w, _ := root.Attr("width")
				h, _ := root.Attr("height")
				vb, _ := root.Attr("viewBox")
				So(w, ShouldEqual, "900")
				So(h, ShouldEqual, "1046")
				So(vb, ShouldEqual, "0 0 900 1046")
			})

			Convey("Then 30 cards form six rows of five, row-major", func() {
				cs := cards(root)
				So(cs, ShouldHaveLength, 30)
				first, _ := cs[0].Children[0].Attr("x")
				So(first, ShouldEqual, "42")
				sixth := cs[5].Children[0]
				x, _ := sixth.Attr("x")
				y, _ := sixth.Attr("y")
				So(x, ShouldEqual, "42")
				So(y, ShouldEqual, "312")
				last := cs[29].Children[0]
				x, _ = last.Attr("x")
				y, _ = last.Attr("y")
				So(x, ShouldEqual, "714")
				So(y, ShouldEqual, "856")
			})

			Convey("Then card text carries rank, score and potential", func() {
				var texts []string
				cards(root)[0].Walk(func(n *scene.Node) bool {
					if n.Tag == "text" {
						texts = append(texts, n.Text)
					}
					return true
				})
				So(texts, ShouldContain, "#1")
				So(texts, ShouldContain, "09'900'000")
				So(texts, ShouldContain, "12.50")
				So(texts, ShouldContain, "9+")
			})

			Convey("Then the six clear badges are defined", func() {
				for _, id := range []string{"pure", "full", "hard", "normal", "easy", "fail"} {
					So(root.Find(id), ShouldNotBeNil)
				}
			})

			Convey("Then every href is an ephemeral handle or a local reference", func() {
				for _, h := range root.Hrefs() {
					ok := strings.HasPrefix(h, "#") || strings.HasPrefix(h, arena.Prefix())
					So(ok, ShouldBeTrue)
				}
			})

			Convey("Then the potential is split into integer and fraction", func() {
				g := root.Find("avatar-and-potential")
				So(g, ShouldNotBeNil)
				So(g.Children[3].Text, ShouldEqual, "12")
				So(g.Children[4].Text, ShouldEqual, ".34")
			})
		})

		Convey("When composing with each representation", func() {
			for _, kind := range []resource.Kind{resource.Embedded, resource.Network} {
				root, err := scene.Compose(rc.WithKind(kind))
				So(err, ShouldBeNil)
				for _, h := range root.Hrefs() {
					if strings.HasPrefix(h, "#") {
						continue
					}
					if kind == resource.Embedded {
						So(h, ShouldStartWith, "data:")
					} else {
						So(h, ShouldStartWith, sample.Origin)
					}
				}
			}
		})

		Convey("When composing at scale 2", func() {
			root, err := scene.Compose(rc.WithScale(2))
			So(err, ShouldBeNil)
			w, _ := root.Attr("width")
			So(w, ShouldEqual, "1800")
			x, _ := cards(root)[1].Children[0].Attr("x")
			So(x, ShouldEqual, "420")
		})

		Convey("When a score does not fit eight digits", func() {
			rc.Scoreboard.Items[3].Score = 123456789
			_, err := scene.Compose(rc)
			So(errors.Is(err, errs.ErrFormatViolation), ShouldBeTrue)
		})

		Convey("When a cover was released", func() {
			scope.Release()
			_, err := scene.Compose(rc)
			So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeTrue)
		})

		Convey("When a resource is missing", func() {
			rc.Brand = nil
			_, err := scene.Compose(rc)
			So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeTrue)
		})
	})

	Convey("Given seven cards", t, func() {
		scope := resource.NewArena().Scope()
		defer scope.Release()
		rc, err := sample.RenderContext(context.Background(), scope, 7)
		So(err, ShouldBeNil)

		root, err := scene.Compose(rc)
		So(err, ShouldBeNil)
		cs := cards(root)
		So(cs, ShouldHaveLength, 7)
		y, _ := cs[5].Children[0].Attr("y")
		So(y, ShouldEqual, "312")
		x, _ := cs[6].Children[0].Attr("x")
		So(x, ShouldEqual, "210")
	})
}

func TestRefID(t *testing.T) {
	Convey("Given references", t, func() {
		for in, want := range map[string]string{
			"#bg":                    "bg",
			"url(#bg-blur-clip)":     "bg-blur-clip",
			`url("#bg-blur-filter")`: "bg-blur-filter",
		} {
			got, ok := scene.RefID(in)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, want)
		}
		_, ok := scene.RefID("rgba(0, 0, 0, 0.1)")
		So(ok, ShouldBeFalse)
	})
}
