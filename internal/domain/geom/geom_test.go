package geom_test

import (
	"errors"
	"testing"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/geom"
	"github.com/smartystreets/goconvey/convey"
)

func TestTransform(t *testing.T) {
	convey.Convey("Given a transform rooted at (3, 4) with scale 2", t, func() {
		tr := geom.New(3, 4, 2)

		convey.Convey("Then point applies the offset before the scale", func() {
			convey.So(tr.Point(1, 1), convey.ShouldResemble, geom.Vector2D{X: 8, Y: 10})
			convey.So(tr.Point(0, 0), convey.ShouldResemble, geom.Vector2D{X: 6, Y: 8})
		})

		convey.Convey("Then size and zoom only scale", func() {
			convey.So(tr.Size(geom.Size{Width: 10, Height: 5}), convey.ShouldResemble, geom.Size{Width: 20, Height: 10})
			convey.So(tr.Zoom(1.5), convey.ShouldEqual, 3)
		})

		convey.Convey("Then translate(dx, dy).point(0, 0) equals point(dx, dy)", func() {
			for _, d := range [][2]float64{{0, 0}, {1, 2}, {-7.5, 3}, {168, 136}} {
				convey.So(tr.Translate(d[0], d[1]).Point(0, 0), convey.ShouldResemble, tr.Point(d[0], d[1]))
			}
		})

		convey.Convey("Then translations compose additively", func() {
			a := tr.Translate(1, 2).Translate(3, 4)
			b := tr.Translate(4, 6)
			convey.So(a, convey.ShouldResemble, b)
			convey.So(a.Point(5, 5), convey.ShouldResemble, b.Point(5, 5))
		})

		convey.Convey("Then translate leaves the parent untouched", func() {
			_ = tr.Translate(100, 100)
			convey.So(tr.Origin(), convey.ShouldResemble, geom.Vector2D{X: 3, Y: 4})
			convey.So(tr.Scale(), convey.ShouldEqual, 2)
		})
	})

	convey.Convey("Given a polygon point list", t, func() {
		convey.Convey("When scaled by 2", func() {
			out := geom.Scaled(2).Vectors("0,0 30,0  41,10 30,20 0,20")
			convey.So(out, convey.ShouldEqual, "0,0 60,0 82,20 60,40 0,40")
		})

		convey.Convey("When scaled by 1.5 with negatives", func() {
			out := geom.Scaled(1.5).Vectors("-5,11 4,-11")
			convey.So(out, convey.ShouldEqual, "-7.5,16.5 6,-16.5")
		})
	})
}

func TestFormatNumber(t *testing.T) {
	convey.Convey("Given floating point noise", t, func() {
		convey.So(geom.FormatNumber(0.1*3), convey.ShouldEqual, "0.3")
		convey.So(geom.FormatNumber(900), convey.ShouldEqual, "900")
		convey.So(geom.FormatNumber(-0.00001), convey.ShouldEqual, "0")
		convey.So(geom.FormatNumber(-2.5), convey.ShouldEqual, "-2.5")
	})
}

func TestResize(t *testing.T) {
	convey.Convey("Given a 100x50 ratio", t, func() {
		ratio := geom.Vector2D{X: 100, Y: 50}

		convey.Convey("When a width is given", func() {
			s, err := geom.Resize(ratio, geom.SizeHint{Width: 200})
			convey.So(err, convey.ShouldBeNil)
			convey.So(s, convey.ShouldResemble, geom.Size{Width: 200, Height: 100})
		})

		convey.Convey("When a height is given", func() {
			s, err := geom.Resize(ratio, geom.SizeHint{Height: 25})
			convey.So(err, convey.ShouldBeNil)
			convey.So(s, convey.ShouldResemble, geom.Size{Width: 50, Height: 25})
		})

		convey.Convey("When neither is given", func() {
			_, err := geom.Resize(ratio, geom.SizeHint{})
			convey.So(errors.Is(err, errs.ErrInvalidArgument), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a degenerate ratio", t, func() {
		_, err := geom.Resize(geom.Vector2D{}, geom.SizeHint{Width: 10})
		convey.So(errors.Is(err, errs.ErrInvalidArgument), convey.ShouldBeTrue)
	})
}

func TestGrid(t *testing.T) {
	convey.Convey("Given 30 items in 5 columns", t, func() {
		items := make([]int, 30)
		for i := range items {
			items[i] = i
		}
		rows := geom.Grid(items, 5)

		convey.So(rows, convey.ShouldHaveLength, 6)
		for i, row := range rows {
			convey.So(row, convey.ShouldHaveLength, 5)
			convey.So(row[0], convey.ShouldEqual, i*5)
		}
	})

	convey.Convey("Given 7 items in 5 columns", t, func() {
		rows := geom.Grid([]string{"a", "b", "c", "d", "e", "f", "g"}, 5)
		convey.So(rows, convey.ShouldHaveLength, 2)
		convey.So(rows[0], convey.ShouldResemble, []string{"a", "b", "c", "d", "e"})
		convey.So(rows[1], convey.ShouldResemble, []string{"f", "g"})
	})

	convey.Convey("Given nothing", t, func() {
		convey.So(geom.Grid([]int{}, 5), convey.ShouldBeNil)
		convey.So(geom.Grid([]int{1}, 0), convey.ShouldBeNil)
	})
}
