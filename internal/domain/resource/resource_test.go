package resource_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/disintegration/imaging"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/geom"
	"github.com/okian/aol-b30/internal/domain/resource"
)

func encodePNG(w, h int, seed uint8) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x*7) + seed, G: uint8(y*13) + seed, B: seed, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func pixels(img image.Image) []uint8 {
	return imaging.Clone(img).Pix
}

func TestKind(t *testing.T) {
	Convey("Given representation names", t, func() {
		for name, want := range map[string]resource.Kind{
			"ephemeral": resource.Ephemeral,
			"embedded":  resource.Embedded,
			"inline":    resource.Embedded,
			"network":   resource.Network,
			"linked":    resource.Network,
		} {
			got, err := resource.ParseKind(name)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}
		_, err := resource.ParseKind("carrier-pigeon")
		So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		So(resource.Network.String(), ShouldEqual, "network")
	})
}

func TestDetail(t *testing.T) {
	Convey("Given an arena and a scope", t, func() {
		ctx := context.Background()
		arena := resource.NewArena()
		scope := arena.Scope()

		Convey("When detailing a png payload", func() {
			res, err := scope.Detail(ctx, resource.File{Name: "cover.png", Data: encodePNG(12, 8, 1)})
			So(err, ShouldBeNil)

			Convey("Then pixel size, mime and handle are derived", func() {
				So(res.Size(), ShouldResemble, geom.Vector2D{X: 12, Y: 8})
				So(res.MIME(), ShouldEqual, "image/png")
				So(res.Ephemeral(), ShouldStartWith, "/blob/")
				So(res.Embedded(), ShouldStartWith, "data:image/png;base64,")
				So(arena.Len(), ShouldEqual, 1)
			})

			Convey("Then a missing origin has no network reference", func() {
				_, err := res.URL(resource.Network)
				So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeTrue)
			})

			Convey("Then releasing the scope frees the handle exactly once", func() {
				scope.Release()
				scope.Release()
				So(arena.Len(), ShouldEqual, 0)
				So(res.Released(), ShouldBeTrue)
				_, err := res.URL(resource.Ephemeral)
				So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeTrue)

				_, err = scope.Detail(ctx, resource.File{Data: encodePNG(1, 1, 0)})
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When detailing garbage", func() {
			_, err := scope.Detail(ctx, resource.File{Name: "broken.jpg", Data: []byte("not an image")})
			So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
			var de *errs.DecodeError
			So(errors.As(err, &de), ShouldBeTrue)
			So(de.Source, ShouldEqual, "broken.jpg")
		})

		Convey("When detailing an empty payload", func() {
			_, err := scope.Detail(ctx, resource.File{})
			So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
		})
	})
}

func TestDetailAll(t *testing.T) {
	Convey("Given a batch with one corrupt item", t, func() {
		ctx := context.Background()
		arena := resource.NewArena(resource.WithConcurrency(2))
		scope := arena.Scope()
		files := []resource.File{
			{Name: "a", Data: encodePNG(1, 1, 0)},
			{Name: "b", Data: []byte{0xde, 0xad}},
			{Name: "c", Data: encodePNG(3, 3, 0)},
			{Name: "d", Data: encodePNG(4, 4, 0)},
		}

		out, err := scope.DetailAll(ctx, files)

		Convey("Then siblings survive in input order", func() {
			So(out, ShouldHaveLength, 4)
			So(out[0].Size().X, ShouldEqual, 1)
			So(out[1], ShouldBeNil)
			So(out[2].Size().X, ShouldEqual, 3)
			So(out[3].Size().X, ShouldEqual, 4)
		})

		Convey("Then the failure is reported as a decode error", func() {
			So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "item 1")
			So(scope.Len(), ShouldEqual, 3)
		})
	})

	Convey("Given a clean batch", t, func() {
		scope := resource.NewArena().Scope()
		out, err := scope.DetailAll(context.Background(), []resource.File{
			{Data: encodePNG(2, 5, 0)}, {Data: encodePNG(5, 2, 0)},
		})
		So(err, ShouldBeNil)
		So(out[0].Size(), ShouldResemble, geom.Vector2D{X: 2, Y: 5})
		So(out[1].Size(), ShouldResemble, geom.Vector2D{X: 5, Y: 2})
	})
}

func TestRepresentationRoundTrip(t *testing.T) {
	Convey("Given a resource with a network origin", t, func() {
		ctx := context.Background()
		payload := encodePNG(16, 9, 40)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(payload)
		}))
		defer srv.Close()

		arena := resource.NewArena()
		scope := arena.Scope()
		defer scope.Release()
		res, err := scope.Detail(ctx, resource.File{Name: "bg.png", URL: srv.URL + "/bg.png", Data: payload})
		So(err, ShouldBeNil)
		resolver := resource.NewResolver(arena, resource.WithHTTPClient(srv.Client()))

		Convey("Then every representation decodes to identical pixels", func() {
			want := pixels(res.Image())
			for _, kind := range []resource.Kind{resource.Ephemeral, resource.Embedded, resource.Network} {
				href, err := res.URL(kind)
				So(err, ShouldBeNil)
				img, err := resolver.Image(ctx, href)
				So(err, ShouldBeNil)
				So(bytes.Equal(pixels(img), want), ShouldBeTrue)
			}
		})

		Convey("Then raw bytes come back unchanged", func() {
			for _, kind := range []resource.Kind{resource.Ephemeral, resource.Embedded, resource.Network} {
				href, _ := res.URL(kind)
				data, err := resolver.Bytes(ctx, href)
				So(err, ShouldBeNil)
				So(bytes.Equal(data, payload), ShouldBeTrue)
			}
		})

		Convey("Then unknown references are not found", func() {
			_, err := resolver.Bytes(ctx, "/blob/"+"00000000-0000-0000-0000-000000000000")
			So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeTrue)
			_, err = resolver.Bytes(ctx, "ftp://example.com/x.png")
			So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeTrue)
		})
	})
}

func TestFont(t *testing.T) {
	Convey("Given a font payload", t, func() {
		scope := resource.NewArena().Scope()
		res, err := scope.Font(resource.File{Name: "exo.woff2", Type: "font/woff2", Data: []byte("wOF2 fake")})
		So(err, ShouldBeNil)
		So(res.Image(), ShouldBeNil)
		So(res.MIME(), ShouldNotBeEmpty)
		So(res.Embedded(), ShouldStartWith, "data:")

		_, err = scope.Font(resource.File{})
		So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
	})
}

func TestDataURL(t *testing.T) {
	Convey("Given data urls", t, func() {
		mime, data, err := resource.ParseDataURL(resource.DataURL("text/plain", []byte("hi")))
		So(err, ShouldBeNil)
		So(mime, ShouldEqual, "text/plain")
		So(string(data), ShouldEqual, "hi")

		mime, data, err = resource.ParseDataURL("data:text/plain,a%20b")
		So(err, ShouldBeNil)
		So(mime, ShouldEqual, "text/plain")
		So(string(data), ShouldEqual, "a b")

		_, _, err = resource.ParseDataURL("http://x")
		So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
	})
}
