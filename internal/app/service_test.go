package service_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aol-b30/internal/adapters/export"
	"github.com/okian/aol-b30/internal/adapters/host"
	service "github.com/okian/aol-b30/internal/app"
	"github.com/okian/aol-b30/internal/app/picker"
	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/resource"
	"github.com/okian/aol-b30/internal/sample"
	"github.com/okian/aol-b30/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var fixedClock = func() time.Time { return time.Date(2024, time.March, 5, 8, 9, 7, 0, time.UTC) }

// newLocal writes sample assets for resp and opens a local host over them.
func newLocal(t *testing.T, resp host.Best30Response, opts ...host.LocalOption) *host.Local {
	t.Helper()
	dir := t.TempDir()
	if err := sample.WriteAssets(dir, resp); err != nil {
		t.Fatalf("write assets: %v", err)
	}
	local, err := host.NewLocal(dir, "", opts...)
	if err != nil {
		t.Fatalf("open local host: %v", err)
	}
	return local
}

// withGrade copies resp with the grade of entry i replaced.
func withGrade(resp host.Best30Response, i int, grade string) host.Best30Response {
	resp.B30 = append([]host.Best30Entry(nil), resp.B30...)
	resp.B30[i].Score.Grade = grade
	return resp
}

func waitReady(svc *service.Service) bool {
	select {
	case <-svc.Ready():
		return true
	case <-time.After(5 * time.Second):
		return false
	}
}

func TestQuality(t *testing.T) {
	Convey("Given scales", t, func() {
		So(service.Quality(1), ShouldEqual, "low")
		So(service.Quality(1.5), ShouldEqual, "low")
		So(service.Quality(2), ShouldEqual, "ok")
		So(service.Quality(3), ShouldEqual, "high")
		So(service.Quality(4), ShouldEqual, "high")
	})
}

func TestService(t *testing.T) {
	Convey("Given a service over a local host", t, func() {
		ctx := context.Background()
		resp := sample.Scoreboard(12, 7)
		local := newLocal(t, resp)
		svc := service.New(local, service.WithClock(fixedClock), service.WithDefaultScale(1))
		defer svc.Stop()

		Convey("When nothing has started", func() {
			_, err := svc.RenderContext(0, resource.Ephemeral)
			So(errors.Is(err, errs.ErrNotReady), ShouldBeTrue)
			So(errors.Is(svc.Enqueue(ctx, resp), errs.ErrNotReady), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		So(svc.Start(ctx), ShouldBeNil)
		So(waitReady(svc), ShouldBeTrue)

		Convey("When no scoreboard is installed", func() {
			_, err := svc.Preview(0)
			So(errors.Is(err, errs.ErrNotReady), ShouldBeTrue)
			stats := svc.GetStats()
			So(stats["ready"], ShouldEqual, true)
			_, hasPlayer := stats["player"]
			So(hasPlayer, ShouldBeFalse)
		})

		Convey("When a scoreboard is installed", func() {
			So(svc.Install(ctx, resp), ShouldBeNil)

			board, ok := svc.Scoreboard()
			So(ok, ShouldBeTrue)
			So(board.Player, ShouldEqual, "sample-player")
			So(board.Potential, ShouldAlmostEqual, 12.34)
			So(board.Items, ShouldHaveLength, 12)
			So(board.Items[0].Rank, ShouldEqual, 1)
			So(board.Items[3].Title, ShouldEqual, "Sample Song 4 (Override)")
			So(board.RatingBadge, ShouldNotBeNil)

			Convey("Then the render context carries the pickers", func() {
				rc, err := svc.RenderContext(0, resource.Ephemeral)
				So(err, ShouldBeNil)
				So(rc.Scale, ShouldEqual, 1)
				So(rc.Avatar, ShouldNotBeNil)
				So(rc.Course, ShouldNotBeNil)
				So(rc.Background, ShouldNotBeNil)
				So(rc.Font, ShouldNotBeNil)
			})

			Convey("Then scales outside [1, 4] are rejected", func() {
				for _, scale := range []float64{5, 0.5, -1, math.NaN(), math.Inf(1)} {
					_, err := svc.RenderContext(scale, resource.Ephemeral)
					So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
				}
			})

			Convey("Then the preview uses ephemeral handles served by Blob", func() {
				markup, err := svc.Preview(0)
				So(err, ShouldBeNil)
				So(string(markup), ShouldContainSubstring, "/blob/")

				rc, err := svc.RenderContext(0, resource.Ephemeral)
				So(err, ShouldBeNil)
				res, ok := svc.Blob(rc.Brand.Ephemeral())
				So(ok, ShouldBeTrue)
				So(res.ID(), ShouldEqual, rc.Brand.ID())
			})

			Convey("Then exporting a PNG writes it through the host", func() {
				a, err := svc.Export(ctx, export.FormatPNG, 1)
				So(err, ShouldBeNil)
				So(a.Filename, ShouldEqual, "AOL-b30-2024-2024/03/05 08-09-07.png")

				written := filepath.Join(local.Root(), "exports", host.ExportFileName(a.Filename))
				data, err := os.ReadFile(written)
				So(err, ShouldBeNil)
				So(data, ShouldResemble, a.Data)
			})

			Convey("Then an inline SVG render stays in memory", func() {
				a, err := svc.Render(ctx, export.FormatInlineSVG, 0)
				So(err, ShouldBeNil)
				So(string(a.Data), ShouldContainSubstring, "data:image/png;base64,")
				_, err = os.Stat(filepath.Join(local.Root(), "exports"))
				So(os.IsNotExist(err), ShouldBeTrue)
			})

			Convey("Then reinstalling releases the previous board", func() {
				before := svc.GetStats()["liveHandles"].(int)
				smaller := resp
				smaller.B30 = resp.B30[:3]
				So(svc.Install(ctx, smaller), ShouldBeNil)
				after := svc.GetStats()["liveHandles"].(int)
				So(after, ShouldBeLessThan, before)
				So(svc.GetStats()["items"], ShouldEqual, 3)
				So(svc.GetStats()["installs"], ShouldEqual, 2)
			})

			Convey("Then a failed install leaves no scoreboard", func() {
				bad := withGrade(resp, 1, "Z")
				err := svc.Install(ctx, bad)
				So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeTrue)
				_, ok := svc.Scoreboard()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a scoreboard is enqueued", func() {
			So(svc.Enqueue(ctx, resp), ShouldBeNil)
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				if svc.GetStats()["processed"] == int64(1) {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			_, ok := svc.Scoreboard()
			So(ok, ShouldBeTrue)
			So(svc.GetStats()["processed"], ShouldEqual, int64(1))
		})

		Convey("When the same scoreboard is pushed twice", func() {
			So(svc.Enqueue(ctx, resp), ShouldBeNil)
			So(svc.Enqueue(ctx, resp), ShouldBeNil)
			So(svc.GetStats()["duplicates"], ShouldEqual, 1)

			Convey("Then a different push is queued", func() {
				other := resp
				other.B30 = resp.B30[:3]
				So(svc.Enqueue(ctx, other), ShouldBeNil)
				So(svc.GetStats()["duplicates"], ShouldEqual, 1)
			})
		})

		Convey("When a pushed scoreboard fails to install", func() {
			bad := withGrade(resp, 0, "Z")
			So(svc.Enqueue(ctx, bad), ShouldBeNil)
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				if svc.GetStats()["failed"] == int64(1) {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			So(svc.GetStats()["failed"], ShouldEqual, int64(1))

			Convey("Then the same push may be retried", func() {
				So(svc.Enqueue(ctx, bad), ShouldBeNil)
				So(svc.GetStats()["duplicates"], ShouldEqual, 0)
			})
		})

		Convey("When a slot is picked", func() {
			pickCtx := host.WithChoice(ctx, host.BasicSelection{Index: 1})
			ok, err := svc.Pick(pickCtx, picker.SlotCourse)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			pref, err := local.GetPreference(ctx)
			So(err, ShouldBeNil)
			So(pref.Course, ShouldEqual, 2)

			_, err = svc.Pick(ctx, picker.Slot("hat"))
			So(errors.Is(err, picker.ErrUnknownSlot), ShouldBeTrue)
		})
	})

	Convey("Given a host missing the font", t, func() {
		resp := sample.Scoreboard(2, 1)
		local := newLocal(t, resp)
		So(os.Remove(filepath.Join(local.Root(), filepath.FromSlash(sample.FontAsset))), ShouldBeNil)

		svc := service.New(local)
		defer svc.Stop()
		So(svc.Start(context.Background()), ShouldBeNil)
		So(waitReady(svc), ShouldBeTrue)

		So(svc.GetStats()["ready"], ShouldEqual, false)
		err := svc.Install(context.Background(), resp)
		So(errors.Is(err, errs.ErrNotReady), ShouldBeTrue)
	})
}
