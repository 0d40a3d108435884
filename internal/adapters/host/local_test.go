package host_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/domain/errs"
	"github.com/okian/aol-b30/internal/domain/model"
	"github.com/okian/aol-b30/internal/sample"
)

func TestAssetPaths(t *testing.T) {
	Convey("Given asset references", t, func() {
		So(host.CharacterPath(model.CharacterImage{ID: 5, Kind: "icon", Status: model.StatusInitial}), ShouldEqual, "img/char/5_icon.png")
		So(host.CharacterPath(model.CharacterImage{ID: 5, Kind: "icon", Status: model.StatusAwaken}), ShouldEqual, "img/char/5u_icon.png")
		So(host.CharacterPath(model.CharacterImage{ID: 5, Kind: "icon", Status: model.StatusLost}), ShouldEqual, "img/char/5l_icon.png")
		So(host.BannerPath(3), ShouldEqual, "img/course/banner/3.png")
		So(host.CoverPath(host.CoverRef{SongID: "grievouslady", Difficulty: int(model.DifficultyFuture)}), ShouldEqual, "songs/grievouslady/future.jpg")
		So(host.GradePath("EX+"), ShouldEqual, "img/grade/ex-plus.png")
		So(host.RatingPath(-1), ShouldEqual, "img/rating_off.png")
		So(host.RatingPath(0), ShouldEqual, "img/rating_0.png")
		So(host.RatingPath(1100), ShouldEqual, "img/rating_4.png")
		So(host.RatingPath(1299), ShouldEqual, "img/rating_6.png")
		So(host.RatingPath(1300), ShouldEqual, "img/rating_7.png")
		So(host.ExportFileName("AOL-b30-2024-2024/03/05 08-09-07.png"), ShouldEqual, "AOL-b30-2024-2024-03-05 08-09-07.png")
	})
}

func TestLocalPreference(t *testing.T) {
	Convey("Given a local host in an empty directory", t, func() {
		dir := t.TempDir()
		ctx := context.Background()
		l, err := host.NewLocal(dir, "")
		So(err, ShouldBeNil)

		Convey("When nothing was saved the preference is empty", func() {
			p, err := l.GetPreference(ctx)
			So(err, ShouldBeNil)
			So(p, ShouldResemble, model.UserPreference{})
		})

		Convey("When a preference is saved it reads back", func() {
			want := model.UserPreference{
				Avatar:     model.CharacterAvatar(model.CharacterImage{ID: 7, Kind: "icon", Status: model.StatusAwaken}),
				Course:     4,
				Background: model.URLBackground("https://cdn.test/custom.png"),
			}
			So(l.SavePreference(ctx, want), ShouldBeNil)
			got, err := l.GetPreference(ctx)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, want)

			data, err := os.ReadFile(filepath.Join(dir, "preference.yaml"))
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, "course: 4")
		})

		Convey("When the file is corrupt a decode error is returned", func() {
			So(os.WriteFile(filepath.Join(dir, "preference.yaml"), []byte("avatar: ["), 0o600), ShouldBeNil)
			_, err := l.GetPreference(ctx)
			So(errors.Is(err, errs.ErrDecode), ShouldBeTrue)
		})
	})
}

func TestLocalAssets(t *testing.T) {
	Convey("Given a directory of sample assets", t, func() {
		dir := t.TempDir()
		ctx := context.Background()
		resp := sample.Scoreboard(4, 1)
		So(sample.WriteAssets(dir, resp), ShouldBeNil)

		Convey("When assets are served as file urls", func() {
			l, err := host.NewLocal(dir, "")
			So(err, ShouldBeNil)
			urls, err := l.ResolveBanners(ctx, []int{1, 2})
			So(err, ShouldBeNil)
			So(urls[0], ShouldStartWith, "file://")
			So(urls[1], ShouldEndWith, "img/course/banner/2.png")

			files, err := l.GetImages(ctx, urls)
			So(err, ShouldBeNil)
			So(files, ShouldHaveLength, 2)
			So(files[0].URL, ShouldEqual, urls[0])
			So(len(files[0].Data), ShouldBeGreaterThan, 0)
		})

		Convey("When a base url is configured", func() {
			l, err := host.NewLocal(dir, "https://assets.test/b30")
			So(err, ShouldBeNil)
			u, err := l.ResolvePotentialBadge(ctx, resp.Rating)
			So(err, ShouldBeNil)
			So(u, ShouldStartWith, "https://assets.test/b30/img/rating_")

			files, err := l.GetImages(ctx, []string{u})
			So(err, ShouldBeNil)
			So(files[0].Name, ShouldStartWith, "rating_")
		})

		Convey("When an asset is missing", func() {
			l, err := host.NewLocal(dir, "")
			So(err, ShouldBeNil)
			urls, err := l.ResolveAssets(ctx, []string{"img/nothing.png"})
			So(err, ShouldBeNil)
			_, err = l.GetImages(ctx, urls)
			So(errors.Is(err, errs.ErrResourceNotFound), ShouldBeTrue)
		})

		Convey("When characters and the scoreboard are read", func() {
			l, err := host.NewLocal(dir, "")
			So(err, ShouldBeNil)
			chars, err := l.GetAllCharacters(ctx)
			So(err, ShouldBeNil)
			So(len(chars), ShouldBeGreaterThan, 1)

			board, err := host.LoadScoreboard(filepath.Join(dir, sample.ScoreboardAsset))
			So(err, ShouldBeNil)
			So(board.B30, ShouldHaveLength, 4)
			So(board.Username, ShouldEqual, resp.Username)
		})

		Convey("When the directory has no character list", func() {
			l, err := host.NewLocal(t.TempDir(), "")
			So(err, ShouldBeNil)
			chars, err := l.GetAllCharacters(ctx)
			So(err, ShouldBeNil)
			So(chars, ShouldResemble, []host.Character{{ID: 0}})

			info, err := l.GetAssetsInfo(ctx)
			So(err, ShouldBeNil)
			So(info.Banners, ShouldHaveLength, model.Courses)
		})
	})
}

func TestLocalPick(t *testing.T) {
	Convey("Given a local host with the default chooser", t, func() {
		ctx := context.Background()
		l, err := host.NewLocal(t.TempDir(), "")
		So(err, ShouldBeNil)
		candidates := []host.Candidate{{URL: "a"}, {URL: "b"}}

		Convey("When no choice is carried the pick is cancelled", func() {
			sel, err := l.PickImage(ctx, candidates, host.PickOptions{})
			So(err, ShouldBeNil)
			So(sel, ShouldBeNil)
		})

		Convey("When the context carries a candidate", func() {
			sel, err := l.PickImage(host.WithChoice(ctx, host.BasicSelection{Index: 1}), candidates, host.PickOptions{})
			So(err, ShouldBeNil)
			So(sel, ShouldResemble, host.BasicSelection{Index: 1})
		})

		Convey("When the index is out of range", func() {
			_, err := l.PickImage(host.WithChoice(ctx, host.BasicSelection{Index: 2}), candidates, host.PickOptions{})
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When an upload is offered where none is accepted", func() {
			ctx := host.WithChoice(ctx, host.CustomSelection{ResourceURL: "https://cdn.test/up.png"})
			_, err := l.PickImage(ctx, candidates, host.PickOptions{Title: "course"})
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)

			sel, err := l.PickImage(ctx, candidates, host.PickOptions{Custom: &host.Custom{Single: "custom/bg"}})
			So(err, ShouldBeNil)
			So(sel, ShouldResemble, host.CustomSelection{ResourceURL: "https://cdn.test/up.png"})
		})
	})

	Convey("Given a custom chooser", t, func() {
		l, err := host.NewLocal(t.TempDir(), "", host.WithChooser(
			func(_ context.Context, c []host.Candidate, _ host.PickOptions) (host.Selection, error) {
				return host.BasicSelection{Index: len(c) - 1}, nil
			}))
		So(err, ShouldBeNil)
		sel, err := l.PickImage(context.Background(), []host.Candidate{{URL: "a"}, {URL: "b"}}, host.PickOptions{})
		So(err, ShouldBeNil)
		So(sel, ShouldResemble, host.BasicSelection{Index: 1})
	})
}

func TestLocalExport(t *testing.T) {
	Convey("Given a local host with an export directory", t, func() {
		out := t.TempDir()
		l, err := host.NewLocal(t.TempDir(), "", host.WithExportDir(out))
		So(err, ShouldBeNil)

		err = l.ExportAsImage(context.Background(), host.Blob{Data: []byte("<svg/>"), Type: "image/svg+xml"},
			host.ExportOptions{Filename: "AOL-b30-2024-2024/03/05 08-09-07.svg"})
		So(err, ShouldBeNil)

		entries, err := os.ReadDir(out)
		So(err, ShouldBeNil)
		So(entries, ShouldHaveLength, 1)
		So(entries[0].Name(), ShouldEqual, "AOL-b30-2024-2024-03-05 08-09-07.svg")
		So(strings.Contains(entries[0].Name(), "/"), ShouldBeFalse)

		err = l.ExportAsImage(context.Background(), host.Blob{}, host.ExportOptions{})
		So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
	})
}
