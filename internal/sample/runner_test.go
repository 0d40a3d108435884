package sample_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/sample"
)

// fakeService installs whatever is posted to /scoreboard immediately.
func fakeService(width, height int) *httptest.Server {
	var (
		processed atomic.Int64
		items     atomic.Int64
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /state", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(sample.State{
			Ready:     true,
			Items:     int(items.Load()),
			Processed: processed.Load(),
		})
	})
	mux.HandleFunc("POST /scoreboard", func(w http.ResponseWriter, r *http.Request) {
		var resp host.Best30Response
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		items.Store(int64(len(resp.B30)))
		processed.Add(1)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /scoreboard.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(sample.PNG(width, height, 10))
	})
	return httptest.NewServer(mux)
}

func TestRun(t *testing.T) {
	Convey("Given a sample configuration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cfg := &sample.Config{Dir: t.TempDir(), Items: 8, Seed: 3, Timeout: time.Second}

		Convey("When no service is named", func() {
			report, err := sample.Run(ctx, cfg)

			Convey("Then only the assets are written", func() {
				So(err, ShouldBeNil)
				So(report.Items, ShouldEqual, 8)
				So(report.Width, ShouldEqual, 0)
				board, err := host.LoadScoreboard(filepath.Join(cfg.Dir, sample.ScoreboardAsset))
				So(err, ShouldBeNil)
				So(board.B30, ShouldHaveLength, 8)
				_, err = os.Stat(filepath.Join(cfg.Dir, filepath.FromSlash(sample.FontAsset)))
				So(err, ShouldBeNil)
			})
		})

		Convey("When a service renders the full canvas", func() {
			srv := fakeService(900, 1046)
			defer srv.Close()
			cfg.BaseURL = srv.URL
			cfg.Output = filepath.Join(t.TempDir(), "out", "board.png")

			report, err := sample.Run(ctx, cfg)

			Convey("Then the bitmap is checked and saved", func() {
				So(err, ShouldBeNil)
				So(report.Width, ShouldEqual, 900)
				So(report.Height, ShouldEqual, 1046)
				data, err := os.ReadFile(cfg.Output)
				So(err, ShouldBeNil)
				So(len(data), ShouldEqual, report.Bytes)
			})
		})

		Convey("When a service renders the wrong size", func() {
			srv := fakeService(100, 100)
			defer srv.Close()
			cfg.BaseURL = srv.URL

			_, err := sample.Run(ctx, cfg)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "rendered 100x100")
		})
	})
}
