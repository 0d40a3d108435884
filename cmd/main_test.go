package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/aol-b30/internal/adapters/host"
	"github.com/okian/aol-b30/internal/config"
	"github.com/okian/aol-b30/internal/sample"
	"github.com/okian/aol-b30/pkg/logger"
	"github.com/okian/aol-b30/pkg/metrics"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := sample.WriteAssets(dir, sample.Scoreboard(5, 2)); err != nil {
		t.Fatalf("write assets: %v", err)
	}
	cfg := config.New()
	cfg.AssetDir = dir
	cfg.PreferenceFile = filepath.Join(dir, "pref", "preference.yaml")
	cfg.ExportDir = filepath.Join(dir, "out")
	cfg.ScoreboardFile = filepath.Join(dir, sample.ScoreboardAsset)
	cfg.DefaultScale = 1
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given a local configuration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		cfg := localConfig(t)
		l := logger.Nop()

		convey.Convey("When opening the host", func() {
			api, client, err := newHost(ctx, cfg, l)
			convey.So(err, convey.ShouldBeNil)
			convey.So(client, convey.ShouldBeNil)
			_, isLocal := api.(*host.Local)
			convey.So(isLocal, convey.ShouldBeTrue)
		})

		convey.Convey("When dialing a host that is not there", func() {
			cfg.HostURL = "ws://127.0.0.1:1/rpc"
			_, _, err := newHost(ctx, cfg, l)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the service runs with the scoreboard file", func() {
			api, _, err := newHost(ctx, cfg, l)
			convey.So(err, convey.ShouldBeNil)
			svc := newService(cfg, api, l)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			loadScoreboard(ctx, cfg, svc, l)
			deadline := time.Now().Add(10 * time.Second)
			for time.Now().Before(deadline) {
				if _, ok := svc.Scoreboard(); ok {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			board, ok := svc.Scoreboard()
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(board.Items, convey.ShouldHaveLength, 5)

			mux := newMux(ctx, cfg, svc)

			convey.Convey("Then the routes are served", func() {
				for path, status := range map[string]int{
					"/healthz":        http.StatusOK,
					"/state":          http.StatusOK,
					"/openapi.yaml":   http.StatusOK,
					"/scoreboard.png": http.StatusOK,
					"/":               http.StatusOK,
				} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest("GET", path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, status)
				}
			})

			convey.Convey("Then an export lands in the export dir", func() {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest("POST", "/export?format=svg-inline", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				entries, err := os.ReadDir(cfg.ExportDir)
				convey.So(err, convey.ShouldBeNil)
				convey.So(entries, convey.ShouldHaveLength, 1)
			})

			convey.Convey("Then service metrics update without panicking", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the scoreboard file is missing", func() {
			cfg.ScoreboardFile = filepath.Join(cfg.AssetDir, "missing.json")
			api, _, err := newHost(ctx, cfg, l)
			convey.So(err, convey.ShouldBeNil)
			svc := newService(cfg, api, l)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			convey.So(func() { loadScoreboard(ctx, cfg, svc, l) }, convey.ShouldNotPanic)
			_, ok := svc.Scoreboard()
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When testing system metrics update", func() {
			convey.So(func() {
				updateSystemMetrics()
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When testing metrics initialization", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})

		convey.Convey("When metrics are configured from config", func() {
			cfg := config.New()
			cfg.MetricsNamespace = "board"
			cfg.MetricsInstance = "desk"
			registry := configureMetrics(cfg)
			defer metrics.Configure()

			metrics.RecordPickerCommit("course")
			families, err := registry.Gather()
			convey.So(err, convey.ShouldBeNil)
			var found bool
			for _, f := range families {
				if f.GetName() == "board_b30_picker_commits_total" {
					found = true
					convey.So(f.GetMetric()[0].GetLabel()[0].GetValue(), convey.ShouldNotBeEmpty)
				}
			}
			convey.So(found, convey.ShouldBeTrue)
			convey.So(metrics.GetRegistry(), convey.ShouldPointTo, registry)
		})
	})
}
