package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/aol-b30/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()
		home, err := homedir.Dir()
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 16)
				convey.So(cfg.HostCallTimeoutMS, convey.ShouldEqual, 10_000)
			})

			convey.Convey("Then home relative paths are expanded", func() {
				convey.So(cfg.PreferenceFile, convey.ShouldEqual, filepath.Join(home, ".aol-b30", "preference.yaml"))
				convey.So(cfg.ExportDir, convey.ShouldEqual, filepath.Join(home, ".aol-b30", "exports"))
			})

			convey.Convey("Then the scoreboard file sits in the asset dir", func() {
				convey.So(cfg.ScoreboardFile, convey.ShouldEqual, filepath.Join("assets", "scoreboard.json"))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("B30_ADDR", ":8080")
			_ = os.Setenv("B30_QUEUE_SIZE", "4")
			_ = os.Setenv("B30_DEFAULT_SCALE", "3.5")
			_ = os.Setenv("B30_HOST_URL", "ws://127.0.0.1:7000/rpc")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 4)
				convey.So(cfg.DefaultScale, convey.ShouldEqual, 3.5)
				convey.So(cfg.HostURL, convey.ShouldEqual, "ws://127.0.0.1:7000/rpc")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# local renderer
addr: ":9090"
asset_dir: "/srv/b30"
scoreboard_file: "boards/latest.json"
decode_concurrency: 2
font_asset: "fonts/other.ttf"
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("B30_CONFIG", tmpFile)
			_ = os.Setenv("B30_DECODE_CONCURRENCY", "6")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.FontAsset, convey.ShouldEqual, "fonts/other.ttf")
				convey.So(cfg.DecodeConcurrency, convey.ShouldEqual, 6)
				convey.So(cfg.ScoreboardFile, convey.ShouldEqual, filepath.Join("/srv/b30", "boards", "latest.json"))
				convey.So(cfg.BlobPrefix, convey.ShouldEqual, "/blob/")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("B30_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("B30_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with invalid numbers", func() {
			_ = os.Setenv("B30_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When settings are out of range", func() {
			cases := map[string]string{
				"B30_ADDR":               "",
				"B30_DEFAULT_SCALE":      "5",
				"B30_DECODE_CONCURRENCY": "0",
				"B30_QUEUE_SIZE":         "-1",
				"B30_BLOB_PREFIX":        "blob",
				"B30_LOG_FORMAT":         "xml",
			}
			for key, value := range cases {
				clearConfigEnvVars()
				_ = os.Setenv(key, value)

				cfg, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			}
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"B30_CONFIG",
		"B30_ADDR",
		"B30_QUEUE_SIZE",
		"B30_DEFAULT_SCALE",
		"B30_HOST_URL",
		"B30_DECODE_CONCURRENCY",
		"B30_BLOB_PREFIX",
		"B30_LOG_FORMAT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "b30-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
