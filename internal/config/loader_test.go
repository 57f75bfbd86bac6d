package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/okian/scorecard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"SCORECARD_CONFIG",
	"SCORECARD_LOG_LEVEL",
	"SCORECARD_LOG_FORMAT",
	"SCORECARD_STORE_DRIVER",
	"SCORECARD_DISPATCH_WORKERS",
	"SCORECARD_UNDO_DEPTH",
	"SCORECARD_RATING_MIN",
	"SCORECARD_RATING_MAX",
}

func clearConfigEnvVars() {
	for _, name := range configEnvVars {
		_ = os.Unsetenv(name)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scorecard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.DispatchWorkers, convey.ShouldEqual, runtime.NumCPU())
				convey.So(cfg.RatingMin, convey.ShouldEqual, 1)
				convey.So(cfg.RatingMax, convey.ShouldEqual, 5)
				convey.So(cfg.UndoDepth, convey.ShouldEqual, 100)
				convey.So(cfg.SaveTimeout().Seconds(), convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SCORECARD_LOG_LEVEL", "debug")
			_ = os.Setenv("SCORECARD_DISPATCH_WORKERS", "3")
			_ = os.Setenv("SCORECARD_UNDO_DEPTH", "0")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.DispatchWorkers, convey.ShouldEqual, 3)
				convey.So(cfg.UndoDepth, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeConfigFile(t, `
log_format: json
store_driver: sqlite
sqlite_dsn: ":memory:"
dispatch_workers: 8
rating_max: 10
`)
			_ = os.Setenv("SCORECARD_CONFIG", path)
			_ = os.Setenv("SCORECARD_DISPATCH_WORKERS", "2")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.SQLiteDSN, convey.ShouldEqual, ":memory:")
				convey.So(cfg.DispatchWorkers, convey.ShouldEqual, 2)
				convey.So(cfg.RatingMax, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("SCORECARD_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SCORECARD_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an inverted rating scale", func() {
			_ = os.Setenv("SCORECARD_RATING_MIN", "5")
			_ = os.Setenv("SCORECARD_RATING_MAX", "1")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "rating_min")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown store driver", func() {
			_ = os.Setenv("SCORECARD_STORE_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given default config", t, func() {
		cfg := config.New(context.Background())
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("Then each broken field is reported", func() {
			broken := *cfg
			broken.LogFormat = "xml"
			convey.So(errors.Is(broken.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)

			broken = *cfg
			broken.DispatchQueueSize = 0
			convey.So(errors.Is(broken.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)

			broken = *cfg
			broken.UndoDepth = -1
			convey.So(errors.Is(broken.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
