package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/mazdak/triaged/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.MaxPasses, convey.ShouldEqual, 5)
				convey.So(cfg.StopConfidence, convey.ShouldEqual, 95)
				convey.So(cfg.EphemeralStopConfidence, convey.ShouldEqual, 80)
				convey.So(cfg.ConvergenceEpsilon, convey.ShouldEqual, 5)
				convey.So(cfg.AutoApplyThreshold, convey.ShouldEqual, 85)
				convey.So(cfg.MaxConcurrentAnalyses, convey.ShouldEqual, 3)
				convey.So(cfg.ContextCacheTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.ContextCacheMaxEntries, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TRIAGED_ADDR", ":8080")
			_ = os.Setenv("TRIAGED_MAX_PASSES", "3")
			_ = os.Setenv("TRIAGED_AUTO_APPLY_THRESHOLD", "90")
			_ = os.Setenv("TRIAGED_MAX_CONCURRENT_ANALYSES", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxPasses, convey.ShouldEqual, 3)
				convey.So(cfg.AutoApplyThreshold, convey.ShouldEqual, 90)
				convey.So(cfg.MaxConcurrentAnalyses, convey.ShouldEqual, 6)
				convey.So(cfg.StopConfidence, convey.ShouldEqual, 95) // untouched default
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":7070"
max_passes: 4
stop_confidence: 92
context_cache_ttl_seconds: 30
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TRIAGED_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MaxPasses, convey.ShouldEqual, 4)
				convey.So(cfg.StopConfidence, convey.ShouldEqual, 92)
				convey.So(cfg.ContextCacheTTLSeconds, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When env vars and a YAML file both set a key", func() {
			tmpFile := createTempConfigFile("max_passes: 4\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("TRIAGED_CONFIG", tmpFile)
			_ = os.Setenv("TRIAGED_MAX_PASSES", "2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the env var wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxPasses, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("TRIAGED_CONFIG", "/nonexistent/config.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a threshold is out of range", func() {
			_ = os.Setenv("TRIAGED_AUTO_APPLY_THRESHOLD", "150")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(err, convey.ShouldEqual, config.ErrInvalidThreshold)
			})
		})

		convey.Convey("When the pass bound is zero", func() {
			_ = os.Setenv("TRIAGED_MAX_PASSES", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(err, convey.ShouldEqual, config.ErrInvalidPasses)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"TRIAGED_CONFIG",
		"TRIAGED_ADDR",
		"TRIAGED_MAX_PASSES",
		"TRIAGED_STOP_CONFIDENCE",
		"TRIAGED_AUTO_APPLY_THRESHOLD",
		"TRIAGED_MAX_CONCURRENT_ANALYSES",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "triaged-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	if err := f.Close(); err != nil {
		panic(err)
	}
	return f.Name()
}
