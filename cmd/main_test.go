package main

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/mazdak/triaged/internal/adapters/http/api"
	service "github.com/mazdak/triaged/internal/app"
	"github.com/mazdak/triaged/internal/config"
	"github.com/mazdak/triaged/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestMainWiring(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			_ = os.Setenv("TRIAGED_ADDR", ":8080")
			_ = os.Setenv("TRIAGED_MAX_PASSES", "3")
			defer func() {
				_ = os.Unsetenv("TRIAGED_ADDR")
				_ = os.Unsetenv("TRIAGED_MAX_PASSES")
			}()

			convey.Convey("Then the config is loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxPasses, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When creating the service", func() {
			convey.Convey("Then defaults suffice", func() {
				convey.So(service.New(), convey.ShouldNotBeNil)
			})

			convey.Convey("And custom options apply", func() {
				svc := service.New(
					service.WithConcurrency(2),
					service.WithMaxPasses(3),
					service.WithAutoApplyThreshold(90),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When registering HTTP routes", func() {
			svc := service.New()
			ctx := context.Background()
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			mux := http.NewServeMux()
			convey.So(func() { api.NewServer(svc, svc).Register(ctx, mux) }, convey.ShouldNotPanic)
		})

		convey.Convey("When seeding the note corpus", func() {
			notes := seedNotes()

			convey.Convey("Then every note is complete", func() {
				convey.So(len(notes), convey.ShouldBeGreaterThan, 0)
				for _, n := range notes {
					convey.So(n.ID, convey.ShouldNotBeEmpty)
					convey.So(n.Text, convey.ShouldNotBeEmpty)
				}
			})
		})
	})
}
