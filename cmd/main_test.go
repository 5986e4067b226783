package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/skillswap/internal/adapters/http/api"
	"github.com/okian/skillswap/internal/adapters/http/swagger"
	app "github.com/okian/skillswap/internal/app"
	"github.com/okian/skillswap/internal/config"
	"github.com/okian/skillswap/pkg/logger"
)

const fixtures = "../internal/adapters/repository/testdata/fixtures.yaml"

func init() {
	_ = logger.Init()
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given the memory backend", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("When no seed file is set", func() {
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			convey.Convey("Then the store starts empty", func() {
				skills, members, err := store.Counts(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(skills, convey.ShouldEqual, 0)
				convey.So(members, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a seed file is set", func() {
			cfg.SeedFile = fixtures
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			convey.Convey("Then the fixtures are loaded", func() {
				skills, members, err := store.Counts(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(skills, convey.ShouldEqual, 5)
				convey.So(members, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the seed file is missing", func() {
			cfg.SeedFile = "testdata/does-not-exist.yaml"
			store, err := openStore(ctx, cfg)

			convey.Convey("Then opening fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(store, convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given an unreachable mongo backend", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.StoreBackend = config.BackendMongo
		cfg.MongoURI = "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=200"
		cfg.MongoTimeoutMS = 200

		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(store, convey.ShouldBeNil)
	})
}

func TestRouterWiring(t *testing.T) {
	convey.Convey("Given a started service over the seeded memory store", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.SeedFile = fixtures
		store, err := openStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()

		svc := app.New(store, app.WithWorkerCount(1), app.WithQueueSize(16))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		router := api.NewServer(svc, svc).NewRouter()
		swagger.Register(router)

		for _, path := range []string{"/search?query=java", "/skills/trending", "/skills/categories", "/stats", "/api-docs", "/openapi.yaml"} {
			convey.Convey("Then GET "+path+" succeeds", func() {
				w := httptest.NewRecorder()
				router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			})
		}
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		ctx := context.Background()
		store, err := openStore(ctx, config.New(ctx))
		convey.So(err, convey.ShouldBeNil)
		defer store.Close()
		svc := app.New(store)

		convey.Convey("Then one-shot updates do not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(ctx, svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then the tickers return once the context ends", func() {
			tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(tctx)
				startServiceMetricsUpdater(tctx, svc)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("metrics updaters did not stop")
			}
		})
	})
}
