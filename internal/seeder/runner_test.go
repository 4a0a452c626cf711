package seeder_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/igot/internal/app"
	"github.com/okian/igot/internal/adapters/http/api"
	"github.com/okian/igot/internal/adapters/repository"
	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/internal/seeder"
	"github.com/okian/igot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

func newTarget(ctx context.Context) (*httptest.Server, *service.Service) {
	svc := service.New(repository.NewMemoryStore(), service.WithWorkerCount(1))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	return httptest.NewServer(mux), svc
}

func TestRun(t *testing.T) {
	Convey("Given a running report service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		srv, svc := newTarget(ctx)
		defer srv.Close()
		defer func() { _ = svc.Stop(ctx) }()

		cfg := &seeder.Config{
			BaseURL:    srv.URL,
			Offices:    4,
			Days:       6,
			Duplicates: 0.3,
			Invalid:    6,
			Workers:    4,
			Timeout:    5 * time.Second,
			OutputFile: filepath.Join(t.TempDir(), "out", "seeded.json"),
			Seed:       42,
		}

		Convey("When a seeding run completes", func() {
			stats, err := seeder.Run(ctx, cfg)

			Convey("Then every report is accepted and verified", func() {
				So(err, ShouldBeNil)
				So(stats.Verified, ShouldBeTrue)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Accepted, ShouldEqual, stats.Generated)
				So(stats.InvalidRejected, ShouldEqual, 6)
				So(cfg.OutputFile, ShouldNotBeEmpty)
			})

			Convey("Then a second run on the same service also verifies", func() {
				So(err, ShouldBeNil)
				again, err := seeder.Run(ctx, cfg)
				So(err, ShouldBeNil)
				So(again.RunID, ShouldNotEqual, stats.RunID)
				So(again.Verified, ShouldBeTrue)
			})
		})
	})

	Convey("Given an unreachable service", t, func() {
		cfg := &seeder.Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Workers: 1}

		Convey("Then the run fails the health check", func() {
			_, err := seeder.Run(context.Background(), cfg)
			So(errors.Is(err, seeder.ErrUnhealthy), ShouldBeTrue)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a batch where one report never reached the service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		srv, svc := newTarget(ctx)
		defer srv.Close()
		defer func() { _ = svc.Stop(ctx) }()

		cfg := &seeder.Config{Offices: 2, Days: 3, End: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}
		b := seeder.Generate(cfg, "verify", rand.New(rand.NewPCG(7, 8)))
		client := seeder.NewClient(srv.URL, 5*time.Second)

		// The last day of the last office is the one that failed.
		for _, r := range b.Primary[:len(b.Primary)-1] {
			code, _, err := client.PostJSON(ctx, "/api/reports", r)
			So(err, ShouldBeNil)
			So(code, ShouldEqual, http.StatusCreated)
		}

		Convey("Then a lenient verification reports no mismatch", func() {
			So(seeder.Verify(ctx, client, b, report.Summary{}, false), ShouldBeNil)
		})

		Convey("Then a strict verification reports the missing report", func() {
			err := seeder.Verify(ctx, client, b, report.Summary{}, true)
			So(errors.Is(err, seeder.ErrMismatch), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "latest verify-office-02")
		})
	})
}
