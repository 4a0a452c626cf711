package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/igot/internal/app"
	"github.com/okian/igot/internal/adapters/cache"
	"github.com/okian/igot/internal/adapters/repository"
	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/datefmt"
	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithLevel("error"))
	if err != nil {
		panic(err)
	}
}

func rep(date, office string, total, registered, enrolled, completed int) report.Report {
	return report.Report{
		Date:                date,
		Office:              office,
		TotalEmployees:      total,
		RegisteredEmployees: registered,
		EnrolledEmployees:   enrolled,
		CompletedCourses:    completed,
	}
}

func newService(opts ...service.Option) *service.Service {
	return service.New(repository.NewMemoryStore(), opts...)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := newService()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["queueSize"], ShouldEqual, 1024)
			So(stats["locale"], ShouldEqual, "en-IN")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := newService(
			service.WithWorkerCount(3),
			service.WithQueueSize(16),
			service.WithCache(cache.NewMemory(8, time.Minute)),
			service.WithDateFormatter(datefmt.Must("en-US")),
		)

		Convey("Then the options should be applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 16)
			So(stats["locale"], ShouldEqual, "en-US")
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := newService()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})

			Convey("And starting twice should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And stopping again should be a no-op", func() {
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_CreateReport(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := newService()

		Convey("When creating a valid report", func() {
			r, err := svc.CreateReport(ctx, rep("2024-01-01", "  Pune ", 10, 8, 5, 2))

			Convey("Then it is stored normalized", func() {
				So(err, ShouldBeNil)
				So(r.Office, ShouldEqual, "Pune")
				list, err := svc.Reports(ctx, false)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].Office, ShouldEqual, "Pune")
			})
		})

		Convey("When registered exceeds total", func() {
			_, err := svc.CreateReport(ctx, rep("2024-01-01", "Pune", 10, 12, 5, 2))

			Convey("Then it is rejected with the rule message and nothing is stored", func() {
				So(report.IsValidation(err), ShouldBeTrue)
				So(errors.Is(err, report.ErrRegisteredExceedsTotal), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "Registered employees cannot be more than total employees")
				list, _ := svc.Reports(ctx, false)
				So(list, ShouldBeEmpty)
			})
		})

		Convey("When enrolled exceeds registered", func() {
			_, err := svc.CreateReport(ctx, rep("2024-01-01", "Pune", 10, 5, 6, 2))
			So(errors.Is(err, report.ErrEnrolledExceedsRegistered), ShouldBeTrue)
		})

		Convey("When completed exceeds enrolled", func() {
			_, err := svc.CreateReport(ctx, rep("2024-01-01", "Pune", 10, 5, 2, 9))
			So(err, ShouldBeNil)
		})
	})
}

func TestService_SubmitForm(t *testing.T) {
	Convey("Given a service with a fixed clock", t, func() {
		ctx := context.Background()
		now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
		svc := newService(service.WithClock(func() time.Time { return now }))

		Convey("When a form has no date", func() {
			r, err := svc.SubmitForm(ctx, report.Form{
				Office:              "Delhi",
				TotalEmployees:      "10",
				RegisteredEmployees: "8",
				EnrolledEmployees:   "5",
				CompletedCourses:    "1",
			})

			Convey("Then today's date is used", func() {
				So(err, ShouldBeNil)
				So(r.Date, ShouldEqual, "2024-03-05")
				So(r.RegisteredEmployees, ShouldEqual, 8)
			})
		})

		Convey("When a count is not a number", func() {
			_, err := svc.SubmitForm(ctx, report.Form{
				Office:              "Delhi",
				TotalEmployees:      "ten",
				RegisteredEmployees: "8",
				EnrolledEmployees:   "5",
				CompletedCourses:    "1",
			})

			Convey("Then it is rejected before the rules run", func() {
				So(errors.Is(err, report.ErrNotANumber), ShouldBeTrue)
			})
		})
	})
}

func TestService_Reads(t *testing.T) {
	Convey("Given a service with reports for two offices", t, func() {
		ctx := context.Background()
		svc := newService(service.WithCache(cache.NewMemory(16, time.Minute)))
		for _, r := range []report.Report{
			rep("2024-01-01", "A", 10, 5, 3, 1),
			rep("2024-01-02", "B", 20, 10, 5, 2),
			rep("2024-01-02", "A", 10, 8, 4, 2),
		} {
			_, err := svc.CreateReport(ctx, r)
			So(err, ShouldBeNil)
		}

		Convey("Then Latest returns the newest report per office", func() {
			r, err := svc.Latest(ctx, "A")
			So(err, ShouldBeNil)
			So(r.Date, ShouldEqual, "2024-01-02")
			So(r.RegisteredEmployees, ShouldEqual, 8)
		})

		Convey("Then Latest for an unknown office is not found", func() {
			_, err := svc.Latest(ctx, "Z")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then Reports can be ordered newest first", func() {
			list, err := svc.Reports(ctx, true)
			So(err, ShouldBeNil)
			So(list[0].Office, ShouldEqual, "A")
			So(list[0].Date, ShouldEqual, "2024-01-02")
			So(list[1].Office, ShouldEqual, "B")
			So(list[2].Date, ShouldEqual, "2024-01-01")
		})

		Convey("Then Filter honours office and date", func() {
			list, err := svc.Filter(ctx, aggregate.Criteria{Office: "A"}, false)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)

			list, err = svc.Filter(ctx, aggregate.Criteria{Office: "all", Date: "2024-01-02"}, false)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)

			list, err = svc.Filter(ctx, aggregate.Criteria{Office: "Z"}, false)
			So(err, ShouldBeNil)
			So(list, ShouldBeEmpty)
		})

		Convey("Then a malformed date filter is a validation error", func() {
			_, err := svc.Filter(ctx, aggregate.Criteria{Date: "02/01/2024"}, false)
			So(report.IsValidation(err), ShouldBeTrue)
			So(errors.Is(err, report.ErrInvalidDate), ShouldBeTrue)
		})

		Convey("Then Summary is the raw sum over every report", func() {
			sum, err := svc.Summary(ctx)
			So(err, ShouldBeNil)
			So(sum.TotalEmployees, ShouldEqual, 40)
			So(sum.RegisteredEmployees, ShouldEqual, 23)

			Convey("And a new report is reflected immediately", func() {
				_, err := svc.CreateReport(ctx, rep("2024-01-03", "C", 5, 5, 5, 5))
				So(err, ShouldBeNil)
				sum, err := svc.Summary(ctx)
				So(err, ShouldBeNil)
				So(sum.TotalEmployees, ShouldEqual, 45)
			})
		})

		Convey("Then Offices lists offices in first-seen order", func() {
			offices, err := svc.Offices(ctx)
			So(err, ShouldBeNil)
			So(offices, ShouldResemble, []string{"A", "B"})
		})

		Convey("Then Export returns matches newest first", func() {
			list, err := svc.Export(ctx, aggregate.Criteria{Office: "A"})
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(list[0].Date, ShouldEqual, "2024-01-02")
		})
	})
}

func TestService_Charts(t *testing.T) {
	Convey("Given a service with two reports for one office", t, func() {
		ctx := context.Background()
		svc := newService()
		_, err := svc.CreateReport(ctx, rep("2024-01-01", "A", 10, 8, 5, 2))
		So(err, ShouldBeNil)
		_, err = svc.CreateReport(ctx, rep("2024-01-02", "A", 10, 9, 6, 3))
		So(err, ShouldBeNil)

		Convey("When reading the unfiltered charts", func() {
			set, err := svc.Charts(ctx, aggregate.Criteria{})
			So(err, ShouldBeNil)

			Convey("Then the office chart shows the latest snapshot", func() {
				So(set.Office.Kind, ShouldEqual, "bar")
				So(set.Office.Labels, ShouldResemble, []string{"A"})
				So(set.Office.Datasets, ShouldHaveLength, 4)
				So(set.Office.Datasets[1].Data, ShouldResemble, []int{9})
			})

			Convey("Then the date chart shows one point per date", func() {
				So(set.Date.Kind, ShouldEqual, "line")
				So(set.Date.Labels, ShouldResemble, []string{"1/1/2024", "2/1/2024"})
				So(set.Date.Datasets[0].Data, ShouldResemble, []int{8, 9})
			})
		})

		Convey("When a new report arrives after a read", func() {
			_, err := svc.Charts(ctx, aggregate.Criteria{})
			So(err, ShouldBeNil)
			_, err = svc.CreateReport(ctx, rep("2024-01-02", "B", 4, 4, 4, 4))
			So(err, ShouldBeNil)

			Convey("Then the next read includes it", func() {
				set, err := svc.Charts(ctx, aggregate.Criteria{})
				So(err, ShouldBeNil)
				So(set.Office.Labels, ShouldResemble, []string{"A", "B"})
				So(set.Date.Datasets[0].Data, ShouldResemble, []int{8, 13})
			})
		})

		Convey("When reading charts for one date", func() {
			set, err := svc.Charts(ctx, aggregate.Criteria{Date: "2024-01-01"})
			So(err, ShouldBeNil)
			So(set.Date.Labels, ShouldResemble, []string{"1/1/2024"})
			So(set.Office.Datasets[1].Data, ShouldResemble, []int{8})
		})

		Convey("When the date filter is malformed", func() {
			_, err := svc.Charts(ctx, aggregate.Criteria{Date: "yesterday"})
			So(report.IsValidation(err), ShouldBeTrue)
		})
	})
}

func TestService_Project(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := newService(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When reports are created", func() {
			for i := 0; i < 5; i++ {
				_, err := svc.CreateReport(ctx, rep("2024-01-01", "A", 10, i, 0, 0))
				So(err, ShouldBeNil)
			}

			Convey("Then the workers catch the charts up", func() {
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					if svc.GetStats()["projectedSeq"] == uint64(5) {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(svc.GetStats()["projectedSeq"], ShouldEqual, uint64(5))
				So(svc.GetStats()["totalReports"], ShouldEqual, 5)
			})
		})

		Convey("Then Ping succeeds and Today renders a long date", func() {
			So(svc.Ping(ctx), ShouldBeNil)
			So(svc.Today(), ShouldNotBeEmpty)
		})
	})
}
