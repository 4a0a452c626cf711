package chart_test

import (
	"sync"
	"testing"

	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/chart"
	"github.com/okian/igot/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

func sample() []report.Report {
	return []report.Report{
		{Date: "2024-01-01", Office: "A", TotalEmployees: 10, RegisteredEmployees: 8, EnrolledEmployees: 5, CompletedCourses: 2},
		{Date: "2024-01-02", Office: "A", TotalEmployees: 10, RegisteredEmployees: 9, EnrolledEmployees: 6, CompletedCourses: 3},
		{Date: "2024-01-02", Office: "B", TotalEmployees: 4, RegisteredEmployees: 4, EnrolledEmployees: 1, CompletedCourses: 0},
	}
}

func TestOfficeChart(t *testing.T) {
	Convey("Given a new office chart", t, func() {
		c := chart.NewOfficeChart()

		Convey("Then it should start empty with four datasets", func() {
			d := c.Data()
			So(d.Kind, ShouldEqual, chart.KindBar)
			So(d.Labels, ShouldBeEmpty)
			So(d.Datasets, ShouldHaveLength, 4)
			So(d.Datasets[0].Label, ShouldEqual, "Total Employees")
			So(d.Datasets[0].BackgroundColor, ShouldEqual, "rgba(102, 126, 234, 0.6)")
			So(c.Version(), ShouldEqual, 0)
		})

		Convey("When updated with office snapshots", func() {
			c.Update(aggregate.OfficeSnapshots(sample()))
			d := c.Data()

			Convey("Then labels and datasets should follow the series", func() {
				So(d.Labels, ShouldResemble, []string{"A", "B"})
				So(d.Datasets[0].Data, ShouldResemble, []int{10, 4})
				So(d.Datasets[1].Data, ShouldResemble, []int{9, 4})
				So(d.Datasets[2].Data, ShouldResemble, []int{6, 1})
				So(d.Datasets[3].Data, ShouldResemble, []int{3, 0})
				So(d.Version, ShouldEqual, 1)
			})

			Convey("And mutating the copy should not change the chart", func() {
				d.Labels[0] = "changed"
				d.Datasets[0].Data[0] = -1
				again := c.Data()
				So(again.Labels[0], ShouldEqual, "A")
				So(again.Datasets[0].Data[0], ShouldEqual, 10)
			})
		})
	})
}

func TestDateChart(t *testing.T) {
	Convey("Given a new date chart", t, func() {
		c := chart.NewDateChart()

		Convey("When updated with a labelled date series", func() {
			c.Update(aggregate.DateSeriesOf(sample(), func(d string) string { return "d" + d[8:] }))
			d := c.Data()

			Convey("Then it should plot the three summed series", func() {
				So(d.Kind, ShouldEqual, chart.KindLine)
				So(d.Labels, ShouldResemble, []string{"d01", "d02"})
				So(d.Datasets, ShouldHaveLength, 3)
				So(d.Datasets[0].Data, ShouldResemble, []int{8, 13})
				So(d.Datasets[1].Data, ShouldResemble, []int{5, 7})
				So(d.Datasets[2].Data, ShouldResemble, []int{2, 3})
				So(d.Datasets[0].Fill, ShouldBeTrue)
			})
		})

		Convey("When updated with an empty series", func() {
			c.Update(aggregate.DateSeriesOf(nil, nil))

			Convey("Then it should render empty data", func() {
				d := c.Data()
				So(d.Labels, ShouldBeEmpty)
				So(d.Datasets[0].Data, ShouldNotBeNil)
				So(c.Version(), ShouldEqual, 1)
			})
		})
	})
}

func TestChartConcurrentUpdates(t *testing.T) {
	Convey("Given concurrent updates and reads", t, func() {
		c := chart.NewOfficeChart()
		s := aggregate.OfficeSnapshots(sample())
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() { defer wg.Done(); c.Update(s) }()
			go func() { defer wg.Done(); _ = c.Data() }()
		}
		wg.Wait()

		Convey("Then every update should be counted", func() {
			So(c.Version(), ShouldEqual, 20)
		})
	})
}
