package seeder

import (
	"encoding/json"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/report"
	. "github.com/smartystreets/goconvey/convey"
)

func testConfig() *Config {
	return &Config{
		Offices:    3,
		Days:       5,
		Duplicates: 0.5,
		Invalid:    7,
		End:        time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC),
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a fixed seed", t, func() {
		cfg := testConfig()
		b := Generate(cfg, "abc", rand.New(rand.NewPCG(1, 2)))

		Convey("Then one primary report exists per office and day", func() {
			So(b.Primary, ShouldHaveLength, cfg.Offices*cfg.Days)
			So(b.Offices(), ShouldResemble, []string{"abc-office-01", "abc-office-02", "abc-office-03"})
		})

		Convey("Then dates run up to the end date across a month boundary", func() {
			So(b.Primary[0].Date, ShouldEqual, "2024-02-27")
			So(b.Primary[cfg.Days-1].Date, ShouldEqual, "2024-03-02")
			So(b.Primary[1].Date, ShouldEqual, "2024-02-28")
			So(b.Primary[2].Date, ShouldEqual, "2024-02-29")
		})

		Convey("Then every valid report passes validation", func() {
			for _, r := range b.All() {
				So(r.Validate(), ShouldBeNil)
			}
		})

		Convey("Then registered counts never shrink within an office", func() {
			for o := 0; o < cfg.Offices; o++ {
				days := b.Primary[o*cfg.Days : (o+1)*cfg.Days]
				for i := 1; i < len(days); i++ {
					So(days[i].RegisteredEmployees, ShouldBeGreaterThanOrEqualTo, days[i-1].RegisteredEmployees)
				}
			}
		})

		Convey("Then duplicates repeat an existing office-day", func() {
			keys := make(map[string]bool)
			for _, r := range b.Primary {
				keys[r.Office+"|"+r.Date] = true
			}
			for _, d := range b.Duplicates {
				So(keys[d.Office+"|"+d.Date], ShouldBeTrue)
			}
		})

		Convey("Then the latest snapshot prefers a same-day duplicate", func() {
			snap := aggregate.OfficeSnapshots(b.All())
			for _, d := range b.Duplicates {
				if d.Date != "2024-03-02" {
					continue
				}
				latest, ok := snap.Latest(d.Office)
				So(ok, ShouldBeTrue)
				So(latest, ShouldResemble, d)
			}
		})

		Convey("Then the same seed produces the same batch", func() {
			again := Generate(cfg, "abc", rand.New(rand.NewPCG(1, 2)))
			So(again, ShouldResemble, b)
		})

		Convey("Then invalid reports cycle through every rejection kind", func() {
			So(b.Invalid, ShouldHaveLength, 7)
			So(b.Invalid[6], ShouldResemble, b.Invalid[0])
			So(b.Invalid[3]["totalEmployees"], ShouldEqual, "ten")
			So(b.Invalid[4]["date"], ShouldEqual, "2024-02-30")
			So(b.Invalid[5]["office"], ShouldEqual, "")
		})
	})

	Convey("Given a zero duplicate fraction", t, func() {
		cfg := testConfig()
		cfg.Duplicates = 0
		b := Generate(cfg, "run", rand.New(rand.NewPCG(3, 4)))

		Convey("Then no duplicates are generated", func() {
			So(b.Duplicates, ShouldBeEmpty)
			So(b.All(), ShouldHaveLength, len(b.Primary))
		})
	})
}

func TestOfficeName(t *testing.T) {
	Convey("Office names carry the run id", t, func() {
		So(OfficeName("r1", 0), ShouldEqual, "r1-office-01")
		So(strings.HasPrefix(OfficeName("r1", 41), "r1-office-"), ShouldBeTrue)
		So(OfficeName("r1", 41), ShouldEqual, "r1-office-42")
	})
}

func TestInvalidReports(t *testing.T) {
	Convey("Every invalid body is refused by form parsing", t, func() {
		now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
		for _, body := range invalidReports("x", "2024-03-02", 6) {
			data, err := json.Marshal(body)
			So(err, ShouldBeNil)
			var f report.Form
			So(json.Unmarshal(data, &f), ShouldBeNil)
			_, err = report.ParseForm(f, now)
			So(err, ShouldNotBeNil)
			So(report.IsValidation(err), ShouldBeTrue)
		}
	})
}
