// Package aggregate turns a flat sequence of reports into the views the
// dashboard shows: the latest snapshot per office, the per-date series, the
// summary, and filtered or ordered subsets. Every function here is pure and
// safe to call concurrently on shared input.
package aggregate

import (
	"sort"
	"strings"

	"github.com/okian/igot/internal/domain/report"
)

// AllOffices is the office filter value that disables office filtering.
const AllOffices = "all"

// OfficeSeries is the latest report per office projected into parallel
// slices aligned with Offices.
type OfficeSeries struct {
	Offices    []string `json:"offices"`
	Total      []int    `json:"total"`
	Registered []int    `json:"registered"`
	Enrolled   []int    `json:"enrolled"`
	Completed  []int    `json:"completed"`

	latest map[string]report.Report
}

// Latest returns the snapshot report for office.
func (s OfficeSeries) Latest(office string) (report.Report, bool) {
	r, ok := s.latest[office]
	return r, ok
}

// Len returns the number of offices in the series.
func (s OfficeSeries) Len() int { return len(s.Offices) }

// OfficeSnapshots keeps, for every office, the report with the greatest date.
// Dates compare as ISO strings. When two reports for an office share the
// greatest date the one seen last wins. Offices are ordered by first
// appearance in reports.
func OfficeSnapshots(reports []report.Report) OfficeSeries {
	latest := make(map[string]report.Report)
	var offices []string
	for _, r := range reports {
		cur, ok := latest[r.Office]
		if !ok {
			offices = append(offices, r.Office)
			latest[r.Office] = r
			continue
		}
		if r.Date >= cur.Date {
			latest[r.Office] = r
		}
	}

	s := OfficeSeries{
		Offices:    make([]string, 0, len(offices)),
		Total:      make([]int, 0, len(offices)),
		Registered: make([]int, 0, len(offices)),
		Enrolled:   make([]int, 0, len(offices)),
		Completed:  make([]int, 0, len(offices)),
		latest:     latest,
	}
	for _, office := range offices {
		r := latest[office]
		s.Offices = append(s.Offices, office)
		s.Total = append(s.Total, r.TotalEmployees)
		s.Registered = append(s.Registered, r.RegisteredEmployees)
		s.Enrolled = append(s.Enrolled, r.EnrolledEmployees)
		s.Completed = append(s.Completed, r.CompletedCourses)
	}
	return s
}

// DateSeries is the per-date sum of registered, enrolled and completed counts.
// Total employees are not part of the series.
type DateSeries struct {
	Dates      []string `json:"dates"`
	Labels     []string `json:"labels"`
	Registered []int    `json:"registered"`
	Enrolled   []int    `json:"enrolled"`
	Completed  []int    `json:"completed"`
}

// Len returns the number of dates in the series.
func (s DateSeries) Len() int { return len(s.Dates) }

// LabelFunc renders a YYYY-MM-DD date for display.
type LabelFunc func(date string) string

type dateTotals struct {
	registered, enrolled, completed int
}

// DateSeriesOf sums reports per date and orders dates ascending. label renders
// each date; a nil label keeps the ISO form.
func DateSeriesOf(reports []report.Report, label LabelFunc) DateSeries {
	totals := make(map[string]*dateTotals)
	dates := make([]string, 0)
	for _, r := range reports {
		t, ok := totals[r.Date]
		if !ok {
			t = &dateTotals{}
			totals[r.Date] = t
			dates = append(dates, r.Date)
		}
		t.registered += r.RegisteredEmployees
		t.enrolled += r.EnrolledEmployees
		t.completed += r.CompletedCourses
	}
	sort.Strings(dates)

	s := DateSeries{
		Dates:      dates,
		Labels:     make([]string, len(dates)),
		Registered: make([]int, len(dates)),
		Enrolled:   make([]int, len(dates)),
		Completed:  make([]int, len(dates)),
	}
	for i, d := range dates {
		t := totals[d]
		s.Registered[i] = t.registered
		s.Enrolled[i] = t.enrolled
		s.Completed[i] = t.completed
		if label != nil {
			s.Labels[i] = label(d)
		} else {
			s.Labels[i] = d
		}
	}
	return s
}

// Summarize sums every counter over all reports. Offices with several dated
// reports are counted once per report.
func Summarize(reports []report.Report) report.Summary {
	var s report.Summary
	for _, r := range reports {
		s.Add(r)
	}
	return s
}

// Criteria selects reports by office and exact date. Empty fields match
// everything; Office may also be AllOffices.
type Criteria struct {
	Office string `json:"office,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Normalize trims the criteria and clears the AllOffices sentinel.
func (c Criteria) Normalize() Criteria {
	c.Office = strings.TrimSpace(c.Office)
	c.Date = strings.TrimSpace(c.Date)
	if c.Office == AllOffices {
		c.Office = ""
	}
	return c
}

// IsZero reports whether the criteria match every report.
func (c Criteria) IsZero() bool {
	n := c.Normalize()
	return n.Office == "" && n.Date == ""
}

// Match reports whether r satisfies c.
func (c Criteria) Match(r report.Report) bool {
	n := c.Normalize()
	if n.Office != "" && r.Office != n.Office {
		return false
	}
	if n.Date != "" && r.Date != n.Date {
		return false
	}
	return true
}

// Filter returns the reports matching c in their original order. Zero
// criteria return reports itself.
func Filter(reports []report.Report, c Criteria) []report.Report {
	if c.IsZero() {
		return reports
	}
	out := make([]report.Report, 0, len(reports))
	for _, r := range reports {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortRecent returns a copy of reports ordered newest date first and then by
// office name.
func SortRecent(reports []report.Report) []report.Report {
	out := make([]report.Report, len(reports))
	copy(out, reports)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Office < out[j].Office
	})
	return out
}

// Offices returns the distinct offices in order of first appearance.
func Offices(reports []report.Report) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range reports {
		if _, ok := seen[r.Office]; ok {
			continue
		}
		seen[r.Office] = struct{}{}
		out = append(out, r.Office)
	}
	return out
}
