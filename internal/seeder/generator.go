package seeder

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/igot/internal/domain/report"
)

// Batch is a generated workload. Duplicates must be stored after Primary so
// that they win same-day ties.
type Batch struct {
	RunID      string
	Primary    []report.Report
	Duplicates []report.Report
	Invalid    []map[string]any
}

// All returns every valid report in submission order.
func (b Batch) All() []report.Report {
	out := make([]report.Report, 0, len(b.Primary)+len(b.Duplicates))
	out = append(out, b.Primary...)
	return append(out, b.Duplicates...)
}

// Offices returns the generated office names.
func (b Batch) Offices() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range b.Primary {
		if _, ok := seen[r.Office]; !ok {
			seen[r.Office] = struct{}{}
			out = append(out, r.Office)
		}
	}
	return out
}

// OfficeName is the name used for office i of a run.
func OfficeName(runID string, i int) string {
	return fmt.Sprintf("%s-office-%02d", runID, i+1)
}

// Generate builds the valid and invalid reports for a run. Office names
// carry runID so runs never collide. Counts grow day over day and always
// satisfy registered <= total and enrolled <= registered.
func Generate(cfg *Config, runID string, rng *rand.Rand) Batch {
	end := cfg.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -(cfg.Days - 1))

	b := Batch{RunID: runID}
	for o := 0; o < cfg.Offices; o++ {
		office := OfficeName(runID, o)
		total := 50 + rng.IntN(450)
		registered := rng.IntN(total/4 + 1)
		enrolled := rng.IntN(registered + 1)
		completed := 0

		for d := 0; d < cfg.Days; d++ {
			registered = min(total, registered+rng.IntN(total/10+1))
			enrolled = min(registered, enrolled+rng.IntN(registered/5+1))
			completed += rng.IntN(enrolled/10 + 1)

			r := report.Report{
				Date:                start.AddDate(0, 0, d).Format(report.DateLayout),
				Office:              office,
				TotalEmployees:      total,
				RegisteredEmployees: registered,
				EnrolledEmployees:   enrolled,
				CompletedCourses:    completed,
			}
			b.Primary = append(b.Primary, r)

			if rng.Float64() < cfg.Duplicates {
				dup := r
				dup.RegisteredEmployees = min(total, r.RegisteredEmployees+1)
				dup.EnrolledEmployees = min(dup.RegisteredEmployees, r.EnrolledEmployees+1)
				dup.CompletedCourses = r.CompletedCourses + 1
				b.Duplicates = append(b.Duplicates, dup)
			}
		}
	}

	b.Invalid = invalidReports(runID, end.Format(report.DateLayout), cfg.Invalid)
	return b
}

// invalidReports cycles through submissions the service must reject.
func invalidReports(runID, date string, n int) []map[string]any {
	office := runID + "-invalid"
	kinds := []map[string]any{
		{"date": date, "office": office, "totalEmployees": 10, "registeredEmployees": 12, "enrolledEmployees": 1, "completedCourses": 0},
		{"date": date, "office": office, "totalEmployees": 10, "registeredEmployees": 5, "enrolledEmployees": 6, "completedCourses": 0},
		{"date": date, "office": office, "totalEmployees": -1, "registeredEmployees": 0, "enrolledEmployees": 0, "completedCourses": 0},
		{"date": date, "office": office, "totalEmployees": "ten", "registeredEmployees": 1, "enrolledEmployees": 0, "completedCourses": 0},
		{"date": "2024-02-30", "office": office, "totalEmployees": 10, "registeredEmployees": 1, "enrolledEmployees": 0, "completedCourses": 0},
		{"date": date, "office": "", "totalEmployees": 10, "registeredEmployees": 1, "enrolledEmployees": 0, "completedCourses": 0},
	}
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = kinds[i%len(kinds)]
	}
	return out
}
