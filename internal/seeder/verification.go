package seeder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/report"
)

// ErrMismatch is returned when the service disagrees with the local
// aggregation of the submitted reports.
var ErrMismatch = errors.New("verification mismatch")

// Verify compares the service's views with the batch aggregated locally.
// The summary check assumes no other writer touched the service during the
// run. When strict is false some submissions failed, so only the endpoints
// are exercised and no comparison is made.
func Verify(ctx context.Context, c *Client, b Batch, baseline report.Summary, strict bool) error {
	all := b.All()
	var problems []string

	if strict {
		var got report.Summary
		if _, err := c.GetJSON(ctx, "/api/reports/summary", &got); err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		want := baseline
		for _, r := range all {
			want.Add(r)
		}
		if got != want {
			problems = append(problems, fmt.Sprintf("summary: got %+v, want %+v", got, want))
		}
		problems = append(problems, checkLatest(ctx, c, all)...)
	}

	perDate := make(map[string]int)
	for _, r := range all {
		perDate[r.Date]++
	}
	for date, want := range perDate {
		var list []report.Report
		if _, err := c.GetJSON(ctx, "/api/reports/filter?date="+url.QueryEscape(date), &list); err != nil {
			return fmt.Errorf("filter %s: %w", date, err)
		}
		got := 0
		for _, r := range list {
			if strings.HasPrefix(r.Office, b.RunID+"-office-") {
				got++
			}
		}
		if strict && got != want {
			problems = append(problems, fmt.Sprintf("filter %s: got %d reports, want %d", date, got, want))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrMismatch, strings.Join(problems, "\n  "))
	}
	return nil
}

func checkLatest(ctx context.Context, c *Client, all []report.Report) []string {
	var problems []string
	snap := aggregate.OfficeSnapshots(all)
	for _, office := range snap.Offices {
		want, _ := snap.Latest(office)
		var got report.Report
		code, err := c.GetJSON(ctx, OfficePath(office), &got)
		if err != nil {
			problems = append(problems, fmt.Sprintf("latest %s: %v", office, err))
			continue
		}
		if code != http.StatusOK || got != want {
			problems = append(problems, fmt.Sprintf("latest %s: status %d, got %+v, want %+v", office, code, got, want))
		}
	}
	return problems
}
