// Package repository defines the report store interface, its errors and the
// memory, SQLite and MongoDB implementations.
package repository

import (
	"context"

	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/report"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Store persists report records and answers the dashboard's queries.
// Records are append-only; every read returns them in insertion order
// unless stated otherwise.
type Store interface {
	// Create appends r. Callers validate r first.
	Create(ctx context.Context, r report.Report) error

	// List returns every report in insertion order.
	List(ctx context.Context) ([]report.Report, error)

	// LatestByOffice returns the office's report with the greatest date; on a
	// tie the most recently inserted wins. Returns ErrNotFound when the
	// office has no reports.
	LatestByOffice(ctx context.Context, office string) (report.Report, error)

	// Filter returns the reports matching c in insertion order.
	Filter(ctx context.Context, c aggregate.Criteria) ([]report.Report, error)

	// Summary sums the four counters over every stored report.
	Summary(ctx context.Context) (report.Summary, error)

	// Count returns the number of stored reports.
	Count(ctx context.Context) (int, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
