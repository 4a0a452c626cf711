package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/pkg/metrics"

	_ "modernc.org/sqlite"
)

const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

const reportColumns = "date, office, total_employees, registered_employees, enrolled_employees, completed_courses"

// SQLiteStore persists reports in a SQLite file. The schema is managed by
// embedded migrations applied on open.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path and
// migrates it to the latest schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := path + sqlitePragmas
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dsn); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Create inserts r.
func (s *SQLiteStore) Create(ctx context.Context, r report.Report) (err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "create", start, err) }()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO reports ("+reportColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		r.Date, r.Office, r.TotalEmployees, r.RegisteredEmployees, r.EnrolledEmployees, r.CompletedCourses,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	if n, cerr := s.Count(ctx); cerr == nil {
		metrics.UpdateStoredReports(n)
	}
	return nil
}

// List returns every report in insertion order.
func (s *SQLiteStore) List(ctx context.Context) (out []report.Report, err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "list", start, err) }()

	return s.query(ctx, "SELECT "+reportColumns+" FROM reports ORDER BY id")
}

// LatestByOffice returns the office's snapshot report.
func (s *SQLiteStore) LatestByOffice(ctx context.Context, office string) (r report.Report, err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "latest", start, err) }()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE office = ? ORDER BY date DESC, id DESC LIMIT 1",
		office,
	)
	r, err = scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Report{}, ErrNotFound
	}
	if err != nil {
		return report.Report{}, fmt.Errorf("latest report for %q: %w", office, err)
	}
	return r, nil
}

// Filter returns the reports matching c in insertion order.
func (s *SQLiteStore) Filter(ctx context.Context, c aggregate.Criteria) (out []report.Report, err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "filter", start, err) }()

	where, args := sqliteWhere(c)
	return s.query(ctx, "SELECT "+reportColumns+" FROM reports"+where+" ORDER BY id", args...)
}

// sqliteWhere renders c as a WHERE clause with positional arguments.
func sqliteWhere(c aggregate.Criteria) (string, []any) {
	c = c.Normalize()
	var (
		conds []string
		args  []any
	)
	if c.Office != "" {
		conds = append(conds, "office = ?")
		args = append(args, c.Office)
	}
	if c.Date != "" {
		conds = append(conds, "date = ?")
		args = append(args, c.Date)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Summary sums every stored report.
func (s *SQLiteStore) Summary(ctx context.Context) (sum report.Summary, err error) {
	start := time.Now()
	defer func() { observe(BackendSQLite, "summary", start, err) }()

	err = s.db.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(total_employees), 0),
		COALESCE(SUM(registered_employees), 0),
		COALESCE(SUM(enrolled_employees), 0),
		COALESCE(SUM(completed_courses), 0)
		FROM reports`).Scan(&sum.TotalEmployees, &sum.RegisteredEmployees, &sum.EnrolledEmployees, &sum.CompletedCourses)
	if err != nil {
		return report.Summary{}, fmt.Errorf("summarize reports: %w", err)
	}
	return sum, nil
}

// Count returns the number of stored reports.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]report.Report, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	out := make([]report.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (report.Report, error) {
	var r report.Report
	err := sc.Scan(&r.Date, &r.Office, &r.TotalEmployees, &r.RegisteredEmployees, &r.EnrolledEmployees, &r.CompletedCourses)
	return r, err
}
