package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/pkg/metrics"
)

// MemoryStore keeps reports in a slice guarded by a RWMutex. Contents are
// lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []report.Report
	closed  bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Create appends r.
func (s *MemoryStore) Create(_ context.Context, r report.Report) error {
	start := time.Now()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		observe(BackendMemory, "create", start, ErrClosed)
		return ErrClosed
	}
	s.reports = append(s.reports, r)
	n := len(s.reports)
	s.mu.Unlock()

	metrics.UpdateStoredReports(n)
	observe(BackendMemory, "create", start, nil)
	return nil
}

// snapshot returns a copy of the stored reports.
func (s *MemoryStore) snapshot() []report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]report.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// List returns every report in insertion order.
func (s *MemoryStore) List(_ context.Context) ([]report.Report, error) {
	start := time.Now()
	out := s.snapshot()
	observe(BackendMemory, "list", start, nil)
	return out, nil
}

// LatestByOffice returns the office's snapshot report.
func (s *MemoryStore) LatestByOffice(_ context.Context, office string) (report.Report, error) {
	start := time.Now()
	s.mu.RLock()
	var (
		latest report.Report
		found  bool
	)
	for _, r := range s.reports {
		if r.Office != office {
			continue
		}
		if !found || r.Date >= latest.Date {
			latest, found = r, true
		}
	}
	s.mu.RUnlock()

	if !found {
		observe(BackendMemory, "latest", start, ErrNotFound)
		return report.Report{}, ErrNotFound
	}
	observe(BackendMemory, "latest", start, nil)
	return latest, nil
}

// Filter returns the reports matching c.
func (s *MemoryStore) Filter(_ context.Context, c aggregate.Criteria) ([]report.Report, error) {
	start := time.Now()
	out := aggregate.Filter(s.snapshot(), c)
	observe(BackendMemory, "filter", start, nil)
	return out, nil
}

// Summary sums every stored report.
func (s *MemoryStore) Summary(_ context.Context) (report.Summary, error) {
	start := time.Now()
	s.mu.RLock()
	sum := aggregate.Summarize(s.reports)
	s.mu.RUnlock()
	observe(BackendMemory, "summary", start, nil)
	return sum, nil
}

// Count returns the number of stored reports.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports), nil
}

// Ping fails once the store is closed.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed. Reads keep working.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
