// Package service implements the report operations behind the HTTP API: it
// validates and stores submissions, keeps the dashboard charts projected and
// serves cached read views.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/igot/internal/adapters/cache"
	eventqueue "github.com/okian/igot/internal/adapters/mq/queue"
	workerpool "github.com/okian/igot/internal/adapters/mq/worker"
	"github.com/okian/igot/internal/adapters/repository"
	"github.com/okian/igot/internal/domain/aggregate"
	"github.com/okian/igot/internal/domain/chart"
	"github.com/okian/igot/internal/domain/datefmt"
	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/pkg/logger"
	"github.com/okian/igot/pkg/metrics"
)

// Cached view names.
const (
	viewSummary = "summary"
	viewOffices = "offices"
	viewCharts  = "charts"
)

// Service implements the API dependencies for the reports dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  repository.Store
	cache  cache.Cache
	dates  *datefmt.Formatter
	queue  *eventqueue.InMemoryQueue
	pool   *workerpool.Pool
	cancel context.CancelFunc

	officeChart *chart.OfficeChart
	dateChart   *chart.DateChart

	// projMu serializes chart projection. writeSeq counts accepted writes;
	// projectedSeq is the writeSeq the charts last reflected.
	projMu       sync.Mutex
	writeSeq     atomic.Uint64
	projectedSeq atomic.Uint64
	primed       atomic.Bool

	// cacheStale is set when a purge failed; reads bypass the cache until a
	// later purge succeeds. staleMu orders the flag against purges.
	staleMu    sync.Mutex
	cacheStale atomic.Bool

	// Configuration
	workerCount int
	queueSize   int
	now         func() time.Time

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of projection workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the projection queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCache sets the view cache. The default caches nothing.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithDateFormatter sets the formatter used for chart labels and the
// dashboard date banner.
func WithDateFormatter(f *datefmt.Formatter) Option {
	return func(s *Service) {
		if f != nil {
			s.dates = f
		}
	}
}

// WithClock overrides the time source used to stamp form submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		cache:       cache.Nop{},
		dates:       datefmt.Must(datefmt.DefaultLocale),
		officeChart: chart.NewOfficeChart(),
		dateChart:   chart.NewDateChart(),
		workerCount: min(runtime.NumCPU(), 2),
		queueSize:   1024,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start projects the stored reports once and starts the projection workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting report service...")

	if err := s.refresh(ctx); err != nil {
		return fmt.Errorf("service.start: initial projection: %w", err)
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.ProjectorFunc(s.Project))

	// Workers outlive the start context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "report service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("locale", s.dates.Locale()),
	)
	return nil
}

// Stop drains the projection workers. The store and cache stay open; their
// owner closes them.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping report service...")
	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "report service stopped", logger.Int64("projected", s.pool.Processed()))
	return err
}

func (s *Service) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Get().Named("service")
}

// CreateReport validates and stores r. The returned report is the
// normalized record as stored.
func (s *Service) CreateReport(ctx context.Context, r report.Report) (report.Report, error) {
	const op = "service.create_report"

	r = r.Normalize()
	if err := r.Validate(); err != nil {
		var ve *report.ValidationError
		reason := "invalid"
		if errors.As(err, &ve) {
			reason = ve.Field
		}
		metrics.RecordReportRejected(reason)
		return report.Report{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Create(ctx, r); err != nil {
		return report.Report{}, fmt.Errorf("%s: %w", op, err)
	}
	seq := s.writeSeq.Add(1)

	if err := s.cache.Purge(ctx); err != nil {
		s.log().Warn(ctx, "view cache purge failed; bypassing cache", logger.Error(err))
		metrics.RecordErrorByComponent("cache", "purge")
		s.staleMu.Lock()
		s.cacheStale.Store(true)
		s.staleMu.Unlock()
	}
	metrics.RecordReportCreated()

	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q != nil && !q.Enqueue(ctx, eventqueue.Job{Seq: seq, Report: r}) {
		// The next chart read projects synchronously.
		s.log().Debug(ctx, "projection job dropped", logger.Int64("seq", int64(seq)))
	}
	return r, nil
}

// SubmitForm parses a raw submission and stores it.
func (s *Service) SubmitForm(ctx context.Context, f report.Form) (report.Report, error) {
	r, err := report.ParseForm(f, s.now())
	if err != nil {
		var ve *report.ValidationError
		if errors.As(err, &ve) {
			metrics.RecordReportRejected(ve.Field)
		}
		return report.Report{}, fmt.Errorf("service.submit_form: %w", err)
	}
	return s.CreateReport(ctx, r)
}

// Reports returns every stored report, in insertion order or, when recent is
// set, newest date first.
func (s *Service) Reports(ctx context.Context, recent bool) ([]report.Report, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.reports: %w", err)
	}
	if recent {
		list = aggregate.SortRecent(list)
	}
	return list, nil
}

// Latest returns the office's most recent report or repository.ErrNotFound.
func (s *Service) Latest(ctx context.Context, office string) (report.Report, error) {
	r, err := s.store.LatestByOffice(ctx, office)
	if err != nil {
		return report.Report{}, fmt.Errorf("service.latest: %w", err)
	}
	return r, nil
}

// Filter returns the reports matching c. A malformed date is a validation
// error.
func (s *Service) Filter(ctx context.Context, c aggregate.Criteria, recent bool) ([]report.Report, error) {
	const op = "service.filter"

	c, err := checkCriteria(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.store.Filter(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if recent {
		list = aggregate.SortRecent(list)
	}
	return list, nil
}

// Export returns the reports matching c newest first, for download.
func (s *Service) Export(ctx context.Context, c aggregate.Criteria) ([]report.Report, error) {
	list, err := s.Filter(ctx, c, true)
	if err != nil {
		return nil, err
	}
	metrics.RecordExport()
	return list, nil
}

func checkCriteria(c aggregate.Criteria) (aggregate.Criteria, error) {
	c = c.Normalize()
	if c.Date != "" && !report.ValidDate(c.Date) {
		return c, &report.ValidationError{
			Field: "date",
			Kind:  report.ErrInvalidDate,
			Msg:   "date must be a calendar date (YYYY-MM-DD)",
		}
	}
	return c, nil
}

// Summary returns the totals over every stored report.
func (s *Service) Summary(ctx context.Context) (report.Summary, error) {
	var sum report.Summary
	err := s.cached(ctx, viewSummary, viewSummary, &sum, func() (any, error) {
		start := time.Now()
		v, err := s.store.Summary(ctx)
		metrics.RecordAggregationLatency(viewSummary, sinceMs(start))
		return v, err
	})
	if err != nil {
		return report.Summary{}, fmt.Errorf("service.summary: %w", err)
	}
	return sum, nil
}

// Offices returns the distinct offices in first-seen order.
func (s *Service) Offices(ctx context.Context) ([]string, error) {
	offices := []string{}
	err := s.cached(ctx, viewOffices, viewOffices, &offices, func() (any, error) {
		list, err := s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		return aggregate.Offices(list), nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.offices: %w", err)
	}
	return offices, nil
}

// Charts returns the data for both charts over the reports matching c. With
// no criteria the owned chart components answer; otherwise a transient pair
// is built from the filtered reports.
func (s *Service) Charts(ctx context.Context, c aggregate.Criteria) (chart.Set, error) {
	const op = "service.charts"

	c, err := checkCriteria(c)
	if err != nil {
		return chart.Set{}, fmt.Errorf("%s: %w", op, err)
	}

	if c.IsZero() {
		if !s.primed.Load() || s.projectedSeq.Load() < s.writeSeq.Load() {
			if err := s.refresh(ctx); err != nil {
				return chart.Set{}, fmt.Errorf("%s: %w", op, err)
			}
		}
		// Both charts come from the same projection.
		s.projMu.Lock()
		defer s.projMu.Unlock()
		return chart.Set{Office: s.officeChart.Data(), Date: s.dateChart.Data()}, nil
	}

	var set chart.Set
	key := viewCharts + ":" + c.Office + "|" + c.Date
	err = s.cached(ctx, viewCharts, key, &set, func() (any, error) {
		list, err := s.store.Filter(ctx, c)
		if err != nil {
			return nil, err
		}
		oc, dc := chart.NewOfficeChart(), chart.NewDateChart()
		s.project(list, oc, dc)
		return chart.Set{Office: oc.Data(), Date: dc.Data()}, nil
	})
	if err != nil {
		return chart.Set{}, fmt.Errorf("%s: %w", op, err)
	}
	return set, nil
}

// Project brings the chart components up to date with the store. Jobs whose
// write is already reflected are skipped.
func (s *Service) Project(ctx context.Context, j eventqueue.Job) error { //nolint:gocritic // hugeParam: matches the worker signature
	if s.primed.Load() && j.Seq <= s.projectedSeq.Load() {
		return nil
	}
	return s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) error {
	s.projMu.Lock()
	defer s.projMu.Unlock()

	seq := s.writeSeq.Load()
	if s.primed.Load() && seq <= s.projectedSeq.Load() {
		return nil
	}

	start := time.Now()
	gen, cacheable := s.generation(ctx)
	list, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("service.refresh: %w", err)
	}
	s.project(list, s.officeChart, s.dateChart)

	if cacheable {
		if b, err := json.Marshal(aggregate.Summarize(list)); err == nil {
			s.cache.Set(ctx, viewKey(viewSummary, gen), b)
		}
	}

	s.projectedSeq.Store(seq)
	s.primed.Store(true)
	metrics.RecordProjection(sinceMs(start))
	return nil
}

func (s *Service) project(list []report.Report, oc *chart.OfficeChart, dc *chart.DateChart) {
	start := time.Now()
	oc.Update(aggregate.OfficeSnapshots(list))
	metrics.RecordAggregationLatency("office_snapshots", sinceMs(start))

	start = time.Now()
	dc.Update(aggregate.DateSeriesOf(list, s.dates.Short))
	metrics.RecordAggregationLatency("date_series", sinceMs(start))
}

// cached decodes the view stored under key into dst, or computes it with
// build, stores it and decodes it into dst. The cache generation is read
// before build touches the store, so a view that misses a write is stored
// under a generation that write has already retired.
func (s *Service) cached(ctx context.Context, view, key string, dst any, build func() (any, error)) error {
	gen, cacheable := s.generation(ctx)
	if cacheable {
		if b, ok := s.cache.Get(ctx, viewKey(key, gen)); ok {
			if err := json.Unmarshal(b, dst); err == nil {
				metrics.RecordCacheHit(view)
				return nil
			}
		}
	}
	metrics.RecordCacheMiss(view)

	v, err := build()
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if cacheable {
		s.cache.Set(ctx, viewKey(key, gen), b)
	}
	return json.Unmarshal(b, dst)
}

// generation returns the cache generation to read and store views under.
// It reports false when the cache must be bypassed: a purge failed and
// retrying it failed again, or the generation could not be read.
func (s *Service) generation(ctx context.Context) (uint64, bool) {
	if s.cacheStale.Load() {
		s.staleMu.Lock()
		if s.cacheStale.Load() {
			if err := s.cache.Purge(ctx); err == nil {
				s.cacheStale.Store(false)
			}
		}
		stale := s.cacheStale.Load()
		s.staleMu.Unlock()
		if stale {
			return 0, false
		}
	}

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("cache", "generation")
		return 0, false
	}
	return gen, true
}

func viewKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

// Today renders the current day for the dashboard banner.
func (s *Service) Today() string {
	return s.dates.Long(s.now())
}

// Locale returns the display locale.
func (s *Service) Locale() string { return s.dates.Locale() }

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("service.ping: %w", err)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"locale":        s.dates.Locale(),
		"writes":        s.writeSeq.Load(),
		"projectedSeq":  s.projectedSeq.Load(),
		"officeVersion": s.officeChart.Version(),
		"dateVersion":   s.dateChart.Version(),
	}

	if n, err := s.store.Count(ctx); err == nil {
		stats["totalReports"] = n
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["projected"] = s.pool.Processed()
		stats["uptime"] = s.now().Sub(s.startedAt).Round(time.Second).String()
	}
	return stats
}

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
