package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/igot/internal/domain/report"
	"github.com/okian/igot/pkg/logger"
)

const (
	directoryPermission = 0o750
	percent             = 100
)

// ErrUnhealthy is returned when the service health check fails.
var ErrUnhealthy = errors.New("service unhealthy")

// Run executes a complete seeding run and returns its statistics. A
// verification mismatch is returned as an error wrapping ErrMismatch.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("seeder")
	stats := &Stats{StartTime: time.Now(), RunID: uuid.NewString()[:8]}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	log.Info(ctx, "starting seeding run",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("offices", cfg.Offices),
		logger.Int("days", cfg.Days),
		logger.Float64("duplicates", cfg.Duplicates),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", int64(seed)),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if code, err := client.GetJSON(ctx, "/healthz", nil); err != nil || code != http.StatusOK {
		return stats, fmt.Errorf("%w: status %d: %v", ErrUnhealthy, code, err)
	}

	// Step 2: Baseline summary
	var baseline report.Summary
	if _, err := client.GetJSON(ctx, "/api/reports/summary", &baseline); err != nil {
		return stats, fmt.Errorf("baseline summary: %w", err)
	}

	// Step 3: Generate reports
	batch := Generate(cfg, stats.RunID, rand.New(rand.NewPCG(seed, seed>>1|1)))
	stats.Generated = len(batch.Primary) + len(batch.Duplicates)
	log.Info(ctx, "generated reports",
		logger.Int("primary", len(batch.Primary)),
		logger.Int("duplicates", len(batch.Duplicates)),
		logger.Int("invalid", len(batch.Invalid)),
	)

	// Step 4: Submit, duplicates after their originals
	if err := submit(ctx, cfg, client, batch.Primary, stats, log); err != nil {
		return stats, err
	}
	if err := submit(ctx, cfg, client, batch.Duplicates, stats, log); err != nil {
		return stats, err
	}

	// Step 5: Invalid reports must be refused
	for _, body := range batch.Invalid {
		code, msg, err := client.PostJSON(ctx, "/api/reports", body)
		stats.InvalidSent++
		if err == nil && code == http.StatusBadRequest {
			stats.InvalidRejected++
			log.Debug(ctx, "invalid report rejected", logger.String("msg", msg))
			continue
		}
		log.Warn(ctx, "invalid report not rejected", logger.Int("status", code), logger.Any("body", body))
	}

	// Step 6: Verify
	verr := Verify(ctx, client, batch, baseline, stats.Failed == 0)
	stats.Verified = verr == nil

	// Step 7: Save reports
	if err := saveReports(cfg.OutputFile, batch); err != nil {
		log.Warn(ctx, "failed to save reports to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if verr != nil {
		return stats, verr
	}
	if stats.InvalidRejected != stats.InvalidSent {
		return stats, fmt.Errorf("%w: %d of %d invalid reports accepted",
			ErrMismatch, stats.InvalidSent-stats.InvalidRejected, stats.InvalidSent)
	}
	log.Info(ctx, "seeding run completed successfully")
	return stats, nil
}

func submit(ctx context.Context, cfg *Config, client *Client, reports []report.Report, stats *Stats, log logger.Logger) error {
	var accepted, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, r := range reports {
		g.Go(func() error {
			code, msg, err := client.PostJSON(gctx, "/api/reports", r)
			switch {
			case err != nil:
				failed.Add(1)
				log.Debug(gctx, "submit failed", logger.String("office", r.Office), logger.Error(err))
			case code != http.StatusCreated:
				failed.Add(1)
				log.Warn(gctx, "report refused",
					logger.String("office", r.Office),
					logger.String("date", r.Date),
					logger.Int("status", code),
					logger.String("msg", msg),
				)
			default:
				accepted.Add(1)
			}
			return gctx.Err()
		})
	}
	err := g.Wait()

	stats.Submitted += len(reports)
	stats.Accepted += int(accepted.Load())
	stats.Failed += int(failed.Load())
	if err != nil {
		return fmt.Errorf("submission interrupted: %w", err)
	}
	return nil
}

func saveReports(filename string, b Batch) error {
	if filename == "" {
		filename = "seeded_reports_" + time.Now().Format("20060102_150405") + ".json"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(struct {
		RunID   string           `json:"runId"`
		Reports []report.Report  `json:"reports"`
		Invalid []map[string]any `json:"invalid"`
	}{b.RunID, b.All(), b.Invalid}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal reports: %w", err)
	}
	return os.WriteFile(filename, data, 0o600)
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Accepted) / float64(stats.Submitted) * percent
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.String("runID", stats.RunID),
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("failed", stats.Failed),
		logger.Int("invalidSent", stats.InvalidSent),
		logger.Int("invalidRejected", stats.InvalidRejected),
		logger.Bool("verified", stats.Verified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("reportsPerSecond", perSecond),
	)
}
