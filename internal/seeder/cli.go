package seeder

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/igot/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and to logFile. An empty logFile
// gets a timestamped name.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		logFile = "seed_log_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file)), logger.WithLevel(level)); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the seeder.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `iGOT Report Seeder
==================

Submits generated office reports to a running service, then checks that the
service's summary, latest-per-office and filter views agree with the same
aggregation computed locally.

Usage:
  go run ./cmd/seed-reports [options]

Options:
  -url string         Base URL of the service (default "http://localhost:5000")
  -offices int        Number of offices (default 10)
  -days int           Number of days per office (default 14)
  -duplicates float   Fraction of office-days re-submitted later the same day (default 0.1)
  -invalid int        Number of invalid reports to send (default 5)
  -workers int        Concurrent submitters (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 10s)
  -seed uint          Generator seed; 0 picks one at random
  -output string      Output file for generated reports (default: seeded_reports_TIMESTAMP.json)
  -log string         Log file (default: seed_log_TIMESTAMP.log)
  -verbose            Enable verbose logging
  -help               Show this help message

Examples:
  go run ./cmd/seed-reports -offices 25 -days 30
  go run ./cmd/seed-reports -url http://localhost:8080 -workers 16 -verbose
`)
}
