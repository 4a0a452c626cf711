package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/igot/internal/seeder"
)

// Default configuration constants.
const (
	defaultOffices    = 10
	defaultDays       = 14
	defaultDuplicates = 0.1
	defaultInvalid    = 5
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:5000", "Base URL of the service")
		offices    = flag.Int("offices", defaultOffices, "Number of offices")
		days       = flag.Int("days", defaultDays, "Number of days per office")
		duplicates = flag.Float64("duplicates", defaultDuplicates, "Fraction of office-days submitted twice")
		invalid    = flag.Int("invalid", defaultInvalid, "Number of invalid reports to send")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", 0, "Generator seed (0 picks one at random)")
		outputFile = flag.String("output", "", "Output file for generated reports (default: seeded_reports_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file (default: seed_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Usage = func() { seeder.ShowHelp(os.Stderr) }
	flag.Parse()

	if *help {
		seeder.ShowHelp(os.Stdout)
		return
	}

	closer, err := seeder.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &seeder.Config{
		BaseURL:    *baseURL,
		Offices:    *offices,
		Days:       *days,
		Duplicates: *duplicates,
		Invalid:    *invalid,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
		Seed:       *seed,
	}

	if _, err := seeder.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		cancel()
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}
