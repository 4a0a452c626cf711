package seeder

import "time"

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Offices    int           // Number of offices to report for
	Days       int           // Number of consecutive days per office
	Duplicates float64       // Fraction of office-days that get a second, later report
	Invalid    int           // Number of invalid reports to send
	Workers    int           // Concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for the generated reports
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable debug logging

	// End is the last report date; zero means today (UTC).
	End time.Time
	// Seed drives the generator; zero picks one at random.
	Seed uint64
}

// Stats holds run statistics.
type Stats struct {
	RunID           string
	Generated       int
	Submitted       int
	Accepted        int
	Failed          int
	InvalidSent     int
	InvalidRejected int
	Verified        bool
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
