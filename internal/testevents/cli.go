package testevents

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/placerank/pkg/logger"
)

// SetupLogging sends structured and progress output to the console and a file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "traffic_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	if err := logger.Init(logger.WithWriter(multiWriter)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the traffic tool.
func ShowHelp() {
	os.Stdout.WriteString(`Placerank Traffic Tool
======================

Registers users and places, submits check-ins, likes and bookmarks
concurrently, then verifies the IL ranking and a sample of recommendations.

Usage:
  go run ./cmd/test-events [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of users to register (default 200)
  -places int
        Number of places to register (default 50)
  -events int
        Number of events to generate and submit (default 5000)
  -top int
        Number of ranking entries to fetch (default 100)
  -sample int
        Number of users whose recommendations are verified (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Random seed; the same seed produces the same traffic (default 1)
  -output string
        Output file for generated traffic (default: generated_traffic_TIMESTAMP.json)
  -log string
        Log file for run output (default: traffic_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run with default settings
  go run ./cmd/test-events

  # Larger roster against another port
  go run ./cmd/test-events -users 2000 -places 100 -events 50000 -url http://localhost:8080

  # Replay the same traffic; every event should come back as a duplicate
  go run ./cmd/test-events -seed 7 && go run ./cmd/test-events -seed 7
`)
}
