package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/placerank/internal/testevents"
)

// Default configuration constants.
const (
	defaultNumUsers  = 200
	defaultNumPlaces = 50
	defaultNumEvents = 5000
	defaultTopN      = 100
	defaultSample    = 50
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 30 * time.Second
	defaultSeed      = 1
	defaultRunTime   = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numUsers   = flag.Int("users", defaultNumUsers, "Number of users to register")
		numPlaces  = flag.Int("places", defaultNumPlaces, "Number of places to register")
		numEvents  = flag.Int("events", defaultNumEvents, "Number of events to generate and submit")
		topN       = flag.Int("top", defaultTopN, "Number of ranking entries to fetch")
		sample     = flag.Int("sample", defaultSample, "Number of users whose recommendations are verified")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", defaultSeed, "Random seed for reproducible traffic")
		outputFile = flag.String("output", "", "Output file for generated traffic (default: generated_traffic_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for run output (default: traffic_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	if err := testevents.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTime)
	defer cancel()

	config := &testevents.Config{
		BaseURL:    *baseURL,
		NumUsers:   *numUsers,
		NumPlaces:  *numPlaces,
		NumEvents:  *numEvents,
		TopN:       *topN,
		Sample:     *sample,
		Workers:    max(1, *workers),
		Timeout:    *timeout,
		Seed:       *seed,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := testevents.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
