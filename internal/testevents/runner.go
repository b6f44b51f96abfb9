package testevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/placerank/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes the complete traffic run: register, submit, wait, verify.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting placerank traffic run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.NumUsers),
		logger.Int("places", config.NumPlaces),
		logger.Int("events", config.NumEvents),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Int("topN", config.TopN),
		logger.Int("sample", config.Sample),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate traffic
	traffic, err := generateTraffic(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("traffic generation failed: %w", err)
	}

	// Step 3: Register users and places
	if err := registerRoster(ctx, config, traffic, stats); err != nil {
		return fmt.Errorf("roster registration failed: %w", err)
	}

	// Step 4: Submit events concurrently
	if err := submitEvents(ctx, config, traffic.Events, stats); err != nil {
		return fmt.Errorf("event submission failed: %w", err)
	}

	// Step 5: Wait for the workers to append what was accepted
	logger.Get().Info(ctx, "waiting for events to be processed")
	if err := waitForProcessing(ctx, config, stats.EventsSuccessful); err != nil {
		return err
	}

	// Step 6: Retrieve ranking and recommendations
	client := newHTTPClient(config.BaseURL, config.Timeout)
	ranking, err := fetchRanking(ctx, client, config.TopN)
	if err != nil {
		return fmt.Errorf("ranking retrieval failed: %w", err)
	}
	stats.RankingEntries = len(ranking)

	recs, err := fetchRecommendations(ctx, config, traffic.Users)
	if err != nil {
		return fmt.Errorf("recommendation retrieval failed: %w", err)
	}

	// Step 7: Verify results
	verifyErr := verifyResults(ctx, config, traffic, ranking, recs, stats)

	// Step 8: Save traffic to file
	if err := saveTrafficToFile(ctx, config, traffic); err != nil {
		logger.Get().Warn(ctx, "failed to save traffic to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if verifyErr != nil {
		return fmt.Errorf("result verification failed: %w", verifyErr)
	}
	logger.Get().Info(ctx, "run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.BaseURL, config.Timeout)
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return fmt.Errorf("failed to read health response: %w", err)
	}

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveTrafficToFile writes the generated traffic as JSON.
func saveTrafficToFile(ctx context.Context, config *Config, traffic Traffic) error {
	if len(traffic.Events) == 0 && len(traffic.Places) == 0 {
		return errors.New("no traffic to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_traffic_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(traffic, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal traffic: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "traffic saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, eventsPerSecond float64

	if stats.EventsSubmitted > 0 {
		successRate = float64(stats.EventsSuccessful) / float64(stats.EventsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("usersRegistered", stats.UsersRegistered),
		logger.Int("placesRegistered", stats.PlacesRegistered),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("rankingEntries", stats.RankingEntries),
		logger.Int("recommendationsOK", stats.RecommendationsOK),
		logger.Int("coldStarts", stats.ColdStarts),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
