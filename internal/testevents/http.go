package testevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/placerank/internal/domain/types"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// registerRoster creates every user and place. Conflicts count as registered
// so a run can be repeated against the same service.
func registerRoster(ctx context.Context, config *Config, traffic Traffic, stats *Stats) error {
	client := newHTTPClient(config.BaseURL, config.Timeout)

	register := func(path string, items []any) (int, error) {
		var ok int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(config.Workers)
		for _, item := range items {
			g.Go(func() error {
				resp, err := client.Post(gctx, path, item)
				if err != nil {
					return fmt.Errorf("register %s: %w", path, err)
				}
				body, _ := readResponseBody(resp)
				switch resp.StatusCode {
				case http.StatusCreated, http.StatusConflict:
					atomic.AddInt64(&ok, 1)
					return nil
				default:
					return fmt.Errorf("register %s: HTTP %d: %s", path, resp.StatusCode, string(body))
				}
			})
		}
		err := g.Wait()
		return int(atomic.LoadInt64(&ok)), err
	}

	users := make([]any, len(traffic.Users))
	for i, u := range traffic.Users {
		users[i] = u
	}
	n, err := register("/users", users)
	stats.UsersRegistered = n
	if err != nil {
		return err
	}

	places := make([]any, len(traffic.Places))
	for i, p := range traffic.Places {
		places[i] = p
	}
	n, err = register("/places", places)
	stats.PlacesRegistered = n
	if err != nil {
		return err
	}

	log.Printf("✅ Registered %d users and %d places", stats.UsersRegistered, stats.PlacesRegistered)
	return nil
}

// submitEvents submits events concurrently with a bounded number of workers.
func submitEvents(ctx context.Context, config *Config, events []Event, stats *Stats) error {
	log.Printf("📤 Submitting %d events with %d workers...", len(events), config.Workers)

	client := newHTTPClient(config.BaseURL, config.Timeout)

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
		lastReport atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, event := range events {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			switch submitSingleEvent(gctx, client, event) {
			case resultSuccess:
				atomic.AddInt64(&successful, 1)
			case resultDuplicate:
				atomic.AddInt64(&duplicate, 1)
			default:
				atomic.AddInt64(&failed, 1)
			}
			total := atomic.AddInt64(&submitted, 1)

			now := time.Now().UnixNano()
			last := lastReport.Load()
			if now-last >= int64(ProgressInterval) && lastReport.CompareAndSwap(last, now) && config.Verbose {
				log.Printf("📊 Progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
					total, len(events), atomic.LoadInt64(&successful),
					atomic.LoadInt64(&duplicate), atomic.LoadInt64(&failed))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.EventsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EventsSuccessful = int(atomic.LoadInt64(&successful))
	stats.EventsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.EventsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Event submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.EventsSuccessful, stats.EventsDuplicate, stats.EventsFailed)

	return ctx.Err()
}

// submitSingleEvent submits a single event and returns the result
func submitSingleEvent(ctx context.Context, client *HTTPClient, event Event) string {
	resp, err := client.Post(ctx, "/events", event)
	if err != nil {
		return resultFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed
	}

	var ack AckResponse
	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultSuccess
	case http.StatusOK:
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return resultDuplicate
		}
		return resultFailed
	default:
		return resultFailed
	}
}

// waitForProcessing polls /stats until the service reports at least want events.
func waitForProcessing(ctx context.Context, config *Config, want int) error {
	client := newHTTPClient(config.BaseURL, config.Timeout)
	ctx, cancel := context.WithTimeout(ctx, ProcessingTimeout)
	defer cancel()

	ticker := time.NewTicker(ProcessingPollInterval)
	defer ticker.Stop()
	for {
		var stats map[string]any
		if err := client.getJSON(ctx, "/stats", &stats); err == nil {
			if events, ok := stats["events"].(float64); ok && int(events) >= want {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("events not processed: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// fetchRanking retrieves the complete IL ranking.
func fetchRanking(ctx context.Context, client *HTTPClient, limit int) ([]types.RankedPlace, error) {
	var entries []types.RankedPlace
	if err := client.getJSON(ctx, fmt.Sprintf("/ranking?limit=%d", limit), &entries); err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	return entries, nil
}
