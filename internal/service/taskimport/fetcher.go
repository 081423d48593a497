package taskimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mnperrone/tasks-api/internal/config"
	"github.com/mnperrone/tasks-api/internal/platform/logger"
)

// ErrUpstreamUnavailable indicates the external task source could not be
// reached or kept answering with server errors after all retries.
var ErrUpstreamUnavailable = errors.New("upstream task source unavailable")

// Record is one task as reported by the external source.
type Record struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Fetcher retrieves the external source's current task list.
type Fetcher interface {
	// Fetch returns every record the upstream currently reports.
	// Returns ErrUpstreamUnavailable when the source cannot be reached.
	Fetch(ctx context.Context) ([]Record, error)
}

// HTTPFetcher fetches records over HTTP with bounded retries.
type HTTPFetcher struct {
	client   *http.Client
	endpoint string
	retries  int
	backoff  time.Duration
	logger   *slog.Logger
}

// Ensure HTTPFetcher implements Fetcher interface
var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a fetcher for the configured sync endpoint.
// A nil client falls back to a client with a 10 second timeout.
func NewHTTPFetcher(cfg config.SyncConfig, client *http.Client, log *slog.Logger) (*HTTPFetcher, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("sync endpoint cannot be empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}

	retries := cfg.RetryCount
	if retries < 1 {
		retries = 1
	}

	return &HTTPFetcher{
		client:   client,
		endpoint: cfg.Endpoint,
		retries:  retries,
		backoff:  time.Duration(cfg.RetryBackoffMillis) * time.Millisecond,
		logger:   log.With(slog.String("component", "task_fetcher")),
	}, nil
}

// Fetch implements Fetcher.Fetch. Each attempt issues one GET; transport
// errors and 5xx responses are retried after the configured backoff, any
// other non-200 status fails immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]Record, error) {
	log := logger.FromContextOrDefault(ctx, f.logger)

	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		records, retryable, err := f.fetchOnce(ctx)
		if err == nil {
			return records, nil
		}
		lastErr = err

		log.Warn("fetch attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.retries),
			slog.Bool("retryable", retryable),
			slog.String("error", err.Error()))

		if !retryable {
			return nil, err
		}
		if attempt < f.retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.backoff):
			}
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, lastErr)
}

// fetchOnce performs a single request. The second return value reports
// whether the failure is worth retrying.
func (f *HTTPFetcher) fetchOnce(ctx context.Context) ([]Record, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("%w: upstream returned status %d",
			ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, false, fmt.Errorf("%w: failed to decode response: %w",
			ErrUpstreamUnavailable, err)
	}

	return records, false, nil
}
