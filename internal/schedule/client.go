package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/busfinder/busfinder/internal/logging"
	"github.com/busfinder/busfinder/internal/metrics"
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status from schedule API")
	// ErrMalformedResponse is returned when the body is not a JSON array of trips.
	ErrMalformedResponse = errors.New("malformed schedule API response")
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport overrides http.DefaultTransport, mostly for tests.
	Transport http.RoundTripper
}

// Client fetches trips from the schedule API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient builds a Client. m and logger may be nil.
func NewClient(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &userAgentTransport{
				userAgent: cfg.UserAgent,
				next:      base,
			},
		},
		metrics: m,
		logger:  logger.With(slog.String("component", "schedule_client")),
	}
}

// BaseURL returns the endpoint queries are appended to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch runs one lookup and returns the trips in the order the API sent
// them. A JSON null body is treated as an empty list.
func (c *Client) Fetch(ctx context.Context, q Query) ([]Trip, error) {
	url := q.URL(c.baseURL)
	c.logger.Debug("schedule API request", slog.String("url", url))

	start := time.Now()
	trips, outcome, err := c.fetch(ctx, url)
	c.metrics.ObserveFetch(outcome, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	c.logger.Debug("schedule API response",
		slog.String("url", url),
		slog.Int("trips", len(trips)))
	return trips, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]Trip, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, metrics.OutcomeTransport, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, metrics.OutcomeTransport, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer logging.SafeCloseWithLogging(resp.Body, c.logger, "schedule response body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, metrics.OutcomeStatus, fmt.Errorf("%w: HTTP %d from %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, metrics.OutcomeTransport, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	trips, err := decodeTrips(body)
	if err != nil {
		return nil, metrics.OutcomeMalformed, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return trips, metrics.OutcomeSuccess, nil
}

func decodeTrips(body []byte) ([]Trip, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty body")
	}
	if bytes.Equal(body, []byte("null")) {
		return []Trip{}, nil
	}
	if body[0] != '[' {
		return nil, errors.New("expected a JSON array")
	}

	var trips []Trip
	if err := json.Unmarshal(body, &trips); err != nil {
		return nil, err
	}
	if trips == nil {
		trips = []Trip{}
	}
	return trips, nil
}

// userAgentTransport stamps every outgoing request with a User-Agent.
type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(clone)
}
