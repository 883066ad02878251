package ipinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultURL is the ipinfo.io endpoint describing the caller's own address
const DefaultURL = "https://ipinfo.io/json"

// maxErrorBody caps how much of a failed response body ends up in an error
const maxErrorBody = 512

// Config holds geolocation API configuration
type Config struct {
	URL string
	// APITimeout is in seconds; zero leaves requests unbounded
	APITimeout int
}

// Client fetches IP information over HTTP
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a new geolocation API client
func NewClient(cfg Config) *Client {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.APITimeout) * time.Second,
		},
		url: url,
	}
}

// Fetch performs a single GET against the API and decodes the record.
// There are no retries; a failure is returned to the caller as is.
func (c *Client) Fetch(ctx context.Context) (*Info, error) {
	log := log.With().
		Str("component", "ipinfo_client").
		Str("url", c.url).
		Logger()

	log.Debug().Msg("Fetching IP information")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create HTTP request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("HTTP request failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().Int("status_code", resp.StatusCode).Msg("Received HTTP response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error().
			Int("status_code", resp.StatusCode).
			Str("status", resp.Status).
			Str("response_body", string(body)).
			Msg("Unexpected status from geolocation API")
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		log.Error().Err(err).Msg("Failed to decode IP information")
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	log.Debug().
		Str("ip", info.IP).
		Str("country", info.Country).
		Msg("Successfully decoded IP information")

	return &info, nil
}
