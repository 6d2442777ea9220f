package facerec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the configuration for the face_recognition service client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Model      string // "hog" or "cnn"
	Upsample   int
	RetryCount int
}

// DefaultConfig returns a Config with sensible defaults.
// RetryCount is zero: failed calls surface immediately to the capture loop.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:5001",
		Timeout:    10 * time.Second,
		Model:      "hog",
		Upsample:   1,
		RetryCount: 0,
	}
}

// Client is the HTTP client for the face_recognition service
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new face_recognition client
func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Locations calls POST /locations to find face boxes
func (c *Client) Locations(ctx context.Context, imageBase64 string) (*LocationsResponse, error) {
	req := LocationsRequest{
		Img:      imageBase64,
		Model:    c.config.Model,
		Upsample: c.config.Upsample,
	}

	var resp LocationsResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/locations", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Encodings calls POST /encodings to compute one embedding per location
func (c *Client) Encodings(ctx context.Context, imageBase64 string, locations []Location) (*EncodingsResponse, error) {
	req := EncodingsRequest{
		Img:       imageBase64,
		Locations: locations,
	}

	var resp EncodingsResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/encodings", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Landmarks calls POST /landmarks to fetch eye contours per location
func (c *Client) Landmarks(ctx context.Context, imageBase64 string, locations []Location) (*LandmarksResponse, error) {
	req := LandmarksRequest{
		Img:       imageBase64,
		Locations: locations,
	}

	var resp LandmarksResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, "/landmarks", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 30 * time.Second

// calculateBackoff calculates exponential backoff duration for a given attempt
// Returns 1s, 2s, 4s, 8s, etc. up to maxBackoff
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	seconds := 1
	for i := 1; i < attempt && i < 6; i++ {
		seconds *= 2
	}
	backoff := time.Duration(seconds) * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

// doRequestWithRetry executes HTTP request with retry logic
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		lastErr = c.doRequest(ctx, method, path, body, result)
		if lastErr == nil {
			return nil
		}

		// Don't retry on context errors
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Only server errors (5xx) and transport failures are retried
		if isClientError(lastErr) || errors.Is(lastErr, ErrInvalidResponse) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrServiceUnavailable, lastErr)
}

// statusError carries the HTTP status of a failed call
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("facerec returned status %d: %s", e.StatusCode, e.Body)
}

// isClientError checks if the error is a 4xx client error
func isClientError(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}

// doRequest executes a single HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &statusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	return nil
}
