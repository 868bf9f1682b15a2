// Package services holds the HTTP plumbing shared by every external
// metadata-source client: rate-limit acquisition, retry with
// exponential backoff, and uniform not-found handling.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"kandarr/internal/ratelimit"
)

// ErrNotFound signals that the upstream source had no match. Callers
// must treat it as a valid terminal outcome, not a failure.
var ErrNotFound = errors.New("no upstream match")

const maxRetries = 3

// HTTPError carries a non-2xx upstream response
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Retriable reports whether err represents a transient condition worth
// an automatic retry (rate limits, server errors, timeouts).
func Retriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return false
}

// Client is the shared transport for one external provider
type Client struct {
	Provider   string // rate-limiter key
	HTTPClient *http.Client
	Limiter    *ratelimit.Limiter
	Logger     *logrus.Logger
}

// NewClient creates a provider transport with a 30-second timeout
func NewClient(provider string, limiter *ratelimit.Limiter, logger *logrus.Logger) *Client {
	return &Client{
		Provider:   provider,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    limiter,
		Logger:     logger,
	}
}

// GetJSON performs a rate-limited GET and decodes the JSON response
// into result. Transient failures are retried with exponential backoff;
// a 404 comes back as ErrNotFound.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, result interface{}) error {
	operation := func() error {
		if err := c.Limiter.Wait(ctx, c.Provider); err != nil {
			return backoff.Permanent(err)
		}

		c.Logger.WithFields(logrus.Fields{
			"provider": c.Provider,
			"url":      url,
		}).Debug("Making provider API request")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "kandarr/1.0")
		for name, value := range headers {
			req.Header.Set(name, value)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if Retriable(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("request failed: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(ErrNotFound)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			httpErr := &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
			if Retriable(httpErr) {
				return httpErr
			}
			return backoff.Permanent(httpErr)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%s request failed: %w", c.Provider, err)
	}
	return nil
}
