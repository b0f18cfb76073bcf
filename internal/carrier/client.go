package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sdko-org/sim-fleet/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	defaultRetryAfter = 60 * time.Second
	backoffBase       = 2 * time.Second
	backoffCap        = 10 * time.Second
)

// Client is the typed façade over the carrier management API. Every
// operation maps 1:1 to an endpoint and delegates to the request pipeline.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	tokens     *tokenSource
	log        *logrus.Entry

	// wait is swapped for a no-op in tests.
	wait func(ctx context.Context, d time.Duration) error
}

type loggingTransport struct {
	log *logrus.Entry
}

func NewClient(logger *logrus.Logger, cfg *config.Config) *Client {
	httpClient := &http.Client{
		Timeout:   cfg.CarrierTimeout,
		Transport: &loggingTransport{log: logger.WithField("component", "carrier_transport")},
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.CarrierBaseURL, "/"),
		maxRetries: cfg.CarrierMaxRetries,
		tokens:     newTokenSource(httpClient, cfg.CarrierBaseURL, cfg.CarrierClientID, cfg.CarrierClientSecret, logger),
		log:        logger.WithField("component", "carrier_client"),
		wait:       waitBackoff,
	}
}

// waitBackoff sleeps for the backoff delay unless the context is canceled
// first.
func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := t.log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		log.WithError(err).Error("HTTP request failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	}).Debug("HTTP request completed")
	return resp, nil
}

// request executes one authenticated call. Transient failures (connection
// errors, timeouts) are retried with exponential backoff up to maxRetries
// total attempts; HTTP error statuses are surfaced unretried.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			delay := backoffBase << (attempt - 2)
			if delay > backoffCap {
				delay = backoffCap
			}
			if err := c.wait(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = c.do(ctx, method, path, query, body, out, token)
		if lastErr == nil {
			return nil
		}
		var authErr *AuthError
		if errors.As(lastErr, &authErr) {
			// The token was accepted at exchange time but rejected on use.
			c.tokens.Invalidate()
			return lastErr
		}
		if !isTransient(lastErr) {
			return lastErr
		}

		c.log.WithFields(logrus.Fields{
			"method":  method,
			"path":    path,
			"attempt": attempt,
			"error":   lastErr,
		}).Warn("Carrier request attempt failed")
	}

	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, token string) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &TimeoutError{Path: path, Err: err}
		}
		return &transportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &AuthError{StatusCode: resp.StatusCode, Body: string(payload)}

	case resp.StatusCode == http.StatusNoContent:
		return nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode carrier response for %s: %w", path, err)
		}
		return nil

	default:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(payload)}
	}
}

func isTimeout(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return os.IsTimeout(err)
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
