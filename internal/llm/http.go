package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseRetryDelay = 2 * time.Second
	minRateLimitDelay     = 5 * time.Second // floor for 429 waits
)

// retryableStatusCode returns true for HTTP status codes that warrant a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// SendJSON posts a JSON body to a full URL with optional headers, retrying
// transient failures with exponential backoff and honoring Retry-After on
// rate limits. It does not assume any provider; callers decide the URL and
// headers.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, maxRetries int, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	var lastErr error
	var lastStatus int
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := defaultBaseRetryDelay * time.Duration(1<<(attempt-1))
			logger.Warn("llm.http.retry",
				"req_id", reqID,
				"url", url,
				"attempt", attempt,
				"delay", delay.String(),
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
		if err != nil {
			logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
			return nil, 0, fmt.Errorf("build request: %w", err)
		}

		// Default headers; allow caller overrides.
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			// Retry on network/timeout errors (not context cancellation).
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			lastErr = fmt.Errorf("request to %s failed: %w", url, err)
			continue
		}

		raw, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("reading response body: %w", readErr)
			continue
		}
		lastStatus = resp.StatusCode

		logger.Info("llm.http.response",
			"req_id", reqID,
			"status", resp.StatusCode,
			"bytes", len(raw),
			"attempt", attempt,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if resp.StatusCode/100 == 2 {
			return raw, resp.StatusCode, nil
		}

		lastErr = fmt.Errorf("non-2xx status %d: %s", resp.StatusCode, truncateBody(raw))
		if !retryableStatusCode(resp.StatusCode) {
			return raw, resp.StatusCode, lastErr
		}

		// Rate limits get longer waits, and Retry-After wins when larger.
		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			delay := minRateLimitDelay * time.Duration(1<<attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
					if headerDelay := time.Duration(seconds) * time.Second; headerDelay > delay {
						delay = headerDelay
					}
				}
			}
			logger.Warn("llm.http.rate_limited",
				"req_id", reqID,
				"url", url,
				"attempt", attempt+1,
				"delay", delay.String(),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return raw, resp.StatusCode, ctx.Err()
			}
		}
	}

	return nil, lastStatus, lastErr
}

func truncateBody(b []byte) string {
	const max = 2048
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "...(truncated)"
}
