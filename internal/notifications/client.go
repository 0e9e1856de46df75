// Package notifications posts run results to an ntfy topic.
package notifications

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the ntfy client.
type Config struct {
	Enabled    bool
	BaseURL    string
	Topic      string
	Priority   string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	topic      string
	enabled    bool
	priority   string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RunReport is the outcome of one sync as seen by the notifier.
type RunReport struct {
	RunID    string
	Target   string
	Rows     int
	Duration time.Duration
	DryRun   bool
	Skipped  bool
	Err      error
}

type NotificationError struct {
	Type       string
	StatusCode int
	Attempt    int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s] attempt %d: %v", e.Type, e.Attempt, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func (e *NotificationError) IsRetryable() bool {
	switch e.Type {
	case "network", "server", "rate_limit":
		return true
	case "auth", "client":
		return false
	default:
		return e.StatusCode >= 500
	}
}

func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		topic:      cfg.Topic,
		enabled:    cfg.Enabled,
		priority:   cfg.Priority,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		maxDelay:   cfg.MaxDelay,
	}
}

// Enabled reports whether messages are actually sent.
func (c *Client) Enabled() bool {
	return c.enabled
}

// NotifyRun sends a one-line summary of a finished run. Failures are sent
// with high priority regardless of the configured priority.
func (c *Client) NotifyRun(ctx context.Context, report RunReport) error {
	if !c.enabled {
		zerolog.Ctx(ctx).Debug().Msg("Notifications disabled, skipping")
		return nil
	}
	priority := c.priority
	if report.Err != nil {
		priority = "high"
	}
	return c.send(ctx, FormatRunMessage(report), priority)
}

// FormatRunMessage renders a run report as notification text.
func FormatRunMessage(r RunReport) string {
	var sb strings.Builder
	switch {
	case r.Err != nil:
		sb.WriteString("❌ Sheets join failed\n")
		sb.WriteString(r.Err.Error())
	case r.DryRun:
		fmt.Fprintf(&sb, "🧪 Sheets join dry run: %d rows joined", r.Rows)
	case r.Skipped:
		fmt.Fprintf(&sb, "⚠️ Sheets join: no rows, %s left untouched", r.Target)
	default:
		fmt.Fprintf(&sb, "✅ Sheets join: %d rows written to %s", r.Rows, r.Target)
	}
	if r.Duration > 0 {
		fmt.Fprintf(&sb, "\n⏱ %s", r.Duration.Round(time.Millisecond))
	}
	if r.RunID != "" {
		fmt.Fprintf(&sb, "\nrun %s", r.RunID)
	}
	return sb.String()
}

func (c *Client) send(ctx context.Context, message, priority string) error {
	logger := zerolog.Ctx(ctx)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			logger.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying notification after delay")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.sendSingleNotification(ctx, message, priority, attempt+1)
		if err == nil {
			return nil
		}
		lastErr = err

		if notifErr, ok := err.(*NotificationError); ok && !notifErr.IsRetryable() {
			logger.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Msg("Non-retryable error, giving up")
			return err
		}

		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", c.maxRetries).
			Msg("Notification attempt failed")
	}

	return &NotificationError{
		Type:       "max_retries_exceeded",
		Attempt:    c.maxRetries + 1,
		Underlying: lastErr,
	}
}

func (c *Client) sendSingleNotification(ctx context.Context, message, priority string, attempt int) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.topic)

	zerolog.Ctx(ctx).Debug().
		Str("url", url).
		Int("attempt", attempt).
		Msg("Sending notification")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(message))
	if err != nil {
		return &NotificationError{Type: "client", Attempt: attempt, Underlying: err}
	}

	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Title", "sheets-join")
	if priority != "" {
		req.Header.Set("Priority", priority)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NotificationError{Type: "network", Attempt: attempt, Underlying: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &NotificationError{
			Type:       c.categorizeHTTPError(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Attempt:    attempt,
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status),
		}
	}

	zerolog.Ctx(ctx).Debug().
		Int("status_code", resp.StatusCode).
		Int("attempt", attempt).
		Msg("Notification sent successfully")
	return nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff with jitter
	base := float64(c.baseDelay)
	backoff := base * math.Pow(2, float64(attempt-1))

	// Add jitter (±25%)
	jitter := rand.Float64()*0.5 - 0.25
	backoff = backoff * (1 + jitter)

	maxBackoff := float64(c.maxDelay)
	if maxBackoff > 0 && backoff > maxBackoff {
		backoff = maxBackoff
	}

	return time.Duration(backoff)
}

func (c *Client) categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == 401 || statusCode == 403:
		return "auth"
	case statusCode == 429:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}
