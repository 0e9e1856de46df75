package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   100 * time.Millisecond,
		Timeout:    1 * time.Second,
	}
}

func TestWithRetrySuccess(t *testing.T) {
	calls := 0
	rows, err := WithRetry(context.Background(), fastConfig(), func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"u1", "u2"}, nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWithRetrySuccessAfterRetries(t *testing.T) {
	calls := 0
	rows, err := WithRetry(context.Background(), fastConfig(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("quota exceeded")
		}
		return 42, nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if rows != 42 {
		t.Errorf("Expected 42, got %d", rows)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetryFailureAfterMaxRetries(t *testing.T) {
	config := fastConfig()
	config.MaxRetries = 2

	calls := 0
	cause := errors.New("backend unavailable")
	_, err := WithRetry(context.Background(), config, func(ctx context.Context) (string, error) {
		calls++
		return "", cause
	})
	if !errors.Is(err, cause) {
		t.Errorf("Expected wrapped %v, got %v", cause, err)
	}
	if calls != 3 { // MaxRetries + 1
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetryZeroConfigRunsOnce(t *testing.T) {
	cause := errors.New("boom")
	calls := 0
	_, err := WithRetry(context.Background(), Config{}, func(ctx context.Context) (int, error) {
		calls++
		if _, ok := ctx.Deadline(); ok {
			t.Error("Expected no deadline with zero Timeout")
		}
		return 0, cause
	})
	if err != cause {
		t.Errorf("Expected the raw error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("sub-table not found")
	config := fastConfig()
	config.Retryable = func(err error) bool { return err != permanent }

	calls := 0
	_, err := WithRetry(context.Background(), config, func(ctx context.Context) (string, error) {
		calls++
		return "", permanent
	})
	if err != permanent {
		t.Errorf("Expected the raw error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWithRetryContextCancellation(t *testing.T) {
	config := Config{
		MaxRetries: 5,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   200 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := WithRetry(ctx, config, func(ctx context.Context) (string, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return "", errors.New("failure")
	})
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls > 3 {
		t.Errorf("Expected at most 3 calls due to cancellation, got %d", calls)
	}
}

func TestWithRetryContextTimeout(t *testing.T) {
	config := Config{
		MaxRetries: 10,
		BaseDelay:  50 * time.Millisecond,
		MaxDelay:   200 * time.Millisecond,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := WithRetry(ctx, config, func(ctx context.Context) (string, error) {
		return "", errors.New("failure")
	})
	elapsed := time.Since(start)

	if err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed > 150*time.Millisecond {
		t.Errorf("Expected to stop around 100ms, took %v", elapsed)
	}
}

func TestCalculateBackoffDelay(t *testing.T) {
	baseDelay := 10 * time.Millisecond
	maxDelay := 100 * time.Millisecond

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{0, 5 * time.Millisecond, 15 * time.Millisecond},
		{1, 10 * time.Millisecond, 30 * time.Millisecond},
		{2, 20 * time.Millisecond, 60 * time.Millisecond},
		{3, 40 * time.Millisecond, 100 * time.Millisecond},
		{4, 50 * time.Millisecond, 100 * time.Millisecond},
		{35, 50 * time.Millisecond, 100 * time.Millisecond},
		{100, 50 * time.Millisecond, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		for i := 0; i < 10; i++ {
			got := calculateBackoffDelay(tt.attempt, baseDelay, maxDelay)
			if got < tt.min || got > tt.max {
				t.Errorf("calculateBackoffDelay(%d) = %v, want between %v and %v", tt.attempt, got, tt.min, tt.max)
			}
		}
	}
}
