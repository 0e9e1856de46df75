package config

import (
	"time"

	"sheets_join/internal/errors"
	"sheets_join/internal/retry"
)

// ResilienceConfig holds retry policy per operation class. Writes are never
// retried: a failed publish step aborts the run and the scheduler reruns it.
type ResilienceConfig struct {
	TableRead retry.Config
}

// DefaultResilienceConfig performs every read once with no added timeout.
var DefaultResilienceConfig = ResilienceConfig{
	TableRead: retry.Config{
		MaxRetries: 0,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Retryable:  errors.Retryable,
	},
}

// WithReadRetries returns a copy of c with read retries and per-attempt
// timeout overridden.
func (c ResilienceConfig) WithReadRetries(retries int, timeout time.Duration) ResilienceConfig {
	if retries < 0 {
		retries = 0
	}
	c.TableRead.MaxRetries = retries
	c.TableRead.Timeout = timeout
	return c
}
