package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"stockflow/pkg/logger"
)

// Config holds retry strategy configuration
type Config struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// OnRetry, if set, runs before every repeated attempt.
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns sensible retry defaults for remote calls
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Immediate retries without waiting between attempts.
func Immediate(attempts int) *Config {
	return &Config{MaxAttempts: attempts}
}

// Retryable is a function that can be retried
type Retryable[T any] func(ctx context.Context) (T, error)

// Do runs fn until it succeeds, returns an error for which retryable is false,
// or the attempt budget is spent. The last error is returned wrapped.
func Do[T any](ctx context.Context, cfg *Config, op string, retryable func(error) bool, fn Retryable[T]) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		backoff := calculateBackoff(attempt-1, cfg)
		logger.Warn(ctx).
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("backoff", backoff).
			Msg("operation failed, retrying")
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		if backoff > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, fmt.Errorf("operation '%s' failed after %d attempts: %w", op, attempts, lastErr)
}

// calculateBackoff returns exponential backoff duration
func calculateBackoff(attemptNum int, cfg *Config) time.Duration {
	if cfg.InitialBackoff <= 0 {
		return 0
	}
	multiplier := cfg.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	backoff := time.Duration(float64(cfg.InitialBackoff) * math.Pow(multiplier, float64(attemptNum)))
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}
	return backoff
}
