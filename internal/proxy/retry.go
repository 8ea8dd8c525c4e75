package proxy

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the retry loop.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig mirrors the tuning used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// Retrier runs a unit of work with a fresh proxy per attempt.
type Retrier struct {
	pool   *Pool
	cfg    RetryConfig
	logger *zap.Logger
}

// NewRetrier builds a Retrier over the given pool.
func NewRetrier(pool *Pool, cfg RetryConfig, logger *zap.Logger) *Retrier {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRetryConfig().MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	return &Retrier{pool: pool, cfg: cfg, logger: logger}
}

// Do draws a proxy, invokes fn, and on failure moves to the next proxy, up to
// MaxRetries attempts. Each attempt owns its proxy for the attempt's whole
// lifetime. After exhausting retries it returns an aggregated error naming
// the attempt count and the last underlying failure.
func Do[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context, ep Endpoint) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, canceled(attempt-1, lastErr, err)
		}
		if attempt > 1 {
			if err := sleepCtx(ctx, r.backoff(attempt-1)); err != nil {
				return zero, canceled(attempt-1, lastErr, err)
			}
		}

		ep := r.pool.Next()
		if r.logger != nil {
			r.logger.Info("attempting with proxy",
				zap.String("proxy", ep.Addr()),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.cfg.MaxRetries))
		}

		result, err := fn(ctx, ep)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if r.logger != nil {
			r.logger.Warn("attempt failed, trying next proxy",
				zap.String("proxy", ep.Addr()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
	}

	return zero, &ExhaustedError{Attempts: r.cfg.MaxRetries, Last: lastErr}
}

// ExhaustedError aggregates a fully failed retry cycle.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all proxy attempts failed after %d retries: last error: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func (r *Retrier) backoff(attempt int) time.Duration {
	delay := float64(r.cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(r.cfg.MaxDelay) {
		delay = float64(r.cfg.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func canceled(attempts int, lastErr, ctxErr error) error {
	if lastErr == nil {
		return ctxErr
	}
	return errors.Join(ctxErr, &ExhaustedError{Attempts: attempts, Last: lastErr})
}
