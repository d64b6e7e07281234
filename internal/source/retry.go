package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"app_radar/internal/domain"
	"app_radar/internal/metrics"
)

// RetryConfig controls FetchWithRetry. The delay before retry n (n from 0)
// is InitialBackoff * 2^n, capped at MaxBackoff.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Retrying wraps a Fetcher and retries transient failures with exponential
// backoff. It satisfies Fetcher itself.
type Retrying struct {
	inner          Fetcher
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
	wait           func(ctx context.Context, d time.Duration) error
}

func NewRetrying(inner Fetcher, cfg RetryConfig, logger *slog.Logger) *Retrying {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Retrying{
		inner:          inner,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", inner.ID()),
		wait:           sleep,
	}
}

func (r *Retrying) ID() string {
	return r.inner.ID()
}

func (r *Retrying) Fetch(ctx context.Context, term string) (*domain.FetchResult, error) {
	return r.FetchWithRetry(ctx, term)
}

// FetchWithRetry calls the wrapped fetcher up to MaxAttempts times. Only
// transport failures are retried; the last error is returned once attempts
// run out.
func (r *Retrying) FetchWithRetry(ctx context.Context, term string) (*domain.FetchResult, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		res, err := r.inner.Fetch(ctx, term)
		metrics.ObserveFetchAttempt(r.inner.ID(), err)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if !domain.IsTransient(err) {
			return nil, err
		}
		if attempt == r.maxAttempts-1 {
			break
		}

		backoff := r.Backoff(attempt)
		r.logger.Warn("fetch failed, retrying",
			"term", term,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err,
		)

		if err := r.wait(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", r.maxAttempts, lastErr)
}

func (r *Retrying) Backoff(attempt int) time.Duration {
	backoff := r.initialBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if r.maxBackoff > 0 && backoff >= r.maxBackoff {
			return r.maxBackoff
		}
	}
	if r.maxBackoff > 0 && backoff > r.maxBackoff {
		backoff = r.maxBackoff
	}
	return backoff
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
