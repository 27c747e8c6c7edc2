package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 1 * time.Second
)

// RetryingExtractor wraps a FieldExtractor with a bounded, fixed-delay retry policy.
// Every failure kind is retried the same way, including explicit service errors.
type RetryingExtractor struct {
	inner    FieldExtractor
	logger   *slog.Logger
	attempts int
	delay    time.Duration
	sleeper  func(context.Context, time.Duration) error
}

// RetryOption customizes the retry policy.
type RetryOption func(*RetryingExtractor)

// WithAttempts overrides the total attempt ceiling (defaults to 3).
func WithAttempts(n int) RetryOption {
	return func(r *RetryingExtractor) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithDelay overrides the wait between attempts (defaults to 1s).
func WithDelay(d time.Duration) RetryOption {
	return func(r *RetryingExtractor) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithSleeper overrides how waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) RetryOption {
	return func(r *RetryingExtractor) {
		if sleeper != nil {
			r.sleeper = sleeper
		}
	}
}

func NewRetryingExtractor(inner FieldExtractor, logger *slog.Logger, opts ...RetryOption) *RetryingExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	r := &RetryingExtractor{
		inner:    inner,
		logger:   logger,
		attempts: defaultRetryAttempts,
		delay:    defaultRetryDelay,
		sleeper:  sleepCtx,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Attempts returns the attempt ceiling.
func (r *RetryingExtractor) Attempts() int { return r.attempts }

// ExtractWithRetry calls the inner extractor up to the attempt ceiling.
// Each attempt is an independent call. After the last failed attempt the
// result wraps ErrExtractionFailed. A cancelled context stops retrying and
// returns the context error.
func (r *RetryingExtractor) ExtractWithRetry(ctx context.Context, req ExtractRequest) (entity.ExtractedFields, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return entity.ExtractedFields{}, err
		}
		fields, _, err := r.inner.ExtractFields(ctx, req)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("llm.retry.recovered", "item_id", req.ItemID, "attempt", attempt)
			}
			return fields, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return entity.ExtractedFields{}, ctx.Err()
			}
		}
		lastErr = err
		r.logger.Warn("llm.retry.attempt_failed",
			"item_id", req.ItemID,
			"attempt", attempt,
			"max_attempts", r.attempts,
			"kind", string(KindOf(err)),
			"error", err,
		)
		if attempt == r.attempts {
			break
		}
		if err := r.sleeper(ctx, r.delay); err != nil {
			return entity.ExtractedFields{}, err
		}
	}
	return entity.ExtractedFields{}, fmt.Errorf("%w after %d attempts: %w", ErrExtractionFailed, r.attempts, lastErr)
}

// ExtractFields lets a RetryingExtractor stand in wherever a FieldExtractor is expected.
func (r *RetryingExtractor) ExtractFields(ctx context.Context, req ExtractRequest) (entity.ExtractedFields, []byte, error) {
	fields, err := r.ExtractWithRetry(ctx, req)
	return fields, nil, err
}

func sleepCtx(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
