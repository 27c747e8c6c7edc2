package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// scriptedExtractor returns the scripted errors in order, then succeeds.
type scriptedExtractor struct {
	errs  []error
	calls int
}

func (s *scriptedExtractor) ExtractFields(_ context.Context, _ ExtractRequest) (entity.ExtractedFields, []byte, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return entity.ExtractedFields{}, nil, s.errs[s.calls-1]
	}
	return entity.ExtractedFields{SerialNumber: entity.StrPtr("SN1")}, nil, nil
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetry_SucceedsOnThirdAttempt(t *testing.T) {
	inner := &scriptedExtractor{errs: []error{
		NewTransportError("test", errors.New("connection reset")),
		NewMalformedError("test", errors.New("not json")),
	}}
	sl := &sleepRecorder{}
	r := NewRetryingExtractor(inner, discardLogger(), WithSleeper(sl.sleep))

	fields, err := r.ExtractWithRetry(context.Background(), ExtractRequest{ItemID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "SN1", *fields.SerialNumber)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sl.waits)
}

func TestRetry_NoWaitOnFirstSuccess(t *testing.T) {
	inner := &scriptedExtractor{}
	sl := &sleepRecorder{}
	r := NewRetryingExtractor(inner, discardLogger(), WithSleeper(sl.sleep))

	_, err := r.ExtractWithRetry(context.Background(), ExtractRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Empty(t, sl.waits)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	svcErr := NewServiceError("test", "quota exceeded")
	inner := &scriptedExtractor{errs: []error{svcErr, svcErr, svcErr, svcErr}}
	sl := &sleepRecorder{}
	r := NewRetryingExtractor(inner, discardLogger(), WithSleeper(sl.sleep))

	_, err := r.ExtractWithRetry(context.Background(), ExtractRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Equal(t, ExplicitServiceError, KindOf(err))
	assert.Equal(t, 3, inner.calls, "explicit service errors are retried like any other failure")
	assert.Len(t, sl.waits, 2, "no wait after the final attempt")
}

func TestRetry_CustomPolicy(t *testing.T) {
	inner := &scriptedExtractor{errs: []error{errors.New("x"), errors.New("y"), errors.New("z"), errors.New("w")}}
	sl := &sleepRecorder{}
	r := NewRetryingExtractor(inner, discardLogger(),
		WithAttempts(5), WithDelay(10*time.Millisecond), WithSleeper(sl.sleep))

	_, err := r.ExtractWithRetry(context.Background(), ExtractRequest{})
	require.NoError(t, err)
	assert.Equal(t, 5, r.Attempts())
	assert.Equal(t, 5, inner.calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}, sl.waits)
}

func TestRetry_CancelledContextStops(t *testing.T) {
	inner := &scriptedExtractor{errs: []error{errors.New("boom"), errors.New("boom")}}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetryingExtractor(inner, discardLogger(), WithSleeper(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, err := r.ExtractWithRetry(ctx, ExtractRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrExtractionFailed)
	assert.Equal(t, 1, inner.calls)
}

func TestRetry_RealSleeperHonorsDelay(t *testing.T) {
	inner := &scriptedExtractor{errs: []error{errors.New("once")}}
	r := NewRetryingExtractor(inner, discardLogger(), WithDelay(20*time.Millisecond))

	start := time.Now()
	_, err := r.ExtractWithRetry(context.Background(), ExtractRequest{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
