package async

import (
	"context"
	"sync"
	"time"

	"log/slog"
)

// BatchRunner runs batch analysis in the background on a single worker.
// Triggers that arrive while a run is already pending are coalesced into it.
type BatchRunner struct {
	analyzer Analyzer
	logger   *slog.Logger
	timeout  time.Duration

	ch     chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu      sync.Mutex
	closed  bool
	last    *Result
	running bool
}

type Option func(*BatchRunner)

// WithRunTimeout bounds a single batch run. Zero means no bound.
func WithRunTimeout(d time.Duration) Option {
	return func(r *BatchRunner) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

func NewBatchRunner(analyzer Analyzer, logger *slog.Logger, opts ...Option) *BatchRunner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &BatchRunner{
		analyzer: analyzer,
		logger:   logger,
		timeout:  30 * time.Minute,
		ch:       make(chan Job, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, o := range opts {
		o(r)
	}
	r.start()
	return r
}

func (r *BatchRunner) start() {
	r.once.Do(func() {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.logger.Info("batch worker started")

			for job := range r.ch {
				r.setRunning(true)
				ctx, cancel := r.ctx, context.CancelFunc(func() {})
				if r.timeout > 0 {
					ctx, cancel = context.WithTimeout(r.ctx, r.timeout)
				}
				sum := r.analyzer.AnalyzeAll(ctx)
				cancel()

				res := Result{Job: job, Summary: sum, Finished: time.Now().UTC()}
				r.mu.Lock()
				r.last = &res
				r.running = false
				r.mu.Unlock()

				r.logger.Info("batch run finished",
					"reason", job.Reason,
					"trace_id", job.TraceID,
					"done", sum.Done,
					"failed", sum.Failed,
					"abandoned", sum.Abandoned,
					"wait_ms", res.Finished.Sub(job.SubmittedAt).Milliseconds(),
				)
			}

			r.logger.Info("batch worker stopped")
		}()
	})
}

func (r *BatchRunner) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	r.mu.Unlock()
}

// Trigger schedules a batch run. It reports false when a run is already
// pending (the trigger is folded into it) or the runner is shut down.
func (r *BatchRunner) Trigger(job Job) bool {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("cannot trigger: runner is shutting down", "reason", job.Reason)
		return false
	}
	select {
	case r.ch <- job:
		r.logger.Info("batch run queued", "reason", job.Reason, "trace_id", job.TraceID)
		return true
	default:
		r.logger.Debug("batch run already pending", "reason", job.Reason)
		return false
	}
}

// Last returns the most recent finished run and whether a run is in progress.
func (r *BatchRunner) Last() (*Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil, r.running
	}
	res := *r.last
	return &res, r.running
}

// Shutdown stops accepting triggers, abandons the run in flight and waits
// for the worker to exit or ctx to end.
func (r *BatchRunner) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() { defer close(done); r.wg.Wait() }()

	select {
	case <-ctx.Done():
		r.logger.Warn("shutdown interrupted by context")
	case <-done:
		r.logger.Info("batch runner drained, shutdown complete")
	}
}

var _ Runner = (*BatchRunner)(nil)
