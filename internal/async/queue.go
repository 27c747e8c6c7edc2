package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/router-ingest/internal/queue"
)

// Job asks for one batch run over the label queue.
type Job struct {
	Reason      string // "api", "watcher", ...
	SubmittedAt time.Time
	TraceID     string
}

// Result is the outcome of the most recent batch run.
type Result struct {
	Job      Job
	Summary  queue.BatchSummary
	Finished time.Time
}

// Analyzer is satisfied by *queue.Orchestrator.
type Analyzer interface {
	AnalyzeAll(ctx context.Context) queue.BatchSummary
}

type Runner interface {
	Trigger(job Job) bool
	Shutdown(ctx context.Context)
}
