package queue

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
	"github.com/joseph-ayodele/router-ingest/internal/llm"
)

// Extractor is the retrying extraction call the orchestrator drives.
// *llm.RetryingExtractor satisfies it.
type Extractor interface {
	ExtractWithRetry(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFields, error)
}

// Orchestrator owns the ordered queue of label photos and drives batch analysis.
// Batch runs visit items strictly one at a time; this is the backpressure
// on the inference service.
type Orchestrator struct {
	extractor     Extractor
	logger        *slog.Logger
	defaultTarget string
	now           func() time.Time

	mu    sync.Mutex
	order []uuid.UUID
	items map[uuid.UUID]*item

	// runMu serializes batch runs so overlapping AnalyzeAll calls still hit
	// the service one item at a time.
	runMu sync.Mutex
}

type Option func(*Orchestrator)

// WithDefaultTargetSSID sets the placeholder target network given to extracted records.
func WithDefaultTargetSSID(ssid string) Option {
	return func(o *Orchestrator) {
		o.defaultTarget = ssid
	}
}

// WithClock overrides time.Now (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func NewOrchestrator(extractor Extractor, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		extractor:     extractor,
		logger:        logger,
		defaultTarget: constants.DefaultTargetSSID,
		now:           time.Now,
		items:         make(map[uuid.UUID]*item),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enqueue appends a new IDLE item and returns its id. The image bytes are copied.
func (o *Orchestrator) Enqueue(img entity.Image) uuid.UUID {
	img.Data = bytes.Clone(img.Data)
	it := &item{
		id:        uuid.New(),
		image:     img,
		status:    constants.ItemStatusIdle,
		createdAt: o.now().UTC(),
	}

	o.mu.Lock()
	o.order = append(o.order, it.id)
	o.items[it.id] = it
	size := len(o.order)
	o.mu.Unlock()

	o.logger.Info("queue.enqueue", "item_id", it.id, "image_bytes", len(img.Data), "queue_size", size)
	return it.id
}

// Remove deletes the item if present. Missing ids are ignored.
func (o *Orchestrator) Remove(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removeLocked(id)
}

func (o *Orchestrator) removeLocked(id uuid.UUID) bool {
	if _, ok := o.items[id]; !ok {
		return false
	}
	delete(o.items, id)
	o.order = slices.DeleteFunc(o.order, func(x uuid.UUID) bool { return x == id })
	o.logger.Info("queue.remove", "item_id", id, "queue_size", len(o.order))
	return true
}

// UpdateField sets one field of a DONE item. Edits to missing items, items in
// any other state, or unknown field names are ignored. It reports whether the
// edit was applied.
func (o *Orchestrator) UpdateField(id uuid.UUID, field, value string) bool {
	if !constants.IsEditableField(field) {
		o.logger.Debug("queue.update_field.unknown_field", "item_id", id, "field", field)
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	it, ok := o.items[id]
	if !ok || it.status != constants.ItemStatusDone || it.fields == nil {
		return false
	}
	it.fields.Set(constants.FieldName(field), value)
	o.logger.Debug("queue.update_field", "item_id", id, "field", field)
	return true
}

// Get returns a snapshot of one item.
func (o *Orchestrator) Get(id uuid.UUID) (entity.QueueItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it, ok := o.items[id]
	if !ok {
		return entity.QueueItem{}, false
	}
	return it.snapshot(), true
}

// Items returns snapshots of every item in insertion order.
// Image bytes are shared with the queue and must not be modified.
func (o *Orchestrator) Items() []entity.QueueItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]entity.QueueItem, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.items[id].snapshot())
	}
	return out
}

// Len returns the number of queued items.
func (o *Orchestrator) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.order)
}

// BatchSummary reports what one batch run did.
type BatchSummary struct {
	Visited   int
	Done      int
	Failed    int
	Skipped   int  // removed or no longer IDLE by the time they were reached
	Abandoned bool // the context ended before the run finished
}

// AnalyzeAll runs one batch: every item IDLE at the start of the run is
// visited in insertion order, moved to ANALYZING, extracted, then moved to
// DONE or ERROR. Failures are absorbed per item. Cancelling ctx abandons the
// rest of the run; the item in flight goes back to IDLE.
func (o *Orchestrator) AnalyzeAll(ctx context.Context) BatchSummary {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	start := o.now()
	pending := o.idleIDs()
	var sum BatchSummary
	o.logger.Info("queue.analyze.start", "idle", len(pending))

	for _, id := range pending {
		if ctx.Err() != nil {
			sum.Abandoned = true
			break
		}
		img, ok := o.begin(id)
		if !ok {
			sum.Skipped++
			continue
		}
		sum.Visited++

		fields, err := o.extractor.ExtractWithRetry(ctx, llm.ExtractRequest{Image: img, ItemID: id.String()})
		if err != nil && ctx.Err() != nil && !errors.Is(err, llm.ErrExtractionFailed) {
			o.finish(id, constants.ItemStatusIdle, nil)
			o.logger.Warn("queue.analyze.abandoned", "item_id", id, "error", err)
			sum.Visited--
			sum.Abandoned = true
			break
		}
		if err != nil {
			o.finish(id, constants.ItemStatusError, nil)
			sum.Failed++
			o.logger.Warn("queue.analyze.item_failed", "item_id", id, "error", err)
			continue
		}

		if fields.TargetSSID == nil && o.defaultTarget != "" {
			fields.Set(constants.FieldTargetSSID, o.defaultTarget)
		}
		o.finish(id, constants.ItemStatusDone, &fields)
		sum.Done++
		o.logger.Info("queue.analyze.item_done", "item_id", id)
	}

	o.logger.Info("queue.analyze.finish",
		"visited", sum.Visited,
		"done", sum.Done,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"abandoned", sum.Abandoned,
		"elapsed_ms", o.now().Sub(start).Milliseconds(),
	)
	return sum
}

func (o *Orchestrator) idleIDs() []uuid.UUID {
	o.mu.Lock()
	defer o.mu.Unlock()
	var ids []uuid.UUID
	for _, id := range o.order {
		if o.items[id].status == constants.ItemStatusIdle {
			ids = append(ids, id)
		}
	}
	return ids
}

// begin moves an item from IDLE to ANALYZING, if it is still queued and IDLE.
func (o *Orchestrator) begin(id uuid.UUID) (entity.Image, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it, ok := o.items[id]
	if !ok || it.status != constants.ItemStatusIdle {
		return entity.Image{}, false
	}
	if err := it.transition(constants.ItemStatusAnalyzing, nil); err != nil {
		o.logger.Error("queue.analyze.transition_failed", "item_id", id, "error", err)
		return entity.Image{}, false
	}
	return it.image, true
}

// finish applies the outcome of an extraction. An item removed while its
// call was in flight stays removed.
func (o *Orchestrator) finish(id uuid.UUID, to constants.ItemStatus, fields *entity.ExtractedFields) {
	o.mu.Lock()
	defer o.mu.Unlock()
	it, ok := o.items[id]
	if !ok {
		o.logger.Info("queue.analyze.result_dropped", "item_id", id, "reason", "removed")
		return
	}
	if err := it.transition(to, fields); err != nil {
		o.logger.Error("queue.analyze.transition_failed", "item_id", id, "error", err)
	}
}
