package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
	"github.com/joseph-ayodele/router-ingest/internal/export"
	"github.com/joseph-ayodele/router-ingest/internal/llm"
)

// fakeExtractor answers by image filename and records call order and concurrency.
type fakeExtractor struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
	fields  map[string]entity.ExtractedFields
	during  func(req llm.ExtractRequest) // runs inside the call
	block   bool                         // wait for ctx.Done
	active  atomic.Int32
	overlap atomic.Bool
}

func (f *fakeExtractor) ExtractWithRetry(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFields, error) {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)

	f.mu.Lock()
	f.calls = append(f.calls, req.Image.Filename)
	f.mu.Unlock()

	if f.during != nil {
		f.during(req)
	}
	if f.block {
		<-ctx.Done()
		return entity.ExtractedFields{}, ctx.Err()
	}
	if f.fail[req.Image.Filename] {
		return entity.ExtractedFields{}, fmt.Errorf("%w after 3 attempts: boom", llm.ErrExtractionFailed)
	}
	if fl, ok := f.fields[req.Image.Filename]; ok {
		return *fl.Clone(), nil
	}
	return entity.ExtractedFields{SerialNumber: entity.StrPtr("SN-" + req.Image.Filename)}, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestOrchestrator(ext Extractor, opts ...Option) *Orchestrator {
	return NewOrchestrator(ext, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func img(name string) entity.Image {
	return entity.Image{Data: []byte(name), MimeType: "image/jpeg", Filename: name}
}

func ids(items []entity.QueueItem) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestEnqueueRemove_KeepsInsertionOrder(t *testing.T) {
	o := newTestOrchestrator(&fakeExtractor{})
	a := o.Enqueue(img("a"))
	b := o.Enqueue(img("b"))
	c := o.Enqueue(img("c"))

	items := o.Items()
	assert.Equal(t, []uuid.UUID{a, b, c}, ids(items))
	for _, it := range items {
		assert.Equal(t, constants.ItemStatusIdle, it.Status)
		assert.Nil(t, it.Fields)
	}

	o.Remove(b)
	o.Remove(uuid.New()) // unknown ids are ignored
	d := o.Enqueue(img("d"))
	assert.Equal(t, []uuid.UUID{a, c, d}, ids(o.Items()))
	assert.Equal(t, 3, o.Len())
}

func TestEnqueue_CopiesImageBytes(t *testing.T) {
	o := newTestOrchestrator(&fakeExtractor{})
	data := []byte("abc")
	id := o.Enqueue(entity.Image{Data: data})
	data[0] = 'z'

	it, ok := o.Get(id)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), it.Image.Data)
}

func TestAnalyzeAll_SequentialInOrder(t *testing.T) {
	ext := &fakeExtractor{fail: map[string]bool{"b": true}}
	o := newTestOrchestrator(ext)
	for _, n := range []string{"a", "b", "c"} {
		o.Enqueue(img(n))
	}

	sum := o.AnalyzeAll(context.Background())
	assert.Equal(t, BatchSummary{Visited: 3, Done: 2, Failed: 1}, sum)
	assert.Equal(t, []string{"a", "b", "c"}, ext.calls)
	assert.False(t, ext.overlap.Load(), "at most one item may be ANALYZING at a time")

	items := o.Items()
	assert.Equal(t, constants.ItemStatusDone, items[0].Status)
	assert.Equal(t, "SN-a", *items[0].Fields.SerialNumber)
	assert.Equal(t, constants.ItemStatusError, items[1].Status)
	assert.Nil(t, items[1].Fields)
	assert.Equal(t, constants.ItemStatusDone, items[2].Status)
}

func TestAnalyzeAll_OnlyOneAnalyzingDuringCall(t *testing.T) {
	var o *Orchestrator
	ext := &fakeExtractor{}
	ext.during = func(req llm.ExtractRequest) {
		n := 0
		for _, it := range o.Items() {
			if it.Status == constants.ItemStatusAnalyzing {
				n++
				assert.Equal(t, req.ItemID, it.ID.String())
			}
		}
		assert.Equal(t, 1, n)
	}
	o = newTestOrchestrator(ext)
	o.Enqueue(img("a"))
	o.Enqueue(img("b"))
	o.AnalyzeAll(context.Background())
}

func TestAnalyzeAll_SecondRunIsNoop(t *testing.T) {
	ext := &fakeExtractor{fail: map[string]bool{"b": true}}
	o := newTestOrchestrator(ext)
	o.Enqueue(img("a"))
	o.Enqueue(img("b"))

	o.AnalyzeAll(context.Background())
	before := o.Items()
	sum := o.AnalyzeAll(context.Background())

	assert.Equal(t, BatchSummary{}, sum)
	assert.Equal(t, 2, ext.callCount(), "no IDLE items means no service calls")
	assert.Equal(t, before, o.Items(), "DONE and ERROR items are never revisited")
}

func TestAnalyzeAll_EmptyQueue(t *testing.T) {
	ext := &fakeExtractor{}
	o := newTestOrchestrator(ext)
	assert.Equal(t, BatchSummary{}, o.AnalyzeAll(context.Background()))
	assert.Zero(t, ext.callCount())
}

func TestAnalyzeAll_DefaultTargetSSID(t *testing.T) {
	ext := &fakeExtractor{fields: map[string]entity.ExtractedFields{
		"given": {SerialNumber: entity.StrPtr("S"), TargetSSID: entity.StrPtr("RoomB")},
	}}
	o := newTestOrchestrator(ext)
	a := o.Enqueue(img("plain"))
	b := o.Enqueue(img("given"))
	o.AnalyzeAll(context.Background())

	ia, _ := o.Get(a)
	ib, _ := o.Get(b)
	assert.Equal(t, constants.DefaultTargetSSID, *ia.Fields.TargetSSID)
	assert.Equal(t, "RoomB", *ib.Fields.TargetSSID)

	o2 := newTestOrchestrator(&fakeExtractor{}, WithDefaultTargetSSID("Lobby"))
	c := o2.Enqueue(img("c"))
	o2.AnalyzeAll(context.Background())
	ic, _ := o2.Get(c)
	assert.Equal(t, "Lobby", *ic.Fields.TargetSSID)
}

func TestAnalyzeAll_RemovedBeforeReachedIsSkipped(t *testing.T) {
	var o *Orchestrator
	var c uuid.UUID
	ext := &fakeExtractor{}
	ext.during = func(req llm.ExtractRequest) {
		if req.Image.Filename == "a" {
			o.Remove(c)
		}
	}
	o = newTestOrchestrator(ext)
	o.Enqueue(img("a"))
	o.Enqueue(img("b"))
	c = o.Enqueue(img("c"))

	sum := o.AnalyzeAll(context.Background())
	assert.Equal(t, []string{"a", "b"}, ext.calls)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 2, o.Len())

	doc, err := export.ToCSV(o.Items())
	require.NoError(t, err)
	assert.Equal(t, "serial_number,default_ssid,default_pass,target_ssid\n"+
		"SN-a,,,"+constants.DefaultTargetSSID+"\n"+
		"SN-b,,,"+constants.DefaultTargetSSID, doc)
	assert.NotContains(t, doc, "SN-c")
}

func TestAnalyzeAll_RemovedInFlightResultDropped(t *testing.T) {
	var o *Orchestrator
	var a uuid.UUID
	ext := &fakeExtractor{}
	ext.during = func(req llm.ExtractRequest) {
		if req.Image.Filename == "a" {
			o.Remove(a)
		}
	}
	o = newTestOrchestrator(ext)
	a = o.Enqueue(img("a"))
	b := o.Enqueue(img("b"))

	o.AnalyzeAll(context.Background())
	_, ok := o.Get(a)
	assert.False(t, ok, "a removed item never reappears")
	assert.Equal(t, []uuid.UUID{b}, ids(o.Items()))
}

func TestAnalyzeAll_EnqueuedDuringRunWaitsForNextRun(t *testing.T) {
	var o *Orchestrator
	var late uuid.UUID
	ext := &fakeExtractor{}
	ext.during = func(req llm.ExtractRequest) {
		if req.Image.Filename == "a" {
			late = o.Enqueue(img("late"))
		}
	}
	o = newTestOrchestrator(ext)
	o.Enqueue(img("a"))

	o.AnalyzeAll(context.Background())
	it, _ := o.Get(late)
	assert.Equal(t, constants.ItemStatusIdle, it.Status)

	ext.during = nil
	o.AnalyzeAll(context.Background())
	it, _ = o.Get(late)
	assert.Equal(t, constants.ItemStatusDone, it.Status)
}

func TestAnalyzeAll_CancelRevertsInFlightToIdle(t *testing.T) {
	ext := &fakeExtractor{block: true}
	o := newTestOrchestrator(ext)
	a := o.Enqueue(img("a"))
	b := o.Enqueue(img("b"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan BatchSummary, 1)
	go func() { done <- o.AnalyzeAll(ctx) }()

	require.Eventually(t, func() bool { return ext.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	it, _ := o.Get(a)
	assert.Equal(t, constants.ItemStatusAnalyzing, it.Status)
	cancel()

	var sum BatchSummary
	select {
	case sum = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batch run did not stop on cancel")
	}
	assert.True(t, sum.Abandoned)
	assert.Zero(t, sum.Done+sum.Failed)
	for _, id := range []uuid.UUID{a, b} {
		it, _ := o.Get(id)
		assert.Equal(t, constants.ItemStatusIdle, it.Status)
	}
}

func TestAnalyzeAll_ConcurrentRunsDoNotOverlap(t *testing.T) {
	ext := &fakeExtractor{during: func(llm.ExtractRequest) { time.Sleep(2 * time.Millisecond) }}
	o := newTestOrchestrator(ext)
	for i := 0; i < 6; i++ {
		o.Enqueue(img(fmt.Sprintf("i%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.AnalyzeAll(context.Background())
		}()
	}
	wg.Wait()
	assert.False(t, ext.overlap.Load())
	assert.Equal(t, 6, ext.callCount(), "each item is analyzed exactly once")
}

func TestUpdateField(t *testing.T) {
	ext := &fakeExtractor{fail: map[string]bool{"bad": true}}
	o := newTestOrchestrator(ext)
	idle := o.Enqueue(img("idle"))

	assert.False(t, o.UpdateField(idle, "default_pass", "x"), "IDLE items are not editable")

	done := o.Enqueue(img("done"))
	bad := o.Enqueue(img("bad"))
	o.Remove(idle)
	o.AnalyzeAll(context.Background())

	assert.True(t, o.UpdateField(done, "default_pass", "pw2"))
	it, _ := o.Get(done)
	assert.Equal(t, "pw2", *it.Fields.DefaultPassword)
	assert.Equal(t, "SN-done", *it.Fields.SerialNumber)
	assert.Nil(t, it.Fields.DefaultSSID)
	assert.Equal(t, constants.DefaultTargetSSID, *it.Fields.TargetSSID)

	assert.True(t, o.UpdateField(done, "target_ssid", ""))
	it, _ = o.Get(done)
	assert.Equal(t, "pw2", *it.Fields.DefaultPassword)
	assert.Equal(t, "SN-done", *it.Fields.SerialNumber)
	require.NotNil(t, it.Fields.TargetSSID, "an empty edit is present-but-empty")
	assert.Equal(t, "", *it.Fields.TargetSSID)

	assert.False(t, o.UpdateField(done, "mac_address", "x"))
	assert.False(t, o.UpdateField(bad, "default_pass", "x"), "ERROR items are not editable")
	assert.False(t, o.UpdateField(uuid.New(), "default_pass", "x"))

	// Snapshots are copies.
	it.Fields.DefaultPassword = entity.StrPtr("mutated")
	again, _ := o.Get(done)
	assert.Equal(t, "pw2", *again.Fields.DefaultPassword)
}

func TestUpdateField_AnalyzingItemUnchanged(t *testing.T) {
	var o *Orchestrator
	var a uuid.UUID
	var edited bool
	var during entity.QueueItem
	ext := &fakeExtractor{}
	ext.during = func(req llm.ExtractRequest) {
		if req.Image.Filename == "a" {
			edited = o.UpdateField(a, "serial_number", "typed")
			during, _ = o.Get(a)
		}
	}
	o = newTestOrchestrator(ext)
	a = o.Enqueue(img("a"))

	o.AnalyzeAll(context.Background())

	assert.False(t, edited, "ANALYZING items are not editable")
	assert.Equal(t, constants.ItemStatusAnalyzing, during.Status)
	assert.Nil(t, during.Fields)

	it, _ := o.Get(a)
	assert.Equal(t, constants.ItemStatusDone, it.Status)
	assert.Equal(t, "SN-a", *it.Fields.SerialNumber)
}

func TestItemTransitions(t *testing.T) {
	it := &item{id: uuid.New(), status: constants.ItemStatusIdle}
	require.Error(t, it.transition(constants.ItemStatusDone, &entity.ExtractedFields{}))
	require.NoError(t, it.transition(constants.ItemStatusAnalyzing, nil))
	require.NoError(t, it.transition(constants.ItemStatusDone, &entity.ExtractedFields{}))
	assert.NotNil(t, it.fields)
	assert.Error(t, it.transition(constants.ItemStatusIdle, nil), "DONE is terminal")
	assert.Error(t, it.transition(constants.ItemStatusAnalyzing, nil))
}

var errStoreDown = errors.New("store down")

type memStore struct {
	saved []entity.RouterRecord
	err   error
}

func (m *memStore) Save(_ context.Context, rec entity.RouterRecord) (entity.RouterRecord, error) {
	if m.err != nil {
		return entity.RouterRecord{}, m.err
	}
	rec.ID = uuid.New()
	m.saved = append(m.saved, rec)
	return rec, nil
}

func TestSave(t *testing.T) {
	ext := &fakeExtractor{fields: map[string]entity.ExtractedFields{
		"a": {SerialNumber: entity.StrPtr("SN1"), DefaultSSID: entity.StrPtr("Net1"), DefaultPassword: entity.StrPtr("pw1")},
	}}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := newTestOrchestrator(ext, WithClock(func() time.Time { return fixed }))
	a := o.Enqueue(img("a"))
	store := &memStore{}

	_, err := o.Save(context.Background(), store, a)
	assert.ErrorIs(t, err, ErrItemNotDone)

	o.AnalyzeAll(context.Background())
	o.UpdateField(a, "sim_id", "8901")

	store.err = errStoreDown
	_, err = o.Save(context.Background(), store, a)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 1, o.Len(), "a failed save keeps the item")

	store.err = nil
	rec, err := o.Save(context.Background(), store, a)
	require.NoError(t, err)
	assert.Equal(t, "SN1", rec.SerialNumber)
	assert.Equal(t, "pw1", rec.DefaultPassword)
	assert.Equal(t, "8901", rec.SimID)
	assert.Equal(t, constants.DefaultTargetSSID, rec.TargetSSID)
	assert.Equal(t, string(constants.RecordStatusPending), rec.Status)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.Zero(t, o.Len())

	_, err = o.Save(context.Background(), store, a)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestSaveAllDone(t *testing.T) {
	ext := &fakeExtractor{fail: map[string]bool{"b": true}}
	o := newTestOrchestrator(ext)
	o.Enqueue(img("a"))
	o.Enqueue(img("b"))
	o.Enqueue(img("c"))
	o.AnalyzeAll(context.Background())

	store := &memStore{}
	recs, err := o.SaveAllDone(context.Background(), store)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "SN-a", recs[0].SerialNumber)
	assert.Equal(t, "SN-c", recs[1].SerialNumber)
	require.Equal(t, 1, o.Len())
	assert.Equal(t, constants.ItemStatusError, o.Items()[0].Status)
}
