package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// item is the orchestrator-owned state of one label photo.
type item struct {
	id        uuid.UUID
	image     entity.Image
	status    constants.ItemStatus
	fields    *entity.ExtractedFields
	createdAt time.Time
}

// allowed lists the legal state transitions. ANALYZING -> IDLE only happens
// when a batch run is abandoned mid-call.
var allowed = map[constants.ItemStatus][]constants.ItemStatus{
	constants.ItemStatusIdle:      {constants.ItemStatusAnalyzing},
	constants.ItemStatusAnalyzing: {constants.ItemStatusDone, constants.ItemStatusError, constants.ItemStatusIdle},
}

func (it *item) transition(to constants.ItemStatus, fields *entity.ExtractedFields) error {
	ok := false
	for _, next := range allowed[it.status] {
		if next == to {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("item %s: illegal transition %s -> %s", it.id, it.status, to)
	}
	it.status = to
	// fields is set if and only if the item is DONE.
	if to == constants.ItemStatusDone {
		it.fields = fields
	} else {
		it.fields = nil
	}
	return nil
}

func (it *item) snapshot() entity.QueueItem {
	return entity.QueueItem{
		ID:        it.id,
		Image:     it.image,
		Status:    it.status,
		Fields:    it.fields.Clone(),
		CreatedAt: it.createdAt,
	}
}
