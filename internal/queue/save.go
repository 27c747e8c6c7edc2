package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

var (
	ErrItemNotFound = errors.New("queue item not found")
	ErrItemNotDone  = errors.New("queue item is not done")
)

// RecordStore is the durable queue the provisioning side reads from.
type RecordStore interface {
	Save(ctx context.Context, rec entity.RouterRecord) (entity.RouterRecord, error)
}

// ToRecord builds the record handed to the store from a DONE item's fields.
// Absent fields are stored as empty strings.
func ToRecord(fields *entity.ExtractedFields) entity.RouterRecord {
	return entity.RouterRecord{
		SerialNumber:    fields.Value(constants.FieldSerialNumber),
		DefaultSSID:     fields.Value(constants.FieldDefaultSSID),
		DefaultPassword: fields.Value(constants.FieldDefaultPassword),
		SimID:           fields.Value(constants.FieldSimID),
		TargetSSID:      fields.Value(constants.FieldTargetSSID),
		Status:          string(constants.RecordStatusPending),
	}
}

// Save hands a DONE item to the store and, once the store accepted it,
// removes the item from the queue.
func (o *Orchestrator) Save(ctx context.Context, store RecordStore, id uuid.UUID) (entity.RouterRecord, error) {
	snap, ok := o.Get(id)
	if !ok {
		return entity.RouterRecord{}, ErrItemNotFound
	}
	if snap.Status != constants.ItemStatusDone || snap.Fields == nil {
		return entity.RouterRecord{}, fmt.Errorf("%w: status=%s", ErrItemNotDone, snap.Status)
	}

	rec := ToRecord(snap.Fields)
	rec.CreatedAt = o.now().UTC()
	saved, err := store.Save(ctx, rec)
	if err != nil {
		o.logger.Error("queue.save.failed", "item_id", id, "error", err)
		return entity.RouterRecord{}, fmt.Errorf("save record: %w", err)
	}

	o.Remove(id)
	o.logger.Info("queue.save.ok", "item_id", id, "record_id", saved.ID, "serial_number", saved.SerialNumber)
	return saved, nil
}

// SaveAllDone persists every DONE item in queue order. It stops at the first
// store failure and returns what was saved so far.
func (o *Orchestrator) SaveAllDone(ctx context.Context, store RecordStore) ([]entity.RouterRecord, error) {
	var saved []entity.RouterRecord
	for _, it := range o.Items() {
		if it.Status != constants.ItemStatusDone {
			continue
		}
		rec, err := o.Save(ctx, store, it.ID)
		if errors.Is(err, ErrItemNotFound) {
			continue
		}
		if err != nil {
			return saved, err
		}
		saved = append(saved, rec)
	}
	return saved, nil
}
