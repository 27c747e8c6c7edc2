package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/router-ingest/constants"
)

// Image is the opaque payload captured for one label.
type Image struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename,omitempty"`
}

// QueueItem is a snapshot of one queued label photo for data transfer between layers.
// Fields is non-nil exactly when Status is DONE.
type QueueItem struct {
	ID        uuid.UUID            `json:"id"`
	Image     Image                `json:"image"`
	Status    constants.ItemStatus `json:"status"`
	Fields    *ExtractedFields     `json:"fields,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}
