package llm

import (
	"context"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// ExtractRequest carries one label photo to the inference service.
type ExtractRequest struct {
	Image entity.Image
	// ItemID is only used for log correlation.
	ItemID string
}

// FieldExtractor is the interface the pipeline depends on.
// Implementations make exactly one call to the service and never retry.
// Fields the service could not read come back nil.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (entity.ExtractedFields, []byte /*rawJSON*/, error)
}
