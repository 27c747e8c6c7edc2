package export

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/router-ingest/internal/entity"
)

// ItemLister is satisfied by the queue orchestrator.
type ItemLister interface {
	Items() []entity.QueueItem
}

// Service is a tiny façade over the queue that produces export documents.
// Exports are read-only projections; the queue is never modified.
type Service struct {
	queue  ItemLister
	logger *slog.Logger
}

func NewService(queue ItemLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{queue: queue, logger: logger}
}

// ExportCSV returns the CSV document, or ErrNoDocument.
func (s *Service) ExportCSV() (string, error) {
	start := time.Now()
	doc, err := ToCSV(s.queue.Items())
	if err != nil {
		s.logger.Info("export.csv.empty")
		return "", err
	}
	s.logger.Info("export.csv.ok", "bytes", len(doc), "elapsed_ms", time.Since(start).Milliseconds())
	return doc, nil
}

// ExportXLSX returns the workbook bytes, or ErrNoDocument.
func (s *Service) ExportXLSX() ([]byte, error) {
	start := time.Now()
	items := s.queue.Items()
	buf, err := ToXLSX(items)
	if err != nil {
		s.logger.Info("export.xlsx.failed", "error", err)
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "rows", len(DoneRows(items)), "bytes", len(buf), "elapsed_ms", time.Since(start).Milliseconds())
	return buf, nil
}
