package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// Ensure CaptureService implements the interface.
var _ driving.CaptureService = (*CaptureService)(nil)

// CaptureService records captured traffic and indexes it inline.
type CaptureService struct {
	events  driven.EventLog
	indexer driving.IndexService
}

// NewCaptureService creates a capture service. indexer may be nil, in which
// case events are only logged and must be indexed by a later reindex.
func NewCaptureService(events driven.EventLog, indexer driving.IndexService) *CaptureService {
	return &CaptureService{events: events, indexer: indexer}
}

// Capture appends event to the log and indexes it. An indexing failure is
// logged and reported as a nil entry; the logged event is never lost.
func (s *CaptureService) Capture(
	ctx context.Context,
	event domain.RawEvent,
) (domain.RawEvent, *domain.IndexEntry, error) {
	logged, err := s.events.Append(ctx, event)
	if err != nil {
		return domain.RawEvent{}, nil, fmt.Errorf("append event: %w", err)
	}
	if s.indexer == nil {
		return logged, nil, nil
	}

	entry, err := s.indexer.Index(ctx, logged)
	if err != nil {
		logger.Error("index %s: %v", logged.ID, err)
		return logged, nil, nil
	}
	return logged, &entry, nil
}

// Events returns the last limit logged events for a patient, oldest first.
func (s *CaptureService) Events(ctx context.Context, patientID string, limit int) ([]domain.RawEvent, error) {
	if limit <= 0 {
		limit = domain.DefaultEventQueryLimit
	}
	return s.events.Query(ctx, patientID, limit)
}

// Event returns one logged event.
func (s *CaptureService) Event(ctx context.Context, id string) (*domain.RawEvent, error) {
	return s.events.Get(ctx, id)
}
