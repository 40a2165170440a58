package driving

import (
	"context"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// CaptureService records captured traffic and classifies it.
type CaptureService interface {
	// Capture appends event to the log and indexes it.
	// The returned entry is nil when indexing failed; the event is still logged.
	Capture(ctx context.Context, event domain.RawEvent) (domain.RawEvent, *domain.IndexEntry, error)

	// Events returns the last limit logged events for a patient, oldest first.
	Events(ctx context.Context, patientID string, limit int) ([]domain.RawEvent, error)

	// Event returns one logged event.
	Event(ctx context.Context, id string) (*domain.RawEvent, error)
}

// IndexService maintains and queries the classification index.
type IndexService interface {
	// Index classifies one event and appends the entry.
	Index(ctx context.Context, event domain.RawEvent) (domain.IndexEntry, error)

	// ReindexAll classifies every logged event. Unless force is set, events
	// that already have an entry at the current indexer version are skipped.
	ReindexAll(ctx context.Context, force bool) (domain.ReindexStats, error)

	// Query returns matching entries with confidence >= minConfidence,
	// most recent first, at most limit.
	Query(ctx context.Context, filter domain.IndexFilter, minConfidence float64, limit int) ([]domain.IndexEntry, error)

	// CategoryStats returns entry counts per category, largest first.
	CategoryStats(ctx context.Context) ([]domain.CategoryCount, error)

	// Watch indexes events as they are appended until ctx is cancelled.
	Watch(ctx context.Context) error

	// Version returns the indexer version stamped on new entries.
	Version() string
}
