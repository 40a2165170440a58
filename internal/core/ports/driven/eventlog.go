package driven

import (
	"context"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// EventLog is the append-only store of raw captured events.
// It is the sole source of truth; every derived index can be rebuilt from it.
type EventLog interface {
	// Append normalises and durably records one event.
	// Fills ID and Timestamp when empty and uppercases Method.
	Append(ctx context.Context, event domain.RawEvent) (domain.RawEvent, error)

	// Query returns the last limit events matching patientID (empty matches
	// all), oldest first.
	Query(ctx context.Context, patientID string, limit int) ([]domain.RawEvent, error)

	// Get returns the event with the given ID.
	// Returns domain.ErrNotFound if no such event was logged.
	Get(ctx context.Context, id string) (*domain.RawEvent, error)

	// Scan calls fn for every readable event in append order.
	// Unparsable records are skipped. Scanning stops at the first error from fn.
	Scan(ctx context.Context, fn func(domain.RawEvent) error) error

	// Follow calls fn for every event appended after the call, until ctx is
	// cancelled. Returns nil on cancellation.
	Follow(ctx context.Context, fn func(domain.RawEvent) error) error
}

// IndexStore is the append-only store of classification entries.
// It must not share a physical destination with the EventLog.
type IndexStore interface {
	// Append records one entry. Existing entries are never rewritten.
	Append(ctx context.Context, entry domain.IndexEntry) error

	// Scan calls fn for every readable entry in append order.
	// Unparsable records are skipped.
	Scan(ctx context.Context, fn func(domain.IndexEntry) error) error
}
