package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
)

// Ensure EventLog implements the interface.
var _ driven.EventLog = (*EventLog)(nil)

// EventLog is an in-memory implementation of driven.EventLog.
type EventLog struct {
	mu      sync.RWMutex
	events  []domain.RawEvent
	changed chan struct{}
}

// NewEventLog creates a new in-memory event log.
func NewEventLog() *EventLog {
	return &EventLog{changed: make(chan struct{})}
}

// Append records an event and wakes followers.
func (l *EventLog) Append(_ context.Context, event domain.RawEvent) (domain.RawEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Method = strings.ToUpper(event.Method)
	event.Payload = append([]byte(nil), event.Payload...)

	l.mu.Lock()
	l.events = append(l.events, event)
	close(l.changed)
	l.changed = make(chan struct{})
	l.mu.Unlock()
	return event, nil
}

// Query returns the last limit events for patientID, oldest first.
func (l *EventLog) Query(_ context.Context, patientID string, limit int) ([]domain.RawEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.RawEvent
	for _, e := range l.events {
		if patientID == "" || e.PatientID == patientID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Get returns the event with the given ID.
func (l *EventLog) Get(_ context.Context, id string) (*domain.RawEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.events {
		if l.events[i].ID == id {
			e := l.events[i]
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Scan calls fn for every event in append order.
func (l *EventLog) Scan(ctx context.Context, fn func(domain.RawEvent) error) error {
	l.mu.RLock()
	snapshot := append([]domain.RawEvent(nil), l.events...)
	l.mu.RUnlock()

	for _, e := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Follow calls fn for events appended after the call until ctx is cancelled.
func (l *EventLog) Follow(ctx context.Context, fn func(domain.RawEvent) error) error {
	l.mu.RLock()
	next := len(l.events)
	l.mu.RUnlock()

	for {
		l.mu.RLock()
		pending := append([]domain.RawEvent(nil), l.events[next:]...)
		wait := l.changed
		l.mu.RUnlock()

		for _, e := range pending {
			if err := fn(e); err != nil {
				return err
			}
		}
		next += len(pending)

		select {
		case <-ctx.Done():
			return nil
		case <-wait:
		}
	}
}

// Len returns the number of logged events.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
type IndexStore struct {
	mu      sync.RWMutex
	entries []domain.IndexEntry
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{}
}

// Append records one entry.
func (s *IndexStore) Append(_ context.Context, entry domain.IndexEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Scan calls fn for every entry in append order.
func (s *IndexStore) Scan(ctx context.Context, fn func(domain.IndexEntry) error) error {
	s.mu.RLock()
	snapshot := append([]domain.IndexEntry(nil), s.entries...)
	s.mu.RUnlock()

	for _, e := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of entries.
func (s *IndexStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
