package jsonl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// EventsFile is the event log file name inside the data directory.
const EventsFile = "events.jsonl"

// Ensure EventLog implements the interface.
var _ driven.EventLog = (*EventLog)(nil)

// EventLog is the durable raw event log.
type EventLog struct {
	file *lineFile
	now  func() time.Time
	// pollInterval re-reads the file in Follow when no fsnotify event arrives.
	pollInterval time.Duration
}

// NewEventLog opens the event log in dataDir, creating the directory.
func NewEventLog(dataDir string) (*EventLog, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &EventLog{
		file:         &lineFile{path: filepath.Join(dataDir, EventsFile)},
		now:          func() time.Time { return time.Now().UTC() },
		pollInterval: 2 * time.Second,
	}, nil
}

// Path returns the log file path.
func (l *EventLog) Path() string {
	return l.file.path
}

// Append normalises event and writes it as one line.
func (l *EventLog) Append(_ context.Context, event domain.RawEvent) (domain.RawEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	event.Method = strings.ToUpper(event.Method)
	if len(event.Payload) > 0 && !json.Valid(event.Payload) {
		return domain.RawEvent{}, fmt.Errorf("%w: payload is not valid JSON", domain.ErrInvalidInput)
	}

	if err := l.file.appendRecord(event); err != nil {
		return domain.RawEvent{}, err
	}
	return event, nil
}

// Query returns the last limit events for patientID, oldest first.
func (l *EventLog) Query(ctx context.Context, patientID string, limit int) ([]domain.RawEvent, error) {
	var out []domain.RawEvent
	err := l.Scan(ctx, func(e domain.RawEvent) error {
		if patientID != "" && e.PatientID != patientID {
			return nil
		}
		out = append(out, e)
		if limit > 0 && len(out) > 2*limit {
			out = append(out[:0], out[len(out)-limit:]...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Get returns the event with the given ID.
func (l *EventLog) Get(ctx context.Context, id string) (*domain.RawEvent, error) {
	var found *domain.RawEvent
	err := l.Scan(ctx, func(e domain.RawEvent) error {
		if e.ID == id {
			found = &e
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// Scan streams every parsable event in append order.
func (l *EventLog) Scan(ctx context.Context, fn func(domain.RawEvent) error) error {
	return l.file.scanLines(ctx, func(line []byte, n int) error {
		e, ok := decodeEvent(line, l.file.path, n)
		if !ok {
			return nil
		}
		return fn(e)
	})
}

func decodeEvent(line []byte, path string, n int) (domain.RawEvent, bool) {
	var e domain.RawEvent
	if err := json.Unmarshal(line, &e); err != nil {
		logger.Warn("skipping malformed line %d in %s: %v", n, path, err)
		return domain.RawEvent{}, false
	}
	return e, true
}
