package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// Ensure Indexer implements the interface.
var _ driving.IndexService = (*Indexer)(nil)

// entryIDDomain separates index entry hashes from other hashed identities.
const entryIDDomain = "chartrail/index-entry/v1"

// entryIDLength is the number of hex characters kept for entry IDs.
const entryIDLength = 32

// Indexer classifies raw events into the append-only classification index.
type Indexer struct {
	events     driven.EventLog
	entries    driven.IndexStore
	classifier *Classifier
	version    string
	now        func() time.Time
}

// NewIndexer creates an indexer stamping entries with version.
// An empty version falls back to domain.DefaultIndexerVersion.
func NewIndexer(events driven.EventLog, entries driven.IndexStore, classifier *Classifier, version string) *Indexer {
	if version == "" {
		version = domain.DefaultIndexerVersion
	}
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Indexer{
		events:     events,
		entries:    entries,
		classifier: classifier,
		version:    version,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Version returns the indexer version stamped on new entries.
func (i *Indexer) Version() string {
	return i.version
}

// EntryID derives the index entry ID for an event at an indexer version.
// The same inputs always produce the same ID.
func EntryID(eventID, version string) string {
	h := sha256.New()
	h.Write([]byte(entryIDDomain))
	h.Write([]byte{0x00})
	h.Write([]byte(eventID))
	h.Write([]byte{0x00})
	h.Write([]byte(version))
	return hex.EncodeToString(h.Sum(nil))[:entryIDLength]
}

// Build classifies an event without storing the result.
func (i *Indexer) Build(event domain.RawEvent) (domain.IndexEntry, error) {
	if event.ID == "" {
		return domain.IndexEntry{}, fmt.Errorf("%w: event has no id", domain.ErrInvalidInput)
	}
	payload, err := event.DecodePayload()
	if err != nil {
		return domain.IndexEntry{}, fmt.Errorf("decode payload of %s: %w", event.ID, err)
	}

	cl := i.classifier.Classify(event.Endpoint, payload)

	patientID := event.PatientID
	if patientID == "" {
		patientID = i.classifier.ExtractPatientID(event.Endpoint, payload)
	}

	prov := domain.Provenance{
		CapturedAt:  event.Timestamp,
		SourceURL:   event.Endpoint,
		HTTPMethod:  event.Method,
		Status:      event.Status,
		PayloadHash: domain.ContentHash(event.Payload),
		PatientHint: patientID,
	}.WithMeta("stage", domain.StageCapture)
	if event.Source != "" {
		prov = prov.WithMeta("source", event.Source)
	}

	return domain.IndexEntry{
		ID:              EntryID(event.ID, i.version),
		EventID:         event.ID,
		Timestamp:       event.Timestamp,
		PatientID:       patientID,
		Category:        cl.Category,
		Subcategory:     cl.Subcategory,
		SourceType:      i.classifier.DetectSourceType(event.Endpoint, payload),
		EndpointPattern: NormalizeEndpoint(event.Endpoint),
		Confidence:      cl.Confidence,
		ExtractionHints: i.classifier.AnalyzeStructure(payload),
		IndexerVersion:  i.version,
		IndexedAt:       i.now(),
		Provenance:      &prov,
	}, nil
}

// Index classifies one event and appends the entry.
func (i *Indexer) Index(ctx context.Context, event domain.RawEvent) (domain.IndexEntry, error) {
	entry, err := i.Build(event)
	if err != nil {
		return domain.IndexEntry{}, err
	}
	if err := i.entries.Append(ctx, entry); err != nil {
		return domain.IndexEntry{}, fmt.Errorf("append index entry: %w", err)
	}
	if entry.NeedsReview() {
		logger.Debug("event %s at %s left unclassified", event.ID, entry.EndpointPattern)
	}
	return entry, nil
}

// indexSafe indexes one event, converting a panic into an error so a single
// bad record cannot end a batch.
func (i *Indexer) indexSafe(ctx context.Context, event domain.RawEvent) (entry domain.IndexEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("indexing %s panicked: %v", event.ID, r)
		}
	}()
	return i.Index(ctx, event)
}

// ReindexAll streams the whole event log through the classifier.
// Unless force is set, events that already have an entry at the current
// version are skipped. Earlier entries are never removed. Errors on
// individual events are counted and the run continues.
func (i *Indexer) ReindexAll(ctx context.Context, force bool) (domain.ReindexStats, error) {
	stats := domain.ReindexStats{ByCategory: make(map[domain.Category]int)}

	indexed, err := i.indexedAtVersion(ctx)
	if err != nil {
		return stats, fmt.Errorf("scan index: %w", err)
	}

	logger.Section("Reindex")
	defer logger.Timed("reindex")()
	logger.Info("indexer version %s, %d events already indexed, force=%t", i.version, len(indexed), force)

	err = i.events.Scan(ctx, func(event domain.RawEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if !force && indexed[event.ID] {
			stats.Skipped++
			return nil
		}
		entry, err := i.indexSafe(ctx, event)
		if err != nil {
			stats.Errors++
			logger.Error("reindex %s: %v", event.ID, err)
			return nil
		}
		indexed[event.ID] = true
		stats.Indexed++
		stats.ByCategory[entry.Category]++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("scan events: %w", err)
	}

	logger.Info("reindex complete: %d scanned, %d indexed, %d skipped, %d errors",
		stats.Scanned, stats.Indexed, stats.Skipped, stats.Errors)
	return stats, nil
}

// indexedAtVersion collects the event IDs that have an entry at the current version.
func (i *Indexer) indexedAtVersion(ctx context.Context) (map[string]bool, error) {
	seen := make(map[string]bool)
	err := i.entries.Scan(ctx, func(e domain.IndexEntry) error {
		if e.IndexerVersion == i.version {
			seen[e.EventID] = true
		}
		return nil
	})
	return seen, err
}

// Query returns entries matching filter with confidence of at least
// minConfidence, most recent first, capped at limit.
func (i *Indexer) Query(
	ctx context.Context,
	filter domain.IndexFilter,
	minConfidence float64,
	limit int,
) ([]domain.IndexEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultIndexQueryLimit
	}

	var window []domain.IndexEntry
	err := i.entries.Scan(ctx, func(e domain.IndexEntry) error {
		if e.Confidence < minConfidence || !filter.Matches(e) {
			return nil
		}
		window = append(window, e)
		if len(window) > 2*limit {
			window = append(window[:0], window[len(window)-limit:]...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan index: %w", err)
	}

	if len(window) > limit {
		window = window[len(window)-limit:]
	}
	out := make([]domain.IndexEntry, 0, len(window))
	for j := len(window) - 1; j >= 0; j-- {
		out = append(out, window[j])
	}
	return out, nil
}

// CategoryStats counts entries per category, largest first.
func (i *Indexer) CategoryStats(ctx context.Context) ([]domain.CategoryCount, error) {
	counts := make(map[domain.Category]int)
	err := i.entries.Scan(ctx, func(e domain.IndexEntry) error {
		counts[e.Category]++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan index: %w", err)
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for category, n := range counts {
		out = append(out, domain.CategoryCount{Category: category, Count: n})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Count != out[b].Count {
			return out[a].Count > out[b].Count
		}
		return out[a].Category < out[b].Category
	})
	return out, nil
}

// Watch indexes events as they are appended to the log until ctx is cancelled.
func (i *Indexer) Watch(ctx context.Context) error {
	logger.Info("watching event log, indexer version %s", i.version)
	return i.events.Follow(ctx, func(event domain.RawEvent) error {
		if _, err := i.indexSafe(ctx, event); err != nil {
			logger.Error("index %s: %v", event.ID, err)
		}
		return nil
	})
}
