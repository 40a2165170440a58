package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
)

// Ensure Ledger implements the interface.
var _ driven.DocumentLedger = (*Ledger)(nil)

// Ledger is an in-memory implementation of driven.DocumentLedger.
type Ledger struct {
	mu      sync.RWMutex
	records map[string]domain.DocumentRecord
}

// NewLedger creates a new in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]domain.DocumentRecord)}
}

// Has reports whether docID has been recorded.
func (l *Ledger) Has(_ context.Context, docID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[docID]
	return ok
}

// Record links a document to its artifact, replacing any earlier record.
func (l *Ledger) Record(_ context.Context, rec domain.DocumentRecord) error {
	if rec.DocID == "" || rec.ArtifactID == "" {
		return domain.ErrInvalidInput
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.DocID] = rec
	return nil
}

// Get returns the record for docID.
func (l *Ledger) Get(_ context.Context, docID string) (*domain.DocumentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[docID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// List returns records for patientID, or all records, newest first.
func (l *Ledger) List(_ context.Context, patientID string) ([]domain.DocumentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.DocumentRecord
	for _, rec := range l.records {
		if patientID == "" || rec.PatientID == patientID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].StoredAt.After(out[j].StoredAt)
		}
		return out[i].DocID < out[j].DocID
	})
	return out, nil
}

// Forget removes the record for docID.
func (l *Ledger) Forget(_ context.Context, docID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, docID)
	return nil
}

// Ensure ArtifactIndex implements the interface.
var _ driven.ArtifactIndex = (ArtifactIndex)(nil)

// ArtifactIndex is a fixed set of stored document IDs.
type ArtifactIndex map[string]bool

// Has reports whether docID is in the set.
func (a ArtifactIndex) Has(_ context.Context, docID string) bool {
	return a[docID]
}
