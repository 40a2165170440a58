package driven

import (
	"context"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// ArtifactStore holds downloaded documents with their provenance.
// Every Put creates a new artifact, even for identical bytes.
type ArtifactStore interface {
	// Put stores data under a freshly generated artifact ID.
	// When prov.PatientHint is set, a per-subject reference is written too.
	Put(ctx context.Context, data []byte, filename, mimeType string, prov domain.Provenance) (*domain.StoredArtifact, error)

	// Get returns the artifact bytes.
	// Returns domain.ErrNotFound if the artifact is missing or unreadable.
	Get(ctx context.Context, artifactID string) ([]byte, error)

	// GetMetadata returns the artifact metadata record.
	// Returns domain.ErrNotFound if the record is missing or unparsable.
	GetMetadata(ctx context.Context, artifactID string) (*domain.StoredArtifact, error)

	// Delete removes the bytes, metadata and any subject references.
	// Returns true if anything was removed.
	Delete(ctx context.Context, artifactID string) (bool, error)

	// ListBySubject returns the artifacts referenced under a subject.
	ListBySubject(ctx context.Context, subjectID string) ([]domain.StoredArtifact, error)

	// ListAll returns up to limit artifacts, newest first.
	ListAll(ctx context.Context, limit int) ([]domain.StoredArtifact, error)

	// Stats summarises the store.
	Stats(ctx context.Context) (domain.ArtifactStats, error)
}

// ArtifactIndex answers whether a document has already been stored.
// Disk, database and in-memory implementations are interchangeable.
// Lookup failures report false so the document is fetched again.
type ArtifactIndex interface {
	Has(ctx context.Context, docID string) bool
}

// DocumentLedger is an ArtifactIndex that also records which artifact
// satisfied each document reference.
type DocumentLedger interface {
	ArtifactIndex

	// Record links a document to its stored artifact.
	Record(ctx context.Context, rec domain.DocumentRecord) error

	// Get returns the record for docID.
	// Returns domain.ErrNotFound if the document was never recorded.
	Get(ctx context.Context, docID string) (*domain.DocumentRecord, error)

	// List returns records for a patient, or all records when patientID is empty.
	List(ctx context.Context, patientID string) ([]domain.DocumentRecord, error)

	// Forget removes the record for docID so it will be fetched again.
	Forget(ctx context.Context, docID string) error
}
