package driving

import (
	"context"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// ArtifactService browses and prunes stored artifacts.
type ArtifactService interface {
	// List returns artifacts newest first. A non-empty subjectID restricts
	// the listing to that subject.
	List(ctx context.Context, subjectID string, limit int) ([]domain.StoredArtifact, error)

	// Get returns the metadata of one artifact.
	Get(ctx context.Context, artifactID string) (*domain.StoredArtifact, error)

	// Content returns the bytes of one artifact.
	Content(ctx context.Context, artifactID string) ([]byte, error)

	// Delete removes an artifact and forgets the documents it satisfied,
	// so they are reported missing again.
	Delete(ctx context.Context, artifactID string) (bool, error)

	// Stats summarises the store.
	Stats(ctx context.Context) (domain.ArtifactStats, error)

	// Documents returns ledger records for a patient, or all when empty.
	Documents(ctx context.Context, patientID string) ([]domain.DocumentRecord, error)
}
