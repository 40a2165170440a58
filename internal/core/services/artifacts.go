package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// Ensure ArtifactService implements the interface.
var _ driving.ArtifactService = (*ArtifactService)(nil)

// ArtifactService manages stored artifacts and keeps the ledger consistent.
type ArtifactService struct {
	store  driven.ArtifactStore
	ledger driven.DocumentLedger
}

// NewArtifactService creates an artifact service. ledger may be nil.
func NewArtifactService(store driven.ArtifactStore, ledger driven.DocumentLedger) *ArtifactService {
	return &ArtifactService{store: store, ledger: ledger}
}

// List returns artifacts newest first.
func (s *ArtifactService) List(ctx context.Context, subjectID string, limit int) ([]domain.StoredArtifact, error) {
	if limit <= 0 {
		limit = domain.DefaultArtifactListLimit
	}
	if subjectID == "" {
		return s.store.ListAll(ctx, limit)
	}
	arts, err := s.store.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for %s: %w", subjectID, err)
	}
	sort.SliceStable(arts, func(i, j int) bool { return arts[i].StoredAt.After(arts[j].StoredAt) })
	if len(arts) > limit {
		arts = arts[:limit]
	}
	return arts, nil
}

// Get returns the metadata of one artifact.
func (s *ArtifactService) Get(ctx context.Context, artifactID string) (*domain.StoredArtifact, error) {
	return s.store.GetMetadata(ctx, artifactID)
}

// Content returns the bytes of one artifact.
func (s *ArtifactService) Content(ctx context.Context, artifactID string) ([]byte, error) {
	return s.store.Get(ctx, artifactID)
}

// Delete removes the artifact, then forgets every ledger record pointing at it.
func (s *ArtifactService) Delete(ctx context.Context, artifactID string) (bool, error) {
	removed, err := s.store.Delete(ctx, artifactID)
	if err != nil {
		return false, fmt.Errorf("delete artifact %s: %w", artifactID, err)
	}
	if s.ledger == nil {
		return removed, nil
	}

	records, err := s.ledger.List(ctx, "")
	if err != nil {
		return removed, fmt.Errorf("list ledger: %w", err)
	}
	for _, rec := range records {
		if rec.ArtifactID != artifactID {
			continue
		}
		if err := s.ledger.Forget(ctx, rec.DocID); err != nil {
			return removed, fmt.Errorf("forget document %s: %w", rec.DocID, err)
		}
		logger.Debug("document %s forgotten with artifact %s", rec.DocID, artifactID)
		removed = true
	}
	return removed, nil
}

// Stats summarises the store.
func (s *ArtifactService) Stats(ctx context.Context) (domain.ArtifactStats, error) {
	return s.store.Stats(ctx)
}

// Documents returns ledger records for a patient, or all when empty.
func (s *ArtifactService) Documents(ctx context.Context, patientID string) ([]domain.DocumentRecord, error) {
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.List(ctx, patientID)
}
