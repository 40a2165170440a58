package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
)

// Ensure ArtifactStore implements the interface.
var _ driven.ArtifactStore = (*ArtifactStore)(nil)

// ArtifactStore is an in-memory implementation of driven.ArtifactStore.
type ArtifactStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	meta  map[string]domain.StoredArtifact
	order []string
}

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		data: make(map[string][]byte),
		meta: make(map[string]domain.StoredArtifact),
	}
}

// Put stores a copy of data under a new ID.
func (s *ArtifactStore) Put(
	_ context.Context,
	data []byte,
	filename, mimeType string,
	prov domain.Provenance,
) (*domain.StoredArtifact, error) {
	id := uuid.NewString()
	art := domain.StoredArtifact{
		ArtifactID:       id,
		Path:             "memory://" + id,
		SizeBytes:        int64(len(data)),
		MimeType:         mimeType,
		Provenance:       prov.WithMeta("artifact_id", id),
		OriginalFilename: filename,
		StoredAt:         time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = append([]byte(nil), data...)
	s.meta[id] = art
	s.order = append(s.order, id)
	return &art, nil
}

// Get returns the artifact bytes.
func (s *ArtifactStore) Get(_ context.Context, artifactID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[artifactID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// GetMetadata returns the artifact metadata.
func (s *ArtifactStore) GetMetadata(_ context.Context, artifactID string) (*domain.StoredArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	art, ok := s.meta[artifactID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &art, nil
}

// Delete removes an artifact.
func (s *ArtifactStore) Delete(_ context.Context, artifactID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meta[artifactID]; !ok {
		return false, nil
	}
	delete(s.data, artifactID)
	delete(s.meta, artifactID)
	for i, id := range s.order {
		if id == artifactID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// ListBySubject returns artifacts whose provenance names subjectID.
func (s *ArtifactStore) ListBySubject(_ context.Context, subjectID string) ([]domain.StoredArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StoredArtifact
	for _, id := range s.order {
		if art := s.meta[id]; art.Provenance.PatientHint == subjectID {
			out = append(out, art)
		}
	}
	return out, nil
}

// ListAll returns up to limit artifacts, newest first.
func (s *ArtifactStore) ListAll(_ context.Context, limit int) ([]domain.StoredArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StoredArtifact, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.meta[s.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StoredAt.After(out[j].StoredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats summarises the store.
func (s *ArtifactStore) Stats(_ context.Context) (domain.ArtifactStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subjects := make(map[string]bool)
	var stats domain.ArtifactStats
	for _, art := range s.meta {
		stats.Count++
		stats.TotalBytes += art.SizeBytes
		if art.Provenance.PatientHint != "" {
			subjects[art.Provenance.PatientHint] = true
		}
	}
	stats.Subjects = len(subjects)
	return stats, nil
}
