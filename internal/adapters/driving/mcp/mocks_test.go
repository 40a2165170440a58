package mcp

import (
	"context"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	entries []domain.IndexEntry
	counts  []domain.CategoryCount
	err     error

	lastFilter domain.IndexFilter
	lastMin    float64
	lastLimit  int
}

func (m *mockIndexService) Index(_ context.Context, _ domain.RawEvent) (domain.IndexEntry, error) {
	return domain.IndexEntry{}, m.err
}

func (m *mockIndexService) ReindexAll(_ context.Context, _ bool) (domain.ReindexStats, error) {
	return domain.ReindexStats{}, m.err
}

func (m *mockIndexService) Query(
	_ context.Context,
	filter domain.IndexFilter,
	minConfidence float64,
	limit int,
) ([]domain.IndexEntry, error) {
	m.lastFilter = filter
	m.lastMin = minConfidence
	m.lastLimit = limit
	return m.entries, m.err
}

func (m *mockIndexService) CategoryStats(_ context.Context) ([]domain.CategoryCount, error) {
	return m.counts, m.err
}

func (m *mockIndexService) Watch(_ context.Context) error {
	return m.err
}

func (m *mockIndexService) Version() string {
	return "test"
}

// mockCaptureService is a mock implementation of driving.CaptureService.
type mockCaptureService struct {
	events []domain.RawEvent
	event  *domain.RawEvent
	err    error

	lastPatient string
	lastLimit   int
}

func (m *mockCaptureService) Capture(
	_ context.Context,
	event domain.RawEvent,
) (domain.RawEvent, *domain.IndexEntry, error) {
	return event, nil, m.err
}

func (m *mockCaptureService) Events(_ context.Context, patientID string, limit int) ([]domain.RawEvent, error) {
	m.lastPatient = patientID
	m.lastLimit = limit
	return m.events, m.err
}

func (m *mockCaptureService) Event(_ context.Context, _ string) (*domain.RawEvent, error) {
	return m.event, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	refs    []domain.DocumentRef
	missing []domain.MissingDocument
	err     error
}

func (m *mockRetrievalService) Refs(_ context.Context, _ string) ([]domain.DocumentRef, error) {
	return m.refs, m.err
}

func (m *mockRetrievalService) Missing(_ context.Context, _ string) ([]domain.MissingDocument, error) {
	return m.missing, m.err
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ domain.SessionContext,
	_ string,
	_ bool,
) ([]domain.DownloadOutcome, error) {
	return nil, m.err
}

// mockArtifactService is a mock implementation of driving.ArtifactService.
type mockArtifactService struct {
	artifact *domain.StoredArtifact
	stats    domain.ArtifactStats
	err      error
}

func (m *mockArtifactService) List(_ context.Context, _ string, _ int) ([]domain.StoredArtifact, error) {
	return nil, m.err
}

func (m *mockArtifactService) Get(_ context.Context, _ string) (*domain.StoredArtifact, error) {
	return m.artifact, m.err
}

func (m *mockArtifactService) Content(_ context.Context, _ string) ([]byte, error) {
	return nil, m.err
}

func (m *mockArtifactService) Delete(_ context.Context, _ string) (bool, error) {
	return false, m.err
}

func (m *mockArtifactService) Stats(_ context.Context) (domain.ArtifactStats, error) {
	return m.stats, m.err
}

func (m *mockArtifactService) Documents(_ context.Context, _ string) ([]domain.DocumentRecord, error) {
	return nil, m.err
}
