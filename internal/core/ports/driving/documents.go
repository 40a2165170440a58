package driving

import (
	"context"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// RetrievalService resolves document references in captured payloads and
// fetches the ones not yet stored.
type RetrievalService interface {
	// Refs returns the document references found in a logged event.
	Refs(ctx context.Context, eventID string) ([]domain.DocumentRef, error)

	// Missing returns the references of a logged event that are not stored.
	Missing(ctx context.Context, eventID string) ([]domain.MissingDocument, error)

	// Retrieve downloads every downloadable missing document of a logged
	// event and records it in the ledger.
	Retrieve(ctx context.Context, session domain.SessionContext, eventID string, skipFallback bool) ([]domain.DownloadOutcome, error)
}

// DownloadService fetches individual documents.
type DownloadService interface {
	// Download fetches one URL, HTTP first with fallback on failure.
	Download(ctx context.Context, session domain.SessionContext, url, filenameHint string, skipFallback bool) domain.DownloadOutcome

	// BatchDownload fetches items sequentially; failures are isolated per item.
	BatchDownload(ctx context.Context, session domain.SessionContext, items []domain.DownloadRequest) []domain.DownloadOutcome

	// FallbackHealth probes the fallback service.
	FallbackHealth(ctx context.Context) (*domain.FallbackHealth, error)
}
