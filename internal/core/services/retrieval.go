package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService ties reference extraction, missing detection and
// downloads together for a logged event.
type RetrievalService struct {
	events    driven.EventLog
	ledger    driven.DocumentLedger
	detector  *MissingDetector
	downloads driving.DownloadService
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	events driven.EventLog,
	ledger driven.DocumentLedger,
	downloads driving.DownloadService,
) *RetrievalService {
	return &RetrievalService{
		events:    events,
		ledger:    ledger,
		detector:  NewMissingDetector(ledger),
		downloads: downloads,
	}
}

// Refs returns the document references in a logged event.
func (s *RetrievalService) Refs(ctx context.Context, eventID string) ([]domain.DocumentRef, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	return ExtractRefs(event.Payload, event.PatientID, ""), nil
}

// Missing returns the references of a logged event that are not stored.
func (s *RetrievalService) Missing(ctx context.Context, eventID string) ([]domain.MissingDocument, error) {
	refs, err := s.Refs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.detector.FindMissing(ctx, refs), nil
}

// Retrieve downloads the downloadable missing documents of a logged event
// and records each success in the ledger so later runs skip it.
func (s *RetrievalService) Retrieve(
	ctx context.Context,
	session domain.SessionContext,
	eventID string,
	skipFallback bool,
) ([]domain.DownloadOutcome, error) {
	defer logger.Timed("retrieve " + eventID)()

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	patientID := event.PatientID
	if patientID == "" {
		patientID = session.PatientHint
	}
	refs := ExtractRefs(event.Payload, patientID, session.EncounterHint)
	origin := domain.Provenance{
		CapturedAt:  event.Timestamp,
		SourceURL:   event.Endpoint,
		HTTPMethod:  event.Method,
		Status:      event.Status,
		PayloadHash: domain.ContentHash(event.Payload),
		PatientHint: patientID,
	}.WithMeta("stage", domain.StageCapture)

	var outcomes []domain.DownloadOutcome
	for _, missing := range s.detector.FindDownloadable(ctx, refs) {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		ref := missing.Ref
		scoped := session
		if ref.PatientID != "" {
			scoped.PatientHint = ref.PatientID
		}
		if ref.EncounterID != "" {
			scoped.EncounterHint = ref.EncounterID
		}

		outcome := s.downloads.Download(ctx, scoped, ref.DownloadURL, ref.FilenameHint, skipFallback)
		outcomes = append(outcomes, outcome)
		if !outcome.OK || outcome.Artifact == nil {
			logger.Warn("document %s not retrieved: %s", ref.DocID, outcome.Error)
			continue
		}

		chain := domain.NewProvenanceChain(origin.WithMeta("doc_id", ref.DocID))
		chain.Append(outcome.Artifact.Provenance)
		latest, _ := chain.Latest()
		logger.Debug("document %s: %d provenance stages, stored via %s", ref.DocID, chain.Len(), latest.Stage())

		rec := domain.DocumentRecord{
			DocID:      ref.DocID,
			ArtifactID: outcome.Artifact.ArtifactID,
			PatientID:  ref.PatientID,
			DocType:    ref.DocType,
			Title:      ref.Title,
			SourceURL:  ref.DownloadURL,
			Stage:      latest.Stage(),
			StoredAt:   outcome.Artifact.StoredAt,
		}
		if rec.StoredAt.IsZero() {
			rec.StoredAt = time.Now().UTC()
		}
		if err := s.ledger.Record(ctx, rec); err != nil {
			logger.Error("record document %s: %v", ref.DocID, err)
		}
	}
	return outcomes, nil
}
