package services

import (
	"context"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
)

// MissingDetector decides which referenced documents still need fetching.
type MissingDetector struct {
	index driven.ArtifactIndex
}

// NewMissingDetector creates a detector over index. A nil index treats
// every document as not yet stored.
func NewMissingDetector(index driven.ArtifactIndex) *MissingDetector {
	return &MissingDetector{index: index}
}

// FindMissing returns every reference the index does not hold. Each input
// reference is either already stored (omitted), missing without a download
// URL, or missing with one.
func (d *MissingDetector) FindMissing(ctx context.Context, refs []domain.DocumentRef) []domain.MissingDocument {
	var out []domain.MissingDocument
	for _, ref := range refs {
		if d.index != nil && d.index.Has(ctx, ref.DocID) {
			continue
		}
		reason := domain.MissingNotInStore
		if ref.DownloadURL == "" {
			reason = domain.MissingNoDownloadURL
		}
		out = append(out, domain.MissingDocument{Ref: ref, Reason: reason})
	}
	return out
}

// FindDownloadable returns the missing references that have a download URL.
func (d *MissingDetector) FindDownloadable(ctx context.Context, refs []domain.DocumentRef) []domain.MissingDocument {
	var out []domain.MissingDocument
	for _, m := range d.FindMissing(ctx, refs) {
		if m.Downloadable() {
			out = append(out, m)
		}
	}
	return out
}
