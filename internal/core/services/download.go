package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// Ensure DownloadManager implements the interface.
var _ driving.DownloadService = (*DownloadManager)(nil)

// DownloadManager fetches documents HTTP first and falls back to the
// quarantined retrieval service when the direct fetch fails.
type DownloadManager struct {
	fetcher   driven.DocumentFetcher
	fallback  driven.FallbackFetcher
	artifacts driven.ArtifactStore
	now       func() time.Time
}

// NewDownloadManager creates a download manager. fallback may be nil.
func NewDownloadManager(
	fetcher driven.DocumentFetcher,
	fallback driven.FallbackFetcher,
	artifacts driven.ArtifactStore,
) *DownloadManager {
	return &DownloadManager{
		fetcher:   fetcher,
		fallback:  fallback,
		artifacts: artifacts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// attempt tracks one download through its stages.
type attempt struct {
	outcome domain.DownloadOutcome
}

func newAttempt(rawURL string) *attempt {
	return &attempt{outcome: domain.DownloadOutcome{
		URL:    rawURL,
		Stages: []domain.DownloadStage{domain.DownloadStart},
	}}
}

func (a *attempt) enter(stage domain.DownloadStage) {
	a.outcome.Stages = append(a.outcome.Stages, stage)
}

func (a *attempt) succeed(artifact *domain.StoredArtifact) domain.DownloadOutcome {
	a.enter(domain.DownloadSuccess)
	a.outcome.OK = true
	a.outcome.Artifact = artifact
	a.outcome.Error = ""
	return a.outcome
}

func (a *attempt) fail(err error) domain.DownloadOutcome {
	a.enter(domain.DownloadFailed)
	a.outcome.OK = false
	a.outcome.Error = err.Error()
	return a.outcome
}

// Download fetches rawURL. Failures are reported on the outcome, never
// returned as errors.
func (m *DownloadManager) Download(
	ctx context.Context,
	session domain.SessionContext,
	rawURL, filenameHint string,
	skipFallback bool,
) domain.DownloadOutcome {
	a := newAttempt(rawURL)
	if strings.TrimSpace(rawURL) == "" {
		return a.fail(fmt.Errorf("%w: download URL is empty", domain.ErrInvalidInput))
	}

	// Without a usable session no request is sent and the HTTP stage is
	// recorded as failed without an attempt.
	httpErr := session.Validate()
	if httpErr == nil {
		a.enter(domain.DownloadHTTPAttempt)
		a.outcome.TriedHTTP = true
		var artifact *domain.StoredArtifact
		artifact, httpErr = m.fetchDirect(ctx, session, rawURL, filenameHint, a)
		if httpErr == nil {
			return a.succeed(artifact)
		}
		logger.Debug("direct fetch failed for %s: %v", rawURL, httpErr)
	} else {
		logger.Debug("skipping direct fetch of %s: %v", rawURL, httpErr)
	}
	a.enter(domain.DownloadHTTPFailed)

	if skipFallback {
		return a.fail(httpErr)
	}
	if m.fallback == nil || !m.fallback.Configured() {
		logger.Debug("fallback not configured, giving up on %s", rawURL)
		return a.fail(httpErr)
	}

	a.enter(domain.DownloadFallbackAttempt)
	a.outcome.TriedFallback = true
	artifact, err := m.fetchFallback(ctx, session, rawURL, filenameHint, a)
	if err != nil {
		logger.Warn("fallback fetch failed for %s: %v", rawURL, err)
		return a.fail(err)
	}
	return a.succeed(artifact)
}

func (m *DownloadManager) fetchDirect(
	ctx context.Context,
	session domain.SessionContext,
	rawURL, filenameHint string,
	a *attempt,
) (*domain.StoredArtifact, error) {
	res, err := m.fetcher.Fetch(ctx, session, rawURL)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) && fe.StatusCode != 0 && a.outcome.HTTPStatus == 0 {
			a.outcome.HTTPStatus = fe.StatusCode
		}
		return nil, err
	}
	if a.outcome.HTTPStatus == 0 {
		a.outcome.HTTPStatus = res.StatusCode
	}

	prov := m.provenance(session, rawURL, res.Body, domain.StageHTTPFirst)
	prov.Status = domain.IntPtr(res.StatusCode)
	filename := chooseFilename(res.Filename, filenameHint, rawURL)
	mimeType := mediaType(res.ContentType)
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(filename))
	}

	artifact, err := m.artifacts.Put(ctx, res.Body, filename, mimeType, prov)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	return artifact, nil
}

func (m *DownloadManager) fetchFallback(
	ctx context.Context,
	session domain.SessionContext,
	rawURL, filenameHint string,
	a *attempt,
) (*domain.StoredArtifact, error) {
	target := resolveURL(session.BaseURL, rawURL)
	data, reported, err := m.fallback.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	prov := m.provenance(session, rawURL, data, domain.StageFallback)
	if a.outcome.HTTPStatus != 0 {
		prov = prov.WithMeta("http_status", fmt.Sprint(a.outcome.HTTPStatus))
	}
	filename := chooseFilename(reported, filenameHint, rawURL)

	artifact, err := m.artifacts.Put(ctx, data, filename, mime.TypeByExtension(path.Ext(filename)), prov)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}
	return artifact, nil
}

func (m *DownloadManager) provenance(
	session domain.SessionContext,
	rawURL string,
	data []byte,
	stage string,
) domain.Provenance {
	return domain.Provenance{
		CapturedAt:    m.now(),
		SourceURL:     rawURL,
		HTTPMethod:    "GET",
		ArtifactHash:  domain.ContentHash(data),
		PatientHint:   session.PatientHint,
		EncounterHint: session.EncounterHint,
	}.WithMeta("stage", stage)
}

// BatchDownload fetches items one at a time. Items without a URL are
// skipped and a failing item never stops the batch. Cancelling ctx stops
// before the next item.
func (m *DownloadManager) BatchDownload(
	ctx context.Context,
	session domain.SessionContext,
	items []domain.DownloadRequest,
) []domain.DownloadOutcome {
	outcomes := make([]domain.DownloadOutcome, 0, len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if strings.TrimSpace(item.URL) == "" {
			continue
		}
		outcomes = append(outcomes, m.Download(ctx, session, item.URL, item.Filename, false))
	}
	return outcomes
}

// FallbackHealth probes the fallback service.
func (m *DownloadManager) FallbackHealth(ctx context.Context) (*domain.FallbackHealth, error) {
	if m.fallback == nil || !m.fallback.Configured() {
		return nil, domain.ErrFallbackNotConfigured
	}
	return m.fallback.Health(ctx)
}

// chooseFilename prefers the server-reported name, then the hint, then the
// last URL path segment.
func chooseFilename(reported, hint, rawURL string) string {
	for _, name := range []string{reported, hint} {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return "document" + domain.DefaultFilenameHintExt
}

// mediaType strips parameters from a Content-Type value.
func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

// resolveURL makes rawURL absolute against base when it is relative.
func resolveURL(base, rawURL string) string {
	ref, err := url.Parse(rawURL)
	if err != nil || ref.IsAbs() || base == "" {
		return rawURL
	}
	b, err := url.Parse(base)
	if err != nil {
		return rawURL
	}
	return b.ResolveReference(ref).String()
}
