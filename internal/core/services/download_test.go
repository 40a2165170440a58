package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chartrail/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// fakeFetcher answers direct fetches from a per-URL table.
type fakeFetcher struct {
	results  map[string]*domain.FetchResult
	status   int
	calls    []string
	sessions []domain.SessionContext
}

func (f *fakeFetcher) Fetch(_ context.Context, session domain.SessionContext, rawURL string) (*domain.FetchResult, error) {
	f.calls = append(f.calls, rawURL)
	f.sessions = append(f.sessions, session)
	if res, ok := f.results[rawURL]; ok {
		return res, nil
	}
	status := f.status
	if status == 0 {
		status = 403
	}
	return nil, &domain.FetchError{URL: rawURL, StatusCode: status, Message: "Forbidden"}
}

// fakeFallback is a configurable fallback service.
type fakeFallback struct {
	configured bool
	data       []byte
	filename   string
	err        error
	targets    []string
}

func (f *fakeFallback) Configured() bool { return f.configured }

func (f *fakeFallback) Fetch(_ context.Context, targetURL string) ([]byte, string, error) {
	f.targets = append(f.targets, targetURL)
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, f.filename, nil
}

func (f *fakeFallback) Health(context.Context) (*domain.FallbackHealth, error) {
	return &domain.FallbackHealth{OK: true, LoginConfigured: true}, nil
}

func testSession() domain.SessionContext {
	return domain.SessionContext{
		BaseURL:     "https://portal.example.com",
		Cookies:     map[string]string{"sid": "abc"},
		PatientHint: "P1",
	}
}

func pdfResult(body string) *domain.FetchResult {
	return &domain.FetchResult{StatusCode: 200, ContentType: "application/pdf; charset=binary", Body: []byte(body)}
}

func TestDownloadManager_DirectSuccess(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{results: map[string]*domain.FetchResult{"/doc/1": pdfResult("%PDF-1")}}
	artifacts := memory.NewArtifactStore()
	m := NewDownloadManager(fetcher, nil, artifacts)

	out := m.Download(ctx, testSession(), "/doc/1", "note.pdf", false)

	require.True(t, out.OK, out.Error)
	assert.True(t, out.TriedHTTP)
	assert.False(t, out.TriedFallback)
	assert.Equal(t, 200, out.HTTPStatus)
	assert.Equal(t, []domain.DownloadStage{
		domain.DownloadStart, domain.DownloadHTTPAttempt, domain.DownloadSuccess,
	}, out.Stages)
	require.NotNil(t, out.Artifact)
	assert.Equal(t, "note.pdf", out.Artifact.OriginalFilename)
	assert.Equal(t, "application/pdf", out.Artifact.MimeType)
	assert.Equal(t, domain.StageHTTPFirst, out.Artifact.Provenance.Stage())
	assert.Equal(t, domain.ContentHash([]byte("%PDF-1")), out.Artifact.Provenance.ArtifactHash)
	assert.Equal(t, "P1", out.Artifact.Provenance.PatientHint)

	data, err := artifacts.Get(ctx, out.Artifact.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1", string(data))
}

func TestDownloadManager_ForbiddenWithoutFallback(t *testing.T) {
	m := NewDownloadManager(&fakeFetcher{}, nil, memory.NewArtifactStore())

	out := m.Download(context.Background(), testSession(), "/doc/1", "", false)

	assert.False(t, out.OK)
	assert.True(t, out.TriedHTTP)
	assert.False(t, out.TriedFallback)
	assert.Equal(t, 403, out.HTTPStatus)
	assert.Nil(t, out.Artifact)
	assert.Contains(t, out.Error, "HTTP 403")
	assert.Equal(t, []domain.DownloadStage{
		domain.DownloadStart, domain.DownloadHTTPAttempt, domain.DownloadHTTPFailed, domain.DownloadFailed,
	}, out.Stages)
}

func TestDownloadManager_UnconfiguredFallbackIsNotCalled(t *testing.T) {
	fallback := &fakeFallback{configured: false}
	m := NewDownloadManager(&fakeFetcher{}, fallback, memory.NewArtifactStore())

	out := m.Download(context.Background(), testSession(), "/doc/1", "", false)

	assert.False(t, out.OK)
	assert.False(t, out.TriedFallback)
	assert.Empty(t, fallback.targets)
}

func TestDownloadManager_FallbackSuccess(t *testing.T) {
	fallback := &fakeFallback{configured: true, data: []byte("%PDF-fb"), filename: "report.pdf"}
	m := NewDownloadManager(&fakeFetcher{}, fallback, memory.NewArtifactStore())

	out := m.Download(context.Background(), testSession(), "/doc/1?x=1", "hint.pdf", false)

	require.True(t, out.OK, out.Error)
	assert.True(t, out.TriedHTTP)
	assert.True(t, out.TriedFallback)
	assert.Equal(t, 403, out.HTTPStatus)
	assert.Equal(t, []domain.DownloadStage{
		domain.DownloadStart, domain.DownloadHTTPAttempt, domain.DownloadHTTPFailed,
		domain.DownloadFallbackAttempt, domain.DownloadSuccess,
	}, out.Stages)
	assert.Equal(t, []string{"https://portal.example.com/doc/1?x=1"}, fallback.targets)

	require.NotNil(t, out.Artifact)
	assert.Equal(t, "report.pdf", out.Artifact.OriginalFilename)
	assert.Equal(t, "application/pdf", out.Artifact.MimeType)
	assert.Equal(t, domain.StageFallback, out.Artifact.Provenance.Stage())
	assert.Equal(t, "403", out.Artifact.Provenance.Meta["http_status"])
	assert.Equal(t, "/doc/1?x=1", out.Artifact.Provenance.SourceURL)
}

func TestDownloadManager_SkipFallback(t *testing.T) {
	fallback := &fakeFallback{configured: true, data: []byte("x")}
	m := NewDownloadManager(&fakeFetcher{}, fallback, memory.NewArtifactStore())

	out := m.Download(context.Background(), testSession(), "/doc/1", "", true)

	assert.False(t, out.OK)
	assert.False(t, out.TriedFallback)
	assert.Empty(t, fallback.targets)
}

func TestDownloadManager_FallbackFailure(t *testing.T) {
	fallback := &fakeFallback{configured: true, err: domain.ErrFallbackUnreachable}
	m := NewDownloadManager(&fakeFetcher{}, fallback, memory.NewArtifactStore())

	out := m.Download(context.Background(), testSession(), "/doc/1", "", false)

	assert.False(t, out.OK)
	assert.True(t, out.TriedFallback)
	assert.Equal(t, 403, out.HTTPStatus)
	assert.Equal(t, domain.ErrFallbackUnreachable.Error(), out.Error)
	assert.Equal(t, domain.DownloadFailed, out.Stages[len(out.Stages)-1])
}

func TestDownloadManager_EmptyURL(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := NewDownloadManager(fetcher, nil, memory.NewArtifactStore())

	out := m.Download(context.Background(), testSession(), "  ", "", false)

	assert.False(t, out.OK)
	assert.False(t, out.TriedHTTP)
	assert.Equal(t, []domain.DownloadStage{domain.DownloadStart, domain.DownloadFailed}, out.Stages)
	assert.Contains(t, out.Error, domain.ErrInvalidInput.Error())
	assert.Empty(t, fetcher.calls)
}

func TestDownloadManager_InvalidSessionSkipsDirectFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := NewDownloadManager(fetcher, nil, memory.NewArtifactStore())

	out := m.Download(context.Background(), domain.SessionContext{}, "/doc/1", "", false)

	assert.False(t, out.OK)
	assert.False(t, out.TriedHTTP)
	assert.Zero(t, out.HTTPStatus)
	assert.Contains(t, out.Error, domain.ErrInvalidSession.Error())
	assert.Empty(t, fetcher.calls)
	assert.Equal(t, []domain.DownloadStage{
		domain.DownloadStart, domain.DownloadHTTPFailed, domain.DownloadFailed,
	}, out.Stages)
}

func TestDownloadManager_InvalidSessionStillTriesFallback(t *testing.T) {
	fetcher := &fakeFetcher{}
	fb := &fakeFallback{configured: true, data: []byte("%PDF-fb"), filename: "fb.pdf"}
	m := NewDownloadManager(fetcher, fb, memory.NewArtifactStore())

	out := m.Download(context.Background(), domain.SessionContext{}, "https://portal.example.com/doc/1", "", false)

	require.True(t, out.OK, out.Error)
	assert.False(t, out.TriedHTTP)
	assert.True(t, out.TriedFallback)
	assert.Empty(t, fetcher.calls)
	assert.NotContains(t, out.Stages, domain.DownloadHTTPAttempt)
}

func TestDownloadManager_BatchSkipsEmptyURLs(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]*domain.FetchResult{"/a": pdfResult("a")}}
	m := NewDownloadManager(fetcher, nil, memory.NewArtifactStore())

	outs := m.BatchDownload(context.Background(), testSession(), []domain.DownloadRequest{
		{URL: "/a", Filename: "a.pdf"},
		{URL: ""},
		{URL: "/b"},
	})

	require.Len(t, outs, 2)
	assert.True(t, outs[0].OK)
	assert.Equal(t, "/b", outs[1].URL)
	assert.False(t, outs[1].OK)
}

func TestDownloadManager_BatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &fakeFetcher{}
	m := NewDownloadManager(fetcher, nil, memory.NewArtifactStore())

	outs := m.BatchDownload(ctx, testSession(), []domain.DownloadRequest{{URL: "/a"}, {URL: "/b"}})

	assert.Empty(t, outs)
	assert.Empty(t, fetcher.calls)
}

func TestDownloadManager_FallbackHealth(t *testing.T) {
	ctx := context.Background()

	_, err := NewDownloadManager(&fakeFetcher{}, nil, nil).FallbackHealth(ctx)
	assert.True(t, errors.Is(err, domain.ErrFallbackNotConfigured))

	health, err := NewDownloadManager(&fakeFetcher{}, &fakeFallback{configured: true}, nil).FallbackHealth(ctx)
	require.NoError(t, err)
	assert.True(t, health.OK)
}

func TestChooseFilename(t *testing.T) {
	assert.Equal(t, "server.pdf", chooseFilename("server.pdf", "hint.pdf", "/x/y.pdf"))
	assert.Equal(t, "hint.pdf", chooseFilename(" ", "hint.pdf", "/x/y.pdf"))
	assert.Equal(t, "y.pdf", chooseFilename("", "", "https://h/x/y.pdf?z=1"))
	assert.Equal(t, "document.pdf", chooseFilename("", "", "https://h/"))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://h.example/a/b", resolveURL("https://h.example/base/", "/a/b"))
	assert.Equal(t, "https://other/x", resolveURL("https://h.example", "https://other/x"))
	assert.Equal(t, "/a", resolveURL("", "/a"))
}
