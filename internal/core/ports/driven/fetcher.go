package driven

import (
	"context"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

// DocumentFetcher performs the fast, credential-reusing HTTP fetch.
type DocumentFetcher interface {
	// Fetch retrieves rawURL with the session's cookies and headers.
	// Relative URLs are resolved against session.BaseURL.
	// Non-2xx responses and transport failures return *domain.FetchError.
	Fetch(ctx context.Context, session domain.SessionContext, rawURL string) (*domain.FetchResult, error)
}

// FallbackFetcher drives the quarantined interactive-browser retrieval service.
// Credentials are supplied by the implementation from the environment, never
// by callers.
type FallbackFetcher interface {
	// Configured reports whether a fallback service is set up at all.
	Configured() bool

	// Fetch asks the service to retrieve targetURL.
	// Returns the decoded document bytes and the filename the service reported.
	// Errors wrap domain.ErrFallbackCredentials, domain.ErrFallbackUnreachable,
	// domain.ErrFallbackFailed or domain.ErrFallbackDecode.
	Fetch(ctx context.Context, targetURL string) ([]byte, string, error)

	// Health probes the service.
	Health(ctx context.Context) (*domain.FallbackHealth, error)
}
