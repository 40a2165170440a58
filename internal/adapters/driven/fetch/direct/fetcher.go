// Package direct provides the HTTP-first document fetcher.
//
// Requests reuse the captured browser session: its cookies, headers and user
// agent are replayed so the records system treats the fetch as part of the
// same login.
package direct

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.DocumentFetcher = (*Fetcher)(nil)

// Config holds fetcher configuration.
type Config struct {
	// Timeout bounds one request (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate (default: 2).
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 4).
	Burst int

	// MaxBytes caps the response body (default: 100 MiB).
	MaxBytes int64
}

// Fetcher downloads documents with session credentials.
type Fetcher struct {
	client   *http.Client
	limiter  *RateLimiter
	maxBytes int64
}

// NewFetcher creates a fetcher. Zero config fields take defaults.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultFetchTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = domain.DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = domain.DefaultFetchBurst
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = domain.DefaultMaxDownloadBytes
	}
	return &Fetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		maxBytes: cfg.MaxBytes,
	}
}

// FromSettings builds a Config from application settings.
func FromSettings(s domain.FetchSettings) Config {
	return Config{
		Timeout:           s.Timeout,
		RequestsPerSecond: s.RequestsPerSecond,
		Burst:             s.Burst,
	}
}

// Fetch retrieves rawURL. Every failure is a *domain.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, session domain.SessionContext, rawURL string) (*domain.FetchResult, error) {
	target, err := resolve(session.BaseURL, rawURL)
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Message: err.Error()}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &domain.FetchError{URL: target, Message: fmt.Sprintf("rate limiter: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: target, Message: fmt.Sprintf("create request: %v", err)}
	}
	applySession(req, session)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: target, Message: fmt.Sprintf("send request: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			f.limiter.RecordRateLimited(resp.Header.Get("Retry-After"))
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil, &domain.FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &domain.FetchError{URL: target, Message: fmt.Sprintf("read body: %v", err)}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &domain.FetchError{
			URL:     target,
			Message: fmt.Sprintf("response exceeds %d bytes", f.maxBytes),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if isLoginPage(contentType, body) {
		return nil, &domain.FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    "received a login page instead of a document",
		}
	}

	return &domain.FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Filename:    dispositionFilename(resp.Header.Get("Content-Disposition")),
		Body:        body,
	}, nil
}

// applySession copies the session credentials onto req.
func applySession(req *http.Request, session domain.SessionContext) {
	for k, v := range session.Headers {
		req.Header.Set(k, v)
	}
	if session.UserAgent != "" {
		req.Header.Set("User-Agent", session.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	for name, value := range session.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

// resolve makes rawURL absolute against base.
func resolve(base, rawURL string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative url %q without session base url", rawURL)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	return b.ResolveReference(ref).String(), nil
}

// dispositionFilename extracts the filename parameter, including the
// RFC 2231 filename* form.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}

// isLoginPage detects an HTML response carrying a password form, which the
// records system serves when the session is not accepted.
func isLoginPage(contentType string, body []byte) bool {
	mt, _, _ := mime.ParseMediaType(contentType)
	if mt != "text/html" {
		return false
	}
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte(`type="password"`)) || bytes.Contains(lower, []byte(`type='password'`))
}
