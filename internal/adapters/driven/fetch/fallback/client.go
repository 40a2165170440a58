// Package fallback provides the client for the quarantined browser-driven
// retrieval service used when the direct fetch fails.
//
// The service runs out of process. It receives a target URL plus login
// credentials taken from the environment and answers with the document as
// base64.
package fallback

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.FallbackFetcher = (*Client)(nil)

// Service endpoints.
const (
	fetchPath = "/fetch"
	// transportSlack is added to the service-side timeout so the service can
	// report its own timeout before the HTTP client gives up.
	transportSlack = 15 * time.Second
	// maxResponseBytes bounds the JSON envelope, which carries base64.
	maxResponseBytes = domain.DefaultMaxDownloadBytes*4/3 + 64*1024
)

// Client talks to the fallback retrieval service.
type Client struct {
	client      *http.Client
	baseURL     string
	headless    bool
	timeout     time.Duration
	usernameEnv string
	passwordEnv string
	getenv      func(string) string
}

// NewClient creates a client from settings. An empty URL yields a client
// that reports itself unconfigured.
func NewClient(cfg domain.FallbackSettings) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultFallbackTimeout
	}
	if cfg.UsernameEnv == "" {
		cfg.UsernameEnv = domain.DefaultFallbackUserEnv
	}
	if cfg.PasswordEnv == "" {
		cfg.PasswordEnv = domain.DefaultFallbackPassEnv
	}
	return &Client{
		client:      &http.Client{Timeout: cfg.Timeout + transportSlack},
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		headless:    cfg.Headless,
		timeout:     cfg.Timeout,
		usernameEnv: cfg.UsernameEnv,
		passwordEnv: cfg.PasswordEnv,
		getenv:      os.Getenv,
	}
}

// Configured reports whether a service URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// Fetch asks the service to retrieve targetURL.
func (c *Client) Fetch(ctx context.Context, targetURL string) ([]byte, string, error) {
	if !c.Configured() {
		return nil, "", domain.ErrFallbackNotConfigured
	}

	username := c.getenv(c.usernameEnv)
	password := c.getenv(c.passwordEnv)
	if username == "" || password == "" {
		return nil, "", fmt.Errorf("%w: set %s and %s", domain.ErrFallbackCredentials, c.usernameEnv, c.passwordEnv)
	}

	reqBody, err := json.Marshal(domain.FallbackRequest{
		TargetURL:      targetURL,
		Username:       username,
		Password:       password,
		Headless:       c.headless,
		TimeoutSeconds: int(c.timeout / time.Second),
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+fetchPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("fallback fetch %s via %s", targetURL, c.baseURL)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrFallbackUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read response: %v", domain.ErrFallbackUnreachable, err)
	}

	var out domain.FallbackResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(out.Error)
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, "", fmt.Errorf("%w: status %d: %s", domain.ErrFallbackFailed, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, "", fmt.Errorf("%w: response: %v", domain.ErrFallbackDecode, decodeErr)
	}
	if !out.OK {
		msg := out.Error
		if msg == "" {
			msg = "service reported failure"
		}
		return nil, "", fmt.Errorf("%w: %s", domain.ErrFallbackFailed, msg)
	}

	data, err := decodeContent(out.ContentBase64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrFallbackDecode, err)
	}
	if out.SizeBytes > 0 && out.SizeBytes != int64(len(data)) {
		logger.Warn("fallback reported %d bytes for %s, decoded %d", out.SizeBytes, targetURL, len(data))
	}
	return data, out.Filename, nil
}

// Health probes the service.
func (c *Client) Health(ctx context.Context) (*domain.FallbackHealth, error) {
	if !c.Configured() {
		return nil, domain.ErrFallbackNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+domain.DefaultFallbackHealthPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFallbackUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: health status %d", domain.ErrFallbackUnreachable, resp.StatusCode)
	}

	var health domain.FallbackHealth
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&health); err != nil {
		return nil, fmt.Errorf("%w: health response: %v", domain.ErrFallbackDecode, err)
	}
	return &health, nil
}

// decodeContent accepts padded and unpadded base64.
func decodeContent(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty content")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(s); rawErr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("decode base64: %w", err)
}
