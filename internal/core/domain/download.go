package domain

import "fmt"

// DownloadStage is a state in the download state machine.
type DownloadStage string

// Download stages, in the order they can be visited.
const (
	DownloadStart           DownloadStage = "start"
	DownloadHTTPAttempt     DownloadStage = "http_attempt"
	DownloadHTTPFailed      DownloadStage = "http_failed"
	DownloadFallbackAttempt DownloadStage = "fallback_attempt"
	DownloadSuccess         DownloadStage = "success"
	DownloadFailed          DownloadStage = "failed"
)

// DownloadRequest is one item of a batch download.
type DownloadRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// DownloadOutcome is the terminal result of one download. TriedFallback
// keeps the tried_selenium wire name consumers already read.
type DownloadOutcome struct {
	OK            bool            `json:"ok"`
	URL           string          `json:"url"`
	Artifact      *StoredArtifact `json:"artifact,omitempty"`
	TriedHTTP     bool            `json:"tried_http"`
	TriedFallback bool            `json:"tried_selenium"`
	HTTPStatus    int             `json:"http_status,omitempty"`
	Stages        []DownloadStage `json:"stages"`
	Error         string          `json:"error,omitempty"`
}

// FetchResult is a successful direct fetch.
type FetchResult struct {
	StatusCode  int
	ContentType string
	// Filename comes from a Content-Disposition header when present.
	Filename string
	Body     []byte
}

// FetchError is a failed direct fetch. StatusCode is zero when no response arrived.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

// FallbackRequest is sent to the quarantined fallback retrieval service.
type FallbackRequest struct {
	TargetURL      string `json:"target_url"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Headless       bool   `json:"headless"`
	TimeoutSeconds int    `json:"timeout_s"`
}

// FallbackResponse is returned by the fallback retrieval service.
type FallbackResponse struct {
	OK            bool   `json:"ok"`
	Filename      string `json:"filename,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
	SizeBytes     int64  `json:"size_bytes,omitempty"`
	Error         string `json:"error,omitempty"`
}

// FallbackHealth reports fallback service availability.
type FallbackHealth struct {
	OK              bool `json:"ok"`
	LoginConfigured bool `json:"login_configured"`
}
