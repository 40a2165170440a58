package domain

import "time"

// Default settings values.
const (
	DefaultFetchTimeout       = 30 * time.Second
	DefaultRequestsPerSecond  = 2.0
	DefaultFetchBurst         = 4
	DefaultFallbackTimeout    = 5 * time.Minute
	DefaultFallbackUserEnv    = "CHARTRAIL_FALLBACK_USERNAME"
	DefaultFallbackPassEnv    = "CHARTRAIL_FALLBACK_PASSWORD" //nolint:gosec // env var name, not a credential
	DefaultIndexerVersion     = "1.4.0"
	DefaultArtifactListLimit  = 50
	DefaultIndexQueryLimit    = 100
	DefaultEventQueryLimit    = 100
	DefaultDataDirName        = ".chartrail"
	DefaultMaxDownloadBytes   = 100 << 20
	DefaultFilenameHintExt    = ".pdf"
	DefaultFallbackHealthPath = "/health"
)

// FetchSettings configures the direct HTTP fetch path.
type FetchSettings struct {
	// Timeout bounds one direct request.
	Timeout time.Duration

	// RequestsPerSecond is the sustained request rate against the records system.
	RequestsPerSecond float64

	// Burst is the token bucket size.
	Burst int
}

// FallbackSettings configures the quarantined fallback retrieval service.
type FallbackSettings struct {
	// URL is the service base URL. Empty disables the fallback.
	URL string

	// Headless asks the service to run its browser without a display.
	Headless bool

	// Timeout bounds one fallback retrieval.
	Timeout time.Duration

	// UsernameEnv names the environment variable holding the login user.
	UsernameEnv string

	// PasswordEnv names the environment variable holding the login password.
	PasswordEnv string
}

// IsConfigured returns true if a fallback service URL is set.
func (f FallbackSettings) IsConfigured() bool {
	return f.URL != ""
}

// Settings holds all application settings.
type Settings struct {
	// DataDir holds the event log, index, artifacts and ledger.
	DataDir string

	// Fetch holds direct fetch settings.
	Fetch FetchSettings

	// Fallback holds fallback service settings.
	Fallback FallbackSettings
}

// DefaultSettings returns settings with sensible defaults.
// The fallback service is left unconfigured.
func DefaultSettings() Settings {
	return Settings{
		Fetch: FetchSettings{
			Timeout:           DefaultFetchTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultFetchBurst,
		},
		Fallback: FallbackSettings{
			Headless:    true,
			Timeout:     DefaultFallbackTimeout,
			UsernameEnv: DefaultFallbackUserEnv,
			PasswordEnv: DefaultFallbackPassEnv,
		},
	}
}
