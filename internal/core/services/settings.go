package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/chartrail/internal/core/domain"
	"github.com/custodia-labs/chartrail/internal/core/ports/driven"
	"github.com/custodia-labs/chartrail/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir          = "data.dir"
	keyFetchTimeout     = "fetch.timeout_seconds"
	keyFetchRate        = "fetch.requests_per_second"
	keyFetchBurst       = "fetch.burst"
	keyFallbackURL      = "fallback.url"
	keyFallbackHeadless = "fallback.headless"
	keyFallbackTimeout  = "fallback.timeout_seconds"
	keyFallbackUserEnv  = "fallback.username_env"
	keyFallbackPassEnv  = "fallback.password_env"
)

var settingsKeys = []string{
	keyDataDir,
	keyFetchTimeout,
	keyFetchRate,
	keyFetchBurst,
	keyFallbackURL,
	keyFallbackHeadless,
	keyFallbackTimeout,
	keyFallbackUserEnv,
	keyFallbackPassEnv,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Missing or invalid values fall back to defaults.
func (s *SettingsService) Get() (domain.Settings, error) {
	defaults := domain.DefaultSettings()

	return domain.Settings{
		DataDir: s.getString(keyDataDir, defaults.DataDir),
		Fetch: domain.FetchSettings{
			Timeout:           s.getSeconds(keyFetchTimeout, defaults.Fetch.Timeout),
			RequestsPerSecond: s.getFloat(keyFetchRate, defaults.Fetch.RequestsPerSecond),
			Burst:             s.getInt(keyFetchBurst, defaults.Fetch.Burst),
		},
		Fallback: domain.FallbackSettings{
			URL:         s.configStore.GetString(keyFallbackURL),
			Headless:    s.getBool(keyFallbackHeadless, defaults.Fallback.Headless),
			Timeout:     s.getSeconds(keyFallbackTimeout, defaults.Fallback.Timeout),
			UsernameEnv: s.getString(keyFallbackUserEnv, defaults.Fallback.UsernameEnv),
			PasswordEnv: s.getString(keyFallbackPassEnv, defaults.Fallback.PasswordEnv),
		},
	}, nil
}

// Set validates and persists one setting.
func (s *SettingsService) Set(key, value string) error {
	value = strings.TrimSpace(value)
	var stored any
	switch key {
	case keyDataDir, keyFallbackUserEnv, keyFallbackPassEnv:
		stored = value
	case keyFallbackURL:
		if value != "" {
			u, err := url.Parse(value)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("%w: %s must be an absolute URL", domain.ErrInvalidInput, key)
			}
		}
		stored = value
	case keyFetchTimeout, keyFetchBurst, keyFallbackTimeout:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
		}
		stored = n
	case keyFetchRate:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", domain.ErrInvalidInput, key)
		}
		stored = f
	case keyFallbackHeadless:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		stored = b
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the recognised config keys.
func (s *SettingsService) Keys() []string {
	return append([]string(nil), settingsKeys...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Helper methods

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if val := s.configStore.GetInt(key); val > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetBool(key)
	}
	return defaultVal
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if val := s.configStore.GetInt(key); val > 0 {
		return time.Duration(val) * time.Second
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if val := s.configStore.GetFloat(key); val > 0 {
		return val
	}
	return defaultVal
}
