package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyStoreName      = "store.name"
	KeyNamespace      = "store.namespace"
	KeyTypes          = "store.types"
	KeyDataDir        = "store.data_dir"
	KeyExchangeURL    = "sync.exchange_url"
	KeyExchangeToken  = "sync.token"
	KeyPeriodic       = "sync.periodic"
	KeyTimeoutMillis  = "sync.timeout_ms"
	KeyRatePerSecond  = "sync.rate_per_second"
	KeyDebounceMillis = "notifier.debounce_ms"
	KeyLogFile        = "log.file"
	KeyLogVerbose     = "log.verbose"
)

// SettingsService maps the dot-notation config keys onto domain.Settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// The result is not validated; callers check it with Settings.Validate.
func (s *SettingsService) Get() (domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := domain.Settings{
		StoreName:        s.getString(KeyStoreName, defaults.StoreName),
		Namespace:        s.configStore.GetString(KeyNamespace),
		Types:            s.configStore.GetStringSlice(KeyTypes),
		DataDir:          s.configStore.GetString(KeyDataDir),
		ExchangeURL:      s.configStore.GetString(KeyExchangeURL),
		ExchangeToken:    s.configStore.GetString(KeyExchangeToken),
		ExchangeTimeout:  s.getMillis(KeyTimeoutMillis, defaults.ExchangeTimeout),
		RatePerSecond:    s.configStore.GetFloat(KeyRatePerSecond),
		NotifierDebounce: s.getMillis(KeyDebounceMillis, defaults.NotifierDebounce),
		LogFile:          s.configStore.GetString(KeyLogFile),
		Verbose:          s.configStore.GetBool(KeyLogVerbose),
	}

	// Periodic is interpreted later so an invalid value only disables
	// periodic sync instead of failing startup.
	if v, ok := s.configStore.Get(KeyPeriodic); ok {
		settings.Periodic = v
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{KeyStoreName, settings.StoreName},
		{KeyNamespace, settings.Namespace},
		{KeyTypes, settings.Types},
		{KeyDataDir, settings.DataDir},
		{KeyExchangeURL, settings.ExchangeURL},
		{KeyTimeoutMillis, settings.ExchangeTimeout.Milliseconds()},
		{KeyRatePerSecond, settings.RatePerSecond},
		{KeyDebounceMillis, settings.NotifierDebounce.Milliseconds()},
		{KeyLogFile, settings.LogFile},
		{KeyLogVerbose, settings.Verbose},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Only persist the token if set
	if settings.ExchangeToken != "" {
		if err := s.configStore.Set(KeyExchangeToken, settings.ExchangeToken); err != nil {
			return fmt.Errorf("save %s: %w", KeyExchangeToken, err)
		}
	}
	if settings.Periodic != nil {
		if err := s.configStore.Set(KeyPeriodic, settings.Periodic); err != nil {
			return fmt.Errorf("save %s: %w", KeyPeriodic, err)
		}
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

// getMillis reads an integer millisecond value. Zero is kept as an explicit
// value, only a missing key falls back to the default.
func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Millisecond
}
