package domain

import (
	"fmt"
	"time"
)

// Default settings.
const (
	// DefaultStoreName is used when no store name is configured.
	DefaultStoreName = "default"

	// DefaultExchangeTimeout bounds a single exchange call.
	DefaultExchangeTimeout = 30 * time.Second

	// DefaultNotifierDebounce is the delay before unsynced-write subscribers run.
	DefaultNotifierDebounce = 10 * time.Millisecond
)

// Settings is the typed view of the application configuration.
type Settings struct {
	// StoreName names the record store.
	StoreName string

	// Namespace partitions local storage and sync traffic.
	// The empty string is the default namespace.
	Namespace string

	// Types is the fixed set of record types the store defines.
	Types []string

	// DataDir is where database files are kept.
	// Empty means the platform default.
	DataDir string

	// ExchangeURL is the endpoint of the remote exchange.
	// Empty disables remote sync.
	ExchangeURL string

	// ExchangeToken is the bearer token sent to the exchange.
	ExchangeToken string

	// Periodic is the raw periodic sync setting, see ResolvePeriodicSync.
	Periodic any

	// ExchangeTimeout bounds a single exchange call. Zero disables the bound.
	ExchangeTimeout time.Duration

	// RatePerSecond limits exchange requests. Zero disables limiting.
	RatePerSecond float64

	// NotifierDebounce delays unsynced-write notifications.
	NotifierDebounce time.Duration

	// LogFile is a rotating log file. Empty logs to stderr.
	LogFile string

	// Verbose enables debug logging.
	Verbose bool
}

// DefaultSettings returns sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		StoreName:        DefaultStoreName,
		ExchangeTimeout:  DefaultExchangeTimeout,
		NotifierDebounce: DefaultNotifierDebounce,
	}
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	if s.StoreName == "" {
		return fmt.Errorf("%w: store name is required", ErrInvalidInput)
	}
	if len(s.Types) == 0 {
		return fmt.Errorf("%w: at least one record type is required", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(s.Types))
	for _, t := range s.Types {
		if t == "" {
			return fmt.Errorf("%w: record type must not be empty", ErrInvalidInput)
		}
		if seen[t] {
			return fmt.Errorf("%w: duplicate record type %q", ErrInvalidInput, t)
		}
		seen[t] = true
	}
	if s.ExchangeTimeout < 0 {
		return fmt.Errorf("%w: exchange timeout must not be negative", ErrInvalidInput)
	}
	if s.RatePerSecond < 0 {
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidInput)
	}
	return nil
}

// DatabaseName returns the record store database name for these settings.
func (s Settings) DatabaseName() string {
	return DatabaseName(s.StoreName, s.Namespace)
}

// CursorKey returns the sync cursor slot key for these settings.
func (s Settings) CursorKey() string {
	return CursorKey(s.StoreName, s.Namespace)
}
