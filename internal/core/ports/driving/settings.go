package driving

import "github.com/custodia-labs/wirestore/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get reads the current settings, applying defaults for unset keys.
	Get() (domain.Settings, error)

	// Save persists settings.
	Save(settings domain.Settings) error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
