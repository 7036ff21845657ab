package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	configfile "github.com/custodia-labs/wirestore/internal/adapters/driven/config/file"
	"github.com/custodia-labs/wirestore/internal/adapters/driven/exchange/remote"
	"github.com/custodia-labs/wirestore/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/wirestore/internal/adapters/driving/cli"
	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
	"github.com/custodia-labs/wirestore/internal/core/services"
	"github.com/custodia-labs/wirestore/internal/logger"
)

// bootstrap wires the production adapters: a TOML config file, SQLite
// storage and the HTTP exchange client.
func bootstrap(_ context.Context, opts cli.Options) (*cli.App, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := configfile.DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	configStore, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	loadSettings := func() (domain.Settings, error) {
		s, err := settingsService.Get()
		if err != nil {
			return domain.Settings{}, err
		}
		return opts.Apply(s), nil
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var closers []io.Closer
	logger.SetVerbose(settings.Verbose)
	if settings.LogFile != "" {
		closers = append(closers, logger.SetFile(settings.LogFile))
	}

	meta, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	closers = append(closers, meta)

	opener, err := sqlite.NewOpener(settings.DataDir)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("opening record storage: %w", err)
	}

	return &cli.App{
		Settings: settings,
		Config:   configStore,
		History:  meta.SyncHistoryStore(),
		NewSession: func(s domain.Settings) (*services.Session, error) {
			exchanger, err := newExchanger(s)
			if err != nil {
				return nil, err
			}
			return services.NewSession(services.SessionConfigFromSettings(s), services.SessionDeps{
				Opener:    opener,
				Cursors:   meta.SyncStateStore(),
				History:   meta.SyncHistoryStore(),
				Exchanger: exchanger,
			})
		},
		WatchConfig: func(ctx context.Context, onChange func(domain.Settings)) error {
			return configStore.Watch(ctx, func() {
				s, err := loadSettings()
				if err != nil {
					logger.Warn("reading reloaded settings: %v", err)
					return
				}
				onChange(s)
			})
		},
		Close: func() error {
			return closeAll(closers)
		},
	}, nil
}

// newExchanger returns nil when no exchange is configured so the session
// stays local only.
func newExchanger(s domain.Settings) (driven.Exchanger, error) {
	if s.ExchangeURL == "" {
		return nil, nil
	}
	client, err := remote.New(remote.Config{
		URL:           s.ExchangeURL,
		Token:         s.ExchangeToken,
		RatePerSecond: s.RatePerSecond,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// closeAll closes in reverse order.
func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
