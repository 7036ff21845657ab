package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
	"github.com/custodia-labs/wirestore/internal/logger"
)

// SessionConfig describes one store instance.
type SessionConfig struct {
	StoreName        string
	Namespace        string
	Types            []string
	Periodic         any
	ExchangeTimeout  time.Duration
	NotifierDebounce time.Duration
}

// SessionConfigFromSettings builds a session config from settings.
func SessionConfigFromSettings(s domain.Settings) SessionConfig {
	return SessionConfig{
		StoreName:        s.StoreName,
		Namespace:        s.Namespace,
		Types:            s.Types,
		Periodic:         s.Periodic,
		ExchangeTimeout:  s.ExchangeTimeout,
		NotifierDebounce: s.NotifierDebounce,
	}
}

// SessionDeps are the driven ports a session uses.
// History and Exchanger may be nil.
type SessionDeps struct {
	Opener    driven.StoreOpener
	Cursors   driven.SyncStateStore
	History   driven.SyncHistoryStore
	Exchanger driven.Exchanger
}

// Session owns all state of one (store name, namespace) pair: the record
// store handle, change bus, write notifier, sync engine, scheduler and the
// per-type collections.
type Session struct {
	cfg SessionConfig

	bus         *ChangeBus
	writes      *Notifier
	store       *RecordStore
	engine      *SyncEngine
	scheduler   *Scheduler
	collections map[string]*Collection
	remote      bool

	mu          sync.Mutex
	started     bool
	closed      bool
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewSession wires a session. Nothing is opened until first use or Start.
func NewSession(cfg SessionConfig, deps SessionDeps) (*Session, error) {
	if cfg.StoreName == "" {
		return nil, fmt.Errorf("%w: store name is required", domain.ErrInvalidInput)
	}
	if len(cfg.Types) == 0 {
		return nil, fmt.Errorf("%w: at least one record type is required", domain.ErrInvalidInput)
	}
	if deps.Opener == nil || deps.Cursors == nil {
		return nil, fmt.Errorf("%w: store opener and cursor store are required", domain.ErrInvalidInput)
	}

	bus := NewChangeBus(cfg.Types)
	writes := NewNotifier("unsynced writes", cfg.NotifierDebounce)
	store := NewRecordStore(deps.Opener, domain.DatabaseName(cfg.StoreName, cfg.Namespace), bus)
	engine := NewSyncEngine(SyncOptions{
		CursorKey: domain.CursorKey(cfg.StoreName, cfg.Namespace),
		Namespace: cfg.Namespace,
		Timeout:   cfg.ExchangeTimeout,
	}, store, deps.Cursors, deps.History, deps.Exchanger)

	collections := make(map[string]*Collection, len(cfg.Types))
	for _, t := range cfg.Types {
		collections[t] = NewCollection(t, store, bus, writes)
	}

	return &Session{
		cfg:         cfg,
		bus:         bus,
		writes:      writes,
		store:       store,
		engine:      engine,
		scheduler:   NewScheduler(engine, resolvePeriodic(cfg.Periodic)),
		collections: collections,
		remote:      deps.Exchanger != nil,
	}, nil
}

// Collection returns the record API for recordType.
func (s *Session) Collection(recordType string) (*Collection, error) {
	c, ok := s.collections[recordType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownType, recordType)
	}
	return c, nil
}

// Types returns the configured record types.
func (s *Session) Types() []string {
	return s.cfg.Types
}

// Namespace returns the session namespace.
func (s *Session) Namespace() string {
	return s.cfg.Namespace
}

// Store returns the record store. Internal sync tooling only.
func (s *Session) Store() *RecordStore {
	return s.store
}

// Bus returns the change bus.
func (s *Session) Bus() *ChangeBus {
	return s.bus
}

// Engine returns the sync engine.
func (s *Session) Engine() *SyncEngine {
	return s.engine
}

// Scheduler returns the periodic scheduler.
func (s *Session) Scheduler() *Scheduler {
	return s.scheduler
}

// SetPeriodic applies a new periodic sync setting.
// An invalid setting is logged and disables periodic sync.
func (s *Session) SetPeriodic(setting any) {
	s.scheduler.SetPeriodic(resolvePeriodic(setting))
}

// Start opens the store and, when an exchange is configured, runs the mount
// sync, subscribes the engine to local writes and starts periodic sync.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrStoreClosed
	}
	if s.started {
		return nil
	}
	if err := s.store.Open(ctx); err != nil {
		return err
	}
	if err := s.engine.LoadCursor(ctx); err != nil {
		logger.Warn("session %s: %v", s.store.Name(), err)
	}
	s.started = true

	if !s.remote {
		return nil
	}

	s.unsubscribe = s.writes.Subscribe(func() {
		s.engine.Trigger(driving.ReasonWrite)
	})
	s.engine.Trigger(driving.ReasonMount)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.scheduler.Start(runCtx)
	}()

	return nil
}

// Close stops background work and releases the store handle.
// In-flight exchange calls are cancelled.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsubscribe, cancel := s.unsubscribe, s.cancel
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		_ = s.scheduler.Stop()
		cancel()
	}
	s.wg.Wait()
	s.writes.Close()
	s.engine.Close()

	return s.store.Close()
}

func resolvePeriodic(setting any) domain.PeriodicSync {
	periodic, err := domain.ResolvePeriodicSync(setting)
	if err != nil {
		logger.Warn("periodic sync disabled: %v", err)
		return domain.PeriodicSync{}
	}
	return periodic
}
