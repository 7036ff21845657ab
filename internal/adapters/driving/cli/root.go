// Package cli implements the wirestore command line.
//
// Commands get their dependencies from an App built by a Bootstrap function
// the entry point installs with SetBootstrap. The App is built lazily on the
// first command that needs it so that flags like --config-dir apply.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
	"github.com/custodia-labs/wirestore/internal/core/services"
)

// version is set at build time via SetVersion.
var version = "dev"

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Options are the global flags that shape settings.
type Options struct {
	ConfigDir string
	DataDir   string
	StoreName string
	Namespace string
	Types     []string
	Verbose   bool
}

// Apply overlays flag values on settings loaded from the config file.
func (o Options) Apply(s domain.Settings) domain.Settings {
	if o.DataDir != "" {
		s.DataDir = o.DataDir
	}
	if o.StoreName != "" {
		s.StoreName = o.StoreName
	}
	if o.Namespace != "" {
		s.Namespace = o.Namespace
	}
	if len(o.Types) > 0 {
		s.Types = o.Types
	}
	if o.Verbose {
		s.Verbose = true
	}
	return s
}

// App holds what commands need for one invocation.
type App struct {
	// Settings are the effective settings after flag overrides.
	Settings domain.Settings

	// Config is the underlying config store, used by the config command.
	Config driven.ConfigStore

	// NewSession builds a session for settings. The caller closes it.
	NewSession func(settings domain.Settings) (*services.Session, error)

	// History reads past sync cycles. May be nil.
	History driven.SyncHistoryStore

	// WatchConfig blocks until ctx is done, calling onChange with the
	// reloaded settings whenever the config file changes. May be nil.
	WatchConfig func(ctx context.Context, onChange func(domain.Settings)) error

	// Close releases resources held by the app. May be nil.
	Close func() error
}

// Bootstrap builds the App from the global options.
type Bootstrap func(ctx context.Context, opts Options) (*App, error)

var (
	bootstrap Bootstrap
	opts      Options
	app       *App
)

// SetBootstrap installs the function used to build the App.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

var rootCmd = &cobra.Command{
	Use:   "wirestore",
	Short: "Local-first record store with remote sync",
	Long: `wirestore keeps typed JSON records in a local database and syncs them
with a remote exchange. Writes are applied locally first and pushed on the
next sync; changes from other clients are pulled in the same cycle.`,
	SilenceUsage: true,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeApp()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.wirestore)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "database directory (default ~/.wirestore/data)")
	flags.StringVar(&opts.StoreName, "store", "", "store name")
	flags.StringVarP(&opts.Namespace, "namespace", "n", "", "namespace")
	flags.StringSliceVar(&opts.Types, "types", nil, "record types, comma separated")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closeApp() //nolint:errcheck // best effort on error paths
	return rootCmd.ExecuteContext(ctx)
}

// loadApp builds the App on first use.
func loadApp(cmd *cobra.Command) (*App, error) {
	if app != nil {
		return app, nil
	}
	if bootstrap == nil {
		return nil, errors.New("wirestore not configured")
	}
	a, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	app = a
	return app, nil
}

func closeApp() error {
	if app == nil {
		return nil
	}
	a := app
	app = nil
	if a.Close == nil {
		return nil
	}
	return a.Close()
}

// openSession builds a session from the app settings. With start set the
// session runs its mount sync, write-triggered sync and periodic sync.
func openSession(cmd *cobra.Command, start bool) (*App, *services.Session, error) {
	a, err := loadApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := a.Settings.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid settings (see %s): %w", configHint(a), err)
	}

	session, err := a.NewSession(a.Settings)
	if err != nil {
		return nil, nil, err
	}
	if start {
		if err := session.Start(cmd.Context()); err != nil {
			_ = session.Close()
			return nil, nil, err
		}
	}
	return a, session, nil
}

// followConfig applies config file changes to a running session until ctx
// is done.
func followConfig(ctx context.Context, a *App, session *services.Session) {
	if a.WatchConfig == nil {
		return
	}
	go func() {
		_ = a.WatchConfig(ctx, func(s domain.Settings) {
			session.SetPeriodic(s.Periodic)
		})
	}()
}

func configHint(a *App) string {
	if a.Config == nil {
		return "config"
	}
	return a.Config.Path()
}
