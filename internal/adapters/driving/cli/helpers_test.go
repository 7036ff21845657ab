package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	exchangemem "github.com/custodia-labs/wirestore/internal/adapters/driven/exchange/memory"
	"github.com/custodia-labs/wirestore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driven"
	"github.com/custodia-labs/wirestore/internal/core/services"
)

type testEnv struct {
	settings domain.Settings
	opener   *memory.Opener
	cursors  *memory.SyncStateStore
	history  *memory.SyncHistoryStore
	exchange *exchangemem.Exchange
	config   *memory.ConfigStore
}

// setupCLI installs a memory-backed bootstrap. mutate adjusts the base
// settings before each command.
func setupCLI(t *testing.T, mutate func(*domain.Settings)) *testEnv {
	t.Helper()

	settings := domain.DefaultSettings()
	settings.StoreName = "test"
	settings.Types = []string{"todo", "note"}
	if mutate != nil {
		mutate(&settings)
	}

	env := &testEnv{
		settings: settings,
		opener:   memory.NewOpener(),
		cursors:  memory.NewSyncStateStore(),
		history:  memory.NewSyncHistoryStore(),
		exchange: exchangemem.New(settings.Types),
		config:   memory.NewConfigStore(),
	}

	resetFlags(rootCmd)
	opts = Options{}
	app = nil
	SetBootstrap(func(_ context.Context, o Options) (*App, error) {
		return &App{
			Settings: o.Apply(env.settings),
			Config:   env.config,
			History:  env.history,
			NewSession: func(s domain.Settings) (*services.Session, error) {
				var exchanger driven.Exchanger
				if s.ExchangeURL != "" {
					exchanger = env.exchange
				}
				return services.NewSession(services.SessionConfigFromSettings(s), services.SessionDeps{
					Opener:    env.opener,
					Cursors:   env.cursors,
					History:   env.history,
					Exchanger: exchanger,
				})
			},
		}, nil
	})

	t.Cleanup(func() {
		_ = closeApp()
		SetBootstrap(nil)
		resetFlags(rootCmd)
		opts = Options{}
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return env
}

// runCLI executes the root command with args and returns combined output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	_ = closeApp()
	return buf.String(), err
}

// resetFlags restores every flag to its default since cobra keeps flag
// values between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
