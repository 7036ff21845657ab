package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	exchangemem "github.com/custodia-labs/wirestore/internal/adapters/driven/exchange/memory"
	"github.com/custodia-labs/wirestore/internal/adapters/driving/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a reference exchange server",
	Long: `Runs an in-memory exchange over HTTP that clients can sync against.

The exchange keeps the latest write per record (last writer wins), hands out
sequence cursors and keeps deletions so every client learns about them. State
is lost when the server stops; it is meant for development and testing.

Point clients at it with:
  wirestore config set sync.exchange_url http://localhost:8420/exchange`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "localhost:8420", "listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if len(a.Settings.Types) == 0 {
		return fmt.Errorf("no record types configured, set store.types in %s", configHint(a))
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("getting addr flag: %w", err)
	}

	server := httpapi.NewServer(exchangemem.New(a.Settings.Types), httpapi.Options{
		Types: a.Settings.Types,
		Token: a.Settings.ExchangeToken,
	})
	if err := server.Start(addr); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exchange listening on %s\n", server.URL())

	var serveErr error
	select {
	case <-cmd.Context().Done():
	case serveErr = <-server.Errors():
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}
