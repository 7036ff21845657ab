package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise with the remote exchange",
	Long: `Runs one push-pull cycle: local changes are pushed to the exchange and
changes from other clients are pulled and applied.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status and recent cycles",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntP("limit", "l", 5, "number of recent cycles to show")
	rootCmd.AddCommand(syncCmd, statusCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	a, session, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer session.Close()

	if a.Settings.ExchangeURL == "" {
		return fmt.Errorf("no exchange configured, set sync.exchange_url in %s", configHint(a))
	}

	engine := session.Engine()
	if err := engine.LoadCursor(cmd.Context()); err != nil {
		return err
	}

	cmd.Println("Synchronising...")
	err = engine.Sync(cmd.Context(), driving.ReasonManual)
	if errors.Is(err, domain.ErrSyncInProgress) {
		cmd.Println("A sync is already running.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if a.History != nil {
		results, herr := a.History.History(cmd.Context(), a.Settings.CursorKey(), 1)
		if herr == nil && len(results) > 0 {
			r := results[0]
			cmd.Printf("Pushed %d, updated %d, purged %d in %s.\n",
				r.Pushed, r.Updated, r.Purged, r.Duration().Round(time.Millisecond))
			return nil
		}
	}
	cmd.Println("Sync complete.")
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, session, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer session.Close()

	engine := session.Engine()
	if err := engine.LoadCursor(cmd.Context()); err != nil {
		return err
	}
	st := engine.Status()

	exchange := a.Settings.ExchangeURL
	if exchange == "" {
		exchange = "(local only)"
	}
	namespace := a.Settings.Namespace
	if namespace == "" {
		namespace = "(default)"
	}
	periodic, perr := domain.ResolvePeriodicSync(a.Settings.Periodic)
	periodicText := periodic.String()
	if perr != nil {
		periodicText = "invalid: " + perr.Error()
	}

	unsynced, err := session.Store().ListUnsynced(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Println("Sync Status")
	cmd.Println("===========")
	cmd.Printf("  Store:     %s\n", a.Settings.StoreName)
	cmd.Printf("  Namespace: %s\n", namespace)
	cmd.Printf("  Exchange:  %s\n", exchange)
	cmd.Printf("  Periodic:  %s\n", periodicText)
	cmd.Printf("  Cursor:    %s\n", orNone(st.Cursor))
	cmd.Printf("  Pending:   %d unsynced record(s)\n", len(unsynced))

	if a.History == nil {
		return nil
	}
	limit, _ := cmd.Flags().GetInt("limit")
	results, err := a.History.History(cmd.Context(), a.Settings.CursorKey(), limit)
	if err != nil {
		return err
	}
	cmd.Println()
	if len(results) == 0 {
		cmd.Println("No sync cycles recorded.")
		return nil
	}
	cmd.Println("Recent cycles:")
	for _, r := range results {
		outcome := "ok"
		if !r.Success {
			outcome = "failed: " + r.Error
		}
		cmd.Printf("  %s  %-8s pushed=%d updated=%d purged=%d  %s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Reason, r.Pushed, r.Updated, r.Purged, outcome)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
