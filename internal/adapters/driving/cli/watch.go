package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wirestore/internal/adapters/driving/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <type>",
	Short: "Watch the records of a type live",
	Long: `Opens a terminal view of one record type that redraws whenever the
records change, locally or through sync. Sync runs in the background while
the view is open.

Controls:
  ↑/k, ↓/j - Navigate records
  s        - Sync now
  d        - Delete selected record
  r        - Reload
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	a, session, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer session.Close()

	c, err := session.Collection(args[0])
	if err != nil {
		return err
	}

	followConfig(cmd.Context(), a, session)

	app, err := tui.NewApp(&tui.Ports{Records: c, Sync: session.Engine()})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
