package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change settings stored in config.toml.

Keys:
  store.name            store name (default "default")
  store.namespace       namespace partitioning local data and sync
  store.types           record types, comma separated
  store.data_dir        database directory
  sync.exchange_url     exchange endpoint; empty keeps the store local
  sync.token            bearer token sent to the exchange
  sync.periodic         false, true (default interval) or milliseconds
  sync.timeout_ms       exchange call timeout
  sync.rate_per_second  exchange request rate limit
  notifier.debounce_ms  delay before a write triggers a sync
  log.file              rotating log file
  log.verbose           debug logging`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a configuration value",
	Long: `Sets a configuration value. Booleans and numbers are stored typed;
store.types takes a comma separated list. When the value of sync.token is
omitted it is read from the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	s := a.Settings

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("  Config file:   %s\n", configHint(a))
	cmd.Println()
	cmd.Println("[Store]")
	cmd.Printf("  Name:          %s\n", s.StoreName)
	cmd.Printf("  Namespace:     %s\n", orNone(s.Namespace))
	cmd.Printf("  Types:         %s\n", orNone(strings.Join(s.Types, ", ")))
	cmd.Printf("  Data dir:      %s\n", orNone(s.DataDir))
	cmd.Println()
	cmd.Println("[Sync]")
	cmd.Printf("  Exchange:      %s\n", orNone(s.ExchangeURL))
	cmd.Printf("  Token:         %s\n", maskToken(s.ExchangeToken))
	cmd.Printf("  Periodic:      %v\n", s.Periodic)
	cmd.Printf("  Timeout:       %s\n", s.ExchangeTimeout)
	cmd.Printf("  Rate limit:    %g/s\n", s.RatePerSecond)
	cmd.Printf("  Debounce:      %s\n", s.NotifierDebounce)

	if err := s.Validate(); err != nil {
		cmd.Println()
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	if a.Config == nil {
		return errors.New("config store not available")
	}

	key := args[0]
	var raw string
	switch {
	case len(args) == 2:
		raw = args[1]
	case key == "sync.token":
		cmd.Print("Token: ")
		raw = readSecret(cmd.InOrStdin())
		cmd.Println()
	default:
		return fmt.Errorf("%w: value required for %s", domain.ErrInvalidInput, key)
	}

	if err := a.Config.Set(key, parseConfigValue(key, raw)); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	cmd.Printf("Set %s.\n", key)
	return nil
}

// parseConfigValue stores booleans and numbers typed so TOML keeps them
// unquoted.
func parseConfigValue(key, raw string) any {
	if key == "store.types" {
		parts := strings.Split(raw, ",")
		types := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				types = append(types, p)
			}
		}
		return types
	}
	// Tokens and names stay strings even when they look numeric.
	if key == "sync.token" || key == "store.name" || key == "store.namespace" {
		return raw
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(stdin io.Reader) string {
	// Try to read without echo
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(secret)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
