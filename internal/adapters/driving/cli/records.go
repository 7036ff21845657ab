package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
	"github.com/custodia-labs/wirestore/internal/core/services"
)

var setCmd = &cobra.Command{
	Use:   "set <type> [id] <json>",
	Short: "Create or replace a record",
	Long: `Writes a record locally and marks it for the next sync.

The payload is a JSON object given as the last argument, or "-" to read it
from stdin. When the id is omitted a random one is generated and printed.

Examples:
  wirestore set todo t1 '{"title":"buy milk","done":false}'
  echo '{"title":"call bob"}' | wirestore set todo -`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSet,
}

var getCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Print a record",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <type> <id>...",
	Short: "Delete records",
	Long: `Soft-deletes records locally. The deletion is pushed on the next sync so
other clients learn about it.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDelete,
}

var listCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List the live records of a type",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func init() {
	setCmd.Flags().Bool("sync", false, "sync immediately after writing")
	deleteCmd.Flags().Bool("sync", false, "sync immediately after deleting")
	rootCmd.AddCommand(setCmd, getCmd, deleteCmd, listCmd)
}

// listedRecord is the list output shape.
type listedRecord struct {
	ID       string          `json:"id"`
	Data     json.RawMessage `json:"data"`
	Unsynced bool            `json:"unsynced,omitempty"`
}

func runSet(cmd *cobra.Command, args []string) error {
	recordType, id, payload := args[0], "", args[len(args)-1]
	if len(args) == 3 {
		id = args[1]
	}

	data, err := readPayload(cmd.InOrStdin(), payload)
	if err != nil {
		return err
	}
	generated := id == ""
	if generated {
		id = uuid.New().String()
	}

	_, session, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer session.Close()

	c, err := session.Collection(recordType)
	if err != nil {
		return err
	}
	if err := c.Set(cmd.Context(), id, data); err != nil {
		return fmt.Errorf("set %s/%s: %w", recordType, id, err)
	}
	if generated {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}

	return syncIfRequested(cmd, session)
}

func runGet(cmd *cobra.Command, args []string) error {
	_, session, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer session.Close()

	c, err := session.Collection(args[0])
	if err != nil {
		return err
	}
	data, ok, err := c.Get(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s/%s", domain.ErrNotFound, args[0], args[1])
	}
	return printJSON(cmd.OutOrStdout(), data)
}

func runDelete(cmd *cobra.Command, args []string) error {
	_, session, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer session.Close()

	c, err := session.Collection(args[0])
	if err != nil {
		return err
	}
	if err := c.Delete(cmd.Context(), args[1:]...); err != nil {
		return err
	}
	cmd.Printf("Deleted %d record(s).\n", len(args)-1)

	return syncIfRequested(cmd, session)
}

func runList(cmd *cobra.Command, args []string) error {
	_, session, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer session.Close()

	c, err := session.Collection(args[0])
	if err != nil {
		return err
	}
	records, err := c.Records(cmd.Context())
	if err != nil {
		return err
	}

	out := make([]listedRecord, 0, len(records))
	for _, r := range sortedByID(records) {
		out = append(out, listedRecord{ID: r.ID, Data: r.Data, Unsynced: r.Unsynced})
	}
	return printJSON(cmd.OutOrStdout(), out)
}

// readPayload decodes the JSON object argument, or stdin for "-".
func readPayload(stdin io.Reader, arg string) (map[string]any, error) {
	raw := []byte(arg)
	if arg == "-" {
		var err error
		raw, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &data); err != nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object: %w", domain.ErrInvalidInput, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: payload must be a JSON object", domain.ErrInvalidInput)
	}
	return data, nil
}

func syncIfRequested(cmd *cobra.Command, session *services.Session) error {
	doSync, _ := cmd.Flags().GetBool("sync")
	if !doSync {
		return nil
	}
	if err := session.Engine().Sync(cmd.Context(), driving.ReasonManual); err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return nil
		}
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Println("Synced.")
	return nil
}

func sortedByID(records []domain.Record) []domain.Record {
	out := make([]domain.Record, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
