package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/wirestore/internal/core/domain"
	"github.com/custodia-labs/wirestore/internal/core/ports/driving"
)

// GetInput is the input schema for the record_get tool.
type GetInput struct {
	Type string `json:"type" jsonschema:"the record type"`
	ID   string `json:"id" jsonschema:"the record id"`
}

// GetOutput is the output schema for the record_get tool.
type GetOutput struct {
	Found bool `json:"found"`
	Data  any  `json:"data,omitempty"`
}

// SetInput is the input schema for the record_set tool.
type SetInput struct {
	Type string `json:"type" jsonschema:"the record type"`
	ID   string `json:"id,omitempty" jsonschema:"the record id (a new id is generated when empty)"`
	Data any    `json:"data" jsonschema:"the record payload, a JSON object"`
}

// SetOutput is the output schema for the record_set tool.
type SetOutput struct {
	ID string `json:"id"`
}

// DeleteInput is the input schema for the record_delete tool.
type DeleteInput struct {
	Type string   `json:"type" jsonschema:"the record type"`
	IDs  []string `json:"ids" jsonschema:"ids of the records to delete"`
}

// DeleteOutput is the output schema for the record_delete tool.
type DeleteOutput struct {
	Deleted int `json:"deleted"`
}

// ListInput is the input schema for the record_list tool.
type ListInput struct {
	Type string `json:"type" jsonschema:"the record type"`
}

// ListOutput is the output schema for the record_list tool.
type ListOutput struct {
	Records []RecordOutput `json:"records"`
	Count   int            `json:"count"`
}

// RecordOutput is a single live record.
type RecordOutput struct {
	ID       string `json:"id"`
	Data     any    `json:"data"`
	Unsynced bool   `json:"unsynced,omitempty"`
}

// SyncInput is the input schema for the sync_now tool.
type SyncInput struct{}

// StatusOutput describes the sync engine.
type StatusOutput struct {
	Running     bool   `json:"running"`
	Cursor      string `json:"cursor,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	LastErrorAt string `json:"last_error_at,omitempty"`
	LastSuccess string `json:"last_success,omitempty"`
	Cycles      int    `json:"cycles"`
	Dropped     int    `json:"dropped"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "record_get",
		Description: "Get a single record by type and id",
	}, s.handleGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "record_set",
		Description: "Create or replace a record; it is pushed on the next sync",
	}, s.handleSet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "record_delete",
		Description: "Delete records by id",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "record_list",
		Description: "List all live records of a type",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_now",
		Description: "Run a sync cycle against the remote exchange and report the status",
	}, s.handleSync)
}

func (s *Server) handleGet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetInput,
) (*mcp.CallToolResult, GetOutput, error) {
	svc, err := s.ports.record(input.Type)
	if err != nil {
		return nil, GetOutput{}, err
	}

	raw, ok, err := svc.Get(ctx, input.ID)
	if err != nil {
		return nil, GetOutput{}, err
	}
	if !ok {
		return nil, GetOutput{Found: false}, nil
	}

	data, err := decode(raw)
	if err != nil {
		return nil, GetOutput{}, err
	}
	return nil, GetOutput{Found: true, Data: data}, nil
}

func (s *Server) handleSet(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SetInput,
) (*mcp.CallToolResult, SetOutput, error) {
	svc, err := s.ports.record(input.Type)
	if err != nil {
		return nil, SetOutput{}, err
	}
	if _, ok := input.Data.(map[string]any); !ok {
		return nil, SetOutput{}, fmt.Errorf("%w: data must be a JSON object", domain.ErrInvalidInput)
	}

	id := input.ID
	if id == "" {
		id = uuid.New().String()
	}
	if err := svc.Set(ctx, id, input.Data); err != nil {
		return nil, SetOutput{}, err
	}
	return nil, SetOutput{ID: id}, nil
}

func (s *Server) handleDelete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteInput,
) (*mcp.CallToolResult, DeleteOutput, error) {
	svc, err := s.ports.record(input.Type)
	if err != nil {
		return nil, DeleteOutput{}, err
	}
	if err := svc.Delete(ctx, input.IDs...); err != nil {
		return nil, DeleteOutput{}, err
	}
	return nil, DeleteOutput{Deleted: len(input.IDs)}, nil
}

func (s *Server) handleList(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	out, err := s.listRecords(ctx, input.Type)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	err := s.ports.Sync.Sync(ctx, driving.ReasonManual)
	if err != nil && !errors.Is(err, domain.ErrSyncInProgress) {
		return nil, StatusOutput{}, err
	}
	return nil, statusOutput(s.ports.Sync.Status()), nil
}

// listRecords is shared by record_list and the records resource.
func (s *Server) listRecords(ctx context.Context, recordType string) (ListOutput, error) {
	svc, err := s.ports.record(recordType)
	if err != nil {
		return ListOutput{}, err
	}

	records, err := svc.Records(ctx)
	if err != nil {
		return ListOutput{}, err
	}

	out := ListOutput{
		Records: make([]RecordOutput, 0, len(records)),
		Count:   len(records),
	}
	for i := range records {
		data, err := decode(records[i].Data)
		if err != nil {
			return ListOutput{}, err
		}
		out.Records = append(out.Records, RecordOutput{
			ID:       records[i].ID,
			Data:     data,
			Unsynced: records[i].Unsynced,
		})
	}
	return out, nil
}

func statusOutput(st domain.SyncStatus) StatusOutput {
	return StatusOutput{
		Running:     st.Running,
		Cursor:      st.Cursor,
		LastError:   st.LastError,
		LastErrorAt: formatTime(st.LastErrorAt),
		LastSuccess: formatTime(st.LastSuccess),
		Cycles:      st.Cycles,
		Dropped:     st.Dropped,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func decode(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decoding record data: %w", err)
	}
	return v, nil
}
