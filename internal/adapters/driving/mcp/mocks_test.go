package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

// mockRecordService is an in-memory driving.RecordService.
type mockRecordService struct {
	mu         sync.Mutex
	recordType string
	records    map[string]json.RawMessage
	err        error
}

func newMockRecordService(recordType string) *mockRecordService {
	return &mockRecordService{recordType: recordType, records: make(map[string]json.RawMessage)}
}

func (m *mockRecordService) Type() string { return m.recordType }

func (m *mockRecordService) Set(_ context.Context, id string, data any) error {
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = raw
	return nil
}

func (m *mockRecordService) Delete(_ context.Context, ids ...string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	return nil
}

func (m *mockRecordService) Get(_ context.Context, id string) (json.RawMessage, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.records[id]
	return raw, ok, nil
}

func (m *mockRecordService) All(ctx context.Context) ([]json.RawMessage, error) {
	records, err := m.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]json.RawMessage, len(records))
	for i := range records {
		out[i] = records[i].Data
	}
	return out, nil
}

func (m *mockRecordService) Records(_ context.Context) ([]domain.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Record, 0, len(m.records))
	for id, raw := range m.records {
		out = append(out, domain.Record{ID: id, Type: m.recordType, Data: raw, Unsynced: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRecordService) Observe() string { return "" }

func (m *mockRecordService) Watch(ctx context.Context) <-chan string {
	ch := make(chan string)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

// mockSyncEngine is a mock implementation of driving.SyncEngine.
type mockSyncEngine struct {
	status  domain.SyncStatus
	err     error
	reasons []string
}

func (m *mockSyncEngine) Sync(_ context.Context, reason string) error {
	m.reasons = append(m.reasons, reason)
	if m.err == nil {
		m.status.Cycles++
	}
	return m.err
}

func (m *mockSyncEngine) Trigger(reason string) {
	_ = m.Sync(context.Background(), reason)
}

func (m *mockSyncEngine) Status() domain.SyncStatus { return m.status }

func (m *mockSyncEngine) OnStatus(func()) func() { return func() {} }
