package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wirestore/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/wirestore/internal/core/domain"
)

const testDB = "wire-store:test:"

func newTestRecordStore(t *testing.T, types ...string) (*RecordStore, *memory.Opener, *ChangeBus) {
	t.Helper()
	if len(types) == 0 {
		types = []string{"todo", "note"}
	}
	opener := memory.NewOpener()
	bus := NewChangeBus(types)
	store := NewRecordStore(opener, testDB, bus)
	t.Cleanup(func() { _ = store.Close() })
	return store, opener, bus
}

func rec(id, recordType, data string, unsynced bool) domain.Record {
	return domain.Record{ID: id, Type: recordType, Data: json.RawMessage(data), Unsynced: unsynced}
}

func TestRecordStore_PutTouchesWrittenTypesOnce(t *testing.T) {
	store, _, bus := newTestRecordStore(t)
	ctx := context.Background()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	todos := bus.Watch(watchCtx, "todo")

	require.NoError(t, store.Put(ctx,
		rec("a", "todo", `{}`, true),
		rec("b", "todo", `{}`, true),
	))

	assert.NotEmpty(t, bus.Observe("todo"))
	assert.Equal(t, "", bus.Observe("note"))
	assert.Len(t, todos, 1)

	got, err := store.GetRaw(ctx, "b")
	require.NoError(t, err)
	assert.True(t, got.Unsynced)
}

func TestRecordStore_PutFailureNamesOperation(t *testing.T) {
	store, opener, bus := newTestRecordStore(t)
	ctx := context.Background()
	cause := errors.New("disk full")
	opener.Database(testDB).SetFault(func(op, id string) error {
		if op == "put" && id == "b" {
			return cause
		}
		return nil
	})

	err := store.Put(ctx, rec("a", "todo", `{}`, true), rec("b", "todo", `{}`, true))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorageIO)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "put")
	assert.Equal(t, "", bus.Observe("todo"))

	// The store stays usable.
	opener.Database(testDB).SetFault(nil)
	require.NoError(t, store.Put(ctx, rec("b", "todo", `{}`, true)))
}

func TestRecordStore_PurgeIgnoresMissingIDs(t *testing.T) {
	store, _, bus := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, rec("a", "note", `{}`, false)))
	before := bus.Observe("note")

	require.NoError(t, store.Purge(ctx, "a", "missing"))

	_, err := store.GetRaw(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotEqual(t, before, bus.Observe("note"))
	assert.Equal(t, "", bus.Observe("todo"))
}

func TestRecordStore_PurgeNothingDoesNotTouch(t *testing.T) {
	store, _, bus := newTestRecordStore(t)

	require.NoError(t, store.Purge(context.Background(), "missing"))
	assert.Equal(t, "", bus.Observe("todo"))
}

func TestRecordStore_ApplyRemoteHonoursReplace(t *testing.T) {
	store, _, bus := newTestRecordStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx,
		rec("keep", "todo", `{"v":"local"}`, true),
		rec("over", "todo", `{"v":"old"}`, false),
		rec("gone", "note", `{}`, false),
		rec("stay", "note", `{}`, true),
	))
	noteBefore := bus.Observe("note")

	refused := map[string]bool{"keep": true, "stay": true}
	var offered []string
	written, purged, err := store.ApplyRemote(ctx,
		[]domain.Record{rec("keep", "todo", `{"v":"remote"}`, false), rec("over", "todo", `{"v":"new"}`, false)},
		[]string{"gone", "stay", "missing"},
		func(id string, current *domain.Record) bool {
			offered = append(offered, id)
			if id == "missing" {
				assert.Nil(t, current)
			}
			return !refused[id]
		},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"keep", "over", "gone", "stay", "missing"}, offered)
	require.Len(t, written, 1)
	assert.Equal(t, "over", written[0].ID)
	assert.Equal(t, []string{"gone", "missing"}, purged)

	got, err := store.GetRaw(ctx, "keep")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"local"}`, string(got.Data))
	assert.True(t, got.Unsynced)

	got, err = store.GetRaw(ctx, "over")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"new"}`, string(got.Data))

	_, err = store.GetRaw(ctx, "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetRaw(ctx, "stay")
	assert.NoError(t, err)
	assert.NotEqual(t, noteBefore, bus.Observe("note"))
}

func TestRecordStore_ApplyRemoteNothingDoesNotTouch(t *testing.T) {
	store, _, bus := newTestRecordStore(t)

	written, purged, err := store.ApplyRemote(context.Background(), nil, nil, func(string, *domain.Record) bool { return true })
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.Empty(t, purged)
	assert.Equal(t, "", bus.Observe("todo"))
}

func TestRecordStore_ListUnsynced(t *testing.T) {
	store, _, _ := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx,
		rec("a", "todo", `{}`, true),
		rec("b", "note", `{}`, false),
		domain.Tombstone("c", "note"),
	))

	unsynced, err := store.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 2)
	assert.Equal(t, "a", unsynced[0].ID)
	assert.Equal(t, "c", unsynced[1].ID)
	assert.True(t, unsynced[1].Deleted)
}

func TestRecordStore_ConcurrentOpenIsShared(t *testing.T) {
	store, opener, _ := newTestRecordStore(t)
	release := make(chan struct{})
	var attempts atomic.Int32
	opener.SetOpenHook(func(context.Context, string) error {
		attempts.Add(1)
		<-release
		return nil
	})

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.ListUnsynced(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return attempts.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, opener.Opens())
}

func TestRecordStore_FailedOpenIsRetried(t *testing.T) {
	store, opener, _ := newTestRecordStore(t)
	ctx := context.Background()
	blocked := errors.New("blocked by another handle")
	opener.SetOpenHook(func(context.Context, string) error { return blocked })

	err := store.Put(ctx, rec("a", "todo", `{}`, true))
	assert.ErrorIs(t, err, domain.ErrStorageOpen)
	assert.ErrorIs(t, err, blocked)

	_, err = store.GetRaw(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrStorageOpen)

	opener.SetOpenHook(nil)
	require.NoError(t, store.Put(ctx, rec("a", "todo", `{}`, true)))
	assert.Equal(t, 1, opener.Opens())
}

func TestRecordStore_CloseReopens(t *testing.T) {
	store, opener, _ := newTestRecordStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, rec("a", "todo", `{"v":1}`, true)))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	got, err := store.GetRaw(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got.Data))
	assert.Equal(t, 2, opener.Opens())
}

func TestRecordStore_WriteHooksRunInOrder(t *testing.T) {
	store, _, _ := newTestRecordStore(t)
	ctx := context.Background()

	var order []string
	store.AddWriteHook(func(_ context.Context, r *domain.Record) error {
		order = append(order, "first:"+r.ID)
		r.Data = json.RawMessage(`{"hooked":true}`)
		return nil
	})
	store.AddWriteHook(func(_ context.Context, r *domain.Record) error {
		order = append(order, "second:"+r.ID)
		return nil
	})

	original := rec("a", "todo", `{}`, true)
	require.NoError(t, store.Put(ctx, original))

	assert.Equal(t, []string{"first:a", "second:a"}, order)
	assert.Equal(t, `{}`, string(original.Data))
	got, err := store.GetRaw(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"hooked":true}`, string(got.Data))
}

func TestRecordStore_FailingWriteHookAbortsPut(t *testing.T) {
	store, _, _ := newTestRecordStore(t)
	ctx := context.Background()
	rejected := errors.New("rejected")
	store.AddWriteHook(func(context.Context, *domain.Record) error { return rejected })

	err := store.Put(ctx, rec("a", "todo", `{}`, true))
	assert.ErrorIs(t, err, rejected)

	_, err = store.GetRaw(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
