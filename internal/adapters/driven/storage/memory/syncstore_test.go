package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

func TestNewSyncStateStore(t *testing.T) {
	store := NewSyncStateStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.states)
}

func TestSyncStateStore_Save_Success(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	now := time.Now()
	state := domain.SyncState{
		Key:      "todo::sync-cursor",
		Cursor:   "cursor-token-123",
		LastSync: now,
	}

	err := store.Save(ctx, state)
	require.NoError(t, err)

	saved, err := store.Get(ctx, "todo::sync-cursor")
	require.NoError(t, err)
	assert.Equal(t, "cursor-token-123", saved.Cursor)
	assert.Equal(t, now.Unix(), saved.LastSync.Unix())
}

func TestSyncStateStore_Save_Update(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "k", Cursor: "c1"}))
	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "k", Cursor: "c2"}))

	saved, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "c2", saved.Cursor)
}

func TestSyncStateStore_Get_NotFound(t *testing.T) {
	store := NewSyncStateStore()

	state, err := store.Get(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, state)
}

func TestSyncStateStore_Delete(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "a", Cursor: "1"}))
	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "b", Cursor: "2"}))

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "missing"))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	other, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", other.Cursor)
}

func TestSyncStateStore_NamespacesIsolated(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.SyncState{Key: domain.CursorKey("todo", ""), Cursor: "default"}))
	require.NoError(t, store.Save(ctx, domain.SyncState{Key: domain.CursorKey("todo", "team"), Cursor: "team"}))

	def, err := store.Get(ctx, domain.CursorKey("todo", ""))
	require.NoError(t, err)
	team, err := store.Get(ctx, domain.CursorKey("todo", "team"))
	require.NoError(t, err)

	assert.Equal(t, "default", def.Cursor)
	assert.Equal(t, "team", team.Cursor)
}

func TestSyncStateStore_Save_RequiresKey(t *testing.T) {
	store := NewSyncStateStore()

	err := store.Save(context.Background(), domain.SyncState{Cursor: "c"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, store.Keys())
}

func TestSyncStateStore_Save_EmptyCursorClears(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "k", Cursor: "c1"}))

	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "k"}))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncStateStore_Save_StampsLastSync(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	store.now = func() time.Time { return fixed }

	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "k", Cursor: "c1"}))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, fixed.Equal(got.LastSync))
	assert.Equal(t, time.UTC, got.LastSync.Location())
}

func TestSyncStateStore_Get_ReturnsCopy(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "k", Cursor: "c1"}))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	got.Cursor = "changed"

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "c1", again.Cursor)
}

func TestSyncStateStore_Fault(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()
	cause := errors.New("disk full")
	store.SetFault(func(op, key string) error {
		if op == "save" {
			return cause
		}
		return nil
	})

	err := store.Save(ctx, domain.SyncState{Key: "k", Cursor: "c1"})
	assert.ErrorIs(t, err, cause)

	store.SetFault(nil)
	require.NoError(t, store.Save(ctx, domain.SyncState{Key: "k", Cursor: "c1"}))
	assert.Equal(t, []string{"k"}, store.Keys())
}

func TestSyncStateStore_Concurrency_SaveAndGet(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%5)
			_ = store.Save(ctx, domain.SyncState{Key: key, Cursor: fmt.Sprintf("c-%d", n)})
			_, _ = store.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		_, err := store.Get(ctx, fmt.Sprintf("key-%d", i))
		assert.NoError(t, err)
	}
}
