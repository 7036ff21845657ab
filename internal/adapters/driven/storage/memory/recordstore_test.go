package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wirestore/internal/core/domain"
)

func todo(id, data string, unsynced bool) domain.Record {
	return domain.Record{ID: id, Type: "todo", Data: json.RawMessage(data), Unsynced: unsynced}
}

func TestRecordStore_PutGet(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, todo("1", `{"a":1}`, true)))

	rec, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "todo", rec.Type)
	assert.True(t, rec.Unsynced)
	assert.JSONEq(t, `{"a":1}`, string(rec.Data))
}

func TestRecordStore_Get_NotFound(t *testing.T) {
	store := NewRecordStore()

	rec, err := store.Get(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, rec)
}

func TestRecordStore_ReturnedDataIsCopy(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	data := json.RawMessage(`{"a":1}`)
	require.NoError(t, store.Put(ctx, domain.Record{ID: "1", Type: "todo", Data: data}))

	data[2] = 'b'
	rec, err := store.Get(ctx, "1")
	require.NoError(t, err)
	rec.Data[2] = 'c'

	again, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(again.Data))
}

func TestRecordStore_ListByTypeAndUnsynced(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, todo("2", `{}`, true)))
	require.NoError(t, store.Put(ctx, todo("1", `{}`, false)))
	require.NoError(t, store.Put(ctx, domain.Record{ID: "n1", Type: "note", Data: json.RawMessage(`{}`), Unsynced: true}))
	require.NoError(t, store.Put(ctx, domain.Tombstone("3", "todo")))

	todos, err := store.ListByType(ctx, "todo")
	require.NoError(t, err)
	require.Len(t, todos, 3)
	assert.Equal(t, "1", todos[0].ID)
	assert.True(t, todos[2].Deleted)

	unsynced, err := store.ListUnsynced(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, r := range unsynced {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"2", "3", "n1"}, ids)
}

func TestRecordStore_UnsyncedIndexFollowsWrites(t *testing.T) {
	opener := NewOpener()
	ctx := context.Background()
	h, err := opener.Open(ctx, "db")
	require.NoError(t, err)
	db := opener.Database("db")

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, h.Put(ctx, todo(id, `{}`, false)))
	}
	assert.Equal(t, 0, db.UnsyncedLen())

	require.NoError(t, h.Put(ctx, todo("b", `{"v":1}`, true)))
	require.NoError(t, h.Put(ctx, todo("c", `{}`, true)))
	assert.Equal(t, 2, db.UnsyncedLen())

	// Syncing clears the marker, deleting drops the row.
	require.NoError(t, h.Put(ctx, todo("b", `{"v":1}`, false)))
	require.NoError(t, h.Delete(ctx, "c"))
	require.NoError(t, h.Put(ctx, domain.Tombstone("d", "todo")))
	assert.Equal(t, 1, db.UnsyncedLen())

	unsynced, err := h.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, "d", unsynced[0].ID)
	assert.True(t, unsynced[0].Deleted)
	assert.Equal(t, 3, db.Len())
}

func TestRecordStore_Delete(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, todo("1", `{}`, false)))

	require.NoError(t, store.Delete(ctx, "1"))
	require.NoError(t, store.Delete(ctx, "never-existed"))

	_, err := store.Get(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_ClosedHandle(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Put(ctx, todo("1", `{}`, false)), domain.ErrStoreClosed)
	_, err := store.Get(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrStoreClosed)
	_, err = store.ListUnsynced(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreClosed)
}

func TestRecordStore_Fault(t *testing.T) {
	store := NewRecordStore()
	ctx := context.Background()
	boom := errors.New("boom")
	store.db.SetFault(func(op, id string) error {
		if op == "put" && id == "bad" {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, store.Put(ctx, todo("bad", `{}`, false)), boom)
	assert.NoError(t, store.Put(ctx, todo("good", `{}`, false)))

	store.db.SetFault(nil)
	assert.NoError(t, store.Put(ctx, todo("bad", `{}`, false)))
}

func TestOpener_ReopenSeesData(t *testing.T) {
	opener := NewOpener()
	ctx := context.Background()
	name := domain.DatabaseName("todo", "")

	first, err := opener.Open(ctx, name)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, todo("1", `{}`, true)))
	require.NoError(t, first.Close())

	second, err := opener.Open(ctx, name)
	require.NoError(t, err)
	rec, err := second.Get(ctx, "1")
	require.NoError(t, err)
	assert.True(t, rec.Unsynced)

	assert.Equal(t, 2, opener.Opens())
	assert.Equal(t, 1, opener.Database(name).Len())
}

func TestOpener_NamesIsolated(t *testing.T) {
	opener := NewOpener()
	ctx := context.Background()

	a, err := opener.Open(ctx, domain.DatabaseName("todo", "a"))
	require.NoError(t, err)
	b, err := opener.Open(ctx, domain.DatabaseName("todo", "b"))
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, todo("1", `{}`, true)))

	_, err = b.Get(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpener_OpenHookFailure(t *testing.T) {
	opener := NewOpener()
	boom := errors.New("blocked")
	opener.SetOpenHook(func(context.Context, string) error { return boom })

	store, err := opener.Open(context.Background(), "x")

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, store)
	assert.Zero(t, opener.Opens())
}
