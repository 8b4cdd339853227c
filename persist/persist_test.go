package persist_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-clinic-client/persist"
	"github.com/jrsteele09/go-clinic-client/users"
	"github.com/stretchr/testify/require"
)

// exerciseKV runs the behaviour every KV implementation must share.
func exerciseKV(t *testing.T, kv persist.KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, kv.Set(ctx, "a", "1"))
	require.NoError(t, kv.Set(ctx, "b", "2"))
	require.NoError(t, kv.Set(ctx, "a", "3"))

	v, ok, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "3", v)

	require.NoError(t, kv.Remove(ctx, "a"))
	require.NoError(t, kv.Remove(ctx, "a"), "removing a missing key is not an error")

	_, ok, err = kv.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err = kv.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, persist.NewMemoryKV())
}

func TestFileKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	kv, err := persist.NewFileKV(path)
	require.NoError(t, err)

	exerciseKV(t, kv)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	t.Run("survives a new instance", func(t *testing.T) {
		again, err := persist.NewFileKV(path)
		require.NoError(t, err)
		v, ok, err := again.Get(context.Background(), "b")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "2", v)
	})

	t.Run("file removed once empty", func(t *testing.T) {
		require.NoError(t, kv.Remove(context.Background(), "b"))
		_, err := os.Stat(path)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("{"), 0600))
		_, _, err := kv.Get(context.Background(), "b")
		require.Error(t, err)
	})
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	kv := persist.NewMemoryKV()

	rec, err := persist.LoadRecord(ctx, kv)
	require.NoError(t, err)
	require.Nil(t, rec)

	user := &users.User{ID: "user-1", Email: "d@clinic.test", Roles: []users.RoleType{users.RoleDoctor}}
	require.NoError(t, persist.SaveRecord(ctx, kv, persist.Record{AccessToken: "tok", User: user}))

	rec, err = persist.LoadRecord(ctx, kv)
	require.NoError(t, err)
	require.Equal(t, "tok", rec.AccessToken)
	require.Equal(t, user, rec.User)

	require.NoError(t, persist.SaveAccessToken(ctx, kv, "tok-2"))
	rec, err = persist.LoadRecord(ctx, kv)
	require.NoError(t, err)
	require.Equal(t, "tok-2", rec.AccessToken)

	t.Run("token without user is no record", func(t *testing.T) {
		require.NoError(t, kv.Remove(ctx, persist.KeyUser))
		rec, err := persist.LoadRecord(ctx, kv)
		require.NoError(t, err)
		require.Nil(t, rec)
	})

	t.Run("corrupt user", func(t *testing.T) {
		require.NoError(t, kv.Set(ctx, persist.KeyUser, "{not json"))
		_, err := persist.LoadRecord(ctx, kv)
		require.ErrorIs(t, err, persist.ErrCorruptRecord)
	})

	require.NoError(t, persist.ClearRecord(ctx, kv))
	require.Empty(t, kv.Snapshot())
}
