package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/keys"
)

func TestStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "state.db"))
	require.NoError(t, err)
	defer s.Close()

	total := int64(1000)
	refreshed := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	st := keys.State{
		Loading:         true,
		Search:          "user:*",
		Total:           &total,
		Scanned:         500,
		Cursor:          "500",
		Keys:            []connection.KeyInfo{{Name: connection.RedisString{0xff, 'a'}, Type: "hash"}},
		ShardsMeta:      map[string]keys.ShardMeta{"": {Cursor: "500", Total: 1000, Scanned: 500}},
		LastRefreshTime: &refreshed,
	}

	require.NoError(t, s.Save(ctx, "db-1", st))
	got, err := s.Load(ctx, "db-1")
	require.NoError(t, err)

	want := st
	want.Loading = false
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("快照内容不一致 (-want +got):\n%s", diff)
	}

	st.Cursor = "0"
	require.NoError(t, s.Save(ctx, "db-1", st))
	got, err = s.Load(ctx, "db-1")
	require.NoError(t, err)
	require.Equal(t, "0", got.Cursor)

	require.NoError(t, s.Delete(ctx, "db-1"))
	_, err = s.Load(ctx, "db-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RestoreIntoSession(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	total := int64(2)
	require.NoError(t, s.Save(ctx, "db", keys.State{
		Total:  &total,
		Cursor: "7",
		Keys:   []connection.KeyInfo{{Name: connection.RedisString("a")}},
	}))
	saved, err := s.Load(ctx, "db")
	require.NoError(t, err)

	store := keys.NewStore()
	store.Restore(saved)
	require.Equal(t, "7", store.Snapshot().Cursor)
	require.Len(t, store.Snapshot().Keys, 1)
}
