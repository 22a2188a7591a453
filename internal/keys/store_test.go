package keys

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"RedisVSCode-Webview/internal/connection"
)

func TestStore_CompleteFirstPageReplacesListing(t *testing.T) {
	s := NewStore()
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	s.CompleteFirstPage(Page{Cursor: "10", Total: int64p(30), Scanned: 10, Keys: makeKeys("old:", 10)})
	page := Page{Cursor: "500", Total: int64p(1000), Scanned: 500, Keys: makeKeys("k:", 3)}
	s.CompleteFirstPage(page)

	st := s.Snapshot()
	if diff := cmp.Diff(page.Keys, st.Keys); diff != "" {
		t.Fatalf("首页应整体替换列表 (-want +got):\n%s", diff)
	}
	require.Equal(t, "500", st.Cursor)
	require.Equal(t, int64(1000), *st.Total)
	require.Equal(t, int64(500), st.Scanned)
	require.Equal(t, 3, st.PreviousResultCount)
	require.Equal(t, now, *st.LastRefreshTime)
}

func TestStore_CompleteNextPageAppends(t *testing.T) {
	s := NewStore()
	s.CompleteFirstPage(Page{Cursor: "2", Total: int64p(4), Scanned: 2, Keys: makeKeys("a:", 2)})
	refreshed := s.Snapshot().LastRefreshTime

	s.CompleteNextPage(Page{Cursor: "0", Total: int64p(4), Scanned: 4, Keys: makeKeys("b:", 2)})

	st := s.Snapshot()
	require.Len(t, st.Keys, 4)
	require.Equal(t, "a:0", string(st.Keys[0].Name))
	require.Equal(t, "b:1", string(st.Keys[3].Name))
	require.Equal(t, "0", st.Cursor)
	require.Equal(t, int64(4), st.Scanned)
	require.Equal(t, 2, st.PreviousResultCount)
	require.Equal(t, refreshed, st.LastRefreshTime, "追加页不应刷新 lastRefreshTime")
}

func TestStore_RemoveKeyPresent(t *testing.T) {
	s := NewStore()
	keys := makeKeys("k:", 3)
	keys = append(keys, connection.KeyInfo{Name: connection.RedisString("k:1")})
	s.CompleteFirstPage(Page{Cursor: "0", Total: int64p(4), Scanned: 4, Keys: keys})

	require.True(t, s.RemoveKey(connection.RedisString("k:1")))

	st := s.Snapshot()
	require.Len(t, st.Keys, 3)
	require.Equal(t, int64(3), *st.Total)
	require.Equal(t, int64(3), st.Scanned)
	// only the first match goes
	require.Equal(t, "k:1", string(st.Keys[2].Name))
}

func TestStore_RemoveKeyAbsentIsNoop(t *testing.T) {
	s := NewStore()
	s.CompleteFirstPage(Page{Cursor: "0", Total: int64p(2), Scanned: 2, Keys: makeKeys("k:", 2)})
	before := s.Snapshot()

	require.False(t, s.RemoveKey(connection.RedisString("missing")))
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Fatalf("删除不存在的 Key 不应改变状态 (-before +after):\n%s", diff)
	}
}

func TestStore_RemoveKeyComparesBytes(t *testing.T) {
	s := NewStore()
	binary := connection.RedisString{0xff, 0xfe}
	replaced := connection.RedisString("\ufffd\ufffd")
	list := []connection.KeyInfo{{Name: replaced}, {Name: binary}}
	s.CompleteFirstPage(Page{Cursor: "0", Total: int64p(2), Scanned: 2, Keys: list})

	require.True(t, s.RemoveKey(connection.RedisString{0xff, 0xfe}))
	st := s.Snapshot()
	require.Len(t, st.Keys, 1)
	require.Equal(t, "\ufffd\ufffd", string(st.Keys[0].Name))
}

func TestStore_RemoveKeyTotalFloorsAndNull(t *testing.T) {
	s := NewStore()
	s.CompleteFirstPage(Page{Cursor: "0", Total: int64p(0), Scanned: 1, Keys: makeKeys("k:", 1)})
	require.True(t, s.RemoveKey(connection.RedisString("k:0")))
	require.Equal(t, int64(0), *s.Snapshot().Total)

	s.CompleteFirstPage(Page{Cursor: "0", Total: nil, Scanned: 1, Keys: makeKeys("k:", 1)})
	require.True(t, s.RemoveKey(connection.RedisString("k:0")))
	require.Nil(t, s.Snapshot().Total)
}

func TestStore_LoadingFlagSurvivesSupersededScan(t *testing.T) {
	s := NewStore()
	s.BeginScan()
	s.BeginScan()
	s.EndScan()
	require.True(t, s.Snapshot().Loading, "仍有请求在途时 loading 应保持")
	s.EndScan()
	require.False(t, s.Snapshot().Loading)
	s.EndScan()
	require.False(t, s.Snapshot().Loading)
}

func TestStore_SubscribersSeeEveryTransition(t *testing.T) {
	s := NewStore()
	var seen []bool
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st.Loading) })

	s.BeginScan()
	s.EndScan()
	unsubscribe()
	s.BeginScan()

	require.Equal(t, []bool{true, false}, seen)
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := NewStore()
	s.CompleteFirstPage(Page{Cursor: "0", Total: int64p(1), Scanned: 1, Keys: makeKeys("k:", 1)})

	snap := s.Snapshot()
	snap.Keys[0].Name = connection.RedisString("changed")
	*snap.Total = 99

	st := s.Snapshot()
	require.Equal(t, "k:0", string(st.Keys[0].Name))
	require.Equal(t, int64(1), *st.Total)
}

func TestStore_SelectKeyIgnoresSameKey(t *testing.T) {
	s := NewStore()
	require.True(t, s.SelectKey(connection.RedisString("a")))
	require.False(t, s.SelectKey(connection.RedisString("a")))
	require.True(t, s.SelectKey(connection.RedisString("b")))
}

func TestStore_RestoreKeepsBusyFlagsLive(t *testing.T) {
	s := NewStore()
	s.BeginScan()
	s.Restore(State{Cursor: "", Loading: false, Deleting: true, Keys: makeKeys("k:", 2), Total: int64p(5)})

	st := s.Snapshot()
	require.True(t, st.Loading)
	require.False(t, st.Deleting)
	require.Equal(t, "0", st.Cursor)
	require.Len(t, st.Keys, 2)
}

func TestStore_ResetKeepsCriteria(t *testing.T) {
	s := NewStore()
	s.SetFilter("hash")
	s.SetSearch("user:*")
	s.CompleteFirstPage(Page{Cursor: "7", Total: int64p(9), Scanned: 7, Keys: makeKeys("k:", 2)})

	s.Reset()
	st := s.Snapshot()
	require.Equal(t, "hash", st.Filter)
	require.Equal(t, "user:*", st.Search)
	require.Empty(t, st.Keys)
	require.Equal(t, "0", st.Cursor)
	require.Nil(t, st.Total)
}
