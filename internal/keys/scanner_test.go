package keys

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RedisVSCode-Webview/internal/connection"
)

func newTestSession(api *fakeAPI) (*Session, *recordingNotifier, *recordingTelemetry) {
	n := &recordingNotifier{}
	tel := &recordingTelemetry{}
	return NewSession(api, n, tel, Options{PageSize: 500, TreePageSize: 500, DatabaseID: "db-1"}), n, tel
}

func waitCall(t *testing.T, api *fakeAPI) *getKeysCall {
	t.Helper()
	select {
	case c := <-api.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("等待扫描请求超时")
		return nil
	}
}

func TestScanner_FirstPageScenario(t *testing.T) {
	api := newFakeAPI()
	api.queue(shard("500", 1000, 500, makeKeys("k:", 500)), nil)
	sess, notifier, tel := newTestSession(api)

	var got Page
	err := sess.Scanner.StartScan(context.Background(), "0", 500, ScanHooks{OnSuccess: func(p Page) { got = p }})
	require.NoError(t, err)

	st := sess.Store.Snapshot()
	require.False(t, st.Loading)
	require.Len(t, st.Keys, 500)
	require.Equal(t, "500", st.Cursor)
	require.Equal(t, int64(1000), *st.Total)
	require.Equal(t, "500", got.Cursor)
	require.Empty(t, notifier.errors)
	require.False(t, sess.Registry.Outstanding())

	req := api.requests[0]
	require.Equal(t, connection.GetKeysRequest{Cursor: "0", Count: 500, Match: "*"}, req)

	require.Len(t, tel.events, 1)
	require.Equal(t, EventKeysScanned, tel.events[0].Name)
	require.Equal(t, "manual", tel.events[0].Data.Source)
	require.Equal(t, int64(1000), tel.events[0].Data.DatabaseSize)
	require.Equal(t, []Outcome{OutcomeSuccess}, tel.scans)
}

func TestScanner_LoadMoreScenario(t *testing.T) {
	api := newFakeAPI()
	api.queue(shard("500", 1000, 500, makeKeys("a:", 500)), nil)
	api.queue(shard("0", 1000, 1000, makeKeys("b:", 500)), nil)
	sess, _, tel := newTestSession(api)
	ctx := context.Background()

	require.NoError(t, sess.Scanner.StartScan(ctx, "0", 500, ScanHooks{}))

	issued, err := sess.Scanner.LoadMore(ctx, 500)
	require.NoError(t, err)
	require.True(t, issued)
	require.Equal(t, "500", api.requests[1].Cursor)

	st := sess.Store.Snapshot()
	require.Len(t, st.Keys, 1000)
	require.Equal(t, "0", st.Cursor)
	require.Equal(t, int64(1000), st.Scanned)
	require.Equal(t, EventKeysAdditionallyScanned, tel.events[1].Name)

	issued, err = sess.Scanner.LoadMore(ctx, 500)
	require.NoError(t, err)
	require.False(t, issued)
	require.Equal(t, 2, api.requestCount(), "扫描结束后不应再发请求")
}

func TestScanner_LoadMoreWithoutScanIsNoop(t *testing.T) {
	api := newFakeAPI()
	sess, _, _ := newTestSession(api)

	issued, err := sess.LoadMore(context.Background())
	require.NoError(t, err)
	require.False(t, issued)
	require.Zero(t, api.requestCount())
}

func TestScanner_LoadMoreWhenTerminalButIncomplete(t *testing.T) {
	api := newFakeAPI()
	api.queue(shard("0", 10, 10, makeKeys("a:", 4)), nil)
	api.queue(shard("0", 10, 10, makeKeys("a:", 10)), nil)
	sess, _, _ := newTestSession(api)
	ctx := context.Background()

	require.NoError(t, sess.Scanner.StartScan(ctx, "0", 500, ScanHooks{}))
	require.True(t, sess.Scanner.CanLoadMore())

	issued, err := sess.Scanner.LoadMore(ctx, 500)
	require.NoError(t, err)
	require.True(t, issued)
	require.Len(t, sess.Store.Snapshot().Keys, 10)
}

func TestScanner_NewScanCancelsPending(t *testing.T) {
	api := newFakeAPI()
	api.blocking = true
	sess, notifier, _ := newTestSession(api)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() { firstDone <- sess.Scanner.StartScan(ctx, "0", 500, ScanHooks{}) }()
	first := waitCall(t, api)

	secondDone := make(chan error, 1)
	go func() { secondDone <- sess.Scanner.StartScan(ctx, "0", 500, ScanHooks{}) }()
	second := waitCall(t, api)

	require.Error(t, first.ctx.Err(), "旧请求应被取消")
	first.resp <- getKeysResult{err: first.ctx.Err()}
	require.NoError(t, <-firstDone)
	require.True(t, sess.Store.Snapshot().Loading, "新请求在途时 loading 应保持")

	second.resp <- getKeysResult{shards: shard("0", 2, 2, makeKeys("new:", 2))}
	require.NoError(t, <-secondDone)

	st := sess.Store.Snapshot()
	require.False(t, st.Loading)
	require.Len(t, st.Keys, 2)
	require.Equal(t, "new:0", string(st.Keys[0].Name))
	require.Empty(t, notifier.errors, "取消不应提示错误")
}

func TestScanner_LateResponseOfSupersededScanIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.blocking = true
	sess, _, _ := newTestSession(api)
	ctx := context.Background()

	sess.Store.SetSearch("old:*")
	firstDone := make(chan error, 1)
	go func() { firstDone <- sess.Scanner.StartScan(ctx, "0", 500, ScanHooks{}) }()
	first := waitCall(t, api)
	require.Equal(t, "old:*", first.req.Match)

	secondDone := make(chan error, 1)
	go func() { secondDone <- sess.Search(ctx, "new:*") }()
	second := waitCall(t, api)
	require.Equal(t, "new:*", second.req.Match)

	second.resp <- getKeysResult{shards: shard("0", 3, 3, makeKeys("new:", 3))}
	require.NoError(t, <-secondDone)

	// the transport ignored the cancellation and delivered the old page anyway
	first.resp <- getKeysResult{shards: shard("0", 9, 9, makeKeys("old:", 9))}
	require.NoError(t, <-firstDone)

	st := sess.Store.Snapshot()
	require.Len(t, st.Keys, 3)
	require.Equal(t, "new:0", string(st.Keys[0].Name))
	require.Equal(t, int64(3), *st.Total)
	require.False(t, st.Loading)
}

func TestScanner_FailureNotifiesAndKeepsState(t *testing.T) {
	api := newFakeAPI()
	api.queue(shard("5", 10, 5, makeKeys("a:", 5)), nil)
	api.queue(nil, errors.New("connect: connection refused"))
	sess, notifier, tel := newTestSession(api)
	ctx := context.Background()

	require.NoError(t, sess.Scanner.StartScan(ctx, "0", 500, ScanHooks{}))
	before := sess.Store.Snapshot()

	var failed error
	err := sess.Scanner.StartScan(ctx, "5", 500, ScanHooks{OnFailure: func(err error) { failed = err }})
	require.Error(t, err)
	require.Equal(t, err, failed)
	require.Equal(t, []string{"connect: connection refused"}, notifier.errors)

	st := sess.Store.Snapshot()
	require.False(t, st.Loading)
	require.Equal(t, before.Keys, st.Keys)
	require.Equal(t, "5", st.Cursor)
	require.Equal(t, []Outcome{OutcomeSuccess, OutcomeFailure}, tel.scans)
}

func TestScanner_CallerCancellationIsSilent(t *testing.T) {
	api := newFakeAPI()
	api.queue(nil, context.Canceled)
	sess, notifier, _ := newTestSession(api)

	var failed bool
	err := sess.Scanner.StartScan(context.Background(), "0", 500, ScanHooks{OnFailure: func(error) { failed = true }})
	require.NoError(t, err)
	require.False(t, failed)
	require.Empty(t, notifier.errors)
	require.False(t, sess.Store.Snapshot().Loading)
}

func TestScanner_FilteredScanEvent(t *testing.T) {
	api := newFakeAPI()
	api.queue(shard("0", 1, 1, makeKeys("user:", 1)), nil)
	sess, _, tel := newTestSession(api)
	sess.Store.SetFilter("hash")

	require.NoError(t, sess.Search(context.Background(), "user:1"))

	require.Equal(t, "hash", api.requests[0].Type)
	require.Equal(t, "user:1", api.requests[0].Match)
	ev := tel.events[0]
	require.Equal(t, EventKeysScannedWithFilter, ev.Name)
	require.Equal(t, MatchExactValueName, ev.Data.Match)
	require.Equal(t, "hash", ev.Data.KeyType)
	require.Equal(t, "db-1", ev.Data.DatabaseID)
}

func TestScanner_RefreshUsesTreePageSize(t *testing.T) {
	api := newFakeAPI()
	api.queue(shard("0", 0, 0, nil), nil)
	n := &recordingNotifier{}
	tel := &recordingTelemetry{}
	sess := NewSession(api, n, tel, Options{})

	require.NoError(t, sess.Refresh(context.Background(), "refresh"))
	require.Equal(t, DefaultTreePageSize, api.requests[0].Count)
	require.Equal(t, "refresh", tel.events[0].Data.Source)
	require.Empty(t, sess.Store.Snapshot().Keys)
}
