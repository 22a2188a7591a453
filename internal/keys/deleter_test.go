package keys

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"RedisVSCode-Webview/internal/connection"
)

func TestDeleter_DeleteKeyPrunesListing(t *testing.T) {
	api := newFakeAPI()
	api.queue(shard("0", 3, 3, []connection.KeyInfo{
		{Name: connection.RedisString("foo")},
		{Name: connection.RedisString("bar")},
		{Name: connection.RedisString("baz")},
	}), nil)
	sess, notifier, tel := newTestSession(api)
	ctx := context.Background()
	require.NoError(t, sess.Scanner.StartScan(ctx, "0", 500, ScanHooks{}))

	var done int
	err := sess.Deleter.DeleteKey(ctx, connection.RedisString("foo"), func() { done++ })
	require.NoError(t, err)

	st := sess.Store.Snapshot()
	require.Len(t, st.Keys, 2)
	require.Equal(t, "bar", string(st.Keys[0].Name))
	require.Equal(t, int64(2), *st.Total)
	require.False(t, st.Deleting)
	require.Equal(t, 1, done)
	require.Equal(t, []string{`"foo" 已删除`}, notifier.infos)
	require.Empty(t, notifier.errors)
	require.Equal(t, []Outcome{OutcomeSuccess}, tel.deletes)
	require.Equal(t, [][]connection.RedisString{{connection.RedisString("foo")}}, api.deleted)
}

func TestDeleter_FailureKeepsListing(t *testing.T) {
	api := newFakeAPI()
	api.queue(shard("0", 2, 2, makeKeys("k:", 2)), nil)
	api.deleteErr = errors.New("Key with this name does not exist.")
	sess, notifier, tel := newTestSession(api)
	ctx := context.Background()
	require.NoError(t, sess.Scanner.StartScan(ctx, "0", 500, ScanHooks{}))
	before := sess.Store.Snapshot()

	var called bool
	err := sess.Deleter.DeleteKey(ctx, connection.RedisString("k:0"), func() { called = true })
	require.Error(t, err)
	require.False(t, called)

	st := sess.Store.Snapshot()
	require.Equal(t, before.Keys, st.Keys)
	require.Equal(t, *before.Total, *st.Total)
	require.False(t, st.Deleting)
	require.Equal(t, []string{"Key with this name does not exist."}, notifier.errors)
	require.Empty(t, notifier.infos)
	require.Equal(t, []Outcome{OutcomeFailure}, tel.deletes)
}

func TestDeleter_KeyNotListedStillConfirms(t *testing.T) {
	api := newFakeAPI()
	sess, notifier, _ := newTestSession(api)

	require.NoError(t, sess.Deleter.DeleteKey(context.Background(), connection.RedisString("ghost"), nil))
	require.Empty(t, sess.Store.Snapshot().Keys)
	require.Len(t, notifier.infos, 1)
}
