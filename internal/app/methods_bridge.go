package app

import (
	"context"
	"io"

	"RedisVSCode-Webview/internal/bridge"
	"RedisVSCode-Webview/internal/logger"
)

// RunBridge serves the host message channel on in/out until in closes or
// ctx is done. The last listing is saved on exit.
func (a *App) RunBridge(ctx context.Context, in io.Reader, out io.Writer, autoRefresh string) error {
	b := bridge.New(out)
	sess := a.newSession(b, b.SendTelemetry)
	defer sess.Close()
	b.Attach(sess)

	if autoRefresh == "" {
		autoRefresh = a.cfg.Scan.AutoRefresh
	}
	if autoRefresh != "" {
		if err := b.StartAutoRefresh(ctx, autoRefresh); err != nil {
			return err
		}
	}

	err := b.Run(ctx, in)

	if store, serr := a.stateStore(context.Background()); serr == nil {
		if serr := store.Save(context.Background(), a.snapshotName(), sess.Store.Snapshot()); serr != nil {
			logger.Error(serr, "保存列表失败")
		}
	}
	return err
}
