package app

import (
	"context"
	"errors"
	"fmt"

	"RedisVSCode-Webview/internal/api"
	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/keys"
	"RedisVSCode-Webview/internal/logger"
	"RedisVSCode-Webview/internal/persist"
)

// ScanOptions are the arguments of the scan command
type ScanOptions struct {
	Match string
	Type  string
	// Count overrides the configured page size
	Count int
	// Limit stops loading pages once this many keys are listed; 0 loads one page
	Limit int
	// Resume continues the saved listing instead of starting over
	Resume bool
	// Export writes the final listing to this path when set
	Export string
	// SkipInfo leaves type, TTL and size out of the listing
	SkipInfo bool
}

// ScanKeys lists keys page by page and saves the listing for --resume
func (a *App) ScanKeys(ctx context.Context, opts ScanOptions) (keys.State, error) {
	sess := a.newSession(&consoleNotifier{out: a.out}, nil)
	defer sess.Close()

	count := opts.Count
	if count <= 0 {
		count = sess.Options().PageSize
	}

	store, err := a.stateStore(ctx)
	if err != nil {
		logger.Error(err, "打开状态库失败，本次扫描不保存进度")
	}

	resumed := false
	if opts.Resume && store != nil {
		saved, err := store.Load(ctx, a.snapshotName())
		switch {
		case err == nil:
			sess.Store.Restore(saved)
			resumed = true
			logger.Infof("继续上次的扫描：已有 %d 个 Key，cursor=%s", len(saved.Keys), saved.Cursor)
		case errors.Is(err, persist.ErrNotFound):
			logger.Infof("没有可继续的扫描，重新开始")
		default:
			return keys.State{}, err
		}
	}

	if resumed {
		if _, err := sess.Scanner.LoadMore(ctx, count); err != nil {
			return keys.State{}, err
		}
	} else {
		if store != nil {
			if err := store.Delete(ctx, a.snapshotName()); err != nil {
				logger.Error(err, "清除旧的扫描进度失败")
			}
		}
		sess.Store.SetFilter(opts.Type)
		sess.Store.SetSearch(opts.Match)
		if err := sess.Scanner.StartScan(ctx, "0", count, keys.ScanHooks{Source: "cli"}); err != nil {
			return keys.State{}, err
		}
	}

	for len(sess.Store.Snapshot().Keys) < opts.Limit {
		if ctx.Err() != nil {
			break
		}
		prev := sess.Store.Snapshot()
		before := len(prev.Keys)
		issued, err := sess.Scanner.LoadMore(ctx, count)
		if err != nil {
			return keys.State{}, err
		}
		if !issued {
			break
		}
		// rescanning a finished scan that found nothing new will not grow either
		if keys.IsTerminalCursor(prev.Cursor) && len(sess.Store.Snapshot().Keys) <= before {
			logger.Debugf("列表未增长，停止加载：keys=%d", before)
			break
		}
	}

	if !opts.SkipInfo {
		if err := sess.FillMetadata(ctx); err != nil {
			a.printf("获取 Key 类型失败：%s\n", api.ErrorMessage(err))
		}
	}

	st := sess.Store.Snapshot()
	if store != nil {
		if err := store.Save(ctx, a.snapshotName(), st); err != nil {
			logger.Error(err, "保存扫描进度失败")
		}
	}
	if opts.Export != "" {
		if err := a.ExportKeys(opts.Export, st); err != nil {
			return st, err
		}
	}
	a.printListing(st, !keys.IsTerminalCursor(st.Cursor))
	return st, nil
}

func (a *App) printListing(st keys.State, more bool) {
	for _, k := range st.Keys {
		if k.Type != "" {
			a.printf("%s\t%s\n", k.Name.String(), k.Type)
		} else {
			a.printf("%s\n", k.Name.String())
		}
	}
	total := "未知"
	if st.Total != nil {
		total = a.printer.Sprintf("%d", *st.Total)
	}
	a.printf("共列出 %d 个 Key，已扫描 %d / %s\n", len(st.Keys), st.Scanned, total)
	if more {
		a.printf("还有更多结果，使用 --resume 继续加载\n")
	}
}

// DeleteKey deletes name and prunes it from the saved listing
func (a *App) DeleteKey(ctx context.Context, name connection.RedisString) error {
	sess := a.newSession(&consoleNotifier{out: a.out}, nil)
	defer sess.Close()

	store, err := a.stateStore(ctx)
	if err != nil {
		logger.Error(err, "打开状态库失败")
		store = nil
	}
	restored := false
	if store != nil {
		if saved, err := store.Load(ctx, a.snapshotName()); err == nil {
			sess.Store.Restore(saved)
			restored = true
		}
	}

	if err := sess.Deleter.DeleteKey(ctx, name, nil); err != nil {
		return fmt.Errorf("删除 %s 失败：%w", name, err)
	}

	if restored {
		if err := store.Save(ctx, a.snapshotName(), sess.Store.Snapshot()); err != nil {
			logger.Error(err, "更新保存的列表失败")
		}
	}
	return nil
}
