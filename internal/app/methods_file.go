package app

import (
	"RedisVSCode-Webview/internal/export"
	"RedisVSCode-Webview/internal/keys"
	"RedisVSCode-Webview/internal/logger"
)

// ExportKeys writes the listing to path in the format its extension names
func (a *App) ExportKeys(path string, st keys.State) error {
	format, err := export.FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := export.Write(path, format, st); err != nil {
		logger.Error(err, "导出失败：path=%s", path)
		return err
	}
	logger.Infof("导出完成：path=%s keys=%d", path, len(st.Keys))
	a.printf("已导出 %d 个 Key 到 %s\n", len(st.Keys), path)
	return nil
}
