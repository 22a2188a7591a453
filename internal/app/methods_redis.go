package app

import (
	"context"
	"fmt"

	"RedisVSCode-Webview/internal/apiserver"
	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"
	"RedisVSCode-Webview/internal/redis"
	"RedisVSCode-Webview/internal/seed"
)

// Serve runs the local keys API on top of the configured Redis until ctx is done
func (a *App) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	srv := apiserver.NewServer(apiserver.Options{
		Databases:   map[string]connection.ConnectionConfig{a.cfg.API.DatabaseID: a.cfg.Redis},
		CORSOrigins: a.cfg.Server.CORSOrigins,
		MaxResults:  a.cfg.Server.MaxResults,
		Metrics:     a.metrics,
	})
	logger.Infof("Keys API 使用 Redis：%s:%d DB=%d 数据库ID=%s", a.cfg.Redis.Host, a.cfg.Redis.Port, a.cfg.Redis.DB, a.cfg.API.DatabaseID)
	return srv.Start(ctx, addr, a.cfg.Server.ShutdownTimeout)
}

// Seed fills the configured Redis with test keys
func (a *App) Seed(ctx context.Context, opts seed.Options) (int, error) {
	client := redis.NewClient()
	if err := client.Connect(ctx, a.cfg.Redis); err != nil {
		return 0, err
	}
	defer client.Close()

	n, err := seed.Populate(ctx, client, opts)
	if err != nil {
		return n, fmt.Errorf("生成测试数据失败：%w", err)
	}
	a.printf("已写入 %d 个 Key\n", n)
	return n, nil
}
