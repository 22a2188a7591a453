package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"RedisVSCode-Webview/internal/app"
	"RedisVSCode-Webview/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewCLI().RunContext(ctx, os.Args); err != nil {
		logger.Error(err, "命令执行失败")
		stop()
		os.Exit(1)
	}
}
