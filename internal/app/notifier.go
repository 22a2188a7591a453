package app

import (
	"fmt"
	"io"
	"sync"

	"RedisVSCode-Webview/internal/logger"
)

// consoleNotifier shows notices on the terminal
type consoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func (n *consoleNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, msg)
}

func (n *consoleNotifier) Error(msg string) {
	logger.Warnf("提示错误：%s", msg)
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, "错误："+msg)
}
