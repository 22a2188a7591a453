package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"RedisVSCode-Webview/internal/api"
	"RedisVSCode-Webview/internal/config"
	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/keys"
	"RedisVSCode-Webview/internal/logger"
	"RedisVSCode-Webview/internal/metrics"
	"RedisVSCode-Webview/internal/persist"
	"RedisVSCode-Webview/internal/ssh"
)

// Version is set at build time with -ldflags "-X RedisVSCode-Webview/internal/app.Version=..."
var Version = "dev"

// App wires configuration to the key browser session and its surfaces
type App struct {
	cfg     *config.Config
	out     io.Writer
	printer *message.Printer
	metrics *metrics.Metrics

	mu    sync.Mutex
	state *persist.Store
}

// NewApp creates a new App from loaded configuration; out receives
// user facing output.
func NewApp(cfg *config.Config, out io.Writer) *App {
	return &App{
		cfg:     cfg,
		out:     out,
		printer: message.NewPrinter(language.SimplifiedChinese),
		metrics: metrics.New(),
	}
}

func (a *App) Config() *config.Config { return a.cfg }

// Startup applies the logging configuration
func (a *App) Startup() {
	logger.Configure(logger.Options{Dir: a.cfg.Logging.Dir, Level: a.cfg.Logging.Level})
	logger.Infof("启动 redis-vscode-webview %s，API=%s 数据库=%s", Version, a.cfg.API.BaseURL, a.cfg.API.DatabaseID)
}

// Shutdown releases every open resource
func (a *App) Shutdown() {
	a.mu.Lock()
	if a.state != nil {
		if err := a.state.Close(); err != nil {
			logger.Warnf("关闭状态库失败：%v", err)
		}
		a.state = nil
	}
	a.mu.Unlock()
	ssh.CloseAll()
	logger.Close()
}

func (a *App) apiClient() *api.Client {
	return api.NewClient(api.Options{
		BaseURL:    a.cfg.API.BaseURL,
		DatabaseID: a.cfg.API.DatabaseID,
		Encoding:   connection.ParseEncoding(a.cfg.API.Encoding),
		Timeout:    a.cfg.API.Timeout,
	})
}

// newSession builds a session against the configured API. sink receives
// telemetry events when telemetry is enabled.
func (a *App) newSession(notifier keys.Notifier, sink metrics.Sink) *keys.Session {
	if !a.cfg.Telemetry.Enabled {
		sink = nil
	}
	return keys.NewSession(a.apiClient(), notifier, metrics.NewTelemetry(a.metrics, sink), keys.Options{
		PageSize:     a.cfg.Scan.PageSize,
		TreePageSize: a.cfg.Scan.TreePageSize,
		DatabaseID:   a.cfg.API.DatabaseID,
	})
}

// stateStore opens the snapshot database on first use
func (a *App) stateStore(ctx context.Context) (*persist.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != nil {
		return a.state, nil
	}
	s, err := persist.Open(ctx, a.cfg.State.Path)
	if err != nil {
		return nil, err
	}
	a.state = s
	return s, nil
}

// snapshotName keys saved listings by API and database
func (a *App) snapshotName() string {
	return a.cfg.API.BaseURL + "#" + a.cfg.API.DatabaseID
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprint(a.out, a.printer.Sprintf(format, args...))
}
