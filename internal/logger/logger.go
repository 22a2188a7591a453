package logger

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	envLogDir  = "REDIS_VSC_LOG_DIR"
	appDirName = "redis-vscode"

	logFileName         = "webview.log"
	rotatedPrefix       = "webview-"
	logRotateMaxBytes   = 10 * 1024 * 1024 // 10MB
	logRotateMaxBackups = 10
)

// Level orders log severities; messages below the configured level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = map[Level]string{
	LevelDebug: "调试",
	LevelInfo:  "信息",
	LevelWarn:  "警告",
	LevelError: "错误",
}

// ParseLevel accepts DEBUG/INFO/WARN/ERROR in any case; unknown values mean INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Options configures where and how verbosely the logger writes.
// Dir "-" writes to stderr only.
type Options struct {
	Dir   string
	Level string
}

var (
	once    sync.Once
	logMu   sync.Mutex
	logInst *log.Logger
	logFile *os.File
	logPath string
	minLvl  = LevelInfo
	opts    Options
)

// Configure must run before the first log call to take effect on the output
// location; the level can be changed at any time.
func Configure(o Options) {
	logMu.Lock()
	opts = o
	minLvl = ParseLevel(o.Level)
	logMu.Unlock()
	Init()
}

func Init() {
	once.Do(func() {
		logMu.Lock()
		dir := opts.Dir
		logMu.Unlock()

		path, out := initOutput(dir)
		logMu.Lock()
		defer logMu.Unlock()
		logPath = path
		logInst = log.New(out, "", log.Ldate|log.Ltime|log.Lmicroseconds)
		logInst.Printf("[%s] 日志初始化完成，日志文件：%s", levelTags[LevelInfo], logPath)
	})
}

func Path() string {
	Init()
	logMu.Lock()
	defer logMu.Unlock()
	return logPath
}

func Close() {
	Init()
	logMu.Lock()
	defer logMu.Unlock()
	if logInst != nil {
		logInst.SetOutput(os.Stderr)
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func Debugf(format string, args ...any) {
	printf(LevelDebug, format, args...)
}

func Infof(format string, args ...any) {
	printf(LevelInfo, format, args...)
}

func Warnf(format string, args ...any) {
	printf(LevelWarn, format, args...)
}

func Errorf(format string, args ...any) {
	printf(LevelError, format, args...)
}

// Error logs msg followed by the unwrapped chain of err.
func Error(err error, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		Errorf("%s", msg)
		return
	}
	Errorf("%s；错误链：%s", msg, ErrorChain(err))
}

func ErrorChain(err error) string {
	if err == nil {
		return ""
	}

	var parts []string
	seen := map[string]struct{}{}
	cur := err
	for i := 0; cur != nil && i < 20; i++ {
		s := cur.Error()
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			parts = append(parts, s)
		}
		cur = errors.Unwrap(cur)
	}

	if len(parts) == 0 {
		return err.Error()
	}
	if cur != nil {
		parts = append(parts, "（错误链过长，已截断）")
	}
	return strings.Join(parts, " -> ")
}

func printf(level Level, format string, args ...any) {
	Init()
	logMu.Lock()
	inst := logInst
	enabled := level >= minLvl
	logMu.Unlock()
	if inst == nil || !enabled {
		return
	}
	inst.Printf("[%s] %s", levelTags[level], fmt.Sprintf(format, args...))
}

func resolveDir(dir string) string {
	if dir = strings.TrimSpace(dir); dir != "" {
		return dir
	}
	if env := strings.TrimSpace(os.Getenv(envLogDir)); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err != nil || strings.TrimSpace(base) == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, appDirName, "logs")
}

func initOutput(dir string) (string, io.Writer) {
	if strings.TrimSpace(dir) == "-" {
		return "stderr", os.Stderr
	}
	dir = resolveDir(dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return filepath.Join(dir, logFileName), os.Stderr
	}

	path := filepath.Join(dir, logFileName)
	rotateIfNeeded(path, dir, time.Now())

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return path, os.Stderr
	}
	logFile = f
	return path, f
}

func rotateIfNeeded(path, dir string, now time.Time) {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() || fi.Size() < logRotateMaxBytes {
		return
	}

	rotated := filepath.Join(dir, fmt.Sprintf("%s%s.log", rotatedPrefix, now.Format("20060102-150405")))
	if err := os.Rename(path, rotated); err != nil {
		return
	}
	cleanupOldLogs(dir)
}

func cleanupOldLogs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var rotated []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, rotatedPrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		rotated = append(rotated, name)
	}

	// timestamps sort lexically; newest first
	sort.Sort(sort.Reverse(sort.StringSlice(rotated)))
	if len(rotated) <= logRotateMaxBackups {
		return
	}
	for _, name := range rotated[logRotateMaxBackups:] {
		_ = os.Remove(filepath.Join(dir, name))
	}
}
