package config

import (
	"path/filepath"
	"strings"
	"time"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/keys"
)

const (
	DefaultBaseURL         = "http://127.0.0.1:5540/api"
	DefaultDatabaseID      = "0"
	DefaultAPITimeout      = 30 * time.Second
	DefaultServerAddr      = "127.0.0.1:5540"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultRedisPort       = 6379
)

// ApplyDefaults fills every unset field and normalizes case
func ApplyDefaults(cfg *Config) {
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.API.DatabaseID == "" {
		cfg.API.DatabaseID = DefaultDatabaseID
	}
	cfg.API.Encoding = string(connection.ParseEncoding(cfg.API.Encoding))
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = DefaultAPITimeout
	}

	if cfg.Scan.PageSize <= 0 {
		cfg.Scan.PageSize = keys.DefaultPageSize
	}
	if cfg.Scan.TreePageSize <= 0 {
		cfg.Scan.TreePageSize = keys.DefaultTreePageSize
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "127.0.0.1"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = DefaultRedisPort
	}
	if cfg.Redis.UseSSH && cfg.Redis.SSH.Port == 0 {
		cfg.Redis.SSH.Port = 22
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.State.Path == "" {
		cfg.State.Path = filepath.Join(ConfigDir(), "state.db")
	}
}
