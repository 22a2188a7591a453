package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"RedisVSCode-Webview/internal/connection"
)

const (
	envPrefix = "REDIS_VSC"
	appDir    = "redis-vscode"
)

// Config is the effective configuration of the webview process
type Config struct {
	Logging   LoggingConfig               `mapstructure:"logging" yaml:"logging"`
	API       APIConfig                   `mapstructure:"api" yaml:"api"`
	Scan      ScanConfig                  `mapstructure:"scan" yaml:"scan"`
	Redis     connection.ConnectionConfig `mapstructure:"redis" yaml:"redis"`
	Server    ServerConfig                `mapstructure:"server" yaml:"server"`
	State     StateConfig                 `mapstructure:"state" yaml:"state"`
	Telemetry TelemetryConfig             `mapstructure:"telemetry" yaml:"telemetry"`
}

type LoggingConfig struct {
	// Dir is the log directory; "-" logs to stderr
	Dir   string `mapstructure:"dir" yaml:"dir"`
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// APIConfig points the key browser at the keys REST API
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	DatabaseID string        `mapstructure:"database_id" yaml:"database_id" validate:"required"`
	Encoding   string        `mapstructure:"encoding" yaml:"encoding" validate:"oneof=utf8 ascii buffer"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
}

type ScanConfig struct {
	PageSize     int `mapstructure:"page_size" yaml:"page_size" validate:"gt=0,lte=100000"`
	TreePageSize int `mapstructure:"tree_page_size" yaml:"tree_page_size" validate:"gt=0,lte=100000"`
	// AutoRefresh is a cron spec for periodic tree refreshes, empty disables it
	AutoRefresh string `mapstructure:"auto_refresh" yaml:"auto_refresh"`
}

// ServerConfig configures the local keys API server
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	CORSOrigins     []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`
	MaxResults      int64         `mapstructure:"max_results" yaml:"max_results" validate:"gte=0"`
}

// StateConfig locates the sqlite file of saved listings
type StateConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// envKeys are bound explicitly so environment variables apply even when the
// key is absent from the config file.
var envKeys = []string{
	"logging.dir", "logging.level",
	"api.base_url", "api.database_id", "api.encoding", "api.timeout",
	"scan.page_size", "scan.tree_page_size", "scan.auto_refresh",
	"redis.host", "redis.port", "redis.username", "redis.password", "redis.db", "redis.timeout",
	"redis.use_ssh", "redis.ssh.host", "redis.ssh.port", "redis.ssh.user", "redis.ssh.password", "redis.ssh.key_path",
	"server.addr", "server.cors_origins", "server.shutdown_timeout", "server.max_results",
	"state.path",
	"telemetry.enabled",
}

// Load reads configuration from an optional .env file, the YAML file at
// configPath (or the default location) and REDIS_VSC_* variables, then
// applies defaults and validates.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败：%w", err)
	}

	v := viper.New()
	setupViper(v, configPath)
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败：%w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("配置校验失败：%w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(ConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("读取配置文件失败：%w", err)
	}
	return nil
}

// ConfigDir is $XDG_CONFIG_HOME/redis-vscode, falling back to ~/.config
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", appDir)
}

func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Dump renders cfg as YAML with secrets masked
func Dump(cfg *Config) ([]byte, error) {
	masked := *cfg
	if masked.Redis.Password != "" {
		masked.Redis.Password = "******"
	}
	if masked.Redis.SSH.Password != "" {
		masked.Redis.SSH.Password = "******"
	}
	return yaml.Marshal(&masked)
}
