package redis

import (
	"context"

	"RedisVSCode-Webview/internal/connection"
)

// ScanOptions are the arguments of one SCAN call
type ScanOptions struct {
	Cursor uint64
	Match  string
	Count  int64
	Type   string // empty scans every type
}

// ScanResult is one SCAN reply. Keys are raw names and may hold any bytes.
type ScanResult struct {
	Keys   []string
	Cursor uint64
}

// ZSetMember represents a member in a sorted set
type ZSetMember struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}

// Client is the subset of Redis commands the key browser relies on
type Client interface {
	// Connection management
	Connect(ctx context.Context, config connection.ConnectionConfig) error
	Close() error
	Ping(ctx context.Context) error

	// Key listing
	Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error)
	KeysInfo(ctx context.Context, keys []string) ([]connection.KeyInfo, error)
	KeyExists(ctx context.Context, key string) (bool, error)
	KeyType(ctx context.Context, key string) (string, error)
	DBSize(ctx context.Context) (int64, error)
	DeleteKeys(ctx context.Context, keys []string) (int64, error)

	// Writes used for seeding
	SetString(ctx context.Context, key, value string, ttl int64) error
	SetHashField(ctx context.Context, key, field, value string) error
	ListPush(ctx context.Context, key string, values ...string) error
	SetAdd(ctx context.Context, key string, members ...string) error
	ZSetAdd(ctx context.Context, key string, members ...ZSetMember) error
}
