package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"
	"RedisVSCode-Webview/internal/ssh"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 30 * time.Second

var errNotConnected = errors.New("Redis 客户端未连接")

// ClientImpl implements Client using go-redis
type ClientImpl struct {
	client    *redis.Client
	config    connection.ConnectionConfig
	forwarder *ssh.LocalForwarder
}

// NewClient creates an unconnected client
func NewClient() Client {
	return &ClientImpl{}
}

// Connect establishes a connection to Redis
func (r *ClientImpl) Connect(ctx context.Context, config connection.ConnectionConfig) error {
	r.config = config

	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	if config.UseSSH {
		forwarder, err := ssh.GetOrCreateLocalForwarder(config.SSH, config.Host, config.Port)
		if err != nil {
			return fmt.Errorf("创建 SSH 隧道失败: %w", err)
		}
		r.forwarder = forwarder
		addr = forwarder.LocalAddr
		logger.Infof("Redis 通过 SSH 隧道连接: %s -> %s:%d", addr, config.Host, config.Port)
	}

	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	opts := &redis.Options{
		Addr:         addr,
		Username:     config.Username,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		// honour per-request deadlines from the scan context
		ContextTimeoutEnabled: true,
	}
	r.client = redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		r.client.Close()
		r.client = nil
		return fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Infof("Redis 连接成功: %s DB=%d", addr, config.DB)
	return nil
}

// Close closes the Redis connection
func (r *ClientImpl) Close() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

func (r *ClientImpl) Ping(ctx context.Context) error {
	if r.client == nil {
		return errNotConnected
	}
	return r.client.Ping(ctx).Err()
}

// Scan runs one SCAN iteration, with TYPE when opts.Type is set
func (r *ClientImpl) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	if r.client == nil {
		return nil, errNotConnected
	}
	match := opts.Match
	if match == "" {
		match = connection.DefaultMatch
	}
	count := opts.Count
	if count <= 0 {
		count = 100
	}

	var (
		keys []string
		next uint64
		err  error
	)
	if opts.Type != "" {
		keys, next, err = r.client.ScanType(ctx, opts.Cursor, match, count, opts.Type).Result()
	} else {
		keys, next, err = r.client.Scan(ctx, opts.Cursor, match, count).Result()
	}
	if err != nil {
		return nil, err
	}
	return &ScanResult{Keys: keys, Cursor: next}, nil
}

// KeysInfo returns type, TTL, memory usage and length of each key. Keys that
// vanish between SCAN and the pipeline are reported with type "none".
func (r *ClientImpl) KeysInfo(ctx context.Context, keys []string) ([]connection.KeyInfo, error) {
	if r.client == nil {
		return nil, errNotConnected
	}
	out := make([]connection.KeyInfo, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	pipe := r.client.Pipeline()
	typeResults := make([]*redis.StatusCmd, len(keys))
	ttlResults := make([]*redis.DurationCmd, len(keys))
	sizeResults := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		typeResults[i] = pipe.Type(ctx, key)
		ttlResults[i] = pipe.TTL(ctx, key)
		sizeResults[i] = pipe.MemoryUsage(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i, key := range keys {
		ttl := ttlSeconds(ttlResults[i].Val())
		info := connection.KeyInfo{
			Name: connection.RedisString(key),
			Type: typeResults[i].Val(),
			TTL:  &ttl,
		}
		if sizeResults[i].Err() == nil {
			size := sizeResults[i].Val()
			info.Size = &size
		}
		out = append(out, info)
	}

	if err := r.fillLengths(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// fillLengths reads the element count of every key whose type is known
func (r *ClientImpl) fillLengths(ctx context.Context, infos []connection.KeyInfo) error {
	pipe := r.client.Pipeline()
	lengths := make([]*redis.IntCmd, len(infos))
	queued := 0
	for i, info := range infos {
		key := string(info.Name)
		switch info.Type {
		case "string":
			lengths[i] = pipe.StrLen(ctx, key)
		case "list":
			lengths[i] = pipe.LLen(ctx, key)
		case "hash":
			lengths[i] = pipe.HLen(ctx, key)
		case "set":
			lengths[i] = pipe.SCard(ctx, key)
		case "zset":
			lengths[i] = pipe.ZCard(ctx, key)
		case "stream":
			lengths[i] = pipe.XLen(ctx, key)
		default:
			continue
		}
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	for i, cmd := range lengths {
		if cmd == nil || cmd.Err() != nil {
			continue
		}
		n := cmd.Val()
		infos[i].Length = &n
	}
	return nil
}

// ttlSeconds maps the TTL reply to seconds, keeping -1 (no expiry) and
// -2 (missing) as they are.
func ttlSeconds(d time.Duration) int64 {
	if d < 0 {
		return int64(d)
	}
	return int64(d.Seconds())
}

func (r *ClientImpl) KeyExists(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return false, errNotConnected
	}
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *ClientImpl) KeyType(ctx context.Context, key string) (string, error) {
	if r.client == nil {
		return "", errNotConnected
	}
	return r.client.Type(ctx, key).Result()
}

// DBSize returns the number of keys in the selected database
func (r *ClientImpl) DBSize(ctx context.Context) (int64, error) {
	if r.client == nil {
		return 0, errNotConnected
	}
	return r.client.DBSize(ctx).Result()
}

// DeleteKeys deletes one or more keys and returns how many existed
func (r *ClientImpl) DeleteKeys(ctx context.Context, keys []string) (int64, error) {
	if r.client == nil {
		return 0, errNotConnected
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return r.client.Del(ctx, keys...).Result()
}

// SetString sets a string value; ttl <= 0 means no expiry
func (r *ClientImpl) SetString(ctx context.Context, key, value string, ttl int64) error {
	if r.client == nil {
		return errNotConnected
	}
	var expiration time.Duration
	if ttl > 0 {
		expiration = time.Duration(ttl) * time.Second
	}
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *ClientImpl) SetHashField(ctx context.Context, key, field, value string) error {
	if r.client == nil {
		return errNotConnected
	}
	return r.client.HSet(ctx, key, field, value).Err()
}

func (r *ClientImpl) ListPush(ctx context.Context, key string, values ...string) error {
	if r.client == nil {
		return errNotConnected
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return r.client.RPush(ctx, key, args...).Err()
}

func (r *ClientImpl) SetAdd(ctx context.Context, key string, members ...string) error {
	if r.client == nil {
		return errNotConnected
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return r.client.SAdd(ctx, key, args...).Err()
}

func (r *ClientImpl) ZSetAdd(ctx context.Context, key string, members ...ZSetMember) error {
	if r.client == nil {
		return errNotConnected
	}
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: m.Score, Member: m.Member}
	}
	return r.client.ZAdd(ctx, key, zs...).Err()
}
