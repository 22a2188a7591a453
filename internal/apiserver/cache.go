package apiserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"
	"RedisVSCode-Webview/internal/redis"
)

// clientCache holds one connected Redis client per connection config
type clientCache struct {
	mu        sync.Mutex
	clients   map[string]redis.Client
	newClient func() redis.Client
}

func newClientCache(newClient func() redis.Client) *clientCache {
	if newClient == nil {
		newClient = redis.NewClient
	}
	return &clientCache{clients: make(map[string]redis.Client), newClient: newClient}
}

// get returns a cached client after a liveness ping, reconnecting when the
// cached one is gone.
func (c *clientCache) get(ctx context.Context, config connection.ConnectionConfig) (redis.Client, error) {
	key := cacheKey(config)
	shortKey := key[:12]

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[key]; ok {
		if err := client.Ping(ctx); err == nil {
			return client, nil
		} else {
			logger.Error(err, "缓存 Redis 连接不可用，准备重建：缓存Key=%s", shortKey)
		}
		client.Close()
		delete(c.clients, key)
	}

	logger.Infof("创建 Redis 客户端实例：%s 缓存Key=%s", connSummary(config), shortKey)
	client := c.newClient()
	if err := client.Connect(ctx, config); err != nil {
		logger.Error(err, "Redis 连接失败：%s 缓存Key=%s", connSummary(config), shortKey)
		return nil, err
	}
	c.clients[key] = client
	return client, nil
}

func (c *clientCache) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, client := range c.clients {
		if err := client.Close(); err != nil {
			logger.Warnf("关闭 Redis 连接失败：缓存Key=%s err=%v", key[:12], err)
		}
		delete(c.clients, key)
	}
}

func cacheKey(config connection.ConnectionConfig) string {
	if !config.UseSSH {
		config.SSH = connection.SSHConfig{}
	}
	b, _ := json.Marshal(config)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func connSummary(config connection.ConnectionConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "地址=%s:%d DB=%d", config.Host, config.Port, config.DB)
	if config.UseSSH {
		fmt.Fprintf(&b, " SSH=%s:%d 用户=%s", config.SSH.Host, config.SSH.Port, config.SSH.User)
	}
	return b.String()
}
