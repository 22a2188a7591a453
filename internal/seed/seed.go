package seed

import (
	"context"
	"fmt"

	"RedisVSCode-Webview/internal/logger"
	"RedisVSCode-Webview/internal/redis"
)

// Types are the key types Populate knows how to create
var Types = []string{"string", "hash", "list", "set", "zset"}

// Options describes the keys to create
type Options struct {
	Prefix string
	// Count is the number of keys per type
	Count int
	// Types restricts the created types; empty means all of Types
	Types []string
	// TTL in seconds for string keys; 0 means no expiry
	TTL int64
}

// Populate creates Count keys named "<prefix><type>:<n>" for each type and
// returns the number of keys written.
func Populate(ctx context.Context, client redis.Client, opts Options) (int, error) {
	types := opts.Types
	if len(types) == 0 {
		types = Types
	}

	written := 0
	for _, typ := range types {
		for i := 0; i < opts.Count; i++ {
			if err := ctx.Err(); err != nil {
				return written, err
			}
			key := fmt.Sprintf("%s%s:%d", opts.Prefix, typ, i)
			if err := write(ctx, client, typ, key, i, opts.TTL); err != nil {
				return written, fmt.Errorf("写入 %s 失败：%w", key, err)
			}
			written++
		}
	}
	logger.Infof("已生成测试数据：prefix=%s types=%v keys=%d", opts.Prefix, types, written)
	return written, nil
}

func write(ctx context.Context, client redis.Client, typ, key string, i int, ttl int64) error {
	value := fmt.Sprintf("value-%d", i)
	switch typ {
	case "string":
		return client.SetString(ctx, key, value, ttl)
	case "hash":
		return client.SetHashField(ctx, key, "field", value)
	case "list":
		return client.ListPush(ctx, key, value)
	case "set":
		return client.SetAdd(ctx, key, value)
	case "zset":
		return client.ZSetAdd(ctx, key, redis.ZSetMember{Member: value, Score: float64(i)})
	default:
		return fmt.Errorf("不支持的类型：%s", typ)
	}
}
