package apiserver

import (
	"context"
	"fmt"
	"sync"

	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/redis"
)

const memoLimit = 10000

// scanMemo remembers how far each open SCAN iteration has got, keyed by the
// cursor it handed out, so a continuation can report a cumulative count.
type scanMemo struct {
	mu      sync.Mutex
	scanned map[string]int64
}

func newScanMemo() *scanMemo {
	return &scanMemo{scanned: make(map[string]int64)}
}

func memoKey(db, match, keyType string, cursor uint64) string {
	return fmt.Sprintf("%s|%s|%s|%d", db, keyType, match, cursor)
}

func (m *scanMemo) get(key string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanned[key]
}

func (m *scanMemo) put(key string, v int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.scanned) >= memoLimit {
		m.scanned = make(map[string]int64)
	}
	m.scanned[key] = v
}

type scanQuery struct {
	db         string
	cursor     uint64
	count      int64
	match      string
	keyType    string
	keysInfo   bool
	maxResults int64
}

type scanOutcome struct {
	cursor  uint64
	total   int64
	scanned int64
	keys    []connection.KeyInfo
}

// scanKeys answers one page. An exact name is looked up directly. A pattern
// is scanned until count keys matched, the iteration ended, or maxResults
// keys were visited.
func (s *Server) scanKeys(ctx context.Context, client redis.Client, q scanQuery) (*scanOutcome, error) {
	total, err := client.DBSize(ctx)
	if err != nil {
		return nil, err
	}

	if q.match != "" && !connection.IsGlobPattern(q.match) {
		return s.lookupExact(ctx, client, q, total)
	}

	prev := int64(0)
	if q.cursor != 0 {
		prev = s.memo.get(memoKey(q.db, q.match, q.keyType, q.cursor))
	}

	out := &scanOutcome{total: total, keys: []connection.KeyInfo{}}
	var names []string
	cursor := q.cursor
	scanned := prev
	for {
		res, err := client.Scan(ctx, redis.ScanOptions{Cursor: cursor, Match: q.match, Count: q.count, Type: q.keyType})
		if err != nil {
			return nil, err
		}
		names = append(names, res.Keys...)
		cursor = res.Cursor
		scanned += q.count
		if cursor == 0 || int64(len(names)) >= q.count {
			break
		}
		if q.maxResults > 0 && scanned >= q.maxResults {
			break
		}
	}

	if cursor == 0 || scanned > total {
		scanned = total
	}
	out.cursor = cursor
	out.scanned = scanned
	if cursor != 0 {
		s.memo.put(memoKey(q.db, q.match, q.keyType, cursor), scanned)
	}

	out.keys, err = s.describe(ctx, client, names, q.keysInfo)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) lookupExact(ctx context.Context, client redis.Client, q scanQuery, total int64) (*scanOutcome, error) {
	out := &scanOutcome{total: total, scanned: total, keys: []connection.KeyInfo{}}
	name := string(connection.UnescapeGlob(q.match))

	exists, err := client.KeyExists(ctx, name)
	if err != nil || !exists {
		return out, err
	}
	if q.keyType != "" {
		typ, err := client.KeyType(ctx, name)
		if err != nil {
			return nil, err
		}
		if typ != q.keyType {
			return out, nil
		}
	}

	out.keys, err = s.describe(ctx, client, []string{name}, q.keysInfo)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) describe(ctx context.Context, client redis.Client, names []string, keysInfo bool) ([]connection.KeyInfo, error) {
	if keysInfo {
		return client.KeysInfo(ctx, names)
	}
	out := make([]connection.KeyInfo, len(names))
	for i, n := range names {
		out[i] = connection.KeyInfo{Name: connection.RedisString(n)}
	}
	return out, nil
}
