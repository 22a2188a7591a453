package keys

import (
	"fmt"
	"sort"
	"strings"

	"RedisVSCode-Webview/internal/connection"
)

// ShardMeta is the last known scan position of one shard
type ShardMeta struct {
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
	Cursor  string `json:"cursor"`
	Total   int64  `json:"total"`
	Scanned int64  `json:"scanned"`
}

// Page is one merged response of the keys endpoint
type Page struct {
	Cursor     string
	Total      *int64
	Scanned    int64
	Keys       []connection.KeyInfo
	ShardsMeta map[string]ShardMeta
	MaxResults *int64
}

// IsTerminalCursor reports whether cursor is the start/end sentinel
func IsTerminalCursor(cursor string) bool {
	return cursor == string(connection.TerminalCursor)
}

// ParsePage merges the per-shard responses of one request. prev holds the
// shard positions of the page being continued and is nil for a first page.
func ParsePage(prev map[string]ShardMeta, shards []connection.ShardResponse) Page {
	meta := make(map[string]ShardMeta, len(prev)+len(shards))
	for id, m := range prev {
		meta[id] = m
	}

	page := Page{Keys: []connection.KeyInfo{}}
	for _, sh := range shards {
		meta[shardID(sh.Host, sh.Port)] = ShardMeta{
			Host:    sh.Host,
			Port:    sh.Port,
			Cursor:  string(sh.Cursor),
			Total:   sh.Total,
			Scanned: sh.Scanned,
		}
		page.Keys = append(page.Keys, sh.Keys...)
		if page.MaxResults == nil && sh.MaxResults != nil {
			v := *sh.MaxResults
			page.MaxResults = &v
		}
	}
	page.ShardsMeta = meta

	if len(meta) == 0 {
		page.Cursor = string(connection.TerminalCursor)
		return page
	}

	var total int64
	for _, m := range meta {
		total += m.Total
		page.Scanned += m.Scanned
	}
	page.Total = &total
	page.Cursor = nextCursor(meta)
	return page
}

func shardID(host string, port int) string {
	if host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// nextCursor is the bare cursor for a standalone database and
// "host:port@cursor" tokens joined by "||" for unfinished cluster shards.
func nextCursor(meta map[string]ShardMeta) string {
	if m, ok := meta[""]; ok && len(meta) == 1 {
		return m.Cursor
	}

	ids := make([]string, 0, len(meta))
	for id, m := range meta {
		if id == "" || IsTerminalCursor(m.Cursor) {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return string(connection.TerminalCursor)
	}
	sort.Strings(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id + "@" + meta[id].Cursor
	}
	return strings.Join(parts, "||")
}
