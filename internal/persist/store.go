package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"RedisVSCode-Webview/internal/keys"
	"RedisVSCode-Webview/internal/logger"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load for an unknown snapshot name
var ErrNotFound = errors.New("快照不存在")

const schema = `CREATE TABLE IF NOT EXISTS kv (
	name       TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store keeps named key listing snapshots in a sqlite file
type Store struct {
	conn *sql.DB
}

// Open opens (and creates) the sqlite file at path
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("创建状态目录失败：%w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开状态库失败：%w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化状态库失败：%w", err)
	}
	return &Store{conn: db}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Save writes st under name, replacing any previous snapshot
func (s *Store) Save(ctx context.Context, name string, st keys.State) error {
	st.Loading = false
	st.Deleting = false
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("序列化快照失败：%w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO kv (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, b, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("保存快照失败：%w", err)
	}
	logger.Debugf("已保存快照：name=%s keys=%d", name, len(st.Keys))
	return nil
}

// Load reads the snapshot saved under name
func (s *Store) Load(ctx context.Context, name string) (keys.State, error) {
	var b []byte
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE name = ?`, name).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return keys.State{}, ErrNotFound
	}
	if err != nil {
		return keys.State{}, fmt.Errorf("读取快照失败：%w", err)
	}

	var st keys.State
	if err := json.Unmarshal(b, &st); err != nil {
		return keys.State{}, fmt.Errorf("解析快照失败：%w", err)
	}
	return st, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kv WHERE name = ?`, name); err != nil {
		return fmt.Errorf("删除快照失败：%w", err)
	}
	return nil
}
