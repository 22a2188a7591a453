package keys

import (
	"context"

	"RedisVSCode-Webview/internal/api"
	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"
)

// MetadataHooks are optional callbacks of one metadata request
type MetadataHooks struct {
	OnSuccess func([]connection.KeyInfo)
	OnFailure func(error)
}

// MetadataFetcher loads type, TTL, size and length of listed keys. It has
// its own cancellation slot, so it never cancels a pending scan and a scan
// never cancels it.
type MetadataFetcher struct {
	store    *Store
	registry *Registry
	client   KeysAPI
}

func NewMetadataFetcher(store *Store, client KeysAPI) *MetadataFetcher {
	return &MetadataFetcher{store: store, registry: &Registry{}, client: client}
}

// Fetch requests metadata of names and merges it into the listing. A newer
// Fetch cancels this one. Failures are logged and passed to OnFailure but not
// shown to the user; cancellation is silent.
func (m *MetadataFetcher) Fetch(ctx context.Context, names []connection.RedisString, hooks MetadataHooks) error {
	if len(names) == 0 {
		return nil
	}
	tok := m.registry.Issue(ctx)
	defer m.registry.Release(tok)

	req := connection.KeysMetadataRequest{
		Keys: names,
		Type: m.store.Snapshot().Filter,
	}
	infos, err := m.client.GetKeysMetadata(tok.Context(), req)
	if err != nil {
		if api.IsCancel(err) || tok.IsCancelled() {
			logger.Debugf("Key 元数据请求已取消：count=%d", len(names))
			return nil
		}
		logger.Error(err, "获取 Key 元数据失败：count=%d", len(names))
		if hooks.OnFailure != nil {
			hooks.OnFailure(err)
		}
		return err
	}

	updated := 0
	if !m.registry.Commit(tok, func() { updated = m.store.ApplyMetadata(infos) }) {
		logger.Debugf("丢弃过期的 Key 元数据：count=%d", len(infos))
		return nil
	}
	logger.Debugf("Key 元数据已更新：请求=%d 更新=%d", len(names), updated)
	if hooks.OnSuccess != nil {
		hooks.OnSuccess(infos)
	}
	return nil
}

// Cancel aborts the outstanding metadata request, if any
func (m *MetadataFetcher) Cancel() {
	m.registry.CancelIfPresent()
}

// MissingMetadata lists the names of keys whose type is not known yet
func MissingMetadata(st State) []connection.RedisString {
	var out []connection.RedisString
	for _, k := range st.Keys {
		if k.Type == "" {
			out = append(out, k.Name)
		}
	}
	return out
}
