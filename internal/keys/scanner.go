package keys

import (
	"context"
	"time"

	"RedisVSCode-Webview/internal/api"
	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"
)

// KeysAPI is the part of the keys REST API the session needs
type KeysAPI interface {
	GetKeys(ctx context.Context, req connection.GetKeysRequest) ([]connection.ShardResponse, error)
	DeleteKeys(ctx context.Context, names []connection.RedisString) (*connection.DeleteKeysResponse, error)
	GetKeysMetadata(ctx context.Context, req connection.KeysMetadataRequest) ([]connection.KeyInfo, error)
}

// ScanHooks are optional callbacks of one scan. Source tags the telemetry
// event ("manual" when empty).
type ScanHooks struct {
	OnSuccess func(Page)
	OnFailure func(error)
	Source    string
}

// Scanner issues scan requests for one session and keeps at most one in flight.
type Scanner struct {
	store      *Store
	registry   *Registry
	client     KeysAPI
	notifier   Notifier
	telemetry  Telemetry
	databaseID string
}

func NewScanner(store *Store, registry *Registry, client KeysAPI, notifier Notifier, telemetry Telemetry, databaseID string) *Scanner {
	if telemetry == nil {
		telemetry = NopTelemetry
	}
	return &Scanner{
		store:      store,
		registry:   registry,
		client:     client,
		notifier:   notifier,
		telemetry:  telemetry,
		databaseID: databaseID,
	}
}

// StartScan requests one page starting at cursor. Cursor "0" starts a fresh
// listing; anything else continues the displayed one. A request superseded
// by a newer StartScan, cancelled or timed out returns nil without touching
// the listing. Other failures are reported to the notifier and returned.
func (s *Scanner) StartScan(ctx context.Context, cursor string, count int, hooks ScanHooks) error {
	s.registry.CancelIfPresent()
	tok := s.registry.Issue(ctx)
	defer s.registry.Release(tok)

	s.store.BeginScan()
	defer s.store.EndScan()

	st := s.store.Snapshot()
	req := connection.GetKeysRequest{
		Cursor:   cursor,
		Count:    count,
		Type:     st.Filter,
		Match:    st.Search,
		KeysInfo: false,
	}
	if req.Match == "" {
		req.Match = connection.DefaultMatch
	}

	started := time.Now()
	shards, err := s.client.GetKeys(tok.Context(), req)
	if err != nil {
		if api.IsCancel(err) || tok.IsCancelled() {
			logger.Debugf("扫描请求已取消：cursor=%s match=%s", cursor, req.Match)
			s.telemetry.ObserveScan(OutcomeCancelled, time.Since(started))
			return nil
		}
		s.telemetry.ObserveScan(OutcomeFailure, time.Since(started))
		logger.Error(err, "扫描 Key 失败：cursor=%s match=%s type=%s", cursor, req.Match, req.Type)
		s.notifier.Error(api.ErrorMessage(err))
		if hooks.OnFailure != nil {
			hooks.OnFailure(err)
		}
		return err
	}

	first := IsTerminalCursor(cursor)
	var page Page
	committed := s.registry.Commit(tok, func() {
		if first {
			page = ParsePage(nil, shards)
			s.store.CompleteFirstPage(page)
			return
		}
		page = ParsePage(s.store.Snapshot().ShardsMeta, shards)
		s.store.CompleteNextPage(page)
	})
	if !committed {
		logger.Debugf("丢弃过期的扫描结果：cursor=%s match=%s", cursor, req.Match)
		s.telemetry.ObserveScan(OutcomeCancelled, time.Since(started))
		return nil
	}

	s.telemetry.ObserveScan(OutcomeSuccess, time.Since(started))
	s.telemetry.SendEvent(s.scanEvent(first, req, page, hooks.Source))
	logger.Debugf("扫描完成：cursor=%s -> %s 本页=%d 已扫描=%d", cursor, page.Cursor, len(page.Keys), page.Scanned)

	if hooks.OnSuccess != nil {
		hooks.OnSuccess(page)
	}
	return nil
}

// CanLoadMore reports whether a continuation request would be issued
func (s *Scanner) CanLoadMore() bool {
	st := s.store.Snapshot()
	if !IsTerminalCursor(st.Cursor) {
		return true
	}
	return st.Total != nil && int64(len(st.Keys)) < *st.Total
}

// LoadMore continues the displayed listing. It is a no-op returning false
// when the scan is complete.
func (s *Scanner) LoadMore(ctx context.Context, count int) (bool, error) {
	if !s.CanLoadMore() {
		return false, nil
	}
	cursor := s.store.Snapshot().Cursor
	return true, s.StartScan(ctx, cursor, count, ScanHooks{})
}

func (s *Scanner) scanEvent(first bool, req connection.GetKeysRequest, page Page, source string) Event {
	var size int64
	if page.Total != nil {
		size = *page.Total
	}
	data := ScanEventData{
		DatabaseID:          s.databaseID,
		DatabaseSize:        size,
		NumberOfKeysScanned: page.Scanned,
		ScanCount:           req.Count,
	}
	if !first {
		return Event{Name: EventKeysAdditionallyScanned, Data: data}
	}

	search := req.Match
	if search == connection.DefaultMatch {
		search = ""
	}
	name, match := firstPageEvent(req.Type, search)
	data.KeyType = req.Type
	data.Match = match
	data.Source = source
	if data.Source == "" {
		data.Source = "manual"
	}
	return Event{Name: name, Data: data}
}
