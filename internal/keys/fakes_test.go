package keys

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RedisVSCode-Webview/internal/connection"
)

type getKeysCall struct {
	req  connection.GetKeysRequest
	ctx  context.Context
	resp chan getKeysResult
}

type getKeysResult struct {
	shards []connection.ShardResponse
	err    error
}

// fakeAPI answers GetKeys from a queue of canned results, or hands the call
// to the test through calls when blocking is set.
type fakeAPI struct {
	mu        sync.Mutex
	requests  []connection.GetKeysRequest
	results   []getKeysResult
	blocking  bool
	calls     chan *getKeysCall
	deleteErr error
	deleted   [][]connection.RedisString

	metaRequests []connection.KeysMetadataRequest
	metaErr      error
	// metaGate, when set, holds metadata requests until it is closed or the
	// request is cancelled
	metaGate chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(chan *getKeysCall, 8)}
}

func (f *fakeAPI) queue(shards []connection.ShardResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, getKeysResult{shards: shards, err: err})
}

func (f *fakeAPI) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeAPI) GetKeys(ctx context.Context, req connection.GetKeysRequest) ([]connection.ShardResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	blocking := f.blocking
	var res getKeysResult
	if !blocking {
		if len(f.results) == 0 {
			f.mu.Unlock()
			return nil, fmt.Errorf("unexpected request %+v", req)
		}
		res = f.results[0]
		f.results = f.results[1:]
	}
	f.mu.Unlock()

	if !blocking {
		return res.shards, res.err
	}
	call := &getKeysCall{req: req, ctx: ctx, resp: make(chan getKeysResult, 1)}
	f.calls <- call
	res = <-call.resp
	return res.shards, res.err
}

func (f *fakeAPI) DeleteKeys(ctx context.Context, names []connection.RedisString) (*connection.DeleteKeysResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, names)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &connection.DeleteKeysResponse{Affected: int64(len(names))}, nil
}

// GetKeysMetadata reports every key as a hash whose length is the name length
func (f *fakeAPI) GetKeysMetadata(ctx context.Context, req connection.KeysMetadataRequest) ([]connection.KeyInfo, error) {
	f.mu.Lock()
	f.metaRequests = append(f.metaRequests, req)
	gate, err := f.metaGate, f.metaErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]connection.KeyInfo, len(req.Keys))
	for i, name := range req.Keys {
		out[i] = connection.KeyInfo{Name: name, Type: "hash", TTL: int64p(-1), Length: int64p(int64(len(name)))}
	}
	return out, nil
}

func (f *fakeAPI) metaRequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.metaRequests)
}

type recordingNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

type recordingTelemetry struct {
	mu      sync.Mutex
	events  []Event
	scans   []Outcome
	deletes []Outcome
}

func (r *recordingTelemetry) SendEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingTelemetry) ObserveScan(o Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, o)
}

func (r *recordingTelemetry) ObserveDelete(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, o)
}

func makeKeys(prefix string, n int) []connection.KeyInfo {
	out := make([]connection.KeyInfo, n)
	for i := range out {
		out[i] = connection.KeyInfo{Name: connection.RedisString(fmt.Sprintf("%s%d", prefix, i)), Type: "string"}
	}
	return out
}

func shard(cursor string, total, scanned int64, keys []connection.KeyInfo) []connection.ShardResponse {
	return []connection.ShardResponse{{Cursor: connection.Cursor(cursor), Total: total, Scanned: scanned, Keys: keys}}
}

func int64p(v int64) *int64 { return &v }
