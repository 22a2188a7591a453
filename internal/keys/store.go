package keys

import (
	"sync"
	"time"

	"RedisVSCode-Webview/internal/connection"
)

// State is a point-in-time copy of one browsing session's key listing.
type State struct {
	Loading  bool   `json:"loading"`
	Deleting bool   `json:"deleting"`
	Filter   string `json:"filter,omitempty"` // key type; empty means all types
	Search   string `json:"search,omitempty"` // glob; empty means match all

	Total               *int64                 `json:"total"`
	Scanned             int64                  `json:"scanned"`
	Cursor              string                 `json:"nextCursor"`
	Keys                []connection.KeyInfo   `json:"keys"`
	ShardsMeta          map[string]ShardMeta   `json:"shardsMeta"`
	PreviousResultCount int                    `json:"previousResultCount"`
	LastRefreshTime     *time.Time             `json:"lastRefreshTime"`
	MaxResults          *int64                 `json:"maxResults,omitempty"`
	SelectedKey         connection.RedisString `json:"selectedKey,omitempty"`
}

func initialState() State {
	return State{
		Cursor:     string(connection.TerminalCursor),
		Keys:       []connection.KeyInfo{},
		ShardsMeta: map[string]ShardMeta{},
	}
}

func (s State) clone() State {
	out := s
	out.Keys = append([]connection.KeyInfo(nil), s.Keys...)
	if out.Keys == nil {
		out.Keys = []connection.KeyInfo{}
	}
	out.ShardsMeta = make(map[string]ShardMeta, len(s.ShardsMeta))
	for id, m := range s.ShardsMeta {
		out.ShardsMeta[id] = m
	}
	if s.Total != nil {
		v := *s.Total
		out.Total = &v
	}
	if s.MaxResults != nil {
		v := *s.MaxResults
		out.MaxResults = &v
	}
	if s.LastRefreshTime != nil {
		v := *s.LastRefreshTime
		out.LastRefreshTime = &v
	}
	out.SelectedKey = append(connection.RedisString(nil), s.SelectedKey...)
	return out
}

// Store holds the key listing of one session. All transitions are
// synchronous and total; subscribers receive a snapshot after each one
// and must not mutate the store from the callback.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	state    State
	scans    int
	deletes  int
	subs     map[int]func(State)
	nextSub  int
	clock    func() time.Time
}

func NewStore() *Store {
	return &Store{
		state: initialState(),
		subs:  make(map[int]func(State)),
		clock: time.Now,
	}
}

// Snapshot returns a copy that is safe to keep and modify
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every future transition
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) update(fn func(st *State) bool) {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return
	}
	snap := s.state.clone()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	// hand over to notifyMu before releasing mu so snapshots arrive in order
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

// BeginScan marks a scan request in flight
func (s *Store) BeginScan() {
	s.update(func(st *State) bool {
		s.scans++
		st.Loading = true
		return true
	})
}

// EndScan pairs with BeginScan. Loading stays set while a newer scan is
// still in flight.
func (s *Store) EndScan() {
	s.update(func(st *State) bool {
		if s.scans > 0 {
			s.scans--
		}
		st.Loading = s.scans > 0
		return true
	})
}

// CompleteFirstPage replaces the listing with page
func (s *Store) CompleteFirstPage(page Page) {
	now := s.clock()
	s.update(func(st *State) bool {
		st.Keys = append([]connection.KeyInfo{}, page.Keys...)
		st.Total = copyInt64(page.Total)
		st.Scanned = page.Scanned
		st.Cursor = page.Cursor
		st.ShardsMeta = copyMeta(page.ShardsMeta)
		st.MaxResults = copyInt64(page.MaxResults)
		st.PreviousResultCount = len(page.Keys)
		st.LastRefreshTime = &now
		return true
	})
}

// CompleteNextPage appends page to the listing. The caller guarantees that
// page continues the scan currently displayed.
func (s *Store) CompleteNextPage(page Page) {
	s.update(func(st *State) bool {
		st.Keys = append(st.Keys, page.Keys...)
		st.Total = copyInt64(page.Total)
		st.Scanned = page.Scanned
		st.Cursor = page.Cursor
		st.ShardsMeta = copyMeta(page.ShardsMeta)
		st.PreviousResultCount = len(page.Keys)
		return true
	})
}

// RemoveKey drops the first key whose name equals name byte for byte.
// It reports whether a key was removed.
func (s *Store) RemoveKey(name connection.RedisString) bool {
	removed := false
	s.update(func(st *State) bool {
		for i, k := range st.Keys {
			if !k.Name.Equal(name) {
				continue
			}
			st.Keys = append(st.Keys[:i:i], st.Keys[i+1:]...)
			if st.Total != nil {
				v := *st.Total - 1
				if v < 0 {
					v = 0
				}
				st.Total = &v
			}
			st.Scanned--
			if st.Scanned < 0 {
				st.Scanned = 0
			}
			removed = true
			return true
		}
		return false
	})
	return removed
}

func (s *Store) SetFilter(keyType string) {
	s.update(func(st *State) bool {
		st.Filter = keyType
		return true
	})
}

func (s *Store) SetSearch(pattern string) {
	s.update(func(st *State) bool {
		st.Search = pattern
		return true
	})
}

func (s *Store) BeginDelete() {
	s.update(func(st *State) bool {
		s.deletes++
		st.Deleting = true
		return true
	})
}

func (s *Store) EndDelete() {
	s.update(func(st *State) bool {
		if s.deletes > 0 {
			s.deletes--
		}
		st.Deleting = s.deletes > 0
		return true
	})
}

// SelectKey records the key shown in the details panel and reports
// whether the selection changed.
func (s *Store) SelectKey(name connection.RedisString) bool {
	changed := false
	s.update(func(st *State) bool {
		if st.SelectedKey != nil && st.SelectedKey.Equal(name) {
			return false
		}
		st.SelectedKey = append(connection.RedisString(nil), name...)
		changed = true
		return true
	})
	return changed
}

// ApplyMetadata copies type, TTL, size and length onto the listed keys of
// the same name and reports how many were updated. Names no longer listed
// are ignored.
func (s *Store) ApplyMetadata(infos []connection.KeyInfo) int {
	updated := 0
	s.update(func(st *State) bool {
		index := make(map[string]int, len(st.Keys))
		for i, k := range st.Keys {
			if _, ok := index[string(k.Name)]; !ok {
				index[string(k.Name)] = i
			}
		}
		for _, info := range infos {
			i, ok := index[string(info.Name)]
			if !ok {
				continue
			}
			k := &st.Keys[i]
			if info.Type != "" {
				k.Type = info.Type
			}
			if info.TTL != nil {
				k.TTL = copyInt64(info.TTL)
			}
			if info.Size != nil {
				k.Size = copyInt64(info.Size)
			}
			if info.Length != nil {
				k.Length = copyInt64(info.Length)
			}
			updated++
		}
		return updated > 0
	})
	return updated
}

// Restore loads a persisted listing. Busy flags are not restored.
func (s *Store) Restore(saved State) {
	s.update(func(st *State) bool {
		restored := saved.clone()
		restored.Loading = s.scans > 0
		restored.Deleting = s.deletes > 0
		if restored.Cursor == "" {
			restored.Cursor = string(connection.TerminalCursor)
		}
		*st = restored
		return true
	})
}

// Reset returns to the empty listing, keeping filter and search
func (s *Store) Reset() {
	s.update(func(st *State) bool {
		fresh := initialState()
		fresh.Filter = st.Filter
		fresh.Search = st.Search
		fresh.Loading = s.scans > 0
		fresh.Deleting = s.deletes > 0
		*st = fresh
		return true
	})
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyMeta(m map[string]ShardMeta) map[string]ShardMeta {
	out := make(map[string]ShardMeta, len(m))
	for id, v := range m {
		out[id] = v
	}
	return out
}
