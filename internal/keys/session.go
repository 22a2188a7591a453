package keys

import "context"

const (
	// DefaultPageSize is the page size of searches and "load more"
	DefaultPageSize = 500
	// DefaultTreePageSize is the page size of a full tree refresh
	DefaultTreePageSize = 10000
)

type Options struct {
	PageSize     int
	TreePageSize int
	DatabaseID   string
}

// Session is the state of one browsing session: created empty on connect,
// replaced on filter/search change, appended to on load more.
type Session struct {
	Store    *Store
	Registry *Registry
	Scanner  *Scanner
	Deleter  *Deleter
	Metadata *MetadataFetcher

	opts Options
}

func NewSession(client KeysAPI, notifier Notifier, telemetry Telemetry, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.TreePageSize <= 0 {
		opts.TreePageSize = DefaultTreePageSize
	}
	store := NewStore()
	registry := &Registry{}
	return &Session{
		Store:    store,
		Registry: registry,
		Scanner:  NewScanner(store, registry, client, notifier, telemetry, opts.DatabaseID),
		Deleter:  NewDeleter(store, client, notifier, telemetry),
		Metadata: NewMetadataFetcher(store, client),
		opts:     opts,
	}
}

func (s *Session) Options() Options { return s.opts }

// Refresh rescans from the beginning with the tree page size
func (s *Session) Refresh(ctx context.Context, source string) error {
	return s.Scanner.StartScan(ctx, "0", s.opts.TreePageSize, ScanHooks{Source: source})
}

// Search replaces the match pattern and starts a fresh listing
func (s *Session) Search(ctx context.Context, pattern string) error {
	s.Store.SetSearch(pattern)
	return s.Scanner.StartScan(ctx, "0", s.opts.PageSize, ScanHooks{})
}

// Filter replaces the type restriction and starts a fresh listing
func (s *Session) Filter(ctx context.Context, keyType string) error {
	s.Store.SetFilter(keyType)
	return s.Scanner.StartScan(ctx, "0", s.opts.PageSize, ScanHooks{})
}

func (s *Session) LoadMore(ctx context.Context) (bool, error) {
	return s.Scanner.LoadMore(ctx, s.opts.PageSize)
}

// FillMetadata loads metadata of every listed key that has no type yet, in
// batches of the page size. It stops at the first failed batch.
func (s *Session) FillMetadata(ctx context.Context) error {
	names := MissingMetadata(s.Store.Snapshot())
	for len(names) > 0 {
		n := min(len(names), s.opts.PageSize)
		if err := s.Metadata.Fetch(ctx, names[:n], MetadataHooks{}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		names = names[n:]
	}
	return nil
}

// Close cancels the outstanding scan and metadata requests, if any
func (s *Session) Close() {
	s.Registry.CancelIfPresent()
	s.Metadata.Cancel()
}
