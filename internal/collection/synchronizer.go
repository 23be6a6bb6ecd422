// Package collection keeps a client-side page of documents in step with the
// store. Only the newest request's answer is ever applied.
package collection

import (
	"context"
	"log/slog"
	"sync"

	"docflow/internal/model"
)

// Fetcher reads one page from the store.
type Fetcher interface {
	List(ctx context.Context, q model.PageQuery) (*model.Page, error)
}

// Snapshot is the observable state of a Synchronizer.
type Snapshot struct {
	Query   model.PageQuery
	Page    model.Page
	Loading bool
	// Err is set, wrapping model.ErrFetchFailed, when the last load failed.
	Err error
}

func (s Snapshot) FetchFailed() bool {
	return s.Err != nil
}

// Pages is the number of pages the full result set spans.
func (s Snapshot) Pages() int {
	if s.Query.Size <= 0 || s.Page.Count <= 0 {
		return 0
	}
	return (s.Page.Count + s.Query.Size - 1) / s.Query.Size
}

type Synchronizer struct {
	fetcher Fetcher
	logger  *slog.Logger

	// emitMu serializes observer delivery so Dispose can wait it out.
	emitMu sync.Mutex

	mu        sync.Mutex
	query     model.PageQuery
	page      model.Page
	loading   bool
	err       error
	gen       uint64
	cancel    context.CancelFunc
	observers map[int]func(Snapshot)
	nextID    int
	disposed  bool

	root     context.Context
	stopRoot context.CancelFunc
	wg       sync.WaitGroup
}

type Option func(*Synchronizer)

func WithPageSize(n int) Option {
	return func(s *Synchronizer) { s.query.Size = n }
}

func WithSort(sort string) Option {
	return func(s *Synchronizer) { s.query.Sort = sort }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an idle Synchronizer holding an empty page. Nothing is
// fetched until a parameter changes or Refresh is called.
func New(f Fetcher, opts ...Option) *Synchronizer {
	root, stop := context.WithCancel(context.Background())
	s := &Synchronizer{
		fetcher:   f,
		logger:    slog.Default(),
		page:      model.EmptyPage(),
		observers: make(map[int]func(Snapshot)),
		root:      root,
		stopRoot:  stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.query = s.query.Normalize()
	return s
}

// Subscribe registers fn for every applied state change. Observers run
// serially and must not call back into the Synchronizer synchronously.
func (s *Synchronizer) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	results := make([]model.Document, len(s.page.Results))
	copy(results, s.page.Results)
	return Snapshot{
		Query:   s.query,
		Page:    model.Page{Count: s.page.Count, Results: results},
		Loading: s.loading,
		Err:     s.err,
	}
}

// SetPage selects the 0-based page index and reloads.
func (s *Synchronizer) SetPage(i int) {
	s.SetPagination(i, 0)
}

// SetPageSize changes the page size and reloads. The page index is kept.
func (s *Synchronizer) SetPageSize(n int) {
	s.mu.Lock()
	i := s.query.Page
	s.mu.Unlock()
	s.SetPagination(i, n)
}

// SetPagination sets index and size together. A size of 0 keeps the current one.
func (s *Synchronizer) SetPagination(i, n int) {
	s.SetQuery(model.PageQuery{Page: i, Size: n})
}

// SetQuery replaces index, size and sort together and issues a single
// load. A zero Size or an empty Sort keeps the current value.
func (s *Synchronizer) SetQuery(q model.PageQuery) {
	s.mu.Lock()
	s.query.Page = q.Page
	if q.Size != 0 {
		s.query.Size = q.Size
	}
	if q.Sort != "" {
		s.query.Sort = q.Sort
	}
	s.query = s.query.Normalize()
	s.mu.Unlock()
	s.load()
}

func (s *Synchronizer) SetSort(sort string) {
	s.mu.Lock()
	s.query.Sort = sort
	s.mu.Unlock()
	s.load()
}

// Refresh re-fetches the current parameters.
func (s *Synchronizer) Refresh() {
	s.load()
}

// ShowFirstPage moves to page 0 and reloads.
func (s *Synchronizer) ShowFirstPage() {
	s.SetPage(0)
}

// Seed applies an already fetched page for the current parameters,
// superseding any load in flight.
func (s *Synchronizer) Seed(p model.Page) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.supersedeLocked()
	if p.Results == nil {
		p.Results = []model.Document{}
	}
	s.page = p
	s.loading = false
	s.err = nil
	gen := s.gen
	s.mu.Unlock()
	s.emit(gen)
}

// Wait blocks until loads started so far have settled.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

// Dispose cancels outstanding loads. No observer runs once Dispose returns.
// It must not be called from an observer.
func (s *Synchronizer) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.observers = map[int]func(Snapshot){}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stopRoot()
	s.mu.Unlock()

	// Drain a delivery already under way.
	s.emitMu.Lock()
	s.emitMu.Unlock()
}

func (s *Synchronizer) supersedeLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Synchronizer) load() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.supersedeLocked()
	ctx, cancel := context.WithCancel(s.root)
	s.cancel = cancel
	s.loading = true
	gen, q := s.gen, s.query
	s.wg.Add(1)
	s.mu.Unlock()

	s.emit(gen)
	go s.fetch(ctx, cancel, gen, q)
}

func (s *Synchronizer) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, q model.PageQuery) {
	defer s.wg.Done()
	defer cancel()

	page, err := s.fetcher.List(ctx, q)

	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("collection_load_discarded", "page", q.Page, "size", q.Size)
		return
	}
	s.cancel = nil
	s.loading = false
	if err != nil {
		s.page = model.EmptyPage()
		s.err = model.WrapError(model.ErrFetchFailed, "list documents", err)
		s.mu.Unlock()
		s.logger.Warn("collection_load_failed", "page", q.Page, "size", q.Size, "error", err.Error())
		s.emit(gen)
		return
	}
	if page == nil {
		page = &model.Page{}
	}
	if page.Results == nil {
		page.Results = []model.Document{}
	}
	s.page = *page
	s.err = nil
	s.mu.Unlock()
	s.emit(gen)
}

// emit delivers the current state unless a newer generation has started.
func (s *Synchronizer) emit(gen uint64) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.disposed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
