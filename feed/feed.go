// Package feed aggregates catalog pages for one query identity at a time. It owns the
// cursor, the in-flight guard, retries and a per-identity cache of loaded pages.
package feed

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chopfinder/geo"
	"chopfinder/models"
	"chopfinder/restaurants"
)

type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusLoadingNext Status = "loadingNext"
	StatusRefreshing  Status = "refreshing"
	StatusError       Status = "error"
)

var (
	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chopfinder_feed_retries_total",
		Help: "The total number of retried page fetches",
	})
	staleDiscards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chopfinder_feed_discarded_total",
		Help: "The total number of page results discarded because the query changed",
	})
)

type Options struct {
	PageSize   int
	StaleTime  time.Duration
	Retries    int
	RetryDelay time.Duration
	Now        func() time.Time
	Logger     *log.Logger
}

// DefaultOptions are the production settings: 20 per page, 5 minute staleness, two
// retries starting at one second.
func DefaultOptions() Options {
	return Options{
		PageSize:   restaurants.DefaultPageSize,
		StaleTime:  5 * time.Minute,
		Retries:    2,
		RetryDelay: time.Second,
	}
}

type cached struct {
	pages     []models.Page
	fetchedAt time.Time
}

// Feed is the paginated fetch orchestrator of one discovery session.
type Feed struct {
	source restaurants.Source
	opts   Options
	logger *log.Logger
	retry  RetryConfig

	mu       sync.Mutex
	query    restaurants.Query
	status   Status
	pages    []models.Page
	err      error
	gen      uint64
	inFlight bool
	// refreshed makes later pages of a refreshed identity skip the page cache too.
	refreshed bool
	cache     map[string]cached
}

func New(source restaurants.Source, opts Options) *Feed {
	if opts.PageSize <= 0 {
		opts.PageSize = restaurants.DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	logger := opts.Logger.WithPrefix("feed")
	return &Feed{
		source: source,
		opts:   opts,
		logger: logger,
		retry: RetryConfig{
			Retries:   opts.Retries,
			BaseDelay: opts.RetryDelay,
			Logger:    logger,
			OnRetry:   fetchRetries.Inc,
		},
		status: StatusIdle,
		cache:  make(map[string]cached),
	}
}

// Snapshot is a read-only view of the feed.
type Snapshot struct {
	Status      Status              `json:"status"`
	Restaurants []models.Restaurant `json:"restaurants"`
	HasMore     bool                `json:"hasMore"`
	Fetching    bool                `json:"isFetching"`
	Err         error               `json:"-"`
}

func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Snapshot{
		Status:      f.status,
		Restaurants: []models.Restaurant{},
		Fetching:    f.inFlight,
		Err:         f.err,
	}
	for _, p := range f.pages {
		s.Restaurants = append(s.Restaurants, p.Data...)
	}
	if n := len(f.pages); n > 0 {
		s.HasMore = f.pages[n-1].HasMore
	}
	return s
}

// Query returns the current query identity.
func (f *Feed) Query() restaurants.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query
}

// SetQuery switches the feed to q's identity and loads its first page, or adopts the
// cached pages when they are younger than the staleness window. Setting the identity
// the feed already holds does nothing. The returned error is the fetch failure, if
// the result was still current when it arrived.
func (f *Feed) SetQuery(ctx context.Context, q restaurants.Query) error {
	q.Cursor = ""
	q.PageSize = f.opts.PageSize
	key := q.Key()

	f.mu.Lock()
	if f.status != StatusIdle && key == f.query.Key() {
		f.mu.Unlock()
		return nil
	}
	f.gen++
	gen := f.gen
	f.query = q
	f.pages = nil
	f.err = nil
	f.refreshed = false

	if c, ok := f.cache[key]; ok && f.opts.Now().Sub(c.fetchedAt) < f.opts.StaleTime {
		f.pages = slices.Clone(c.pages)
		f.status = StatusReady
		f.inFlight = false
		f.mu.Unlock()
		f.logger.Debug("adopted cached pages", "key", key, "pages", len(c.pages))
		return nil
	}
	f.status = StatusLoading
	f.inFlight = true
	f.mu.Unlock()

	page, err := f.fetch(ctx, q)
	return f.apply(gen, q, page, err, true)
}

// LoadMore fetches the page after the last one. It does nothing unless the feed is
// ready, the last page reported more, and no fetch is in flight.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	n := len(f.pages)
	if f.status != StatusReady || f.inFlight || n == 0 || !f.pages[n-1].HasMore || f.pages[n-1].NextCursor == nil {
		f.mu.Unlock()
		return nil
	}
	gen := f.gen
	q := f.query
	q.Cursor = *f.pages[n-1].NextCursor
	f.status = StatusLoadingNext
	f.inFlight = true
	if f.refreshed {
		ctx = restaurants.WithoutCache(ctx)
	}
	f.mu.Unlock()

	page, err := f.fetch(ctx, q)
	return f.apply(gen, q, page, err, false)
}

// Refresh drops the loaded pages and refetches the first one, skipping both the
// staleness window and any page cache behind the source. It is allowed from the ready
// and error states.
func (f *Feed) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.status != StatusReady && f.status != StatusError {
		f.mu.Unlock()
		return nil
	}
	f.gen++
	gen := f.gen
	q := f.query
	f.status = StatusRefreshing
	f.inFlight = true
	f.refreshed = true
	f.err = nil
	f.mu.Unlock()

	page, err := f.fetch(restaurants.WithoutCache(ctx), q)
	return f.apply(gen, q, page, err, true)
}

func (f *Feed) fetch(ctx context.Context, q restaurants.Query) (models.Page, error) {
	var page models.Page
	err := f.retry.Do(ctx, "fetch page", func(ctx context.Context) error {
		var err error
		page, err = f.source.FetchPage(ctx, q)
		return err
	})
	return page, err
}

func (f *Feed) apply(gen uint64, q restaurants.Query, page models.Page, err error, replace bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.gen {
		staleDiscards.Inc()
		f.logger.Debug("discarded stale page", "key", q.Key(), "cursor", q.Cursor)
		return nil
	}
	f.inFlight = false
	if err != nil {
		f.logger.Error("fetch failed", "key", q.Key(), "cursor", q.Cursor, "err", err)
		if replace {
			f.pages = nil
		}
		f.status = StatusError
		f.err = err
		return err
	}

	if q.SortBy == models.SortDistance && q.Location != nil {
		page.Data = geo.SortByDistance(page.Data, q.Location)
	}
	if replace {
		f.pages = nil
	}
	f.pages = append(f.pages, page)
	f.status = StatusReady
	f.err = nil
	f.store(q.Key())
	return nil
}

// store records the loaded pages for key and drops expired entries. Callers hold mu.
func (f *Feed) store(key string) {
	now := f.opts.Now()
	for k, c := range f.cache {
		if now.Sub(c.fetchedAt) >= f.opts.StaleTime {
			delete(f.cache, k)
		}
	}
	f.cache[key] = cached{pages: slices.Clone(f.pages), fetchedAt: now}
}
