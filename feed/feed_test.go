package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chopfinder/models"
	"chopfinder/restaurants"
)

// scriptedSource answers from a fixed catalog, optionally failing or blocking.
type scriptedSource struct {
	mu       sync.Mutex
	inner    restaurants.Source
	calls    []restaurants.Query
	bypassed []bool
	failures int
	gates    map[string]chan struct{}
	started  chan string
}

func newScripted(data []models.Restaurant) *scriptedSource {
	return &scriptedSource{
		inner:   restaurants.NewMockSource(data, 0),
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

// hold makes fetches for search term blocks until release is called.
func (s *scriptedSource) hold(search string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[search] = ch
	s.mu.Unlock()
	return func() { close(ch) }
}

func (s *scriptedSource) FetchPage(ctx context.Context, q restaurants.Query) (models.Page, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q)
	s.bypassed = append(s.bypassed, restaurants.CacheBypassed(ctx))
	gate := s.gates[q.Search]
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	s.started <- q.Search
	if gate != nil {
		<-gate
	}
	if fail {
		return models.Page{}, fmt.Errorf("%w: %w", restaurants.ErrFetchFailed, errors.New("unavailable"))
	}
	return s.inner.FetchPage(ctx, q)
}

func (s *scriptedSource) SearchByName(ctx context.Context, term string) ([]models.Restaurant, error) {
	return s.inner.SearchByName(ctx, term)
}

func (s *scriptedSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func catalog(n int) []models.Restaurant {
	out := make([]models.Restaurant, n)
	for i := range out {
		out[i] = models.Restaurant{
			ID:         fmt.Sprintf("r-%02d", i),
			Name:       fmt.Sprintf("Place %d", i),
			Cuisine:    []string{"Nigerian"},
			Rating:     5 - float64(i)/100,
			PriceRange: models.PriceBudget,
			IsOpen:     true,
		}
	}
	return out
}

func testOptions(now *time.Time) Options {
	opts := DefaultOptions()
	opts.PageSize = 4
	opts.RetryDelay = 0
	if now != nil {
		opts.Now = func() time.Time { return *now }
	}
	return opts
}

func restaurantIDs(list []models.Restaurant) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func TestSetQueryLoadsFirstPage(t *testing.T) {
	src := newScripted(catalog(10))
	f := New(src, testOptions(nil))
	assert.Equal(t, StatusIdle, f.Snapshot().Status)

	require.NoError(t, f.SetQuery(context.Background(), restaurants.Query{}))
	snap := f.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, []string{"r-00", "r-01", "r-02", "r-03"}, restaurantIDs(snap.Restaurants))
	assert.True(t, snap.HasMore)
	assert.False(t, snap.Fetching)
	assert.Equal(t, 4, src.calls[0].PageSize)
}

func TestSetQuerySameIdentityIsNoop(t *testing.T) {
	src := newScripted(catalog(10))
	f := New(src, testOptions(nil))
	ctx := context.Background()

	require.NoError(t, f.SetQuery(ctx, restaurants.Query{Search: "place"}))
	require.NoError(t, f.SetQuery(ctx, restaurants.Query{Search: " PLACE ", Cursor: "ignored"}))
	assert.Equal(t, 1, src.callCount())
}

func TestLoadMoreAppendsUntilExhausted(t *testing.T) {
	src := newScripted(catalog(10))
	f := New(src, testOptions(nil))
	ctx := context.Background()

	require.NoError(t, f.LoadMore(ctx), "idle feed ignores LoadMore")
	assert.Equal(t, 0, src.callCount())

	require.NoError(t, f.SetQuery(ctx, restaurants.Query{}))
	require.NoError(t, f.LoadMore(ctx))
	require.NoError(t, f.LoadMore(ctx))
	snap := f.Snapshot()
	assert.Len(t, snap.Restaurants, 10)
	assert.False(t, snap.HasMore)
	assert.Equal(t, "r-03", src.calls[1].Cursor)
	assert.Equal(t, "r-07", src.calls[2].Cursor)

	require.NoError(t, f.LoadMore(ctx))
	assert.Equal(t, 3, src.callCount(), "no fetch after the last page")
}

func TestLoadMoreWhileInFlightIsNoop(t *testing.T) {
	src := newScripted(catalog(12))
	f := New(src, testOptions(nil))
	ctx := context.Background()
	require.NoError(t, f.SetQuery(ctx, restaurants.Query{}))
	<-src.started

	release := src.hold("")
	done := make(chan error, 1)
	go func() { done <- f.LoadMore(ctx) }()
	<-src.started

	assert.Equal(t, StatusLoadingNext, f.Snapshot().Status)
	assert.True(t, f.Snapshot().Fetching)
	require.NoError(t, f.LoadMore(ctx))
	assert.Equal(t, 2, src.callCount())

	release()
	require.NoError(t, <-done)
	assert.Len(t, f.Snapshot().Restaurants, 8)
}

func TestSupersededResultIsDiscarded(t *testing.T) {
	src := newScripted(catalog(10))
	f := New(src, testOptions(nil))
	ctx := context.Background()

	release := src.hold("slow")
	done := make(chan error, 1)
	go func() { done <- f.SetQuery(ctx, restaurants.Query{Search: "slow"}) }()
	<-src.started

	require.NoError(t, f.SetQuery(ctx, restaurants.Query{Search: "place 1"}))
	<-src.started
	release()
	require.NoError(t, <-done)

	snap := f.Snapshot()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, []string{"r-01"}, restaurantIDs(snap.Restaurants))
	assert.Equal(t, "place 1", f.Query().Search)
}

func TestRetriesThenSucceeds(t *testing.T) {
	src := newScripted(catalog(10))
	src.failures = 2
	f := New(src, testOptions(nil))

	require.NoError(t, f.SetQuery(context.Background(), restaurants.Query{}))
	assert.Equal(t, 3, src.callCount())
	assert.Equal(t, StatusReady, f.Snapshot().Status)
}

func TestRetriesExhaustedEndsInError(t *testing.T) {
	src := newScripted(catalog(10))
	src.failures = 3
	f := New(src, testOptions(nil))

	err := f.SetQuery(context.Background(), restaurants.Query{})
	assert.ErrorIs(t, err, restaurants.ErrFetchFailed)
	assert.Equal(t, 3, src.callCount())

	snap := f.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.ErrorIs(t, snap.Err, restaurants.ErrFetchFailed)
	assert.Empty(t, snap.Restaurants)

	require.NoError(t, f.Refresh(context.Background()))
	assert.Equal(t, StatusReady, f.Snapshot().Status)
}

func TestRetryStopsWhenContextEnds(t *testing.T) {
	src := newScripted(catalog(10))
	src.failures = 5
	opts := testOptions(nil)
	opts.RetryDelay = time.Hour
	f := New(src, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := f.SetQuery(ctx, restaurants.Query{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, src.callCount())
}

func TestStaleWindowServesRepeatIdentities(t *testing.T) {
	now := time.Unix(0, 0)
	src := newScripted(catalog(10))
	f := New(src, testOptions(&now))
	ctx := context.Background()
	a := restaurants.Query{SortBy: models.SortRating}
	b := restaurants.Query{SortBy: models.SortPrice}

	require.NoError(t, f.SetQuery(ctx, a))
	require.NoError(t, f.LoadMore(ctx))
	require.NoError(t, f.SetQuery(ctx, b))
	now = now.Add(4 * time.Minute)
	require.NoError(t, f.SetQuery(ctx, a))
	assert.Equal(t, 3, src.callCount())
	assert.Len(t, f.Snapshot().Restaurants, 8, "both cached pages are adopted")

	now = now.Add(2 * time.Minute)
	require.NoError(t, f.SetQuery(ctx, b))
	assert.Equal(t, 4, src.callCount(), "entry older than the stale time is refetched")
}

func TestRefreshBypassesStalenessAndCache(t *testing.T) {
	src := newScripted(catalog(10))
	f := New(src, testOptions(nil))
	ctx := context.Background()

	require.NoError(t, f.SetQuery(ctx, restaurants.Query{}))
	require.NoError(t, f.LoadMore(ctx))
	require.NoError(t, f.Refresh(ctx))

	assert.Equal(t, 3, src.callCount())
	assert.Equal(t, []bool{false, false, true}, src.bypassed)
	assert.Equal(t, "", src.calls[2].Cursor)
	assert.Len(t, f.Snapshot().Restaurants, 4, "refresh keeps only the first page")
}

func TestLoadMoreAfterRefreshSkipsPageCache(t *testing.T) {
	src := newScripted(catalog(10))
	f := New(src, testOptions(nil))
	ctx := context.Background()

	require.NoError(t, f.SetQuery(ctx, restaurants.Query{}))
	require.NoError(t, f.Refresh(ctx))
	require.NoError(t, f.LoadMore(ctx))
	assert.Equal(t, []bool{false, true, true}, src.bypassed)

	require.NoError(t, f.SetQuery(ctx, restaurants.Query{Search: "place"}))
	require.NoError(t, f.LoadMore(ctx))
	assert.Equal(t, []bool{false, true, true, false, false}, src.bypassed, "a new identity reads through the cache again")
}

func TestDistanceSortIsPageLocal(t *testing.T) {
	origin := models.Coordinate{Latitude: 0, Longitude: 0}
	data := []models.Restaurant{
		{ID: "p1-far", Location: models.Coordinate{Latitude: 3}},
		{ID: "p1-near", Location: models.Coordinate{Latitude: 1}},
		{ID: "p2-far", Location: models.Coordinate{Latitude: 4}},
		{ID: "p2-nearest", Location: models.Coordinate{Latitude: 0.5}},
	}
	src := newScripted(data)
	opts := testOptions(nil)
	opts.PageSize = 2
	f := New(src, opts)
	ctx := context.Background()

	// The mock sorts globally when it gets a location; drop it on the way in so the
	// backend behaves like one that cannot order by distance.
	src.inner = stripLocation{src.inner}
	require.NoError(t, f.SetQuery(ctx, restaurants.Query{SortBy: models.SortDistance, Location: &origin}))
	require.NoError(t, f.LoadMore(ctx))

	assert.Equal(t, []string{"p1-near", "p1-far", "p2-nearest", "p2-far"}, restaurantIDs(f.Snapshot().Restaurants))
}

func TestDistanceSortWithoutLocationKeepsOrder(t *testing.T) {
	data := []models.Restaurant{
		{ID: "b", Location: models.Coordinate{Latitude: 3}},
		{ID: "a", Location: models.Coordinate{Latitude: 1}},
	}
	f := New(newScripted(data), testOptions(nil))
	require.NoError(t, f.SetQuery(context.Background(), restaurants.Query{SortBy: models.SortDistance}))
	assert.Equal(t, []string{"b", "a"}, restaurantIDs(f.Snapshot().Restaurants))
}

type stripLocation struct{ restaurants.Source }

func (s stripLocation) FetchPage(ctx context.Context, q restaurants.Query) (models.Page, error) {
	q.Location = nil
	return s.Source.FetchPage(ctx, q)
}
