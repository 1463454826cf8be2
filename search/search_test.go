package search

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chopfinder/models"
	"chopfinder/restaurants"
	"chopfinder/storage"
)

// fakeClock is a Scheduler whose time only moves through Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
	}
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func TestDebounceFiresOnceWithLastValue(t *testing.T) {
	clock := &fakeClock{}
	type fire struct {
		at    time.Duration
		value string
	}
	var fires []fire
	d := NewDebouncer(300*time.Millisecond, clock, func(v string) {
		fires = append(fires, fire{clock.Now(), v})
	})

	d.Trigger("a")
	clock.Advance(100 * time.Millisecond)
	d.Trigger("ab")
	clock.Advance(150 * time.Millisecond)
	d.Trigger("abc")
	clock.Advance(299 * time.Millisecond)
	assert.Empty(t, fires, "nothing fires before the quiet period ends")
	assert.True(t, d.Pending())

	clock.Advance(time.Millisecond)
	clock.Advance(time.Second)
	require.Len(t, fires, 1)
	assert.Equal(t, 550*time.Millisecond, fires[0].at)
	assert.Equal(t, "abc", fires[0].value)
	assert.False(t, d.Pending())
}

func TestDebounceStop(t *testing.T) {
	clock := &fakeClock{}
	fired := 0
	d := NewDebouncer(300*time.Millisecond, clock, func(string) { fired++ })
	d.Trigger("a")
	d.Stop()
	clock.Advance(time.Second)
	assert.Equal(t, 0, fired)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, error) { return "", errors.New("disk on fire") }
func (failingKV) Set(context.Context, string, string) error    { return errors.New("disk on fire") }
func (failingKV) Delete(context.Context, string) error         { return errors.New("disk on fire") }

func TestRecentsCaseInsensitiveMoveToFront(t *testing.T) {
	ctx := context.Background()
	r := NewRecents(storage.NewMemoryStore(), log.Default())

	r.Add(ctx, "Pizza")
	got := r.Add(ctx, "pizza")
	assert.Equal(t, []string{"pizza"}, got)

	r.Add(ctx, "suya")
	got = r.Add(ctx, "PIZZA")
	assert.Equal(t, []string{"PIZZA", "suya"}, got)
	assert.Equal(t, got, r.List(ctx))
}

func TestRecentsCapAndPersistence(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	r := NewRecents(kv, log.Default())
	for _, term := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		r.Add(ctx, term)
	}
	want := []string{"l", "k", "j", "i", "h", "g", "f", "e", "d", "c"}
	assert.Equal(t, want, r.List(ctx))

	raw, err := kv.Get(ctx, RecentSearchesKey)
	require.NoError(t, err)
	assert.JSONEq(t, `["l","k","j","i","h","g","f","e","d","c"]`, raw)

	assert.Equal(t, []string{"l", "j", "i", "h", "g", "f", "e", "d", "c"}, r.Remove(ctx, "k"))
	assert.Len(t, r.Remove(ctx, "K"), 9, "removal is an exact match")

	r.Clear(ctx)
	_, err = kv.Get(ctx, RecentSearchesKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, r.List(ctx))
}

func TestRecentsStorageFailuresReadAsEmpty(t *testing.T) {
	ctx := context.Background()
	r := NewRecents(failingKV{}, log.Default())
	assert.Empty(t, r.List(ctx))
	assert.Equal(t, []string{"pizza"}, r.Add(ctx, "pizza"))
	r.Clear(ctx)

	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, RecentSearchesKey, "{not json"))
	assert.Empty(t, NewRecents(kv, log.Default()).List(ctx))
}

type stubSource struct {
	mu    sync.Mutex
	terms []string
	err   error
}

func (s *stubSource) FetchPage(context.Context, restaurants.Query) (models.Page, error) {
	return models.Page{}, nil
}

func (s *stubSource) SearchByName(ctx context.Context, term string) ([]models.Restaurant, error) {
	s.mu.Lock()
	s.terms = append(s.terms, term)
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return restaurants.NewMockSource(nil, 0).SearchByName(ctx, term)
}

func newController(src restaurants.Source, clock Scheduler) (*Controller, *storage.MemoryStore) {
	kv := storage.NewMemoryStore()
	c := NewController(src, NewRecents(kv, log.Default()), Options{Scheduler: clock, Logger: log.Default()})
	return c, kv
}

func TestControllerDebouncesToOneSearch(t *testing.T) {
	clock := &fakeClock{}
	src := &stubSource{}
	c, _ := newController(src, clock)

	var committed []string
	c.OnCommit(func(_ context.Context, term string) { committed = append(committed, term) })

	c.SetQuery("s")
	c.SetQuery("su")
	c.SetQuery("suy")
	snap := c.Snapshot(context.Background())
	assert.Equal(t, "suy", snap.Query)
	assert.Equal(t, "", snap.DebouncedQuery)

	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, []string{"suy"}, src.terms)
	assert.Equal(t, []string{"suy"}, committed)

	snap = c.Snapshot(context.Background())
	assert.Equal(t, "suy", snap.DebouncedQuery)
	assert.False(t, snap.Searching)
	assert.Len(t, snap.Suggestions, MaxSuggestions)
	assert.Equal(t, "Suya Palace", snap.Suggestions[0])
	assert.Equal(t, []string{"suy"}, snap.RecentSearches)
}

func TestControllerNoResultsIsNotRecorded(t *testing.T) {
	c, _ := newController(&stubSource{}, &fakeClock{})
	c.Submit(context.Background(), "zzzz")
	snap := c.Snapshot(context.Background())
	assert.Empty(t, snap.Results)
	assert.Empty(t, snap.Suggestions)
	assert.Empty(t, snap.RecentSearches)
	assert.NoError(t, snap.Err)
}

func TestControllerBlankCommitSkipsSearch(t *testing.T) {
	src := &stubSource{}
	c, _ := newController(src, &fakeClock{})
	called := false
	c.OnCommit(func(context.Context, string) { called = true })

	c.Submit(context.Background(), "   ")
	assert.Empty(t, src.terms)
	assert.True(t, called, "listeners still learn the search was cleared")
	assert.False(t, c.Snapshot(context.Background()).Searching)
}

func TestControllerSearchFailure(t *testing.T) {
	src := &stubSource{err: restaurants.ErrSearchFailed}
	c, _ := newController(src, &fakeClock{})
	c.Submit(context.Background(), "kiwi")

	snap := c.Snapshot(context.Background())
	assert.ErrorIs(t, snap.Err, restaurants.ErrSearchFailed)
	assert.Empty(t, snap.Suggestions)
	assert.Empty(t, snap.RecentSearches)
}

func TestControllerSubmitCancelsPendingCommit(t *testing.T) {
	clock := &fakeClock{}
	src := &stubSource{}
	c, _ := newController(src, clock)

	c.SetQuery("jol")
	c.Submit(context.Background(), "kiwi")
	clock.Advance(time.Second)

	assert.Equal(t, []string{"kiwi"}, src.terms)
	assert.Equal(t, "kiwi", c.Committed())
	assert.Equal(t, []string{"Sweet Kiwi Cafe"}, c.Suggestions())
}
