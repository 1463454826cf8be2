// Package discovery composes the filter store, the search controller and the feed into
// per-client sessions.
package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"chopfinder/feed"
	"chopfinder/filters"
	"chopfinder/models"
	"chopfinder/restaurants"
	"chopfinder/search"
)

// Session is one client's discovery state. Every filter, sort, location or committed
// search change recomposes the feed query.
type Session struct {
	ID       string
	DeviceID string

	Filters *filters.Store
	Search  *search.Controller
	Feed    *feed.Feed

	logger *log.Logger
	cancel context.CancelFunc

	mu       sync.Mutex
	location *models.Coordinate
	lastUsed time.Time
}

// View is everything a client renders for a session.
type View struct {
	ID               string                    `json:"id"`
	Filters          models.FilterState        `json:"filters"`
	Tags             []filters.ActiveFilterTag `json:"activeFilters"`
	HasActiveFilters bool                      `json:"hasActiveFilters"`
	Location         *models.Coordinate        `json:"location"`
	Feed             feed.Snapshot             `json:"feed"`
	Search           search.Snapshot           `json:"search"`
}

// Query composes the current feed query.
func (s *Session) Query() restaurants.Query {
	state := s.Filters.State()
	s.mu.Lock()
	loc := s.location
	s.mu.Unlock()
	return restaurants.Query{
		Filter:   s.Filters.Filter(),
		SortBy:   state.SortBy,
		Search:   s.Search.Committed(),
		Location: loc,
	}
}

// syncAttempts bounds how often Sync re-reads state that changed while the feed was
// switching.
const syncAttempts = 3

// Sync points the feed at the current query. It is a no-op when the identity did not
// change. A concurrent update can change the state after the query was built, so Sync
// repeats until the identity it set still matches the state.
func (s *Session) Sync(ctx context.Context) error {
	var err error
	for range syncAttempts {
		q := s.Query()
		err = s.Feed.SetQuery(ctx, q)
		if s.Query().Key() == q.Key() {
			return err
		}
	}
	s.logger.Warn("feed sync did not settle", "session", s.ID)
	return err
}

// Update applies fn to the filter store and syncs the feed.
func (s *Session) Update(ctx context.Context, fn func(*filters.Store)) error {
	fn(s.Filters)
	return s.Sync(ctx)
}

// RemoveTag undoes an active filter tag. It reports whether the tag existed.
func (s *Session) RemoveTag(ctx context.Context, id string) (bool, error) {
	if !s.Filters.RemoveTag(id) {
		return false, nil
	}
	return true, s.Sync(ctx)
}

// SetLocation replaces the user coordinate; nil forgets it.
func (s *Session) SetLocation(ctx context.Context, loc *models.Coordinate) error {
	s.mu.Lock()
	if loc != nil {
		c := *loc
		loc = &c
	}
	s.location = loc
	s.mu.Unlock()
	return s.Sync(ctx)
}

func (s *Session) Location() *models.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return nil
	}
	c := *s.location
	return &c
}

// SetQuery records a keystroke; the feed follows once the search commits.
func (s *Session) SetQuery(raw string) {
	s.Search.SetQuery(raw)
}

// SubmitQuery commits raw at once and syncs the feed before returning.
func (s *Session) SubmitQuery(ctx context.Context, raw string) {
	s.Search.Submit(ctx, raw)
}

func (s *Session) LoadMore(ctx context.Context) error {
	return s.Feed.LoadMore(ctx)
}

func (s *Session) Refresh(ctx context.Context) error {
	return s.Feed.Refresh(ctx)
}

func (s *Session) View(ctx context.Context) View {
	tags := s.Filters.Tags()
	return View{
		ID:               s.ID,
		Filters:          s.Filters.State(),
		Tags:             tags,
		HasActiveFilters: len(tags) > 0,
		Location:         s.Location(),
		Feed:             s.Feed.Snapshot(),
		Search:           s.Search.Snapshot(ctx),
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) close() {
	s.Search.Close()
	s.cancel()
}

// onCommit follows committed searches with the feed.
func (s *Session) onCommit(ctx context.Context, term string) {
	if err := s.Sync(ctx); err != nil {
		s.logger.Warn("feed sync after search failed", "session", s.ID, "term", term, "err", err)
	}
}
