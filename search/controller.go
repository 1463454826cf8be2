// Package search turns keystrokes into debounced name searches and keeps the list of
// recent search terms.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"chopfinder/models"
	"chopfinder/restaurants"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	MaxSuggestions  = 5
)

type Options struct {
	Debounce  time.Duration
	Scheduler Scheduler
	Logger    *log.Logger
	// Context is used for searches started by the debounce timer.
	Context context.Context
}

// Controller is the search state of one discovery session.
type Controller struct {
	source    restaurants.Source
	recents   *Recents
	debouncer *Debouncer[string]
	logger    *log.Logger
	ctx       context.Context

	mu        sync.Mutex
	typed     string
	committed string
	searching bool
	results   []models.Restaurant
	err       error
	gen       uint64
	listeners []func(ctx context.Context, term string)
}

func NewController(source restaurants.Source, recents *Recents, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	c := &Controller{
		source:  source,
		recents: recents,
		logger:  opts.Logger.WithPrefix("search"),
		ctx:     opts.Context,
	}
	c.debouncer = NewDebouncer(opts.Debounce, opts.Scheduler, func(term string) {
		c.Commit(c.ctx, term)
	})
	return c
}

// OnCommit registers fn to run after every commit with the committed term.
func (c *Controller) OnCommit(fn func(ctx context.Context, term string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// SetQuery updates the typed value at once and commits it after the quiet period.
func (c *Controller) SetQuery(raw string) {
	c.mu.Lock()
	c.typed = raw
	c.mu.Unlock()
	c.debouncer.Trigger(raw)
}

// Submit commits raw immediately, cancelling any pending debounced commit.
func (c *Controller) Submit(ctx context.Context, raw string) {
	c.debouncer.Stop()
	c.mu.Lock()
	c.typed = raw
	c.mu.Unlock()
	c.Commit(ctx, raw)
}

// Commit makes term the committed query, searches for it and, when the search found
// anything, records it as a recent search. Listeners run after the search.
func (c *Controller) Commit(ctx context.Context, term string) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.committed = term
	c.results = nil
	c.err = nil
	trimmed := strings.TrimSpace(term)
	c.searching = trimmed != ""
	listeners := append([]func(context.Context, string){}, c.listeners...)
	c.mu.Unlock()

	if trimmed != "" {
		c.search(ctx, gen, trimmed)
	}
	for _, fn := range listeners {
		fn(ctx, term)
	}
}

func (c *Controller) search(ctx context.Context, gen uint64, term string) {
	list, err := c.source.SearchByName(ctx, term)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.searching = false
	c.results, c.err = list, err
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("search failed", "term", term, "err", err)
		return
	}
	if len(list) > 0 {
		c.recents.Add(ctx, term)
	}
}

// Committed returns the debounced search term.
func (c *Controller) Committed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// Suggestions lists up to MaxSuggestions names from the committed results. It is empty
// when the search failed or found nothing.
func (c *Controller) Suggestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suggestionsLocked()
}

func (c *Controller) suggestionsLocked() []string {
	out := []string{}
	if c.err != nil {
		return out
	}
	for _, r := range c.results[:min(len(c.results), MaxSuggestions)] {
		out = append(out, r.Name)
	}
	return out
}

func (c *Controller) Recents() *Recents {
	return c.recents
}

// Close cancels a pending commit.
func (c *Controller) Close() {
	c.debouncer.Stop()
}

type Snapshot struct {
	Query          string              `json:"query"`
	DebouncedQuery string              `json:"debouncedQuery"`
	Searching      bool                `json:"isSearching"`
	Results        []models.Restaurant `json:"results"`
	Suggestions    []string            `json:"suggestions"`
	RecentSearches []string            `json:"recentSearches"`
	Err            error               `json:"-"`
}

func (c *Controller) Snapshot(ctx context.Context) Snapshot {
	recent := c.recents.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	results := append([]models.Restaurant{}, c.results...)
	return Snapshot{
		Query:          c.typed,
		DebouncedQuery: c.committed,
		Searching:      c.searching,
		Results:        results,
		Suggestions:    c.suggestionsLocked(),
		RecentSearches: recent,
		Err:            c.err,
	}
}
