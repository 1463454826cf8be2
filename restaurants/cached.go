package restaurants

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"chopfinder/cache"
	"chopfinder/models"
)

// Cache key prefixes. Purging PagePrefix and SearchPrefix drops everything a Cached
// source stored.
const (
	PagePrefix   = "chopfinder:page:"
	SearchPrefix = "chopfinder:search:"
)

// Cached serves repeated identical requests from a cache for the staleness window.
type Cached struct {
	next   Source
	store  cache.Cache
	pages  *cache.Helper[models.Page]
	search *cache.Helper[[]models.Restaurant]
	logger *log.Logger
}

func NewCached(next Source, store cache.Cache, ttl time.Duration, logger *log.Logger) *Cached {
	c := &Cached{
		next:   next,
		store:  store,
		pages:  cache.NewHelper[models.Page](store, ttl),
		search: cache.NewHelper[[]models.Restaurant](store, ttl),
		logger: logger.WithPrefix("cache"),
	}
	c.pages.OnError = c.writeFailed
	c.search.OnError = c.writeFailed
	return c
}

func (c *Cached) writeFailed(key string, err error) {
	c.logger.Warn("cache write failed", "key", key, "err", err)
}

// FetchPage skips the cache read when ctx was marked with WithoutCache; the fresh page
// replaces the cached one.
func (c *Cached) FetchPage(ctx context.Context, q Query) (models.Page, error) {
	key := PagePrefix + q.PageKey()
	if CacheBypassed(ctx) {
		page, err := c.next.FetchPage(ctx, q)
		if err == nil {
			if err := c.store.Set(ctx, key, page, c.pages.TTL); err != nil {
				c.writeFailed(key, err)
			}
		}
		return page, err
	}
	return c.pages.Handle(ctx, key, func() (models.Page, error) {
		return c.next.FetchPage(ctx, q)
	})
}

func (c *Cached) SearchByName(ctx context.Context, term string) ([]models.Restaurant, error) {
	if normalizeTerm(term) == "" {
		return []models.Restaurant{}, nil
	}
	key := SearchPrefix + normalizeTerm(term)
	if CacheBypassed(ctx) {
		return c.next.SearchByName(ctx, term)
	}
	return c.search.Handle(ctx, key, func() ([]models.Restaurant, error) {
		return c.next.SearchByName(ctx, term)
	})
}

// Purge drops every cached page and search result.
func (c *Cached) Purge(ctx context.Context) error {
	if err := c.store.Purge(ctx, PagePrefix); err != nil {
		return err
	}
	return c.store.Purge(ctx, SearchPrefix)
}
