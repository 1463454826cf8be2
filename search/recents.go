package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"chopfinder/storage"
)

const (
	RecentSearchesKey = "@recent_searches"
	MaxRecentSearches = 10
)

// Recents is the most-recent-first list of search terms that returned results. Storage
// failures are logged and read as an empty list.
type Recents struct {
	kv     storage.KV
	logger *log.Logger
	mu     sync.Mutex
}

func NewRecents(kv storage.KV, logger *log.Logger) *Recents {
	return &Recents{kv: kv, logger: logger.WithPrefix("recents")}
}

func (r *Recents) List(ctx context.Context) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Add moves term to the front, dropping any entry equal to it ignoring case, and keeps
// the newest MaxRecentSearches.
func (r *Recents) Add(ctx context.Context, term string) []string {
	term = strings.TrimSpace(term)
	if term == "" {
		return r.List(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list := []string{term}
	for _, s := range r.load(ctx) {
		if !strings.EqualFold(s, term) {
			list = append(list, s)
		}
	}
	if len(list) > MaxRecentSearches {
		list = list[:MaxRecentSearches]
	}
	r.save(ctx, list)
	return list
}

// Remove deletes entries exactly equal to term.
func (r *Recents) Remove(ctx context.Context, term string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := []string{}
	for _, s := range r.load(ctx) {
		if s != term {
			list = append(list, s)
		}
	}
	r.save(ctx, list)
	return list
}

// Clear removes the stored list.
func (r *Recents) Clear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.kv.Delete(ctx, RecentSearchesKey); err != nil {
		r.logger.Error("failed to clear recent searches", "err", err)
	}
}

func (r *Recents) load(ctx context.Context) []string {
	raw, err := r.kv.Get(ctx, RecentSearchesKey)
	if errors.Is(err, storage.ErrNotFound) {
		return []string{}
	}
	if err != nil {
		r.logger.Error("failed to load recent searches", "err", err)
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		r.logger.Error("malformed recent searches", "err", err)
		return []string{}
	}
	if list == nil {
		list = []string{}
	}
	return list
}

func (r *Recents) save(ctx context.Context, list []string) {
	data, err := json.Marshal(list)
	if err != nil {
		r.logger.Error("failed to encode recent searches", "err", err)
		return
	}
	if err := r.kv.Set(ctx, RecentSearchesKey, string(data)); err != nil {
		r.logger.Error("failed to save recent searches", "err", err)
	}
}
