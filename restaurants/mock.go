package restaurants

import (
	"context"
	"slices"
	"sync"
	"time"

	"chopfinder/models"
)

// MockSource serves an in-memory catalog, optionally with simulated network latency.
type MockSource struct {
	mu      sync.RWMutex
	data    []models.Restaurant
	latency time.Duration
}

// NewMockSource serves data in the given order. A nil slice serves the bundled
// Dataset.
func NewMockSource(data []models.Restaurant, latency time.Duration) *MockSource {
	if data == nil {
		data = Dataset()
	}
	return &MockSource{data: data, latency: latency}
}

func (m *MockSource) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FetchPage applies search, then filters, then sort, then slices after the cursor.
// An unknown cursor starts from the beginning.
func (m *MockSource) FetchPage(ctx context.Context, q Query) (page models.Page, err error) {
	defer func(start time.Time) { observe("mock", "fetch", start, err) }(time.Now())

	if err := m.wait(ctx, m.latency); err != nil {
		return models.Page{}, fetchError(err)
	}

	m.mu.RLock()
	list := Sort(Filter(m.data, q.Search, q.Filter), q.sortBy(), q.Location)
	m.mu.RUnlock()

	start := 0
	if q.Cursor != "" {
		start = slices.IndexFunc(list, func(r models.Restaurant) bool { return r.ID == q.Cursor }) + 1
	}
	size := q.pageSize()
	end := min(start+size, len(list))
	data := slices.Clone(list[start:end])

	lastID := ""
	if len(data) > 0 {
		lastID = data[len(data)-1].ID
	}
	return newPage(data, lastID, size, len(data)), nil
}

func (m *MockSource) SearchByName(ctx context.Context, term string) (list []models.Restaurant, err error) {
	defer func(start time.Time) { observe("mock", "search", start, err) }(time.Now())

	if normalizeTerm(term) == "" {
		return []models.Restaurant{}, nil
	}
	if err := m.wait(ctx, m.latency*2/3); err != nil {
		return nil, searchError(err)
	}
	m.mu.RLock()
	found := Filter(m.data, term, models.RestaurantFilter{})
	m.mu.RUnlock()
	return found[:min(len(found), SearchLimit)], nil
}

// Upsert replaces restaurants with matching ids and appends new ones. It lets the mock
// backend stand in for a seeding target.
func (m *MockSource) Upsert(_ context.Context, list []models.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range list {
		if i := slices.IndexFunc(m.data, func(x models.Restaurant) bool { return x.ID == r.ID }); i >= 0 {
			m.data[i] = r
		} else {
			m.data = append(m.data, r)
		}
	}
	return nil
}
