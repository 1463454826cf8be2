// Package restaurants is the catalog query adapter. Every backend implements Source with
// the same filtering, sorting and cursor semantics.
package restaurants

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"chopfinder/models"
)

// DefaultPageSize is used when a query does not name one.
const DefaultPageSize = 20

// SearchLimit caps the result of SearchByName.
const SearchLimit = 10

var (
	ErrFetchFailed  = errors.New("failed to fetch restaurants, please try again")
	ErrSearchFailed = errors.New("search failed, please try again")
)

// Query is one page request against the catalog.
type Query struct {
	Filter   models.RestaurantFilter
	SortBy   models.SortOption
	Search   string
	Cursor   string
	PageSize int
	Location *models.Coordinate
}

// Source is a restaurant backend.
type Source interface {
	// FetchPage returns the page of restaurants following q.Cursor. Any backend failure
	// is reported wrapped in ErrFetchFailed.
	FetchPage(ctx context.Context, q Query) (models.Page, error)
	// SearchByName returns at most SearchLimit restaurants whose name or cuisine
	// contains term. A blank term yields an empty list.
	SearchByName(ctx context.Context, term string) ([]models.Restaurant, error)
}

// Writer stores restaurants in a backend, replacing documents with the same id.
type Writer interface {
	Upsert(ctx context.Context, list []models.Restaurant) error
}

func (q Query) pageSize() int {
	if q.PageSize <= 0 {
		return DefaultPageSize
	}
	return q.PageSize
}

func (q Query) sortBy() models.SortOption {
	if q.SortBy == "" {
		return models.SortRating
	}
	return q.SortBy
}

// Key identifies the query's result set: filters, sort, search term and location. The
// cursor and page size are not part of it.
func (q Query) Key() string {
	var b strings.Builder
	f := q.Filter
	writeSet(&b, "c", f.Cuisine)
	prices := make([]string, 0, len(f.PriceRange))
	for _, p := range f.PriceRange {
		prices = append(prices, strconv.Itoa(int(p)))
	}
	writeSet(&b, "p", prices)
	writeSet(&b, "d", f.DietaryOptions)
	if f.HasMinRating() {
		fmt.Fprintf(&b, "r=%g;", *f.MinRating)
	}
	if f.HasMaxDeliveryTime() {
		fmt.Fprintf(&b, "t=%d;", *f.MaxDeliveryTime)
	}
	if f.IsOpen != nil {
		fmt.Fprintf(&b, "o=%t;", *f.IsOpen)
	}
	fmt.Fprintf(&b, "s=%s;q=%s;", q.sortBy(), normalizeTerm(q.Search))
	if q.Location != nil {
		fmt.Fprintf(&b, "l=%s;", q.Location)
	}
	return b.String()
}

// PageKey identifies a single page of the query.
func (q Query) PageKey() string {
	return fmt.Sprintf("%sn=%d;after=%s", q.Key(), q.pageSize(), q.Cursor)
}

func writeSet(b *strings.Builder, name string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	fmt.Fprintf(b, "%s=%s;", name, strings.Join(sorted, ","))
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

type ctxKey int

const noCacheKey ctxKey = iota

// WithoutCache marks ctx so cached sources skip their read path. Fresh results are
// still written back.
func WithoutCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey, true)
}

// CacheBypassed reports whether ctx was marked with WithoutCache.
func CacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(noCacheKey).(bool)
	return v
}

func fetchError(err error) error {
	if errors.Is(err, ErrFetchFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}

func searchError(err error) error {
	if errors.Is(err, ErrSearchFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSearchFailed, err)
}

// newPage applies the page-size heuristic: a full page may have more after it, and
// only then is the last id handed out as the next cursor.
func newPage(data []models.Restaurant, lastID string, pageSize, fetched int) models.Page {
	if data == nil {
		data = []models.Restaurant{}
	}
	p := models.Page{Data: data, HasMore: fetched == pageSize && lastID != ""}
	if p.HasMore {
		id := lastID
		p.NextCursor = &id
	}
	return p
}
