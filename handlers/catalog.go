package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/schema"

	"chopfinder/geo"
	"chopfinder/models"
	"chopfinder/restaurants"
)

const MaxPageSize = 100

// CatalogParams are the query parameters of the stateless catalog endpoint. List
// parameters may repeat or carry comma separated values.
type CatalogParams struct {
	Cuisine     []string `schema:"cuisine"`
	Price       []string `schema:"price"`
	MinRating   float64  `schema:"minRating"`
	MaxDelivery int      `schema:"maxDelivery"`
	Dietary     []string `schema:"dietary"`
	Open        string   `schema:"open"`
	Sort        string   `schema:"sort"`
	Query       string   `schema:"q"`
	Cursor      string   `schema:"cursor"`
	Size        int      `schema:"size"`
}

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseCatalogParams turns catalog query parameters into a restaurants query. The
// caller location is resolved separately.
func ParseCatalogParams(query url.Values) (restaurants.Query, error) {
	var p CatalogParams
	if err := decoder.Decode(&p, query); err != nil {
		return restaurants.Query{}, err
	}

	q := restaurants.Query{
		Search: strings.TrimSpace(p.Query),
		Cursor: p.Cursor,
	}

	sortBy, err := models.ParseSortOption(p.Sort)
	if err != nil {
		return restaurants.Query{}, err
	}
	q.SortBy = sortBy

	q.PageSize = p.Size
	if q.PageSize <= 0 {
		q.PageSize = restaurants.DefaultPageSize
	}
	q.PageSize = min(q.PageSize, MaxPageSize)

	q.Filter.Cuisine = splitList(p.Cuisine)
	q.Filter.DietaryOptions = splitList(p.Dietary)
	for _, s := range splitList(p.Price) {
		n, err := strconv.Atoi(s)
		if err != nil || !models.PriceTier(n).Valid() {
			return restaurants.Query{}, fmt.Errorf("invalid price tier %q", s)
		}
		q.Filter.PriceRange = append(q.Filter.PriceRange, models.PriceTier(n))
	}
	if p.MinRating > 0 {
		v := p.MinRating
		q.Filter.MinRating = &v
	}
	if p.MaxDelivery > 0 {
		v := p.MaxDelivery
		q.Filter.MaxDeliveryTime = &v
	}
	if p.Open != "" {
		open, err := strconv.ParseBool(p.Open)
		if err != nil {
			return restaurants.Query{}, fmt.Errorf("invalid open flag %q", p.Open)
		}
		q.Filter.IsOpen = &open
	}
	return q, nil
}

// RestaurantsHandler serves one catalog page. The distance sort is applied to the page
// using the caller location from lat/lon or GeoIP.
func RestaurantsHandler(source restaurants.Source, locator geo.Locator, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := ParseCatalogParams(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		loc, err := geo.FromRequest(r, locator, logger)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid coordinates")
			return
		}
		q.Location = loc

		page, err := source.FetchPage(r.Context(), q)
		if err != nil {
			logger.Error("catalog fetch failed", "query", q.Key(), "err", err)
			writeError(w, http.StatusBadGateway, LoadFailedMessage)
			return
		}
		if q.SortBy == models.SortDistance && loc != nil {
			page.Data = geo.SortByDistance(page.Data, loc)
		}
		if page.Data == nil {
			page.Data = []models.Restaurant{}
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// SearchHandler serves typeahead results for ?q=.
func SearchHandler(source restaurants.Source, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("q")
		list, err := source.SearchByName(r.Context(), term)
		if err != nil {
			logger.Error("search failed", "term", term, "err", err)
			writeError(w, http.StatusBadGateway, SearchFailedMessage)
			return
		}
		if list == nil {
			list = []models.Restaurant{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
