package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"

	"chopfinder/discovery"
	"chopfinder/geo"
	"chopfinder/restaurants"
	"chopfinder/storage"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Source   restaurants.Source
	Sessions *discovery.Registry
	Storage  storage.KV
	Locator  geo.Locator
	Logger   *log.Logger
}

// Register mounts every API route on mux.
func Register(mux *http.ServeMux, d Deps) {
	if d.Locator == nil {
		d.Locator = geo.NoopLocator{}
	}
	logger := d.Logger.WithPrefix("http")

	mux.HandleFunc("GET /api/restaurants", RestaurantsHandler(d.Source, d.Locator, logger))
	mux.HandleFunc("GET /api/search", SearchHandler(d.Source, logger))
	mux.HandleFunc("GET /api/cuisines", CuisinesHandler())
	mux.HandleFunc("GET /api/dietary-options", DietaryOptionsHandler())
	mux.HandleFunc("GET /api/price-ranges", PriceRangesHandler())
	mux.HandleFunc("GET /api/sort-options", SortOptionsHandler())
	mux.HandleFunc("GET /api/location", LocationHandler(d.Locator, logger))

	mux.HandleFunc("POST /api/sessions", CreateSessionHandler(d.Sessions, d.Locator, logger))
	mux.HandleFunc("GET /api/sessions/{id}", GetSessionHandler(d.Sessions))
	mux.HandleFunc("DELETE /api/sessions/{id}", DeleteSessionHandler(d.Sessions))
	mux.HandleFunc("POST /api/sessions/{id}/filters", UpdateFiltersHandler(d.Sessions, logger))
	mux.HandleFunc("DELETE /api/sessions/{id}/filters", ResetFiltersHandler(d.Sessions, logger))
	mux.HandleFunc("DELETE /api/sessions/{id}/filters/{tag}", RemoveFilterTagHandler(d.Sessions, logger))
	mux.HandleFunc("PUT /api/sessions/{id}/sort", SetSortHandler(d.Sessions, logger))
	mux.HandleFunc("PUT /api/sessions/{id}/location", SetLocationHandler(d.Sessions, logger))
	mux.HandleFunc("DELETE /api/sessions/{id}/location", SetLocationHandler(d.Sessions, logger))
	mux.HandleFunc("PUT /api/sessions/{id}/query", SetQueryHandler(d.Sessions, logger))
	mux.HandleFunc("POST /api/sessions/{id}/more", LoadMoreHandler(d.Sessions, logger))
	mux.HandleFunc("POST /api/sessions/{id}/refresh", RefreshHandler(d.Sessions, logger))
	mux.HandleFunc("GET /api/sessions/{id}/recent", RecentSearchesHandler(d.Sessions))
	mux.HandleFunc("DELETE /api/sessions/{id}/recent", ClearRecentSearchesHandler(d.Sessions))
	mux.HandleFunc("DELETE /api/sessions/{id}/recent/{term}", RemoveRecentSearchHandler(d.Sessions))

	mux.HandleFunc("GET /api/preferences/theme", ThemeHandler(d.Storage, logger))
	mux.HandleFunc("PUT /api/preferences/theme", SaveThemeHandler(d.Storage, logger))
}
