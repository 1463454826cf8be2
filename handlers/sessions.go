package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"chopfinder/discovery"
	"chopfinder/filters"
	"chopfinder/geo"
	"chopfinder/models"
)

type sessionResponse struct {
	discovery.View
	FeedError   string `json:"feedError,omitempty"`
	SearchError string `json:"searchError,omitempty"`
}

type sessionHandlerFunc func(w http.ResponseWriter, r *http.Request, s *discovery.Session)

func withSession(reg *discovery.Registry, fn sessionHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := reg.Get(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		fn(w, r, s)
	}
}

func respondSession(ctx context.Context, w http.ResponseWriter, s *discovery.Session, status int) {
	v := s.View(ctx)
	writeJSON(w, status, sessionResponse{
		View:        v,
		FeedError:   userMessage(v.Feed.Err),
		SearchError: userMessage(v.Search.Err),
	})
}

// logSync records a feed failure. The failure stays visible in the session view.
func logSync(logger *log.Logger, s *discovery.Session, op string, err error) {
	if err != nil {
		logger.Warn("session feed failed", "session", s.ID, "op", op, "err", err)
	}
}

// CreateSessionHandler starts a discovery session for the device in X-Device-ID and
// returns it with its first page loaded.
func CreateSessionHandler(reg *discovery.Registry, locator geo.Locator, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, err := geo.FromRequest(r, locator, logger)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid coordinates")
			return
		}
		s, err := reg.Create(r.Context(), r.Header.Get(DeviceHeader), loc)
		logSync(logger, s, "create", err)
		respondSession(r.Context(), w, s, http.StatusCreated)
	}
}

func GetSessionHandler(reg *discovery.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

func DeleteSessionHandler(reg *discovery.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := reg.Delete(r.PathValue("id")); err != nil {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// FilterUpdate is the body of POST /api/sessions/{id}/filters. Toggles flip list
// membership; scalar fields replace the bound and Unset clears the named bounds.
type FilterUpdate struct {
	ToggleCuisine       []string             `json:"toggleCuisine"`
	TogglePriceRange    []models.PriceTier   `json:"togglePriceRange"`
	ToggleDietaryOption []string             `json:"toggleDietaryOption"`
	MinRating           *float64             `json:"minRating"`
	MaxDeliveryTime     *int                 `json:"maxDeliveryTime"`
	IsOpen              *bool                `json:"isOpen"`
	Unset               []filters.FilterKind `json:"unset"`
}

func (u FilterUpdate) apply(st *filters.Store) {
	for _, c := range u.ToggleCuisine {
		st.ToggleCuisine(c)
	}
	for _, p := range u.TogglePriceRange {
		st.TogglePriceRange(p)
	}
	for _, d := range u.ToggleDietaryOption {
		st.ToggleDietaryOption(d)
	}
	if u.MinRating != nil {
		st.SetMinRating(u.MinRating)
	}
	if u.MaxDeliveryTime != nil {
		st.SetMaxDeliveryTime(u.MaxDeliveryTime)
	}
	if u.IsOpen != nil {
		st.SetIsOpen(u.IsOpen)
	}
	for _, k := range u.Unset {
		switch k {
		case filters.KindMinRating:
			st.SetMinRating(nil)
		case filters.KindMaxDeliveryTime:
			st.SetMaxDeliveryTime(nil)
		case filters.KindIsOpen:
			st.SetIsOpen(nil)
		}
	}
}

func UpdateFiltersHandler(reg *discovery.Registry, logger *log.Logger) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		var u FilterUpdate
		if !decodeBody(w, r, &u, logger) {
			return
		}
		logSync(logger, s, "filters", s.Update(r.Context(), u.apply))
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

func ResetFiltersHandler(reg *discovery.Registry, logger *log.Logger) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		logSync(logger, s, "reset", s.Update(r.Context(), (*filters.Store).Reset))
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

// RemoveFilterTagHandler undoes the active filter tag named in the path.
func RemoveFilterTagHandler(reg *discovery.Registry, logger *log.Logger) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		found, err := s.RemoveTag(r.Context(), r.PathValue("tag"))
		if !found {
			writeError(w, http.StatusNotFound, "Filter not active")
			return
		}
		logSync(logger, s, "remove tag", err)
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

type sortBody struct {
	SortBy string `json:"sortBy"`
}

func SetSortHandler(reg *discovery.Registry, logger *log.Logger) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		var body sortBody
		if !decodeBody(w, r, &body, logger) {
			return
		}
		sortBy, err := models.ParseSortOption(body.SortBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logSync(logger, s, "sort", s.Update(r.Context(), func(st *filters.Store) { st.SetSortBy(sortBy) }))
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

// SetLocationHandler replaces the session location from a coordinate body. DELETE
// forgets it.
func SetLocationHandler(reg *discovery.Registry, logger *log.Logger) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		var loc *models.Coordinate
		if r.Method != http.MethodDelete {
			var c models.Coordinate
			if !decodeBody(w, r, &c, logger) {
				return
			}
			if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
				writeError(w, http.StatusBadRequest, "Invalid coordinates")
				return
			}
			loc = &c
		}
		logSync(logger, s, "location", s.SetLocation(r.Context(), loc))
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

type queryBody struct {
	Query  string `json:"query"`
	Submit bool   `json:"submit"`
}

// SetQueryHandler records typed text. The feed follows after the debounce, or at once
// when the body asks to submit.
func SetQueryHandler(reg *discovery.Registry, logger *log.Logger) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		var body queryBody
		if !decodeBody(w, r, &body, logger) {
			return
		}
		if body.Submit {
			s.SubmitQuery(r.Context(), body.Query)
		} else {
			s.SetQuery(body.Query)
		}
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

func LoadMoreHandler(reg *discovery.Registry, logger *log.Logger) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		logSync(logger, s, "load more", s.LoadMore(r.Context()))
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

func RefreshHandler(reg *discovery.Registry, logger *log.Logger) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		logSync(logger, s, "refresh", s.Refresh(r.Context()))
		respondSession(r.Context(), w, s, http.StatusOK)
	})
}

type recentResponse struct {
	RecentSearches []string `json:"recentSearches"`
}

func RecentSearchesHandler(reg *discovery.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		writeJSON(w, http.StatusOK, recentResponse{RecentSearches: s.Search.Recents().List(r.Context())})
	})
}

func ClearRecentSearchesHandler(reg *discovery.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		s.Search.Recents().Clear(r.Context())
		writeJSON(w, http.StatusOK, recentResponse{RecentSearches: []string{}})
	})
}

func RemoveRecentSearchHandler(reg *discovery.Registry) http.HandlerFunc {
	return withSession(reg, func(w http.ResponseWriter, r *http.Request, s *discovery.Session) {
		term := strings.TrimSpace(r.PathValue("term"))
		list := s.Search.Recents().Remove(r.Context(), term)
		writeJSON(w, http.StatusOK, recentResponse{RecentSearches: list})
	})
}
