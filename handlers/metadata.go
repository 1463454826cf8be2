package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"

	"chopfinder/geo"
	"chopfinder/models"
	"chopfinder/restaurants"
)

type option[T any] struct {
	Value T      `json:"value"`
	Label string `json:"label"`
}

var sortLabels = map[models.SortOption]string{
	models.SortRating:       "Rating",
	models.SortDeliveryTime: "Delivery Time",
	models.SortPrice:        "Price",
	models.SortDistance:     "Distance",
}

// CuisinesHandler lists the cuisines offered as filters.
func CuisinesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, restaurants.Cuisines)
	}
}

func DietaryOptionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, restaurants.DietaryOptions)
	}
}

// PriceRangesHandler lists the price tiers with their price guide labels.
func PriceRangesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]option[models.PriceTier], 0, len(models.PriceTiers))
		for _, p := range models.PriceTiers {
			out = append(out, option[models.PriceTier]{Value: p, Label: p.Label()})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func SortOptionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]option[models.SortOption], 0, len(models.SortOptions))
		for _, s := range models.SortOptions {
			out = append(out, option[models.SortOption]{Value: s, Label: sortLabels[s]})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// LocationHandler resolves the caller location from lat/lon or GeoIP.
func LocationHandler(locator geo.Locator, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, err := geo.FromRequest(r, locator, logger)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid coordinates")
			return
		}
		if loc == nil {
			writeError(w, http.StatusNotFound, "Location unavailable")
			return
		}
		writeJSON(w, http.StatusOK, loc)
	}
}
