package restaurants

import (
	"slices"
	"sort"
	"strings"

	"chopfinder/geo"
	"chopfinder/models"
)

// Matches reports whether r satisfies every constraint of f.
func Matches(r models.Restaurant, f models.RestaurantFilter) bool {
	if len(f.Cuisine) > 0 && !containsAny(r.Cuisine, f.Cuisine) {
		return false
	}
	if len(f.PriceRange) > 0 && !slices.Contains(f.PriceRange, r.PriceRange) {
		return false
	}
	if f.HasMinRating() && r.Rating < *f.MinRating {
		return false
	}
	if f.HasMaxDeliveryTime() && r.DeliveryTime.Max > *f.MaxDeliveryTime {
		return false
	}
	if len(f.DietaryOptions) > 0 && !containsAny(r.DietaryOptions, f.DietaryOptions) {
		return false
	}
	if f.IsOpen != nil && r.IsOpen != *f.IsOpen {
		return false
	}
	return true
}

func containsAny(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// MatchesSearch is a case-insensitive substring match on the name or any cuisine tag.
// A blank term matches everything.
func MatchesSearch(r models.Restaurant, term string) bool {
	term = normalizeTerm(term)
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Name), term) {
		return true
	}
	for _, c := range r.Cuisine {
		if strings.Contains(strings.ToLower(c), term) {
			return true
		}
	}
	return false
}

// Filter returns the restaurants matching both the search term and f, in input order.
func Filter(list []models.Restaurant, term string, f models.RestaurantFilter) []models.Restaurant {
	out := make([]models.Restaurant, 0, len(list))
	for _, r := range list {
		if MatchesSearch(r, term) && Matches(r, f) {
			out = append(out, r)
		}
	}
	return out
}

// Sort returns a sorted copy of list. Ties keep their input order. Distance sorting
// without a location keeps the input order.
func Sort(list []models.Restaurant, by models.SortOption, loc *models.Coordinate) []models.Restaurant {
	if by == models.SortDistance {
		return geo.SortByDistance(list, loc)
	}
	sorted := slices.Clone(list)
	var less func(a, b models.Restaurant) bool
	switch by {
	case models.SortDeliveryTime:
		less = func(a, b models.Restaurant) bool { return a.DeliveryTime.Min < b.DeliveryTime.Min }
	case models.SortPrice:
		less = func(a, b models.Restaurant) bool { return a.PriceRange < b.PriceRange }
	default:
		less = func(a, b models.Restaurant) bool { return a.Rating > b.Rating }
	}
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}
