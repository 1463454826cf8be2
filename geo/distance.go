package geo

import (
	"math"
	"sort"

	"chopfinder/models"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the haversine great-circle distance between a and b in kilometres.
func Distance(a, b models.Coordinate) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// SortByDistance orders restaurants by ascending distance from origin. Ties keep their
// input order. With no origin the input is returned as a copy in its original order.
func SortByDistance(list []models.Restaurant, origin *models.Coordinate) []models.Restaurant {
	sorted := append([]models.Restaurant(nil), list...)
	if origin == nil || len(sorted) < 2 {
		return sorted
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return Distance(*origin, sorted[i].Location) < Distance(*origin, sorted[j].Location)
	})
	return sorted
}
