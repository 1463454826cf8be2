package restaurants

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chopfinder/models"
)

func TestMatches(t *testing.T) {
	r := models.Restaurant{
		ID:             "x",
		Name:           "Suya Palace",
		Cuisine:        []string{"Nigerian", "Grill"},
		DeliveryTime:   models.DeliveryTime{Min: 35, Max: 60},
		Rating:         4.7,
		PriceRange:     models.PriceModerate,
		DietaryOptions: []string{"Halal"},
		IsOpen:         true,
	}

	tests := []struct {
		name   string
		filter models.RestaurantFilter
		want   bool
	}{
		{"empty filter", models.RestaurantFilter{}, true},
		{"cuisine any-of", models.RestaurantFilter{Cuisine: []string{"Igbo", "Grill"}}, true},
		{"cuisine miss", models.RestaurantFilter{Cuisine: []string{"Igbo"}}, false},
		{"price one-of", models.RestaurantFilter{PriceRange: []models.PriceTier{1, 2}}, true},
		{"price miss", models.RestaurantFilter{PriceRange: []models.PriceTier{3}}, false},
		{"rating inclusive", models.RestaurantFilter{MinRating: ptr(4.7)}, true},
		{"rating above", models.RestaurantFilter{MinRating: ptr(4.8)}, false},
		{"zero rating is unset", models.RestaurantFilter{MinRating: ptr(0.0)}, true},
		{"delivery upper bound equal", models.RestaurantFilter{MaxDeliveryTime: ptr(60)}, true},
		{"delivery upper bound exceeded", models.RestaurantFilter{MaxDeliveryTime: ptr(45)}, false},
		{"dietary any-of", models.RestaurantFilter{DietaryOptions: []string{"Vegan", "Halal"}}, true},
		{"dietary miss", models.RestaurantFilter{DietaryOptions: []string{"Vegan"}}, false},
		{"open equality", models.RestaurantFilter{IsOpen: ptr(true)}, true},
		{"closed only", models.RestaurantFilter{IsOpen: ptr(false)}, false},
		{"conjunction", models.RestaurantFilter{Cuisine: []string{"Grill"}, IsOpen: ptr(false)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(r, tt.filter); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesSearch(t *testing.T) {
	r := models.Restaurant{Name: "Mama's Kitchen", Cuisine: []string{"Yoruba", "Pepper Soup"}}
	tests := []struct {
		term string
		want bool
	}{
		{"", true},
		{"kitchen", true},
		{"MAMA", true},
		{"pepper s", true},
		{" yoruba ", true},
		{"jollof", false},
	}
	for _, tt := range tests {
		if got := MatchesSearch(r, tt.term); got != tt.want {
			t.Errorf("MatchesSearch(%q) = %v, want %v", tt.term, got, tt.want)
		}
	}
}

func TestSortIsStable(t *testing.T) {
	list := []models.Restaurant{
		{ID: "a", Rating: 4.0, PriceRange: 2, DeliveryTime: models.DeliveryTime{Min: 30}},
		{ID: "b", Rating: 4.5, PriceRange: 1, DeliveryTime: models.DeliveryTime{Min: 30}},
		{ID: "c", Rating: 4.0, PriceRange: 2, DeliveryTime: models.DeliveryTime{Min: 20}},
		{ID: "d", Rating: 4.5, PriceRange: 1, DeliveryTime: models.DeliveryTime{Min: 20}},
	}
	tests := []struct {
		by   models.SortOption
		want []string
	}{
		{models.SortRating, []string{"b", "d", "a", "c"}},
		{models.SortPrice, []string{"b", "d", "a", "c"}},
		{models.SortDeliveryTime, []string{"c", "d", "a", "b"}},
		{models.SortDistance, []string{"a", "b", "c", "d"}},
		{"", []string{"b", "d", "a", "c"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Sort(list, tt.by, nil)))
		})
	}
	assert.Equal(t, "a", list[0].ID, "input must not be reordered")
}

func TestQueryKey(t *testing.T) {
	base := Query{
		Filter: models.RestaurantFilter{Cuisine: []string{"Grill", "Nigerian"}},
		SortBy: models.SortRating,
		Search: "Suya",
	}
	same := base
	same.Filter.Cuisine = []string{"Nigerian", "Grill"}
	same.Search = " suya "
	same.Cursor = "restaurant-120"
	same.PageSize = 50
	assert.Equal(t, base.Key(), same.Key())
	assert.NotEqual(t, base.PageKey(), same.PageKey())

	other := base
	other.SortBy = models.SortPrice
	assert.NotEqual(t, base.Key(), other.Key())

	located := base
	located.Location = &models.Coordinate{Latitude: 6.5, Longitude: 3.4}
	assert.NotEqual(t, base.Key(), located.Key())

	assert.Equal(t, Query{}.Key(), Query{SortBy: models.SortRating}.Key())
}
