package restaurants

import (
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chopfinder/models"
)

func TestPlanFirestoreQueryPredicates(t *testing.T) {
	plan := planFirestoreQuery(Query{
		Filter: models.RestaurantFilter{
			Cuisine:         Cuisines,
			PriceRange:      []models.PriceTier{models.PriceBudget, models.PriceUpscale},
			MinRating:       ptr(4.5),
			MaxDeliveryTime: ptr(30),
			DietaryOptions:  []string{"Vegan"},
			IsOpen:          ptr(false),
		},
	})

	require.Len(t, plan.Where, 4)
	assert.Equal(t, wherePlan{"cuisine", "array-contains-any", Cuisines[:10]}, plan.Where[0])
	assert.Equal(t, wherePlan{"priceRange", "in", []int{1, 3}}, plan.Where[1])
	assert.Equal(t, wherePlan{"rating", ">=", 4.5}, plan.Where[2])
	assert.Equal(t, wherePlan{"isOpen", "==", false}, plan.Where[3])
	assert.Equal(t, DefaultPageSize, plan.Limit)
}

func TestPlanFirestoreQueryOrdering(t *testing.T) {
	tests := []struct {
		by    models.SortOption
		field string
		dir   firestore.Direction
	}{
		{models.SortRating, "rating", firestore.Desc},
		{models.SortDeliveryTime, "deliveryTime.min", firestore.Asc},
		{models.SortPrice, "priceRange", firestore.Asc},
		{models.SortDistance, "", 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			plan := planFirestoreQuery(Query{SortBy: tt.by, PageSize: 7})
			assert.Empty(t, plan.Where)
			assert.Equal(t, tt.field, plan.OrderBy)
			if tt.field != "" {
				assert.Equal(t, tt.dir, plan.Direction)
			}
			assert.Equal(t, 7, plan.Limit)
		})
	}
}

func TestPlanFirestoreQueryIgnoresZeroRating(t *testing.T) {
	plan := planFirestoreQuery(Query{Filter: models.RestaurantFilter{MinRating: ptr(0.0)}})
	assert.Empty(t, plan.Where)
}

func TestFirestorePageFiltersAfterRead(t *testing.T) {
	read := []models.Restaurant{
		{ID: "a", Name: "Amala Spot", DeliveryTime: models.DeliveryTime{Min: 10, Max: 20}, DietaryOptions: []string{"Halal"}},
		{ID: "b", Name: "Green Bowl", DeliveryTime: models.DeliveryTime{Min: 20, Max: 45}, DietaryOptions: []string{"Vegan"}},
		{ID: "c", Name: "Suya Hub", Cuisine: []string{"Grill"}, DeliveryTime: models.DeliveryTime{Min: 15, Max: 25}},
	}

	tests := []struct {
		name    string
		q       Query
		want    []string
		hasMore bool
	}{
		{"no client predicates", Query{PageSize: 3}, []string{"a", "b", "c"}, true},
		{"dietary", Query{PageSize: 3, Filter: models.RestaurantFilter{DietaryOptions: []string{"Vegan", "Halal"}}}, []string{"a", "b"}, true},
		{"delivery bound", Query{PageSize: 3, Filter: models.RestaurantFilter{MaxDeliveryTime: ptr(30)}}, []string{"a", "c"}, true},
		{"search term", Query{PageSize: 3, Search: " grill "}, []string{"c"}, true},
		{"everything filtered out", Query{PageSize: 3, Search: "sushi"}, []string{}, true},
		{"short read", Query{PageSize: 5, Filter: models.RestaurantFilter{DietaryOptions: []string{"Vegan"}}}, []string{"b"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := firestorePage(tt.q, read)
			assert.Equal(t, tt.want, ids(page.Data))
			assert.Equal(t, tt.hasMore, page.HasMore)
			if tt.hasMore {
				require.NotNil(t, page.NextCursor)
				assert.Equal(t, "c", *page.NextCursor, "the cursor is the last document read")
			} else {
				assert.Nil(t, page.NextCursor)
			}
		})
	}
}

func TestFirestorePageEmptyRead(t *testing.T) {
	page := firestorePage(Query{PageSize: 3}, nil)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.False(t, page.HasMore)
	assert.Nil(t, page.NextCursor)
}
