package geo

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chopfinder/models"
)

func TestDistanceSamePoint(t *testing.T) {
	lagos := models.Coordinate{Latitude: 6.5244, Longitude: 3.3792}
	if d := Distance(lagos, lagos); math.Abs(d) > 1e-9 {
		t.Errorf("Distance(same point) = %v, want 0", d)
	}
}

func TestDistanceOneDegreeLatitude(t *testing.T) {
	a := models.Coordinate{Latitude: 6.0, Longitude: 3.0}
	b := models.Coordinate{Latitude: 7.0, Longitude: 3.0}
	got := Distance(a, b)
	if math.Abs(got-111)/111 > 0.01 {
		t.Errorf("Distance over 1 degree latitude = %.2f km, want within 1%% of 111 km", got)
	}
	if back := Distance(b, a); math.Abs(back-got) > 1e-9 {
		t.Errorf("Distance is not symmetric: %v vs %v", got, back)
	}
}

func TestSortByDistance(t *testing.T) {
	origin := &models.Coordinate{Latitude: 6.5244, Longitude: 3.3792}
	list := []models.Restaurant{
		{ID: "far", Location: models.Coordinate{Latitude: 7.5, Longitude: 3.9}},
		{ID: "near", Location: models.Coordinate{Latitude: 6.53, Longitude: 3.38}},
		{ID: "mid", Location: models.Coordinate{Latitude: 6.7, Longitude: 3.4}},
	}

	sorted := SortByDistance(list, origin)
	ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID}
	assert.Equal(t, []string{"near", "mid", "far"}, ids)
	assert.Equal(t, "far", list[0].ID, "input must not be reordered")
}

func TestSortByDistanceWithoutOriginKeepsOrder(t *testing.T) {
	list := []models.Restaurant{{ID: "b"}, {ID: "a"}, {ID: "c"}}
	sorted := SortByDistance(list, nil)
	require.Len(t, sorted, 3)
	assert.Equal(t, "b", sorted[0].ID)
	assert.Equal(t, "a", sorted[1].ID)
	assert.Equal(t, "c", sorted[2].ID)
}

func TestFromRequestPrefersExplicitCoordinates(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/location?lat=6.5&lon=3.4", nil)
	loc, err := FromRequest(r, NoopLocator{}, log.Default())
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, 6.5, loc.Latitude)
	assert.Equal(t, 3.4, loc.Longitude)
}

func TestFromRequestRejectsOutOfRange(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/location?lat=95&lon=3.4", nil)
	_, err := FromRequest(r, NoopLocator{}, log.Default())
	assert.Error(t, err)
}

func TestFromRequestDegradesWithoutLocator(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/location", nil)
	loc, err := FromRequest(r, NoopLocator{}, log.Default())
	assert.NoError(t, err)
	assert.Nil(t, loc)
}

func TestClientIPHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	addr, err := ClientIP(r)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", addr.String())

	r = httptest.NewRequest("GET", "/?ip=198.51.100.2", nil)
	addr, err = ClientIP(r)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.2", addr.String())
}
