package restaurants

import (
	"fmt"
	"math"
	"slices"

	"chopfinder/models"
)

// Cuisines are the cuisine tags offered as filters.
var Cuisines = []string{
	"Nigerian", "Yoruba", "Igbo", "Hausa", "Suya", "Swallow", "Pepper Soup",
	"Jollof", "Continental", "Fast Food", "Desserts", "Grill", "African",
}

// DietaryOptions are the dietary tags offered as filters.
var DietaryOptions = []string{
	"Vegetarian", "Vegan", "Gluten-Free Options", "Halal", "Spicy Options", "Dairy-Free",
}

// LagosCentre anchors the generated part of the bundled catalog.
var LagosCentre = models.Coordinate{Latitude: 6.5244, Longitude: 3.3792}

func unsplash(photo string) string {
	return fmt.Sprintf("https://images.unsplash.com/photo-%s?w=800&q=80", photo)
}

func restaurant(id, name, photo string, cuisine []string, minT, maxT int, rating float64,
	price models.PriceTier, dietary []string, open bool, lat, lon float64) models.Restaurant {
	return models.Restaurant{
		ID:             id,
		Name:           name,
		Image:          unsplash(photo),
		Cuisine:        cuisine,
		DeliveryTime:   models.DeliveryTime{Min: minT, Max: maxT},
		Rating:         rating,
		PriceRange:     price,
		DietaryOptions: dietary,
		IsOpen:         open,
		Location:       models.Coordinate{Latitude: lat, Longitude: lon},
	}
}

var curated = []models.Restaurant{
	restaurant("sweet-kiwi-001", "Sweet Kiwi Cafe", "1555939594-58d7cb561ad1",
		[]string{"Nigerian", "Continental", "Desserts"}, 25, 45, 4.5, models.PriceModerate,
		[]string{"Vegetarian", "Gluten-Free Options"}, true, 6.5244, 3.3792),
	restaurant("suya-palace-002", "Suya Palace", "1529042410759-befb1204b468",
		[]string{"Nigerian", "Grill", "African"}, 35, 60, 4.7, models.PriceModerate,
		[]string{"Halal", "Spicy Options"}, true, 6.6018, 3.3515),
	restaurant("mama-put-003", "Mama's Kitchen", "1606787366850-de6330128bfc",
		[]string{"Nigerian", "Yoruba", "Swallow"}, 20, 35, 4.2, models.PriceBudget,
		[]string{"Halal", "Spicy Options"}, true, 6.5355, 3.3087),
	restaurant("jollof-junction-004", "Jollof Junction", "1604329760661-e71dc83f8f26",
		[]string{"Nigerian", "Jollof", "African"}, 30, 50, 4.8, models.PriceModerate,
		[]string{"Halal", "Vegetarian"}, true, 6.4281, 3.4219),
	restaurant("pepper-soup-spot-005", "Pepper Soup Spot", "1547592166-23ac45744acd",
		[]string{"Nigerian", "Pepper Soup", "Hausa"}, 25, 40, 4.4, models.PriceModerate,
		[]string{"Halal", "Spicy Options"}, false, 6.5167, 3.3667),
	restaurant("eko-bistro-006", "Eko Bistro", "1514933651103-005eec06c04b",
		[]string{"Continental", "Nigerian", "Fast Food"}, 40, 65, 4.6, models.PriceUpscale,
		[]string{"Vegetarian", "Vegan", "Gluten-Free Options"}, true, 6.4474, 3.3903),
	restaurant("lagos-grill-007", "Lagos Grill House", "1544025162-d76694265947",
		[]string{"Grill", "Nigerian", "Continental"}, 45, 70, 4.9, models.PricePremium,
		[]string{"Halal", "Gluten-Free Options"}, true, 6.4380, 3.4240),
	restaurant("amala-zone-008", "Amala Zone", "1585032226651-759b368d7246",
		[]string{"Nigerian", "Yoruba", "Swallow"}, 20, 30, 4.3, models.PriceBudget,
		[]string{"Vegetarian", "Spicy Options"}, true, 6.6054, 3.2842),
	restaurant("chicken-republic-009", "Chicken Republic", "1598103442097-8b74394b95c6",
		[]string{"Fast Food", "Nigerian", "Continental"}, 25, 40, 4.1, models.PriceModerate,
		[]string{"Halal"}, true, 6.5243, 3.3792),
	restaurant("the-place-010", "The Place Restaurant", "1466978913421-dad2ebd01d17",
		[]string{"Continental", "Grill", "Desserts"}, 50, 75, 4.7, models.PricePremium,
		[]string{"Vegetarian", "Vegan", "Gluten-Free Options"}, true, 6.4297, 3.4106),
	restaurant("buka-hut-011", "Buka Hut", "1559847844-5315695dadae",
		[]string{"Nigerian", "African", "Swallow"}, 30, 45, 4.0, models.PriceBudget,
		[]string{"Halal", "Spicy Options"}, true, 6.6018, 3.3515),
	restaurant("kilimanjaro-012", "Kilimanjaro Fast Food", "1568901346375-23c9450c58cd",
		[]string{"Fast Food", "African", "Nigerian"}, 20, 35, 4.2, models.PriceModerate,
		[]string{"Halal"}, false, 6.5388, 3.3473),
}

var generatedNames = []string{
	"Golden Spoon", "Tasty Bites", "Flavor Town", "Spice Hub", "The Food Court",
	"Crispy Kitchen", "Savory Delights", "Urban Eats", "Fresh Plate", "Gourmet House",
}

// Generate builds count synthetic restaurants spread in rings around LagosCentre.
// The output is deterministic.
func Generate(count int) []models.Restaurant {
	out := make([]models.Restaurant, 0, count)
	for i := 0; i < count; i++ {
		angle := float64(i) / float64(count) * 2 * math.Pi
		radius := 0.1 * (1 + float64(i%5)/5)
		out = append(out, models.Restaurant{
			ID:    fmt.Sprintf("restaurant-%d", i+100),
			Name:  fmt.Sprintf("%s %d", generatedNames[i%len(generatedNames)], i/len(generatedNames)+1),
			Image: unsplash(fmt.Sprint(1555939594 + i)),
			Cuisine: []string{
				Cuisines[i%len(Cuisines)],
				Cuisines[(i+1)%len(Cuisines)],
			},
			DeliveryTime: models.DeliveryTime{Min: 20 + (i%4)*10, Max: 40 + (i%5)*10},
			Rating:       math.Round((3.5+float64(i%15)*0.1)*10) / 10,
			PriceRange:   models.PriceTier(i%4 + 1),
			DietaryOptions: []string{
				DietaryOptions[i%len(DietaryOptions)],
				DietaryOptions[(i+2)%len(DietaryOptions)],
			},
			IsOpen: i%5 != 0,
			Location: models.Coordinate{
				Latitude:  LagosCentre.Latitude + radius*math.Cos(angle),
				Longitude: LagosCentre.Longitude + radius*math.Sin(angle),
			},
		})
	}
	return out
}

// Curated returns the hand-picked Lagos restaurants used for seeding.
func Curated() []models.Restaurant {
	return slices.Clone(curated)
}

// Dataset returns the full bundled catalog: the curated restaurants followed by 100
// generated ones.
func Dataset() []models.Restaurant {
	return append(Curated(), Generate(100)...)
}
