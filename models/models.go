package models

import (
	"fmt"
	"strings"
)

// Restaurant represents a dining establishment as stored in the catalog. The json and
// firestore tags mirror the document shape of the restaurants collection.
type Restaurant struct {
	ID             string       `json:"id" firestore:"-"`
	Name           string       `json:"name" firestore:"name"`
	Image          string       `json:"image" firestore:"image"`
	Cuisine        []string     `json:"cuisine" firestore:"cuisine"`
	DeliveryTime   DeliveryTime `json:"deliveryTime" firestore:"deliveryTime"`
	Rating         float64      `json:"rating" firestore:"rating"`
	PriceRange     PriceTier    `json:"priceRange" firestore:"priceRange"`
	DietaryOptions []string     `json:"dietaryOptions" firestore:"dietaryOptions"`
	IsOpen         bool         `json:"isOpen" firestore:"isOpen"`
	Location       Coordinate   `json:"location" firestore:"location"`
}

// DeliveryTime is the advertised delivery window in minutes (Min <= Max).
type DeliveryTime struct {
	Min int `json:"min" firestore:"min"`
	Max int `json:"max" firestore:"max"`
}

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude" firestore:"latitude"`
	Longitude float64 `json:"longitude" firestore:"longitude"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// PriceTier is one of four ordinal price bands.
type PriceTier int

const (
	PriceBudget PriceTier = iota + 1
	PriceModerate
	PriceUpscale
	PricePremium
)

// PriceTiers lists every valid tier in ordinal order.
var PriceTiers = []PriceTier{PriceBudget, PriceModerate, PriceUpscale, PricePremium}

var priceGuide = map[PriceTier]string{
	PriceBudget:   "₦500 - ₦1,500",
	PriceModerate: "₦1,500 - ₦4,000",
	PriceUpscale:  "₦4,000 - ₦8,000",
	PricePremium:  "₦8,000+",
}

func (p PriceTier) Valid() bool {
	return p >= PriceBudget && p <= PricePremium
}

// Label returns the price guide text shown for the tier.
func (p PriceTier) Label() string {
	if l, ok := priceGuide[p]; ok {
		return l
	}
	return strings.Repeat("₦", int(p))
}

// SortOption selects the ordering of a restaurant listing.
type SortOption string

const (
	SortRating       SortOption = "rating"
	SortDeliveryTime SortOption = "deliveryTime"
	SortPrice        SortOption = "price"
	SortDistance     SortOption = "distance"
)

// SortOptions lists the supported sort options, default first.
var SortOptions = []SortOption{SortRating, SortDeliveryTime, SortPrice, SortDistance}

// ParseSortOption accepts the wire names of the sort options. An empty string yields
// the default (rating).
func ParseSortOption(s string) (SortOption, error) {
	if s == "" {
		return SortRating, nil
	}
	for _, o := range SortOptions {
		if strings.EqualFold(string(o), s) {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown sort option %q", s)
}

// RestaurantFilter is the structured part of a catalog query. Nil or empty fields
// place no constraint on the result.
type RestaurantFilter struct {
	Cuisine         []string    `json:"cuisine,omitempty"`
	PriceRange      []PriceTier `json:"priceRange,omitempty"`
	MinRating       *float64    `json:"minRating,omitempty"`
	MaxDeliveryTime *int        `json:"maxDeliveryTime,omitempty"`
	DietaryOptions  []string    `json:"dietaryOptions,omitempty"`
	IsOpen          *bool       `json:"isOpen,omitempty"`
}

// HasMinRating reports whether a positive rating bound is set. A zero bound matches
// every restaurant and is treated as unset.
func (f RestaurantFilter) HasMinRating() bool {
	return f.MinRating != nil && *f.MinRating > 0
}

// HasMaxDeliveryTime reports whether a positive delivery bound is set.
func (f RestaurantFilter) HasMaxDeliveryTime() bool {
	return f.MaxDeliveryTime != nil && *f.MaxDeliveryTime > 0
}

// FilterState is the user's current filter selection plus sort preference.
type FilterState struct {
	Cuisine         []string    `json:"cuisine"`
	PriceRange      []PriceTier `json:"priceRange"`
	MinRating       *float64    `json:"minRating,omitempty"`
	MaxDeliveryTime *int        `json:"maxDeliveryTime,omitempty"`
	DietaryOptions  []string    `json:"dietaryOptions"`
	IsOpen          *bool       `json:"isOpen,omitempty"`
	SortBy          SortOption  `json:"sortBy"`
}

// DefaultFilterState returns the state a discovery session starts with.
func DefaultFilterState() FilterState {
	return FilterState{
		Cuisine:        []string{},
		PriceRange:     []PriceTier{},
		DietaryOptions: []string{},
		SortBy:         SortRating,
	}
}

// Clone returns a deep copy so callers never share the backing arrays.
func (s FilterState) Clone() FilterState {
	c := s
	c.Cuisine = append([]string{}, s.Cuisine...)
	c.PriceRange = append([]PriceTier{}, s.PriceRange...)
	c.DietaryOptions = append([]string{}, s.DietaryOptions...)
	if s.MinRating != nil {
		v := *s.MinRating
		c.MinRating = &v
	}
	if s.MaxDeliveryTime != nil {
		v := *s.MaxDeliveryTime
		c.MaxDeliveryTime = &v
	}
	if s.IsOpen != nil {
		v := *s.IsOpen
		c.IsOpen = &v
	}
	return c
}

// Page is one slice of a paginated listing. HasMore is true only when the page was
// filled to the requested size; NextCursor is nil whenever HasMore is false.
type Page struct {
	Data       []Restaurant `json:"data"`
	NextCursor *string      `json:"nextCursor"`
	HasMore    bool         `json:"hasMore"`
}
