// Package filters holds the discovery session's filter and sort selection and derives
// the removable filter tags shown above the results.
package filters

import (
	"slices"
	"sync"

	"chopfinder/models"
)

// Store is the filter/sort state container of one discovery session. Every mutation
// is synchronous and immediately visible to State.
type Store struct {
	mu    sync.RWMutex
	state models.FilterState
}

// NewStore returns a store holding the default state.
func NewStore() *Store {
	return &Store{state: models.DefaultFilterState()}
}

// State returns a copy of the current selection.
func (s *Store) State() models.FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) update(fn func(st *models.FilterState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
}

func toggle[T comparable](values []T, v T) []T {
	if i := slices.Index(values, v); i >= 0 {
		return slices.Delete(slices.Clone(values), i, i+1)
	}
	return append(values, v)
}

func remove[T comparable](values []T, v T) []T {
	return slices.DeleteFunc(slices.Clone(values), func(x T) bool { return x == v })
}

// ToggleCuisine adds the cuisine when absent and removes it when present.
func (s *Store) ToggleCuisine(cuisine string) {
	s.update(func(st *models.FilterState) { st.Cuisine = toggle(st.Cuisine, cuisine) })
}

// TogglePriceRange adds or removes a price tier. Invalid tiers are ignored.
func (s *Store) TogglePriceRange(tier models.PriceTier) {
	if !tier.Valid() {
		return
	}
	s.update(func(st *models.FilterState) { st.PriceRange = toggle(st.PriceRange, tier) })
}

// ToggleDietaryOption adds or removes a dietary option.
func (s *Store) ToggleDietaryOption(option string) {
	s.update(func(st *models.FilterState) { st.DietaryOptions = toggle(st.DietaryOptions, option) })
}

func (s *Store) RemoveCuisine(cuisine string) {
	s.update(func(st *models.FilterState) { st.Cuisine = remove(st.Cuisine, cuisine) })
}

func (s *Store) RemovePriceRange(tier models.PriceTier) {
	s.update(func(st *models.FilterState) { st.PriceRange = remove(st.PriceRange, tier) })
}

func (s *Store) RemoveDietaryOption(option string) {
	s.update(func(st *models.FilterState) { st.DietaryOptions = remove(st.DietaryOptions, option) })
}

// SetMinRating sets the inclusive lower rating bound; nil clears it.
func (s *Store) SetMinRating(rating *float64) {
	s.update(func(st *models.FilterState) { st.MinRating = copyPtr(rating) })
}

// SetMaxDeliveryTime sets the delivery upper bound in minutes; nil clears it.
func (s *Store) SetMaxDeliveryTime(minutes *int) {
	s.update(func(st *models.FilterState) { st.MaxDeliveryTime = copyPtr(minutes) })
}

// SetIsOpen constrains the open/closed flag; nil removes the constraint.
func (s *Store) SetIsOpen(open *bool) {
	s.update(func(st *models.FilterState) { st.IsOpen = copyPtr(open) })
}

// SetSortBy changes the sort preference. An empty option restores the default.
func (s *Store) SetSortBy(sortBy models.SortOption) {
	if sortBy == "" {
		sortBy = models.SortRating
	}
	s.update(func(st *models.FilterState) { st.SortBy = sortBy })
}

// Reset restores the default state.
func (s *Store) Reset() {
	s.update(func(st *models.FilterState) { *st = models.DefaultFilterState() })
}

// Filter projects the selection onto a catalog filter. Empty sets become nil.
func (s *Store) Filter() models.RestaurantFilter {
	st := s.State()
	f := models.RestaurantFilter{
		MinRating:       st.MinRating,
		MaxDeliveryTime: st.MaxDeliveryTime,
		IsOpen:          st.IsOpen,
	}
	if len(st.Cuisine) > 0 {
		f.Cuisine = st.Cuisine
	}
	if len(st.PriceRange) > 0 {
		f.PriceRange = st.PriceRange
	}
	if len(st.DietaryOptions) > 0 {
		f.DietaryOptions = st.DietaryOptions
	}
	return f
}

// Tags derives the active filter tags from the current state.
func (s *Store) Tags() []ActiveFilterTag {
	return Tags(s.State())
}

// HasActiveFilters reports whether any tag would be shown.
func (s *Store) HasActiveFilters() bool {
	return len(s.Tags()) > 0
}

// RemoveTag undoes the filter a tag represents. Unknown ids are ignored. It reports
// whether a tag matched.
func (s *Store) RemoveTag(id string) bool {
	for _, tag := range s.Tags() {
		if tag.ID == id {
			s.Remove(tag)
			return true
		}
	}
	return false
}

// Remove applies the store mutation matching the tag's type.
func (s *Store) Remove(tag ActiveFilterTag) {
	switch v := tag.Value.(type) {
	case CuisineTag:
		s.RemoveCuisine(string(v))
	case PriceTag:
		s.RemovePriceRange(models.PriceTier(v))
	case DietaryTag:
		s.RemoveDietaryOption(string(v))
	case MinRatingTag:
		s.SetMinRating(nil)
	case MaxDeliveryTag:
		s.SetMaxDeliveryTime(nil)
	case OpenTag:
		s.SetIsOpen(nil)
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
