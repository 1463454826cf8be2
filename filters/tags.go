package filters

import (
	"encoding/json"
	"fmt"
	"strconv"

	"chopfinder/models"
)

// FilterKind names the FilterState field a tag represents.
type FilterKind string

const (
	KindCuisine         FilterKind = "cuisine"
	KindPriceRange      FilterKind = "priceRange"
	KindDietaryOptions  FilterKind = "dietaryOptions"
	KindMinRating       FilterKind = "minRating"
	KindMaxDeliveryTime FilterKind = "maxDeliveryTime"
	KindIsOpen          FilterKind = "isOpen"
)

// TagValue is the typed payload of a tag. The set of implementations is closed.
type TagValue interface {
	Kind() FilterKind
	tagValue()
}

type (
	CuisineTag     string
	PriceTag       models.PriceTier
	DietaryTag     string
	MinRatingTag   float64
	MaxDeliveryTag int
	OpenTag        bool
)

func (CuisineTag) Kind() FilterKind     { return KindCuisine }
func (PriceTag) Kind() FilterKind       { return KindPriceRange }
func (DietaryTag) Kind() FilterKind     { return KindDietaryOptions }
func (MinRatingTag) Kind() FilterKind   { return KindMinRating }
func (MaxDeliveryTag) Kind() FilterKind { return KindMaxDeliveryTime }
func (OpenTag) Kind() FilterKind        { return KindIsOpen }

func (CuisineTag) tagValue()     {}
func (PriceTag) tagValue()       {}
func (DietaryTag) tagValue()     {}
func (MinRatingTag) tagValue()   {}
func (MaxDeliveryTag) tagValue() {}
func (OpenTag) tagValue()        {}

// ActiveFilterTag is a removable chip describing one active constraint.
type ActiveFilterTag struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Type  FilterKind `json:"type"`
	Value TagValue   `json:"value"`
}

// Tags lists the active constraints of st in fixed dimension order: cuisine, price
// range, dietary options, minimum rating, maximum delivery time, open flag. Set-valued
// dimensions keep their insertion order, price tiers included.
func Tags(st models.FilterState) []ActiveFilterTag {
	tags := make([]ActiveFilterTag, 0, len(st.Cuisine)+len(st.PriceRange)+len(st.DietaryOptions)+3)

	for _, c := range st.Cuisine {
		tags = append(tags, newTag("cuisine-"+c, c, CuisineTag(c)))
	}
	for _, p := range st.PriceRange {
		tags = append(tags, newTag(fmt.Sprintf("price-%d", p), p.Label(), PriceTag(p)))
	}
	for _, d := range st.DietaryOptions {
		tags = append(tags, newTag("dietary-"+d, d, DietaryTag(d)))
	}
	if st.MinRating != nil && *st.MinRating > 0 {
		label := strconv.FormatFloat(*st.MinRating, 'f', -1, 64) + "+ stars"
		tags = append(tags, newTag("min-rating", label, MinRatingTag(*st.MinRating)))
	}
	if st.MaxDeliveryTime != nil && *st.MaxDeliveryTime > 0 {
		label := fmt.Sprintf("Under %d min", *st.MaxDeliveryTime)
		tags = append(tags, newTag("max-delivery", label, MaxDeliveryTag(*st.MaxDeliveryTime)))
	}
	if st.IsOpen != nil {
		label := "Open Now"
		if !*st.IsOpen {
			label = "Closed Now"
		}
		tags = append(tags, newTag("is-open", label, OpenTag(*st.IsOpen)))
	}
	return tags
}

func newTag(id, label string, v TagValue) ActiveFilterTag {
	return ActiveFilterTag{ID: id, Label: label, Type: v.Kind(), Value: v}
}

// UnmarshalJSON restores the typed value from the type discriminator.
func (t *ActiveFilterTag) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string          `json:"id"`
		Label string          `json:"label"`
		Type  FilterKind      `json:"type"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ID, t.Label, t.Type, t.Value = raw.ID, raw.Label, raw.Type, nil

	var err error
	switch raw.Type {
	case KindCuisine:
		var v string
		err = json.Unmarshal(raw.Value, &v)
		t.Value = CuisineTag(v)
	case KindPriceRange:
		var v int
		err = json.Unmarshal(raw.Value, &v)
		t.Value = PriceTag(v)
	case KindDietaryOptions:
		var v string
		err = json.Unmarshal(raw.Value, &v)
		t.Value = DietaryTag(v)
	case KindMinRating:
		var v float64
		err = json.Unmarshal(raw.Value, &v)
		t.Value = MinRatingTag(v)
	case KindMaxDeliveryTime:
		var v int
		err = json.Unmarshal(raw.Value, &v)
		t.Value = MaxDeliveryTag(v)
	case KindIsOpen:
		var v bool
		err = json.Unmarshal(raw.Value, &v)
		t.Value = OpenTag(v)
	}
	return err
}
