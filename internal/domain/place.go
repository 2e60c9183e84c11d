package domain

import "strings"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies within WGS84 degree bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Category is a provider place type. The zero value matches any type.
type Category string

const (
	CategoryAny               Category = ""
	CategoryRestaurant        Category = "restaurant"
	CategoryCafe              Category = "cafe"
	CategoryTouristAttraction Category = "tourist_attraction"
	CategoryLodging           Category = "lodging"
	CategoryShopping          Category = "shopping_mall"
)

// Known reports whether c is one of the enumerated categories (including any).
func (c Category) Known() bool {
	switch c {
	case CategoryAny, CategoryRestaurant, CategoryCafe, CategoryTouristAttraction, CategoryLodging, CategoryShopping:
		return true
	}
	return false
}

var categoryLabels = map[string]Category{
	"restaurants":         CategoryRestaurant,
	"restaurant":          CategoryRestaurant,
	"cafes":               CategoryCafe,
	"cafe":                CategoryCafe,
	"tourist attractions": CategoryTouristAttraction,
	"tourist_attraction":  CategoryTouristAttraction,
	"hotels":              CategoryLodging,
	"lodging":             CategoryLodging,
	"shopping":            CategoryShopping,
	"shopping_mall":       CategoryShopping,
}

// ParseCategory accepts display labels ("Tourist Attractions") and raw
// provider types ("tourist_attraction"). Unknown values map to CategoryAny.
func ParseCategory(s string) Category {
	return categoryLabels[strings.ToLower(strings.TrimSpace(s))]
}

type PlaceSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Rating      float64    `json:"rating"`
	ReviewCount int        `json:"review_count"`
	Address     string     `json:"address"`
	Types       []string   `json:"types"`
	Location    Coordinate `json:"location"`
	PhotoRef    *string    `json:"photo_ref,omitempty"`
	IconURL     string     `json:"icon_url,omitempty"`
}

type PlaceReview struct {
	Author       string  `json:"author"`
	AuthorPhoto  *string `json:"author_photo,omitempty"`
	Rating       float64 `json:"rating"`
	RelativeTime string  `json:"relative_time"`
	Text         string  `json:"text"`
}

type PlaceDetails struct {
	PlaceSummary
	Phone        *string       `json:"phone,omitempty"`
	Website      *string       `json:"website,omitempty"`
	OpeningHours []string      `json:"opening_hours,omitempty"`
	PriceLevel   int           `json:"price_level"`
	Photos       []string      `json:"photos,omitempty"`
	Reviews      []PlaceReview `json:"reviews,omitempty"`
}

// Suggestion is a destination idea produced by the generative model.
type Suggestion struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
}
