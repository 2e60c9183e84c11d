// Package curated serves the fixed list of featured Korean destinations used
// when live lookups come back empty.
package curated

import (
	"context"

	"startrip/internal/domain"
)

const genericIcon = "https://maps.gstatic.com/mapfiles/place_api/icons/v1/png_71/generic_business-71.png"

type destination struct {
	id, name, blurb, photo string
	lat, lng               float64
}

var destinations = []destination{
	{"ChIJRUDiD3_jaDURVYvht-K4lqA", "Jeju Island", "Volcanic island with beautiful beaches", "https://i.imgur.com/8QqZ8Fe.jpg", 33.4996213, 126.5311884},
	{"ChIJAUJJ9bwWDTURj0VRFM4_q-o", "Gyeongju", "Historical city with ancient temples", "https://i.imgur.com/c2Q2Nzr.jpg", 35.8059773, 129.2236744},
	{"ChIJnTixnQ1jYzUR_BGvpTfOUHM", "Busan", "Port city with mountains and beaches", "https://i.imgur.com/3JUtEfA.jpg", 35.1775947, 129.0776458},
	{"ChIJc-9q8X5bezcRvhMYPOyDQk8", "Seoul", "Korea's vibrant capital city", "https://i.imgur.com/FTVv6N0.jpg", 37.566535, 126.9779692},
	{"ChIJSXzIoG9tezURGCuX2CXWgFo", "Incheon", "Major port city with coastal scenery", "https://i.imgur.com/7a2LFLU.jpg", 37.4562557, 126.7052062},
}

type Provider struct{}

func New() *Provider { return &Provider{} }

// PopularDestinations always succeeds and returns a fresh slice per call.
func (Provider) PopularDestinations(context.Context) []domain.PlaceSummary {
	out := make([]domain.PlaceSummary, 0, len(destinations))
	for _, d := range destinations {
		out = append(out, d.summary())
	}
	return out
}

// Destination returns the canned details for a curated place id.
func (Provider) Destination(id string) (domain.PlaceDetails, bool) {
	for _, d := range destinations {
		if d.id != id {
			continue
		}
		website := "https://www.visitkorea.or.kr"
		phone := "+82-2-1234-5678"
		s := d.summary()
		s.ReviewCount = 500
		return domain.PlaceDetails{
			PlaceSummary: s,
			Phone:        &phone,
			Website:      &website,
			OpeningHours: []string{"Open 24 hours"},
			PriceLevel:   2,
			Photos:       []string{d.photo},
			Reviews: []domain.PlaceReview{{
				Author:       "Travel Expert",
				Rating:       5,
				RelativeTime: "1 month ago",
				Text:         "Fantastic place to visit! The views are breathtaking.",
			}},
		}, true
	}
	return domain.PlaceDetails{}, false
}

// Blurb is the one-line description shown on the constellation card.
func (Provider) Blurb(id string) string {
	for _, d := range destinations {
		if d.id == id {
			return d.blurb
		}
	}
	return ""
}

func (d destination) summary() domain.PlaceSummary {
	photo := d.photo
	return domain.PlaceSummary{
		ID:          d.id,
		Name:        d.name,
		Rating:      4.5,
		ReviewCount: 10,
		Address:     d.name + ", South Korea",
		Types:       []string{string(domain.CategoryTouristAttraction)},
		Location:    domain.Coordinate{Lat: d.lat, Lng: d.lng},
		PhotoRef:    &photo,
		IconURL:     genericIcon,
	}
}
