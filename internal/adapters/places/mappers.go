package places

import (
	"strconv"
	"strings"

	"startrip/internal/domain"
)

/********** alias registries (single source of truth) **********/

var placeAliases = map[string][]string{
	"id":      {"place_id", "id", "reference"},
	"name":    {"name", "displayName.text", "display_name"},
	"address": {"vicinity", "formatted_address", "formattedAddress", "shortFormattedAddress", "address"},
	"icon":    {"icon", "iconMaskBaseUri"},
	"phone":   {"international_phone_number", "formatted_phone_number", "internationalPhoneNumber"},
	"website": {"website", "websiteUri"},
}

var reviewAliases = map[string][]string{
	"author": {"author_name", "authorAttribution.displayName", "author"},
	"photo":  {"profile_photo_url", "authorAttribution.photoUri"},
	"when":   {"relative_time_description", "relativePublishTimeDescription"},
	"text":   {"text", "text.text", "originalText.text"},
}

var (
	ratingPaths  = []string{"rating"}
	reviewsPaths = []string{"user_ratings_total", "userRatingCount"}
	latPaths     = []string{"geometry.location.lat", "location.latitude", "lat"}
	lngPaths     = []string{"geometry.location.lng", "location.longitude", "lng"}
	hoursPaths   = []string{"opening_hours.weekday_text", "current_opening_hours.weekday_text", "regularOpeningHours.weekdayDescriptions"}
)

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// getFloatFlexible: number from several paths (float64/int/string like "4,5").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstIntFlexible: int from several paths (float64/int/string).
func firstIntFlexible(m map[string]any, paths ...string) *int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			x := int(v)
			return &x
		case int:
			x := v
			return &x
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if n, err := strconv.Atoi(s); err == nil {
				return &n
			}
		}
	}
	return nil
}

// firstSliceStrings: accept []any with either strings or {photo_reference/name/url}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					for _, key := range []string{"photo_reference", "name", "url"} {
						if u, ok := t[key].(string); ok && u != "" {
							out = append(out, u)
							break
						}
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// priceLevel accepts the numeric legacy field or the PRICE_LEVEL_* enum.
func priceLevel(m map[string]any) int {
	if n := firstIntFlexible(m, "price_level"); n != nil {
		return clampInt(*n, 0, 4)
	}
	switch s := lookupStr(m, "priceLevel"); {
	case strings.HasSuffix(s, "VERY_EXPENSIVE"):
		return 4
	case strings.HasSuffix(s, "INEXPENSIVE"):
		return 1
	case strings.HasSuffix(s, "MODERATE"):
		return 2
	case strings.HasSuffix(s, "EXPENSIVE"):
		return 3
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

/********** place mappers **********/

func mapResults(payload map[string]any) []domain.PlaceSummary {
	raw, _ := lookupAny(payload, "results").([]any)
	if raw == nil {
		raw, _ = lookupAny(payload, "places").([]any)
	}
	out := make([]domain.PlaceSummary, 0, len(raw))
	for _, it := range raw {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if p, ok := mapSummary(m); ok {
			out = append(out, p)
		}
	}
	return out
}

// mapSummary drops records without an id.
func mapSummary(m map[string]any) (domain.PlaceSummary, bool) {
	id := deref(firstNonEmptyAlias(m, placeAliases, "id"))
	if id == "" {
		return domain.PlaceSummary{}, false
	}
	p := domain.PlaceSummary{
		ID:      id,
		Name:    deref(firstNonEmptyAlias(m, placeAliases, "name")),
		Address: deref(firstNonEmptyAlias(m, placeAliases, "address")),
		IconURL: deref(firstNonEmptyAlias(m, placeAliases, "icon")),
		Types:   firstSliceStrings(m, "types"),
	}
	if p.Types == nil {
		p.Types = []string{}
	}
	if f := getFloatFlexible(m, ratingPaths...); f != nil {
		p.Rating = min(max(*f, 0), 5)
	}
	if n := firstIntFlexible(m, reviewsPaths...); n != nil && *n > 0 {
		p.ReviewCount = *n
	}
	if lat := getFloatFlexible(m, latPaths...); lat != nil {
		p.Location.Lat = *lat
	}
	if lng := getFloatFlexible(m, lngPaths...); lng != nil {
		p.Location.Lng = *lng
	}
	if refs := firstSliceStrings(m, "photos"); len(refs) > 0 {
		ref := refs[0]
		p.PhotoRef = &ref
	}
	return p, true
}

func mapDetails(m map[string]any) domain.PlaceDetails {
	s, _ := mapSummary(m)
	d := domain.PlaceDetails{
		PlaceSummary: s,
		Phone:        firstNonEmptyAlias(m, placeAliases, "phone"),
		Website:      firstNonEmptyAlias(m, placeAliases, "website"),
		OpeningHours: firstSliceStrings(m, hoursPaths...),
		PriceLevel:   priceLevel(m),
	}
	if photos := firstSliceStrings(m, "photos"); len(photos) > 0 {
		d.Photos = photos[:min(3, len(photos))]
	}
	raw, _ := lookupAny(m, "reviews").([]any)
	for _, it := range raw {
		r, ok := it.(map[string]any)
		if !ok {
			continue
		}
		rv := domain.PlaceReview{
			Author:       deref(firstNonEmptyAlias(r, reviewAliases, "author")),
			AuthorPhoto:  firstNonEmptyAlias(r, reviewAliases, "photo"),
			RelativeTime: deref(firstNonEmptyAlias(r, reviewAliases, "when")),
			Text:         deref(firstNonEmptyAlias(r, reviewAliases, "text")),
		}
		if f := getFloatFlexible(r, "rating"); f != nil {
			rv.Rating = *f
		}
		d.Reviews = append(d.Reviews, rv)
	}
	return d
}
