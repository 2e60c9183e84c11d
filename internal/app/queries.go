package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"startrip/internal/domain"
)

type PlaceQueryService struct {
	places   domain.PlacesClient
	curated  domain.CuratedCatalog
	cache    domain.Cache
	cacheTTL time.Duration
}

// NewPlaceQueryService accepts a nil places client; text search then returns
// nothing and details resolve only curated destinations.
func NewPlaceQueryService(p domain.PlacesClient, cur domain.CuratedCatalog, c domain.Cache, ttl time.Duration) *PlaceQueryService {
	return &PlaceQueryService{places: p, curated: cur, cache: c, cacheTTL: ttl}
}

func (s *PlaceQueryService) Popular(ctx context.Context) []domain.PlaceSummary {
	if s.curated == nil {
		return []domain.PlaceSummary{}
	}
	return s.curated.PopularDestinations(ctx)
}

func searchKey(query string, near *domain.Coordinate) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if near == nil {
		return "search:" + q + "::"
	}
	return fmt.Sprintf("search:%s:%s:%s", q,
		strconv.FormatFloat(near.Lat, 'f', 4, 64), strconv.FormatFloat(near.Lng, 'f', 4, 64))
}

func (s *PlaceQueryService) TextSearch(ctx context.Context, query string, near *domain.Coordinate) ([]domain.PlaceSummary, error) {
	if strings.TrimSpace(query) == "" || s.places == nil {
		return []domain.PlaceSummary{}, nil
	}
	if near != nil && !near.Valid() {
		return nil, fmt.Errorf("%w: coordinate out of range", domain.ErrInvalidInput)
	}
	key := searchKey(query, near)
	var out []domain.PlaceSummary
	if s.cacheGet(ctx, key, &out) {
		return out, nil
	}
	out, err := s.places.TextSearch(ctx, strings.TrimSpace(query), near)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, key, out)
	return out, nil
}

func (s *PlaceQueryService) Details(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	if strings.TrimSpace(placeID) == "" {
		return domain.PlaceDetails{}, fmt.Errorf("%w: place id required", domain.ErrInvalidInput)
	}
	key := "place:" + placeID
	var d domain.PlaceDetails
	if s.cacheGet(ctx, key, &d) {
		return d, nil
	}

	var err error = domain.ErrNotFound
	if s.places != nil {
		d, err = s.places.Details(ctx, placeID)
		if err == nil {
			s.cacheSet(ctx, key, d)
			return d, nil
		}
	}
	if s.curated != nil {
		if cd, ok := s.curated.Destination(placeID); ok {
			if !errors.Is(err, domain.ErrNotFound) {
				log.Warn().Err(err).Str("place", placeID).Msg("details lookup failed, serving curated")
			}
			return cd, nil
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PlaceDetails{}, domain.ErrNotFound
	}
	return domain.PlaceDetails{}, err
}

func (s *PlaceQueryService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return false
	}
	return ok
}

func (s *PlaceQueryService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds())); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

type photoLinker interface {
	PhotoURL(ref string, maxWidth int) string
}

// PhotoURL resolves a photo reference to a fetchable URL. Absolute URLs are
// accepted only when they belong to a curated destination.
func (s *PlaceQueryService) PhotoURL(ctx context.Context, ref string, maxWidth int) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: photo reference required", domain.ErrInvalidInput)
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		for _, p := range s.Popular(ctx) {
			if p.PhotoRef != nil && *p.PhotoRef == ref {
				return ref, nil
			}
		}
		return "", fmt.Errorf("%w: unknown photo", domain.ErrNotFound)
	}
	pl, ok := s.places.(photoLinker)
	if !ok {
		return "", fmt.Errorf("%w: no photo provider", domain.ErrUnavailable)
	}
	return pl.PhotoURL(ref, maxWidth), nil
}
