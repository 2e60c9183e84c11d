package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"startrip/internal/adapters/observability"
	"startrip/internal/domain"
)

// Relaxation policy. Tiers run in order; each issues exactly one lookup.
const (
	tier1Radius = 3000
	tier2Radius = 5000
	tier3Radius = 8000

	ratingRelaxStep = 0.5
	reviewRelaxStep = 2
)

type FallbackPolicy int

const (
	// FallbackNone returns an empty list with an advisory when tiers are exhausted.
	FallbackNone FallbackPolicy = iota
	// FallbackCurated returns the curated destination list when tiers are exhausted.
	FallbackCurated
)

func ParseFallback(s string, def FallbackPolicy) FallbackPolicy {
	switch s {
	case "none":
		return FallbackNone
	case "curated":
		return FallbackCurated
	}
	return def
}

func (p FallbackPolicy) String() string {
	if p == FallbackCurated {
		return "curated"
	}
	return "none"
}

type SearchCriteria struct {
	Origin     domain.Coordinate
	Category   domain.Category
	MinRating  float64
	MinReviews int
	MinResults int
	Fallback   FallbackPolicy
}

func (c SearchCriteria) validate() error {
	if !c.Origin.Valid() {
		return fmt.Errorf("%w: coordinate out of range", domain.ErrInvalidCriteria)
	}
	if c.MinRating < 0 || c.MinReviews < 0 || c.MinResults < 0 {
		return fmt.Errorf("%w: thresholds must be non-negative", domain.ErrInvalidCriteria)
	}
	return nil
}

const (
	SourceLookup  = "lookup"
	SourceCurated = "curated"
	SourceNone    = "none"
)

const AdvisoryNoResults = "no places found nearby"

type SearchResult struct {
	Places      []domain.PlaceSummary `json:"places"`
	Tier        int                   `json:"tier"`
	Source      string                `json:"source"`
	LookupCalls int                   `json:"lookup_calls"`
	Exhausted   bool                  `json:"exhausted"`
	Advisory    string                `json:"advisory,omitempty"`
}

type tier struct {
	radius     int
	minRating  float64
	minReviews int
	filter     bool
}

// tiersFor derives the three relaxation levels. Relaxed floors clamp at zero.
func tiersFor(c SearchCriteria) [3]tier {
	return [3]tier{
		{radius: tier1Radius, minRating: c.MinRating, minReviews: c.MinReviews, filter: true},
		{
			radius:     tier2Radius,
			minRating:  max(0, c.MinRating-ratingRelaxStep),
			minReviews: max(0, c.MinReviews-reviewRelaxStep),
			filter:     true,
		},
		{radius: tier3Radius},
	}
}

type SearchService struct {
	lookup        domain.PlaceLookup
	fallback      domain.FallbackProvider
	lookupTimeout time.Duration
}

// NewSearchService builds the adaptive search. A zero timeout leaves each
// lookup bounded only by the caller's context.
func NewSearchService(l domain.PlaceLookup, f domain.FallbackProvider, lookupTimeout time.Duration) *SearchService {
	return &SearchService{lookup: l, fallback: f, lookupTimeout: lookupTimeout}
}

// SearchNearby runs at most three sequential lookups, relaxing radius and
// thresholds until MinResults places qualify. Lookup failures move on to the
// next tier; only caller cancellation is returned as an error.
func (s *SearchService) SearchNearby(ctx context.Context, c SearchCriteria) (SearchResult, error) {
	if err := c.validate(); err != nil {
		return SearchResult{}, err
	}

	var res SearchResult
	for i, t := range tiersFor(c) {
		n := i + 1
		if err := ctx.Err(); err != nil {
			return SearchResult{}, err
		}

		raw, err := s.lookupOnce(ctx, c.Origin, t.radius, c.Category)
		res.LookupCalls++
		if err != nil {
			if ctx.Err() != nil {
				return SearchResult{}, ctx.Err()
			}
			log.Warn().
					Err(err).
					Str("err_type", observability.LabelErr(err)).
					Int("tier", n).
					Int("radius", t.radius).
					Msg("nearby lookup failed")
			continue
		}

		var places []domain.PlaceSummary
		if t.filter {
			places = filterPlaces(raw, t.minRating, t.minReviews)
		} else {
			places = clonePlaces(raw)
		}
		log.Debug().
			Int("tier", n).
			Int("raw", len(raw)).
			Int("kept", len(places)).
			Str("category", string(c.Category)).
			Msg("nearby tier")

		done := len(places) >= c.MinResults
		if !t.filter {
			done = len(places) > 0
		}
		if done {
			res.Places = places
			res.Tier = n
			res.Source = SourceLookup
			observability.ObserveSearch(strconv.Itoa(n), SourceLookup)
			return res, nil
		}
	}

	res.Exhausted = true
	if c.Fallback == FallbackCurated && s.fallback != nil {
		res.Places = s.fallback.PopularDestinations(ctx)
		res.Source = SourceCurated
		observability.ObserveSearch("0", SourceCurated)
		return res, nil
	}
	res.Places = []domain.PlaceSummary{}
	res.Source = SourceNone
	res.Advisory = AdvisoryNoResults
	observability.ObserveSearch("0", SourceNone)
	return res, nil
}

func (s *SearchService) lookupOnce(ctx context.Context, origin domain.Coordinate, radius int, cat domain.Category) ([]domain.PlaceSummary, error) {
	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}
	ps, err := s.lookup.LookupNearby(ctx, origin, radius, cat)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.LookupError{Op: "nearby", Err: err}
		}
		return nil, err
	}
	return ps, nil
}

func filterPlaces(in []domain.PlaceSummary, minRating float64, minReviews int) []domain.PlaceSummary {
	out := make([]domain.PlaceSummary, 0, len(in))
	for _, p := range in {
		if p.Rating >= minRating && p.ReviewCount >= minReviews {
			out = append(out, p)
		}
	}
	return out
}

func clonePlaces(in []domain.PlaceSummary) []domain.PlaceSummary {
	out := make([]domain.PlaceSummary, len(in))
	copy(out, in)
	return out
}
