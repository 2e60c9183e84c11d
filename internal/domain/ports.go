package domain

import (
	"context"
	"time"
)

// PlaceLookup returns best-effort results; too few matches is not an error.
type PlaceLookup interface {
	LookupNearby(ctx context.Context, origin Coordinate, radiusMeters int, cat Category) ([]PlaceSummary, error)
}

type FallbackProvider interface {
	PopularDestinations(ctx context.Context) []PlaceSummary
}

// CuratedCatalog is the fixed destination list with synthesized details.
type CuratedCatalog interface {
	FallbackProvider
	Destination(placeID string) (PlaceDetails, bool)
}

type PlacesClient interface {
	PlaceLookup
	TextSearch(ctx context.Context, query string, near *Coordinate) ([]PlaceSummary, error)
	Details(ctx context.Context, placeID string) (PlaceDetails, error)
}

type PlaceIndex interface {
	PlaceLookup
	EnsureIndex(ctx context.Context) error
	IndexPlaces(ctx context.Context, ps []PlaceSummary) (int, error)
}

type JournalRepository interface {
	InsertStar(ctx context.Context, s Star) (int64, error)
	GetStar(ctx context.Context, userID string, id int64) (Star, error)
	ListStars(ctx context.Context, userID string, activeOnly bool) ([]Star, error)
	DeleteStar(ctx context.Context, userID string, id int64) error
	UpdateStarActive(ctx context.Context, userID string, id int64, active bool) error
	UpdateStarFavorite(ctx context.Context, userID string, id int64, favorite bool) error

	InsertConstellation(ctx context.Context, c Constellation) (int64, error)
	GetConstellation(ctx context.Context, userID string, id int64) (Constellation, error)
	ListConstellations(ctx context.Context, userID string) ([]Constellation, error)

	InsertActivity(ctx context.Context, a UserActivity) error
	DeleteActivitiesBefore(ctx context.Context, t time.Time) (int64, error)
}

type UserStore interface {
	GetProfile(ctx context.Context, userID string) (UserProfile, error)
	UpsertProfile(ctx context.Context, p UserProfile) error
	// WatchProfile calls fn on every change until the returned cancel is called.
	WatchProfile(ctx context.Context, userID string, fn func(UserProfile)) (cancel func(), err error)
}

type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (Identity, error)
}

type SessionIssuer interface {
	Issue(userID string) (string, time.Time, error)
	Parse(token string) (userID string, err error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
