package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"startrip/internal/domain"
)

// ---- place lookup ----

type lookupCall struct {
	radius int
	cat    domain.Category
}

type fakeLookup struct {
	mu     sync.Mutex
	byRad  map[int][]domain.PlaceSummary
	errs   map[int]error
	block  map[int]bool
	calls  []lookupCall
	onCall func(radius int)
}

func (f *fakeLookup) LookupNearby(ctx context.Context, _ domain.Coordinate, radius int, cat domain.Category) ([]domain.PlaceSummary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, lookupCall{radius: radius, cat: cat})
	hook := f.onCall
	f.mu.Unlock()
	if hook != nil {
		hook(radius)
	}
	if f.block[radius] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.errs[radius]; err != nil {
		return nil, err
	}
	return f.byRad[radius], nil
}

func (f *fakeLookup) radii() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.radius)
	}
	return out
}

func place(id string, rating float64, reviews int) domain.PlaceSummary {
	return domain.PlaceSummary{ID: id, Name: "Place " + id, Rating: rating, ReviewCount: reviews, Types: []string{"restaurant"}}
}

// ---- curated ----

type fakeCurated struct {
	list    []domain.PlaceSummary
	details map[string]domain.PlaceDetails
}

func (f *fakeCurated) PopularDestinations(context.Context) []domain.PlaceSummary {
	out := make([]domain.PlaceSummary, len(f.list))
	copy(out, f.list)
	return out
}

func (f *fakeCurated) Destination(id string) (domain.PlaceDetails, bool) {
	d, ok := f.details[id]
	return d, ok
}

// ---- places client ----

type fakePlaces struct {
	fakeLookup
	search      []domain.PlaceSummary
	searchErr   error
	searchCalls int
	details     map[string]domain.PlaceDetails
	detailsErr  error
	detailCalls int
}

func (f *fakePlaces) TextSearch(_ context.Context, _ string, _ *domain.Coordinate) ([]domain.PlaceSummary, error) {
	f.searchCalls++
	return f.search, f.searchErr
}

func (f *fakePlaces) Details(_ context.Context, id string) (domain.PlaceDetails, error) {
	f.detailCalls++
	if f.detailsErr != nil {
		return domain.PlaceDetails{}, f.detailsErr
	}
	d, ok := f.details[id]
	if !ok {
		return domain.PlaceDetails{}, &domain.LookupError{Op: "details", Err: domain.ErrNotFound}
	}
	return d, nil
}

// ---- cache (JSON round trip like the redis adapter) ----

type fakeCache struct {
	store  map[string][]byte
	getErr error
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- journal repository ----

type memRepo struct {
	mu         sync.Mutex
	nextID     int64
	stars      map[int64]domain.Star
	cons       map[int64]domain.Constellation
	activities []domain.UserActivity
	insertErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{stars: map[int64]domain.Star{}, cons: map[int64]domain.Constellation{}}
}

func (r *memRepo) InsertStar(_ context.Context, s domain.Star) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.nextID++
	s.ID = r.nextID
	r.stars[s.ID] = s
	return s.ID, nil
}

func (r *memRepo) GetStar(_ context.Context, userID string, id int64) (domain.Star, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stars[id]
	if !ok || s.UserID != userID {
		return domain.Star{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *memRepo) ListStars(_ context.Context, userID string, activeOnly bool) ([]domain.Star, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Star
	for id := int64(1); id <= r.nextID; id++ {
		s, ok := r.stars[id]
		if !ok || s.UserID != userID || (activeOnly && !s.Active) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memRepo) DeleteStar(_ context.Context, userID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stars[id]
	if !ok || s.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.stars, id)
	return nil
}

func (r *memRepo) update(userID string, id int64, fn func(*domain.Star)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stars[id]
	if !ok || s.UserID != userID {
		return domain.ErrNotFound
	}
	fn(&s)
	r.stars[id] = s
	return nil
}

func (r *memRepo) UpdateStarActive(_ context.Context, userID string, id int64, v bool) error {
	return r.update(userID, id, func(s *domain.Star) { s.Active = v })
}

func (r *memRepo) UpdateStarFavorite(_ context.Context, userID string, id int64, v bool) error {
	return r.update(userID, id, func(s *domain.Star) { s.Favorite = v })
}

func (r *memRepo) InsertConstellation(_ context.Context, c domain.Constellation) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	r.cons[c.ID] = c
	return c.ID, nil
}

func (r *memRepo) GetConstellation(_ context.Context, userID string, id int64) (domain.Constellation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cons[id]
	if !ok || c.UserID != userID {
		return domain.Constellation{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *memRepo) ListConstellations(_ context.Context, userID string) ([]domain.Constellation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Constellation
	for id := int64(1); id <= r.nextID; id++ {
		if c, ok := r.cons[id]; ok && c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) InsertActivity(_ context.Context, a domain.UserActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = append(r.activities, a)
	return nil
}

func (r *memRepo) DeleteActivitiesBefore(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.activities[:0]
	var n int64
	for _, a := range r.activities {
		if a.Timestamp.Before(t) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.activities = kept
	return n, nil
}

func (f *fakePlaces) PhotoURL(ref string, maxWidth int) string {
	return fmt.Sprintf("https://photos.test/%s?w=%d", ref, maxWidth)
}
