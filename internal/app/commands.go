package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"startrip/internal/domain"
)

type JournalService struct {
	repo domain.JournalRepository
	now  func() time.Time
}

func NewJournalService(r domain.JournalRepository) *JournalService {
	return &JournalService{repo: r, now: time.Now}
}

type NewStar struct {
	PlaceID       string                                `json:"place_id"`
	Name          string                                `json:"name"`
	Location      domain.Coordinate                     `json:"location"`
	Rating        float64                               `json:"rating"`
	BusinessHours map[time.Weekday]domain.BusinessHours `json:"business_hours,omitempty"`
}

func (n NewStar) validate() error {
	switch {
	case strings.TrimSpace(n.PlaceID) == "":
		return fmt.Errorf("%w: place_id required", domain.ErrInvalidInput)
	case strings.TrimSpace(n.Name) == "":
		return fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	case !n.Location.Valid():
		return fmt.Errorf("%w: coordinate out of range", domain.ErrInvalidInput)
	case n.Rating < 0 || n.Rating > 5:
		return fmt.Errorf("%w: rating must be within 0..5", domain.ErrInvalidInput)
	}
	for day, h := range n.BusinessHours {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: weekday %d", domain.ErrInvalidInput, day)
		}
		if !validMinute(h.OpenMinute) || !validMinute(h.CloseMinute) {
			return fmt.Errorf("%w: %s hours out of range", domain.ErrInvalidInput, day)
		}
	}
	return nil
}

func validMinute(m *int) bool { return m == nil || (*m >= 0 && *m < 24*60) }

// AddStar saves a place for the user. New stars start active.
func (s *JournalService) AddStar(ctx context.Context, userID string, n NewStar) (domain.Star, error) {
	if userID == "" {
		return domain.Star{}, domain.ErrUnauthorized
	}
	if err := n.validate(); err != nil {
		return domain.Star{}, err
	}
	st := domain.Star{
		UserID:        userID,
		PlaceID:       strings.TrimSpace(n.PlaceID),
		Name:          strings.TrimSpace(n.Name),
		Location:      n.Location,
		Rating:        n.Rating,
		BusinessHours: n.BusinessHours,
		Active:        true,
		CreatedAt:     s.now().UTC().Truncate(time.Second),
	}
	id, err := s.repo.InsertStar(ctx, st)
	if err != nil {
		return domain.Star{}, fmt.Errorf("insert star: %w", err)
	}
	st.ID = id
	s.RecordActivity(ctx, userID, domain.ActivitySave, map[string]any{"place_id": st.PlaceID, "star_id": id})
	return st, nil
}

func (s *JournalService) GetStar(ctx context.Context, userID string, id int64) (domain.Star, error) {
	return s.repo.GetStar(ctx, userID, id)
}

func (s *JournalService) ListStars(ctx context.Context, userID string, activeOnly bool) ([]domain.Star, error) {
	out, err := s.repo.ListStars(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Star{}
	}
	return out, nil
}

func (s *JournalService) DeleteStar(ctx context.Context, userID string, id int64) error {
	return s.repo.DeleteStar(ctx, userID, id)
}

func (s *JournalService) SetStarActive(ctx context.Context, userID string, id int64, active bool) error {
	return s.repo.UpdateStarActive(ctx, userID, id, active)
}

func (s *JournalService) SetStarFavorite(ctx context.Context, userID string, id int64, favorite bool) error {
	return s.repo.UpdateStarFavorite(ctx, userID, id, favorite)
}

type NewConstellation struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	StarIDs     []int64                 `json:"star_ids"`
	Connections []domain.StarConnection `json:"connections"`
}

// CreateConstellation groups existing stars of the user. Every connection
// must join two distinct member stars.
func (s *JournalService) CreateConstellation(ctx context.Context, userID string, n NewConstellation) (domain.Constellation, error) {
	if strings.TrimSpace(n.Name) == "" {
		return domain.Constellation{}, fmt.Errorf("%w: name required", domain.ErrInvalidInput)
	}
	if len(n.StarIDs) == 0 {
		return domain.Constellation{}, fmt.Errorf("%w: at least one star required", domain.ErrInvalidInput)
	}

	members := make(map[int64]struct{}, len(n.StarIDs))
	stars := make([]domain.Star, 0, len(n.StarIDs))
	for _, id := range n.StarIDs {
		if _, dup := members[id]; dup {
			continue
		}
		st, err := s.repo.GetStar(ctx, userID, id)
		if err != nil {
			return domain.Constellation{}, fmt.Errorf("star %d: %w", id, err)
		}
		members[id] = struct{}{}
		stars = append(stars, st)
	}

	conns := make([]domain.StarConnection, 0, len(n.Connections))
	seen := make(map[domain.StarConnection]struct{}, len(n.Connections))
	for _, c := range n.Connections {
		if c.From == c.To {
			return domain.Constellation{}, fmt.Errorf("%w: star %d connected to itself", domain.ErrInvalidInput, c.From)
		}
		_, okFrom := members[c.From]
		_, okTo := members[c.To]
		if !okFrom || !okTo {
			return domain.Constellation{}, fmt.Errorf("%w: connection %d-%d references a non-member star", domain.ErrInvalidInput, c.From, c.To)
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		conns = append(conns, c)
	}

	cs := domain.Constellation{
		UserID:      userID,
		Name:        strings.TrimSpace(n.Name),
		Description: n.Description,
		Stars:       stars,
		Connections: conns,
	}
	id, err := s.repo.InsertConstellation(ctx, cs)
	if err != nil {
		return domain.Constellation{}, fmt.Errorf("insert constellation: %w", err)
	}
	cs.ID = id
	return cs, nil
}

func (s *JournalService) GetConstellation(ctx context.Context, userID string, id int64) (domain.Constellation, error) {
	return s.repo.GetConstellation(ctx, userID, id)
}

func (s *JournalService) ListConstellations(ctx context.Context, userID string) ([]domain.Constellation, error) {
	out, err := s.repo.ListConstellations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Constellation{}
	}
	return out, nil
}

// RecordActivity is best-effort; failures are logged and dropped.
func (s *JournalService) RecordActivity(ctx context.Context, userID string, typ domain.ActivityType, data any) {
	if userID == "" {
		return
	}
	var raw []byte
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			log.Warn().Err(err).Str("type", string(typ)).Msg("activity payload not encodable")
		} else {
			raw = b
		}
	}
	a := domain.UserActivity{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Timestamp: s.now().UTC(),
		DataJSON:  raw,
	}
	if err := s.repo.InsertActivity(ctx, a); err != nil {
		log.Warn().Err(err).Str("user", userID).Str("type", string(typ)).Msg("record activity failed")
	}
}

// PruneActivities removes activities older than the given age.
func (s *JournalService) PruneActivities(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", domain.ErrInvalidInput)
	}
	return s.repo.DeleteActivitiesBefore(ctx, s.now().UTC().Add(-olderThan))
}
