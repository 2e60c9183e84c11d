package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"startrip/internal/app"
	"startrip/internal/domain"
)

type memIndex struct {
	mu        sync.Mutex
	ensureErr error
	docs      map[string]domain.PlaceSummary
}

func (m *memIndex) LookupNearby(context.Context, domain.Coordinate, int, domain.Category) ([]domain.PlaceSummary, error) {
	return nil, nil
}

func (m *memIndex) EnsureIndex(context.Context) error { return m.ensureErr }

func (m *memIndex) IndexPlaces(_ context.Context, ps []domain.PlaceSummary) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string]domain.PlaceSummary{}
	}
	for _, p := range ps {
		m.docs[p.ID] = p
	}
	return len(ps), nil
}

type countingLookup struct {
	inFlight, peak atomic.Int32
	fail           domain.Category
}

func (c *countingLookup) LookupNearby(_ context.Context, at domain.Coordinate, radius int, cat domain.Category) ([]domain.PlaceSummary, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if cat == c.fail {
		return nil, errors.New("quota exceeded")
	}
	if radius != 8000 {
		return nil, errors.New("unexpected radius")
	}
	id := string(cat) + "@" + formatCoord(at)
	return []domain.PlaceSummary{{ID: id, Types: []string{string(cat)}, Location: at}}, nil
}

func formatCoord(c domain.Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lng)
}

func TestIngestion_IndexesEverySeedAndCategory(t *testing.T) {
	src := &countingLookup{fail: domain.CategoryLodging}
	idx := &memIndex{}
	seeds := curatedList() // two seeds
	seeds.list[1].Location = domain.Coordinate{Lat: 35.1, Lng: 129.0}

	stats, err := app.NewIngestionService(src, idx, seeds, 2).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, stats.Jobs)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 8, stats.Indexed)
	assert.Len(t, idx.docs, 8)
	assert.LessOrEqual(t, src.peak.Load(), int32(2))
}

func TestIngestion_EnsureIndexFailureAborts(t *testing.T) {
	idx := &memIndex{ensureErr: errors.New("cluster red")}
	_, err := app.NewIngestionService(&countingLookup{}, idx, curatedList(), 4).Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, idx.docs)
}
