package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"startrip/internal/domain"
)

// ingestRadius matches the widest search tier so indexed data covers every lookup.
const ingestRadius = tier3Radius

var ingestCategories = []domain.Category{
	domain.CategoryRestaurant,
	domain.CategoryCafe,
	domain.CategoryTouristAttraction,
	domain.CategoryLodging,
	domain.CategoryShopping,
}

type IngestStats struct {
	Jobs    int
	Failed  int
	Fetched int
	Indexed int
}

// IngestionService copies provider results around each seed destination into
// the place index.
type IngestionService struct {
	source  domain.PlaceLookup
	index   domain.PlaceIndex
	seeds   domain.FallbackProvider
	workers int64
}

func NewIngestionService(src domain.PlaceLookup, idx domain.PlaceIndex, seeds domain.FallbackProvider, workers int) *IngestionService {
	if workers <= 0 {
		workers = 1
	}
	return &IngestionService{source: src, index: idx, seeds: seeds, workers: int64(workers)}
}

// Run fetches every seed/category pair with bounded concurrency. Individual
// job failures are counted, not returned; only index setup and cancellation abort.
func (s *IngestionService) Run(ctx context.Context) (IngestStats, error) {
	if err := s.index.EnsureIndex(ctx); err != nil {
		return IngestStats{}, fmt.Errorf("ensure index: %w", err)
	}

	sem := semaphore.NewWeighted(s.workers)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		stats IngestStats
	)

	for _, seed := range s.seeds.PopularDestinations(ctx) {
		for _, cat := range ingestCategories {
			// acquire before launching the goroutine; release inside it
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return stats, err
			}
			mu.Lock()
			stats.Jobs++
			mu.Unlock()

			wg.Add(1)
			go func(seed domain.PlaceSummary, cat domain.Category) {
				defer wg.Done()
				defer sem.Release(1)

				fetched, indexed, err := s.ingestOne(ctx, seed.Location, cat)
				mu.Lock()
				defer mu.Unlock()
				stats.Fetched += fetched
				stats.Indexed += indexed
				if err != nil {
					stats.Failed++
					log.Warn().Err(err).Str("seed", seed.Name).Str("category", string(cat)).Msg("ingest failed")
					return
				}
				log.Info().Str("seed", seed.Name).Str("category", string(cat)).Int("indexed", indexed).Msg("ingest ok")
			}(seed, cat)
		}
	}

	wg.Wait()
	return stats, ctx.Err()
}

func (s *IngestionService) ingestOne(ctx context.Context, at domain.Coordinate, cat domain.Category) (int, int, error) {
	ps, err := s.source.LookupNearby(ctx, at, ingestRadius, cat)
	if err != nil {
		return 0, 0, err
	}
	if len(ps) == 0 {
		return 0, 0, nil
	}
	n, err := s.index.IndexPlaces(ctx, ps)
	return len(ps), n, err
}
