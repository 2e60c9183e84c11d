// Package placeindex is a PlaceLookup backed by an Elasticsearch geo index
// that cmd/ingestor fills from the places provider.
package placeindex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog/log"

	"startrip/internal/adapters/observability"
	"startrip/internal/domain"
)

const mapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "keyword"},
      "name":         {"type": "text"},
      "address":      {"type": "text"},
      "types":        {"type": "keyword"},
      "rating":       {"type": "float"},
      "review_count": {"type": "integer"},
      "photo_ref":    {"type": "keyword", "index": false},
      "icon_url":     {"type": "keyword", "index": false},
      "location":     {"type": "geo_point"}
    }
  }
}`

// nearbyLimit caps hits per lookup, matching the provider's page size.
const nearbyLimit = 20

type doc struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	Types       []string         `json:"types"`
	Rating      float64          `json:"rating"`
	ReviewCount int              `json:"review_count"`
	PhotoRef    *string          `json:"photo_ref,omitempty"`
	IconURL     string           `json:"icon_url,omitempty"`
	Location    elastic.GeoPoint `json:"location"`
}

type Store struct {
	client *elastic.Client
	index  string
}

// New connects without sniffing so it works against single-node and proxied clusters.
func New(url, index string) (*Store, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("elastic client: %w", err)
	}
	return &Store{client: client, index: index}, nil
}

func (s *Store) Stop() { s.client.Stop() }

func (s *Store) EnsureIndex(ctx context.Context) error {
	exists, err := s.client.IndexExists(s.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	if exists {
		return nil
	}
	res, err := s.client.CreateIndex(s.index).BodyString(mapping).Do(ctx)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if !res.Acknowledged {
		log.Warn().Str("index", s.index).Msg("create index not acknowledged")
	}
	return nil
}

// IndexPlaces upserts by place id and returns how many items succeeded.
func (s *Store) IndexPlaces(ctx context.Context, ps []domain.PlaceSummary) (int, error) {
	if len(ps) == 0 {
		return 0, nil
	}
	bulk := s.client.Bulk()
	for _, p := range ps {
		bulk = bulk.Add(elastic.NewBulkIndexRequest().Index(s.index).Id(p.ID).Doc(toDoc(p)))
	}
	res, err := bulk.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	failed := res.Failed()
	for _, it := range failed {
		if it.Error != nil {
			log.Warn().Str("id", it.Id).Str("reason", it.Error.Reason).Msg("bulk item failed")
		}
	}
	return len(ps) - len(failed), nil
}

func (s *Store) LookupNearby(ctx context.Context, origin domain.Coordinate, radiusMeters int, cat domain.Category) ([]domain.PlaceSummary, error) {
	if !cat.Known() {
		return nil, &domain.LookupError{Op: "index", Err: fmt.Errorf("%w: %q", domain.ErrUnsupportedCategory, cat)}
	}
	q := elastic.NewBoolQuery().Filter(
		elastic.NewGeoDistanceQuery("location").
			Lat(origin.Lat).
			Lon(origin.Lng).
			Distance(fmt.Sprintf("%dm", radiusMeters)),
	)
	if cat != domain.CategoryAny {
		q = q.Filter(elastic.NewTermQuery("types", string(cat)))
	}

	start := time.Now()
	res, err := s.client.Search().
		Index(s.index).
		Query(q).
		SortBy(elastic.NewGeoDistanceSort("location").
			Point(origin.Lat, origin.Lng).
			Asc().
			Unit("m").
			DistanceType("arc")).
		Size(nearbyLimit).
		Do(ctx)
	status := 200
	if err != nil {
		status = 0
		if e, ok := err.(*elastic.Error); ok {
			status = e.Status
		}
	}
	observability.ObserveExternal("elastic", "search", status, time.Since(start))
	if err != nil {
		return nil, &domain.LookupError{Op: "index", Err: fmt.Errorf("%w: %v", domain.ErrUnavailable, err)}
	}

	if res.Hits == nil {
		return []domain.PlaceSummary{}, nil
	}
	out := make([]domain.PlaceSummary, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var d doc
		if err := json.Unmarshal(hit.Source, &d); err != nil {
			log.Warn().Err(err).Str("id", hit.Id).Msg("skip undecodable hit")
			continue
		}
		out = append(out, d.summary())
	}
	return out, nil
}

func toDoc(p domain.PlaceSummary) doc {
	return doc{
		ID:          p.ID,
		Name:        p.Name,
		Address:     p.Address,
		Types:       p.Types,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		PhotoRef:    p.PhotoRef,
		IconURL:     p.IconURL,
		Location:    elastic.GeoPoint{Lat: p.Location.Lat, Lon: p.Location.Lng},
	}
}

func (d doc) summary() domain.PlaceSummary {
	types := d.Types
	if types == nil {
		types = []string{}
	}
	return domain.PlaceSummary{
		ID:          d.ID,
		Name:        d.Name,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		Address:     d.Address,
		Types:       types,
		Location:    domain.Coordinate{Lat: d.Location.Lat, Lng: d.Location.Lon},
		PhotoRef:    d.PhotoRef,
		IconURL:     d.IconURL,
	}
}
