package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"startrip/internal/domain"
)

const maxSuggestions = 5

type SuggestService struct {
	gen     domain.TextGenerator
	curated domain.FallbackProvider
}

// NewSuggestService accepts a nil generator; Suggest then answers from the curated list.
func NewSuggestService(g domain.TextGenerator, cur domain.FallbackProvider) *SuggestService {
	return &SuggestService{gen: g, curated: cur}
}

func suggestPrompt(city string, interests []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest up to %d places to visit in %s", maxSuggestions, city)
	if len(interests) > 0 {
		fmt.Fprintf(&b, " for someone interested in %s", strings.Join(interests, ", "))
	}
	b.WriteString(". Respond with a JSON array of objects with string fields \"name\", \"description\" and \"category\"")
	b.WriteString(" where category is one of restaurant, cafe, tourist_attraction, lodging, shopping_mall.")
	return b.String()
}

func (s *SuggestService) Suggest(ctx context.Context, city string, interests []string) ([]domain.Suggestion, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("%w: city required", domain.ErrInvalidInput)
	}
	if s.gen == nil {
		return s.curatedSuggestions(ctx), nil
	}
	out, err := s.gen.Generate(ctx, suggestPrompt(city, cleanInterests(interests)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return parseSuggestions(out)
}

func cleanInterests(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseSuggestions accepts a bare array or {"suggestions": [...]}, optionally
// wrapped in a markdown code fence.
func parseSuggestions(raw string) ([]domain.Suggestion, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var list []domain.Suggestion
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		var wrapped struct {
			Suggestions []domain.Suggestion `json:"suggestions"`
		}
		if werr := json.Unmarshal([]byte(raw), &wrapped); werr != nil || wrapped.Suggestions == nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrBadModelOutput, err)
		}
		list = wrapped.Suggestions
	}

	out := make([]domain.Suggestion, 0, min(len(list), maxSuggestions))
	for _, sg := range list {
		if strings.TrimSpace(sg.Name) == "" {
			continue
		}
		if !sg.Category.Known() {
			sg.Category = domain.CategoryAny
		}
		out = append(out, sg)
		if len(out) == maxSuggestions {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable suggestions", domain.ErrBadModelOutput)
	}
	return out, nil
}

func (s *SuggestService) curatedSuggestions(ctx context.Context) []domain.Suggestion {
	if s.curated == nil {
		return []domain.Suggestion{}
	}
	ps := s.curated.PopularDestinations(ctx)
	out := make([]domain.Suggestion, 0, min(len(ps), maxSuggestions))
	blurbs, _ := s.curated.(interface{ Blurb(placeID string) string })
	for _, p := range ps[:min(len(ps), maxSuggestions)] {
		desc := p.Address
		if blurbs != nil {
			if b := blurbs.Blurb(p.ID); b != "" {
				desc = b
			}
		}
		out = append(out, domain.Suggestion{
			Name:        p.Name,
			Description: desc,
			Category:    domain.CategoryTouristAttraction,
		})
	}
	return out
}
