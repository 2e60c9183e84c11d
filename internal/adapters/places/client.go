// internal/adapters/places/client.go
package places

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"startrip/internal/adapters/observability"
	"startrip/internal/domain"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// detailFields is the field mask requested from the details endpoint.
const detailFields = "place_id,name,rating,user_ratings_total,formatted_address,international_phone_number," +
	"website,opening_hours,price_level,types,geometry,photos,reviews,icon"

// Client talks to the Places web service. It implements domain.PlacesClient.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) LookupNearby(ctx context.Context, origin domain.Coordinate, radiusMeters int, cat domain.Category) ([]domain.PlaceSummary, error) {
	if !cat.Known() {
		return nil, &domain.LookupError{Op: "nearby", Err: fmt.Errorf("%w: %q", domain.ErrUnsupportedCategory, cat)}
	}
	q := url.Values{}
	q.Set("location", formatLatLng(origin))
	q.Set("radius", strconv.Itoa(radiusMeters))
	if cat != domain.CategoryAny {
		q.Set("type", string(cat))
	}
	payload, err := c.get(ctx, "nearbysearch", q)
	if err != nil {
		return nil, &domain.LookupError{Op: "nearby", Err: err}
	}
	return mapResults(payload), nil
}

// TextSearch biases results to near (50 km) when given.
func (c *Client) TextSearch(ctx context.Context, query string, near *domain.Coordinate) ([]domain.PlaceSummary, error) {
	q := url.Values{}
	q.Set("query", query)
	if near != nil {
		q.Set("location", formatLatLng(*near))
		q.Set("radius", "50000")
	}
	payload, err := c.get(ctx, "textsearch", q)
	if err != nil {
		return nil, &domain.LookupError{Op: "textsearch", Err: err}
	}
	return mapResults(payload), nil
}

func (c *Client) Details(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", detailFields)
	payload, err := c.get(ctx, "details", q)
	if err != nil {
		return domain.PlaceDetails{}, &domain.LookupError{Op: "details", Err: err}
	}
	res, ok := lookupAny(payload, "result").(map[string]any)
	if !ok {
		return domain.PlaceDetails{}, &domain.LookupError{Op: "details", Err: domain.ErrNotFound}
	}
	return mapDetails(res), nil
}

// PhotoURL builds a fetchable URL for a photo reference.
func (c *Client) PhotoURL(ref string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 400
	}
	q := url.Values{}
	q.Set("maxwidth", strconv.Itoa(maxWidth))
	q.Set("photo_reference", ref)
	q.Set("key", c.key)
	return c.base + "/photo?" + q.Encode()
}

func formatLatLng(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ---- Internals ----

var errRetryable = errors.New("places: retryable status")

// statusErr maps the body "status" field. Empty and ZERO_RESULTS are success.
func statusErr(payload map[string]any) error {
	st := lookupStr(payload, "status")
	msg := lookupStr(payload, "error_message")
	switch st {
	case "", "OK", "ZERO_RESULTS":
		return nil
	case "NOT_FOUND":
		return domain.ErrNotFound
	case "REQUEST_DENIED":
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case "INVALID_REQUEST":
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return fmt.Errorf("%w %s: %w", errRetryable, st, domain.ErrUnavailable)
	default:
		return fmt.Errorf("places status %s: %s", st, msg)
	}
}

// get performs a GET with client-side rate limiting, retries, and JSON decode.
// Retries on 429, transient 5xx and retryable body statuses, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values) (map[string]any, error) {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	q.Set("key", c.key)
	u := c.base + "/" + endpoint + "/json?" + q.Encode()

	var lastErr error
	for i := 0; i < 4; i++ {
		start := time.Now()
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "startrip/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("places", endpoint, 0, time.Since(start))
			// network error or context canceled
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("places", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			var out map[string]any
			err := json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", endpoint, err)
			}
			serr := statusErr(out)
			if serr == nil {
				return out, nil
			}
			if !errors.Is(serr, errRetryable) {
				return nil, serr
			}
			lastErr = serr
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, domain.ErrNotFound

		case http.StatusUnauthorized, http.StatusForbidden:
			resp.Body.Close()
			return nil, domain.ErrUnauthorized

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%w: remote %d", domain.ErrUnavailable, resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return nil, lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms, 400ms, 800ms... with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
