package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"startrip/internal/app"
	"startrip/internal/domain"
)

const (
	requestTimeout   = 15 * time.Second
	defaultKeepAlive = 25 * time.Second
	maxBodyBytes     = 1 << 20
)

type Handlers struct {
	Search  *app.SearchService
	Places  *app.PlaceQueryService
	Journal *app.JournalService
	Auth    *app.AuthService
	Suggest *app.SuggestService

	// KeepAlive is the comment ping interval on event streams.
	KeepAlive time.Duration
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	auth := Authenticate(h.Auth.Authenticate)

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(requestTimeout))
		r.Use(auth)

		r.Get("/v1/places/nearby", h.nearby(app.FallbackNone, domain.CategoryAny))
		r.Get("/v1/places/search", h.textSearch)
		r.Get("/v1/places/photo", h.placePhoto)
		r.Get("/v1/places/{id}", h.placeDetails)

		r.Get("/v1/recommendations/nearby", h.nearby(app.FallbackCurated, domain.CategoryRestaurant))
		r.Get("/v1/recommendations/popular", h.popular)
		r.Get("/v1/recommendations/suggest", h.suggest)

		r.Post("/v1/auth/google", h.signIn)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/v1/me", h.me)

			r.Get("/v1/stars", h.listStars)
			r.Post("/v1/stars", h.addStar)
			r.Get("/v1/stars/{id}", h.getStar)
			r.Delete("/v1/stars/{id}", h.deleteStar)
			r.Put("/v1/stars/{id}/active", h.setStarFlag(h.Journal.SetStarActive))
			r.Put("/v1/stars/{id}/favorite", h.setStarFlag(h.Journal.SetStarFavorite))

			r.Get("/v1/constellations", h.listConstellations)
			r.Post("/v1/constellations", h.createConstellation)
			r.Get("/v1/constellations/{id}", h.getConstellation)
		})
	})

	// no timeout wrapper: http.TimeoutHandler buffers and cannot flush
	s.mux.With(auth, RequireUser).Get("/v1/me/stream", h.streamProfile)
}

// ---- response helpers ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := http.StatusInternalServerError, "Internal Server Error"
	switch {
	case errors.Is(err, domain.ErrInvalidCriteria), errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedCategory):
		status, title = http.StatusBadRequest, "Bad Request"
	case errors.Is(err, domain.ErrUnauthorized):
		status, title = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		status, title = http.StatusNotFound, "Not Found"
	case errors.Is(err, domain.ErrBadModelOutput):
		status, title = http.StatusBadGateway, "Bad Gateway"
	case errors.Is(err, domain.ErrUnavailable):
		status, title = http.StatusServiceUnavailable, "Service Unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status, title = http.StatusGatewayTimeout, "Gateway Timeout"
	}
	if status >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = ""
	}
	writeProblem(w, status, title, detail)
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON sends v with a weak ETag and answers 304 on a matching If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	if status == http.StatusOK && r.Method == http.MethodGet {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			w.Header().Set("ETag", etag)
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

// ---- query parsing ----

type queryErr struct{ param, want string }

func (e queryErr) Error() string { return fmt.Sprintf("%s must be %s", e.param, e.want) }

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, queryErr{name, "a number"}
	}
	return f, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, queryErr{name, "an integer"}
	}
	return n, nil
}

// coordParam reads lat/lng. ok is false when both are absent.
func coordParam(r *http.Request) (c domain.Coordinate, ok bool, err error) {
	q := r.URL.Query()
	if q.Get("lat") == "" && q.Get("lng") == "" {
		return domain.Coordinate{}, false, nil
	}
	if c.Lat, err = floatParam(r, "lat", 0); err != nil {
		return c, false, err
	}
	if c.Lng, err = floatParam(r, "lng", 0); err != nil {
		return c, false, err
	}
	if q.Get("lat") == "" || q.Get("lng") == "" {
		return c, false, queryErr{"lat and lng", "given together"}
	}
	return c, true, nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, queryErr{"id", "a positive integer"}
	}
	return id, nil
}

// ---- places ----

func (h *Handlers) nearby(defFallback app.FallbackPolicy, defCategory domain.Category) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin, ok, err := coordParam(r)
		if err == nil && !ok {
			err = queryErr{"lat and lng", "provided"}
		}
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
			return
		}
		c := app.SearchCriteria{
			Origin:   origin,
			Category: defCategory,
			Fallback: app.ParseFallback(r.URL.Query().Get("fallback"), defFallback),
		}
		if raw := r.URL.Query().Get("category"); raw != "" {
			c.Category = domain.ParseCategory(raw)
		}
		if c.MinRating, err = floatParam(r, "minRating", 4.0); err == nil {
			if c.MinReviews, err = intParam(r, "minReviews", 5); err == nil {
				c.MinResults, err = intParam(r, "minResults", 3)
			}
		}
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
			return
		}

		res, err := h.Search.SearchNearby(r.Context(), c)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if uid := UserFrom(r.Context()); uid != "" {
			h.Journal.RecordActivity(r.Context(), uid, domain.ActivitySearch, map[string]any{
				"lat": origin.Lat, "lng": origin.Lng, "category": string(c.Category), "tier": res.Tier,
			})
		}
		writeJSON(w, r, http.StatusOK, res)
	}
}

func (h *Handlers) textSearch(w http.ResponseWriter, r *http.Request) {
	near, ok, err := coordParam(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}
	var nearPtr *domain.Coordinate
	if ok {
		nearPtr = &near
	}
	out, err := h.Places.TextSearch(r.Context(), r.URL.Query().Get("q"), nearPtr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"places": out})
}

func (h *Handlers) placeDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.Places.Details(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if uid := UserFrom(r.Context()); uid != "" {
		h.Journal.RecordActivity(r.Context(), uid, domain.ActivityView, map[string]any{"place_id": id})
	}
	writeJSON(w, r, http.StatusOK, d)
}

// placePhoto redirects to the provider's photo endpoint so the API key stays server side.
func (h *Handlers) placePhoto(w http.ResponseWriter, r *http.Request) {
	width, err := intParam(r, "maxwidth", 400)
	if err != nil || width <= 0 || width > 1600 {
		writeProblem(w, http.StatusBadRequest, "Invalid query", "maxwidth must be an integer in 1..1600")
		return
	}
	u, err := h.Places.PhotoURL(r.Context(), r.URL.Query().Get("ref"), width)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (h *Handlers) popular(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"places": h.Places.Popular(r.Context())})
}

func (h *Handlers) suggest(w http.ResponseWriter, r *http.Request) {
	var interests []string
	if raw := r.URL.Query().Get("interests"); raw != "" {
		interests = strings.Split(raw, ",")
	}
	out, err := h.Suggest.Suggest(r.Context(), r.URL.Query().Get("city"), interests)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"suggestions": out})
}

// ---- identity ----

func (h *Handlers) signIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"id_token"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s, err := h.Auth.SignIn(r.Context(), body.IDToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s)
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	p, err := h.Auth.Profile(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// streamProfile pushes profile snapshots as server-sent events until the
// client goes away.
func (h *Handlers) streamProfile(w http.ResponseWriter, r *http.Request) {
	updates := make(chan domain.UserProfile, 4)
	cancel, err := h.Auth.WatchProfile(r.Context(), UserFrom(r.Context()), func(p domain.UserProfile) {
		select {
		case updates <- p:
		default: // slow reader; the next snapshot supersedes this one
		}
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Warn().Err(err).Msg("event stream not flushable")
		return
	}

	every := h.KeepAlive
	if every <= 0 {
		every = defaultKeepAlive
	}
	ping := time.NewTicker(every)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case p := <-updates:
			b, err := json.Marshal(p)
			if err != nil {
				log.Error().Err(err).Msg("encode profile event")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: profile\ndata: %s\n\n", b); err != nil {
				return
			}
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// ---- journal ----

func (h *Handlers) listStars(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	out, err := h.Journal.ListStars(r.Context(), UserFrom(r.Context()), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"stars": out})
}

func (h *Handlers) addStar(w http.ResponseWriter, r *http.Request) {
	var body app.NewStar
	if !decodeBody(w, r, &body) {
		return
	}
	st, err := h.Journal.AddStar(r.Context(), UserFrom(r.Context()), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/stars/%d", st.ID))
	writeJSON(w, r, http.StatusCreated, st)
}

func (h *Handlers) getStar(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	st, err := h.Journal.GetStar(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

func (h *Handlers) deleteStar(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	if err := h.Journal.DeleteStar(r.Context(), UserFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setStarFlag(set func(ctx context.Context, userID string, id int64, v bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid ID", err.Error())
			return
		}
		var body struct {
			Value *bool `json:"value"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if body.Value == nil {
			writeProblem(w, http.StatusBadRequest, "Invalid body", "value is required")
			return
		}
		if err := set(r.Context(), UserFrom(r.Context()), id, *body.Value); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handlers) listConstellations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Journal.ListConstellations(r.Context(), UserFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"constellations": out})
}

func (h *Handlers) createConstellation(w http.ResponseWriter, r *http.Request) {
	var body app.NewConstellation
	if !decodeBody(w, r, &body) {
		return
	}
	c, err := h.Journal.CreateConstellation(r.Context(), UserFrom(r.Context()), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/constellations/%d", c.ID))
	writeJSON(w, r, http.StatusCreated, c)
}

func (h *Handlers) getConstellation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	c, err := h.Journal.GetConstellation(r.Context(), UserFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}
