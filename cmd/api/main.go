package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"startrip/internal/adapters/curated"
	firestoread "startrip/internal/adapters/firestore"
	"startrip/internal/adapters/gemini"
	server "startrip/internal/adapters/http_server"
	"startrip/internal/adapters/identity"
	"startrip/internal/adapters/observability"
	"startrip/internal/adapters/placeindex"
	"startrip/internal/adapters/places"
	redisad "startrip/internal/adapters/redis"
	"startrip/internal/app"
	"startrip/internal/domain"
	"startrip/internal/shared"
	mysqlrepo "startrip/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, requests will bypass the cache")
	}

	// places
	cur := curated.New()
	var client domain.PlacesClient
	if cfg.PlacesKey != "" {
		pc, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize places client")
		}
		client = pc
	}

	var lookup domain.PlaceLookup = client
	if cfg.PlacesBackend == shared.PlacesBackendIndex {
		store, err := placeindex.New(cfg.ElasticURL, cfg.ElasticIndex)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize place index")
		}
		defer store.Stop()
		lookup = store
	} else if client == nil {
		log.Fatal().Msg("PLACES_API_KEY is required for the google backend")
	}
	log.Info().Str("backend", cfg.PlacesBackend).Msg("nearby lookup backend")

	// identity
	secret := cfg.SessionSecret
	if secret == "" {
		secret = randomSecret()
		log.Warn().Msg("SESSION_SECRET is empty, sessions will not survive a restart")
	}
	sessions, err := identity.NewSessions(secret, cfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid session configuration")
	}
	var verifier domain.TokenVerifier
	if cfg.GoogleClientID != "" {
		v, err := identity.NewGoogleVerifier(ctx, cfg.OIDCIssuer, cfg.GoogleClientID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Google sign-in")
		}
		verifier = v
	} else {
		log.Warn().Msg("GOOGLE_CLIENT_ID is empty, sign-in disabled")
	}
	var users domain.UserStore
	if cfg.FirestoreProject != "" {
		fs, err := firestoread.New(ctx, cfg.FirestoreProject, cfg.FirestoreCreds)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize firestore")
		}
		defer fs.Close()
		users = fs
	}

	var gen domain.TextGenerator
	if cfg.GeminiKey != "" {
		g, err := gemini.New(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize gemini")
		}
		gen = g
	}

	// deps
	journal := app.NewJournalService(mysqlrepo.New(db))
	handlers := &server.Handlers{
		Search:  app.NewSearchService(lookup, cur, cfg.LookupTimeout),
		Places:  app.NewPlaceQueryService(client, cur, cache, cfg.CacheTTL),
		Journal: journal,
		Auth:    app.NewAuthService(verifier, users, sessions, journal),
		Suggest: app.NewSuggestService(gen, cur),
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	_ = cache.Close()
	_ = db.Close()
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("generate session secret")
	}
	return hex.EncodeToString(b)
}
