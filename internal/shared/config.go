package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	PlacesBackendGoogle = "google"
	PlacesBackendIndex  = "index"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	PlacesBase    string
	PlacesKey     string
	PlacesRPS     int
	PlacesBackend string
	ElasticURL    string
	ElasticIndex  string
	LookupTimeout time.Duration
	CacheTTL      time.Duration

	Workers           int
	ActivityRetention time.Duration

	GoogleClientID   string
	OIDCIssuer       string
	SessionSecret    string
	SessionTTL       time.Duration
	FirestoreProject string
	FirestoreCreds   string
	GeminiKey        string
	GeminiModel      string
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Real environment variables win over .env entries.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env not loaded")
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/startrip?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		PlacesBase:    env("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
		PlacesKey:     env("PLACES_API_KEY", ""),
		PlacesRPS:     atoi("PLACES_RPS", 5),
		PlacesBackend: env("PLACES_BACKEND", PlacesBackendGoogle),
		ElasticURL:    env("ELASTIC_URL", "http://localhost:9200"),
		ElasticIndex:  env("ELASTIC_INDEX", "places"),
		LookupTimeout: time.Duration(atoi("LOOKUP_TIMEOUT_MS", 4000)) * time.Millisecond,
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		Workers:           atoi("INGEST_WORKERS", 8),
		ActivityRetention: time.Duration(atoi("ACTIVITY_RETENTION_DAYS", 90)) * 24 * time.Hour,

		GoogleClientID:   env("GOOGLE_CLIENT_ID", ""),
		OIDCIssuer:       env("OIDC_ISSUER", "https://accounts.google.com"),
		SessionSecret:    env("SESSION_SECRET", ""),
		SessionTTL:       time.Duration(atoi("SESSION_TTL_MINUTES", 1440)) * time.Minute,
		FirestoreProject: env("FIRESTORE_PROJECT", ""),
		FirestoreCreds:   env("FIRESTORE_CREDENTIALS", ""),
		GeminiKey:        env("GEMINI_API_KEY", ""),
		GeminiModel:      env("GEMINI_MODEL", "gemini-2.0-flash"),
	}
	if c.PlacesKey == "" {
		log.Warn().Msg("PLACES_API_KEY is empty")
	}
	if c.PlacesBackend != PlacesBackendGoogle && c.PlacesBackend != PlacesBackendIndex {
		log.Warn().Str("backend", c.PlacesBackend).Msg("unknown PLACES_BACKEND, using google")
		c.PlacesBackend = PlacesBackendGoogle
	}
	return c
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
	}
	return def
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
