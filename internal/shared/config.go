package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	LogLevel       string
	HTTPAddr       string
	MetricsAddr    string
	RequestTimeout time.Duration
	CorsOrigins    []string

	MySQLDSN  string
	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	// CatalogSource is "db" (MySQL behind the cache) or "feed".
	CatalogSource string
	FeedBase      string
	FeedRPS       int
	Feeds         []string
	Workers       int
	// IngestSchedule is a cron spec; empty runs the ingestor once.
	IngestSchedule string

	NATSURL    string
	NATSPrefix string
}

// LoadDotEnv reads .env files when present; real env vars win.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not a number, using default")
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		LogLevel:       env("LOG_LEVEL", "info"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		RequestTimeout: time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		CorsOrigins:    list(env("CORS_ORIGINS", "")),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/impacttrip?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisDB:        atoi("REDIS_DB", 0),
		RedisPass:      env("REDIS_PASSWORD", ""),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		CatalogSource:  strings.ToLower(env("CATALOG_SOURCE", "db")),
		FeedBase:       env("FEED_BASE_URL", "http://localhost:8000/data"),
		FeedRPS:        atoi("FEED_RPS", 5),
		Feeds:          list(env("INGEST_FEEDS", "opportunities,hotels")),
		Workers:        atoi("INGEST_WORKERS", 2),
		IngestSchedule: env("INGEST_SCHEDULE", ""),
		NATSURL:        env("NATS_URL", ""),
		NATSPrefix:     env("NATS_PREFIX", "impacttrip"),
	}
	if c.CatalogSource != "db" && c.CatalogSource != "feed" {
		log.Warn().Str("value", c.CatalogSource).Msg("CATALOG_SOURCE must be db or feed, using db")
		c.CatalogSource = "db"
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func list(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
