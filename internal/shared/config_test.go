package shared_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"impacttrip/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "CATALOG_SOURCE", "INGEST_FEEDS", "CACHE_TTL_SECONDS", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
	c := shared.Load()
	if c.AppEnv != "prod" || c.CatalogSource != "db" || c.CacheTTL != 15*time.Minute {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if !reflect.DeepEqual(c.Feeds, []string{"opportunities", "hotels"}) || c.CorsOrigins != nil {
		t.Fatalf("feeds=%v cors=%v", c.Feeds, c.CorsOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CATALOG_SOURCE", "FEED")
	t.Setenv("INGEST_FEEDS", " hotels , ")
	t.Setenv("INGEST_WORKERS", "0")
	t.Setenv("FEED_RPS", "many")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	c := shared.Load()
	if c.CatalogSource != "feed" || !reflect.DeepEqual(c.Feeds, []string{"hotels"}) {
		t.Fatalf("unexpected %+v", c)
	}
	if c.Workers != 1 || c.FeedRPS != 5 || len(c.CorsOrigins) != 2 {
		t.Fatalf("workers=%d rps=%d cors=%v", c.Workers, c.FeedRPS, c.CorsOrigins)
	}

	t.Setenv("CATALOG_SOURCE", "ftp")
	if shared.Load().CatalogSource != "db" {
		t.Fatalf("invalid source should fall back to db")
	}
}

func TestLoadDotEnv_EnvWins(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, ".env")
	if err := os.WriteFile(f, []byte("NATS_PREFIX=from-file\nREDIS_DB=3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NATS_PREFIX", "from-env")
	t.Setenv("REDIS_DB", "")
	os.Unsetenv("REDIS_DB")

	shared.LoadDotEnv(f)
	c := shared.Load()
	if c.NATSPrefix != "from-env" || c.RedisDB != 3 {
		t.Fatalf("prefix=%s db=%d", c.NATSPrefix, c.RedisDB)
	}
	shared.LoadDotEnv(filepath.Join(dir, "missing.env"))
}
