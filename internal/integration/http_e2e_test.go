//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"impacttrip/internal/adapters/catalogfeed"
	httpserver "impacttrip/internal/adapters/http_server"
	redisad "impacttrip/internal/adapters/redis"
	"impacttrip/internal/app"
	mysqlrepo "impacttrip/internal/storage/mysql"
)

// ---------- helpers ----------
func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- static feed host ----------
const opportunitiesFeed = `[
  {"id":"o1","title":"Dune walk","section":"nature","languages":["English"],"duration":"Half day"},
  {"id":"o2","title":"Tile class","section":"culture","languages":["Portuguese"],"duration":"2h"},
  {"title":"no id, skipped"},
  {"id":"o3","title":"River cleanup","section":"nature","languages":["English","Portuguese"],"duration":"Full day"},
  {"id":"o4","title":"Bird count","section":"nature","languages":["English"],"duration":"1h"}
]`

const hotelsFeed = `[
  {"id":"h1","name":"Casa Azul","area":"Ribeira","pricePerNight":89,"currency":"€",
   "affiliateUrl":"https://book.example/h1?in={CHECKIN}&out={CHECKOUT}&guests={ADULTS}"}
]`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/opportunities.json":
			_, _ = w.Write([]byte(opportunitiesFeed))
		case "/hotels.json":
			_, _ = w.Write([]byte(hotelsFeed))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer res.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

// ---------- the test ----------
func TestHTTP_EndToEnd_IngestBrowseBook(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=impacttrip",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "impacttrip")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// Apply the real migrations
	applyMigrations(t, db)

	mr := miniredis.RunT(t)
	rc := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })

	repo := mysqlrepo.New(db)
	feeds, err := catalogfeed.New(feedServer(t).URL, 50)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// Ingest both feeds
	ing := app.NewIngestionService(feeds, repo, rc)
	for _, f := range []string{app.FeedOpportunities, app.FeedHotels} {
		if err := ing.IngestFeed(ctx, f); err != nil {
			t.Fatalf("ingest %s: %v", f, err)
		}
	}

	// Serve sessions over the stored catalog
	q := app.NewQueryService(repo, rc, time.Minute)
	sessions := app.NewSessionManager(rc, q, app.EngineConfig{}, nil)
	srv := httpserver.New(httpserver.Options{})
	srv.MountHandlers(&httpserver.Handlers{Sessions: sessions, Catalog: q})
	api := httptest.NewServer(srv.Mux())
	defer api.Close()

	status, created := call(t, http.MethodPost, api.URL+"/v1/sessions", "")
	if status != http.StatusCreated {
		t.Fatalf("create session: %d", status)
	}
	base := api.URL + "/v1/sessions/" + created["id"].(string)

	// All three nature items land in one lane with one promo after the second.
	res, err := http.Get(base + "/lanes")
	if err != nil {
		t.Fatal(err)
	}
	var lanes []struct {
		Name    string `json:"name"`
		Entries []struct {
			Kind string `json:"kind"`
		} `json:"entries"`
	}
	_ = json.NewDecoder(res.Body).Decode(&lanes)
	res.Body.Close()
	if len(lanes) == 0 || lanes[0].Name != "nature" || len(lanes[0].Entries) != 4 || lanes[0].Entries[2].Kind != "promo" {
		t.Fatalf("unexpected nature lane: %+v", lanes)
	}

	// Facets narrow the lanes
	if status, _ := call(t, http.MethodPut, base+"/facets/duration/full", ""); status != http.StatusOK {
		t.Fatalf("set duration: %d", status)
	}

	// Criteria drive the booking link
	for field, v := range map[string]string{"dateStart": "2026-11-02", "dateEnd": "2026-11-05", "adults": "2"} {
		if status, out := call(t, http.MethodPut, base+"/criteria/"+field, `{"value":"`+v+`"}`); status != http.StatusOK {
			t.Fatalf("put %s: %d %v", field, status, out)
		}
	}
	if status, out := call(t, http.MethodPost, base+"/criteria/submit", ""); status != http.StatusOK {
		t.Fatalf("submit: %d %v", status, out)
	}
	_, panel := call(t, http.MethodGet, base+"/hotels", "")
	card := panel["cards"].([]any)[0].(map[string]any)
	want := "https://book.example/h1?in=2026-11-02&out=2026-11-05&guests=2"
	if card["bookUrl"] != want || panel["datesLabel"] != "2026-11-02 → 2026-11-05" {
		t.Fatalf("panel = %v", panel)
	}

	// Single item lookup straight from storage
	if status, out := call(t, http.MethodGet, api.URL+"/v1/opportunities/o3", ""); status != http.StatusOK || out["title"] != "River cleanup" {
		t.Fatalf("opportunity: %d %v", status, out)
	}
	if status, _ := call(t, http.MethodGet, api.URL+"/v1/opportunities/nope", ""); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}
