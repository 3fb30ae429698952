package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "impacttrip/internal/adapters/redis"
	"impacttrip/internal/app"
	"impacttrip/internal/domain"
)

func TestOpportunities_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{items: []domain.CatalogItem{{ID: "a", Title: "Tide pools", Section: "nature"}}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	items, err := q.Opportunities(context.Background())
	if err != nil || len(items) != 1 || items[0].Title != "Tide pools" {
		t.Fatalf("unexpected %+v %v", items, err)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.items = []domain.CatalogItem{{ID: "b", Title: "SHOULD NOT SEE THIS"}}

	items, err = q.Opportunities(context.Background())
	if err != nil || items[0].Title != "Tide pools" {
		t.Fatalf("expected cached item, got %+v", items)
	}
}

func TestHotels_Cache(t *testing.T) {
	repo := &fakeRepo{hotels: []domain.Hotel{{ID: "h1", Name: "Casa", PricePerNight: 80}}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, time.Minute)

	if _, err := q.Hotels(context.Background()); err != nil {
		t.Fatalf("err: %v", err)
	}
	repo.hotels[0].Name = "Changed"
	hs, _ := q.Hotels(context.Background())
	if hs[0].Name != "Casa" {
		t.Fatalf("expected cached name Casa, got %s", hs[0].Name)
	}
}

func TestOpportunities_CorruptCacheFallsBackToRepo(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })
	if err := mr.Set("catalog:opportunities", "{not json"); err != nil {
		t.Fatal(err)
	}
	if err := mr.Set("catalog:hotels", `[{"id":`); err != nil {
		t.Fatal(err)
	}

	repo := &fakeRepo{
		items:  []domain.CatalogItem{{ID: "a", Title: "Tide pools", Section: "nature"}},
		hotels: []domain.Hotel{{ID: "h1", Name: "Casa"}},
	}
	q := app.NewQueryService(repo, rc, time.Minute)
	ctx := context.Background()

	items, err := q.Opportunities(ctx)
	if err != nil || len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("items = %+v err = %v", items, err)
	}
	hs, err := q.Hotels(ctx)
	if err != nil || len(hs) != 1 || hs[0].Name != "Casa" {
		t.Fatalf("hotels = %+v err = %v", hs, err)
	}

	// the corrupt blobs were replaced with readable snapshots
	var again []domain.CatalogItem
	if ok, err := rc.Get(ctx, "catalog:opportunities", &again); !ok || err != nil || len(again) != 1 {
		t.Fatalf("cache not repopulated: ok=%v err=%v %+v", ok, err, again)
	}
}

func TestOpportunity_NotFound(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{}, &fakeCache{}, time.Minute)
	if _, err := q.Opportunity(context.Background(), "zz"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFeedSource_MapsAndSkips(t *testing.T) {
	feeds := &fakeFeeds{feeds: map[string][]map[string]any{
		app.FeedOpportunities: {
			{"id": "o1", "title": "Beach yoga", "category": "Nature", "languages": []any{"English"}},
			{"title": "no id"},
		},
		app.FeedHotels: {{"name": "Casa Azul", "area": "Ribeira"}},
	}}
	src := app.NewFeedSource(feeds)

	items, err := src.Opportunities(context.Background())
	if err != nil || len(items) != 1 || items[0].Section != "nature" {
		t.Fatalf("items = %+v, %v", items, err)
	}
	hs, err := src.Hotels(context.Background())
	if err != nil || len(hs) != 1 || hs[0].ID == "" {
		t.Fatalf("hotels = %+v, %v", hs, err)
	}
}
