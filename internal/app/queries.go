package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"impacttrip/internal/domain"
)

const (
	cacheKeyOpportunities = "catalog:opportunities"
	cacheKeyHotels        = "catalog:hotels"
)

// QueryService is the CatalogSource backed by the repository, with the whole
// feed snapshots cached.
type QueryService struct {
	repo     domain.CatalogRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

var _ domain.CatalogSource = (*QueryService)(nil)

func NewQueryService(r domain.CatalogRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) Opportunities(ctx context.Context) ([]domain.CatalogItem, error) {
	var out []domain.CatalogItem
	if s.cached(ctx, cacheKeyOpportunities, &out) {
		return out, nil
	}
	items, err := s.repo.ListOpportunities(ctx)
	if err != nil {
		return nil, err
	}
	// copy so later callers never share the repo's backing array
	cp := append([]domain.CatalogItem(nil), items...)
	s.store(ctx, cacheKeyOpportunities, cp)
	return cp, nil
}

func (s *QueryService) Hotels(ctx context.Context) ([]domain.Hotel, error) {
	var out []domain.Hotel
	if s.cached(ctx, cacheKeyHotels, &out) {
		return out, nil
	}
	hs, err := s.repo.ListHotels(ctx)
	if err != nil {
		return nil, err
	}
	cp := append([]domain.Hotel(nil), hs...)
	s.store(ctx, cacheKeyHotels, cp)
	return cp, nil
}

// Opportunity reads a single item straight from the repository.
func (s *QueryService) Opportunity(ctx context.Context, id string) (domain.CatalogItem, error) {
	return s.repo.GetOpportunity(ctx, id)
}

// cached reports a usable hit. An unreadable entry counts as a miss and is
// dropped so the next read repopulates it from the repository.
func (s *QueryService) cached(ctx context.Context, key string, dst any) bool {
	ok, err := s.cache.Get(ctx, key, dst)
	if err == nil {
		return ok
	}
	log.Warn().Err(err).Str("key", key).Msg("catalog cache unreadable, reading repository")
	if derr := s.cache.Del(ctx, key); derr != nil {
		log.Warn().Err(derr).Str("key", key).Msg("catalog cache delete failed")
	}
	return false
}

func (s *QueryService) store(ctx context.Context, key string, v any) {
	// size guard
	if b, _ := json.Marshal(v); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
	}
}
