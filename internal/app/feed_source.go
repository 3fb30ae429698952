package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"impacttrip/internal/domain"
)

const (
	FeedOpportunities = "opportunities"
	FeedHotels        = "hotels"
)

// FeedSource reads the catalog straight from the feed, without storage.
// Unmappable records are skipped.
type FeedSource struct {
	client domain.FeedClient
}

var _ domain.CatalogSource = (*FeedSource)(nil)

func NewFeedSource(c domain.FeedClient) *FeedSource { return &FeedSource{client: c} }

func (s *FeedSource) Opportunities(ctx context.Context) ([]domain.CatalogItem, error) {
	raw, err := s.client.GetFeed(ctx, FeedOpportunities)
	if err != nil {
		return nil, err
	}
	items, misses := mapOpportunities(raw)
	logMisses(FeedOpportunities, misses)
	return items, nil
}

func (s *FeedSource) Hotels(ctx context.Context) ([]domain.Hotel, error) {
	raw, err := s.client.GetFeed(ctx, FeedHotels)
	if err != nil {
		return nil, err
	}
	hs, misses := mapHotels(raw)
	logMisses(FeedHotels, misses)
	return hs, nil
}

func logMisses(feed string, misses []miss) {
	for _, m := range misses {
		log.Debug().Str("feed", feed).Int("position", m.position).Str("reason", m.reason).Msg("feed record skipped")
	}
}
