package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"impacttrip/internal/adapters/observability"
	"impacttrip/internal/domain"
)

type IngestionService struct {
	feeds domain.FeedClient
	repo  domain.CatalogRepository
	cache domain.Cache
}

func NewIngestionService(c domain.FeedClient, r domain.CatalogRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{feeds: c, repo: r, cache: cache}
}

// IngestFeed replaces the stored snapshot of one feed. A missing feed is
// logged as a miss and leaves the stored snapshot alone.
func (s *IngestionService) IngestFeed(ctx context.Context, feed string) error {
	key, ok := feedCacheKey(feed)
	if !ok {
		return fmt.Errorf("unknown feed %q", feed)
	}

	raw, err := s.feeds.GetFeed(ctx, feed)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logMiss(ctx, feed, -1, "feed not found")
			s.invalidate(ctx, key)
			return nil
		}
		return err
	}

	var misses []miss
	switch feed {
	case FeedOpportunities:
		var items []domain.CatalogItem
		items, misses = mapOpportunities(raw)
		err = s.repo.ReplaceOpportunities(ctx, items)
	case FeedHotels:
		var hs []domain.Hotel
		hs, misses = mapHotels(raw)
		err = s.repo.ReplaceHotels(ctx, hs)
	}
	if err != nil {
		// do not swallow: a failed replace leaves the previous snapshot live
		return fmt.Errorf("replace %s failed: %w", feed, err)
	}

	for _, m := range misses {
		s.logMiss(ctx, feed, m.position, m.reason)
	}
	s.invalidate(ctx, key)

	observability.ObserveIngest(feed, len(raw)-len(misses), len(misses))
	log.Info().Str("feed", feed).Int("records", len(raw)).Int("misses", len(misses)).Msg("feed ingested")
	return nil
}

// IngestAll runs IngestFeed for every feed with at most workers in flight.
// Failures are logged and returned joined; one bad feed does not stop the rest.
func (s *IngestionService) IngestAll(ctx context.Context, feeds []string, workers int) error {
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, feed := range feeds {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(feed string) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.IngestFeed(ctx, feed); err != nil {
				log.Warn().Str("feed", feed).Err(err).Msg("ingest failed")
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", feed, err))
				mu.Unlock()
				return
			}
			log.Info().Str("feed", feed).Msg("ingest ok")
		}(feed)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// logMiss records a skipped record; a failed write is logged, never fatal.
func (s *IngestionService) logMiss(ctx context.Context, feed string, position int, reason string) {
	if err := s.repo.LogMiss(ctx, feed, position, reason); err != nil {
		log.Warn().Err(err).Str("feed", feed).Int("position", position).Str("reason", reason).Msg("record ingest miss failed")
	}
}

func feedCacheKey(feed string) (string, bool) {
	switch feed {
	case FeedOpportunities:
		return cacheKeyOpportunities, true
	case FeedHotels:
		return cacheKeyHotels, true
	}
	return "", false
}

func (s *IngestionService) invalidate(ctx context.Context, key string) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, key)
	}
}
