package domain

import "context"

type CatalogRepository interface {
	// Write paths; Replace* swaps the whole feed, keeping slice order.
	ReplaceOpportunities(ctx context.Context, items []CatalogItem) error
	ReplaceHotels(ctx context.Context, hs []Hotel) error
	LogMiss(ctx context.Context, feed string, position int, reason string) error

	// Read paths
	ListOpportunities(ctx context.Context) ([]CatalogItem, error)
	ListHotels(ctx context.Context) ([]Hotel, error)
	GetOpportunity(ctx context.Context, id string) (CatalogItem, error)
}

// FeedClient fetches a raw JSON array feed such as "opportunities".
type FeedClient interface {
	GetFeed(ctx context.Context, feed string) ([]map[string]any, error)
}

// CatalogSource yields the read-only snapshots a session works on.
type CatalogSource interface {
	Opportunities(ctx context.Context) ([]CatalogItem, error)
	Hotels(ctx context.Context) ([]Hotel, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// KV is durable blob storage; Get reports false when the key is absent.
type KV interface {
	GetRaw(ctx context.Context, key string) ([]byte, bool, error)
	PutRaw(ctx context.Context, key string, b []byte) error
}

// Renderer draws what the core hands over. ShowValidation(nil) clears the
// message. Implementations must not call back into the core synchronously.
type Renderer interface {
	RenderLanes(lanes []Lane)
	RenderHotels(panel HotelPanel)
	ShowValidation(err *ValidationError)
	OpenDetail(item CatalogItem)
}
