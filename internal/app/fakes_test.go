package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"impacttrip/internal/domain"
)

// ---- fakes ----

type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failPut bool
	failGet bool
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (k *memKV) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failGet {
		return nil, false, errors.New("kv down")
	}
	b, ok := k.data[key]
	return b, ok, nil
}

func (k *memKV) PutRaw(ctx context.Context, key string, b []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.failPut {
		return errors.New("quota exceeded")
	}
	k.data[key] = append([]byte(nil), b...)
	return nil
}

func (k *memKV) raw(key string) string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return string(k.data[key])
}

type fakeSource struct {
	items  []domain.CatalogItem
	hotels []domain.Hotel
	err    error
	calls  int
}

func (f *fakeSource) Opportunities(ctx context.Context) ([]domain.CatalogItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeSource) Hotels(ctx context.Context) ([]domain.Hotel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hotels, nil
}

type fakeRepo struct {
	items      []domain.CatalogItem
	hotels     []domain.Hotel
	replaceErr error
	missErr    error
	misses     []string
}

func (f *fakeRepo) ReplaceOpportunities(ctx context.Context, items []domain.CatalogItem) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.items = items
	return nil
}
func (f *fakeRepo) ReplaceHotels(ctx context.Context, hs []domain.Hotel) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.hotels = hs
	return nil
}
func (f *fakeRepo) LogMiss(ctx context.Context, feed string, position int, reason string) error {
	if f.missErr != nil {
		return f.missErr
	}
	f.misses = append(f.misses, feed+":"+reason)
	return nil
}
func (f *fakeRepo) ListOpportunities(ctx context.Context) ([]domain.CatalogItem, error) {
	return f.items, nil
}
func (f *fakeRepo) ListHotels(ctx context.Context) ([]domain.Hotel, error) { return f.hotels, nil }
func (f *fakeRepo) GetOpportunity(ctx context.Context, id string) (domain.CatalogItem, error) {
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return domain.CatalogItem{}, domain.ErrNotFound
}

type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

type fakeFeeds struct {
	feeds map[string][]map[string]any
	err   error
}

func (f *fakeFeeds) GetFeed(ctx context.Context, feed string) ([]map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.feeds[feed], nil
}

type sinkRecorder struct {
	shown []*domain.ValidationError
}

func (s *sinkRecorder) ShowValidation(err *domain.ValidationError) { s.shown = append(s.shown, err) }

func (s *sinkRecorder) last() *domain.ValidationError {
	if len(s.shown) == 0 {
		return nil
	}
	return s.shown[len(s.shown)-1]
}

func ptr[T any](v T) *T { return &v }

func ages(vs ...int) []*int {
	out := make([]*int, len(vs))
	for i, v := range vs {
		if v >= 0 {
			out[i] = ptr(v)
		}
	}
	return out
}
