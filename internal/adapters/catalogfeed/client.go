// Package catalogfeed reads the static catalog feeds (opportunities.json,
// hotels.json) published under a base URL.
package catalogfeed

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"impacttrip/internal/adapters/observability"
	"impacttrip/internal/domain"
)

const maxAttempts = 4

var (
	ErrNotFound     = fmt.Errorf("catalogfeed: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("catalogfeed: unauthorized")
)

var _ domain.FeedClient = (*Client)(nil)

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter

	// last good body per feed, replayed on 304
	mu    sync.Mutex
	etags map[string]cached
}

type cached struct {
	etag string
	body []map[string]any
}

func New(base string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("feed base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		hc:    &http.Client{Timeout: 20 * time.Second},
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
		etags: map[string]cached{},
	}, nil
}

// GetFeed fetches <base>/<feed>.json, which must be a JSON array of objects.
// Transient failures (429, 5xx, transport errors) are retried with backoff,
// honoring Retry-After.
func (c *Client) GetFeed(ctx context.Context, feed string) ([]map[string]any, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/%s.json", c.base, feed)

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		out, wait, err := c.attempt(ctx, feed, url)
		if err == nil {
			return out, nil
		}
		if wait < 0 {
			return nil, fmt.Errorf("feed %s: %w", feed, err)
		}
		lastErr = err
		if i == maxAttempts-1 {
			break
		}
		if wait == 0 {
			wait = backoff(i)
		}
		log.Debug().Str("feed", feed).Int("attempt", i+1).Dur("wait", wait).Err(err).Msg("feed fetch retry")
		if !sleepCtx(ctx, wait) {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("feed %s: %w", feed, lastErr)
}

// attempt performs one GET. A negative wait marks err as final; otherwise
// the caller may retry after wait (0 means use backoff).
func (c *Client) attempt(ctx context.Context, feed, url string) ([]map[string]any, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "impacttrip/1.0")
	prev, havePrev := c.previous(feed)
	if havePrev {
		req.Header.Set("If-None-Match", prev.etag)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("catalogfeed", feed, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, -1, ctx.Err()
		}
		return nil, 0, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("catalogfeed", feed, resp.StatusCode, time.Since(start))

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		var out []map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, -1, fmt.Errorf("decode: %w", err)
		}
		if etag := resp.Header.Get("ETag"); etag != "" {
			c.remember(feed, cached{etag: etag, body: out})
		}
		return out, 0, nil
	case code == http.StatusNotModified && havePrev:
		return prev.body, 0, nil
	case code == http.StatusNotFound:
		return nil, -1, ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, -1, ErrUnauthorized
	case code == http.StatusTooManyRequests || code >= 500:
		return nil, retryAfter(resp), fmt.Errorf("remote %d", code)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, -1, fmt.Errorf("bad status %d: %s", code, strings.TrimSpace(string(b)))
	}
}

func (c *Client) previous(feed string) (cached, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.etags[feed]
	return p, ok
}

func (c *Client) remember(feed string, v cached) {
	c.mu.Lock()
	c.etags[feed] = v
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter reads Retry-After as seconds or an HTTP date; 0 when absent.
func retryAfter(resp *http.Response) time.Duration {
	h := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff is 200ms doubling per attempt plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	return base + time.Duration(float64(b[0])/510.0*float64(base))
}
