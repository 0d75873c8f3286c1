// Package feeds fetches and parses the configured content feeds into raw
// items, including image extraction from enclosure, media, and inline
// markup. It never fetches linked article pages.
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"newsreel/internal/models"
)

const maxConcurrent = 4

// FailedFeed records a feed that could not be fetched this run. The feed
// contributes zero candidates; other feeds are unaffected.
type FailedFeed struct {
	Feed  string `json:"feed"`
	Error string `json:"error"`
}

// FetchResult contains the per-feed parsed items and any fetch failures.
type FetchResult struct {
	ItemsByFeed map[string][]models.RawItem
	Failed      []FailedFeed
}

// Fetcher retrieves RSS/Atom feeds with bounded concurrency and per-domain
// rate limiting.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a Fetcher whose HTTP client uses the given timeout and
// sends the given User-Agent on every request.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &userAgentTransport{
				base:      http.DefaultTransport,
				userAgent: userAgent,
			},
		},
		timeout:  timeout,
		limiters: make(map[string]*rate.Limiter),
	}
}

// userAgentTransport wraps an http.RoundTripper to inject a User-Agent and
// feed-friendly Accept headers on every request.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	return t.base.RoundTrip(req)
}

// FetchAll fetches every configured source with at most maxConcurrent
// parallel requests. Individual source failures are collected in
// FetchResult.Failed rather than failing the batch.
func (f *Fetcher) FetchAll(ctx context.Context, sources []models.FeedSource) (*FetchResult, error) {
	result := &FetchResult{
		ItemsByFeed: make(map[string][]models.RawItem),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for _, src := range sources {
		g.Go(func() error {
			items, err := f.fetchSingleFeed(ctx, src)
			if err != nil {
				slog.Warn("failed to fetch feed",
					"feed", src.Name,
					"url", src.URL,
					"error", err,
				)

				mu.Lock()
				result.Failed = append(result.Failed, FailedFeed{
					Feed:  src.Name,
					Error: err.Error(),
				})
				mu.Unlock()

				return nil // skip failures, don't fail the batch
			}

			mu.Lock()
			result.ItemsByFeed[src.Name] = items
			mu.Unlock()

			slog.Info("fetched feed", "feed", src.Name, "items", len(items))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching feeds: %w", err)
	}

	return result, nil
}

// fetchSingleFeed retrieves and parses a single feed after waiting for the
// per-domain rate limit.
func (f *Fetcher) fetchSingleFeed(ctx context.Context, source models.FeedSource) ([]models.RawItem, error) {
	if err := f.limiterFor(extractDomain(source.URL)).Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	fp := gofeed.NewParser()
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %q: %w", source.URL, err)
	}

	return parseFeedItems(source, feed), nil
}

// limiterFor returns the rate limiter for the given domain, creating one
// that allows a request per second with no burst beyond the first.
func (f *Fetcher) limiterFor(domain string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[domain]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 1)
		f.limiters[domain] = l
	}
	return l
}

// extractDomain parses a URL and returns its hostname. If parsing fails, it
// returns the raw URL as a fallback key.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
