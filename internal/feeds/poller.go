package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"storydesk/internal/categorization"
	"storydesk/internal/core"
	"storydesk/internal/logger"
)

const fetchConcurrency = 4

// Sink receives the items found by a poll
type Sink interface {
	Enqueue(ctx context.Context, articles ...core.IncomingArticle) error
}

// PollStats summarizes one poll
type PollStats struct {
	Feeds       int
	NotModified int
	Failed      int
	Items       int
}

type cacheEntry struct {
	lastModified string
	etag         string
}

// Poller fetches every configured feed and hands new items to a sink
type Poller struct {
	manager *FeedManager
	sources []categorization.FeedSource
	sink    Sink

	mu    sync.Mutex
	cache map[string]cacheEntry
	log   *slog.Logger
}

// NewPoller creates a poller over sources
func NewPoller(manager *FeedManager, sources []categorization.FeedSource, sink Sink) *Poller {
	return &Poller{
		manager: manager,
		sources: sources,
		sink:    sink,
		cache:   make(map[string]cacheEntry),
		log:     logger.Get(),
	}
}

// PollOnce fetches all feeds. A failing feed is logged and skipped; only a sink
// failure is returned.
func (p *Poller) PollOnce(ctx context.Context) (PollStats, error) {
	stats := PollStats{Feeds: len(p.sources)}
	results := make([]*ParsedFeed, len(p.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, source := range p.sources {
		g.Go(func() error {
			p.mu.Lock()
			entry := p.cache[source.URL]
			p.mu.Unlock()

			parsed, err := p.manager.FetchFeed(gctx, source, entry.lastModified, entry.etag)
			if err != nil {
				p.log.Warn("Failed to fetch feed", "feed", source.URL, "error", err)
				return nil
			}
			results[i] = parsed
			return nil
		})
	}
	_ = g.Wait()

	var articles []core.IncomingArticle
	for _, parsed := range results {
		switch {
		case parsed == nil:
			stats.Failed++
		case parsed.NotModified:
			stats.NotModified++
		default:
			articles = append(articles, parsed.Items...)
		}
	}
	stats.Items = len(articles)

	if len(articles) > 0 {
		if err := p.sink.Enqueue(ctx, articles...); err != nil {
			return stats, fmt.Errorf("failed to hand off %d feed items: %w", len(articles), err)
		}
	}

	// validators are only remembered once the items behind them are handed off
	p.mu.Lock()
	for i, parsed := range results {
		if parsed == nil || parsed.NotModified {
			continue
		}
		p.cache[p.sources[i].URL] = cacheEntry{lastModified: parsed.LastModified, etag: parsed.ETag}
	}
	p.mu.Unlock()

	p.log.Info("Polled feeds",
		"feeds", stats.Feeds,
		"not_modified", stats.NotModified,
		"failed", stats.Failed,
		"items", stats.Items)
	return stats, nil
}

// Schedule runs PollOnce on a standard five-field cron spec. The caller starts and stops
// the returned scheduler.
func (p *Poller) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := p.PollOnce(ctx); err != nil {
			p.log.Error("Scheduled poll failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid feed schedule %q: %w", spec, err)
	}
	return c, nil
}
