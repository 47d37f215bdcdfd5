// Package feeds polls configured RSS/Atom feeds and turns their items into intake records
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"storydesk/internal/categorization"
	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/logger"
)

// FeedManager fetches and parses feeds
type FeedManager struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
	maxItems  int
	log       *slog.Logger
}

// NewFeedManager creates a new feed manager
func NewFeedManager(cfg config.Feeds) *FeedManager {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "storydesk/1.0"
	}
	return &FeedManager{
		client:    &http.Client{Timeout: timeout},
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
		maxItems:  cfg.MaxItemsPerFeed,
		log:       logger.Get(),
	}
}

// ParsedFeed represents a parsed feed with its caching headers
type ParsedFeed struct {
	Title        string
	Items        []core.IncomingArticle
	LastModified string
	ETag         string
	NotModified  bool
}

// FetchFeed fetches and parses one feed. lastModified and etag come from the previous
// fetch and turn the request into a conditional GET.
func (fm *FeedManager) FetchFeed(ctx context.Context, source categorization.FeedSource, lastModified, etag string) (*ParsedFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	req.Header.Set("User-Agent", fm.userAgent)

	resp, err := fm.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return &ParsedFeed{NotModified: true, LastModified: lastModified, ETag: etag}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	feed, err := fm.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	return &ParsedFeed{
		Title:        strings.TrimSpace(feed.Title),
		Items:        fm.toArticles(feed, source),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}, nil
}

// toArticles converts feed items, skipping those without a link or title
func (fm *FeedManager) toArticles(feed *gofeed.Feed, source categorization.FeedSource) []core.IncomingArticle {
	count := len(feed.Items)
	if fm.maxItems > 0 && count > fm.maxItems {
		count = fm.maxItems
	}

	sourceName := strings.TrimSpace(feed.Title)
	articles := make([]core.IncomingArticle, 0, count)
	for _, item := range feed.Items[:count] {
		link := strings.TrimSpace(item.Link)
		title := CleanHTML(item.Title)
		if link == "" || title == "" {
			continue
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		var published *time.Time
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			published = &t
		} else if item.UpdatedParsed != nil {
			t := item.UpdatedParsed.UTC()
			published = &t
		}

		articles = append(articles, core.IncomingArticle{
			Title:        title,
			URL:          link,
			Summary:      CleanHTML(summary),
			SourceName:   sourceName,
			FeedCategory: source.Category,
			PublishedAt:  published,
		})
	}
	return articles
}

// CleanHTML reduces an HTML fragment to its text with whitespace collapsed
func CleanHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("script, style, iframe, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
