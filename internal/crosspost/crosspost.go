// Package crosspost bridges RSS/Atom feeds onto a uwuzu timeline:
// freshly published entries become posts, deduplicated through the same
// seen-store machinery the watch loop uses.
package crosspost

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/bakkerme/uwuzu-watch/internal/dedupe"
	"github.com/bakkerme/uwuzu-watch/internal/retry"
	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
)

// Poster is the slice of the uwuzu client the bridge needs.
type Poster interface {
	CreatePost(ctx context.Context, post uwuzu.NewPost) error
}

// FeedFetcher fetches and parses one feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error)
}

// Config tunes the bridge.
type Config struct {
	Feeds []string
	Limit int // max entries considered per feed per run; 0 = 10
}

// Crossposter posts new feed entries to uwuzu. One feed failing is
// logged and skipped; the remaining feeds still run.
type Crossposter struct {
	logger  *slog.Logger
	fetcher FeedFetcher
	poster  Poster
	seen    dedupe.SeenStore
	feeds   []string
	limit   int
}

func New(logger *slog.Logger, fetcher FeedFetcher, poster Poster, seen dedupe.SeenStore, cfg Config) *Crossposter {
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 10
	}
	return &Crossposter{
		logger:  logger,
		fetcher: fetcher,
		poster:  poster,
		seen:    seen,
		feeds:   cfg.Feeds,
		limit:   limit,
	}
}

// Run performs one pass over every configured feed.
func (c *Crossposter) Run(ctx context.Context) {
	for _, feedURL := range c.feeds {
		if ctx.Err() != nil {
			return
		}
		if err := c.runFeed(ctx, feedURL); err != nil {
			c.logger.Error("crosspost feed failed", slog.String("feed", feedURL), slog.Any("error", err))
		}
	}
}

func (c *Crossposter) runFeed(ctx context.Context, feedURL string) error {
	feed, err := c.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	considered := 0
	for _, entry := range feed.Items {
		if considered >= c.limit {
			break
		}
		considered++

		id := entryID(entry)
		if id == "" {
			continue
		}
		seen, err := c.seen.HasSeen(ctx, id)
		if err != nil {
			return err
		}
		if seen {
			continue
		}

		text := entry.Title
		if entry.Link != "" {
			text += "\n" + entry.Link
		}
		if err := c.poster.CreatePost(ctx, uwuzu.NewPost{Text: text}); err != nil {
			// Leave the entry unmarked so the next run retries it.
			return fmt.Errorf("post entry %s: %w", id, err)
		}
		if err := c.seen.MarkSeen(ctx, id); err != nil {
			return err
		}
		c.logger.Info("crossposted", slog.String("feed", feedURL), slog.String("entry", id))
	}
	return nil
}

func entryID(entry *gofeed.Item) string {
	if entry == nil {
		return ""
	}
	if entry.GUID != "" {
		return entry.GUID
	}
	return entry.Link
}

// Fetcher is the production FeedFetcher, built on gofeed with retries
// for flaky feed hosts.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: timeout}
	return &Fetcher{parser: parser}
}

func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	var feed *gofeed.Feed
	err := retry.Do(ctx, retry.Config{Attempts: 3}, func() error {
		parsed, err := f.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			return err
		}
		feed = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}
