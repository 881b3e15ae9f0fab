// Package walk implements bulk historical traversal of a uwuzu timeline.
package walk

import (
	"context"
	"fmt"
	"time"

	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
)

// Source is the slice of the uwuzu client a walk needs. Page 1 is the
// most recent page; an empty page signals feed exhaustion.
type Source interface {
	Timeline(ctx context.Context, limit, page int) ([]uwuzu.Post, error)
}

// Config bounds a walk. Zero values fall back to the defaults below.
type Config struct {
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
}

const (
	defaultPageSize  = 25
	defaultMaxPages  = 10
	defaultPageDelay = 500 * time.Millisecond
)

// Walker streams a timeline page by page, starting a fresh cursor at
// page 1 on every Walk call.
type Walker struct {
	source    Source
	pageSize  int
	maxPages  int
	pageDelay time.Duration
}

func New(source Source, cfg Config) *Walker {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	pageDelay := cfg.PageDelay
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}
	return &Walker{
		source:    source,
		pageSize:  pageSize,
		maxPages:  maxPages,
		pageDelay: pageDelay,
	}
}

// Walk fetches pages 1..MaxPages, invoking fn for every post in the
// order the feed returns them, until the feed is exhausted (an empty
// page) or the page cap is hit. A courtesy delay separates consecutive
// fetches so a deep walk does not hammer the server; the delay never
// precedes the first fetch.
//
// A source failure aborts the walk and is returned wrapped; retry policy
// lives in the client, not here. An error from fn also aborts the walk
// and is returned as-is, which doubles as early termination.
func (w *Walker) Walk(ctx context.Context, fn func(uwuzu.Post) error) error {
	for page := 1; page <= w.maxPages; page++ {
		if page > 1 {
			timer := time.NewTimer(w.pageDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		posts, err := w.source.Timeline(ctx, w.pageSize, page)
		if err != nil {
			return fmt.Errorf("walk page %d: %w", page, err)
		}
		if len(posts) == 0 {
			return nil
		}
		for _, post := range posts {
			if err := fn(post); err != nil {
				return err
			}
		}
	}
	return nil
}

// Collect runs Walk and gathers every post into a slice.
func (w *Walker) Collect(ctx context.Context) ([]uwuzu.Post, error) {
	var posts []uwuzu.Post
	err := w.Walk(ctx, func(post uwuzu.Post) error {
		posts = append(posts, post)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}
