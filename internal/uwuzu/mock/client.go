// Package mock provides a scripted stand-in for the uwuzu client in tests.
package mock

import (
	"context"
	"sync"

	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
)

// Client serves canned timeline pages. Pages holds one slice per page
// number (index 0 = page 1); requests past the end return an empty page.
// If Windows is non-empty, successive latest-window requests (page 0)
// are served from it in order, sticking on the last entry.
type Client struct {
	mu      sync.Mutex
	Pages   [][]uwuzu.Post
	Windows [][]uwuzu.Post
	Errs    map[int]error // keyed by call number, 1-based
	Err     error         // returned for every call when set

	Calls     int
	PageCalls []int

	Created []uwuzu.NewPost
}

func (c *Client) Timeline(ctx context.Context, limit, page int) ([]uwuzu.Post, error) {
	_ = ctx
	_ = limit
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Calls++
	c.PageCalls = append(c.PageCalls, page)

	if c.Err != nil {
		return nil, c.Err
	}
	if err := c.Errs[c.Calls]; err != nil {
		return nil, err
	}

	if page > 0 {
		if page > len(c.Pages) {
			return nil, nil
		}
		return clonePosts(c.Pages[page-1]), nil
	}

	if len(c.Windows) == 0 {
		return nil, nil
	}
	idx := c.windowIndex()
	return clonePosts(c.Windows[idx]), nil
}

func (c *Client) CreatePost(ctx context.Context, post uwuzu.NewPost) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Created = append(c.Created, post)
	return nil
}

// CallCount reports how many Timeline calls have been made.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls
}

// windowIndex maps the current window-call count onto Windows, sticking
// on the final script entry once exhausted.
func (c *Client) windowIndex() int {
	count := 0
	for _, p := range c.PageCalls {
		if p == 0 {
			count++
		}
	}
	if count > len(c.Windows) {
		return len(c.Windows) - 1
	}
	return count - 1
}

func clonePosts(posts []uwuzu.Post) []uwuzu.Post {
	out := make([]uwuzu.Post, len(posts))
	copy(out, posts)
	return out
}
