package browser

import (
	"context"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"sjsage522/silkdeal/helpers"
)

// RobotsChecker answers whether a URL may be crawled, caching one
// robots.txt group per host.
type RobotsChecker struct {
	agent string

	mu    sync.Mutex
	cache map[string]*robotstxt.Group
}

// NewRobotsChecker creates a checker matching groups for agent.
func NewRobotsChecker(agent string) *RobotsChecker {
	return &RobotsChecker{
		agent: agent,
		cache: make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether rawURL may be fetched. An unreachable robots.txt
// allows everything.
func (r *RobotsChecker) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}

	group, err := r.group(ctx, u)
	if err != nil {
		return false, err
	}
	if group == nil {
		return true, nil
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path), nil
}

func (r *RobotsChecker) group(ctx context.Context, u *url.URL) (*robotstxt.Group, error) {
	r.mu.Lock()
	group, ok := r.cache[u.Host]
	r.mu.Unlock()
	if ok {
		return group, nil
	}

	page, err := helpers.FetchWithRandomHeaders(ctx, u.Scheme+"://"+u.Host+"/robots.txt")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		group = nil
	} else {
		data, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
		if err == nil {
			group = data.FindGroup(r.agent)
		}
	}

	r.mu.Lock()
	r.cache[u.Host] = group
	r.mu.Unlock()
	return group, nil
}
