package scraper

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

// RobotsGate answers per-URL crawl permission from each host's robots.txt.
// Fetch and parse failures fail open: a host that cannot publish its policy
// does not block the run, it only gets a warning in the log.
type RobotsGate struct {
	userAgent string
	client    *http.Client
	logger    zerolog.Logger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func NewRobotsGate(userAgent string, timeout time.Duration, logger zerolog.Logger) *RobotsGate {
	return &RobotsGate{
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		groups:    make(map[string]*robotstxt.Group),
	}
}

// Allowed reports whether the URL may be fetched under its host's
// robots.txt rules. The policy is fetched once per host and cached.
func (rg *RobotsGate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	g := rg.group(ctx, u)
	if g == nil {
		return true
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return g.Test(path)
}

// CrawlDelay returns the published crawl-delay for the URL's host. It only
// consults the cache; call Allowed first to populate it.
func (rg *RobotsGate) CrawlDelay(rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}

	rg.mu.Lock()
	defer rg.mu.Unlock()
	if g := rg.groups[u.Scheme+"://"+u.Host]; g != nil {
		return g.CrawlDelay
	}
	return 0
}

func (rg *RobotsGate) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	rg.mu.Lock()
	g, ok := rg.groups[key]
	rg.mu.Unlock()
	if ok {
		return g
	}

	g = rg.fetch(ctx, key)
	rg.mu.Lock()
	rg.groups[key] = g
	rg.mu.Unlock()
	return g
}

func (rg *RobotsGate) fetch(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rg.userAgent)

	resp, err := rg.client.Do(req)
	if err != nil {
		rg.logger.Warn().Err(err).Str("origin", origin).Msg("robots.txt fetch failed, allowing all")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		rg.logger.Warn().Err(err).Str("origin", origin).Msg("robots.txt read failed, allowing all")
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		rg.logger.Warn().Err(err).Str("origin", origin).Msg("robots.txt parse failed, allowing all")
		return nil
	}

	return robots.FindGroup(rg.userAgent)
}
