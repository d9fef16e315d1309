package crawl

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"
)

// maxRobotsBodyBytes limits how much of a robots.txt response we will read.
const maxRobotsBodyBytes = 512 * 1024

// RobotsPolicy fetches and caches robots.txt per origin (scheme://host).
// A policy fetched once is reused for the lifetime of the process; fetch or
// parse failures degrade to allow-all, which is standard crawling practice.
type RobotsPolicy struct {
	client *http.Client
	mu     sync.RWMutex
	cache  map[string]*robotsEntry // keyed by origin
}

type robotsEntry struct {
	data     *robotstxt.RobotsData
	allowAll bool
}

func NewRobotsPolicy(client *http.Client) *RobotsPolicy {
	if client == nil {
		client = http.DefaultClient
	}
	return &RobotsPolicy{
		client: client,
		cache:  make(map[string]*robotsEntry),
	}
}

// CanFetch reports whether robots.txt for the URL's origin permits userAgent
// to fetch it. Unparseable URLs are treated as not fetchable.
func (p *RobotsPolicy) CanFetch(ctx context.Context, rawURL, userAgent string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	origin := parsed.Scheme + "://" + parsed.Host
	entry := p.getOrFetch(ctx, origin, userAgent)
	if entry.allowAll {
		return true
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		// Rules may pattern-match on query strings.
		path += "?" + parsed.RawQuery
	}
	return entry.data.TestAgent(path, userAgent)
}

func (p *RobotsPolicy) getOrFetch(ctx context.Context, origin, userAgent string) *robotsEntry {
	p.mu.RLock()
	entry, ok := p.cache[origin]
	p.mu.RUnlock()
	if ok {
		return entry
	}

	entry = p.fetch(ctx, origin, userAgent)

	p.mu.Lock()
	// Another goroutine may have raced us here; keep the first answer so the
	// decision for an origin is stable.
	if existing, ok := p.cache[origin]; ok {
		entry = existing
	} else {
		p.cache[origin] = entry
	}
	p.mu.Unlock()

	return entry
}

func (p *RobotsPolicy) fetch(ctx context.Context, origin, userAgent string) *robotsEntry {
	robotsURL := origin + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &robotsEntry{allowAll: true}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("robots.txt fetch failed for %s, allowing: %v", origin, err)
		return &robotsEntry{allowAll: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &robotsEntry{allowAll: true}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		log.Printf("robots.txt read failed for %s, allowing: %v", origin, err)
		return &robotsEntry{allowAll: true}
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		log.Printf("robots.txt parse failed for %s, allowing: %v", origin, err)
		return &robotsEntry{allowAll: true}
	}

	return &robotsEntry{data: data}
}

// domainOf extracts the host portion of a URL, the granularity at which
// rate limiting is applied.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
