package crawl

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// maxPageBodyBytes caps how much of a fetched page we keep.
const maxPageBodyBytes = 10 * 1024 * 1024

var blockedPrefixStrings = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var blockedPrefixes = func() []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(blockedPrefixStrings))
	for _, s := range blockedPrefixStrings {
		if p, err := netip.ParsePrefix(s); err == nil {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}()

// Fetcher performs bounded-concurrency HTTP GETs. Every fetch consults the
// robots policy and the per-domain rate limiter before touching the network,
// and the shared semaphore caps in-flight requests across all domains.
type Fetcher struct {
	client  *http.Client
	robots  *RobotsPolicy
	limiter *RateLimiter
	sem     *semaphore.Weighted
	cfg     CrawlerConfig
}

func NewFetcher(cfg CrawlerConfig) *Fetcher {
	cfg.applyDefaults()

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           safeDialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &http.Client{
		Timeout:       cfg.requestTimeout(),
		Transport:     transport,
		CheckRedirect: safeCheckRedirect,
	}

	return &Fetcher{
		client:  client,
		robots:  NewRobotsPolicy(client),
		limiter: NewRateLimiter(cfg.requestDelay()),
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests)),
		cfg:     cfg,
	}
}

// newInsecureFetcher bypasses the private-IP dial guard. Test hook: httptest
// servers listen on loopback, which the production transport refuses.
func newInsecureFetcher(cfg CrawlerConfig) *Fetcher {
	f := NewFetcher(cfg)
	client := &http.Client{Timeout: cfg.requestTimeout()}
	f.client = client
	f.robots = NewRobotsPolicy(client)
	return f
}

// FetchPage retrieves the body of url, or returns ok=false when the URL is
// disallowed by robots.txt or the fetch fails. Neither outcome is an error:
// a skipped or failed page simply contributes nothing to the crawl.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (string, bool) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return "", false
	}
	defer f.sem.Release(1)

	if f.cfg.respectRobots() && !f.robots.CanFetch(ctx, rawURL, f.cfg.UserAgent) {
		log.Printf("robots.txt disallows %s, skipping", rawURL)
		return "", false
	}

	if err := f.limiter.Wait(ctx, domainOf(rawURL)); err != nil {
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		log.Printf("warn: building request for %s: %v", rawURL, err)
		return "", false
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8,fr;q=0.6")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("warn: fetch %s: %v", rawURL, err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("warn: fetch %s: status %d", rawURL, resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBodyBytes))
	if err != nil {
		log.Printf("warn: reading %s: %v", rawURL, err)
		return "", false
	}

	return string(body), true
}

// safeDialContext wraps the default dialer to block private IPs.
func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, err
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return nil, fmt.Errorf("blocked private IP: %s", ip)
		}
	}

	return d.DialContext(ctx, network, addr)
}

// isPrivateIP checks if an IP is in a private range or loopback/link-local.
func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsLinkLocalMulticast() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	addr, ok := netip.AddrFromSlice(ip)
	if ok {
		for _, prefix := range blockedPrefixes {
			if prefix.Contains(addr.Unmap()) {
				return true
			}
		}
	}

	return false
}

// safeCheckRedirect limits redirects and validates destinations.
func safeCheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return fmt.Errorf("stopped after 10 redirects")
	}
	if req.URL == nil {
		return fmt.Errorf("invalid redirect URL")
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect scheme blocked")
	}

	host := req.URL.Hostname()
	if host == "" {
		return fmt.Errorf("redirect host missing")
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".local") {
		return fmt.Errorf("redirect to internal host blocked")
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return err
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("redirect to private IP blocked: %s", ip)
		}
	}

	return nil
}
