package crawl

import (
	"context"
	"fmt"
	"log"
	"net/url"

	"github.com/david/funding-crawler/internal/models"
	"github.com/gocolly/colly/v2"
	"golang.org/x/sync/semaphore"
)

// nextPageSelector matches the usual "next page" affordances on listing pages.
const nextPageSelector = "a[rel=next], .pagination a.next, a.next, li.next a"

type fetchedPage struct {
	URL  string
	Body string
}

// CollyCrawler walks paginated listings for sources configured with
// max_pages > 1. Colly enforces robots.txt and the per-domain delay itself,
// so this path carries the same crawl-policy guarantees as Fetcher.
type CollyCrawler struct {
	cfg CrawlerConfig
	sem *semaphore.Weighted
}

// NewCollyCrawler builds a paginated walker. sem is the fetch-slot semaphore
// shared with the plain Fetcher; every page visit holds one slot, so the
// global in-flight cap covers both fetch paths.
func NewCollyCrawler(cfg CrawlerConfig, sem *semaphore.Weighted) *CollyCrawler {
	cfg.applyDefaults()
	return &CollyCrawler{cfg: cfg, sem: sem}
}

// FetchPages fetches up to src.MaxPages listing pages starting at the
// source's base URL, following next-page links until they run out or cycle.
func (c *CollyCrawler) FetchPages(ctx context.Context, src models.FundingSource) ([]fetchedPage, error) {
	parsed, err := url.Parse(src.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL for %s: %w", src.Name, err)
	}

	maxPages := src.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	opts := []colly.CollectorOption{
		// Hostname, not Host: colly compares against URL.Hostname(), so a
		// host:port value would never match.
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(c.cfg.UserAgent),
		colly.MaxBodySize(maxPageBodyBytes),
		colly.DetectCharset(),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	}
	if !c.cfg.respectRobots() {
		opts = append(opts, colly.IgnoreRobotsTxt())
	}
	collector := colly.NewCollector(opts...)

	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       c.cfg.requestDelay(),
	})
	collector.SetRequestTimeout(c.cfg.requestTimeout())

	var (
		pages       []fetchedPage
		nextPageURL string
		fetchErr    error
	)

	collector.OnResponse(func(r *colly.Response) {
		pages = append(pages, fetchedPage{
			URL:  r.Request.URL.String(),
			Body: string(r.Body),
		})
	})

	collector.OnHTML(nextPageSelector, func(e *colly.HTMLElement) {
		nextPageURL = e.Request.AbsoluteURL(e.Attr("href"))
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	visited := make(map[string]bool)
	currentURL := src.BaseURL

	for pageCount := 0; pageCount < maxPages; pageCount++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		if visited[currentURL] {
			log.Printf("[%s] pagination cycle detected at %s, stopping", src.Name, currentURL)
			break
		}
		visited[currentURL] = true
		nextPageURL = ""

		if err := c.sem.Acquire(ctx, 1); err != nil {
			return pages, err
		}

		log.Printf("[%s] fetching page %d: %s", src.Name, pageCount+1, currentURL)
		visitErr := collector.Visit(currentURL)
		collector.Wait()
		c.sem.Release(1)

		if visitErr != nil {
			// First page failing is a source failure; later pages just stop
			// the walk with whatever was collected.
			if len(pages) == 0 {
				return nil, fmt.Errorf("fetching %s: %w", currentURL, visitErr)
			}
			log.Printf("[%s] page %d fetch failed, keeping %d pages: %v", src.Name, pageCount+1, len(pages), visitErr)
			break
		}

		if fetchErr != nil && len(pages) == 0 {
			return nil, fmt.Errorf("fetching %s: %w", currentURL, fetchErr)
		}
		if nextPageURL == "" {
			break
		}
		currentURL = nextPageURL
	}

	return pages, nil
}
