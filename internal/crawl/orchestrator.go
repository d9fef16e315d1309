package crawl

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/david/funding-crawler/internal/models"
)

// PageFetcher is the single-page fetch contract Orchestrator depends on.
// *Fetcher satisfies it; tests substitute stubs.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, bool)
}

// PageWalker fetches a paginated listing. *CollyCrawler satisfies it.
type PageWalker interface {
	FetchPages(ctx context.Context, src models.FundingSource) ([]fetchedPage, error)
}

// Orchestrator drives the fetch/extract pipeline across all configured
// sources concurrently. Concurrency is bounded by the Fetcher's shared
// semaphore; a failing source never aborts its siblings.
type Orchestrator struct {
	fetcher   PageFetcher
	walker    PageWalker
	extractor *Extractor
	sources   []models.FundingSource
}

func NewOrchestrator(fetcher PageFetcher, walker PageWalker, extractor *Extractor, sources []models.FundingSource) *Orchestrator {
	if extractor == nil {
		extractor = NewExtractor()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		walker:    walker,
		extractor: extractor,
		sources:   sources,
	}
}

// CrawlAllSources crawls every source with crawling enabled and returns the
// aggregate record list in source-configuration order, plus one error string
// per failed source. Duplicates across sources are left for the store's
// upsert to collapse.
func (o *Orchestrator) CrawlAllSources(ctx context.Context) ([]models.FundingOpportunity, []string) {
	var crawlable []models.FundingSource
	for _, src := range o.sources {
		if src.CrawlAllowed {
			crawlable = append(crawlable, src)
		}
	}

	results := make([][]models.FundingOpportunity, len(crawlable))
	errs := make([]error, len(crawlable))

	var wg sync.WaitGroup
	for i, src := range crawlable {
		wg.Add(1)
		go func(i int, src models.FundingSource) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
				}
			}()
			results[i], errs[i] = o.crawlSource(ctx, src)
		}(i, src)
	}
	wg.Wait()

	var aggregate []models.FundingOpportunity
	var errors []string
	for i, src := range crawlable {
		if errs[i] != nil {
			log.Printf("crawl of source %q failed: %v", src.Name, errs[i])
			errors = append(errors, fmt.Sprintf("%s: %v", src.Name, errs[i]))
			continue
		}
		aggregate = append(aggregate, results[i]...)
	}

	return aggregate, errors
}

func (o *Orchestrator) crawlSource(ctx context.Context, src models.FundingSource) ([]models.FundingOpportunity, error) {
	if src.MaxPages > 1 && o.walker != nil {
		pages, err := o.walker.FetchPages(ctx, src)
		if err != nil {
			return nil, err
		}
		var out []models.FundingOpportunity
		for _, page := range pages {
			out = append(out, o.extractor.Extract(page.Body, page.URL, src.Name)...)
		}
		log.Printf("[%s] %d opportunities from %d pages", src.Name, len(out), len(pages))
		return out, nil
	}

	body, ok := o.fetcher.FetchPage(ctx, src.BaseURL)
	if !ok {
		// Policy skips and fetch failures are logged upstream; the source
		// simply contributes nothing.
		return nil, nil
	}

	out := o.extractor.Extract(body, src.BaseURL, src.Name)
	log.Printf("[%s] %d opportunities extracted", src.Name, len(out))
	return out, nil
}
