package crawl

import (
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/david/funding-crawler/internal/models"
)

// Extractor turns fetched HTML into eligible opportunity records by running
// an ordered strategy list, first non-empty result wins.
type Extractor struct {
	strategies []ExtractionStrategy
	now        func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{
		strategies: []ExtractionStrategy{
			SelectorStrategy{},
			LinkScanStrategy{},
		},
		now: time.Now,
	}
}

// Extract parses html fetched from sourceURL and returns the opportunity
// records that pass the eligibility screen. A page that yields nothing is
// not an error.
func (e *Extractor) Extract(html, sourceURL, sourceName string) []models.FundingOpportunity {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("warn: parsing page from %s: %v", sourceName, err)
		return nil
	}

	pageURL, err := url.Parse(sourceURL)
	if err != nil {
		log.Printf("warn: bad source url %q: %v", sourceURL, err)
		return nil
	}

	var candidates []models.FundingOpportunity
	for _, strategy := range e.strategies {
		candidates = strategy.TryExtract(doc, pageURL, sourceName)
		if len(candidates) > 0 {
			log.Printf("[%s] strategy %q extracted %d candidates", sourceName, strategy.Name(), len(candidates))
			break
		}
	}

	extractedAt := e.now()
	out := make([]models.FundingOpportunity, 0, len(candidates))
	for _, opp := range candidates {
		if !IsEligible(opp) {
			continue
		}
		opp.ExtractedDate = extractedAt
		out = append(out, opp)
	}

	return out
}
