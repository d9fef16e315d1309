package crawl

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/david/funding-crawler/internal/models"
)

// ExtractionStrategy pulls candidate opportunity records out of a parsed page.
// Strategies run in order; the first one returning at least one record wins.
type ExtractionStrategy interface {
	Name() string
	TryExtract(doc *goquery.Document, pageURL *url.URL, sourceName string) []models.FundingOpportunity
}

const (
	maxContainerItems = 10
	maxScannedLinks   = 50
	minLinkTextLen    = 10
	maxLinkTextLen    = 200
	maxLinkDescLen    = 300
	maxDeadlineLen    = 160
)

// containerSelectors are tried in order, from opportunity-specific wrappers
// down to generic listing containers. The first selector with at least one
// match is used exclusively.
var containerSelectors = []string{
	"div.opportunity, article.opportunity, li.opportunity",
	"div.grant, article.grant, li.grant",
	"div.funding-item, li.funding-item, div.funding, article.funding",
	"div.call, article.call, li.call",
	"article",
	"div.card, li.card",
	"div.item, li.item, div.block",
}

const (
	titleSelector       = "h1, h2, h3, h4, .title, .heading"
	descriptionSelector = "p, .description, .summary, .excerpt"
	deadlineSelector    = "time, td, li, span, p, div"
)

// fundingKeywords is the bilingual (English/French) keyword list used by the
// link-scan fallback to spot funding-related anchors.
var fundingKeywords = []string{
	"grant", "funding", "subsidy", "fellowship", "scholarship",
	"call for proposals", "prize", "award",
	"subvention", "financement", "appel à projets", "appel a projets",
	"bourse", "aide", "soutien", "dotation", "concours",
}

// SelectorStrategy walks structured listing markup: the first container
// selector that matches, capped at maxContainerItems elements.
type SelectorStrategy struct{}

func (SelectorStrategy) Name() string { return "selectors" }

func (SelectorStrategy) TryExtract(doc *goquery.Document, pageURL *url.URL, sourceName string) []models.FundingOpportunity {
	var matched *goquery.Selection
	for _, selector := range containerSelectors {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			matched = sel
			break
		}
	}
	if matched == nil {
		return nil
	}

	if matched.Length() > maxContainerItems {
		matched = matched.Slice(0, maxContainerItems)
	}

	var out []models.FundingOpportunity
	matched.Each(func(_ int, el *goquery.Selection) {
		title := normalizeSpace(el.Find(titleSelector).First().Text())
		if title == "" {
			return
		}

		opp := models.FundingOpportunity{
			Title:       title,
			Description: sanitizeText(el.Find(descriptionSelector).First().Text()),
			Source:      sourceName,
			URL:         pageURL.String(),
		}

		if href, ok := el.Find("a[href]").First().Attr("href"); ok {
			if abs := resolveURL(pageURL, href); abs != "" {
				opp.URL = abs
			}
		}

		if deadline := findDeadlineText(el); deadline != "" {
			opp.Deadline = TruncateText(deadline, maxDeadlineLen)
		}

		out = append(out, opp)
	})

	return out
}

// LinkScanStrategy is the fallback for pages without recognizable listing
// structure: scan the first maxScannedLinks anchors and keep the ones whose
// visible text looks like a funding opportunity.
type LinkScanStrategy struct{}

func (LinkScanStrategy) Name() string { return "link-scan" }

func (LinkScanStrategy) TryExtract(doc *goquery.Document, pageURL *url.URL, sourceName string) []models.FundingOpportunity {
	var out []models.FundingOpportunity

	scanned := 0
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if scanned >= maxScannedLinks {
			return false
		}
		scanned++

		text := normalizeSpace(a.Text())
		n := utf8.RuneCountInString(text)
		if n < minLinkTextLen || n > maxLinkTextLen {
			return true
		}
		if !containsFundingKeyword(text) {
			return true
		}

		href, _ := a.Attr("href")
		abs := resolveURL(pageURL, href)
		if abs == "" {
			return true
		}

		out = append(out, models.FundingOpportunity{
			Title:       text,
			Description: TruncateText(sanitizeText(a.Parent().Text()), maxLinkDescLen),
			Source:      sourceName,
			URL:         abs,
		})
		return true
	})

	return out
}

func containsFundingKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range fundingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// findDeadlineText returns the text of the first descendant element whose own
// text nodes mention "deadline" or "due".
func findDeadlineText(el *goquery.Selection) string {
	var found string
	el.Find(deadlineSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		own := normalizeSpace(ownText(s))
		lower := strings.ToLower(own)
		if strings.Contains(lower, "deadline") || strings.Contains(lower, "due") {
			found = own
			return false
		}
		return true
	})
	return found
}

// ownText concatenates the direct text-node children of s, excluding text
// belonging to nested elements.
func ownText(s *goquery.Selection) string {
	return s.Contents().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return goquery.NodeName(c) == "#text"
	}).Text()
}

// resolveURL resolves href against base, dropping anchors that are not
// http(s) destinations.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}
