package crawl

import (
	"strings"

	"github.com/david/funding-crawler/internal/models"
)

// positivePhrases are strong signals the opportunity is open to the
// organizations this system serves.
var positivePhrases = []string{
	"eu member state",
	"non-profit",
	"nonprofit",
	"civil society organizations",
	"civil society organisations",
	"ngo",
	"association",
	"charitable",
	"europe",
	"international applicants",
}

// exclusionPhrases mark opportunities restricted to audiences out of reach.
var exclusionPhrases = []string{
	"us only",
	"usa only",
	"american",
	"domestic only",
	"u.s. citizens only",
}

// IsEligible screens an opportunity on its title and description. A positive
// phrase wins outright; otherwise an exclusion phrase rejects; with no signal
// either way the record is kept. The filter is a weak screen, not a hard gate.
func IsEligible(opp models.FundingOpportunity) bool {
	text := strings.ToLower(opp.Title + " " + opp.Description)

	for _, phrase := range positivePhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}

	for _, phrase := range exclusionPhrases {
		if strings.Contains(text, phrase) {
			return false
		}
	}

	return true
}
