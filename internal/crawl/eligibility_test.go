package crawl

import (
	"testing"

	"github.com/david/funding-crawler/internal/models"
)

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		desc     string
		expected bool
	}{
		{
			name:     "Exclusion phrase rejects",
			title:    "Community grants",
			desc:     "Open to US only applicants with local presence.",
			expected: false,
		},
		{
			name:     "Positive phrase accepts",
			title:    "Research grants",
			desc:     "Non-profit organizations may apply.",
			expected: true,
		},
		{
			name:     "Positive phrase wins over exclusion",
			title:    "Transatlantic fund",
			desc:     "American foundations partnering with civil society organizations in the EU.",
			expected: true,
		},
		{
			name:     "No signal defaults to included",
			title:    "Digital skills programme",
			desc:     "Funding for training projects.",
			expected: true,
		},
		{
			name:     "Phrase match is case-insensitive",
			title:    "USA ONLY opportunity",
			desc:     "",
			expected: false,
		},
		{
			name:     "Signal in title counts",
			title:    "Grants for NGO capacity building",
			desc:     "",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := models.FundingOpportunity{Title: tt.title, Description: tt.desc}
			if got := IsEligible(opp); got != tt.expected {
				t.Errorf("IsEligible(%q / %q) = %v, want %v", tt.title, tt.desc, got, tt.expected)
			}
		})
	}
}
