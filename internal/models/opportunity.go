package models

import (
	"time"

	"github.com/google/uuid"
)

// FundingOpportunity is one discovered (or synthesized) funding lead.
// URL is the natural key: the store never holds two rows with the same URL.
type FundingOpportunity struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Source        string    `json:"source"`
	URL           string    `json:"url"`
	Deadline      string    `json:"deadline,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Eligibility   []string  `json:"eligibility"`
	Categories    []string  `json:"categories"`
	ExtractedDate time.Time `json:"extracted_date"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FundingSource is a static crawl target. Loaded once from the registry at
// startup, immutable for the duration of a crawl.
type FundingSource struct {
	Name                string   `json:"name" yaml:"name"`
	BaseURL             string   `json:"base_url" yaml:"base_url"`
	APIEndpoint         string   `json:"api_endpoint,omitempty" yaml:"api_endpoint,omitempty"`
	RequiresAuth        bool     `json:"requires_auth" yaml:"requires_auth,omitempty"`
	EligibilityKeywords []string `json:"eligibility_keywords,omitempty" yaml:"eligibility_keywords,omitempty"`
	CrawlAllowed        bool     `json:"crawl_allowed" yaml:"crawl_allowed"`
	// MaxPages > 1 routes the source through the paginated collector.
	MaxPages int `json:"max_pages,omitempty" yaml:"max_pages,omitempty"`
}

// CrawlMode selects between the synthetic generator and the real crawl.
type CrawlMode string

const (
	ModeMock CrawlMode = "mock"
	ModeReal CrawlMode = "real"
)

func (m CrawlMode) Valid() bool {
	return m == ModeMock || m == ModeReal
}

// StoreStatistics summarizes the persisted opportunity set.
type StoreStatistics struct {
	TotalCount      int            `json:"total_count"`
	CountsBySource  map[string]int `json:"counts_by_source"`
	RecentAdditions int            `json:"recent_additions_last_7_days"`
	LastUpdated     *time.Time     `json:"last_updated"`
}

// CrawlResult is the uniform summary of one crawl invocation, mock or real.
// Callers get the same shape from both modes.
type CrawlResult struct {
	Success         bool                 `json:"success"`
	TotalFound      int                  `json:"total_found"`
	SavedCount      int                  `json:"saved_count"`
	Errors          []string             `json:"errors"`
	Opportunities   []FundingOpportunity `json:"opportunities"`
	DurationSeconds float64              `json:"duration_seconds"`
	Mode            CrawlMode            `json:"mode"`
	Timestamp       time.Time            `json:"timestamp"`
}
