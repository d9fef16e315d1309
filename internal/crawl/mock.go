package crawl

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/david/funding-crawler/internal/models"
)

// mockSourceNames mirror the kind of funders the real crawl targets.
var mockSourceNames = []string{
	"EU Funding & Tenders",
	"Fondation de France",
	"European Cultural Foundation",
	"Open Society Foundations",
	"France Relance",
}

var mockCategoryPairs = [][]string{
	{"culture", "heritage"},
	{"education", "youth"},
	{"environment", "climate"},
	{"social inclusion", "civil society"},
	{"research", "innovation"},
	{"media", "democracy"},
}

var mockTemplates = []struct {
	title       string
	description string
}{
	{
		title:       "Call for proposals: %s initiatives %d",
		description: "Support for non-profit organizations running %s projects across EU member states. Civil society organizations are encouraged to apply.",
	},
	{
		title:       "%s development grant programme %d",
		description: "Funding for associations and NGOs working on %s, with priority for cross-border partnerships in Europe.",
	},
	{
		title:       "Appel à projets %s %d",
		description: "Subvention destinée aux associations portant des projets de %s. Les organismes sans but lucratif sont éligibles.",
	},
}

var mockAmountRanges = []string{
	"€5,000 - €50,000",
	"€10,000 - €100,000",
	"€25,000 - €250,000",
	"€50,000 - €500,000",
	"up to €20,000",
}

// MockGenerator produces synthetic opportunity records with the same shape
// and persistence contract as the real crawl, so the two modes are
// interchangeable at the orchestration boundary.
type MockGenerator struct {
	rng *rand.Rand
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Generate returns 8-15 synthetic records after a simulated 1.0-3.0 second
// processing delay, so callers exercise the same timeout handling as the
// real path.
func (g *MockGenerator) Generate(ctx context.Context) ([]models.FundingOpportunity, error) {
	delay := time.Duration(1000+g.rng.Intn(2001)) * time.Millisecond
	if err := pause(ctx, delay); err != nil {
		return nil, err
	}

	count := 8 + g.rng.Intn(8)
	now := time.Now()

	out := make([]models.FundingOpportunity, 0, count)
	for i := 0; i < count; i++ {
		source := mockSourceNames[g.rng.Intn(len(mockSourceNames))]
		categories := mockCategoryPairs[g.rng.Intn(len(mockCategoryPairs))]
		tmpl := mockTemplates[g.rng.Intn(len(mockTemplates))]

		deadline := now.AddDate(0, 0, 60+g.rng.Intn(306))
		serial := g.rng.Intn(9000) + 1000

		out = append(out, models.FundingOpportunity{
			Title:         fmt.Sprintf(tmpl.title, categories[0], serial),
			Description:   fmt.Sprintf(tmpl.description, categories[1]),
			Source:        source,
			URL:           fmt.Sprintf("https://example.org/opportunities/%s-%d", slugify(categories[0]), serial),
			Deadline:      deadline.Format("2 January 2006"),
			Amount:        mockAmountRanges[g.rng.Intn(len(mockAmountRanges))],
			Eligibility:   []string{"non-profit", "civil society organizations"},
			Categories:    categories,
			ExtractedDate: now,
		})
	}

	return out, nil
}

// pause is a context-aware sleep.
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func slugify(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ':
			out = append(out, '-')
		}
	}
	return string(out)
}
