package crawl

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/david/funding-crawler/internal/models"
)

// Storage is the persistence contract the manager writes through. Implemented
// by db.Store; tests use in-memory fakes.
type Storage interface {
	Save(ctx context.Context, opps []models.FundingOpportunity) (int, error)
	GetAll(ctx context.Context) ([]models.FundingOpportunity, error)
	Search(ctx context.Context, query, source, category string) ([]models.FundingOpportunity, error)
	GetStatistics(ctx context.Context) (*models.StoreStatistics, error)
	Ping(ctx context.Context) error
}

// Manager is the single crawl entry point exposed to external callers.
// It selects between the mock generator and the real orchestrator per
// invocation, writes results through the store, and always returns a
// well-formed CrawlResult.
type Manager struct {
	store    Storage
	registry *Registry
	mock     *MockGenerator

	// runReal executes the real crawl with the merged config. Swappable so
	// tests can stub the network side.
	runReal func(ctx context.Context, cfg CrawlerConfig) ([]models.FundingOpportunity, []string)
}

func NewManager(store Storage, registry *Registry) *Manager {
	m := &Manager{
		store:    store,
		registry: registry,
		mock:     NewMockGenerator(),
	}
	m.runReal = func(ctx context.Context, cfg CrawlerConfig) ([]models.FundingOpportunity, []string) {
		fetcher := NewFetcher(cfg)
		walker := NewCollyCrawler(cfg, fetcher.sem)
		orch := NewOrchestrator(fetcher, walker, NewExtractor(), registry.Crawlable())
		return orch.CrawlAllSources(ctx)
	}
	return m
}

// Config returns the active base configuration.
func (m *Manager) Config() CrawlerConfig {
	return m.registry.Crawler
}

// StartCrawl runs one crawl in the given mode and persists what it finds.
// Fetch and extraction failures are absorbed into the result; a storage
// failure is the one condition that marks the whole run unsuccessful.
func (m *Manager) StartCrawl(ctx context.Context, mode models.CrawlMode, overrides Overrides) models.CrawlResult {
	start := time.Now()
	result := models.CrawlResult{
		Mode:   mode,
		Errors: []string{},
	}

	finish := func() models.CrawlResult {
		result.DurationSeconds = time.Since(start).Seconds()
		result.Timestamp = time.Now()
		if result.Opportunities == nil {
			result.Opportunities = []models.FundingOpportunity{}
		}
		return result
	}

	if !mode.Valid() {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown crawl mode %q", mode))
		return finish()
	}

	cfg := m.registry.Crawler.Merged(overrides)
	log.Printf("starting %s crawl (delay=%.1fs, concurrency=%d)", mode, cfg.RequestDelaySeconds, cfg.MaxConcurrentRequests)

	opportunities, crawlErrs, err := m.collect(ctx, mode, cfg)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return finish()
	}
	result.Errors = append(result.Errors, crawlErrs...)
	result.TotalFound = len(opportunities)
	result.Opportunities = opportunities

	saved, err := m.store.Save(ctx, opportunities)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("saving opportunities: %v", err))
		return finish()
	}

	result.SavedCount = saved
	result.Success = true
	log.Printf("%s crawl finished: %d found, %d new", mode, result.TotalFound, saved)
	return finish()
}

// collect dispatches to the mock generator or the real crawl, converting a
// panic in either path into an error so StartCrawl never throws.
func (m *Manager) collect(ctx context.Context, mode models.CrawlMode, cfg CrawlerConfig) (opps []models.FundingOpportunity, crawlErrs []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			opps, crawlErrs = nil, nil
			err = fmt.Errorf("crawl panicked: %v", r)
		}
	}()

	if mode == models.ModeMock {
		opps, err = m.mock.Generate(ctx)
		return opps, nil, err
	}

	opps, crawlErrs = m.runReal(ctx, cfg)
	return opps, crawlErrs, nil
}

// GetStatus reports store statistics and the active configuration. It never
// performs network I/O; the database ping is the only outside call.
func (m *Manager) GetStatus(ctx context.Context, mode models.CrawlMode) map[string]interface{} {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	connected := m.store.Ping(pingCtx) == nil

	status := map[string]interface{}{
		"mode":               mode,
		"database_connected": connected,
		"config":             m.registry.Crawler,
	}

	stats, err := m.store.GetStatistics(ctx)
	if err != nil {
		log.Printf("warn: reading store statistics: %v", err)
		return status
	}

	status["total_opportunities"] = stats.TotalCount
	status["sources"] = stats.CountsBySource
	status["recent_additions"] = stats.RecentAdditions
	status["last_updated"] = stats.LastUpdated
	return status
}

// GetResults returns stored opportunities, optionally filtered, truncated
// to limit (default 50).
func (m *Manager) GetResults(ctx context.Context, limit int, source, query string) (map[string]interface{}, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		opps []models.FundingOpportunity
		err  error
	)
	if source != "" || query != "" {
		opps, err = m.store.Search(ctx, query, source, "")
	} else {
		opps, err = m.store.GetAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("reading results: %w", err)
	}

	if len(opps) > limit {
		opps = opps[:limit]
	}

	return map[string]interface{}{
		"success":       true,
		"count":         len(opps),
		"limit_applied": limit,
		"opportunities": opps,
	}, nil
}

// ToggleMode flips between mock and real.
func (m *Manager) ToggleMode(current models.CrawlMode) map[string]interface{} {
	next := models.ModeReal
	if current == models.ModeReal {
		next = models.ModeMock
	}
	return map[string]interface{}{
		"previous_mode": current,
		"current_mode":  next,
		"status":        "switched",
	}
}
