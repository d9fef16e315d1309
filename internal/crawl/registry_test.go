package crawl

import (
	"testing"
)

func TestLoadRegistry_Embedded(t *testing.T) {
	reg, err := LoadRegistry("does/not/exist.yaml")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	if len(reg.Sources) == 0 {
		t.Fatal("no sources loaded")
	}
	for i, src := range reg.Sources {
		if src.Name == "" {
			t.Errorf("source %d has no name", i)
		}
		if src.BaseURL == "" {
			t.Errorf("source %q has no base URL", src.Name)
		}
	}

	cfg := reg.Crawler
	if cfg.RequestDelaySeconds <= 0 {
		t.Error("request delay not set")
	}
	if cfg.MaxConcurrentRequests <= 0 {
		t.Error("concurrency limit not set")
	}
	if cfg.UserAgent == "" {
		t.Error("user agent not set")
	}
	if cfg.RespectRobotsTxt == nil || !*cfg.RespectRobotsTxt {
		t.Error("robots.txt checking should default on")
	}
}

func TestRegistry_Crawlable(t *testing.T) {
	reg, err := LoadRegistry("does/not/exist.yaml")
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}

	crawlable := reg.Crawlable()
	if len(crawlable) == 0 {
		t.Fatal("no crawlable sources")
	}
	if len(crawlable) >= len(reg.Sources) {
		t.Errorf("expected at least one source with crawling disabled, got %d of %d crawlable",
			len(crawlable), len(reg.Sources))
	}
	for _, src := range crawlable {
		if !src.CrawlAllowed {
			t.Errorf("source %q returned despite crawl_allowed=false", src.Name)
		}
	}
}

func TestConfigMerged(t *testing.T) {
	base := DefaultConfig()
	off := false

	merged := base.Merged(Overrides{
		RequestDelaySeconds:   0.5,
		MaxConcurrentRequests: 2,
		RespectRobotsTxt:      &off,
	})

	if merged.RequestDelaySeconds != 0.5 {
		t.Errorf("RequestDelaySeconds = %f", merged.RequestDelaySeconds)
	}
	if merged.MaxConcurrentRequests != 2 {
		t.Errorf("MaxConcurrentRequests = %d", merged.MaxConcurrentRequests)
	}
	if merged.respectRobots() {
		t.Error("robots override not applied")
	}

	// Unset overrides leave the base values intact.
	unchanged := base.Merged(Overrides{})
	if unchanged.RequestDelaySeconds != base.RequestDelaySeconds {
		t.Errorf("empty override changed delay to %f", unchanged.RequestDelaySeconds)
	}
	if !unchanged.respectRobots() {
		t.Error("empty override changed robots setting")
	}
}
