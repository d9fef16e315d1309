package crawl

import "time"

// CrawlerConfig holds the behavioral knobs for one crawl invocation.
// Zero values are filled in by applyDefaults; one instance per call.
type CrawlerConfig struct {
	RequestDelaySeconds   float64 `json:"request_delay_seconds" yaml:"request_delay_seconds"`
	MaxConcurrentRequests int     `json:"max_concurrent_requests" yaml:"max_concurrent_requests"`
	TimeoutSeconds        int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	// MaxRetries is reserved: no fetch retry loop consumes it yet.
	MaxRetries       int    `json:"max_retries" yaml:"max_retries"`
	UserAgent        string `json:"user_agent" yaml:"user_agent"`
	RespectRobotsTxt *bool  `json:"respect_robots_txt,omitempty" yaml:"respect_robots_txt,omitempty"`
}

const defaultUserAgent = "FundingCrawler/1.0 (+https://github.com/david/funding-crawler)"

// DefaultConfig returns the stock configuration: 2s per-domain spacing,
// 5 concurrent fetches, 30s request timeout, robots.txt honored.
func DefaultConfig() CrawlerConfig {
	respect := true
	return CrawlerConfig{
		RequestDelaySeconds:   2.0,
		MaxConcurrentRequests: 5,
		TimeoutSeconds:        30,
		MaxRetries:            3,
		UserAgent:             defaultUserAgent,
		RespectRobotsTxt:      &respect,
	}
}

func (c *CrawlerConfig) applyDefaults() {
	def := DefaultConfig()
	if c.RequestDelaySeconds <= 0 {
		c.RequestDelaySeconds = def.RequestDelaySeconds
	}
	if c.MaxConcurrentRequests <= 0 {
		c.MaxConcurrentRequests = def.MaxConcurrentRequests
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.RespectRobotsTxt == nil {
		c.RespectRobotsTxt = def.RespectRobotsTxt
	}
}

// Overrides carries the per-call knobs an external caller may change.
type Overrides struct {
	RequestDelaySeconds   float64 `json:"request_delay,omitempty"`
	MaxConcurrentRequests int     `json:"max_concurrent_requests,omitempty"`
	RespectRobotsTxt      *bool   `json:"respect_robots_txt,omitempty"`
}

// Merged returns a copy of c with the non-zero override fields applied.
func (c CrawlerConfig) Merged(o Overrides) CrawlerConfig {
	out := c
	if o.RequestDelaySeconds > 0 {
		out.RequestDelaySeconds = o.RequestDelaySeconds
	}
	if o.MaxConcurrentRequests > 0 {
		out.MaxConcurrentRequests = o.MaxConcurrentRequests
	}
	if o.RespectRobotsTxt != nil {
		out.RespectRobotsTxt = o.RespectRobotsTxt
	}
	out.applyDefaults()
	return out
}

func (c CrawlerConfig) requestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

func (c CrawlerConfig) requestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c CrawlerConfig) respectRobots() bool {
	return c.RespectRobotsTxt == nil || *c.RespectRobotsTxt
}
