package crawl

import (
	"embed"
	"os"

	"github.com/david/funding-crawler/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configured funding sources and crawler defaults.
type Registry struct {
	Crawler CrawlerConfig          `yaml:"crawler"`
	Sources []models.FundingSource `yaml:"sources"`
}

// LoadRegistry reads the embedded sources.yaml and returns a Registry.
// The path parameter is a filesystem fallback for local development.
func LoadRegistry(path string) (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	// Expand environment variables within the YAML content (e.g. ${API_KEY})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	reg.Crawler.applyDefaults()
	return &reg, nil
}

// Crawlable returns the sources with crawling enabled, in configuration order.
func (r *Registry) Crawlable() []models.FundingSource {
	out := make([]models.FundingSource, 0, len(r.Sources))
	for _, src := range r.Sources {
		if src.CrawlAllowed {
			out = append(out, src)
		}
	}
	return out
}
