package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Source is one published punctuality report.
type Source struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

const (
	SourceRegional = "regional"
	SourceSTrain   = "s-train"
)

// Config holds scraper configuration.
type Config struct {
	Sources            []Source      `yaml:"sources"`
	Categories         []string      `yaml:"categories"`
	Parallelism        int           `yaml:"parallelism"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxRetries         int           `yaml:"max_retries"`
	RetryBackoff       time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax    time.Duration `yaml:"retry_backoff_max"`
	UserAgent          string        `yaml:"user_agent"`
	CacheSize          int           `yaml:"cache_size"`
	CacheTTL           time.Duration `yaml:"cache_ttl"`
	StrictPeriods      bool          `yaml:"strict_periods"`
	OutputFile         string        `yaml:"output_file"`
	OutputFormat       string        `yaml:"output_format"` // csv, json, dual, or markdown
	PipelineWorkers    int           `yaml:"pipeline_workers"`
	PipelineBufferSize int           `yaml:"pipeline_buffer_size"`
	BatchSize          int           `yaml:"batch_size"`
	DedupeMaxSize      int           `yaml:"dedupe_max_size"`
	MetricsAddr        string        `yaml:"metrics_addr"`
	Verbose            bool          `yaml:"verbose"`
}

// DefaultSources returns the two report categories published by DSB.
func DefaultSources() []Source {
	return []Source{
		{
			Name:  SourceRegional,
			Title: "Regional & Long Distance",
			URL:   "https://www.dsb.dk/find-produkter-og-services/dsb-rejsetidsgaranti/dsb-pendler-rejsetidsgaranti/kompensationsstorrelse/trafikdata-for-fr---ny/",
		},
		{
			Name:  SourceSTrain,
			Title: "S-trains",
			URL:   "https://www.dsb.dk/find-produkter-og-services/dsb-rejsetidsgaranti/dsb-pendler-rejsetidsgaranti/kompensationsstorrelse/data-s-tog/",
		},
	}
}

// DefaultConfig returns defaults matching the published report.
func DefaultConfig() *Config {
	return &Config{
		Sources:            DefaultSources(),
		Categories:         []string{SourceRegional},
		Parallelism:        2,
		Timeout:            10 * time.Second,
		MaxRetries:         2,
		RetryBackoff:       200 * time.Millisecond,
		RetryBackoffMax:    2 * time.Second,
		UserAgent:          "go-train-punctuality/1.0 (+https://github.com/aluiziolira/go-train-punctuality)",
		CacheSize:          8,
		CacheTTL:           time.Hour,
		StrictPeriods:      false,
		OutputFile:         "output/train_punctuality_data.csv",
		OutputFormat:       "csv",
		PipelineWorkers:    1,
		PipelineBufferSize: 512,
		BatchSize:          64,
		DedupeMaxSize:      100000,
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// Source looks up a configured source by name.
func (c *Config) Source(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// SelectedSources resolves Categories against Sources, in category order.
func (c *Config) SelectedSources() ([]Source, error) {
	out := make([]Source, 0, len(c.Categories))
	for _, name := range c.Categories {
		src, ok := c.Source(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown category %q (known: %s)", name, strings.Join(c.sourceNames(), ", "))
		}
		out = append(out, src)
	}
	return out, nil
}

// AllowedDomains returns the hosts of every configured source.
func (c *Config) AllowedDomains() []string {
	seen := make(map[string]struct{}, len(c.Sources))
	out := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		u, err := url.Parse(s.URL)
		if err != nil || u.Host == "" {
			continue
		}
		if _, ok := seen[u.Host]; ok {
			continue
		}
		seen[u.Host] = struct{}{}
		out = append(out, u.Host)
	}
	return out
}

func (c *Config) sourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, s := range c.Sources {
		names = append(names, s.Name)
	}
	return names
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}
	names := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source name cannot be empty")
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("duplicate source %q", s.Name)
		}
		names[s.Name] = struct{}{}

		parsedURL, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("invalid URL for source %q: %w", s.Name, err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("URL for source %q must include a host", s.Name)
		}
	}

	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category must be selected")
	}
	if _, err := c.SelectedSources(); err != nil {
		return err
	}

	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive when the cache is enabled")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "dual", "markdown":
	default:
		return fmt.Errorf("output format must be csv, json, dual, or markdown")
	}
	if c.PipelineWorkers <= 0 {
		return fmt.Errorf("pipeline workers must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}

	return nil
}
