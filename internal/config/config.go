// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Defaults for the essay source and search collaborators.
const (
	DefaultSiteURL      = "http://www.paulgraham.com/articles.html"
	DefaultSiteDomain   = "paulgraham.com"
	DefaultSearchURL    = "https://hn.algolia.com/api/v1/search"
	DefaultDataDir      = "data"
	DefaultReportsDir   = "reports"
	DefaultBatchSize    = 5
	DefaultBatchDelayMs = 1000
	DefaultQueryDelayMs = 300
	DefaultHitsPerPage  = 50
)

// Config represents the CLI configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults and CLI flags
// override file values.
type Config struct {
	// Collaborators
	SiteURL    string `json:"site_url,omitempty" validate:"omitempty,url"`
	SiteDomain string `json:"site_domain,omitempty" validate:"omitempty,fqdn"`
	SearchURL  string `json:"search_url,omitempty" validate:"omitempty,url"`

	// Paths
	DataDir    string `json:"data_dir,omitempty"`
	ReportsDir string `json:"reports_dir,omitempty"`

	// Batch behavior
	BatchSize    int `json:"batch_size,omitempty" validate:"gte=0,lte=100"`
	BatchDelayMs int `json:"batch_delay_ms,omitempty" validate:"gte=0"`
	QueryDelayMs int `json:"query_delay_ms,omitempty" validate:"gte=0"`
	HitsPerPage  int `json:"hits_per_page,omitempty" validate:"gte=0,lte=1000"`
	Limit        int `json:"limit,omitempty" validate:"gte=0"`

	// Behavior
	UseBrowser  bool   `json:"use_browser,omitempty"`
	Verbose     bool   `json:"verbose,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default value.
func (c *Config) ApplyDefaults() {
	if c.SiteURL == "" {
		c.SiteURL = DefaultSiteURL
	}
	if c.SiteDomain == "" {
		c.SiteDomain = DefaultSiteDomain
	}
	if c.SearchURL == "" {
		c.SearchURL = DefaultSearchURL
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.ReportsDir == "" {
		c.ReportsDir = DefaultReportsDir
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchDelayMs == 0 {
		c.BatchDelayMs = DefaultBatchDelayMs
	}
	if c.QueryDelayMs == 0 {
		c.QueryDelayMs = DefaultQueryDelayMs
	}
	if c.HitsPerPage == 0 {
		c.HitsPerPage = DefaultHitsPerPage
	}
}

// Validate checks field constraints via struct tags.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("config error: field %s failed %q validation", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("config validation failed: %w", err)
}
