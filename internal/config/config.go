// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the CLI configuration loadable from a JSON file. All fields are
// optional; missing values use defaults or come from CLI flags.
type Config struct {
	// Paths
	DataDir         string `json:"data_dir,omitempty"`         // Directory holding the dataset artifact
	CompetitorsFile string `json:"competitors_file,omitempty"` // File with one competitor URL per line

	// Discovery
	SiteURL string   `json:"site_url,omitempty"` // Storefront base URL
	Markers []string `json:"markers,omitempty"`  // Relevance markers for phrase filtering

	// Generation
	APIKey        string   `json:"api_key,omitempty"`        // Gemini API key
	Model         string   `json:"model,omitempty"`          // Model name override
	InternalLinks []string `json:"internal_links,omitempty"` // Candidate internal links for drafts
	MaxToolCalls  int      `json:"max_tool_calls,omitempty"` // Tool loop ceiling

	// Illustration
	ImageAPIURL string `json:"image_api_url,omitempty"` // Image generation endpoint
	ImageAPIKey string `json:"image_api_key,omitempty"` // Image generation API key

	// Publication
	ShopDomain string `json:"shop_domain,omitempty"` // Storefront domain for the blog API
	BlogToken  string `json:"blog_token,omitempty"`  // Blog API access token
	BlogID     string `json:"blog_id,omitempty"`     // Target blog id on the storefront

	// Behavior
	DatabaseURL string `json:"database_url,omitempty"` // Optional PostgreSQL run history URL
	UseBrowser  bool   `json:"use_browser,omitempty"`  // Headless browser fallback for SPA storefronts
	TestMode    bool   `json:"test_mode,omitempty"`    // Stub out LLM and image providers
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
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

// Validate checks that the configuration has valid values. Required fields
// are enforced by CLI flag validation after merging, not here.
func (c *Config) Validate() error {
	if c.MaxToolCalls < 0 {
		return fmt.Errorf("config error: 'max_tool_calls' must be non-negative")
	}

	if c.CompetitorsFile != "" {
		if _, err := os.Stat(c.CompetitorsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: competitors file not found: %s", c.CompetitorsFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. Config file values act as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.CompetitorsFile == "" {
		result.CompetitorsFile = defaults.CompetitorsFile
	}
	if result.SiteURL == "" {
		result.SiteURL = defaults.SiteURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.ImageAPIURL == "" {
		result.ImageAPIURL = defaults.ImageAPIURL
	}
	if result.ImageAPIKey == "" {
		result.ImageAPIKey = defaults.ImageAPIKey
	}
	if result.ShopDomain == "" {
		result.ShopDomain = defaults.ShopDomain
	}
	if result.BlogToken == "" {
		result.BlogToken = defaults.BlogToken
	}
	if result.BlogID == "" {
		result.BlogID = defaults.BlogID
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if len(result.Markers) == 0 {
		result.Markers = defaults.Markers
	}
	if len(result.InternalLinks) == 0 {
		result.InternalLinks = defaults.InternalLinks
	}
	if result.MaxToolCalls == 0 {
		result.MaxToolCalls = defaults.MaxToolCalls
	}
	if result.DataDir == "" {
		result.DataDir = "data"
	}

	// Bool fields: unset and false are indistinguishable here, so CLI
	// flags always win for bools.

	return result
}
