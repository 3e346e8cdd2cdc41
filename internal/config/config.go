// Package config loads run settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/pr-histogram/internal/domain"
	"github.com/naka-gawa/pr-histogram/internal/gateway"
	"github.com/naka-gawa/pr-histogram/internal/theme"
)

// TokenEnv holds the GitHub credential.
const TokenEnv = "GITHUB_TOKEN"

// Config represents the structure of the YAML config file.
type Config struct {
	Targets                     string `yaml:"targets"`
	OutputDir                   string `yaml:"output_dir"`
	Format                      string `yaml:"format"`
	Theme                       string `yaml:"theme"`
	AuthoredColor               string `yaml:"authored_color,omitempty"`
	ReviewedColor               string `yaml:"reviewed_color,omitempty"`
	ExcludeAuthoredFromReviewed bool   `yaml:"exclude_authored_from_reviewed"`

	ThemeCacheFile string        `yaml:"theme_cache_file"`
	ThemeCacheTTL  time.Duration `yaml:"theme_cache_ttl"`
	ThemeSource    ThemeSource   `yaml:"theme_source"`

	GraphQLURL   string        `yaml:"graphql_url,omitempty"`
	RESTURL      string        `yaml:"rest_url,omitempty"`
	PageSize     int           `yaml:"page_size"`
	MaxPages     int           `yaml:"max_pages"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	Timeout      time.Duration `yaml:"timeout"`

	// Token is only ever read from the environment.
	Token string `yaml:"-"`
}

// ThemeSource is the repository file the theme index is read from.
type ThemeSource struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Path  string `yaml:"path"`
	Ref   string `yaml:"ref"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		OutputDir:      ".",
		Format:         "svg",
		Theme:          theme.DefaultTheme,
		ThemeCacheFile: "themes.json",
		ThemeSource: ThemeSource{
			Owner: gateway.DefaultThemeFile.Owner,
			Repo:  gateway.DefaultThemeFile.Repo,
			Path:  gateway.DefaultThemeFile.Path,
			Ref:   gateway.DefaultThemeFile.Ref,
		},
		PageSize:     gateway.DefaultPageSize,
		MaxPages:     gateway.DefaultMaxPages,
		MaxRetries:   gateway.DefaultMaxRetries,
		RetryBackoff: gateway.DefaultRetryBackoff,
		Timeout:      gateway.DefaultTimeout,
	}
}

// Load returns the defaults overlaid with the YAML file at filename, if
// any, and with GITHUB_GRAPHQL_URL / GITHUB_API_URL from the environment.
// An empty filename skips the file.
func Load(filename string) (*Config, error) {
	config := Default()
	if filename != "" {
		data, err := os.ReadFile(filename) //nolint:gosec // Config filename is from command-line flag
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read config file: %v", domain.ErrConfig, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse config file %s: %v", domain.ErrConfig, filename, err)
		}
	}
	config.GraphQLURL = getEnvOrDefault("GITHUB_GRAPHQL_URL", config.GraphQLURL)
	config.RESTURL = getEnvOrDefault("GITHUB_API_URL", config.RESTURL)
	return config, nil
}

// LoadToken reads the credential from the environment.
func (c *Config) LoadToken() error {
	c.Token = os.Getenv(TokenEnv)
	if c.Token == "" {
		return fmt.Errorf("%w: %s environment variable is not set", domain.ErrConfig, TokenEnv)
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if c.ThemeCacheFile == "" {
		errs = append(errs, errors.New("theme_cache_file must not be empty"))
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		errs = append(errs, fmt.Errorf("page_size must be between 1 and 100, got %d", c.PageSize))
	}
	if c.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("max_pages must be positive, got %d", c.MaxPages))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.ThemeCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("theme_cache_ttl must not be negative, got %s", c.ThemeCacheTTL))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	return nil
}

// GatewayOptions converts the settings for gateway.NewGitHubGateway.
func (c *Config) GatewayOptions() gateway.Options {
	return gateway.Options{
		GraphQLURL:   c.GraphQLURL,
		RESTURL:      c.RESTURL,
		PageSize:     c.PageSize,
		MaxPages:     c.MaxPages,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		Timeout:      c.Timeout,
	}
}

// ThemeFile converts the theme source settings.
func (c *Config) ThemeFile() gateway.ThemeFile {
	return gateway.ThemeFile{
		Owner: c.ThemeSource.Owner,
		Repo:  c.ThemeSource.Repo,
		Path:  c.ThemeSource.Path,
		Ref:   c.ThemeSource.Ref,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
