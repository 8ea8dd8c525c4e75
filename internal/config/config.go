// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Language  LanguageConfig  `mapstructure:"language"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ProxyConfig holds the egress pool. Endpoints use the form
// "host:port:username:password[:type]".
type ProxyConfig struct {
	Endpoints []string `mapstructure:"endpoints"`
	Policy    string   `mapstructure:"policy"`
}

// ScrapeConfig bounds the retry loop and every pipeline wait.
type ScrapeConfig struct {
	Headless           bool `mapstructure:"headless"`
	MaxRetries         int  `mapstructure:"max_retries"`
	BackoffInitialMs   int  `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs       int  `mapstructure:"backoff_max_ms"`
	NavTimeoutSec      int  `mapstructure:"nav_timeout_seconds"`
	OpTimeoutSec       int  `mapstructure:"op_timeout_seconds"`
	SearchInputWaitSec int  `mapstructure:"search_input_wait_seconds"`
	ResultsWaitSec     int  `mapstructure:"results_wait_seconds"`
	RenderSettleSec    int  `mapstructure:"render_settle_seconds"`

	// SiteRPS paces outbound attempts per lyrics site; 0 disables pacing.
	SiteRPS   float64 `mapstructure:"site_rps"`
	SiteBurst int     `mapstructure:"site_burst"`
}

// SourcesConfig orders the failover chain.
type SourcesConfig struct {
	Order []string `mapstructure:"order"`
}

// ExtractConfig carries the site-observed policy data: the provenance
// marker, the boilerplate sentence, boundary strings, and tag vocabularies.
// Empty values select the built-in defaults.
type ExtractConfig struct {
	Marker        string   `mapstructure:"marker"`
	Boilerplate   string   `mapstructure:"boilerplate"`
	Boundaries    []string `mapstructure:"boundaries"`
	RomanizedTags []string `mapstructure:"romanized_tags"`
	NativeTags    []string `mapstructure:"native_tags"`
}

// CacheConfig controls the persistent lyrics cache.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Path     string `mapstructure:"path"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// RateLimitConfig controls per-IP request limiting.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LanguageConfig maps language codes to display names, merged over the
// built-in table.
type LanguageConfig struct {
	Names map[string]string `mapstructure:"names"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LYRICSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("proxy.policy", "round_robin")
	v.SetDefault("scrape.headless", true)
	v.SetDefault("scrape.max_retries", 3)
	v.SetDefault("scrape.backoff_initial_ms", 250)
	v.SetDefault("scrape.backoff_max_ms", 5000)
	v.SetDefault("scrape.nav_timeout_seconds", 60)
	v.SetDefault("scrape.op_timeout_seconds", 60)
	v.SetDefault("scrape.search_input_wait_seconds", 10)
	v.SetDefault("scrape.results_wait_seconds", 30)
	v.SetDefault("scrape.render_settle_seconds", 3)
	v.SetDefault("scrape.site_rps", 0)
	v.SetDefault("scrape.site_burst", 1)
	v.SetDefault("sources.order", []string{"azlyrics", "genius"})
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "data/lyrics-cache.db")
	v.SetDefault("cache.ttl_hours", 720)
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 1)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Proxy.Endpoints) == 0 {
		return fmt.Errorf("proxy.endpoints must not be empty")
	}
	if c.Proxy.Policy != "round_robin" && c.Proxy.Policy != "random" {
		return fmt.Errorf("proxy.policy must be round_robin or random")
	}
	if c.Scrape.MaxRetries <= 0 {
		return fmt.Errorf("scrape.max_retries must be > 0")
	}
	if len(c.Sources.Order) == 0 {
		return fmt.Errorf("sources.order must not be empty")
	}
	for _, name := range c.Sources.Order {
		if name != "azlyrics" && name != "genius" {
			return fmt.Errorf("sources.order: unknown source %q", name)
		}
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path must be set when cache is enabled")
	}
	return nil
}

// NavTimeout returns the navigation bound as a duration.
func (c ScrapeConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// OpTimeout returns the default operation bound as a duration.
func (c ScrapeConfig) OpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutSec) * time.Second
}

// SearchInputWait returns the search-control wait bound.
func (c ScrapeConfig) SearchInputWait() time.Duration {
	return time.Duration(c.SearchInputWaitSec) * time.Second
}

// ResultsWait returns the result-list wait bound.
func (c ScrapeConfig) ResultsWait() time.Duration {
	return time.Duration(c.ResultsWaitSec) * time.Second
}

// RenderSettle returns the post-navigation settle delay.
func (c ScrapeConfig) RenderSettle() time.Duration {
	return time.Duration(c.RenderSettleSec) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c ScrapeConfig) BackoffInitial() time.Duration {
	return time.Duration(c.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the retry delay cap.
func (c ScrapeConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMs) * time.Millisecond
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}
