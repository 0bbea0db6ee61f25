// Package config provides configuration management for the options calculator service.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Pricing and service defaults
const (
	// defaultRiskFreeRate is used when pricing.risk_free_rate is unset
	defaultRiskFreeRate = 0.05
	// defaultPointValue is the ES-style futures point value used when a request omits it
	defaultPointValue = 50.0
	// defaultPriceRangePercent is the ±sweep of the P&L curve
	defaultPriceRangePercent = 0.2
	// defaultNumPoints is the number of curve intervals
	defaultNumPoints = 100
	// defaultMaxNumPoints caps num_points accepted from clients
	defaultMaxNumPoints = 2000
	// defaultFallbackRate is used when the rate source is unavailable and nothing is cached
	defaultFallbackRate = 0.045
	// defaultMaxRecords caps persisted analysis history
	defaultMaxRecords = 500
	// defaultPort is the HTTP listen port
	defaultPort = 8080
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Server      ServerConfig      `yaml:"server"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Rates       RatesConfig       `yaml:"rates"`
	Chain       ChainConfig       `yaml:"chain"`
	Storage     StorageConfig     `yaml:"storage"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel  string `yaml:"log_level"`  // debug | info | warn | error
	LogFormat string `yaml:"log_format"` // text | json
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Port           int    `yaml:"port"`
	AuthToken      string `yaml:"auth_token"`
	RequestTimeout string `yaml:"request_timeout"`
}

// PricingConfig defines defaults for pricing requests.
type PricingConfig struct {
	RiskFreeRate      float64 `yaml:"risk_free_rate"`
	DividendYield     float64 `yaml:"dividend_yield"`
	PointValue        float64 `yaml:"point_value"`
	PriceRangePercent float64 `yaml:"price_range_percent"`
	NumPoints         int     `yaml:"num_points"`
	MaxNumPoints      int     `yaml:"max_num_points"`
	CurveWorkers      int     `yaml:"curve_workers"` // 0 = GOMAXPROCS
}

// RatesConfig defines the risk-free rate source.
type RatesConfig struct {
	Provider       string               `yaml:"provider"` // static | fred
	APIKey         string               `yaml:"api_key"`
	Endpoint       string               `yaml:"endpoint"`
	SeriesID       string               `yaml:"series_id"`
	CacheTTL       string               `yaml:"cache_ttl"`
	Timeout        string               `yaml:"timeout"`
	FallbackRate   float64              `yaml:"fallback_rate"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig defines retry behavior for the rate fetch.
type RetryConfig struct {
	MaxRetries     int    `yaml:"max_retries"`
	InitialBackoff string `yaml:"initial_backoff"`
	MaxBackoff     string `yaml:"max_backoff"`
}

// CircuitBreakerConfig defines circuit breaker behavior for the rate fetch.
type CircuitBreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests"`
	Interval     string  `yaml:"interval"`
	Timeout      string  `yaml:"timeout"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio"`
}

// ChainConfig defines the option-chain cache.
type ChainConfig struct {
	TTL string `yaml:"ttl"`
}

// StorageConfig defines storage settings for analysis history.
type StorageConfig struct {
	Path       string `yaml:"path"`
	MaxRecords int    `yaml:"max_records"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate normalizes defaults and checks that all configuration values are valid.
func (c *Config) Validate() error {
	c.normalize()

	switch c.Environment.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("environment.log_level must be one of debug, info, warn, error")
	}
	if c.Environment.LogFormat != "text" && c.Environment.LogFormat != "json" {
		return fmt.Errorf("environment.log_format must be 'text' or 'json'")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if _, err := time.ParseDuration(c.Server.RequestTimeout); err != nil {
		return fmt.Errorf("server.request_timeout invalid: %w", err)
	}

	if c.Pricing.RiskFreeRate < -0.1 || c.Pricing.RiskFreeRate > 1 {
		return fmt.Errorf("pricing.risk_free_rate must be between -0.1 and 1")
	}
	if c.Pricing.DividendYield < 0 || c.Pricing.DividendYield > 1 {
		return fmt.Errorf("pricing.dividend_yield must be between 0 and 1")
	}
	if c.Pricing.PointValue <= 0 {
		return fmt.Errorf("pricing.point_value must be > 0")
	}
	if c.Pricing.PriceRangePercent <= 0 || c.Pricing.PriceRangePercent >= 1 {
		return fmt.Errorf("pricing.price_range_percent must be in (0,1)")
	}
	if c.Pricing.NumPoints <= 0 {
		return fmt.Errorf("pricing.num_points must be > 0")
	}
	if c.Pricing.NumPoints > c.Pricing.MaxNumPoints {
		return fmt.Errorf("pricing.num_points (%d) must be <= pricing.max_num_points (%d)",
			c.Pricing.NumPoints, c.Pricing.MaxNumPoints)
	}
	if c.Pricing.CurveWorkers < 0 {
		return fmt.Errorf("pricing.curve_workers must be >= 0")
	}

	if err := c.validateRates(); err != nil {
		return err
	}

	if _, err := time.ParseDuration(c.Chain.TTL); err != nil {
		return fmt.Errorf("chain.ttl invalid: %w", err)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.MaxRecords <= 0 {
		return fmt.Errorf("storage.max_records must be > 0")
	}

	return nil
}

func (c *Config) validateRates() error {
	r := &c.Rates
	if r.Provider != "static" && r.Provider != "fred" {
		return fmt.Errorf("rates.provider must be 'static' or 'fred'")
	}
	if r.Provider == "fred" {
		if r.APIKey == "" {
			return fmt.Errorf("rates.api_key is required for the fred provider")
		}
		if r.SeriesID == "" {
			return fmt.Errorf("rates.series_id is required for the fred provider")
		}
	}
	if r.FallbackRate < -0.1 || r.FallbackRate > 1 {
		return fmt.Errorf("rates.fallback_rate must be between -0.1 and 1")
	}
	durations := map[string]string{
		"rates.cache_ttl":                r.CacheTTL,
		"rates.timeout":                  r.Timeout,
		"rates.retry.initial_backoff":    r.Retry.InitialBackoff,
		"rates.retry.max_backoff":        r.Retry.MaxBackoff,
		"rates.circuit_breaker.interval": r.CircuitBreaker.Interval,
		"rates.circuit_breaker.timeout":  r.CircuitBreaker.Timeout,
	}
	for field, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s invalid: %w", field, err)
		}
	}
	if r.Retry.MaxRetries < 0 {
		return fmt.Errorf("rates.retry.max_retries must be >= 0")
	}
	if r.CircuitBreaker.FailureRatio <= 0 || r.CircuitBreaker.FailureRatio > 1 {
		return fmt.Errorf("rates.circuit_breaker.failure_ratio must be in (0,1]")
	}
	return nil
}

// normalize sets default values for unset fields
func (c *Config) normalize() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.Environment.LogFormat == "" {
		c.Environment.LogFormat = "text"
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "30s"
	}
	if c.Pricing.RiskFreeRate == 0 {
		c.Pricing.RiskFreeRate = defaultRiskFreeRate
	}
	if c.Pricing.PointValue == 0 {
		c.Pricing.PointValue = defaultPointValue
	}
	if c.Pricing.PriceRangePercent == 0 {
		c.Pricing.PriceRangePercent = defaultPriceRangePercent
	}
	if c.Pricing.NumPoints == 0 {
		c.Pricing.NumPoints = defaultNumPoints
	}
	if c.Pricing.MaxNumPoints == 0 {
		c.Pricing.MaxNumPoints = defaultMaxNumPoints
	}
	c.normalizeRates()
	if c.Chain.TTL == "" {
		c.Chain.TTL = "5m"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "history.json"
	}
	if c.Storage.MaxRecords == 0 {
		c.Storage.MaxRecords = defaultMaxRecords
	}
}

func (c *Config) normalizeRates() {
	r := &c.Rates
	if r.Provider == "" {
		r.Provider = "static"
	}
	if r.Endpoint == "" {
		r.Endpoint = "https://api.stlouisfed.org/fred/series/observations"
	}
	if r.SeriesID == "" {
		r.SeriesID = "DGS3MO"
	}
	if r.CacheTTL == "" {
		r.CacheTTL = "1h"
	}
	if r.Timeout == "" {
		r.Timeout = "10s"
	}
	if r.FallbackRate == 0 {
		r.FallbackRate = defaultFallbackRate
	}
	if r.Retry.InitialBackoff == "" {
		r.Retry.InitialBackoff = "1s"
	}
	if r.Retry.MaxBackoff == "" {
		r.Retry.MaxBackoff = "30s"
	}
	if r.CircuitBreaker.MaxRequests == 0 {
		r.CircuitBreaker.MaxRequests = 3
	}
	if r.CircuitBreaker.Interval == "" {
		r.CircuitBreaker.Interval = "60s"
	}
	if r.CircuitBreaker.Timeout == "" {
		r.CircuitBreaker.Timeout = "30s"
	}
	if r.CircuitBreaker.MinRequests == 0 {
		r.CircuitBreaker.MinRequests = 5
	}
	if r.CircuitBreaker.FailureRatio == 0 {
		r.CircuitBreaker.FailureRatio = 0.6
	}
}

// Duration parses a duration field that Validate has already checked,
// returning fallback if it is malformed.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// GetRequestTimeout returns the per-request handler timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return Duration(c.Server.RequestTimeout, 30*time.Second)
}

// GetChainTTL returns how long a pushed option chain stays fresh.
func (c *Config) GetChainTTL() time.Duration {
	return Duration(c.Chain.TTL, 5*time.Minute)
}

// GetRateCacheTTL returns how long a fetched risk-free rate is reused.
func (c *Config) GetRateCacheTTL() time.Duration {
	return Duration(c.Rates.CacheTTL, time.Hour)
}
