package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// The example file must always load
	configPath := filepath.Join("..", "..", "config.yaml.example")
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Expected config to load successfully from example file, got error: %v", err)
	}
	if cfg.Rates.SeriesID != "DGS3MO" {
		t.Errorf("Expected series DGS3MO, got %s", cfg.Rates.SeriesID)
	}
	if cfg.Pricing.PointValue != 50 {
		t.Errorf("Expected point value 50, got %v", cfg.Pricing.PointValue)
	}
}

func TestLoad_InvalidPath(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent config file, got nil")
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_FRED_KEY", "abc123")
	path := writeConfig(t, `
rates:
  provider: fred
  api_key: "${TEST_FRED_KEY}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected config to load, got error: %v", err)
	}
	if cfg.Rates.APIKey != "abc123" {
		t.Errorf("Expected expanded api key, got %q", cfg.Rates.APIKey)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeConfig(t, `
pricing:
  risk_free_rat: 0.04
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for unknown field, got nil")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("Expected parsing error, got: %v", err)
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected empty config to validate with defaults, got: %v", err)
	}

	if cfg.Pricing.RiskFreeRate != 0.05 {
		t.Errorf("Expected default risk-free rate 0.05, got %v", cfg.Pricing.RiskFreeRate)
	}
	if cfg.Pricing.NumPoints != 100 || cfg.Pricing.PriceRangePercent != 0.2 {
		t.Errorf("Unexpected curve defaults: %+v", cfg.Pricing)
	}
	if cfg.Rates.Provider != "static" || cfg.Rates.FallbackRate != 0.045 {
		t.Errorf("Unexpected rate defaults: %+v", cfg.Rates)
	}
	if cfg.GetChainTTL() != 5*time.Minute {
		t.Errorf("Expected chain ttl 5m, got %v", cfg.GetChainTTL())
	}
	if cfg.GetRateCacheTTL() != time.Hour {
		t.Errorf("Expected rate cache ttl 1h, got %v", cfg.GetRateCacheTTL())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectedMsg string
	}{
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Environment.LogLevel = "verbose" },
			expectedMsg: "environment.log_level",
		},
		{
			name:        "bad log format",
			mutate:      func(c *Config) { c.Environment.LogFormat = "xml" },
			expectedMsg: "environment.log_format",
		},
		{
			name:        "port out of range",
			mutate:      func(c *Config) { c.Server.Port = 70000 },
			expectedMsg: "server.port",
		},
		{
			name:        "negative dividend yield",
			mutate:      func(c *Config) { c.Pricing.DividendYield = -0.01 },
			expectedMsg: "pricing.dividend_yield",
		},
		{
			name:        "negative point value",
			mutate:      func(c *Config) { c.Pricing.PointValue = -50 },
			expectedMsg: "pricing.point_value must be > 0",
		},
		{
			name:        "range too wide",
			mutate:      func(c *Config) { c.Pricing.PriceRangePercent = 1.5 },
			expectedMsg: "pricing.price_range_percent",
		},
		{
			name: "num points above max",
			mutate: func(c *Config) {
				c.Pricing.NumPoints = 300
				c.Pricing.MaxNumPoints = 200
			},
			expectedMsg: "pricing.num_points (300) must be <= pricing.max_num_points (200)",
		},
		{
			name:        "unknown rate provider",
			mutate:      func(c *Config) { c.Rates.Provider = "bloomberg" },
			expectedMsg: "rates.provider",
		},
		{
			name:        "fred without key",
			mutate:      func(c *Config) { c.Rates.Provider = "fred" },
			expectedMsg: "rates.api_key is required",
		},
		{
			name:        "bad cache ttl",
			mutate:      func(c *Config) { c.Rates.CacheTTL = "soon" },
			expectedMsg: "rates.cache_ttl invalid",
		},
		{
			name:        "bad failure ratio",
			mutate:      func(c *Config) { c.Rates.CircuitBreaker.FailureRatio = 1.5 },
			expectedMsg: "rates.circuit_breaker.failure_ratio",
		},
		{
			name:        "bad chain ttl",
			mutate:      func(c *Config) { c.Chain.TTL = "5 minutes" },
			expectedMsg: "chain.ttl invalid",
		},
		{
			name:        "negative max records",
			mutate:      func(c *Config) { c.Storage.MaxRecords = -1 },
			expectedMsg: "storage.max_records must be > 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing '%s', got nil", tt.expectedMsg)
			}
			if !strings.Contains(err.Error(), tt.expectedMsg) {
				t.Errorf("Expected error message to contain '%s', got: %v", tt.expectedMsg, err)
			}
		})
	}
}

func TestDuration_Fallback(t *testing.T) {
	if got := Duration("2m", time.Second); got != 2*time.Minute {
		t.Errorf("Expected 2m, got %v", got)
	}
	if got := Duration("bogus", time.Second); got != time.Second {
		t.Errorf("Expected fallback 1s, got %v", got)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
