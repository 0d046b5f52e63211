package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Scrape.Parallelism != 5 {
		t.Errorf("Expected default parallelism to be 5, got %d", config.Scrape.Parallelism)
	}

	if config.Scrape.MaxAttempts != 10 {
		t.Errorf("Expected default max attempts to be 10, got %d", config.Scrape.MaxAttempts)
	}

	if config.Browser.PoolSize != 10 {
		t.Errorf("Expected default pool size to be 10, got %d", config.Browser.PoolSize)
	}

	if config.Auth.CookieName != "auth_token" || config.Auth.CookieDomain != ".twitter.com" {
		t.Errorf("Unexpected default cookie %s on %s", config.Auth.CookieName, config.Auth.CookieDomain)
	}

	if config.Scrape.ScrollDelayMin != 2*time.Second || config.Scrape.ScrollDelayMax != 5*time.Second {
		t.Errorf("Unexpected default scroll delay window %v-%v", config.Scrape.ScrollDelayMin, config.Scrape.ScrollDelayMax)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POSTSCRAPER_AUTH_TOKEN", "test-token")
	t.Setenv("POSTSCRAPER_PARALLELISM", "3")
	t.Setenv("POSTSCRAPER_MAX_ATTEMPTS", "4")
	t.Setenv("POSTSCRAPER_POOL_SIZE", "2")
	t.Setenv("POSTSCRAPER_HEADLESS", "false")
	t.Setenv("POSTSCRAPER_NAVIGATION_TIMEOUT", "45s")
	t.Setenv("POSTSCRAPER_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Auth.Token != "test-token" {
		t.Errorf("Expected token to be test-token, got %s", config.Auth.Token)
	}
	if config.Scrape.Parallelism != 3 {
		t.Errorf("Expected parallelism to be 3, got %d", config.Scrape.Parallelism)
	}
	if config.Scrape.MaxAttempts != 4 {
		t.Errorf("Expected max attempts to be 4, got %d", config.Scrape.MaxAttempts)
	}
	if config.Browser.PoolSize != 2 {
		t.Errorf("Expected pool size to be 2, got %d", config.Browser.PoolSize)
	}
	if config.Browser.Headless {
		t.Error("Expected headless to be disabled")
	}
	if config.Browser.NavigationTimeout != 45*time.Second {
		t.Errorf("Expected navigation timeout 45s, got %v", config.Browser.NavigationTimeout)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level to be debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("POSTSCRAPER_PARALLELISM", "many")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}
	if config.Scrape.Parallelism != 5 {
		t.Errorf("Expected parallelism to stay 5, got %d", config.Scrape.Parallelism)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
auth:
  cookie_name: session
  cookie_domain: .example.com
scrape:
  base_url: https://example.com
  parallelism: 2
  max_attempts: 6
queue:
  max_concurrent_requests: 4
logging:
  level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(configPath); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Auth.CookieName != "session" {
		t.Errorf("Expected cookie name session, got %s", config.Auth.CookieName)
	}
	if config.Scrape.BaseURL != "https://example.com" {
		t.Errorf("Expected base URL https://example.com, got %s", config.Scrape.BaseURL)
	}
	if config.Scrape.Parallelism != 2 {
		t.Errorf("Expected parallelism 2, got %d", config.Scrape.Parallelism)
	}
	if config.Queue.MaxConcurrentRequests != 4 {
		t.Errorf("Expected 4 concurrent requests, got %d", config.Queue.MaxConcurrentRequests)
	}
	// Untouched sections keep their defaults
	if config.Browser.PoolSize != 10 {
		t.Errorf("Expected default pool size to survive, got %d", config.Browser.PoolSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "zero parallelism",
			modify:  func(c *Config) { c.Scrape.Parallelism = 0 },
			wantErr: "parallelism must be positive",
		},
		{
			name:    "zero attempts",
			modify:  func(c *Config) { c.Scrape.MaxAttempts = 0 },
			wantErr: "max attempts must be positive",
		},
		{
			name: "hard cap below attempts",
			modify: func(c *Config) {
				c.Scrape.ExtendOnProgress = true
				c.Scrape.HardMaxAttempts = 3
			},
			wantErr: "hard max attempts",
		},
		{
			name: "inverted delay window",
			modify: func(c *Config) {
				c.Scrape.ScrollDelayMin = 5 * time.Second
				c.Scrape.ScrollDelayMax = time.Second
			},
			wantErr: "scroll delay window",
		},
		{
			name:    "empty pool",
			modify:  func(c *Config) { c.Browser.PoolSize = 0 },
			wantErr: "pool size",
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid server mode",
			modify:  func(c *Config) { c.Server.Mode = "prod" },
			wantErr: "invalid server mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	flags := map[string]interface{}{
		"auth-token":         "flag-token",
		"parallelism":        7,
		"pool-size":          3,
		"headless":           false,
		"navigation-timeout": time.Minute,
		"log-level":          "error",
	}
	config.MergeCommandLineFlags(flags)

	if config.Auth.Token != "flag-token" {
		t.Errorf("Expected token from flags, got %s", config.Auth.Token)
	}
	if config.Scrape.Parallelism != 7 {
		t.Errorf("Expected parallelism 7, got %d", config.Scrape.Parallelism)
	}
	if config.Browser.PoolSize != 3 {
		t.Errorf("Expected pool size 3, got %d", config.Browser.PoolSize)
	}
	if config.Browser.Headless {
		t.Error("Expected headless to be disabled by flag")
	}
	if config.Browser.NavigationTimeout != time.Minute {
		t.Errorf("Expected navigation timeout 1m, got %v", config.Browser.NavigationTimeout)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	config := DefaultConfig()
	config.Scrape.Parallelism = 9
	if err := config.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if loaded.Scrape.Parallelism != 9 {
		t.Errorf("Expected parallelism 9 after reload, got %d", loaded.Scrape.Parallelism)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("scrape:\n  parallelism: 2\n  max_attempts: 3\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("POSTSCRAPER_PARALLELISM", "4")

	config, err := Load(path, map[string]interface{}{"max-attempts": 8})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if config.Scrape.Parallelism != 4 {
		t.Errorf("Expected env to override file, got %d", config.Scrape.Parallelism)
	}
	if config.Scrape.MaxAttempts != 8 {
		t.Errorf("Expected flag to override file, got %d", config.Scrape.MaxAttempts)
	}
}
