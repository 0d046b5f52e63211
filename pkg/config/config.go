package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the post scraper
type Config struct {
	// Credential handed to browser sessions as a cookie
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Headless browser and session pool settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Worker loop and orchestration settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Admission queue for externally triggered scrape requests
	Queue QueueConfig `yaml:"queue" json:"queue"`

	// HTTP boundary settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Prometheus metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AuthConfig holds the opaque auth token and where it is installed
type AuthConfig struct {
	Token        string `yaml:"token" json:"token"`
	CookieName   string `yaml:"cookie_name" json:"cookie_name"`
	CookieDomain string `yaml:"cookie_domain" json:"cookie_domain"`
}

// BrowserConfig holds browser launch and pool configuration
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	ExecPath          string        `yaml:"exec_path" json:"exec_path"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	PoolSize          int           `yaml:"pool_size" json:"pool_size"`
	LaunchRetries     int           `yaml:"launch_retries" json:"launch_retries"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
}

// ScrapeConfig holds worker loop configuration
type ScrapeConfig struct {
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	Parallelism      int           `yaml:"parallelism" json:"parallelism"`
	MaxAttempts      int           `yaml:"max_attempts" json:"max_attempts"`
	ExtendOnProgress bool          `yaml:"extend_on_progress" json:"extend_on_progress"`
	HardMaxAttempts  int           `yaml:"hard_max_attempts" json:"hard_max_attempts"`
	ScrollDelayMin   time.Duration `yaml:"scroll_delay_min" json:"scroll_delay_min"`
	ScrollDelayMax   time.Duration `yaml:"scroll_delay_max" json:"scroll_delay_max"`
	MaxActiveWorkers int           `yaml:"max_active_workers" json:"max_active_workers"`
}

// QueueConfig holds request admission configuration
type QueueConfig struct {
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests" json:"max_concurrent_requests"`
	Interval              time.Duration `yaml:"interval" json:"interval"`
	IntervalCap           int           `yaml:"interval_cap" json:"interval_cap"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `yaml:"port" json:"port"`
	Mode         string        `yaml:"mode" json:"mode"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{
			CookieName:   "auth_token",
			CookieDomain: ".twitter.com",
		},
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36",
			PoolSize:          10,
			LaunchRetries:     2,
			NavigationTimeout: 30 * time.Second,
		},
		Scrape: ScrapeConfig{
			BaseURL:          "https://twitter.com",
			Parallelism:      5,
			MaxAttempts:      10,
			ExtendOnProgress: false,
			HardMaxAttempts:  30,
			ScrollDelayMin:   2 * time.Second,
			ScrollDelayMax:   5 * time.Second,
			MaxActiveWorkers: 0, // 0 means no cap beyond parallelism
		},
		Queue: QueueConfig{
			MaxConcurrentRequests: 10,
			Interval:              time.Second,
			IntervalCap:           1,
		},
		Server: ServerConfig{
			Port:         "8080",
			Mode:         "release",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "postscraper",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("POSTSCRAPER_AUTH_TOKEN"); token != "" {
		c.Auth.Token = token
	}
	if name := os.Getenv("POSTSCRAPER_COOKIE_NAME"); name != "" {
		c.Auth.CookieName = name
	}
	if domain := os.Getenv("POSTSCRAPER_COOKIE_DOMAIN"); domain != "" {
		c.Auth.CookieDomain = domain
	}

	if headless := os.Getenv("POSTSCRAPER_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true"
	}
	if execPath := os.Getenv("POSTSCRAPER_CHROME_PATH"); execPath != "" {
		c.Browser.ExecPath = execPath
	}
	if userAgent := os.Getenv("POSTSCRAPER_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
	}
	if val, ok := envInt("POSTSCRAPER_POOL_SIZE"); ok && val > 0 {
		c.Browser.PoolSize = val
	}
	if val, ok := envDuration("POSTSCRAPER_NAVIGATION_TIMEOUT"); ok {
		c.Browser.NavigationTimeout = val
	}

	if baseURL := os.Getenv("POSTSCRAPER_BASE_URL"); baseURL != "" {
		c.Scrape.BaseURL = baseURL
	}
	if val, ok := envInt("POSTSCRAPER_PARALLELISM"); ok && val > 0 {
		c.Scrape.Parallelism = val
	}
	if val, ok := envInt("POSTSCRAPER_MAX_ATTEMPTS"); ok && val > 0 {
		c.Scrape.MaxAttempts = val
	}

	if val, ok := envInt("POSTSCRAPER_MAX_CONCURRENT_REQUESTS"); ok && val > 0 {
		c.Queue.MaxConcurrentRequests = val
	}

	if port := os.Getenv("POSTSCRAPER_PORT"); port != "" {
		c.Server.Port = port
	} else if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}

	if logLevel := os.Getenv("POSTSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return val, true
}

func envDuration(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	val, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return val, true
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".postscraper.yaml",
		".postscraper.yml",
		filepath.Join(home, ".config", "postscraper", "config.yaml"),
		filepath.Join(home, ".config", "postscraper", "config.yml"),
		filepath.Join(home, ".postscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.CookieName == "" {
		errs = append(errs, errors.New("auth cookie name is required"))
	}
	if c.Auth.CookieDomain == "" {
		errs = append(errs, errors.New("auth cookie domain is required"))
	}

	if c.Browser.PoolSize <= 0 {
		errs = append(errs, errors.New("browser pool size must be positive"))
	}
	if c.Browser.LaunchRetries < 0 {
		errs = append(errs, errors.New("launch retries cannot be negative"))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}

	if c.Scrape.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	}
	if c.Scrape.Parallelism <= 0 {
		errs = append(errs, errors.New("parallelism must be positive"))
	}
	if c.Scrape.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Scrape.ExtendOnProgress && c.Scrape.HardMaxAttempts < c.Scrape.MaxAttempts {
		errs = append(errs, errors.New("hard max attempts must be at least max attempts"))
	}
	if c.Scrape.ScrollDelayMin < 0 || c.Scrape.ScrollDelayMax < c.Scrape.ScrollDelayMin {
		errs = append(errs, errors.New("scroll delay window is invalid"))
	}
	if c.Scrape.MaxActiveWorkers < 0 {
		errs = append(errs, errors.New("max active workers cannot be negative"))
	}

	if c.Queue.MaxConcurrentRequests <= 0 {
		errs = append(errs, errors.New("max concurrent requests must be positive"))
	}
	if c.Queue.Interval < 0 {
		errs = append(errs, errors.New("queue interval cannot be negative"))
	}
	if c.Queue.Interval > 0 && c.Queue.IntervalCap <= 0 {
		errs = append(errs, errors.New("queue interval cap must be positive when an interval is set"))
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[strings.ToLower(c.Server.Mode)] {
		errs = append(errs, errors.New("invalid server mode"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["auth-token"].(string); ok && token != "" {
		c.Auth.Token = token
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Scrape.BaseURL = baseURL
	}
	if parallelism, ok := flags["parallelism"].(int); ok && parallelism > 0 {
		c.Scrape.Parallelism = parallelism
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Scrape.MaxAttempts = attempts
	}
	if extend, ok := flags["extend-on-progress"].(bool); ok {
		c.Scrape.ExtendOnProgress = extend
	}
	if poolSize, ok := flags["pool-size"].(int); ok && poolSize > 0 {
		c.Browser.PoolSize = poolSize
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if timeout, ok := flags["navigation-timeout"].(time.Duration); ok && timeout > 0 {
		c.Browser.NavigationTimeout = timeout
	}
	if port, ok := flags["port"].(string); ok && port != "" {
		c.Server.Port = port
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".postscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
