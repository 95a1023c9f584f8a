package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Merge policies accepted by storage.merge_policy
const (
	MergePolicyIncoming = "incoming"
	MergePolicyExisting = "existing"
)

// Config holds all configuration options for the timeline fetcher
type Config struct {
	Browser  BrowserConfig  `yaml:"browser" json:"browser"`
	API      APIConfig      `yaml:"api" json:"api"`
	Accounts AccountsConfig `yaml:"accounts" json:"accounts"`
	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Pacing   PacingConfig   `yaml:"pacing" json:"pacing"`
	Run      RunConfig      `yaml:"run" json:"run"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the headless Chrome session
type BrowserConfig struct {
	// ProxyURL has the form scheme://[user[:pass]@]host[:port]
	ProxyURL          string        `yaml:"proxy_url" json:"proxy_url" env:"HTTP_PROXY, overwrite"`
	HomeURL           string        `yaml:"home_url" json:"home_url" env:"XQTL_HOME_URL, overwrite"`
	ExecPath          string        `yaml:"exec_path" json:"exec_path" env:"XQTL_CHROME_PATH, overwrite"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent" env:"XQTL_USER_AGENT, overwrite"`
	Headless          bool          `yaml:"headless" json:"headless" env:"XQTL_HEADLESS, overwrite"`
	BlockImages       bool          `yaml:"block_images" json:"block_images" env:"XQTL_BLOCK_IMAGES, overwrite"`
	ViewportWidth     int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height" json:"viewport_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout" env:"XQTL_NAVIGATION_TIMEOUT, overwrite"`
}

// APIConfig holds the remote endpoint settings
type APIConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url" env:"XQTL_API_BASE_URL, overwrite"`
}

// AccountsConfig points at the account list
type AccountsConfig struct {
	File string `yaml:"file" json:"file" env:"XQTL_ACCOUNTS_FILE, overwrite"`
}

// StorageConfig holds timeline persistence settings
type StorageConfig struct {
	DataDir     string `yaml:"data_dir" json:"data_dir" env:"XQTL_DATA_DIR, overwrite"`
	MergePolicy string `yaml:"merge_policy" json:"merge_policy" env:"XQTL_MERGE_POLICY, overwrite"`
}

// PacingConfig is the window of the random delay taken before each account
type PacingConfig struct {
	MinDelay time.Duration `yaml:"min_delay" json:"min_delay" env:"XQTL_MIN_DELAY, overwrite"`
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay" env:"XQTL_MAX_DELAY, overwrite"`
}

// RunConfig controls batch behaviour
type RunConfig struct {
	// FailFast aborts the batch on the first failing account
	FailFast      bool   `yaml:"fail_fast" json:"fail_fast" env:"XQTL_FAIL_FAST, overwrite"`
	ScreenshotDir string `yaml:"screenshot_dir" json:"screenshot_dir" env:"XQTL_SCREENSHOT_DIR, overwrite"`
}

// ScheduleConfig is used by the watch command
type ScheduleConfig struct {
	Cron       string `yaml:"cron" json:"cron" env:"XQTL_CRON, overwrite"`
	RunOnStart bool   `yaml:"run_on_start" json:"run_on_start" env:"XQTL_RUN_ON_START, overwrite"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"XQTL_LOG_LEVEL, overwrite"`
	Format string `yaml:"format" json:"format" env:"XQTL_LOG_FORMAT, overwrite"`
	File   string `yaml:"file" json:"file" env:"XQTL_LOG_FILE, overwrite"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			HomeURL:        "https://xueqiu.com/",
			Headless:       true,
			BlockImages:    true,
			ViewportWidth:  1080,
			ViewportHeight: 1024,
		},
		API: APIConfig{
			BaseURL: "https://xueqiu.com",
		},
		Accounts: AccountsConfig{
			File: "./accounts.json",
		},
		Storage: StorageConfig{
			DataDir:     "./data",
			MergePolicy: MergePolicyIncoming,
		},
		Pacing: PacingConfig{
			MinDelay: 3 * time.Second,
			MaxDelay: 10 * time.Second,
		},
		Run: RunConfig{
			FailFast: true,
		},
		Schedule: ScheduleConfig{
			Cron: "0 */6 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv overrides values with environment variables
func (c *Config) LoadFromEnv() error {
	return c.LoadFromLookuper(envconfig.OsLookuper())
}

// LoadFromLookuper overrides values with variables served by l.
// XQTL_PROXY_URL takes precedence over HTTP_PROXY.
func (c *Config) LoadFromLookuper(l envconfig.Lookuper) error {
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   c,
		Lookuper: l,
	}); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}
	if v, ok := l.Lookup("XQTL_PROXY_URL"); ok && v != "" {
		c.Browser.ProxyURL = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
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
		".xqtimeline.yaml",
		".xqtimeline.yml",
		filepath.Join(home, ".config", "xqtimeline", "config.yaml"),
		filepath.Join(home, ".config", "xqtimeline", "config.yml"),
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

	if c.Browser.ProxyURL != "" {
		raw := c.Browser.ProxyURL
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			errs = append(errs, fmt.Errorf("invalid proxy url %q", c.Browser.ProxyURL))
		}
	}
	if c.Browser.HomeURL == "" {
		errs = append(errs, errors.New("browser home url is required"))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, errors.New("viewport dimensions must be positive"))
	}
	if c.Browser.NavigationTimeout < 0 {
		errs = append(errs, errors.New("navigation timeout cannot be negative"))
	}

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api base url is required"))
	}
	if c.Accounts.File == "" {
		errs = append(errs, errors.New("accounts file is required"))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.MergePolicy)) {
	case MergePolicyIncoming, MergePolicyExisting:
	default:
		errs = append(errs, fmt.Errorf("invalid merge policy %q", c.Storage.MergePolicy))
	}

	if c.Pacing.MinDelay < 0 {
		errs = append(errs, errors.New("minimum delay cannot be negative"))
	}
	if c.Pacing.MaxDelay < c.Pacing.MinDelay {
		errs = append(errs, errors.New("maximum delay must not be below minimum delay"))
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			errs = append(errs, fmt.Errorf("invalid cron expression %q: %w", c.Schedule.Cron, err))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, errors.New("invalid log format"))
	}

	return errors.Join(errs...)
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
	if v, ok := flags["accounts"].(string); ok && v != "" {
		c.Accounts.File = v
	}
	if v, ok := flags["data-dir"].(string); ok && v != "" {
		c.Storage.DataDir = v
	}
	if v, ok := flags["proxy"].(string); ok && v != "" {
		c.Browser.ProxyURL = v
	}
	if v, ok := flags["merge-policy"].(string); ok && v != "" {
		c.Storage.MergePolicy = v
	}
	if v, ok := flags["min-delay"].(time.Duration); ok {
		c.Pacing.MinDelay = v
	}
	if v, ok := flags["max-delay"].(time.Duration); ok {
		c.Pacing.MaxDelay = v
	}
	if v, ok := flags["fail-fast"].(bool); ok {
		c.Run.FailFast = v
	}
	if v, ok := flags["screenshot-dir"].(string); ok && v != "" {
		c.Run.ScreenshotDir = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["cron"].(string); ok && v != "" {
		c.Schedule.Cron = v
	}
	if v, ok := flags["run-on-start"].(bool); ok {
		c.Schedule.RunOnStart = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".xqtimeline.env"))

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
