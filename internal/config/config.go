// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Webview  WebviewConfig     `mapstructure:"webview" yaml:"webview"`
	Network  NetworkConfig     `mapstructure:"network" yaml:"network"`
	History  HistoryConfig     `mapstructure:"history" yaml:"history"`
	Accounts []schemas.Account `mapstructure:"accounts" yaml:"accounts"`

	// DataDir is the resolved application data directory. Populated during
	// Validate unless overridden in the config file.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the Chrome instances that host webview
// composer sessions. Headless is off by default: the whole point of the
// webview flow is that the user presses the platform's own Post control.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
	WindowWidth     int      `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int      `mapstructure:"window_height" yaml:"window_height"`
}

// WebviewConfig tunes the confirmation engine.
type WebviewConfig struct {
	// StatusInterval is how often the panel reports per-account status.
	StatusInterval time.Duration `mapstructure:"status_interval" yaml:"status_interval"`
	// NavigationTimeout bounds the initial composer page load.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// NetworkConfig tunes the API platform clients.
type NetworkConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	APIConcurrency  int           `mapstructure:"api_concurrency" yaml:"api_concurrency"`
	RateLimitPerMin float64       `mapstructure:"rate_limit_per_min" yaml:"rate_limit_per_min"`
}

// HistoryConfig configures the local post history store.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "crosspost")
	v.SetDefault("logger.log_file", "crosspost.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)

	// -- Webview engine --
	v.SetDefault("webview.status_interval", "1s")
	v.SetDefault("webview.navigation_timeout", "90s")

	// -- Network --
	v.SetDefault("network.timeout", "30s")
	v.SetDefault("network.api_concurrency", 4)
	v.SetDefault("network.rate_limit_per_min", 30.0)

	// -- History --
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values, and
// resolves the application data directory.
func (c *Config) Validate() error {
	if c.Network.APIConcurrency <= 0 {
		return fmt.Errorf("network.api_concurrency must be a positive integer")
	}
	if c.Webview.NavigationTimeout <= 0 {
		return fmt.Errorf("webview.navigation_timeout must be a positive duration")
	}
	if c.Webview.StatusInterval <= 0 {
		return fmt.Errorf("webview.status_interval must be a positive duration")
	}

	seen := make(map[string]bool, len(c.Accounts))
	for _, acct := range c.Accounts {
		if acct.AccountID == "" {
			return fmt.Errorf("account with platform %q has no id", acct.Platform)
		}
		if seen[acct.AccountID] {
			return fmt.Errorf("duplicate account id %q", acct.AccountID)
		}
		seen[acct.AccountID] = true
		if _, ok := schemas.SpecsFor(acct.Platform); !ok {
			return fmt.Errorf("account %q references unknown platform %q", acct.AccountID, acct.Platform)
		}
	}

	if c.DataDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("could not resolve home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".crosspost")
	}
	if c.History.Path == "" {
		c.History.Path = filepath.Join(c.DataDir, "history.db")
	}
	return nil
}

// AccountByID returns the configured account with the given id.
func (c *Config) AccountByID(id string) (schemas.Account, bool) {
	for _, acct := range c.Accounts {
		if acct.AccountID == id {
			return acct, true
		}
	}
	return schemas.Account{}, false
}

// WebProfilesDir is the root under which per-account browser session
// directories live.
func (c *Config) WebProfilesDir() string {
	return filepath.Join(c.DataDir, "webprofiles")
}
