// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all crawler configuration knobs loaded via Viper.
// Source-specific required values (region, credentials) are validated by the
// source constructors so that a missing value fails before any fetch.
// MetricsAddr, when set, exposes the Prometheus collectors on that address
// for the duration of the crawl.
type Config struct {
	LookbackDays int              `mapstructure:"lookback_days"`
	OutputDir    string           `mapstructure:"output_dir"`
	MaxPages     int              `mapstructure:"max_pages"`
	MetricsAddr  string           `mapstructure:"metrics_addr"`
	EBird        EBirdConfig      `mapstructure:"ebird"`
	WorldBirds   WorldBirdsConfig `mapstructure:"worldbirds"`
	Fetcher      FetcherConfig    `mapstructure:"fetcher"`
	Logging      LoggingConfig    `mapstructure:"logging"`
}

// EBirdConfig selects the eBird region and whether the web page enrichment
// stage runs at all.
type EBirdConfig struct {
	Region         string `mapstructure:"region"`
	IncludeWebPage bool   `mapstructure:"include_web_page"`
}

// WorldBirdsConfig holds the account and database for the WorldBirds crawl.
type WorldBirdsConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Country  string `mapstructure:"country"`
}

// FetcherConfig configures the HTTP fetch engine.
type FetcherConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CHECKLISTING")
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
	v.SetDefault("lookback_days", 7)
	v.SetDefault("max_pages", 50)
	v.SetDefault("ebird.include_web_page", true)
	v.SetDefault("fetcher.user_agent", "checklisting-bot/0.1")
	v.SetDefault("fetcher.timeout_seconds", 15)
	v.SetDefault("logging.development", true)
}

// Validate enforces reasonable limits on the global knobs.
func (c Config) Validate() error {
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback_days must be > 0")
	}
	if c.LookbackDays > 30 {
		return fmt.Errorf("lookback_days must be <= 30, the oldest observations the eBird API serves")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max_pages must be > 0")
	}
	if c.Fetcher.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetcher.timeout_seconds must be > 0")
	}
	return nil
}

// FetchTimeout converts the fetcher timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetcher.TimeoutSeconds) * time.Second
}
