// ABOUTME: Configuration for the esplens command, loaded from YAML and environment
// ABOUTME: Environment variables use the ESPLENS_ prefix and override the file

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/prateek/esplens/checker"
	"github.com/prateek/esplens/game"
)

// Config holds all command configuration.
type Config struct {
	Game      string      `mapstructure:"game"`
	PluginDir string      `mapstructure:"plugin_dir"`
	Scan      ScanConfig  `mapstructure:"scan"`
	Cache     CacheConfig `mapstructure:"cache"`
	Watch     WatchConfig `mapstructure:"watch"`
	Dirty     DirtyConfig `mapstructure:"dirty"`
	Log       LogConfig   `mapstructure:"log"`
}

type ScanConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	Format      string `mapstructure:"format"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// DirtyConfig names the known-dirty plugin lists. Later lists amend earlier ones.
type DirtyConfig struct {
	Lists []string `mapstructure:"lists"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("game", "SkyrimSE")
	v.SetDefault("plugin_dir", ".")
	v.SetDefault("scan.concurrency", 4)
	v.SetDefault("scan.format", string(checker.FormatJSON))
	v.SetDefault("cache.size", checker.DefaultCacheSize)
	v.SetDefault("cache.ttl", checker.DefaultCacheTTL)
	v.SetDefault("watch.debounce", checker.DefaultDebounce)
	v.SetDefault("dirty.lists", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// GameID returns the configured game
func (c *Config) GameID() (game.ID, error) {
	return game.Parse(c.Game)
}

// ReportFormat returns the configured report encoding
func (c *Config) ReportFormat() (checker.Format, error) {
	return checker.ParseFormat(c.Scan.Format)
}

// Validate checks configuration for values the command cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.GameID(); err != nil {
		errs = append(errs, err)
	}
	if c.Scan.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("scan.concurrency must be positive, got %d", c.Scan.Concurrency))
	}
	if _, err := c.ReportFormat(); err != nil {
		errs = append(errs, err)
	}
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("cache.size must not be negative, got %d", c.Cache.Size))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// LoadDirtyList reads the configured dirty lists. It returns nil when none are set.
func (c *Config) LoadDirtyList() (*checker.DirtyList, error) {
	if len(c.Dirty.Lists) == 0 {
		return nil, nil
	}
	return checker.LoadDirtyList(c.Dirty.Lists...)
}

// Load reads configuration from an optional file and the environment, and validates it.
func Load(path string) (*Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadUnvalidated is Load without validation, for callers that apply
// overrides of their own before calling Validate.
func LoadUnvalidated(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ESPLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}
