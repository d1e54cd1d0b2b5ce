// Package config resolves the runtime configuration from built-in
// defaults, an optional YAML file and environment overrides, in that
// order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/subwaycore/subway-go/internal/feed"
	"github.com/subwaycore/subway-go/internal/gtfs"
)

// DefaultPort for the HTTP server.
const DefaultPort = 8080

// mtaFeedBase is the NYC subway GTFS-RT endpoint family. Each feed
// group covers the lines named by its key.
const mtaFeedBase = "https://api-endpoint.mta.info/Dataservice/mtagtfsfeeds/nyct%2Fgtfs"

// DefaultFeedGroups returns the built-in feed group map. Keys list the
// lines a group covers, one line label per character.
func DefaultFeedGroups() map[string]string {
	return map[string]string{
		"1234567S": mtaFeedBase,
		"ACE":      mtaFeedBase + "-ace",
		"BDFM":     mtaFeedBase + "-bdfm",
		"G":        mtaFeedBase + "-g",
		"JZ":       mtaFeedBase + "-jz",
		"NQRW":     mtaFeedBase + "-nqrw",
		"L":        mtaFeedBase + "-l",
	}
}

// Config is the resolved runtime configuration. Timeouts and TTLs are
// whole seconds so they round-trip through YAML and env vars cleanly.
type Config struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`

	FeedAPIKey         string            `yaml:"feed_api_key"`
	FeedGroups         map[string]string `yaml:"feed_groups" validate:"required,dive,url"`
	FeedTTLSeconds     int               `yaml:"feed_ttl_seconds" validate:"gte=0"`
	FeedTimeoutSeconds int               `yaml:"feed_timeout_seconds" validate:"gte=0"`

	ScheduleURL            string `yaml:"schedule_url" validate:"required,url"`
	ScheduleTimeoutSeconds int    `yaml:"schedule_timeout_seconds" validate:"gte=0"`

	CacheDir string `yaml:"cache_dir" validate:"required"`
}

// Default returns the built-in configuration, which works against the
// public MTA endpoints without any credentials.
func Default() Config {
	cacheDir := ".cache"
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "subway-go")
	}
	return Config{
		Port:                   DefaultPort,
		FeedGroups:             DefaultFeedGroups(),
		FeedTTLSeconds:         int(feed.DefaultTTL / time.Second),
		FeedTimeoutSeconds:     int(feed.DefaultTimeout / time.Second),
		ScheduleURL:            gtfs.DefaultURL,
		ScheduleTimeoutSeconds: int(gtfs.DefaultTimeout / time.Second),
		CacheDir:               cacheDir,
	}
}

// Load resolves the configuration. path may be empty to skip the file
// layer; env overrides always apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SUBWAY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := os.Getenv("SUBWAY_FEED_API_KEY"); v != "" {
		c.FeedAPIKey = v
	} else if v := os.Getenv("MTA_API_KEY"); v != "" {
		c.FeedAPIKey = v
	}
	if v := os.Getenv("SUBWAY_SCHEDULE_URL"); v != "" {
		c.ScheduleURL = v
	}
	if v := os.Getenv("SUBWAY_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("SUBWAY_FEED_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FeedTTLSeconds = n
		}
	}
	if v := os.Getenv("SUBWAY_FEED_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FeedTimeoutSeconds = n
		}
	}
	if v := os.Getenv("SUBWAY_SCHEDULE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ScheduleTimeoutSeconds = n
		}
	}
}

// LineFeeds expands the feed groups into a per-line URL map, the shape
// the arrival cache consumes.
func (c Config) LineFeeds() map[string]string {
	out := make(map[string]string)
	for group, url := range c.FeedGroups {
		for _, r := range group {
			out[string(r)] = url
		}
	}
	return out
}

// FeedTTL returns the arrival cache validity window.
func (c Config) FeedTTL() time.Duration {
	return time.Duration(c.FeedTTLSeconds) * time.Second
}

// FeedTimeout returns the live feed fetch timeout.
func (c Config) FeedTimeout() time.Duration {
	return time.Duration(c.FeedTimeoutSeconds) * time.Second
}

// ScheduleTimeout returns the bulk schedule download timeout.
func (c Config) ScheduleTimeout() time.Duration {
	return time.Duration(c.ScheduleTimeoutSeconds) * time.Second
}
