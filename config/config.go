package config

import (
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	crawlerrors "sjsage522/silkdeal/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Environment
	Environment string `envconfig:"SILKDEAL_ENVIRONMENT" default:"development"`

	// Targets
	Profiles    []string `envconfig:"PROFILES" default:"slickdeals"`
	ProfileFile string   `envconfig:"PROFILE_FILE"`
	StartURL    string   `envconfig:"START_URL"`

	// Browser configuration
	Headless      bool          `envconfig:"HEADLESS" default:"true"`
	ChromePath    string        `envconfig:"CHROME_PATH"`
	UserAgent     string        `envconfig:"USER_AGENT"`
	ProxyServers  []string      `envconfig:"PROXY_SERVERS"`
	InitialWait   time.Duration `envconfig:"INITIAL_WAIT" default:"3s"`
	ObeyRobots    bool          `envconfig:"ROBOTSTXT_OBEY" default:"false"`
	ScreenshotDir string        `envconfig:"SCREENSHOT_DIR"`

	// Pagination
	WaitTimeout      time.Duration `envconfig:"WAIT_TIMEOUT" default:"3s"`
	DownloadDelay    time.Duration `envconfig:"DOWNLOAD_DELAY" default:"1s"`
	Humanize         bool          `envconfig:"HUMANIZE" default:"true"`
	MaxPages         int           `envconfig:"MAX_PAGES" default:"0"`
	TransientRetries int           `envconfig:"TRANSIENT_RETRIES" default:"0"`

	// Crawler configuration; zero runs every target once.
	CrawlInterval time.Duration `envconfig:"CRAWL_INTERVAL" default:"0s"`

	// Output
	OutputFile string `envconfig:"OUTPUT_FILE" default:"-"`

	// Redis configuration
	RedisAddr        string `envconfig:"REDIS_ADDR"`
	RedisDB          int    `envconfig:"REDIS_DB" default:"0"`
	RedisStream      string `envconfig:"REDIS_STREAM" default:"silkdeals"`
	RedisStreamCount int    `envconfig:"REDIS_STREAM_COUNT" default:"1"`
	RedisMaxLen      int64  `envconfig:"REDIS_STREAM_MAXLEN" default:"500"`

	// Memcache configuration
	MemcacheAddr string        `envconfig:"MEMCACHE_ADDR"`
	DedupTTL     time.Duration `envconfig:"DEDUP_TTL" default:"24h"`

	// Postgres configuration
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

// LoadConfig loads a .env file when present, then reads the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			return nil, crawlerrors.NewConfiguration("load .env", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, crawlerrors.NewConfiguration("read environment", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and combinations.
func (c *Config) Validate() error {
	if len(c.Profiles) == 0 {
		return crawlerrors.NewConfiguration("at least one profile is required", nil)
	}
	if c.StartURL != "" {
		if len(c.Profiles) != 1 {
			return crawlerrors.NewConfiguration("START_URL requires exactly one profile", nil)
		}
		u, err := url.Parse(c.StartURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return crawlerrors.NewConfiguration("START_URL must be an absolute URL", err)
		}
	}
	if c.WaitTimeout <= 0 {
		return crawlerrors.NewConfiguration("WAIT_TIMEOUT must be positive", nil)
	}
	if c.InitialWait < 0 || c.DownloadDelay < 0 || c.CrawlInterval < 0 {
		return crawlerrors.NewConfiguration("durations must not be negative", nil)
	}
	if c.MaxPages < 0 || c.TransientRetries < 0 {
		return crawlerrors.NewConfiguration("MAX_PAGES and TRANSIENT_RETRIES must not be negative", nil)
	}
	if c.RedisStreamCount < 1 {
		return crawlerrors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	if c.RedisAddr != "" && c.RedisStream == "" {
		return crawlerrors.NewConfiguration("REDIS_STREAM is required with REDIS_ADDR", nil)
	}
	return nil
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
