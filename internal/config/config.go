package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	AppEnv      string `mapstructure:"APP_ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	ServiceName string `mapstructure:"SERVICE_NAME"`
	DBDSN       string `mapstructure:"DB_DSN"`

	RemoteAPIURL   string        `mapstructure:"REMOTE_API_URL"`
	RemoteAPIToken string        `mapstructure:"REMOTE_API_TOKEN"`
	RemoteTimeout  time.Duration `mapstructure:"REMOTE_TIMEOUT"`
	ProductLimit   int           `mapstructure:"PRODUCT_LIMIT"`

	CategoryTTL     time.Duration `mapstructure:"CATEGORY_TTL"`
	ProductTTL      time.Duration `mapstructure:"PRODUCT_TTL"`
	ProductQuickTTL time.Duration `mapstructure:"PRODUCT_QUICK_TTL"`
	BatchSize       int           `mapstructure:"SYNC_BATCH_SIZE"`
	BatchDelay      time.Duration `mapstructure:"SYNC_BATCH_DELAY"`

	AutoSyncEnabled    bool          `mapstructure:"AUTO_SYNC_ENABLED"`
	AutoSyncInterval   time.Duration `mapstructure:"AUTO_SYNC_INTERVAL"`
	PreloadCategoryIDs string        `mapstructure:"PRELOAD_CATEGORY_IDS"`

	// AdminToken guards the cache admin API; empty disables it.
	AdminToken string `mapstructure:"ADMIN_TOKEN"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`
}

var keys = []string{
	"PORT", "APP_ENV", "LOG_LEVEL", "SERVICE_NAME", "DB_DSN",
	"REMOTE_API_URL", "REMOTE_API_TOKEN", "REMOTE_TIMEOUT", "PRODUCT_LIMIT",
	"CATEGORY_TTL", "PRODUCT_TTL", "PRODUCT_QUICK_TTL", "SYNC_BATCH_SIZE", "SYNC_BATCH_DELAY",
	"AUTO_SYNC_ENABLED", "AUTO_SYNC_INTERVAL", "PRELOAD_CATEGORY_IDS",
	"ADMIN_TOKEN", "RABBITMQ_URL", "EVENTS_EXCHANGE",
}

// Load reads configuration from the environment. A .env file, if any, is
// expected to be loaded into the environment by the caller beforehand.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := cfg.ImportantCategoryIDs(); err != nil {
		return Config{}, err
	}
	if cfg.BatchSize < 1 {
		return Config{}, fmt.Errorf("SYNC_BATCH_SIZE must be >= 1, got %d", cfg.BatchSize)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVICE_NAME", "storefront")
	v.SetDefault("DB_DSN", "storefront-cache.db") // sqlite file in project root
	v.SetDefault("REMOTE_TIMEOUT", 15*time.Second)
	v.SetDefault("PRODUCT_LIMIT", 1000)
	v.SetDefault("CATEGORY_TTL", 24*time.Hour)
	v.SetDefault("PRODUCT_TTL", 30*time.Minute)
	v.SetDefault("PRODUCT_QUICK_TTL", 5*time.Minute)
	v.SetDefault("SYNC_BATCH_SIZE", 3)
	v.SetDefault("SYNC_BATCH_DELAY", 500*time.Millisecond)
	v.SetDefault("AUTO_SYNC_ENABLED", false)
	v.SetDefault("AUTO_SYNC_INTERVAL", 15*time.Minute)
	v.SetDefault("PRELOAD_CATEGORY_IDS", "")
	v.SetDefault("EVENTS_EXCHANGE", "storefront.cache")
}

// ImportantCategoryIDs parses the curated preload list ("1, 2,3").
func (c Config) ImportantCategoryIDs() ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(c.PreloadCategoryIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("PRELOAD_CATEGORY_IDS: invalid category id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.RemoteAPIToken != "" {
		c.RemoteAPIToken = "***"
	}
	if c.AdminToken != "" {
		c.AdminToken = "***"
	}
	if c.RabbitMQURL != "" {
		c.RabbitMQURL = "***"
	}
	return c
}
