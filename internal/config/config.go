package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL      string   `mapstructure:"REDIS_URL"`
	DefaultTenant string   `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`

	PMSBaseURL        string `mapstructure:"PMS_BASE_URL"`
	PMSAPIKey         string `mapstructure:"PMS_API_KEY"`
	PMSExternalSystem string `mapstructure:"PMS_EXTERNAL_SYSTEM"`

	SyncIntervalMinutes  int `mapstructure:"SYNC_INTERVAL_MINUTES"`
	SyncTenantWorkers    int `mapstructure:"SYNC_TENANT_WORKERS"`
	SyncLeaseTTLSeconds  int `mapstructure:"SYNC_LEASE_TTL_SECONDS"`
	SyncMappingPageLimit int `mapstructure:"SYNC_MAPPING_PAGE_LIMIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("PMS_EXTERNAL_SYSTEM", "opendental")
	v.SetDefault("SYNC_INTERVAL_MINUTES", 15)
	v.SetDefault("SYNC_TENANT_WORKERS", 4)
	v.SetDefault("SYNC_LEASE_TTL_SECONDS", 300)
	v.SetDefault("SYNC_MAPPING_PAGE_LIMIT", 100)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("DEFAULT_TENANT")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("PMS_BASE_URL")
	v.BindEnv("PMS_API_KEY")
	v.BindEnv("PMS_EXTERNAL_SYSTEM")
	v.BindEnv("SYNC_INTERVAL_MINUTES")
	v.BindEnv("SYNC_TENANT_WORKERS")
	v.BindEnv("SYNC_LEASE_TTL_SECONDS")
	v.BindEnv("SYNC_MAPPING_PAGE_LIMIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// PMSConfigured reports whether the external PMS adapter has enough
// configuration to make API calls. When false the sync engine treats every
// operation as a zero-count no-op.
func (c *Config) PMSConfigured() bool {
	return c.PMSBaseURL != "" && c.PMSAPIKey != ""
}

// Validate checks that the configuration is safe to run with. Sync tuning
// values must be positive; a partially configured PMS connection (URL without
// key, or key without URL) is almost certainly a deployment mistake and is
// rejected rather than silently treated as unconfigured.
func (c *Config) Validate() error {
	if c.SyncIntervalMinutes <= 0 {
		return fmt.Errorf("SYNC_INTERVAL_MINUTES must be positive, got %d", c.SyncIntervalMinutes)
	}
	if c.SyncTenantWorkers <= 0 {
		return fmt.Errorf("SYNC_TENANT_WORKERS must be positive, got %d", c.SyncTenantWorkers)
	}
	if c.SyncLeaseTTLSeconds <= 0 {
		return fmt.Errorf("SYNC_LEASE_TTL_SECONDS must be positive, got %d", c.SyncLeaseTTLSeconds)
	}
	if c.SyncMappingPageLimit <= 0 {
		return fmt.Errorf("SYNC_MAPPING_PAGE_LIMIT must be positive, got %d", c.SyncMappingPageLimit)
	}
	if (c.PMSBaseURL == "") != (c.PMSAPIKey == "") {
		return fmt.Errorf("PMS_BASE_URL and PMS_API_KEY must be set together (got base_url=%q)", c.PMSBaseURL)
	}
	return nil
}
