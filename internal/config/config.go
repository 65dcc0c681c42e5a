// Package config defines the top-level configuration for the BrandLab
// exchange backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BRANDLAB_* environment variables.
type Config struct {
	App      AppConfig      `toml:"app"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Identity IdentityConfig `toml:"identity"`
	Assist   AssistConfig   `toml:"assist"`
	Wallet   WalletConfig   `toml:"wallet"`
	Sweep    SweepConfig    `toml:"sweep"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// AppConfig holds application-level identifiers.
type AppConfig struct {
	// AppID scopes the listing collection, mirroring the
	// artifacts/{appId}/public/data/exchangeListings document path of the
	// hosted deployment.
	AppID string `toml:"app_id"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// PublicBaseURL is the externally resolvable root for stored objects
	// (CDN or bucket website). When empty, URLs are derived from the
	// endpoint and bucket.
	PublicBaseURL string `toml:"public_base_url"`
}

// IdentityConfig holds session identity parameters.
type IdentityConfig struct {
	// Token is a pre-provisioned session credential. When set, sessions are
	// derived from it; otherwise anonymous sessions are minted.
	Token string `toml:"token"`
}

// AssistConfig holds Gemini API parameters for the AI copy helpers.
type AssistConfig struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// WalletConfig holds parameters for the simulated wallet.
type WalletConfig struct {
	// SettleDelay is how long a submitted transaction "processes" before the
	// balance mutation applies.
	SettleDelay duration `toml:"settle_delay"`
}

// SweepConfig holds parameters for the orphaned-image sweep that reconciles
// the object bucket against the listing table.
type SweepConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
	// MinAge protects objects uploaded moments before their listing write
	// lands; anything younger is skipped.
	MinAge duration `toml:"min_age"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "900ms", "5s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		App: AppConfig{
			AppID: "brandlab-exchange",
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "brandlab",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "brandlab-exchange",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Assist: AssistConfig{
			Enabled: false,
			Model:   "gemini-1.5-flash",
		},
		Wallet: WalletConfig{
			SettleDelay: duration{900 * time.Millisecond},
		},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: duration{6 * time.Hour},
			MinAge:   duration{time.Hour},
		},
		Server: ServerConfig{
			Port: 8080,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for missing or inconsistent values and
// returns a descriptive error for the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.App.AppID) == "" {
		return fmt.Errorf("config: app.app_id is required")
	}

	if c.Database.DSN == "" {
		if c.Database.Host == "" || c.Database.Database == "" || c.Database.User == "" {
			return fmt.Errorf("config: database requires either dsn or host/database/user")
		}
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}

	if c.S3.Bucket == "" {
		return fmt.Errorf("config: s3.bucket is required")
	}
	if c.S3.Region == "" {
		return fmt.Errorf("config: s3.region is required")
	}

	if c.Assist.Enabled && c.Assist.APIKey == "" {
		return fmt.Errorf("config: assist.api_key is required when assist is enabled")
	}

	if c.Sweep.Enabled && c.Sweep.Interval.Duration <= 0 {
		return fmt.Errorf("config: sweep.interval must be positive when sweep is enabled")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}

	return nil
}
