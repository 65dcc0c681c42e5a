package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BRANDLAB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BRANDLAB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── App ──
	setStr(&cfg.App.AppID, "BRANDLAB_APP_ID")

	// ── Database ──
	setStr(&cfg.Database.DSN, "BRANDLAB_DATABASE_DSN")
	setStr(&cfg.Database.Host, "BRANDLAB_DATABASE_HOST")
	setInt(&cfg.Database.Port, "BRANDLAB_DATABASE_PORT")
	setStr(&cfg.Database.Database, "BRANDLAB_DATABASE_NAME")
	setStr(&cfg.Database.User, "BRANDLAB_DATABASE_USER")
	setStr(&cfg.Database.Password, "BRANDLAB_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "BRANDLAB_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "BRANDLAB_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "BRANDLAB_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "BRANDLAB_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BRANDLAB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BRANDLAB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BRANDLAB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BRANDLAB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BRANDLAB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BRANDLAB_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "BRANDLAB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "BRANDLAB_S3_REGION")
	setStr(&cfg.S3.Bucket, "BRANDLAB_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "BRANDLAB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "BRANDLAB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "BRANDLAB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "BRANDLAB_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.PublicBaseURL, "BRANDLAB_S3_PUBLIC_BASE_URL")

	// ── Identity ──
	setStr(&cfg.Identity.Token, "BRANDLAB_IDENTITY_TOKEN")

	// ── Assist ──
	setBool(&cfg.Assist.Enabled, "BRANDLAB_ASSIST_ENABLED")
	setStr(&cfg.Assist.APIKey, "BRANDLAB_ASSIST_API_KEY")
	setStr(&cfg.Assist.APIKey, "GEMINI_API_KEY") // compatibility alias
	setStr(&cfg.Assist.Model, "BRANDLAB_ASSIST_MODEL")

	// ── Wallet ──
	setDuration(&cfg.Wallet.SettleDelay, "BRANDLAB_WALLET_SETTLE_DELAY")

	// ── Sweep ──
	setBool(&cfg.Sweep.Enabled, "BRANDLAB_SWEEP_ENABLED")
	setDuration(&cfg.Sweep.Interval, "BRANDLAB_SWEEP_INTERVAL")
	setDuration(&cfg.Sweep.MinAge, "BRANDLAB_SWEEP_MIN_AGE")

	// ── Server ──
	setInt(&cfg.Server.Port, "BRANDLAB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BRANDLAB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "BRANDLAB_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "BRANDLAB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
