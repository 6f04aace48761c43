package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSBOOK_* environment variable overrides, and
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

// applyEnvOverrides reads well-known CROSSBOOK_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "CROSSBOOK_WALLET_PRIVATE_KEY")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "CROSSBOOK_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.WsURL, "CROSSBOOK_POLYMARKET_WS_URL")
	setInt(&cfg.Polymarket.ChainID, "CROSSBOOK_POLYMARKET_CHAIN_ID")

	// ── Kalshi ──
	setStr(&cfg.Kalshi.ApiKeyID, "CROSSBOOK_KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "CROSSBOOK_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "CROSSBOOK_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.WsURL, "CROSSBOOK_KALSHI_WS_URL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "CROSSBOOK_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CROSSBOOK_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CROSSBOOK_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CROSSBOOK_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CROSSBOOK_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CROSSBOOK_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CROSSBOOK_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CROSSBOOK_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CROSSBOOK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CROSSBOOK_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CROSSBOOK_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CROSSBOOK_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CROSSBOOK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSBOOK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSBOOK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CROSSBOOK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CROSSBOOK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CROSSBOOK_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.OpportunityTTL, "CROSSBOOK_REDIS_OPPORTUNITY_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CROSSBOOK_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CROSSBOOK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CROSSBOOK_S3_REGION")
	setStr(&cfg.S3.Bucket, "CROSSBOOK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CROSSBOOK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CROSSBOOK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CROSSBOOK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CROSSBOOK_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.ReportPrefix, "CROSSBOOK_S3_REPORT_PREFIX")

	// ── Scanner ──
	setFloat64(&cfg.Scanner.MinEdge, "CROSSBOOK_SCANNER_MIN_EDGE")
	setInt(&cfg.Scanner.UnitSizeCap, "CROSSBOOK_SCANNER_UNIT_SIZE_CAP")
	setDuration(&cfg.Scanner.Interval, "CROSSBOOK_SCANNER_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.DiscordWebhookURL, "CROSSBOOK_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.DiscordMentionUserID, "CROSSBOOK_NOTIFY_DISCORD_MENTION_USER_ID")
	setStr(&cfg.Notify.TelegramToken, "CROSSBOOK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSBOOK_NOTIFY_TELEGRAM_CHAT_ID")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROSSBOOK_MODE")
	setStr(&cfg.LogLevel, "CROSSBOOK_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
