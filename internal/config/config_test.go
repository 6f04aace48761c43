package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xdeadbeef"
	cfg.Kalshi.ApiKeyID = "key-id"
	cfg.Kalshi.RsaPrivateKeyPath = "/etc/kalshi/key.pem"
	return cfg
}

func TestValidateAcceptsDefaultsWithCredentials(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing wallet and kalshi credentials must fail validation")
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "turbo"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown mode must fail validation")
	}
}

func TestValidateRejectsBadScannerSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Scanner.MinEdge = -0.01
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative min_edge must fail validation")
	}

	cfg = validConfig()
	cfg.Scanner.UnitSizeCap = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero unit_size_cap must fail validation")
	}

	cfg = validConfig()
	cfg.Scanner.Interval = duration{0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero interval must fail validation")
	}
}

func TestValidatePostgresOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Enabled = false
	cfg.Postgres.Host = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled postgres must not be validated: %v", err)
	}

	cfg.Postgres.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled postgres with empty host must fail validation")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "monitor"

[wallet]
private_key = "0xfromfile"

[kalshi]
api_key_id = "file-key"
rsa_private_key_path = "/tmp/key.pem"

[scanner]
min_edge = 0.02
interval = "5s"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CROSSBOOK_WALLET_PRIVATE_KEY", "0xfromenv")
	t.Setenv("CROSSBOOK_SCANNER_UNIT_SIZE_CAP", "250")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "monitor" {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.Wallet.PrivateKey != "0xfromenv" {
		t.Fatalf("env override lost: %q", cfg.Wallet.PrivateKey)
	}
	if cfg.Scanner.MinEdge != 0.02 {
		t.Fatalf("min_edge = %v", cfg.Scanner.MinEdge)
	}
	if cfg.Scanner.Interval.Duration != 5*time.Second {
		t.Fatalf("interval = %v", cfg.Scanner.Interval.Duration)
	}
	if cfg.Scanner.UnitSizeCap != 250 {
		t.Fatalf("unit_size_cap = %d", cfg.Scanner.UnitSizeCap)
	}
	// Defaults survive for fields the file doesn't mention.
	if cfg.Polymarket.ClobHost != "https://clob.polymarket.com" {
		t.Fatalf("clob_host = %q", cfg.Polymarket.ClobHost)
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/webhook"

	red := RedactedConfig(&cfg)

	if red.Wallet.PrivateKey != "***" || red.Postgres.Password != "***" || red.Notify.DiscordWebhookURL != "***" {
		t.Fatalf("secrets not redacted: %+v", red)
	}
	// The original must be untouched.
	if cfg.Wallet.PrivateKey != "0xdeadbeef" {
		t.Fatal("redaction mutated the original config")
	}
}
