package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	if !cfg.Enabled || cfg.Capacity != 60 || cfg.RefillTokens != 1 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.KeyStrategy != "ip_user_route" || cfg.Prefix != "rl" {
		t.Errorf("key settings = %q/%q", cfg.KeyStrategy, cfg.Prefix)
	}
}

func TestLoadRateLimitConfigOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	cfg := LoadRateLimitConfig()
	if cfg.Enabled {
		t.Error("Enabled = true, want false")
	}
	if cfg.Capacity != 5 {
		t.Errorf("Capacity = %d, want 5", cfg.Capacity)
	}
	if cfg.RefillInterval != 2*time.Second || cfg.RefillTokens != 1 {
		t.Errorf("refill = %d every %s", cfg.RefillTokens, cfg.RefillInterval)
	}
	if cfg.TTL != 10*time.Second {
		t.Errorf("TTL = %s, want clamp to 5 intervals (10s)", cfg.TTL)
	}
}

func TestRateLimitNormalized(t *testing.T) {
	got := RateLimitConfig{Capacity: -3, RefillTokens: 0, RefillInterval: -time.Second}.normalized()
	if got.Capacity != 1 || got.RefillTokens != 1 || got.RefillInterval != time.Second {
		t.Errorf("normalized() = %+v", got)
	}
	if got.TTL != 5*time.Second {
		t.Errorf("TTL = %s, want 5s", got.TTL)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_TTL", "not-a-duration")

	cfg := LoadCacheConfig()
	want := map[string]bool{"GET": true, "HEAD": true}
	if !reflect.DeepEqual(cfg.Methods, want) {
		t.Errorf("Methods = %v, want %v", cfg.Methods, want)
	}
	if cfg.TTL != 30*time.Second {
		t.Errorf("TTL = %s, want default 30s on parse error", cfg.TTL)
	}
	if cfg.KeyStrategy != "path_query" {
		t.Errorf("KeyStrategy = %q", cfg.KeyStrategy)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GSR_TEST_FROM_FILE=hello\nGSR_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GSR_TEST_PRESET", "process")
	t.Cleanup(func() { os.Unsetenv("GSR_TEST_FROM_FILE") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error: %v", err)
	}
	if got := os.Getenv("GSR_TEST_FROM_FILE"); got != "hello" {
		t.Errorf("GSR_TEST_FROM_FILE = %q, want hello", got)
	}
	if got := os.Getenv("GSR_TEST_PRESET"); got != "process" {
		t.Errorf("GSR_TEST_PRESET = %q, want the process value to win", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.edu, ,https://b.edu ")
	want := []string{"https://a.edu", "https://b.edu"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitList() = %v, want %v", got, want)
	}
}

func TestLoadNotifierAndDB(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "amqp://broker:5672/")
	t.Setenv("MAIL_FROM", "noreply@example.edu")
	t.Setenv("DB_USER", "gsr")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "gsr")
	t.Setenv("DB_PORT", "")

	n := LoadNotifier()
	if n.RabbitURL != "amqp://broker:5672/" || n.MailFromEmail != "noreply@example.edu" || n.MailFromName != "GSR Bookings" {
		t.Errorf("notifier config = %+v", n)
	}
	d := LoadDB()
	if d.DBUser != "gsr" || d.DBHost != "db" || d.DBPort != "3306" || d.DBName != "gsr" {
		t.Errorf("db config = %+v", d)
	}
}

func TestLoad(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080",
		"DB_USER": "u", "DB_HOST": "h", "DB_PORT": "3306", "DB_NAME": "n",
		"JWT_SECRET": "s", "ACCESS_TOKEN_TTL_MIN": "15", "REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "10",
		"SHARE_CODE_TTL": "48h", "CORS_ALLOWED_ORIGINS": "https://a.edu, https://b.edu",
	} {
		t.Setenv(k, v)
	}
	cfg := Load()
	if cfg.ShareCodeTTL != 48*time.Hour || cfg.AccessTTLMin != 15 || cfg.BcryptCost != 10 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORSOrigins, []string{"https://a.edu", "https://b.edu"}) {
		t.Errorf("origins = %v", cfg.CORSOrigins)
	}
}
