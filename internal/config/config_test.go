package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
chapa:
  base_url: https://sandbox.chapa.co/v1
  timeout: 5s
  subscription_callback_url: https://talakkinash.com/payment/verify
sweep:
  interval: 30m
referral:
  award: 50
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Chapa.BaseURL != "https://sandbox.chapa.co/v1" {
		t.Fatalf("unexpected chapa base url: %s", cfg.Chapa.BaseURL)
	}
	if cfg.Chapa.Timeout != 5*time.Second {
		t.Fatalf("unexpected chapa timeout: %s", cfg.Chapa.Timeout)
	}
	if cfg.Chapa.SubscriptionCallbackURL != "https://talakkinash.com/payment/verify" {
		t.Fatalf("unexpected subscription callback url: %s", cfg.Chapa.SubscriptionCallbackURL)
	}
	if cfg.Sweep.Interval != 30*time.Minute {
		t.Fatalf("unexpected sweep interval: %s", cfg.Sweep.Interval)
	}
	if cfg.Referral.Award != 50 {
		t.Fatalf("unexpected referral award: %d", cfg.Referral.Award)
	}

	if cfg.Referral.Threshold != 1000 {
		t.Fatalf("referral threshold default should stay 1000")
	}
	if cfg.Referral.PromoCodeTTL != 24*time.Hour {
		t.Fatalf("promo code ttl default should stay 24h")
	}
	if cfg.SMTP.Port != 587 {
		t.Fatalf("smtp port default should stay 587")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Sweep.Interval != time.Hour {
		t.Fatalf("unexpected default sweep interval: %s", cfg.Sweep.Interval)
	}
	if cfg.Referral.Award != 100 || cfg.Referral.Threshold != 1000 {
		t.Fatalf("unexpected referral defaults: %d/%d", cfg.Referral.Award, cfg.Referral.Threshold)
	}
	if cfg.Chapa.BaseURL != "https://api.chapa.co/v1" {
		t.Fatalf("unexpected default chapa base url: %s", cfg.Chapa.BaseURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("CHAPA_WEBHOOK_SECRET", "whsec")
	t.Setenv("SWEEP_INTERVAL", "2h")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Chapa.WebhookSecret != "whsec" {
		t.Fatalf("unexpected webhook secret: %s", cfg.Chapa.WebhookSecret)
	}
	if cfg.Sweep.Interval != 2*time.Hour {
		t.Fatalf("unexpected sweep interval: %s", cfg.Sweep.Interval)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"S3_ENDPOINT",
		"S3_ACCESS_KEY",
		"S3_SECRET_KEY",
		"S3_BUCKET",
		"S3_USE_SSL",
		"JWT_SECRET",
		"CHAPA_BASE_URL",
		"CHAPA_SECRET_KEY",
		"CHAPA_WEBHOOK_SECRET",
		"CHAPA_TIMEOUT",
		"CALLBACKURL_FOR_SUBSCRIPTION",
		"CALLBACKURL_FOR_PROMOTION",
		"SMTP_HOST",
		"SMTP_PORT",
		"EMAIL_USERNAME",
		"EMAIL_PASSWORD",
		"EMAIL_FROM",
		"SWEEP_INTERVAL",
		"REFERRAL_AWARD",
		"REFERRAL_THRESHOLD",
		"PROMO_CODE_TTL",
	} {
		t.Setenv(key, "")
	}
}
