package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{"SERVER_PORT", "PORT", "JWT_EXPIRY_HOURS", "ALLOWED_ORIGINS",
		"API_RATE_LIMIT_PER_MINUTE", "AUTH_RATE_LIMIT_PER_WINDOW", "AUTH_RATE_WINDOW_MINUTES",
		"BULK_RATE_LIMIT_PER_MINUTE"} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.JWTExpiryHours != 24 {
		t.Fatalf("expected default JWT expiry 24h, got %d", cfg.JWTExpiryHours)
	}
	if cfg.APIRateLimitPerMinute != 1000 || cfg.AuthRateLimitPerWindow != 5 ||
		cfg.AuthRateWindowMinutes != 15 || cfg.BulkRateLimitPerMinute != 10 {
		t.Fatalf("unexpected default rate limits: %+v", cfg)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_ReadsEnvironmentValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "DATABASE_URL", "postgres://collections:pw@localhost:5432/collections")
	setEnvWithCleanup(t, "JWT_SECRET", "  sekrit  ")
	setEnvWithCleanup(t, "AUTH_RATE_LIMIT_PER_WINDOW", "3")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://collections:pw@localhost:5432/collections" {
		t.Fatalf("unexpected DatabaseURL %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "sekrit" {
		t.Fatalf("expected trimmed secret, got %q", cfg.JWTSecret)
	}
	if cfg.AuthRateLimitPerWindow != 3 {
		t.Fatalf("expected auth limit 3, got %d", cfg.AuthRateLimitPerWindow)
	}
}

func TestConfig_OriginsSplitsAndTrims(t *testing.T) {
	cfg := Config{AllowedOrigins: "https://app.collectra.io, https://admin.collectra.io ,"}
	origins := cfg.Origins()
	if len(origins) != 2 {
		t.Fatalf("expected 2 origins, got %v", origins)
	}
	if origins[0] != "https://app.collectra.io" || origins[1] != "https://admin.collectra.io" {
		t.Fatalf("unexpected origins %v", origins)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		}
	})
}
