package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")
	if got := getEnvInt("TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt() = %v, want 42", got)
	}
	if got := getEnvInt("TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("getEnvInt() = %v, want 7", got)
	}

	os.Setenv("TEST_INT_BAD", "not-a-number")
	defer os.Unsetenv("TEST_INT_BAD")
	if got := getEnvInt("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("getEnvInt() with malformed value = %v, want 7", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_DUR", "90s")
	defer os.Unsetenv("TEST_DUR")
	if got := getEnvDuration("TEST_DUR", time.Second); got != 90*time.Second {
		t.Errorf("getEnvDuration() = %v, want 90s", got)
	}
	if got := getEnvDuration("TEST_DUR_MISSING", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() = %v, want 1s", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("default port = %v, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Configured() {
		t.Error("database should not be configured without DB_HOST")
	}
	if cfg.Redis.Enabled() {
		t.Error("redis should not be enabled without NAV_REDIS_ADDR")
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("default cache TTL = %v, want 30s", cfg.Cache.TTL)
	}
}

func TestLoadConfigDatabase(t *testing.T) {
	os.Setenv("DB_HOST", "db.internal")
	os.Setenv("DB_NAME", "navadmin")
	os.Setenv("DB_PORT", "5433")
	defer func() {
		os.Unsetenv("DB_HOST")
		os.Unsetenv("DB_NAME")
		os.Unsetenv("DB_PORT")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.Database.Configured() {
		t.Fatal("database should be configured")
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("database port = %v, want 5433", cfg.Database.Port)
	}
	if cfg.Database.MaxConns != 10 {
		t.Errorf("default max conns = %v, want 10", cfg.Database.MaxConns)
	}
}

func TestValidateRejectsPortClash(t *testing.T) {
	os.Setenv("NAV_PORT", "9090")
	defer os.Unsetenv("NAV_PORT")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig() should reject identical server and health ports")
	}
}
