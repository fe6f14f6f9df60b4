package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected defaults to load, got %v", err)
	}
	if cfg.GetServerAddr() != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.GetServerAddr())
	}
	if cfg.Reminders.WindowDays != 3 || cfg.Reminders.DefaultHours != 24 {
		t.Errorf("Expected reminder defaults 3/24, got %d/%d", cfg.Reminders.WindowDays, cfg.Reminders.DefaultHours)
	}
	if cfg.IsProduction() {
		t.Error("Expected development by default")
	}
	if cfg.Auth.Secret == "" {
		t.Error("Expected a development secret to be filled in")
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Expected 15s read timeout, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("SERVER_READ_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected config, got %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.GetRedisAddr() != "cache:6379" {
		t.Errorf("Expected cache:6379, got %s", cfg.GetRedisAddr())
	}
	if cfg.GetDSN() != "/tmp/test.db" {
		t.Errorf("Expected sqlite path DSN, got %s", cfg.GetDSN())
	}
	if cfg.Server.ReadTimeout != 2*time.Second {
		t.Errorf("Expected 2s, got %v", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigPlatformPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PORT", "7000")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected config, got %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Expected PORT to win with 7000, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  environment: production\nauth:\n  secret: s3cret\n  issuer: hrmspro\nreminders:\n  window_days: 5\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("Expected config, got %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("Expected production")
	}
	if cfg.Auth.Issuer != "hrmspro" || cfg.Reminders.WindowDays != 5 {
		t.Errorf("Expected file values, got issuer=%s window=%d", cfg.Auth.Issuer, cfg.Reminders.WindowDays)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"production without secret", func(c *Config) { c.Server.Environment = EnvProduction; c.Auth.Secret = "" }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"supabase without key", func(c *Config) { c.Storage.Driver = "supabase"; c.Storage.SupabaseURL = "https://x.supabase.co" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{Port: 8080, Environment: EnvDevelopment},
				Database: DatabaseConfig{Driver: "postgres"},
				Storage:  StorageConfig{Driver: "local"},
				Auth:     AuthConfig{Secret: "x"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetDSNPostgres(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "app", Password: "p@ss", Name: "hrmspro", SSLMode: "disable"}}
	want := "postgres://app:p%40ss@db:5432/hrmspro?sslmode=disable"
	if got := cfg.GetDSN(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
