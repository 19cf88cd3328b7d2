package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DBDriver != "sqlite3" || cfg.DBDSN != "anonchat.db" {
		t.Errorf("Unexpected defaults %+v", cfg)
	}
	if cfg.RecentWindow != 24*time.Hour || cfg.RecentMessagesLimit != 50 {
		t.Errorf("Unexpected stats defaults %+v", cfg)
	}
	if cfg.DashboardProtected() {
		t.Error("Expected dashboard to be open without a password hash")
	}
	if !cfg.UsingDevSecret() {
		t.Error("Expected the development session secret")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"DB_DRIVER":               "pgx",
		"DB_DSN":                  "postgres://localhost/anonchat",
		"RECENT_WINDOW":           "1h",
		"RECENT_MESSAGES_LIMIT":   "10",
		"DASHBOARD_PASSWORD_HASH": "$2a$10$hash",
		"SESSION_SECRET":          "s3cret",
	}))
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.DBDriver != "pgx" || cfg.RecentWindow != time.Hour || cfg.RecentMessagesLimit != 10 {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if !cfg.DashboardProtected() || cfg.UsingDevSecret() {
		t.Errorf("Unexpected auth settings %+v", cfg)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "Bad Driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "Bad Duration", env: map[string]string{"STATS_CACHE_TTL": "soon"}},
		{name: "Bad Limit", env: map[string]string{"RECENT_MESSAGES_LIMIT": "-3"}},
		{name: "Zero Window", env: map[string]string{"RECENT_WINDOW": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromEnv(envMap(tt.env)); err == nil {
				t.Error("Expected a configuration error")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ANONCHAT_TEST_STATIC_DIR=assets\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANONCHAT_TEST_STATIC_DIR", "")
	os.Unsetenv("ANONCHAT_TEST_STATIC_DIR")

	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := os.Getenv("ANONCHAT_TEST_STATIC_DIR"); got != "assets" {
		t.Errorf("Expected value from env file, got %q", got)
	}
}
