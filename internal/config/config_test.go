package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempBackend(t *testing.T, content string) *fileBackend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return newFileBackend(path)
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnvOverrides(t)

	cfg, err := loadWith(tempBackend(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4820 {
		t.Errorf("Server.Port = %d, want 4820", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Auth.DemoEmail != "demo@breathemate.com" {
		t.Errorf("Auth.DemoEmail = %q", cfg.Auth.DemoEmail)
	}
	if cfg.Auth.DemoPassword != "demo1234" {
		t.Errorf("Auth.DemoPassword = %q", cfg.Auth.DemoPassword)
	}
	if got := cfg.SessionTTL(); got != 720*time.Hour {
		t.Errorf("SessionTTL() = %v, want 720h", got)
	}
	if got := cfg.PollInterval(); got != 2*time.Second {
		t.Errorf("PollInterval() = %v, want 2s", got)
	}
}

func TestFileBackendValues(t *testing.T) {
	clearEnvOverrides(t)

	content := `{
  "server.port": 5111,
  "log.level": "debug",
  "auth.session_ttl": "1h",
  "storage.data_dir": "/tmp/breathemate-test"
}`
	cfg, err := loadWith(tempBackend(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5111 {
		t.Errorf("Server.Port = %d, want 5111", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if got := cfg.SessionTTL(); got != time.Hour {
		t.Errorf("SessionTTL() = %v, want 1h", got)
	}
	if cfg.Storage.DataDir != "/tmp/breathemate-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("BREATHEMATE_SERVER_PORT", "6000")
	t.Setenv("BREATHEMATE_AUTH_DEMO_EMAIL", "other@example.com")

	cfg, err := loadWith(tempBackend(t, `{"server.port": 5111}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want env override 6000", cfg.Server.Port)
	}
	if cfg.Auth.DemoEmail != "other@example.com" {
		t.Errorf("Auth.DemoEmail = %q, want env override", cfg.Auth.DemoEmail)
	}
}

func TestBadEnvIntKeepsDefault(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("BREATHEMATE_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(tempBackend(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4820 {
		t.Errorf("Server.Port = %d, want default 4820", cfg.Server.Port)
	}
}

func TestBadDurationFallsBack(t *testing.T) {
	cfg := defaults()
	cfg.Auth.SessionTTL = "soon"
	if got := cfg.SessionTTL(); got != 720*time.Hour {
		t.Errorf("SessionTTL() = %v, want default", got)
	}
	cfg.Analysis.PollInterval = "-5s"
	if got := cfg.PollInterval(); got != 2*time.Second {
		t.Errorf("PollInterval() = %v, want default", got)
	}
}

func TestSetKey(t *testing.T) {
	b := tempBackend(t, "")

	if err := setKeyIn(b, "auth.token", "tok-123"); err != nil {
		t.Fatalf("setKeyIn: %v", err)
	}
	v, ok, err := b.GetString("auth.token")
	if err != nil || !ok || v != "tok-123" {
		t.Errorf("GetString = %q, %v, %v", v, ok, err)
	}

	if err := setKeyIn(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyIn(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllCoversEveryKey(t *testing.T) {
	cfg := defaults()
	infos := ShowAll(cfg)
	if len(infos) != len(specs) {
		t.Fatalf("ShowAll returned %d keys, want %d", len(infos), len(specs))
	}
	for _, info := range infos {
		if info.Key == "" || info.EnvVar == "" {
			t.Errorf("incomplete key info: %+v", info)
		}
	}
}
