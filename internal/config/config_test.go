package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Port != DefaultPort {
		t.Errorf("Expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.FeedTTLSeconds != 30 {
		t.Errorf("Expected 30s feed TTL, got %d", cfg.FeedTTLSeconds)
	}
	if len(cfg.FeedGroups) != 7 {
		t.Errorf("Expected 7 feed groups, got %d", len(cfg.FeedGroups))
	}
	if cfg.ScheduleURL == "" || cfg.CacheDir == "" {
		t.Error("Expected schedule URL and cache dir defaults")
	}
}

func TestLoadDefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.FeedTimeout() != 10*time.Second {
		t.Errorf("Expected 10s feed timeout, got %v", cfg.FeedTimeout())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "port: 9090\n" +
		"feed_api_key: test-key\n" +
		"feed_ttl_seconds: 15\n" +
		"cache_dir: /tmp/subway-test\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.FeedAPIKey != "test-key" {
		t.Errorf("Expected file API key, got %q", cfg.FeedAPIKey)
	}
	if cfg.FeedTTL() != 15*time.Second {
		t.Errorf("Expected 15s TTL, got %v", cfg.FeedTTL())
	}
	// Settings absent from the file keep their defaults.
	if cfg.ScheduleURL == "" || len(cfg.FeedGroups) != 7 {
		t.Error("Expected untouched defaults for omitted settings")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SUBWAY_PORT", "7070")
	t.Setenv("MTA_API_KEY", "env-key")
	t.Setenv("SUBWAY_FEED_TTL_SECONDS", "45")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Expected env port 7070, got %d", cfg.Port)
	}
	if cfg.FeedAPIKey != "env-key" {
		t.Errorf("Expected env API key, got %q", cfg.FeedAPIKey)
	}
	if cfg.FeedTTLSeconds != 45 {
		t.Errorf("Expected env TTL 45, got %d", cfg.FeedTTLSeconds)
	}
}

func TestLoadEnvPrecedenceOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("port: 9090\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SUBWAY_PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Expected env to win over file, got %d", cfg.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port out of range", "port: 99999\n"},
		{"bad feed URL", "feed_groups:\n  ACE: not-a-url\n"},
		{"malformed yaml", "port: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLineFeeds(t *testing.T) {
	cfg := Default()
	feeds := cfg.LineFeeds()

	for _, line := range []string{"1", "7", "S", "A", "L", "G", "N"} {
		if feeds[line] == "" {
			t.Errorf("Expected a feed URL for line %s", line)
		}
	}
	if feeds["1"] != feeds["7"] {
		t.Error("Lines in the same group must share a URL")
	}
	if feeds["A"] == feeds["L"] {
		t.Error("Lines in different groups must not share a URL")
	}
}
