package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"healthfeed/internal/model"
)

func TestLoadRequiresDatabasePath(t *testing.T) {
	t.Setenv("DATABASE_PATH", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_PATH is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/healthfeed.db")
	t.Setenv("SOURCES_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("INGEST_INTERVAL", "")
	t.Setenv("INGEST_WORKERS", "")
	t.Setenv("VALIDATE_URLS", "")
	t.Setenv("CHECK_REACHABILITY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.SourcesPath != "./config/sources.yml" {
		t.Errorf("sources path = %q", cfg.SourcesPath)
	}
	if cfg.LogLevel != "info" || cfg.ListenAddr != ":8000" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.IngestInterval != 4*time.Hour || cfg.IngestWorkers != 4 {
		t.Errorf("unexpected ingest defaults: %+v", cfg)
	}
	if !cfg.ValidateURLs || !cfg.CheckReachability {
		t.Errorf("validation must default on: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/healthfeed.db")
	t.Setenv("INGEST_INTERVAL", "30m")
	t.Setenv("INGEST_WORKERS", "8")
	t.Setenv("VALIDATE_URLS", "false")
	t.Setenv("CHECK_REACHABILITY", "0")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IngestInterval != 30*time.Minute || cfg.IngestWorkers != 8 {
		t.Errorf("unexpected overrides: %+v", cfg)
	}
	if cfg.ValidateURLs || cfg.CheckReachability {
		t.Errorf("expected validation toggles off: %+v", cfg)
	}
	if cfg.TelegramChatID != -100123 {
		t.Errorf("chat id = %d", cfg.TelegramChatID)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/healthfeed.db")

	t.Setenv("INGEST_WORKERS", "zero")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric INGEST_WORKERS")
	}
	t.Setenv("INGEST_WORKERS", "")

	t.Setenv("INGEST_INTERVAL", "often")
	if _, err := Load(); err == nil {
		t.Error("expected error for unparsable INGEST_INTERVAL")
	}
}

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write sources: %v", err)
	}
	return path
}

func TestLoadSources(t *testing.T) {
	path := writeSources(t, `
sources:
  - name: WHO News
    feedUrl: https://www.who.int/rss-feeds/news-english.xml
    categoryHint: international
    trustTier: 4
  - name: Unrated Blog
    feedUrl: https://blog.example-health.net/rss
  - name: Overrated
    feedUrl: https://overrated.health/rss
    trustTier: 9
`)

	got, err := LoadSources(path)
	if err != nil {
		t.Fatalf("load sources: %v", err)
	}

	want := []model.SourceDescriptor{
		{Name: "WHO News", FeedURL: "https://www.who.int/rss-feeds/news-english.xml", CategoryHint: "international", TrustTier: 4},
		{Name: "Unrated Blog", FeedURL: "https://blog.example-health.net/rss", TrustTier: 1},
		{Name: "Overrated", FeedURL: "https://overrated.health/rss", TrustTier: 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSourcesRejectsIncomplete(t *testing.T) {
	path := writeSources(t, `
sources:
  - name: Missing URL
`)
	if _, err := LoadSources(path); err == nil {
		t.Fatal("expected error for source without feedUrl")
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	if _, err := LoadSources(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
