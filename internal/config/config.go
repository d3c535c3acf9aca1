// Package config handles application configuration from environment
// variables and the YAML sources file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"healthfeed/internal/model"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath   string
	SourcesPath    string
	TaxonomyPath   string
	LogLevel       string
	ListenAddr     string
	IngestInterval time.Duration
	// IngestWorkers bounds how many sources are processed in parallel.
	IngestWorkers int
	// ValidateURLs selects the real URL validator; when false an
	// always-admit validator is used instead.
	ValidateURLs bool
	// CheckReachability enables the network probe for untrusted domains.
	CheckReachability bool

	TelegramBotToken string
	TelegramChatID   int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		return nil, fmt.Errorf("DATABASE_PATH is required")
	}

	cfg := &Config{
		DatabasePath:      dbPath,
		SourcesPath:       envDefault("SOURCES_PATH", "./config/sources.yml"),
		TaxonomyPath:      os.Getenv("TAXONOMY_PATH"),
		LogLevel:          envDefault("LOG_LEVEL", "info"),
		ListenAddr:        envDefault("LISTEN_ADDR", ":8000"),
		IngestInterval:    4 * time.Hour,
		IngestWorkers:     4,
		ValidateURLs:      true,
		CheckReachability: true,
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if raw := os.Getenv("INGEST_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid INGEST_INTERVAL %q: %w", raw, err)
		}
		cfg.IngestInterval = d
	}
	if raw := os.Getenv("INGEST_WORKERS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid INGEST_WORKERS %q", raw)
		}
		cfg.IngestWorkers = n
	}
	if raw := os.Getenv("VALIDATE_URLS"); raw != "" {
		cfg.ValidateURLs = raw != "0" && raw != "false"
	}
	if raw := os.Getenv("CHECK_REACHABILITY"); raw != "" {
		cfg.CheckReachability = raw != "0" && raw != "false"
	}
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = id
	}

	return cfg, nil
}

// sourcesFile is the on-disk shape of the sources config.
type sourcesFile struct {
	Sources []model.SourceDescriptor `yaml:"sources"`
}

// LoadSources reads the YAML sources file and returns the descriptors.
// Sources without a name or feed URL are rejected; a missing trust tier
// defaults to 1.
func LoadSources(path string) ([]model.SourceDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	for i := range f.Sources {
		s := &f.Sources[i]
		if s.Name == "" || s.FeedURL == "" {
			return nil, fmt.Errorf("source %d: name and feedUrl are required", i)
		}
		if s.TrustTier < 1 {
			s.TrustTier = 1
		}
		if s.TrustTier > 4 {
			s.TrustTier = 4
		}
	}
	return f.Sources, nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
