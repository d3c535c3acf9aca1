package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"healthfeed/internal/classify"
	"healthfeed/internal/config"
	"healthfeed/internal/notify"
	"healthfeed/internal/pipeline"
	"healthfeed/internal/scheduler"
	"healthfeed/internal/store"
	"healthfeed/internal/urlcheck"
)

func main() {
	once := flag.Bool("once", false, "run a single ingestion pass and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		log.Error("load sources", "path", cfg.SourcesPath, "error", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		log.Error("no sources configured", "path", cfg.SourcesPath)
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	st, err := store.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	taxonomy := classify.DefaultTaxonomy()
	if cfg.TaxonomyPath != "" {
		taxonomy, err = classify.LoadTaxonomy(cfg.TaxonomyPath)
		if err != nil {
			log.Error("load taxonomy", "path", cfg.TaxonomyPath, "error", err)
			os.Exit(1)
		}
	}

	var validator urlcheck.UrlValidator = urlcheck.New(nil, cfg.CheckReachability, log)
	if !cfg.ValidateURLs {
		validator = urlcheck.AlwaysAdmit{}
	}

	pipe := pipeline.New(st, log, pipeline.Options{
		Validator:  validator,
		Classifier: classify.New(taxonomy),
		Workers:    cfg.IngestWorkers,
	})

	notifier, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log)
	if err != nil {
		log.Error("create telegram notifier", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		result := pipe.IngestAll(ctx, sources)
		log.Info("single ingestion pass finished", "scraped", result.Scraped, "saved", result.Saved)
		return
	}

	sched := scheduler.New(pipe, sources, notifierOrNil(notifier), log)
	sched.SetTickInterval(cfg.IngestInterval)

	log.Info("starting ingestion scheduler", "sources", len(sources), "interval", cfg.IngestInterval)
	sched.Run(ctx)
	log.Info("ingestion stopped")
}

// notifierOrNil avoids storing a typed nil in the Notifier interface when
// Telegram is not configured.
func notifierOrNil(t *notify.Telegram) scheduler.Notifier {
	if t == nil {
		return nil
	}
	return t
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
