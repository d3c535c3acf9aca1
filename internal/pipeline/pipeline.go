// Package pipeline wires feed parsing, URL admission, classification, and
// persistence into the ingestion entry point.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"healthfeed/internal/classify"
	"healthfeed/internal/feed"
	"healthfeed/internal/model"
	"healthfeed/internal/store"
	"healthfeed/internal/urlcheck"
)

// Pipeline runs the ingest chain for configured sources.
type Pipeline struct {
	fetcher    *feed.Fetcher
	validator  urlcheck.UrlValidator
	classifier *classify.Classifier
	store      store.Store
	log        *slog.Logger
	// workers bounds how many sources run in parallel during IngestAll.
	workers      int
	fetchTimeout time.Duration
}

// Options configure optional pipeline collaborators.
type Options struct {
	Client     feed.HTTPClient
	Validator  urlcheck.UrlValidator
	Classifier *classify.Classifier
	Workers    int
}

// New creates a Pipeline. Zero-value options fall back to a default HTTP
// client, the real validator, and the built-in taxonomy.
func New(s store.Store, log *slog.Logger, opts Options) *Pipeline {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	validator := opts.Validator
	if validator == nil {
		validator = urlcheck.New(nil, true, log)
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = classify.New(nil)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}
	return &Pipeline{
		fetcher:      feed.NewFetcher(client),
		validator:    validator,
		classifier:   classifier,
		store:        s,
		log:          log,
		workers:      workers,
		fetchTimeout: 30 * time.Second,
	}
}

// Ingest fetches one source and runs parse, validate, classify, upsert
// over its entries. A source that cannot be fetched or parsed yields a
// zero result and an error; entry-level rejections are not errors.
func (p *Pipeline) Ingest(ctx context.Context, src model.SourceDescriptor) (model.IngestResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.fetchTimeout)
	defer cancel()

	raw, err := p.fetcher.Fetch(fetchCtx, src.FeedURL)
	if err != nil {
		return model.IngestResult{}, err
	}

	entries, err := feed.Parse(raw, src.Name)
	if err != nil {
		if errors.Is(err, feed.ErrMalformed) {
			p.log.Warn("malformed feed, skipping", "source", src.Name, "error", err)
			return model.IngestResult{}, nil
		}
		return model.IngestResult{}, err
	}

	scraped := len(entries)
	admitted := p.validator.ValidateBatch(ctx, entries)

	saved := 0
	for _, entry := range admitted {
		if ctx.Err() != nil {
			break
		}
		article := p.buildArticle(entry, src)
		inserted, err := p.store.Upsert(ctx, &article)
		if err != nil {
			p.log.Error("upsert article", "source", src.Name, "url", entry.Link, "error", err)
			continue
		}
		if inserted {
			saved++
		}
	}

	return model.IngestResult{Scraped: scraped, Saved: saved}, nil
}

func (p *Pipeline) buildArticle(entry model.RawEntry, src model.SourceDescriptor) model.Article {
	cls := p.classifier.Classify(entry.Title, entry.Description, src.CategoryHint, src.TrustTier)

	return model.Article{
		URL:           entry.Link,
		Title:         entry.Title,
		Summary:       entry.Description,
		Date:          entry.PublishedAt,
		Source:        entry.SourceName,
		Categories:    cls.Categories,
		Tags:          cls.Tags,
		Author:        entry.Author,
		Priority:      src.TrustTier,
		QualityScore:  cls.QualityScore,
		TrendingScore: cls.Trending,
		Accessible:    true,
	}
}

// IngestAll runs every source with bounded concurrency. A failing source
// is logged and skipped; it never aborts the remaining sources.
func (p *Pipeline) IngestAll(ctx context.Context, sources []model.SourceDescriptor) model.IngestResult {
	var (
		g, gctx = errgroup.WithContext(ctx)
		results = make([]model.IngestResult, len(sources))
	)
	g.SetLimit(p.workers)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := p.Ingest(gctx, src)
			if err != nil {
				p.log.Error("ingest source", "source", src.Name, "url", src.FeedURL, "error", err)
				return nil
			}
			results[i] = res
			p.log.Info("ingested source", "source", src.Name, "scraped", res.Scraped, "saved", res.Saved)
			return nil
		})
	}
	_ = g.Wait()

	var total model.IngestResult
	for _, res := range results {
		total.Scraped += res.Scraped
		total.Saved += res.Saved
	}
	return total
}

// Cleanup purges stored rows whose URL no longer passes the format check.
// This is the explicit maintenance operation; ingestion itself never
// deletes.
func (p *Pipeline) Cleanup(ctx context.Context) (int, error) {
	return p.store.PurgeInvalid(ctx, func(url string) bool {
		ok, _ := urlcheck.CheckFormat(url)
		return ok
	})
}
