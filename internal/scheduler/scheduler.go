// Package scheduler drives periodic ingestion runs and daily maintenance.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"healthfeed/internal/model"
	"healthfeed/internal/pipeline"
)

// Notifier receives a summary after each ingestion run.
type Notifier interface {
	NotifyRun(result model.IngestResult, took time.Duration)
}

// Scheduler periodically ingests all configured sources and once a day
// purges rows whose URLs have gone invalid.
type Scheduler struct {
	pipeline *pipeline.Pipeline
	sources  []model.SourceDescriptor
	notifier Notifier
	log      *slog.Logger
	tick     time.Duration

	onRun func()
}

// New creates a Scheduler. notifier may be nil.
func New(p *pipeline.Pipeline, sources []model.SourceDescriptor, notifier Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		pipeline: p,
		sources:  sources,
		notifier: notifier,
		log:      log,
		tick:     4 * time.Hour,
	}
}

// SetTickInterval overrides the default 4-hour ingestion interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// OnRun registers a callback invoked after every ingestion run, e.g. to
// invalidate cached statistics.
func (s *Scheduler) OnRun(fn func()) {
	s.onRun = fn
}

// Run starts the scheduler loop, blocking until ctx is cancelled. An
// ingestion run happens immediately, then on every tick; cleanup runs
// once per day.
func (s *Scheduler) Run(ctx context.Context) {
	s.ingest(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	cleanup := time.NewTicker(24 * time.Hour)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ingest(ctx)
		case <-cleanup.C:
			s.cleanup(ctx)
		}
	}
}

func (s *Scheduler) ingest(ctx context.Context) {
	start := time.Now()
	result := s.pipeline.IngestAll(ctx, s.sources)
	took := time.Since(start)

	s.log.Info("ingestion run finished",
		"sources", len(s.sources),
		"scraped", result.Scraped,
		"saved", result.Saved,
		"took", took.Round(time.Millisecond))

	if s.onRun != nil {
		s.onRun()
	}
	if s.notifier != nil {
		s.notifier.NotifyRun(result, took)
	}
}

func (s *Scheduler) cleanup(ctx context.Context) {
	removed, err := s.pipeline.Cleanup(ctx)
	if err != nil {
		s.log.Error("cleanup invalid urls", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("removed articles with invalid urls", "count", removed)
		if s.onRun != nil {
			s.onRun()
		}
	}
}
