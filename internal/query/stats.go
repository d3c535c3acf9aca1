package query

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Stats are the aggregate figures exposed by the stats endpoint.
type Stats struct {
	TotalArticles        int
	RecentArticles7Days  int
	TotalSources         int
	TotalCategories      int
	CategoryDistribution map[string]int
	LastUpdated          time.Time
}

// StatsCache memoizes statistics for a TTL. It is constructed explicitly
// and owned by the engine; Invalidate forces a refresh on the next read.
type StatsCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	stats   Stats
	fetched time.Time
}

// NewStatsCache creates a cache with the given TTL.
func NewStatsCache(ttl time.Duration) *StatsCache {
	return &StatsCache{ttl: ttl}
}

// Invalidate drops the cached value.
func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = time.Time{}
}

// Stats returns the cached statistics, refreshing them from the store
// when the TTL has lapsed.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()

	if !e.stats.fetched.IsZero() && time.Since(e.stats.fetched) < e.stats.ttl {
		return e.stats.stats, nil
	}

	totals, err := e.store.Totals(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load totals: %w", err)
	}
	counts, err := e.store.CategoryCounts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load category counts: %w", err)
	}

	e.stats.stats = Stats{
		TotalArticles:        totals.Articles,
		RecentArticles7Days:  totals.Recent7d,
		TotalSources:         totals.Sources,
		TotalCategories:      len(counts),
		CategoryDistribution: counts,
		LastUpdated:          time.Now().UTC(),
	}
	e.stats.fetched = time.Now()
	return e.stats.stats, nil
}

// InvalidateStats exposes cache invalidation to callers that just wrote
// to the store.
func (e *Engine) InvalidateStats() {
	e.stats.Invalidate()
}

// Tags returns the sorted distinct tag list in display form.
func (e *Engine) Tags(ctx context.Context) ([]string, error) {
	tags, err := e.store.DistinctTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	return displayLabels(tags), nil
}

// CategoryCounts returns per-category article counts.
func (e *Engine) CategoryCounts(ctx context.Context) (map[string]int, error) {
	stats, err := e.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return stats.CategoryDistribution, nil
}
