package query

import (
	"context"
	"testing"

	"healthfeed/internal/store"
)

func TestStatsCached(t *testing.T) {
	f := &fakeStore{
		totals: store.Totals{Articles: 10, Recent7d: 3, Sources: 2},
		counts: map[string]int{"news": 6, "diseases": 4},
	}
	e := newTestEngine(f)
	ctx := context.Background()

	first, err := e.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if first.TotalArticles != 10 || first.TotalCategories != 2 {
		t.Errorf("unexpected stats: %+v", first)
	}

	// A second read within the TTL must come from the cache.
	if _, err := e.Stats(ctx); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if f.totalsCalls != 1 {
		t.Errorf("totals fetched %d times, want 1", f.totalsCalls)
	}

	e.InvalidateStats()
	if _, err := e.Stats(ctx); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if f.totalsCalls != 2 {
		t.Errorf("totals fetched %d times after invalidation, want 2", f.totalsCalls)
	}
}

func TestTagsDisplayForm(t *testing.T) {
	f := &fakeStore{tags: []string{"breaking_news", "sleep_health"}}
	e := newTestEngine(f)

	got, err := e.Tags(context.Background())
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	want := []string{"breaking news", "sleep health"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
