// Package store defines the persistence interface and its SQLite
// implementation.
package store

import (
	"context"

	"healthfeed/internal/model"
)

// Selection is a compiled read query. Tag and subcategory terms arrive
// already alias-expanded; the terms within each set combine with OR and
// are matched by containment against the encoded tags column, while the
// two sets (and every other field) combine with AND.
type Selection struct {
	Search           string
	Category         string
	TagTerms         []string
	SubcategoryTerms []string
	StartDate        string
	EndDate          string
	Sort             model.SortOrder
	Limit            int
	Offset           int
}

// Totals are the headline database statistics.
type Totals struct {
	Articles int
	Recent7d int
	Sources  int
}

// Store is the interface for all persistence operations.
type Store interface {
	// Upsert inserts the article or, when its URL already exists, merges
	// categories/tags into the existing row and refreshes last_checked.
	// Reports whether a new row was inserted.
	Upsert(ctx context.Context, a *model.Article) (bool, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Article, error)
	// Select returns the matching page of articles plus the total match
	// count before pagination.
	Select(ctx context.Context, sel Selection) ([]model.Article, int, error)

	CategoryCounts(ctx context.Context) (map[string]int, error)
	DistinctTags(ctx context.Context) ([]string, error)
	Totals(ctx context.Context) (Totals, error)

	// PurgeInvalid deletes rows whose URL fails the given check and
	// refreshes last_checked on the rows that pass. Maintenance only;
	// the ingestion path never deletes.
	PurgeInvalid(ctx context.Context, valid func(url string) bool) (int, error)

	Close() error
}
