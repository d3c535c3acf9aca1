package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"

	"healthfeed/internal/model"
)

// Select runs a compiled read query and returns the requested page plus
// the total match count.
func (s *SQLite) Select(ctx context.Context, sel Selection) ([]model.Article, int, error) {
	where := buildWhere(sel)

	countSQL, countArgs, err := sq.Select("COUNT(*)").From("articles").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	builder := sq.Select(articleColumns).From("articles").Where(where).
		Limit(uint64(sel.Limit)).Offset(uint64(sel.Offset))
	if sel.Sort == model.SortAsc {
		builder = builder.OrderBy("date ASC", "id ASC")
	} else {
		// id is the deterministic tie-break so pagination stays stable
		// when many rows share a timestamp.
		builder = builder.OrderBy("date DESC", "id DESC")
	}

	querySQL, queryArgs, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build select query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, querySQL, queryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	articles, err := scanArticles(rows)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

func buildWhere(sel Selection) sq.And {
	where := sq.And{}

	if sel.Search != "" {
		like := "%" + sel.Search + "%"
		where = append(where, sq.Or{
			sq.Expr("LOWER(title) LIKE LOWER(?)", like),
			sq.Expr("LOWER(summary) LIKE LOWER(?)", like),
			sq.Expr("LOWER(tags) LIKE LOWER(?)", like),
		})
	}
	if sel.Category != "" {
		where = append(where, sq.Expr("LOWER(categories) LIKE LOWER(?)", containsPattern(sel.Category)))
	}
	for _, termSet := range [][]string{sel.TagTerms, sel.SubcategoryTerms} {
		if len(termSet) == 0 {
			continue
		}
		terms := sq.Or{}
		for _, term := range termSet {
			terms = append(terms, sq.Expr("LOWER(tags) LIKE LOWER(?)", containsPattern(term)))
		}
		where = append(where, terms)
	}
	if sel.StartDate != "" {
		where = append(where, sq.GtOrEq{"date": sel.StartDate})
	}
	if sel.EndDate != "" {
		where = append(where, sq.LtOrEq{"date": sel.EndDate})
	}
	if len(where) == 0 {
		where = append(where, sq.Expr("1 = 1"))
	}
	return where
}

// containsPattern matches a quoted element inside the JSON-encoded
// multi-value columns.
func containsPattern(label string) string {
	return `%"` + label + `"%`
}

// CategoryCounts returns per-category article counts, decoding the
// multi-value column so each category of a row contributes.
func (s *SQLite) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT categories, COUNT(*) FROM articles
		 WHERE categories IS NOT NULL AND categories != ''
		 GROUP BY categories`,
	)
	if err != nil {
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var col sql.NullString
		var n int
		if err := rows.Scan(&col, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		for _, category := range DecodeList(col) {
			counts[category] += n
		}
	}
	return counts, rows.Err()
}

// DistinctTags returns the sorted set of all stored tags.
func (s *SQLite) DistinctTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT tags FROM articles
		 WHERE tags IS NOT NULL AND tags != '' AND tags != '[]'`,
	)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[string]bool)
	for rows.Next() {
		var col sql.NullString
		if err := rows.Scan(&col); err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
		for _, tag := range DecodeList(col) {
			seen[tag] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

// Totals returns the headline statistics.
func (s *SQLite) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&t.Articles); err != nil {
		return t, fmt.Errorf("count articles: %w", err)
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7).Format(timeLayout)
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE date > ?`, weekAgo).Scan(&t.Recent7d); err != nil {
		return t, fmt.Errorf("count recent articles: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT source) FROM articles`).Scan(&t.Sources); err != nil {
		return t, fmt.Errorf("count sources: %w", err)
	}
	return t, nil
}
