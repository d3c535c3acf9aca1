// Package query turns client filter parameters into paginated, normalized
// result sets.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"healthfeed/internal/model"
	"healthfeed/internal/store"
	"healthfeed/internal/urlcheck"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Engine compiles filters into store queries and normalizes rows for
// display.
type Engine struct {
	store store.Store
	log   *slog.Logger
	stats *StatsCache
}

// New creates an Engine over the given store.
func New(s store.Store, log *slog.Logger) *Engine {
	return &Engine{
		store: s,
		log:   log,
		stats: NewStatsCache(5 * time.Minute),
	}
}

// Query runs a filtered, paginated read. Malformed filter values degrade
// to an empty page with sane metadata; the read path never errors out to
// the caller over bad input.
func (e *Engine) Query(ctx context.Context, f model.Filters, page, limit int, sort model.SortOrder) (model.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if sort != model.SortAsc {
		sort = model.SortDesc
	}

	sel, ok := e.compile(f, page, limit, sort)
	if !ok {
		return emptyPage(page, limit), nil
	}

	articles, total, err := e.store.Select(ctx, sel)
	if err != nil {
		return model.Page{}, fmt.Errorf("select articles: %w", err)
	}

	normalized := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		row, keep := e.normalize(a)
		if keep {
			normalized = append(normalized, row)
		}
	}

	totalPages := (total + limit - 1) / limit
	return model.Page{
		Articles:    normalized,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, nil
}

// GetByIDs fetches specific articles, normalized the same way as query
// results.
func (e *Engine) GetByIDs(ctx context.Context, ids []int64) ([]model.Article, error) {
	articles, err := e.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get by ids: %w", err)
	}
	normalized := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if row, keep := e.normalize(a); keep {
			normalized = append(normalized, row)
		}
	}
	return normalized, nil
}

func (e *Engine) compile(f model.Filters, page, limit int, sort model.SortOrder) (store.Selection, bool) {
	sel := store.Selection{
		Search:   strings.TrimSpace(f.SearchText),
		Category: strings.ToLower(strings.TrimSpace(f.Category)),
		Sort:     sort,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if f.Tag != "" {
		sel.TagTerms = ExpandTag(f.Tag)
	}
	if f.Subcategory != "" {
		sel.SubcategoryTerms = ExpandTag(f.Subcategory)
	}

	var ok bool
	if sel.StartDate, ok = normalizeDateBound(f.StartDate, false); !ok {
		return sel, false
	}
	if sel.EndDate, ok = normalizeDateBound(f.EndDate, true); !ok {
		return sel, false
	}
	return sel, true
}

// normalizeDateBound accepts YYYY-MM-DD or RFC3339 bounds and rewrites
// them to the stored timestamp form so string comparison is correct.
func normalizeDateBound(raw string, endOfDay bool) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.UTC().Format("2006-01-02T15:04:05Z"), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format("2006-01-02T15:04:05Z"), true
	}
	return "", false
}

func emptyPage(page, limit int) model.Page {
	return model.Page{
		Articles:    []model.Article{},
		Page:        page,
		Limit:       limit,
		HasPrevious: page > 1,
	}
}

// Stored summaries that mean "no summary".
var placeholderSummaries = map[string]bool{
	"":                    true,
	"null":                true,
	"recent developments": true,
	"health news":         true,
	"breaking news":       true,
}

var (
	sourceParenRe  = regexp.MustCompile(`\(Source:[^)]*\)`)
	sourceClauseRe = regexp.MustCompile(`Source:[^.]*(\.|$)`)
	fromParenRe    = regexp.MustCompile(`\(From:[^)]*\)`)
	fromClauseRe   = regexp.MustCompile(`From:[^.]*(\.|$)`)
)

// normalize applies the post-read fixups in a fixed order. The second
// return value is false when the row must be dropped because its URL no
// longer passes the format check.
func (e *Engine) normalize(a model.Article) (model.Article, bool) {
	if strings.TrimSpace(a.Source) == "" {
		a.Source = defaultSource(a.Categories)
	}

	if ok, _ := urlcheck.CheckFormat(a.URL); !ok {
		e.log.Warn("dropping article with invalid stored url", "id", a.ID, "url", a.URL)
		return a, false
	}

	if strings.TrimSpace(a.Title) == "" {
		a.Title = "Untitled"
	}
	a.Author = strings.TrimSpace(a.Author)

	a.Summary = normalizeSummary(a.Summary, a.Title)
	a.Categories = displayLabels(a.Categories)
	a.Tags = displayLabels(a.Tags)

	if a.Date.IsZero() {
		a.Date = time.Now().UTC()
	}
	return a, true
}

func defaultSource(categories []string) string {
	if len(categories) > 0 {
		switch c := strings.ToLower(categories[0]); c {
		case "news", "diseases", "solutions", "food":
			return strings.ToUpper(c[:1]) + c[1:] + " Information"
		}
	}
	return "Health Information Source"
}

// FallbackSummary derives a display summary from the title. The
// derivation is deterministic and idempotent: feeding a fallback summary
// back through normalization yields the same string.
func FallbackSummary(title string) string {
	if len(title) > 100 {
		return truncateTitle(title, 100)
	}
	return title + " - Health article summary."
}

func truncateTitle(title string, n int) string {
	cut := n - 3
	for cut > 0 && title[cut]&0xC0 == 0x80 {
		cut--
	}
	return title[:cut] + "..."
}

func normalizeSummary(summary, title string) string {
	trimmed := strings.TrimSpace(summary)
	if isPlaceholderSummary(trimmed, title) {
		return FallbackSummary(title)
	}

	cleaned := sourceParenRe.ReplaceAllString(trimmed, "")
	cleaned = sourceClauseRe.ReplaceAllString(cleaned, "")
	cleaned = fromParenRe.ReplaceAllString(cleaned, "")
	cleaned = fromClauseRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return FallbackSummary(title)
	}
	if !strings.HasSuffix(cleaned, ".") && !strings.HasSuffix(cleaned, "!") &&
		!strings.HasSuffix(cleaned, "?") && !strings.HasSuffix(cleaned, "...") {
		cleaned += "."
	}
	return cleaned
}

func isPlaceholderSummary(summary, title string) bool {
	lower := strings.ToLower(summary)
	if placeholderSummaries[lower] {
		return true
	}
	// A stored fallback is recognized as already derived; regenerating it
	// from the same title produces the identical string, so treating it
	// as absent keeps the derivation idempotent.
	return strings.Contains(lower, "health article summary") ||
		(len(title) > 100 && summary == truncateTitle(title, 100))
}

func displayLabels(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = strings.ReplaceAll(label, "_", " ")
	}
	return out
}
