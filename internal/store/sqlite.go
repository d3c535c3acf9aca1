package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"healthfeed/internal/model"
	"healthfeed/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Store backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Upsert inserts a new article, or merges into the existing row when the
// URL is already present. The merge unions categories and tags and
// refreshes last_checked. Concurrent writers racing on the same URL are
// handled by retrying the merge path when the insert loses to the unique
// constraint.
func (s *SQLite) Upsert(ctx context.Context, a *model.Article) (bool, error) {
	inserted, err := s.upsertOnce(ctx, a)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
		return s.upsertOnce(ctx, a)
	}
	return inserted, err
}

func (s *SQLite) upsertOnce(ctx context.Context, a *model.Article) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(timeLayout)

	var (
		existingID   int64
		existingCats sql.NullString
		existingTags sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, categories, tags FROM articles WHERE url = ?`, a.URL,
	).Scan(&existingID, &existingCats, &existingTags)

	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO articles (url, title, summary, date, source, categories, tags, author,
			                       priority, quality_score, trending_score, url_accessible, last_checked)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.URL, a.Title, a.Summary, a.Date.UTC().Format(timeLayout), a.Source,
			encodeList(a.Categories), encodeList(a.Tags), a.Author,
			a.Priority, a.QualityScore, a.TrendingScore, boolToInt(a.Accessible), now,
		)
		if err != nil {
			return false, fmt.Errorf("insert article: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		a.ID = id
		a.LastChecked, _ = time.Parse(timeLayout, now)
		return true, tx.Commit()

	case err != nil:
		return false, fmt.Errorf("lookup url: %w", err)
	}

	mergedCats := unionLists(DecodeList(existingCats), a.Categories)
	mergedTags := unionLists(DecodeList(existingTags), a.Tags)

	_, err = tx.ExecContext(ctx,
		`UPDATE articles
		 SET categories = ?, tags = ?, quality_score = ?, trending_score = ?,
		     url_accessible = ?, last_checked = ?
		 WHERE id = ?`,
		encodeList(mergedCats), encodeList(mergedTags),
		a.QualityScore, a.TrendingScore, boolToInt(a.Accessible), now, existingID,
	)
	if err != nil {
		return false, fmt.Errorf("merge article: %w", err)
	}

	a.ID = existingID
	a.Categories = mergedCats
	a.Tags = mergedTags
	a.LastChecked, _ = time.Parse(timeLayout, now)
	return false, tx.Commit()
}

const articleColumns = `id, url, title, summary, date, source, categories, tags, author,
	priority, quality_score, trending_score, url_accessible, last_checked`

// GetByIDs returns the articles with the given ids, newest first.
func (s *SQLite) GetByIDs(ctx context.Context, ids []int64) ([]model.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id IN (`+placeholders+`) ORDER BY date DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanArticles(rows)
}

// PurgeInvalid removes rows whose URL fails the validity check and stamps
// last_checked on the survivors.
func (s *SQLite) PurgeInvalid(ctx context.Context, valid func(url string) bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, url FROM articles`)
	if err != nil {
		return 0, fmt.Errorf("query urls: %w", err)
	}

	var invalidIDs, validIDs []int64
	for rows.Next() {
		var id int64
		var url sql.NullString
		if err := rows.Scan(&id, &url); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan url: %w", err)
		}
		if url.Valid && valid(url.String) {
			validIDs = append(validIDs, id)
		} else {
			invalidIDs = append(invalidIDs, id)
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, fmt.Errorf("iterate urls: %w", err)
	}
	_ = rows.Close()

	now := time.Now().UTC().Format(timeLayout)
	for _, id := range invalidIDs {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("delete article %d: %w", id, err)
		}
	}
	for _, id := range validIDs {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE articles SET url_accessible = 1, last_checked = ? WHERE id = ?`, now, id); err != nil {
			return 0, fmt.Errorf("stamp article %d: %w", id, err)
		}
	}
	return len(invalidIDs), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encodeList writes the canonical multi-value encoding: a JSON array.
// Historical rows may hold other shapes; see DecodeList.
func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// DecodeList tolerates the three historical encodings of the
// categories/tags columns: a JSON array, a single bare string (one-element
// list), or null/empty (empty list). New writes always produce the first.
func DecodeList(col sql.NullString) []string {
	if !col.Valid {
		return nil
	}
	raw := strings.TrimSpace(col.String)
	if raw == "" || raw == "NULL" || raw == "[]" {
		return nil
	}
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list
		}
		return nil
	}
	return []string{raw}
}

func unionLists(base, extra []string) []string {
	merged := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			merged = append(merged, v)
		}
	}
	return merged
}

type scannable interface {
	Scan(dest ...any) error
}

func scanArticle(row scannable) (model.Article, error) {
	var (
		a                       model.Article
		summary, source, author sql.NullString
		dateStr                 string
		cats, tags, lastChecked sql.NullString
		accessible              int
	)
	err := row.Scan(&a.ID, &a.URL, &a.Title, &summary, &dateStr, &source, &cats, &tags,
		&author, &a.Priority, &a.QualityScore, &a.TrendingScore, &accessible, &lastChecked)
	if err != nil {
		return a, fmt.Errorf("scan article: %w", err)
	}

	a.Summary = summary.String
	a.Source = source.String
	a.Author = author.String
	a.Categories = DecodeList(cats)
	a.Tags = DecodeList(tags)
	a.Accessible = accessible == 1
	a.Date = parseStoredTime(dateStr)
	if lastChecked.Valid {
		a.LastChecked = parseStoredTime(lastChecked.String)
	}
	return a, nil
}

// parseStoredTime reads a stored timestamp; rows written by older passes
// may carry offsets or date-only values.
func parseStoredTime(raw string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

func scanArticles(rows *sql.Rows) ([]model.Article, error) {
	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
