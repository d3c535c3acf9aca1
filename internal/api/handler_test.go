package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthfeed/internal/model"
	"healthfeed/internal/query"
)

type fakeEngine struct {
	page   model.Page
	stats  query.Stats
	tags   []string
	counts map[string]int
	err    error

	lastFilters model.Filters
	lastPage    int
	lastLimit   int
	lastSort    model.SortOrder
}

func (f *fakeEngine) Query(_ context.Context, filters model.Filters, page, limit int, sort model.SortOrder) (model.Page, error) {
	f.lastFilters = filters
	f.lastPage = page
	f.lastLimit = limit
	f.lastSort = sort
	return f.page, f.err
}

func (f *fakeEngine) Stats(_ context.Context) (query.Stats, error) {
	return f.stats, f.err
}

func (f *fakeEngine) Tags(_ context.Context) ([]string, error) {
	return f.tags, f.err
}

func (f *fakeEngine) CategoryCounts(_ context.Context) (map[string]int, error) {
	return f.counts, f.err
}

func newTestRouter(engine Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(engine, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Register(r)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func samplePage() model.Page {
	return model.Page{
		Articles: []model.Article{
			{
				ID:            1,
				URL:           "https://www.fda.gov/news/1",
				Title:         "Breaking: New Diabetes Drug Approved",
				Summary:       "Approved after a clinical trial.",
				Date:          time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
				Source:        "FDA",
				Categories:    []string{"news", "diseases"},
				Tags:          []string{"breaking news"},
				Priority:      4,
				QualityScore:  1.0,
				TrendingScore: 1.0,
			},
		},
		Total: 1, Page: 1, Limit: 20, TotalPages: 1,
	}
}

func TestListSerializesPage(t *testing.T) {
	engine := &fakeEngine{page: samplePage()}
	r := newTestRouter(engine)

	w := get(r, "/?page=2&limit=5&sort=asc")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 2, engine.lastPage)
	assert.Equal(t, 5, engine.lastLimit)
	assert.Equal(t, model.SortAsc, engine.lastSort)

	var res PageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "Breaking: New Diabetes Drug Approved", res.Articles[0].Title)
	assert.Equal(t, "2025-06-02T10:30:00Z", res.Articles[0].Date)
	assert.Nil(t, res.Articles[0].Author, "blank author serializes as null")
	assert.Equal(t, 1, res.Total)
}

func TestSearchRequiresQuery(t *testing.T) {
	r := newTestRouter(&fakeEngine{})

	w := get(r, "/search")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchPassesFilters(t *testing.T) {
	engine := &fakeEngine{page: samplePage()}
	r := newTestRouter(engine)

	w := get(r, "/search?q=diabetes&category=news&tag=latest&start_date=2025-06-01")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "diabetes", engine.lastFilters.SearchText)
	assert.Equal(t, "news", engine.lastFilters.Category)
	assert.Equal(t, "latest", engine.lastFilters.Tag)
	assert.Equal(t, "2025-06-01", engine.lastFilters.StartDate)
}

func TestCategoryAndSubcategoryRoutes(t *testing.T) {
	engine := &fakeEngine{page: samplePage()}
	r := newTestRouter(engine)

	w := get(r, "/category/diseases")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "diseases", engine.lastFilters.Category)
	assert.Empty(t, engine.lastFilters.Subcategory)

	w = get(r, "/diseases/gut_health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "diseases", engine.lastFilters.Category)
	assert.Equal(t, "gut_health", engine.lastFilters.Subcategory)

	w = get(r, "/tag/sleep%20health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sleep health", engine.lastFilters.Tag)
}

func TestStatsEndpoint(t *testing.T) {
	engine := &fakeEngine{stats: query.Stats{
		TotalArticles:        42,
		RecentArticles7Days:  7,
		TotalSources:         5,
		TotalCategories:      3,
		CategoryDistribution: map[string]int{"news": 30, "diseases": 12},
		LastUpdated:          time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC),
	}}
	r := newTestRouter(engine)

	w := get(r, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var res StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 42, res.TotalArticles)
	assert.Equal(t, 3, res.TotalCategories)
	assert.Equal(t, "2025-06-03T09:00:00Z", res.LastUpdated)
}

func TestTagsEndpoint(t *testing.T) {
	engine := &fakeEngine{tags: []string{"breaking news", "sleep health"}}
	r := newTestRouter(engine)

	w := get(r, "/tags")
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"breaking news", "sleep health"}, res["tags"])
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(&fakeEngine{})
	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	r = newTestRouter(&fakeEngine{err: errors.New("db down")})
	w = get(r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDatabaseErrorsAreOpaque(t *testing.T) {
	r := newTestRouter(&fakeEngine{err: errors.New("sqlite: locked")})

	w := get(r, "/")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "sqlite", "internal details must not leak")
}
