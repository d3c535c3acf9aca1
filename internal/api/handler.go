// Package api exposes the query engine over HTTP. Handlers only parse
// parameters and serialize results; all filtering and normalization
// decisions live in the query engine.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"healthfeed/internal/model"
	"healthfeed/internal/query"
)

// Engine is the slice of the query engine the handlers need.
type Engine interface {
	Query(ctx context.Context, f model.Filters, page, limit int, sort model.SortOrder) (model.Page, error)
	Stats(ctx context.Context) (query.Stats, error)
	Tags(ctx context.Context) ([]string, error)
	CategoryCounts(ctx context.Context) (map[string]int, error)
}

type Handler struct {
	engine Engine
	log    *slog.Logger
}

func NewHandler(engine Engine, log *slog.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

// Register mounts all routes on the router. Static segments win over the
// category/subcategory parameter route.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.List)
	r.GET("/search", h.Search)
	r.GET("/category/:category", h.ByCategory)
	r.GET("/tag/:tag", h.ByTag)
	r.GET("/categories", h.Categories)
	r.GET("/tags", h.Tags)
	r.GET("/stats", h.Stats)
	r.GET("/health", h.Health)
	r.GET("/:category/:subcategory", h.BySubcategory)
}

func (h *Handler) List(c *gin.Context) {
	h.respondPage(c, model.Filters{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	})
}

func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}
	h.respondPage(c, model.Filters{
		SearchText: q,
		Category:   c.Query("category"),
		Tag:        c.Query("tag"),
		StartDate:  c.Query("start_date"),
		EndDate:    c.Query("end_date"),
	})
}

func (h *Handler) ByCategory(c *gin.Context) {
	h.respondPage(c, model.Filters{
		Category:  c.Param("category"),
		Tag:       c.Query("tag"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	})
}

func (h *Handler) ByTag(c *gin.Context) {
	h.respondPage(c, model.Filters{
		Tag:       c.Param("tag"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	})
}

func (h *Handler) BySubcategory(c *gin.Context) {
	h.respondPage(c, model.Filters{
		Category:    c.Param("category"),
		Subcategory: c.Param("subcategory"),
		StartDate:   c.Query("start_date"),
		EndDate:     c.Query("end_date"),
	})
}

func (h *Handler) Categories(c *gin.Context) {
	counts, err := h.engine.CategoryCounts(c.Request.Context())
	if err != nil {
		h.log.Error("fetch category counts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": counts})
}

func (h *Handler) Tags(c *gin.Context) {
	tags, err := h.engine.Tags(c.Request.Context())
	if err != nil {
		h.log.Error("fetch tags", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.engine.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("fetch stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, StatsResponse{
		TotalArticles:        stats.TotalArticles,
		RecentArticles7Days:  stats.RecentArticles7Days,
		TotalSources:         stats.TotalSources,
		TotalCategories:      stats.TotalCategories,
		CategoryDistribution: stats.CategoryDistribution,
		LastUpdated:          stats.LastUpdated.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Health(c *gin.Context) {
	if _, err := h.engine.Stats(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

func (h *Handler) respondPage(c *gin.Context, f model.Filters) {
	page := getQueryInt(c, "page", 1)
	limit := getQueryInt(c, "limit", 0)
	sort := model.SortDesc
	if strings.EqualFold(c.Query("sort"), "asc") {
		sort = model.SortAsc
	}

	result, err := h.engine.Query(c.Request.Context(), f, page, limit, sort)
	if err != nil {
		h.log.Error("query articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, toPageResponse(result))
}

func toPageResponse(p model.Page) PageResponse {
	articles := make([]ArticleResponse, 0, len(p.Articles))
	for _, a := range p.Articles {
		articles = append(articles, toArticleResponse(a))
	}
	return PageResponse{
		Articles:    articles,
		Total:       p.Total,
		Page:        p.Page,
		Limit:       p.Limit,
		TotalPages:  p.TotalPages,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
}

func toArticleResponse(a model.Article) ArticleResponse {
	var author *string
	if a.Author != "" {
		author = &a.Author
	}
	return ArticleResponse{
		ID:            a.ID,
		URL:           a.URL,
		Title:         a.Title,
		Summary:       a.Summary,
		Date:          a.Date.UTC().Format(time.RFC3339),
		Source:        a.Source,
		Categories:    a.Categories,
		Tags:          a.Tags,
		Author:        author,
		Priority:      a.Priority,
		QualityScore:  a.QualityScore,
		TrendingScore: a.TrendingScore,
	}
}

func getQueryInt(c *gin.Context, name string, defaultValue int) int {
	raw := c.Query(name)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}
