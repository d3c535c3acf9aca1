package api

type ArticleResponse struct {
	ID            int64    `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Date          string   `json:"date"`
	Source        string   `json:"source"`
	Categories    []string `json:"categories"`
	Tags          []string `json:"tags"`
	Author        *string  `json:"author"`
	Priority      int      `json:"priority"`
	QualityScore  float64  `json:"quality_score"`
	TrendingScore float64  `json:"trending_score"`
}

type PageResponse struct {
	Articles    []ArticleResponse `json:"articles"`
	Total       int               `json:"total"`
	Page        int               `json:"page"`
	Limit       int               `json:"limit"`
	TotalPages  int               `json:"total_pages"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
}

type StatsResponse struct {
	TotalArticles        int            `json:"total_articles"`
	RecentArticles7Days  int            `json:"recent_articles_7_days"`
	TotalSources         int            `json:"total_sources"`
	TotalCategories      int            `json:"total_categories"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	LastUpdated          string         `json:"last_updated"`
}
