// Package model defines the domain types used across the application.
package model

import "time"

// SourceDescriptor describes a single feed to ingest. Sources come from
// configuration; the pipeline treats every source uniformly.
type SourceDescriptor struct {
	Name         string `yaml:"name"`
	FeedURL      string `yaml:"feedUrl"`
	CategoryHint string `yaml:"categoryHint"`
	// TrustTier weights ranking and quality scoring, 1 (lowest) to 4.
	TrustTier int `yaml:"trustTier"`
}

// RawEntry is a single feed entry as produced by the parser, before
// validation and classification. Only Title and Link are required for the
// entry to be usable.
type RawEntry struct {
	Title       string
	Link        string
	Description string
	Author      string
	SourceName  string
	PublishedAt time.Time
}

// ReasonCode explains a validation outcome.
type ReasonCode string

// Validation reason codes.
const (
	ReasonOK          ReasonCode = "ok"
	ReasonBlacklisted ReasonCode = "blacklisted"
	ReasonMalformed   ReasonCode = "malformed"
	ReasonUnreachable ReasonCode = "unreachable"
	ReasonServerError ReasonCode = "server_error"
	ReasonClientError ReasonCode = "client_error"
)

// ValidationResult is the URL validator's decision for a candidate URL.
type ValidationResult struct {
	Admitted bool
	Trusted  bool
	Reason   ReasonCode
}

// Article is the persisted, normalized record. URL is the identity key:
// the store never holds two rows with the same URL.
type Article struct {
	ID            int64
	URL           string
	Title         string
	Summary       string
	Date          time.Time
	Source        string
	Categories    []string
	Tags          []string
	Author        string
	Priority      int
	QualityScore  float64
	TrendingScore float64
	Accessible    bool
	LastChecked   time.Time
}

// Classification is the classifier's output for one entry.
type Classification struct {
	Categories   []string
	Tags         []string
	QualityScore float64
	Trending     float64
}

// SortOrder selects the date sort direction for queries.
type SortOrder string

// Supported sort orders.
const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// Filters are the client-supplied query constraints. All fields are
// optional and combine conjunctively.
type Filters struct {
	SearchText  string
	Category    string
	Tag         string
	Subcategory string
	StartDate   string
	EndDate     string
}

// Page is the paginated query result, shaped exactly as the HTTP layer
// serializes it.
type Page struct {
	Articles    []Article
	Total       int
	Page        int
	Limit       int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// IngestResult summarizes one ingestion pass over a source.
type IngestResult struct {
	Scraped int
	Saved   int
}
