package classify

import (
	"strings"

	"healthfeed/internal/model"
)

// Classifier matches entries against an injected taxonomy.
type Classifier struct {
	taxonomy *Taxonomy
}

// New creates a Classifier over the given taxonomy; nil means the built-in
// default tables.
func New(t *Taxonomy) *Classifier {
	if t == nil {
		t = DefaultTaxonomy()
	}
	return &Classifier{taxonomy: t}
}

// Institutional source names that raise the quality score.
var institutionalSources = []string{
	"who", "nih", "cdc", "fda", "mayo clinic", "harvard", "pubmed",
	"ministry of health", "health department",
}

var researchWords = []string{"study", "research", "clinical", "trial", "findings"}

// Classify assigns categories and tags to an entry and derives its quality
// and trending scores. Matching is case-insensitive substring containment
// over title and summary combined; all matching rules contribute, and both
// axes fall back to a default label rather than coming back empty.
func (c *Classifier) Classify(title, summary, categoryHint string, priority int) model.Classification {
	text := strings.ToLower(title + " " + summary)

	var categories, tags []string
	breaking := false
	for i, rule := range c.taxonomy.Rules {
		if !matchesAny(text, rule.Keywords) {
			continue
		}
		if i == 0 {
			breaking = true
		}
		if rule.Category != "" {
			categories = appendUnique(categories, rule.Category)
		}
		if rule.Tag != "" {
			tags = appendUnique(tags, rule.Tag)
		}
	}

	if categoryHint != "" {
		categories = appendUnique(categories, normalizeLabel(categoryHint))
	}
	if len(categories) == 0 {
		categories = []string{c.taxonomy.DefaultCategory}
	}
	if len(tags) == 0 {
		tags = []string{c.taxonomy.DefaultTag}
	}

	research := matchesAny(text, researchWords)
	quality := qualityScore(title, text, priority, breaking, research)
	if quality > 0.7 {
		tags = appendUnique(tags, "trending")
	}

	return model.Classification{
		Categories:   categories,
		Tags:         tags,
		QualityScore: quality,
		Trending:     trendingScore(breaking, research, quality),
	}
}

// qualityScore starts at a source-trust base and accumulates fixed
// increments, capped at 1.0.
func qualityScore(title, text string, priority int, breaking, research bool) float64 {
	if priority < 1 {
		priority = 1
	}
	score := float64(priority) * 0.2
	if breaking {
		score += 0.1
	}
	if research {
		score += 0.1
	}
	if matchesAny(text, institutionalSources) {
		score += 0.1
	}
	if n := len(title); n >= 40 && n <= 100 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func trendingScore(breaking, research bool, quality float64) float64 {
	score := 0.0
	if breaking {
		score += 0.4
	}
	if research {
		score += 0.3
	}
	if quality > 0.7 {
		score += 0.3
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, label string) []string {
	for _, existing := range list {
		if existing == label {
			return list
		}
	}
	return append(list, label)
}

func normalizeLabel(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
