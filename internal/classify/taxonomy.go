// Package classify assigns categories, tags, and quality scores to raw
// entries via keyword lookup tables.
package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule binds a keyword list to the labels it produces. A rule may assign a
// category, a tag, or both. Rules are evaluated in order and every match
// contributes; matching is additive, never exclusive.
type Rule struct {
	Category string   `yaml:"category"`
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
}

// Taxonomy is the versioned keyword table shared by the classifier. It is
// constructed explicitly and injected; there is no package-level mutable
// state.
type Taxonomy struct {
	Rules []Rule `yaml:"rules"`

	// DefaultCategory/DefaultTag apply when no rule matches an axis.
	DefaultCategory string `yaml:"defaultCategory"`
	DefaultTag      string `yaml:"defaultTag"`
}

// DefaultTaxonomy returns the built-in health-news keyword tables. The
// breaking-news rule comes first: it short-circuits into news/breaking_news
// while still letting later rules contribute.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		DefaultCategory: "news",
		DefaultTag:      "recent_developments",
		Rules: []Rule{
			{
				Category: "news",
				Tag:      "breaking_news",
				Keywords: []string{"breaking", "urgent", "just in", "alert", "advisory"},
			},
			{
				Category: "diseases",
				Tag:      "medical_conditions",
				Keywords: []string{
					"cancer", "diabetes", "heart disease", "stroke", "alzheimer",
					"parkinson", "arthritis", "asthma", "copd", "kidney disease",
					"hepatitis", "hypertension", "obesity",
				},
			},
			{
				Category: "audience",
				Tag:      "mental_health",
				Keywords: []string{"mental health", "depression", "anxiety", "stress", "ptsd", "therapy"},
			},
			{
				Category: "food",
				Tag:      "nutrition_basics",
				Keywords: []string{
					"nutrition", "diet", "food", "eating", "vitamin", "supplement",
					"protein", "calorie", "weight",
				},
			},
			{
				Category: "solutions",
				Tag:      "medical_treatments",
				Keywords: []string{
					"treatment", "cure", "therapy", "drug", "medication",
					"surgery", "procedure", "clinical trial", "vaccine", "approved",
				},
			},
			{
				Category: "international",
				Tag:      "global_health",
				Keywords: []string{"who", "global", "worldwide", "international", "pandemic", "outbreak"},
			},
			{
				Category: "lifestyle",
				Tag:      "fitness",
				Keywords: []string{"fitness", "exercise", "workout", "lifestyle", "wellness", "yoga"},
			},
			{
				Tag:      "prevention",
				Keywords: []string{"prevention", "prevent", "screening", "reduce risk", "immunization"},
			},
			{
				Tag:      "breakthrough_research",
				Keywords: []string{"study", "research", "clinical", "trial", "findings", "breakthrough"},
			},
			{
				Category: "diseases",
				Tag:      "gut_health",
				Keywords: []string{"gut", "microbiome", "digestive", "probiotic", "ibs"},
			},
			{
				Category: "audience",
				Tag:      "sleep_health",
				Keywords: []string{"sleep", "insomnia", "sleep apnea", "circadian", "melatonin"},
			},
		},
	}
}

// LoadTaxonomy reads a taxonomy override file. Missing defaults fall back
// to the built-in ones.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	var t Taxonomy
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}
	if len(t.Rules) == 0 {
		return nil, fmt.Errorf("taxonomy file %s has no rules", path)
	}
	def := DefaultTaxonomy()
	if t.DefaultCategory == "" {
		t.DefaultCategory = def.DefaultCategory
	}
	if t.DefaultTag == "" {
		t.DefaultTag = def.DefaultTag
	}
	return &t, nil
}
