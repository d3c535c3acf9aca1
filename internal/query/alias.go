package query

import "strings"

// TagSynonyms is the hard-coded synonym table. Only these two tags carry
// operational synonym sets; every other tag expands to just its
// space/underscore variants. The asymmetry is deliberate and pinned by
// tests.
var TagSynonyms = map[string][]string{
	"latest": {
		"breaking_news", "recent_developments", "trending", "smartnews_aggregated",
	},
	"lifestyle": {
		"lifestyle_changes", "health_lifestyle", "wellness",
	},
}

// ExpandTag widens a tag filter to the set of storage labels it should
// match: the space form, the underscore form, and any hard-coded synonyms
// (in both forms).
func ExpandTag(tag string) []string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return nil
	}

	var terms []string
	seen := make(map[string]bool)
	add := func(label string) {
		for _, form := range []string{
			strings.ReplaceAll(label, " ", "_"),
			strings.ReplaceAll(label, "_", " "),
		} {
			if !seen[form] {
				seen[form] = true
				terms = append(terms, form)
			}
		}
	}

	add(tag)
	for _, synonym := range TagSynonyms[strings.ReplaceAll(tag, " ", "_")] {
		add(synonym)
	}
	return terms
}
