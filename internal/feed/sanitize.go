package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSummaryLen = 500

// SanitizeHTML strips markup from a feed description and normalizes it for
// storage: tags removed, common entities decoded, whitespace collapsed,
// truncated to 500 characters without cutting through an entity.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}
	return truncateClean(collapseWhitespace(decodeEntities(stripTags(s))), maxSummaryLen)
}

func stripTags(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		// The html5 parser does not fail on text content; keep the raw
		// string if it somehow does.
		return s
	}
	return doc.Text()
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
	"\u00a0", " ",
)

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateClean cuts s to at most n bytes on a rune boundary, backing off
// past any half-written entity at the cut point.
func truncateClean(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	truncated := s[:cut]
	if amp := strings.LastIndexByte(truncated, '&'); amp >= 0 {
		tail := truncated[amp:]
		if !strings.ContainsRune(tail, ';') && len(tail) < 12 {
			truncated = truncated[:amp]
		}
	}
	return strings.TrimSpace(truncated)
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
