// Package feed handles downloading and parsing of RSS/Atom sources into
// raw entries.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/mmcdole/gofeed"

	"healthfeed/internal/model"
)

// ErrMalformed signals that a document could not be parsed as any known
// feed format. Callers treat it as zero entries, not as a fatal error.
var ErrMalformed = errors.New("malformed feed document")

const maxFeedBytes = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads raw feed documents.
type Fetcher struct {
	client HTTPClient
}

// NewFetcher creates a Fetcher with the given HTTP client.
func NewFetcher(client HTTPClient) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads a feed document from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "HealthFeedBot/1.0")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Entities the XML parser understands; every other ampersand gets escaped
// before parsing so feeds with bare ampersands still go through.
var knownEntity = regexp.MustCompile(`&(?:(amp|lt|gt|quot|apos|#[0-9]{1,7}|#x[0-9a-fA-F]{1,6});)?`)

func escapeBareAmpersands(data []byte) []byte {
	return knownEntity.ReplaceAllFunc(data, func(m []byte) []byte {
		if len(m) == 1 {
			return []byte("&amp;")
		}
		return m
	})
}

// Parse turns a raw feed document into raw entries. RSS 2.0 and Atom are
// supported; an unrecognized document yields no entries and ErrMalformed.
// Entries missing a title or a link are dropped.
func Parse(data []byte, sourceName string) ([]model.RawEntry, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(escapeBareAmpersands(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	now := time.Now().UTC()
	entries := make([]model.RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := collapseWhitespace(item.Title)
		link := entryLink(item)
		if title == "" || link == "" {
			continue
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}

		entries = append(entries, model.RawEntry{
			Title:       title,
			Link:        link,
			Description: SanitizeHTML(desc),
			Author:      entryAuthor(item),
			SourceName:  sourceName,
			PublishedAt: entryDate(item, now),
		})
	}
	return entries, nil
}

// entryLink resolves the entry URL. Atom entries may carry several links;
// gofeed already prefers rel="alternate", so the fallback only has to pick
// the first one with an href.
func entryLink(item *gofeed.Item) string {
	if item.Link != "" {
		return collapseWhitespace(item.Link)
	}
	for _, l := range item.Links {
		if l != "" {
			return collapseWhitespace(l)
		}
	}
	return ""
}

func entryAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return collapseWhitespace(item.Author.Name)
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return collapseWhitespace(item.DublinCoreExt.Creator[0])
	}
	return ""
}

// dateLayouts is the fallback chain, RFC-822 variants first, then
// ISO-8601. Order matters: the first successful parse wins.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a feed timestamp via the fallback chain. The zero value
// of ok means no layout matched.
func ParseDate(raw string) (time.Time, bool) {
	raw = collapseWhitespace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func entryDate(item *gofeed.Item, now time.Time) time.Time {
	if t, ok := ParseDate(item.Published); ok {
		return t
	}
	if t, ok := ParseDate(item.Updated); ok {
		return t
	}
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return now
}
