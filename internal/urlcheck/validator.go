// Package urlcheck decides whether candidate article URLs are admissible.
package urlcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"healthfeed/internal/model"
)

// UrlValidator is the admission capability the pipeline depends on. Two
// variants exist: Validator performs the real checks, AlwaysAdmit waves
// everything through.
type UrlValidator interface {
	Validate(ctx context.Context, rawURL string, checkReachability bool) model.ValidationResult
	// ValidateBatch filters entries down to the admissible ones. Probe
	// errors for a single entry fail open: the entry is kept.
	ValidateBatch(ctx context.Context, entries []model.RawEntry) []model.RawEntry
	IsTrusted(rawURL string) bool
}

// Substrings that disqualify a URL outright.
var blacklistedPatterns = []string{
	"javascript:", "mailto:", "tel:", "ftp:", "data:", "blob:",
	"about:", "chrome:", "edge:", "safari:",
	"example.com", "example.org", "example.net",
	"domain.com", "test.com", "localhost",
	"dummy.com", "sample.com",
}

// Domains whose articles are admitted without a reachability probe.
var trustedDomains = []string{
	"who.int", "nih.gov", "cdc.gov", "fda.gov",
	"webmd.com", "healthline.com", "mayoclinic.org",
	"medicalnewstoday.com", "health.com", "everydayhealth.com",
	"reuters.com", "cnn.com", "bbc.com", "npr.org",
	"news18.com", "thehindu.com", "indiatoday.in",
	"sciencedaily.com", "pubmed.ncbi.nlm.nih.gov",
	"nejm.org", "thelancet.com", "bmj.com",
}

const maxURLLen = 2000

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Validator is the real UrlValidator: format check, trust allowlist,
// optional reachability probe.
type Validator struct {
	client  HTTPClient
	log     *slog.Logger
	timeout time.Duration
	// probe is enabled for untrusted domains only when set.
	checkReachability bool
}

var _ UrlValidator = (*Validator)(nil)

// New creates a Validator. A nil client falls back to a default client
// with a bounded timeout.
func New(client HTTPClient, checkReachability bool, log *slog.Logger) *Validator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Validator{
		client:            client,
		log:               log,
		timeout:           15 * time.Second,
		checkReachability: checkReachability,
	}
}

// CheckFormat performs the syntactic and blacklist checks. It never does
// network I/O, so it is also safe to use on the read path.
func CheckFormat(rawURL string) (bool, model.ReasonCode) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || rawURL == "NULL" {
		return false, model.ReasonMalformed
	}
	if strings.HasPrefix(rawURL, "#") {
		return false, model.ReasonBlacklisted
	}
	if len(rawURL) > maxURLLen {
		return false, model.ReasonMalformed
	}

	lower := strings.ToLower(rawURL)
	for _, pattern := range blacklistedPatterns {
		if strings.Contains(lower, pattern) {
			return false, model.ReasonBlacklisted
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, model.ReasonMalformed
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, model.ReasonMalformed
	}
	if parsed.Host == "" {
		return false, model.ReasonMalformed
	}
	return true, model.ReasonOK
}

// IsTrusted reports whether the URL's host belongs to the trusted-domain
// allowlist.
func (v *Validator) IsTrusted(rawURL string) bool {
	parsed, err := url.Parse(strings.ToLower(strings.TrimSpace(rawURL)))
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	for _, trusted := range trustedDomains {
		if strings.Contains(host, trusted) {
			return true
		}
	}
	return false
}

// Validate runs the full admission decision for one URL. Trust never
// bypasses the format check, but it does bypass reachability.
func (v *Validator) Validate(ctx context.Context, rawURL string, checkReachability bool) model.ValidationResult {
	ok, reason := CheckFormat(rawURL)
	if !ok {
		return model.ValidationResult{Admitted: false, Reason: reason}
	}

	trusted := v.IsTrusted(rawURL)
	if !checkReachability || trusted {
		return model.ValidationResult{Admitted: true, Trusted: trusted, Reason: model.ReasonOK}
	}

	accessible, reason := v.probe(ctx, rawURL)
	return model.ValidationResult{Admitted: accessible, Trusted: false, Reason: reason}
}

// probe issues a HEAD request, retrying with a GET when the server rejects
// the method; the GET is closed as soon as headers arrive.
func (v *Validator) probe(ctx context.Context, rawURL string) (bool, model.ReasonCode) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	resp, err := v.doProbe(ctx, http.MethodHead, rawURL)
	if err != nil {
		return false, model.ReasonUnreachable
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		drain(resp)
		resp, err = v.doProbe(ctx, http.MethodGet, rawURL)
		if err != nil {
			return false, model.ReasonUnreachable
		}
	}
	drain(resp)

	switch {
	case resp.StatusCode == 200 || resp.StatusCode == 201 || resp.StatusCode == 202:
		return true, model.ReasonOK
	case resp.StatusCode == 301 || resp.StatusCode == 302 || resp.StatusCode == 303 ||
		resp.StatusCode == 307 || resp.StatusCode == 308:
		// Redirects are followed by the client; seeing one here still
		// counts as reachable.
		return true, model.ReasonOK
	case resp.StatusCode == 403 || resp.StatusCode == 404 || resp.StatusCode == 410:
		return false, model.ReasonClientError
	case resp.StatusCode >= 500:
		return false, model.ReasonServerError
	default:
		return false, model.ReasonClientError
	}
}

func (v *Validator) doProbe(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "HealthFeedBot/1.0")
	return v.client.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
	_ = resp.Body.Close()
}

// ValidateBatch filters entries to the admissible ones. Trusted domains
// skip the probe entirely; a probe that cannot complete for other reasons
// than a definite rejection keeps the entry rather than dropping it, so a
// validator fault never loses data.
func (v *Validator) ValidateBatch(ctx context.Context, entries []model.RawEntry) []model.RawEntry {
	admitted := make([]model.RawEntry, 0, len(entries))
	for _, entry := range entries {
		ok, reason := CheckFormat(entry.Link)
		if !ok {
			v.log.Debug("url rejected", "url", entry.Link, "reason", reason)
			continue
		}
		if v.IsTrusted(entry.Link) {
			admitted = append(admitted, entry)
			continue
		}
		if !v.checkReachability {
			admitted = append(admitted, entry)
			continue
		}

		accessible, reason := v.probe(ctx, entry.Link)
		if accessible || reason == model.ReasonUnreachable {
			// Fail open on transport-level faults.
			if !accessible {
				v.log.Warn("probe failed, admitting anyway", "url", entry.Link, "reason", reason)
			}
			admitted = append(admitted, entry)
			continue
		}
		v.log.Debug("url rejected", "url", entry.Link, "reason", reason)
	}
	return admitted
}

// AlwaysAdmit is the no-op UrlValidator used when validation is disabled
// by configuration. Format checks still apply so garbage never reaches the
// store.
type AlwaysAdmit struct{}

var _ UrlValidator = AlwaysAdmit{}

// Validate admits every URL that passes the format check.
func (AlwaysAdmit) Validate(_ context.Context, rawURL string, _ bool) model.ValidationResult {
	ok, reason := CheckFormat(rawURL)
	return model.ValidationResult{Admitted: ok, Reason: reason}
}

// ValidateBatch keeps every entry with a well-formed link.
func (AlwaysAdmit) ValidateBatch(_ context.Context, entries []model.RawEntry) []model.RawEntry {
	admitted := make([]model.RawEntry, 0, len(entries))
	for _, entry := range entries {
		if ok, _ := CheckFormat(entry.Link); ok {
			admitted = append(admitted, entry)
		}
	}
	return admitted
}

// IsTrusted always reports false.
func (AlwaysAdmit) IsTrusted(string) bool { return false }
