package urlcheck

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"healthfeed/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockClient routes probe requests through a per-call function.
type mockClient struct {
	do func(req *http.Request) (*http.Response, error)
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	return m.do(req)
}

func respond(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func TestCheckFormat(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantOK     bool
		wantReason model.ReasonCode
	}{
		{name: "valid https", url: "https://www.healthline.com/nutrition", wantOK: true, wantReason: model.ReasonOK},
		{name: "valid http", url: "http://news.example-health.org/a", wantOK: true, wantReason: model.ReasonOK},
		{name: "empty", url: "", wantOK: false, wantReason: model.ReasonMalformed},
		{name: "literal null", url: "NULL", wantOK: false, wantReason: model.ReasonMalformed},
		{name: "fragment only", url: "#section", wantOK: false, wantReason: model.ReasonBlacklisted},
		{name: "javascript scheme", url: "javascript:alert(1)", wantOK: false, wantReason: model.ReasonBlacklisted},
		{name: "mailto", url: "mailto:news@site.test", wantOK: false, wantReason: model.ReasonBlacklisted},
		{name: "placeholder domain", url: "https://example.com/article", wantOK: false, wantReason: model.ReasonBlacklisted},
		{name: "localhost", url: "http://localhost:8080/x", wantOK: false, wantReason: model.ReasonBlacklisted},
		{name: "unsupported scheme", url: "gopher://old.net/1", wantOK: false, wantReason: model.ReasonMalformed},
		{name: "missing host", url: "https:///path-only", wantOK: false, wantReason: model.ReasonMalformed},
		{name: "over length", url: "https://a.test/" + strings.Repeat("x", 2000), wantOK: false, wantReason: model.ReasonMalformed},
		{name: "surrounding whitespace", url: "  https://www.bmj.com/article  ", wantOK: true, wantReason: model.ReasonOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CheckFormat(tt.url)
			if ok != tt.wantOK || reason != tt.wantReason {
				t.Errorf("CheckFormat(%q) = (%v, %s), want (%v, %s)",
					tt.url, ok, reason, tt.wantOK, tt.wantReason)
			}
		})
	}
}

func TestIsTrusted(t *testing.T) {
	v := New(nil, true, discardLogger())

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.who.int/news/item/1", true},
		{"https://pubmed.ncbi.nlm.nih.gov/12345/", true},
		{"https://www.reuters.com/health/article", true},
		{"https://random-health-blog.net/post", false},
		{"not a url at all", false},
	}
	for _, tt := range tests {
		if got := v.IsTrusted(tt.url); got != tt.want {
			t.Errorf("IsTrusted(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestValidateTrustedSkipsProbe(t *testing.T) {
	// The client always fails; a trusted URL must still be admitted
	// because trust bypasses the probe entirely.
	client := &mockClient{do: func(_ *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	}}
	v := New(client, true, discardLogger())

	got := v.Validate(context.Background(), "https://www.cdc.gov/flu/index.html", true)
	want := model.ValidationResult{Admitted: true, Trusted: true, Reason: model.ReasonOK}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateStatusPolicy(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantAdmit  bool
		wantReason model.ReasonCode
	}{
		{name: "ok", status: 200, wantAdmit: true, wantReason: model.ReasonOK},
		{name: "created", status: 201, wantAdmit: true, wantReason: model.ReasonOK},
		{name: "redirect", status: 301, wantAdmit: true, wantReason: model.ReasonOK},
		{name: "forbidden", status: 403, wantAdmit: false, wantReason: model.ReasonClientError},
		{name: "not found", status: 404, wantAdmit: false, wantReason: model.ReasonClientError},
		{name: "gone", status: 410, wantAdmit: false, wantReason: model.ReasonClientError},
		{name: "server error", status: 503, wantAdmit: false, wantReason: model.ReasonServerError},
		{name: "teapot", status: 418, wantAdmit: false, wantReason: model.ReasonClientError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{do: func(req *http.Request) (*http.Response, error) {
				if req.Method != http.MethodHead {
					t.Errorf("expected HEAD probe, got %s", req.Method)
				}
				return respond(tt.status), nil
			}}
			v := New(client, true, discardLogger())

			got := v.Validate(context.Background(), "https://untrusted-health.site/a", true)
			if got.Admitted != tt.wantAdmit || got.Reason != tt.wantReason {
				t.Errorf("status %d: got (%v, %s), want (%v, %s)",
					tt.status, got.Admitted, got.Reason, tt.wantAdmit, tt.wantReason)
			}
		})
	}
}

func TestValidateHeadFallsBackToGet(t *testing.T) {
	var methods []string
	client := &mockClient{do: func(req *http.Request) (*http.Response, error) {
		methods = append(methods, req.Method)
		if req.Method == http.MethodHead {
			return respond(http.StatusMethodNotAllowed), nil
		}
		return respond(http.StatusOK), nil
	}}
	v := New(client, true, discardLogger())

	got := v.Validate(context.Background(), "https://untrusted-health.site/a", true)
	if !got.Admitted {
		t.Fatalf("expected admission after GET retry, got %+v", got)
	}
	want := []string{http.MethodHead, http.MethodGet}
	if diff := cmp.Diff(want, methods); diff != "" {
		t.Errorf("probe methods mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateSkipsProbeWhenDisabled(t *testing.T) {
	client := &mockClient{do: func(_ *http.Request) (*http.Response, error) {
		t.Fatal("probe must not run when reachability checks are off")
		return nil, nil
	}}
	v := New(client, true, discardLogger())

	got := v.Validate(context.Background(), "https://untrusted-health.site/a", false)
	if !got.Admitted {
		t.Fatalf("expected admission, got %+v", got)
	}
}

func TestValidateBatch(t *testing.T) {
	entries := []model.RawEntry{
		{Title: "trusted", Link: "https://www.nih.gov/news/item"},
		{Title: "blacklisted", Link: "https://example.com/spam"},
		{Title: "gone", Link: "https://untrusted-health.site/gone"},
		{Title: "flaky", Link: "https://untrusted-health.site/flaky"},
	}

	client := &mockClient{do: func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(req.URL.Path, "/gone"):
			return respond(http.StatusNotFound), nil
		default:
			// Transport-level fault: the batch path fails open here.
			return nil, io.ErrUnexpectedEOF
		}
	}}
	v := New(client, true, discardLogger())

	got := v.ValidateBatch(context.Background(), entries)

	var titles []string
	for _, e := range got {
		titles = append(titles, e.Title)
	}
	want := []string{"trusted", "flaky"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("admitted entries mismatch (-want +got):\n%s", diff)
	}
}

func TestAlwaysAdmit(t *testing.T) {
	v := AlwaysAdmit{}

	if got := v.Validate(context.Background(), "https://anything.site/x", true); !got.Admitted {
		t.Errorf("expected admission, got %+v", got)
	}
	if got := v.Validate(context.Background(), "javascript:void(0)", true); got.Admitted {
		t.Errorf("format check must still reject, got %+v", got)
	}

	entries := []model.RawEntry{
		{Link: "https://anything.site/x"},
		{Link: "mailto:spam@spam"},
	}
	if got := v.ValidateBatch(context.Background(), entries); len(got) != 1 {
		t.Errorf("expected 1 admitted entry, got %d", len(got))
	}
}
