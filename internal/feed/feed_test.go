package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matheuskafuri/blogsearch/internal/config"
)

func TestArticleID(t *testing.T) {
	id1 := articleID("https://example.com/post-1")
	id2 := articleID("https://example.com/post-2")
	id1again := articleID("https://example.com/post-1")

	if id1 == id2 {
		t.Error("different URLs should produce different IDs")
	}
	if id1 != id1again {
		t.Error("same URL should produce same ID")
	}
	if len(id1) != 32 {
		t.Errorf("expected 32-char hex string, got %d chars: %s", len(id1), id1)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is a long string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		got := truncate(tt.input, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestTruncateUTF8(t *testing.T) {
	// Japanese characters are multi-byte but should truncate by rune
	input := "こんにちは世界です"
	got := truncate(input, 5)
	want := "こん..."
	if got != want {
		t.Errorf("truncate(%q, 5) = %q, want %q", input, got, want)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No tags here", "No tags here"},
		{"<div>  Multiple   spaces  </div>", "Multiple spaces"},
		{"", ""},
		{"<a href=\"url\">Link</a> text", "Link text"},
	}
	for _, tt := range tests {
		got := stripHTML(tt.input)
		if got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Scaling PostgreSQL to 10TB", "scaling-postgresql-to-10tb"},
		{"  What's new in Go 1.24?  ", "what-s-new-in-go-1-24"},
		{"---", ""},
		{"Café ünïcode", "café-ünïcode"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

type stubClassifier map[string][]string

func (s stubClassifier) Classify(title, _ string) []string { return s[title] }

func rssServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rssBody(items ...string) string {
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>Blog</title>` +
		strings.Join(items, "") + `</channel></rss>`
}

func rssItem(title, link string, pub time.Time) string {
	return "<item><title>" + title + "</title><link>" + link + "</link>" +
		"<description>&lt;p&gt;About " + title + "&lt;/p&gt;</description>" +
		"<pubDate>" + pub.UTC().Format(time.RFC1123Z) + "</pubDate></item>"
}

func TestRSSFetcherFetch(t *testing.T) {
	now := time.Now()
	srv := rssServer(t, rssBody(
		rssItem("Fresh Kubernetes Post", "https://example.com/fresh", now.Add(-time.Hour)),
		rssItem("Old Post", "https://example.com/old", now.Add(-30*24*time.Hour)),
	))

	f := NewRSSFetcher(stubClassifier{"Fresh Kubernetes Post": {"infra"}}, 7*24*time.Hour)
	got, err := f.Fetch(context.Background(), config.Source{Name: "Example", URL: srv.URL + "/feed"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 article after max-age filter, got %d", len(got))
	}
	a := got[0]
	if a.Slug != "fresh-kubernetes-post" {
		t.Errorf("Slug = %q", a.Slug)
	}
	if a.Description != "About Fresh Kubernetes Post" {
		t.Errorf("Description = %q", a.Description)
	}
	if len(a.CategoryIDs) != 1 || a.CategoryIDs[0] != "infra" {
		t.Errorf("CategoryIDs = %v", a.CategoryIDs)
	}
	if a.Source != "Example" || a.ID != articleID("https://example.com/fresh") {
		t.Errorf("unexpected article %+v", a)
	}
}

func TestFetchAllCollectsErrors(t *testing.T) {
	srv := rssServer(t, rssBody(rssItem("Post", "https://example.com/p", time.Now())))

	res := FetchAll(context.Background(), NewRSSFetcher(nil, 0), []config.Source{
		{Name: "Good", URL: srv.URL + "/feed"},
		{Name: "Missing", URL: srv.URL + "/missing"},
	}, nil)

	if len(res.Articles) != 1 {
		t.Errorf("expected 1 article, got %d", len(res.Articles))
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0].Error(), "Missing") {
		t.Errorf("expected one error naming the failing source, got %v", res.Errors)
	}
}
