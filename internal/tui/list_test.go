package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/matheuskafuri/blogsearch/internal/cache"
)

func TestTruncateStr(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"test", 0, ""},
	}
	for _, tt := range tests {
		got := truncateStr(tt.input, tt.n)
		if got != tt.want {
			t.Errorf("truncateStr(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestTruncateStrUTF8(t *testing.T) {
	got := truncateStr("日本語テスト", 5)
	want := "日本..."
	if got != want {
		t.Errorf("truncateStr(Japanese, 5) = %q, want %q", got, want)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-2 * 24 * time.Hour), "2d"},
	}
	for _, tt := range tests {
		got := relativeTime(tt.t)
		if got != tt.want {
			t.Errorf("relativeTime(%v ago) = %q, want %q", now.Sub(tt.t), got, tt.want)
		}
	}
}

func TestRelativeTimeOld(t *testing.T) {
	old := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	got := relativeTime(old)
	if got != "Jun 15" {
		t.Errorf("relativeTime(old date) = %q, want %q", got, "Jun 15")
	}
}

func testLabels(id string) string {
	switch id {
	case "ai":
		return "AI/ML"
	case "infra":
		return "Infrastructure"
	}
	return id
}

func TestCategoryNames(t *testing.T) {
	tests := []struct {
		ids    []string
		labels func(string) string
		want   string
	}{
		{nil, testLabels, ""},
		{[]string{}, nil, ""},
		{[]string{"ai", "infra"}, nil, "ai, infra"},
		{[]string{"ai", "infra"}, testLabels, "AI/ML, Infrastructure"},
		{[]string{"ai", "unknown"}, testLabels, "AI/ML, unknown"},
	}
	for _, tt := range tests {
		got := categoryNames(tt.ids, tt.labels)
		if got != tt.want {
			t.Errorf("categoryNames(%v) = %q, want %q", tt.ids, got, tt.want)
		}
	}
}

func TestRenderListItemShowsCategoryLabels(t *testing.T) {
	a := cache.Article{
		Title:       "Scaling inference",
		Source:      "GitHub",
		CategoryIDs: []string{"ai", "infra"},
		Published:   time.Now().Add(-2 * time.Hour),
	}

	got := renderListItem(a, false, 80, testLabels)
	for _, want := range []string{"Scaling inference", "GitHub", "2h", "AI/ML, Infrastructure"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered item missing %q:\n%s", want, got)
		}
	}

	raw := renderListItem(a, true, 80, nil)
	if !strings.Contains(raw, "ai, infra") {
		t.Errorf("without labels expected raw ids, got:\n%s", raw)
	}
	if !strings.Contains(raw, "> Scaling inference") {
		t.Errorf("selected item missing marker:\n%s", raw)
	}
}

func TestRenderListItemWithoutCategories(t *testing.T) {
	a := cache.Article{Title: "Plain post", Source: "Cloudflare", Published: time.Now()}

	labeled := renderListItem(a, false, 80, testLabels)
	bare := renderListItem(a, false, 80, nil)
	if labeled != bare {
		t.Errorf("labels changed an item without categories:\n%s\nvs\n%s", labeled, bare)
	}
	if strings.Count(labeled, "\n") != 1 {
		t.Errorf("expected title and meta lines, got:\n%s", labeled)
	}
}
