package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected at least one default source")
	}
	if len(cfg.Categories) == 0 {
		t.Error("expected at least one default category")
	}
	if cfg.RefreshInterval == "" {
		t.Error("expected refresh_interval to be set")
	}
	if err := validate(cfg); err != nil {
		t.Errorf("embedded defaults do not validate: %v", err)
	}
}

func TestDefaultSearchDelays(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if got := cfg.QueryDebounce(); got != 200*time.Millisecond {
		t.Errorf("QueryDebounce() = %v, want 200ms", got)
	}
	if got := cfg.LoadingDebounce(); got != 400*time.Millisecond {
		t.Errorf("LoadingDebounce() = %v, want 400ms", got)
	}
	if got := cfg.BaselineLimit(); got != 10 {
		t.Errorf("BaselineLimit() = %d, want 10", got)
	}
}

func TestSearchDelayFallbacks(t *testing.T) {
	cfg := &Config{Search: SearchConfig{QueryDebounce: "nope", LoadingDebounce: "-1s"}}
	if got := cfg.QueryDebounce(); got != 200*time.Millisecond {
		t.Errorf("QueryDebounce() = %v, want 200ms fallback", got)
	}
	if got := cfg.LoadingDebounce(); got != 400*time.Millisecond {
		t.Errorf("LoadingDebounce() = %v, want 400ms fallback", got)
	}
	if got := cfg.BaselineLimit(); got != 10 {
		t.Errorf("BaselineLimit() = %d, want 10", got)
	}
}

func TestRefreshDuration(t *testing.T) {
	cfg := &Config{RefreshInterval: "30m"}
	d := cfg.RefreshDuration()
	if d.Minutes() != 30 {
		t.Errorf("expected 30m, got %v", d)
	}

	cfg.RefreshInterval = "invalid"
	d = cfg.RefreshDuration()
	if d.Hours() != 12 {
		t.Errorf("expected 12h default for invalid interval, got %v", d)
	}
}

func TestRetentionDuration(t *testing.T) {
	tests := []struct {
		input    string
		wantDays int
	}{
		{"90d", 90},
		{"30d", 30},
		{"720h", 30},
		{"", 90},        // default
		{"invalid", 90}, // fallback to default
	}
	for _, tt := range tests {
		cfg := &Config{Retention: tt.input}
		got := cfg.RetentionDuration()
		wantHours := float64(tt.wantDays * 24)
		if got.Hours() != wantHours {
			t.Errorf("RetentionDuration(%q) = %v, want %dd", tt.input, got, tt.wantDays)
		}
	}
}

func TestParseDays(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		err   bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"2h30m", 2*time.Hour + 30*time.Minute, false},
		{"invalid", 0, true},
		{"", 0, true},
		{"d", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDays(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("ParseDays(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDays(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDays(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEnabledSources(t *testing.T) {
	cfg := &Config{
		Sources: []Source{
			{Name: "A", Enabled: true},
			{Name: "B", Enabled: false},
			{Name: "C", Enabled: true},
		},
	}
	enabled := cfg.EnabledSources()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled sources, got %d", len(enabled))
	}
	if enabled[0].Name != "A" || enabled[1].Name != "C" {
		t.Errorf("unexpected enabled sources: %v", enabled)
	}
}

func TestRemoteURLFromEnv(t *testing.T) {
	t.Setenv("BLOGSEARCH_REMOTE", "http://localhost:9000")
	cfg := &Config{}
	if got := cfg.RemoteURL(); got != "http://localhost:9000" {
		t.Errorf("RemoteURL() = %q, want env value", got)
	}
	cfg.Remote = "https://blog.example.com"
	if got := cfg.RemoteURL(); got != "https://blog.example.com" {
		t.Errorf("RemoteURL() = %q, want config value", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := `refresh_interval: 2h
search:
  query_debounce: 50ms
sources:
  - name: Test
    type: rss
    url: https://example.com/feed
    enabled: true
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != "2h" {
		t.Errorf("expected 2h, got %s", cfg.RefreshInterval)
	}
	if cfg.QueryDebounce() != 50*time.Millisecond {
		t.Errorf("expected 50ms query debounce, got %v", cfg.QueryDebounce())
	}
	// Unset keys keep their defaults
	if cfg.LoadingDebounce() != 400*time.Millisecond {
		t.Errorf("expected default loading debounce, got %v", cfg.LoadingDebounce())
	}
	if len(cfg.Categories) == 0 {
		t.Error("expected default categories to survive a partial config")
	}
	// First source should be the user-defined one
	if cfg.Sources[0].Name != "Test" {
		t.Errorf("expected first source name Test, got %s", cfg.Sources[0].Name)
	}
	// Default sources should be merged in
	if len(cfg.Sources) <= 1 {
		t.Errorf("expected default sources to be merged, got %d total", len(cfg.Sources))
	}
}

func TestLoadNonexistentFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "config.yaml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected default sources when config doesn't exist")
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Errorf("expected defaults written to %s: %v", cfgPath, err)
	}
}

func TestMergeDefaultSources(t *testing.T) {
	cfg := &Config{
		Sources: []Source{
			{Name: "Existing", Type: "rss", URL: "https://example.com/feed", Enabled: true},
			{Name: "Shared", Type: "rss", URL: "https://old.com/feed", Enabled: true},
		},
	}
	defaults := &Config{
		Sources: []Source{
			{Name: "Shared", Type: "atom", URL: "https://new.com/feed", Enabled: true},
			{Name: "NewSource", Type: "rss", URL: "https://new-source.com/feed", Enabled: true},
		},
	}
	mergeDefaultSources(cfg, defaults)

	if len(cfg.Sources) != 3 {
		t.Fatalf("expected 3 sources after merge, got %d", len(cfg.Sources))
	}
	// User-only source preserved
	if cfg.Sources[0].Name != "Existing" {
		t.Errorf("expected first source Existing, got %s", cfg.Sources[0].Name)
	}
	// Shared source URL updated to default
	if cfg.Sources[1].URL != "https://new.com/feed" {
		t.Errorf("expected Shared URL updated, got %s", cfg.Sources[1].URL)
	}
	if cfg.Sources[1].Type != "atom" {
		t.Errorf("expected Shared type updated to atom, got %s", cfg.Sources[1].Type)
	}
	// New default source appended
	if cfg.Sources[2].Name != "NewSource" {
		t.Errorf("expected NewSource appended, got %s", cfg.Sources[2].Name)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing name", Config{Sources: []Source{{Type: "rss", URL: "https://example.com"}}}, true},
		{"missing url", Config{Sources: []Source{{Name: "Test", Type: "rss"}}}, true},
		{"invalid type", Config{Sources: []Source{{Name: "Test", Type: "json", URL: "https://example.com"}}}, true},
		{"file scheme", Config{Sources: []Source{{Name: "Test", Type: "rss", URL: "file:///etc/passwd"}}}, true},
		{"https", Config{Sources: []Source{{Name: "Test", Type: "rss", URL: "https://example.com/feed"}}}, false},
		{"http", Config{Sources: []Source{{Name: "Test", Type: "rss", URL: "http://example.com/feed"}}}, false},
		{"category without id", Config{Categories: []Category{{Name: "x"}}}, true},
		{"duplicate category", Config{Categories: []Category{{ID: "a"}, {ID: "a"}}}, true},
		{"unknown fallback", Config{Categories: []Category{{ID: "a"}}, FallbackCategory: "b"}, true},
		{"bad remote", Config{Remote: "ftp://example.com"}, true},
		{"bad debounce", Config{Search: SearchConfig{QueryDebounce: "soon"}}, true},
		{"valid remote", Config{Remote: "http://localhost:8080"}, false},
	}
	for _, tt := range tests {
		err := validate(&tt.cfg)
		if tt.wantErr && err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
	}
}
