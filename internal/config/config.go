package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "blogsearch"

type Source struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Category is a blog category together with the keywords that assign articles to it.
type Category struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type SearchConfig struct {
	QueryDebounce   string `yaml:"query_debounce"`
	LoadingDebounce string `yaml:"loading_debounce"`
	BaselineLimit   int    `yaml:"baseline_limit"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod or dev
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file,omitempty"`
}

type Config struct {
	RefreshInterval  string        `yaml:"refresh_interval"`
	Retention        string        `yaml:"retention"`
	Search           SearchConfig  `yaml:"search"`
	Server           ServerConfig  `yaml:"server"`
	Remote           string        `yaml:"remote,omitempty"`
	ArchiveURL       string        `yaml:"archive_url"`
	Logging          LoggingConfig `yaml:"logging"`
	FallbackCategory string        `yaml:"fallback_category"`
	Categories       []Category    `yaml:"categories"`
	Sources          []Source      `yaml:"sources"`
}

// RemoteURL returns the API base URL to read articles from, or "" for the local store.
func (c *Config) RemoteURL() string {
	if c.Remote != "" {
		return c.Remote
	}
	return os.Getenv("BLOGSEARCH_REMOTE")
}

func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 12 * time.Hour
	}
	return d
}

func (c *Config) RetentionDuration() time.Duration {
	if c.Retention == "" {
		return 90 * 24 * time.Hour
	}
	d, err := ParseDays(c.Retention)
	if err != nil {
		return 90 * 24 * time.Hour
	}
	return d
}

func (c *Config) QueryDebounce() time.Duration {
	return parseDelay(c.Search.QueryDebounce, 200*time.Millisecond)
}

func (c *Config) LoadingDebounce() time.Duration {
	return parseDelay(c.Search.LoadingDebounce, 400*time.Millisecond)
}

// BaselineLimit returns how many articles the unfiltered list shows, defaulting to 10.
func (c *Config) BaselineLimit() int {
	if c.Search.BaselineLimit <= 0 {
		return 10
	}
	return c.Search.BaselineLimit
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) LogFile() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

// ParseDays parses a Go duration that may also use an "Nd" day suffix.
func ParseDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func parseDelay(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, appName, appName+".db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path, layered over the embedded defaults.
// A missing file is created from the defaults on first run.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}
	defaults, _ := loadDefaults()

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: embedded defaults still apply
			_ = writeDefaults(path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	mergeDefaultSources(cfg, defaults)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeDefaultSources keeps user sources, refreshes the URL and type of sources that
// share a name with a default, and appends defaults the user does not have yet.
func mergeDefaultSources(cfg, defaults *Config) {
	byName := make(map[string]int, len(cfg.Sources))
	for i, s := range cfg.Sources {
		byName[s.Name] = i
	}
	for _, d := range defaults.Sources {
		if i, ok := byName[d.Name]; ok {
			cfg.Sources[i].URL = d.URL
			cfg.Sources[i].Type = d.Type
			continue
		}
		cfg.Sources = append(cfg.Sources, d)
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	validTypes := map[string]bool{"rss": true, "atom": true}
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Name)
		}
		if err := checkHTTPURL(s.URL); err != nil {
			return fmt.Errorf("source %q: %w", s.Name, err)
		}
		if !validTypes[s.Type] {
			return fmt.Errorf("source %q: unknown type %q (valid: rss, atom)", s.Name, s.Type)
		}
	}

	seen := make(map[string]bool, len(cfg.Categories))
	for i, c := range cfg.Categories {
		if c.ID == "" {
			return fmt.Errorf("category %d: id is required", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("category %q: duplicate id", c.ID)
		}
		seen[c.ID] = true
	}
	if cfg.FallbackCategory != "" && !seen[cfg.FallbackCategory] {
		return fmt.Errorf("fallback_category %q is not a configured category", cfg.FallbackCategory)
	}

	if cfg.Remote != "" {
		if err := checkHTTPURL(cfg.Remote); err != nil {
			return fmt.Errorf("remote: %w", err)
		}
	}

	if cfg.Search.QueryDebounce != "" {
		if _, err := time.ParseDuration(cfg.Search.QueryDebounce); err != nil {
			return fmt.Errorf("search.query_debounce: %w", err)
		}
	}
	if cfg.Search.LoadingDebounce != "" {
		if _, err := time.ParseDuration(cfg.Search.LoadingDebounce); err != nil {
			return fmt.Errorf("search.loading_debounce: %w", err)
		}
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}
