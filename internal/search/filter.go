package search

import (
	"net/url"
	"sort"
	"strings"
)

// Cache keys shared with the fallback seed.
const (
	BaselineKey   = "/articles"
	CategoriesKey = "/categories"
)

// Criteria is what a filtered collection request asks the provider for.
type Criteria struct {
	Query       string   // case-insensitive title match, empty means any
	CategoryIDs []string // any-of, empty means any
}

// Filter is the user's current query and category selection.
type Filter struct {
	Query      string
	Categories []string // sorted, unique
}

// NewFilter normalizes the selection into a sorted set.
func NewFilter(query string, categories []string) Filter {
	return Filter{Query: query, Categories: normalizeIDs(categories)}
}

// Active reports whether the filter narrows the baseline at all.
// A whitespace-only query does not.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Query) != "" || len(f.Categories) > 0
}

// Selected reports whether the category is part of the selection.
func (f Filter) Selected(id string) bool {
	i := sort.SearchStrings(f.Categories, id)
	return i < len(f.Categories) && f.Categories[i] == id
}

// Toggle returns a copy with the category added or removed.
func (f Filter) Toggle(id string) Filter {
	out := make([]string, 0, len(f.Categories)+1)
	found := false
	for _, c := range f.Categories {
		if c == id {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		out = append(out, id)
	}
	return NewFilter(f.Query, out)
}

// Key identifies the request this filter produces. Filters that differ only in
// surrounding whitespace share a key.
func (f Filter) Key() string {
	if !f.Active() {
		return BaselineKey
	}
	v := url.Values{}
	if q := strings.TrimSpace(f.Query); q != "" {
		v.Set("q", q)
	}
	for _, c := range f.Categories {
		v.Add("category", c)
	}
	return BaselineKey + "?" + v.Encode()
}

func (f Filter) Criteria() Criteria {
	return Criteria{
		Query:       strings.TrimSpace(f.Query),
		CategoryIDs: append([]string(nil), f.Categories...),
	}
}

func (f Filter) equal(o Filter) bool {
	if f.Query != o.Query || len(f.Categories) != len(o.Categories) {
		return false
	}
	for i := range f.Categories {
		if f.Categories[i] != o.Categories[i] {
			return false
		}
	}
	return true
}

func normalizeIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
