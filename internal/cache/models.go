package cache

import "time"

type Article struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	CategoryIDs []string  `json:"categories"`
	Published   time.Time `json:"published"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// InCategory reports whether the article belongs to the given category.
func (a Article) InCategory(id string) bool {
	for _, c := range a.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type QueryOpts struct {
	Since       time.Time
	Search      string   // case-insensitive title match
	CategoryIDs []string // any-of
	Limit       int
}
