// Package provider implements search.Provider over the local article store and over
// the JSON API served by internal/api.
package provider

import (
	"context"
	"fmt"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/search"
)

// Provider is a search.Provider that can also list categories.
type Provider interface {
	search.Provider
	FetchCategories(ctx context.Context) ([]cache.Category, error)
}

// Fallback fetches the baseline and the category list once, keyed the way the
// search coordinator reads them, so a swr.Cache seeded with it renders without a
// round trip.
func Fallback(ctx context.Context, p Provider) (map[string]any, error) {
	articles, err := p.FetchBaseline(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching baseline: %w", err)
	}
	categories, err := p.FetchCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	return map[string]any{
		search.BaselineKey:   articles,
		search.CategoriesKey: categories,
	}, nil
}
