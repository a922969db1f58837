package provider

import (
	"context"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/search"
)

// Store reads articles from the local SQLite cache.
type Store struct {
	db            *cache.Cache
	baselineLimit int
}

func NewStore(db *cache.Cache, baselineLimit int) *Store {
	return &Store{db: db, baselineLimit: baselineLimit}
}

func (s *Store) FetchBaseline(ctx context.Context) ([]cache.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.db.GetArticles(cache.QueryOpts{Limit: s.baselineLimit})
}

func (s *Store) FetchCollection(ctx context.Context, c search.Criteria) ([]cache.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.db.GetArticles(cache.QueryOpts{Search: c.Query, CategoryIDs: c.CategoryIDs})
}

func (s *Store) FetchCategories(ctx context.Context) ([]cache.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.db.GetCategories()
}
